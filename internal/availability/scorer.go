package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScoreBand assigns Score to slots whose start time of day falls between From and To.
type ScoreBand struct {
	From          ClockTime
	To            ClockTime
	FromInclusive bool
	ToInclusive   bool
	Score         float64
}

// Matches reports whether c lies inside the band.
func (b ScoreBand) Matches(c ClockTime) bool {
	m := c.Minutes()
	lo, hi := b.From.Minutes(), b.To.Minutes()
	if m < lo || (m == lo && !b.FromInclusive) {
		return false
	}
	if m > hi || (m == hi && !b.ToInclusive) {
		return false
	}
	return true
}

func (b ScoreBand) String() string {
	open, closing := "(", ")"
	if b.FromInclusive {
		open = "["
	}
	if b.ToInclusive {
		closing = "]"
	}
	return fmt.Sprintf("%s%s,%s%s=%.2f", open, b.From, b.To, closing, b.Score)
}

// ParseScoreBand parses the String form of a band, such as "[10:00,11:00)=0.9".
func ParseScoreBand(s string) (ScoreBand, error) {
	s = strings.TrimSpace(s)
	rng, score, ok := strings.Cut(s, "=")
	if !ok || len(rng) < 2 {
		return ScoreBand{}, fmt.Errorf("score band %q: want <bracket>HH:MM,HH:MM<bracket>=score", s)
	}

	var b ScoreBand
	switch rng[0] {
	case '[':
		b.FromInclusive = true
	case '(':
	default:
		return ScoreBand{}, fmt.Errorf("score band %q: range must start with '[' or '('", s)
	}
	switch rng[len(rng)-1] {
	case ']':
		b.ToInclusive = true
	case ')':
	default:
		return ScoreBand{}, fmt.Errorf("score band %q: range must end with ']' or ')'", s)
	}

	from, to, ok := strings.Cut(rng[1:len(rng)-1], ",")
	if !ok {
		return ScoreBand{}, fmt.Errorf("score band %q: missing ','", s)
	}
	var err error
	if b.From, err = ParseClock(strings.TrimSpace(from)); err != nil {
		return ScoreBand{}, fmt.Errorf("score band %q: %w", s, err)
	}
	if b.To, err = ParseClock(strings.TrimSpace(to)); err != nil {
		return ScoreBand{}, fmt.Errorf("score band %q: %w", s, err)
	}
	if b.Score, err = strconv.ParseFloat(strings.TrimSpace(score), 64); err != nil {
		return ScoreBand{}, fmt.Errorf("score band %q: invalid score: %w", s, err)
	}
	return b, nil
}

// ScoringTable scores slots by time-of-day desirability. The first matching band
// wins; slots matching no band get Default.
type ScoringTable struct {
	Bands   []ScoreBand
	Default float64
}

// DefaultScoringTable returns the standard desirability bands:
// late morning scores highest, mid-afternoon next, the edges of the morning after that.
func DefaultScoringTable() ScoringTable {
	return ScoringTable{
		Bands: []ScoreBand{
			{From: Clock(10, 0), To: Clock(11, 0), FromInclusive: true, ToInclusive: true, Score: 0.9},
			{From: Clock(14, 0), To: Clock(16, 0), FromInclusive: true, ToInclusive: true, Score: 0.8},
			{From: Clock(9, 0), To: Clock(10, 0), FromInclusive: true, Score: 0.7},
			{From: Clock(11, 0), To: Clock(12, 0), ToInclusive: true, Score: 0.7},
		},
		Default: 0.6,
	}
}

// Validate checks that every score is within [0, 1] and every band is well formed.
func (t ScoringTable) Validate() error {
	if t.Default < 0 || t.Default > 1 {
		return fmt.Errorf("default score %.2f is outside [0,1]", t.Default)
	}
	for i, b := range t.Bands {
		if b.Score < 0 || b.Score > 1 {
			return fmt.Errorf("band %d score %.2f is outside [0,1]", i, b.Score)
		}
		if b.To.Before(b.From) {
			return fmt.Errorf("band %d ends (%s) before it starts (%s)", i, b.To, b.From)
		}
	}
	return nil
}

// Score returns the desirability of a slot starting at start, evaluated in loc.
func (t ScoringTable) Score(start time.Time, loc *time.Location) float64 {
	c := ClockOf(start, loc)
	for _, b := range t.Bands {
		if b.Matches(c) {
			return b.Score
		}
	}
	return t.Default
}

// ScoreSlots returns a copy of slots with Score filled in.
func (t ScoringTable) ScoreSlots(slots []AvailabilitySlot, loc *time.Location) []AvailabilitySlot {
	scored := make([]AvailabilitySlot, len(slots))
	for i, s := range slots {
		s.Score = t.Score(s.Start, loc)
		scored[i] = s
	}
	return scored
}
