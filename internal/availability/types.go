package availability

import (
	"fmt"
	"strings"
	"time"
)

// TimeInterval is a half-open interval [Start, End).
type TimeInterval struct {
	Start time.Time
	End   time.Time
}

// NewInterval returns the interval [start, end) or an error if start is not before end.
func NewInterval(start, end time.Time) (TimeInterval, error) {
	if !start.Before(end) {
		return TimeInterval{}, fmt.Errorf("interval start %s is not before end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeInterval{Start: start, End: end}, nil
}

// IsZero reports whether the interval is empty.
func (i TimeInterval) IsZero() bool {
	return !i.Start.Before(i.End)
}

// Duration returns the length of the interval.
func (i TimeInterval) Duration() time.Duration {
	if i.IsZero() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Overlaps reports whether the two half-open intervals share at least one instant.
func (i TimeInterval) Overlaps(o TimeInterval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o lies entirely within i.
func (i TimeInterval) Contains(o TimeInterval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// In returns the same interval expressed in loc.
func (i TimeInterval) In(loc *time.Location) TimeInterval {
	return TimeInterval{Start: i.Start.In(loc), End: i.End.In(loc)}
}

func (i TimeInterval) String() string {
	return i.Start.Format("2006-01-02 15:04") + "-" + i.End.Format("15:04 MST")
}

// Date is a calendar date without a time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a date in YYYY-MM-DD form and rejects dates that do not exist.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Valid reports whether the date exists in the Gregorian calendar.
func (d Date) Valid() bool {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return t.Day() == d.Day && t.Month() == d.Month
}

// At returns the instant at the given clock time on this date in loc.
func (d Date) At(c ClockTime, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
}

// Weekday returns the day of the week of the date.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

// IsWeekend reports whether the date falls on a Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ClockTime is a time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// Clock returns the ClockTime h:m.
func Clock(h, m int) ClockTime {
	return ClockTime{Hour: h, Minute: m}
}

// ParseClock parses a time of day in HH:MM form.
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// ClockOf returns the time of day of t in loc.
func ClockOf(t time.Time, loc *time.Location) ClockTime {
	local := t.In(loc)
	return ClockTime{Hour: local.Hour(), Minute: local.Minute()}
}

// Minutes returns the number of minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Before reports whether c is earlier in the day than o.
func (c ClockTime) Before(o ClockTime) bool {
	return c.Minutes() < o.Minutes()
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// SourceStatus describes how reliable a participant's busy data is. Any status
// other than StatusOK makes the participant a partial failure whose intervals
// are not trusted.
type SourceStatus int

const (
	StatusOK SourceStatus = iota
	// StatusUnavailable means the backend answered without usable busy data.
	StatusUnavailable
	StatusUnknown
)

func (s SourceStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SourceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParticipantBusy holds the busy intervals fetched for one participant.
// It is written once by the fetch that produced it and only read afterwards.
type ParticipantBusy struct {
	ParticipantID string
	Intervals     []TimeInterval
	Status        SourceStatus
	// Err is the reason Status is not StatusOK, if any.
	Err error
}

// Reliable reports whether the intervals can be trusted for conflict checking.
func (p ParticipantBusy) Reliable() bool {
	return p.Status == StatusOK
}

// SchedulingRequest is the input to Engine.FindSlots.
type SchedulingRequest struct {
	// Participants are opaque identifiers such as email addresses.
	Participants []string
	Date         Date
	// DurationMinutes is the meeting length. When zero, DefaultDurationHint is used,
	// then the engine default.
	DurationMinutes int
	// Policy overrides the engine's default working-hours policy when set.
	Policy *WorkingHoursPolicy
	// DefaultDurationHint is an optional default taken from user preferences.
	DefaultDurationHint *int
	// MaxResults overrides the engine's top N when positive.
	MaxResults int
}

// EffectiveDuration returns the requested duration, falling back to the hint.
// Zero means the engine's default duration applies.
func (r SchedulingRequest) EffectiveDuration() int {
	if r.DurationMinutes == 0 && r.DefaultDurationHint != nil {
		return *r.DefaultDurationHint
	}
	return r.DurationMinutes
}

// UniqueParticipants returns the trimmed participant set in first-seen order.
// Identifiers compare case-insensitively; blanks are dropped.
func (r SchedulingRequest) UniqueParticipants() []string {
	seen := make(map[string]bool, len(r.Participants))
	out := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// AvailabilitySlot is a candidate meeting time.
type AvailabilitySlot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"durationMinutes"`
	Score           float64   `json:"score"`
}

// Interval returns the slot as a TimeInterval.
func (s AvailabilitySlot) Interval() TimeInterval {
	return TimeInterval{Start: s.Start, End: s.End}
}

// SlotResult is the outcome of a successful FindSlots call.
type SlotResult struct {
	// Slots are ordered by score descending, then start ascending.
	Slots []AvailabilitySlot `json:"slots"`
	// PartialFailures lists participants whose busy data could not be read.
	// Slots are computed without their data and may conflict with their calendars.
	PartialFailures []string `json:"partialFailures"`
	// Window is the working window that was searched. It is zero when the date was excluded.
	Window TimeInterval `json:"-"`
	// Empty is true when the request was valid but no slot satisfied it.
	Empty bool `json:"empty"`
	// RequestID correlates the result with logs and traces.
	RequestID string `json:"requestId"`
}

// ConflictFree reports whether every participant's calendar was taken into account.
func (r *SlotResult) ConflictFree() bool {
	return len(r.PartialFailures) == 0
}
