package availability

import (
	"fmt"
	"strings"
	"time"
)

// naiveLayouts are accepted for timestamps without a zone designator.
// Fractional seconds are accepted after the seconds field when parsing.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// WorkingWindow returns the working window of date under policy, expressed in the
// policy location. The second result is false when the policy excludes the date,
// in which case the window is zero and no provider should be queried.
func WorkingWindow(date Date, policy WorkingHoursPolicy) (TimeInterval, bool) {
	if policy.ExcludeWeekends && date.IsWeekend() {
		return TimeInterval{}, false
	}
	return TimeInterval{
		Start: date.At(policy.WorkStart, policy.Location),
		End:   date.At(policy.WorkEnd, policy.Location),
	}, true
}

// LunchInterval returns the lunch break of date as an interval in the policy location.
func LunchInterval(date Date, policy WorkingHoursPolicy) TimeInterval {
	return TimeInterval{
		Start: date.At(policy.LunchStart, policy.Location),
		End:   date.At(policy.LunchEnd, policy.Location),
	}
}

// Normalize expresses interval in the reference location.
// The instants are unchanged; only their presentation moves to ref.
func Normalize(interval TimeInterval, ref *time.Location) TimeInterval {
	return interval.In(ref)
}

// ParseProviderTime parses a timestamp returned by a calendar backend.
//
// Values carrying a zone designator ("Z" or a numeric offset) are instants and are
// never reinterpreted as wall time. Values without one are wall-clock times in
// sourceZone, which defaults to UTC. The result is expressed in ref.
func ParseProviderTime(value, sourceZone string, ref *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if ref == nil {
		ref = time.UTC
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(ref), nil
	}

	loc, err := LoadLocation(sourceZone)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.In(ref), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// ParseProviderInterval parses a start/end pair with ParseProviderTime and validates it.
func ParseProviderInterval(start, end, sourceZone string, ref *time.Location) (TimeInterval, error) {
	s, err := ParseProviderTime(start, sourceZone, ref)
	if err != nil {
		return TimeInterval{}, fmt.Errorf("invalid start: %w", err)
	}
	e, err := ParseProviderTime(end, sourceZone, ref)
	if err != nil {
		return TimeInterval{}, fmt.Errorf("invalid end: %w", err)
	}
	return NewInterval(s, e)
}
