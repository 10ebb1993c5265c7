package availability

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is the reference timezone used when a policy names none.
const DefaultTimezone = "Europe/Istanbul"

// WorkingHoursPolicy describes when meetings may be scheduled on a given day.
type WorkingHoursPolicy struct {
	WorkStart  ClockTime
	WorkEnd    ClockTime
	LunchStart ClockTime
	LunchEnd   ClockTime
	// Location is the reference timezone. All intervals are compared in it.
	Location        *time.Location
	ExcludeWeekends bool
}

// DefaultPolicy returns 09:00-18:00 with a 12:00-13:00 lunch break, weekdays only,
// in DefaultTimezone.
func DefaultPolicy() WorkingHoursPolicy {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		loc = time.UTC
	}
	return WorkingHoursPolicy{
		WorkStart:       Clock(9, 0),
		WorkEnd:         Clock(18, 0),
		LunchStart:      Clock(12, 0),
		LunchEnd:        Clock(13, 0),
		Location:        loc,
		ExcludeWeekends: true,
	}
}

// Validate checks WorkStart < LunchStart < LunchEnd < WorkEnd.
func (p WorkingHoursPolicy) Validate() error {
	if p.Location == nil {
		return fmt.Errorf("policy timezone is not set")
	}
	if !p.WorkStart.Before(p.LunchStart) {
		return fmt.Errorf("work start %s must be before lunch start %s", p.WorkStart, p.LunchStart)
	}
	if !p.LunchStart.Before(p.LunchEnd) {
		return fmt.Errorf("lunch start %s must be before lunch end %s", p.LunchStart, p.LunchEnd)
	}
	if !p.LunchEnd.Before(p.WorkEnd) {
		return fmt.Errorf("lunch end %s must be before work end %s", p.LunchEnd, p.WorkEnd)
	}
	return nil
}

// WorkingMinutes returns the schedulable minutes of a day: the working window minus lunch.
func (p WorkingHoursPolicy) WorkingMinutes() int {
	return (p.WorkEnd.Minutes() - p.WorkStart.Minutes()) - (p.LunchEnd.Minutes() - p.LunchStart.Minutes())
}

// WithLocation returns a copy of the policy in loc.
func (p WorkingHoursPolicy) WithLocation(loc *time.Location) WorkingHoursPolicy {
	p.Location = loc
	return p
}

// LoadLocation resolves an IANA timezone name. Empty and "UTC" resolve to UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}
