package availability

import (
	"time"
)

// testZone is a fixed +03:00 zone so tests do not depend on the tz database.
var testZone = time.FixedZone("TRT", 3*60*60)

// monday is a working day; saturday is excluded by the default policy.
var (
	monday   = Date{Year: 2026, Month: time.October, Day: 19}
	saturday = Date{Year: 2026, Month: time.October, Day: 17}
)

func testPolicy() WorkingHoursPolicy {
	return DefaultPolicy().WithLocation(testZone)
}

// at returns h:m on monday in testZone.
func at(h, m int) time.Time {
	return monday.At(Clock(h, m), testZone)
}

func span(h1, m1, h2, m2 int) TimeInterval {
	return TimeInterval{Start: at(h1, m1), End: at(h2, m2)}
}

func slotStarts(slots []AvailabilitySlot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.In(testZone).Format("15:04")
	}
	return out
}
