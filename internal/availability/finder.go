package availability

import (
	"time"
)

// DefaultStep is the granularity at which slot start times are enumerated.
const DefaultStep = 30 * time.Minute

// FreeIntervals returns the maximal free intervals of window given a merged busy
// timeline. Busy blocks that extend past the window are clipped to it.
func FreeIntervals(window TimeInterval, mergedBusy []TimeInterval) []TimeInterval {
	if window.IsZero() {
		return nil
	}

	var free []TimeInterval
	cursor := window.Start
	for _, block := range mergedBusy {
		if !block.End.After(cursor) {
			continue
		}
		if !block.Start.Before(window.End) {
			break
		}
		if block.Start.After(cursor) {
			free = append(free, TimeInterval{Start: cursor, End: block.Start})
		}
		cursor = block.End
	}
	if cursor.Before(window.End) {
		free = append(free, TimeInterval{Start: cursor, End: window.End})
	}
	return free
}

// FindSlots enumerates every slot of durationMinutes inside the free time of window.
// Start times advance from the beginning of each free interval in multiples of step;
// the last start is the latest one whose slot still ends within the interval.
// The returned slots are unscored.
func FindSlots(window TimeInterval, mergedBusy []TimeInterval, durationMinutes int, step time.Duration) []AvailabilitySlot {
	if durationMinutes <= 0 {
		return nil
	}
	if step <= 0 {
		step = DefaultStep
	}
	duration := time.Duration(durationMinutes) * time.Minute

	var slots []AvailabilitySlot
	for _, free := range FreeIntervals(window, mergedBusy) {
		if free.Duration() < duration {
			continue
		}
		for start := free.Start; !start.Add(duration).After(free.End); start = start.Add(step) {
			slots = append(slots, AvailabilitySlot{
				Start:           start,
				End:             start.Add(duration),
				DurationMinutes: durationMinutes,
			})
		}
	}
	return slots
}
