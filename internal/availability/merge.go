package availability

import (
	"sort"
)

// Merge returns the sorted union of intervals. Overlapping and touching intervals
// coalesce into one block; empty intervals are dropped. Merge is idempotent.
// The input slice is not modified.
func Merge(intervals []TimeInterval) []TimeInterval {
	sorted := make([]TimeInterval, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.IsZero() {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return nil
	}

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]TimeInterval, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// MergeBusy builds the busy timeline shared by the whole group: every readable
// participant's intervals plus the lunch break, merged into one sorted sequence.
// Lunch is ordinary busy time here. Only participants with StatusOK contribute;
// PartialFailures reports the others.
func MergeBusy(perParticipant []ParticipantBusy, lunch TimeInterval) []TimeInterval {
	all := []TimeInterval{lunch}
	for _, p := range perParticipant {
		if p.Status != StatusOK {
			continue
		}
		all = append(all, p.Intervals...)
	}
	return Merge(all)
}

// PartialFailures returns the sorted IDs of participants whose status is not ok.
func PartialFailures(perParticipant []ParticipantBusy) []string {
	failed := make([]string, 0)
	for _, p := range perParticipant {
		if p.Status != StatusOK {
			failed = append(failed, p.ParticipantID)
		}
	}
	sort.Strings(failed)
	return failed
}
