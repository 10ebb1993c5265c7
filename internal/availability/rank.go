package availability

import (
	"sort"
)

// DefaultTopN is the number of slots returned when no limit is configured.
const DefaultTopN = 3

// Less orders slots by score descending, then by start time ascending.
func Less(a, b AvailabilitySlot) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Start.Before(b.Start)
}

// Rank returns the best n slots. The order is total and does not depend on the
// order of the input, which is left untouched. n <= 0 returns every slot.
func Rank(slots []AvailabilitySlot, n int) []AvailabilitySlot {
	ranked := make([]AvailabilitySlot, len(slots))
	copy(ranked, slots)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
