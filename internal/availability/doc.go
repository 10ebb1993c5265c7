// Package availability finds meeting slots that every participant can attend.
//
// A request names participants, a date and a duration. The Engine fetches each
// participant's busy intervals concurrently from the Provider the Registry routes
// them to, merges them with the lunch break into one busy timeline, enumerates the
// free slots of the working window and ranks them with a ScoringTable.
//
// Participants whose calendar could not be read are never treated as free or busy.
// They are left out of the merge and reported in SlotResult.PartialFailures, so
// callers must check ConflictFree before trusting the slots.
//
// All computations after the fetch are pure functions of their inputs and can be
// used on their own:
//
//	merged := availability.MergeBusy(perParticipant, availability.LunchInterval(date, policy))
//	slots := availability.FindSlots(window, merged, 30, availability.DefaultStep)
//	top := availability.Rank(availability.DefaultScoringTable().ScoreSlots(slots, policy.Location), 3)
package availability
