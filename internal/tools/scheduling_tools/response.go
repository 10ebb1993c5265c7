package scheduling_tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/teemow/meetslot/internal/availability"
)

// PartialFailureWarning is attached to results computed without some participants' calendars.
const PartialFailureWarning = "busy data could not be read for some participants; these slots may conflict with their calendars"

// SlotView is a slot as returned to clients.
type SlotView struct {
	Start           string  `json:"start"`
	End             string  `json:"end"`
	DurationMinutes int     `json:"durationMinutes"`
	Score           float64 `json:"score"`
}

// SlotsResponse is the JSON document returned by find_meeting_slots and `meetslot find --output json`.
type SlotsResponse struct {
	RequestID       string     `json:"requestId"`
	Date            string     `json:"date"`
	Timezone        string     `json:"timezone"`
	Slots           []SlotView `json:"slots"`
	Empty           bool       `json:"empty"`
	PartialFailures []string   `json:"partialFailures"`
	Warning         string     `json:"warning,omitempty"`
}

// NewSlotsResponse renders result with instants formatted in loc.
func NewSlotsResponse(result *availability.SlotResult, date availability.Date, loc *time.Location) SlotsResponse {
	resp := SlotsResponse{
		RequestID:       result.RequestID,
		Date:            date.String(),
		Timezone:        loc.String(),
		Slots:           make([]SlotView, 0, len(result.Slots)),
		Empty:           result.Empty,
		PartialFailures: append([]string{}, result.PartialFailures...),
	}
	for _, s := range result.Slots {
		resp.Slots = append(resp.Slots, SlotView{
			Start:           s.Start.In(loc).Format(time.RFC3339),
			End:             s.End.In(loc).Format(time.RFC3339),
			DurationMinutes: s.DurationMinutes,
			Score:           s.Score,
		})
	}
	if !result.ConflictFree() {
		resp.Warning = PartialFailureWarning
	}
	return resp
}

// Text renders the response for humans.
func (r SlotsResponse) Text() string {
	var b strings.Builder
	switch {
	case r.Empty:
		fmt.Fprintf(&b, "No common free slot on %s (%s).\n", r.Date, r.Timezone)
	default:
		fmt.Fprintf(&b, "Found %d slot(s) on %s (%s):\n\n", len(r.Slots), r.Date, r.Timezone)
		for i, s := range r.Slots {
			start, _ := time.Parse(time.RFC3339, s.Start)
			end, _ := time.Parse(time.RFC3339, s.End)
			fmt.Fprintf(&b, "%d. %s - %s (%d min, score %.2f)\n",
				i+1, start.Format("15:04"), end.Format("15:04"), s.DurationMinutes, s.Score)
		}
	}
	if len(r.PartialFailures) > 0 {
		fmt.Fprintf(&b, "\nWarning: %s: %s\n", PartialFailureWarning, strings.Join(r.PartialFailures, ", "))
	}
	return b.String()
}

// IntervalView is a busy interval as returned to clients.
type IntervalView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ParticipantBusyView is one participant's entry in a query_freebusy response.
type ParticipantBusyView struct {
	Participant string         `json:"participant"`
	Status      string         `json:"status"`
	Busy        []IntervalView `json:"busy"`
	Error       string         `json:"error,omitempty"`
}

// FreeBusyResponse is the JSON document returned by query_freebusy.
type FreeBusyResponse struct {
	Date         string                `json:"date"`
	Timezone     string                `json:"timezone"`
	Workday      bool                  `json:"workday"`
	Window       *IntervalView         `json:"window,omitempty"`
	Participants []ParticipantBusyView `json:"participants"`
	Warning      string                `json:"warning,omitempty"`
}

// NewFreeBusyResponse renders the busy data of a working window. A zero window
// means the date was excluded by the policy.
func NewFreeBusyResponse(busy []availability.ParticipantBusy, window availability.TimeInterval, date availability.Date, loc *time.Location) FreeBusyResponse {
	resp := FreeBusyResponse{
		Date:         date.String(),
		Timezone:     loc.String(),
		Workday:      !window.IsZero(),
		Participants: make([]ParticipantBusyView, 0, len(busy)),
	}
	if resp.Workday {
		w := intervalView(window, loc)
		resp.Window = &w
	}
	for _, pb := range busy {
		view := ParticipantBusyView{
			Participant: pb.ParticipantID,
			Status:      pb.Status.String(),
			Busy:        make([]IntervalView, 0, len(pb.Intervals)),
		}
		for _, iv := range pb.Intervals {
			view.Busy = append(view.Busy, intervalView(iv, loc))
		}
		if pb.Err != nil {
			view.Error = pb.Err.Error()
		}
		if !pb.Reliable() {
			resp.Warning = "some participants' busy data is unknown and must not be read as free"
		}
		resp.Participants = append(resp.Participants, view)
	}
	return resp
}

func intervalView(iv availability.TimeInterval, loc *time.Location) IntervalView {
	return IntervalView{
		Start: iv.Start.In(loc).Format(time.RFC3339),
		End:   iv.End.In(loc).Format(time.RFC3339),
	}
}
