package scheduling_tools

import (
	"time"

	"github.com/teemow/meetslot/internal/calendar"
	"github.com/teemow/meetslot/internal/tools/common"
)

// BookingResponse is the JSON document returned by book_meeting_slot.
type BookingResponse struct {
	EventID  string `json:"eventId"`
	Summary  string `json:"summary"`
	Start    string `json:"start"`
	End      string `json:"end"`
	HTMLLink string `json:"htmlLink,omitempty"`
	Existing bool   `json:"existing"`
}

func calendarRequest(participants []string, start, end time.Time, summary string, args map[string]interface{}) calendar.BookingRequest {
	return calendar.BookingRequest{
		Participants: participants,
		Start:        start,
		End:          end,
		Summary:      summary,
		Description:  common.StringArg(args, "description"),
		TimeZone:     common.StringArg(args, "timezone"),
	}
}
