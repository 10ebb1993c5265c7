package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// EventInput represents the input for creating a calendar event
type EventInput struct {
	// ID is optional. When set it must consist of lowercase hex digits and letters a-v.
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []string
}

// EventSummary represents a simplified calendar event
type EventSummary struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Organizer   string
	Status      string
	HTMLLink    string
	Attendees   []AttendeeInfo
}

// AttendeeInfo represents information about an event attendee
type AttendeeInfo struct {
	Email          string
	ResponseStatus string // "needsAction", "declined", "tentative", "accepted"
}

// FreeBusyInfo represents availability information for a calendar.
// Busy periods are kept as returned by the API and parsed by the caller.
type FreeBusyInfo struct {
	Calendar string
	Busy     []BusyPeriod
	Errors   []string
}

// BusyPeriod is a raw busy period of a free/busy response.
type BusyPeriod struct {
	Start string
	End   string
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
		Start:       parseEventTime(event.Start),
		End:         parseEventTime(event.End),
	}

	if event.Organizer != nil {
		summary.Organizer = event.Organizer.Email
	}

	for _, att := range event.Attendees {
		summary.Attendees = append(summary.Attendees, AttendeeInfo{
			Email:          att.Email,
			ResponseStatus: att.ResponseStatus,
		})
	}

	return summary
}

func parseEventTime(dt *calendar.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
	} else if dt.Date != "" {
		if t, err := time.Parse("2006-01-02", dt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}
