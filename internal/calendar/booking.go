package calendar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teemow/meetslot/internal/availability"
	"github.com/teemow/meetslot/internal/instrumentation"
)

// PrimaryCalendar is the calendar of the authenticated account.
const PrimaryCalendar = "primary"

// BookingRequest describes the event to create for a chosen slot.
type BookingRequest struct {
	Participants []string
	Start        time.Time
	End          time.Time
	Summary      string
	Description  string
	TimeZone     string
}

// Booking is the event that holds a booked slot.
type Booking struct {
	Event EventSummary
	// Existing is true when the slot had already been booked by an earlier call.
	Existing bool
}

// BookingRecorder receives booking outcomes. instrumentation.Metrics implements it.
type BookingRecorder interface {
	RecordBooking(ctx context.Context, result string)
}

// Booker creates calendar events for selected slots.
type Booker struct {
	client     *Client
	calendarID string
	recorder   BookingRecorder
}

// NewBooker creates a Booker writing to calendarID (PrimaryCalendar if empty).
// recorder may be nil.
func NewBooker(client *Client, calendarID string, recorder BookingRecorder) *Booker {
	if calendarID == "" {
		calendarID = PrimaryCalendar
	}
	return &Booker{
		client:     client,
		calendarID: calendarID,
		recorder:   recorder,
	}
}

// EventID derives the event ID of a booking from its participants and instants.
// Participants are compared case-insensitively and in any order.
func EventID(participants []string, start, end time.Time) string {
	normalized := make([]string, 0, len(participants))
	for _, p := range participants {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(p)))
	}
	sort.Strings(normalized)

	h := sha256.New()
	h.Write([]byte(strings.Join(normalized, ",")))
	fmt.Fprintf(h, "|%d|%d", start.Unix(), end.Unix())
	return "ms" + hex.EncodeToString(h.Sum(nil))[:32]
}

func (r BookingRequest) validate() error {
	switch {
	case len(r.Participants) == 0:
		return &availability.RequestError{Field: "participants", Reason: "at least one participant is required"}
	case r.Start.IsZero() || r.End.IsZero():
		return &availability.RequestError{Field: "start", Reason: "start and end are required"}
	case !r.Start.Before(r.End):
		return &availability.RequestError{Field: "end", Reason: "end must be after start"}
	case strings.TrimSpace(r.Summary) == "":
		return &availability.RequestError{Field: "summary", Reason: "summary is required"}
	}
	return nil
}

// Book creates the event for req. Booking the same participants and instants
// again returns the existing event instead of creating a duplicate.
func (b *Booker) Book(ctx context.Context, req BookingRequest) (*Booking, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderGoogle, "events.insert")
	defer span.End()

	id := EventID(req.Participants, req.Start, req.End)
	created, err := b.client.InsertEvent(ctx, b.calendarID, EventInput{
		ID:          id,
		Summary:     req.Summary,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
		TimeZone:    req.TimeZone,
		Attendees:   req.Participants,
	})
	if err == nil {
		instrumentation.SetSpanSuccess(span)
		b.record(ctx, instrumentation.BookingCreated)
		return &Booking{Event: *created}, nil
	}

	if !isConflict(err) {
		instrumentation.SetSpanError(span, err)
		b.record(ctx, instrumentation.BookingError)
		return nil, classifyError(err)
	}

	existing, err := b.client.GetEvent(ctx, b.calendarID, id)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		b.record(ctx, instrumentation.BookingError)
		return nil, classifyError(err)
	}
	instrumentation.SetSpanSuccess(span)
	b.record(ctx, instrumentation.BookingExisting)
	return &Booking{Event: *existing, Existing: true}, nil
}

func (b *Booker) record(ctx context.Context, result string) {
	if b.recorder != nil {
		b.recorder.RecordBooking(ctx, result)
	}
}
