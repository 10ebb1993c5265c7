package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/meetslot/internal/google"
)

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	account string // The account this client is associated with
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// NewClientForAccount creates a Calendar client authenticated with the token
// tokenProvider holds for account.
func NewClientForAccount(ctx context.Context, account string, tokenProvider google.TokenProvider) (*Client, error) {
	httpClient, err := google.GetHTTPClientForAccount(ctx, tokenProvider, account)
	if err != nil {
		return nil, err
	}
	return NewClientWithOptions(ctx, account, option.WithHTTPClient(httpClient))
}

// NewClientWithOptions creates a Calendar client from raw client options.
func NewClientWithOptions(ctx context.Context, account string, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:     svc,
		account: account,
	}, nil
}

// QueryFreeBusy returns the busy periods of calendarIDs between timeMin and timeMax,
// sorted by calendar ID.
func (c *Client) QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusyInfo, error) {
	items := make([]*calendar.FreeBusyRequestItem, len(calendarIDs))
	for i, id := range calendarIDs {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}

	query := &calendar.FreeBusyRequest{
		TimeMin:  timeMin.Format(time.RFC3339),
		TimeMax:  timeMax.Format(time.RFC3339),
		TimeZone: "UTC",
		Items:    items,
	}

	result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	infos := make([]FreeBusyInfo, 0, len(result.Calendars))
	for calID, cal := range result.Calendars {
		info := FreeBusyInfo{
			Calendar: calID,
		}

		for _, busy := range cal.Busy {
			info.Busy = append(info.Busy, BusyPeriod{Start: busy.Start, End: busy.End})
		}

		for _, e := range cal.Errors {
			info.Errors = append(info.Errors, e.Reason)
		}

		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Calendar < infos[j].Calendar })

	return infos, nil
}

// InsertEvent creates a new calendar event and notifies the attendees.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	if input.TimeZone == "" {
		input.TimeZone = "UTC"
	}

	event := &calendar.Event{
		Id:          input.ID,
		Summary:     input.Summary,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
	}

	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	created, err := c.svc.Events.Insert(calendarID, event).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	summary := toEventSummary(created)
	return &summary, nil
}

// GetEvent retrieves a specific event by ID
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*EventSummary, error) {
	event, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	summary := toEventSummary(event)
	return &summary, nil
}
