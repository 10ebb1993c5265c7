package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/teemow/meetslot/internal/availability"
)

var testZone = time.FixedZone("TRT", 3*60*60)

func testWindow() availability.TimeInterval {
	return availability.TimeInterval{
		Start: time.Date(2026, 10, 19, 9, 0, 0, 0, testZone),
		End:   time.Date(2026, 10, 19, 18, 0, 0, 0, testZone),
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClientWithOptions(context.Background(), "test",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func apiError(code int, reason string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": reason,
			"errors":  []map[string]string{{"reason": reason, "message": reason}},
		},
	}
}

func freeBusyResponse(calendars map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"kind": "calendar#freeBusy", "calendars": calendars}
}

func TestFreeBusyProvider_FetchBusy(t *testing.T) {
	var request struct {
		TimeMin string `json:"timeMin"`
		Items   []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/freeBusy"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		writeJSON(w, http.StatusOK, freeBusyResponse(map[string]interface{}{
			"alice@example.com": map[string]interface{}{
				"busy": []map[string]string{
					{"start": "2026-10-19T07:00:00Z", "end": "2026-10-19T08:00:00Z"},
					{"start": "2026-10-19T14:00:00+03:00", "end": "2026-10-19T15:30:00+03:00"},
				},
			},
		}))
	})

	p := NewFreeBusyProvider(client)
	busy := p.FetchBusy(context.Background(), "alice@example.com", testWindow())

	require.Equal(t, availability.StatusOK, busy.Status, "err: %v", busy.Err)
	require.Len(t, busy.Intervals, 2)
	assert.True(t, busy.Intervals[0].Start.Equal(time.Date(2026, 10, 19, 10, 0, 0, 0, testZone)))
	assert.Equal(t, testZone, busy.Intervals[0].Start.Location(), "intervals are expressed in the window location")
	assert.True(t, busy.Intervals[1].End.Equal(time.Date(2026, 10, 19, 15, 30, 0, 0, testZone)))

	require.Len(t, request.Items, 1)
	assert.Equal(t, "alice@example.com", request.Items[0].ID)
	assert.Equal(t, "2026-10-19T09:00:00+03:00", request.TimeMin)
	assert.Equal(t, "google", p.Name())
}

func TestFreeBusyProvider_CalendarErrors(t *testing.T) {
	tests := []struct {
		reason string
		want   error
	}{
		{"notFound", availability.ErrProviderDeniedAccess},
		{"forbidden", availability.ErrProviderDeniedAccess},
		{"internalError", availability.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, freeBusyResponse(map[string]interface{}{
					"bob@example.com": map[string]interface{}{
						"errors": []map[string]string{{"domain": "calendar", "reason": tt.reason}},
					},
				}))
			})

			busy := NewFreeBusyProvider(client).FetchBusy(context.Background(), "bob@example.com", testWindow())
			assert.Equal(t, availability.StatusUnknown, busy.Status)
			assert.ErrorIs(t, busy.Err, tt.want)
			assert.Empty(t, busy.Intervals)
		})
	}
}

func TestFreeBusyProvider_MissingCalendar(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, freeBusyResponse(map[string]interface{}{}))
	})

	busy := NewFreeBusyProvider(client).FetchBusy(context.Background(), "carol@example.com", testWindow())
	assert.Equal(t, availability.StatusUnknown, busy.Status)
	assert.ErrorIs(t, busy.Err, availability.ErrProviderUnavailable)
}

func TestFreeBusyProvider_HTTPErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reason string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, "authError", availability.ErrProviderDeniedAccess},
		{"forbidden", http.StatusForbidden, "forbidden", availability.ErrProviderDeniedAccess},
		{"not found", http.StatusNotFound, "notFound", availability.ErrProviderDeniedAccess},
		{"server error", http.StatusInternalServerError, "backendError", availability.ErrProviderUnavailable},
		{"rate limited", http.StatusTooManyRequests, "rateLimitExceeded", availability.ErrRateLimited},
		{"quota", http.StatusForbidden, "userRateLimitExceeded", availability.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeJSON(w, tt.status, apiError(tt.status, tt.reason))
			})

			busy := NewFreeBusyProvider(client, WithMaxTries(2)).
				FetchBusy(context.Background(), "dave@example.com", testWindow())
			assert.Equal(t, availability.StatusUnknown, busy.Status)
			assert.ErrorIs(t, busy.Err, tt.want)

			if tt.want == availability.ErrRateLimited {
				assert.Equal(t, int32(2), calls.Load(), "rate limited queries are retried")
			} else {
				assert.Equal(t, int32(1), calls.Load())
			}
		})
	}
}

func TestFreeBusyProvider_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusTooManyRequests, apiError(http.StatusTooManyRequests, "rateLimitExceeded"))
			return
		}
		writeJSON(w, http.StatusOK, freeBusyResponse(map[string]interface{}{
			"erin@example.com": map[string]interface{}{"busy": []map[string]string{}},
		}))
	})

	busy := NewFreeBusyProvider(client).FetchBusy(context.Background(), "erin@example.com", testWindow())
	assert.Equal(t, availability.StatusOK, busy.Status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFreeBusyProvider_Canceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, freeBusyResponse(map[string]interface{}{}))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	busy := NewFreeBusyProvider(client).FetchBusy(ctx, "frank@example.com", testWindow())
	assert.Equal(t, availability.StatusUnknown, busy.Status)
	assert.ErrorIs(t, busy.Err, availability.ErrDeadlineExceeded)
}

func TestEventID(t *testing.T) {
	start := time.Date(2026, 10, 19, 14, 0, 0, 0, testZone)
	end := start.Add(30 * time.Minute)

	a := EventID([]string{"alice@example.com", "Bob@example.com"}, start, end)
	b := EventID([]string{" bob@example.com", "alice@example.com"}, start.UTC(), end.UTC())
	assert.Equal(t, a, b, "participant order, case and time zone do not change the ID")

	assert.NotEqual(t, a, EventID([]string{"alice@example.com"}, start, end))
	assert.NotEqual(t, a, EventID([]string{"alice@example.com", "bob@example.com"}, start, end.Add(time.Minute)))

	for _, r := range a {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'v'), "invalid event ID character %q", r)
	}
}

type fakeBookingRecorder struct {
	results []string
}

func (f *fakeBookingRecorder) RecordBooking(_ context.Context, result string) {
	f.results = append(f.results, result)
}

func testBooking() BookingRequest {
	start := time.Date(2026, 10, 19, 14, 0, 0, 0, testZone)
	return BookingRequest{
		Participants: []string{"alice@example.com", "bob@example.com"},
		Start:        start,
		End:          start.Add(30 * time.Minute),
		Summary:      "Planning",
		TimeZone:     "Europe/Istanbul",
	}
}

func eventJSON(id string) map[string]interface{} {
	return map[string]interface{}{
		"id":       id,
		"summary":  "Planning",
		"status":   "confirmed",
		"htmlLink": "https://calendar.example/" + id,
		"start":    map[string]string{"dateTime": "2026-10-19T14:00:00+03:00"},
		"end":      map[string]string{"dateTime": "2026-10-19T14:30:00+03:00"},
		"attendees": []map[string]string{
			{"email": "alice@example.com", "responseStatus": "needsAction"},
		},
	}
}

func TestBooker_Book(t *testing.T) {
	req := testBooking()
	wantID := EventID(req.Participants, req.Start, req.End)

	var inserted struct {
		ID        string `json:"id"`
		Attendees []struct {
			Email string `json:"email"`
		} `json:"attendees"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/calendars/primary/events"), r.URL.Path)
		assert.Equal(t, "all", r.URL.Query().Get("sendUpdates"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&inserted))
		writeJSON(w, http.StatusOK, eventJSON(inserted.ID))
	})

	recorder := &fakeBookingRecorder{}
	booking, err := NewBooker(client, "", recorder).Book(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, booking.Existing)
	assert.Equal(t, wantID, inserted.ID)
	assert.Len(t, inserted.Attendees, 2)
	assert.Equal(t, wantID, booking.Event.ID)
	assert.True(t, booking.Event.Start.Equal(req.Start))
	assert.Equal(t, []string{"created"}, recorder.results)
}

func TestBooker_BookExisting(t *testing.T) {
	req := testBooking()
	wantID := EventID(req.Participants, req.Start, req.End)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			writeJSON(w, http.StatusConflict, apiError(http.StatusConflict, "duplicate"))
		case http.MethodGet:
			assert.True(t, strings.HasSuffix(r.URL.Path, "/events/"+wantID), r.URL.Path)
			writeJSON(w, http.StatusOK, eventJSON(wantID))
		}
	})

	recorder := &fakeBookingRecorder{}
	booking, err := NewBooker(client, PrimaryCalendar, recorder).Book(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, booking.Existing)
	assert.Equal(t, wantID, booking.Event.ID)
	assert.Equal(t, []string{"existing"}, recorder.results)
}

func TestBooker_BookFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, apiError(http.StatusForbidden, "forbidden"))
	})

	recorder := &fakeBookingRecorder{}
	_, err := NewBooker(client, "", recorder).Book(context.Background(), testBooking())
	assert.ErrorIs(t, err, availability.ErrProviderDeniedAccess)
	assert.Equal(t, []string{"error"}, recorder.results)
}

func TestBooker_Validation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected API call %s %s", r.Method, r.URL.Path)
	})
	booker := NewBooker(client, "", nil)

	tests := map[string]func(*BookingRequest){
		"no participants": func(r *BookingRequest) { r.Participants = nil },
		"no start":        func(r *BookingRequest) { r.Start = time.Time{} },
		"end before start": func(r *BookingRequest) {
			r.End = r.Start.Add(-time.Minute)
		},
		"no summary": func(r *BookingRequest) { r.Summary = " " },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := testBooking()
			mutate(&req)
			_, err := booker.Book(context.Background(), req)
			assert.ErrorIs(t, err, availability.ErrInvalidRequest)
		})
	}
}

func TestToEventSummary_Nil(t *testing.T) {
	assert.Equal(t, EventSummary{}, toEventSummary(nil))
}
