package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/teemow/meetslot/internal/availability"
	"github.com/teemow/meetslot/internal/instrumentation"
	"github.com/teemow/meetslot/internal/logging"
)

const (
	// DefaultBaseURL is the Graph v1.0 endpoint.
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	// DefaultScope requests the application permissions granted to the app registration.
	DefaultScope = "https://graph.microsoft.com/.default"

	tokenURLFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"

	// availabilityViewInterval is required by getSchedule; only scheduleItems are used.
	availabilityViewInterval = 30

	maxErrorBody = 4 << 10
)

// Config holds the app registration used for client credentials authentication.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
}

// Validate checks that all credentials are present.
func (c Config) Validate() error {
	var missing []string
	if c.TenantID == "" {
		missing = append(missing, "tenant ID")
	}
	if c.ClientID == "" {
		missing = append(missing, "client ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("graph configuration incomplete: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Provider fetches busy intervals from Microsoft Graph.
type Provider struct {
	httpClient *http.Client
	baseURL    string
	maxTries   uint
	logger     logging.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithMaxTries sets how often a rate-limited request is attempted.
func WithMaxTries(n uint) Option {
	return func(p *Provider) {
		p.maxTries = n
	}
}

// WithLogger sets the logger used for failed fetches.
func WithLogger(logger logging.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Provider authenticating with the client credentials in cfg.
func New(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf(tokenURLFormat, url.PathEscape(cfg.TenantID)),
		Scopes:       []string{DefaultScope},
	}
	return NewWithHTTPClient(cc.Client(ctx), cfg.BaseURL, opts...), nil
}

// NewWithHTTPClient creates a Provider that sends requests with httpClient,
// which must already authenticate them.
func NewWithHTTPClient(httpClient *http.Client, baseURL string, opts ...Option) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	traced := *httpClient
	traced.Transport = otelhttp.NewTransport(httpClient.Transport)

	p := &Provider{
		httpClient: &traced,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxTries:   availability.DefaultRateLimitRetries,
		logger:     logging.DefaultLogger().ForProvider(instrumentation.ProviderGraph),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements availability.Provider.
func (p *Provider) Name() string {
	return instrumentation.ProviderGraph
}

type dateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type scheduleRequest struct {
	Schedules                []string         `json:"schedules"`
	StartTime                dateTimeTimeZone `json:"startTime"`
	EndTime                  dateTimeTimeZone `json:"endTime"`
	AvailabilityViewInterval int              `json:"availabilityViewInterval"`
}

type scheduleItem struct {
	Status string           `json:"status"`
	Start  dateTimeTimeZone `json:"start"`
	End    dateTimeTimeZone `json:"end"`
}

type scheduleError struct {
	Message      string `json:"message"`
	ResponseCode string `json:"responseCode"`
}

type scheduleInformation struct {
	ScheduleID    string         `json:"scheduleId"`
	ScheduleItems []scheduleItem `json:"scheduleItems"`
	Error         *scheduleError `json:"error"`
}

type scheduleResponse struct {
	Value []scheduleInformation `json:"value"`
}

// busyStatuses are the free/busy states that block a slot.
var busyStatuses = map[string]bool{
	"busy":      true,
	"tentative": true,
	"oof":       true,
}

// FetchBusy implements availability.Provider.
func (p *Provider) FetchBusy(ctx context.Context, participantID string, window availability.TimeInterval) availability.ParticipantBusy {
	ctx, span := instrumentation.StartProviderSpan(ctx, p.Name(), "getSchedule")
	defer span.End()

	info, err := availability.RetryRateLimited(ctx, p.maxTries, func() (*scheduleInformation, error) {
		return p.getSchedule(ctx, participantID, window)
	})
	if err != nil {
		err = classifyError(err)
		instrumentation.SetSpanError(span, err)
		logging.FetchFailed(p.logger, participantID, err)
		return availability.Unknown(participantID, err)
	}

	busy := toParticipantBusy(participantID, info, window)
	instrumentation.SetSpanResult(span, busy.Err)
	return busy
}

func (p *Provider) getSchedule(ctx context.Context, participantID string, window availability.TimeInterval) (*scheduleInformation, error) {
	body, err := json.Marshal(scheduleRequest{
		Schedules:                []string{participantID},
		StartTime:                utcDateTime(window.Start),
		EndTime:                  utcDateTime(window.End),
		AvailabilityViewInterval: availabilityViewInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode getSchedule request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/calendar/getSchedule", p.baseURL, url.PathEscape(participantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create getSchedule request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, statusError(resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out scheduleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: failed to decode getSchedule response: %v", availability.ErrProviderUnavailable, err)
	}

	for i := range out.Value {
		if strings.EqualFold(out.Value[i].ScheduleID, strings.TrimSpace(participantID)) {
			return &out.Value[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no schedule returned for participant", availability.ErrProviderUnavailable)
}

func utcDateTime(t time.Time) dateTimeTimeZone {
	return dateTimeTimeZone{
		DateTime: t.UTC().Format("2006-01-02T15:04:05"),
		TimeZone: "UTC",
	}
}

func toParticipantBusy(participantID string, info *scheduleInformation, window availability.TimeInterval) availability.ParticipantBusy {
	if info.Error != nil {
		return availability.Unknown(participantID, scheduleErr(info.Error))
	}

	ref := window.Start.Location()
	var intervals []availability.TimeInterval
	for i, item := range info.ScheduleItems {
		if !busyStatuses[strings.ToLower(item.Status)] {
			continue
		}
		iv, err := availability.ParseProviderInterval(item.Start.DateTime, item.End.DateTime, item.Start.TimeZone, ref)
		if err != nil {
			return availability.Unknown(participantID,
				fmt.Errorf("%w: scheduleItems[%d]: %v", availability.ErrProviderUnavailable, i, err))
		}
		intervals = append(intervals, iv)
	}

	return availability.ParticipantBusy{
		ParticipantID: participantID,
		Intervals:     intervals,
		Status:        availability.StatusOK,
	}
}

func statusError(code int, body string) error {
	switch code {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", availability.ErrRateLimited, code)
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d: %s", availability.ErrProviderDeniedAccess, code, body)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", availability.ErrProviderUnavailable, code, body)
	}
}

func scheduleErr(e *scheduleError) error {
	code := strings.ToLower(e.ResponseCode)
	if strings.Contains(code, "notfound") || strings.Contains(code, "accessdenied") {
		return fmt.Errorf("%w: %s", availability.ErrProviderDeniedAccess, e.ResponseCode)
	}
	return fmt.Errorf("%w: %s: %s", availability.ErrProviderUnavailable, e.ResponseCode, e.Message)
}

// classifyError leaves errors carrying an availability kind unchanged and maps
// everything else to ErrDeadlineExceeded or ErrProviderUnavailable.
func classifyError(err error) error {
	for _, known := range []error{
		availability.ErrRateLimited,
		availability.ErrProviderDeniedAccess,
		availability.ErrProviderUnavailable,
		availability.ErrDeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", availability.ErrDeadlineExceeded, err)
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: token request failed: %v", availability.ErrProviderDeniedAccess, err)
	}
	return fmt.Errorf("%w: %v", availability.ErrProviderUnavailable, err)
}
