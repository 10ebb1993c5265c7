package calendar

import (
	"context"
	"fmt"
	"strings"

	"github.com/teemow/meetslot/internal/availability"
	"github.com/teemow/meetslot/internal/instrumentation"
	"github.com/teemow/meetslot/internal/logging"
)

// FreeBusyProvider reads busy intervals through freebusy.query.
// It implements availability.Provider.
type FreeBusyProvider struct {
	client   *Client
	maxTries uint
	logger   logging.Logger
}

// ProviderOption configures a FreeBusyProvider.
type ProviderOption func(*FreeBusyProvider)

// WithMaxTries sets how often a rate-limited query is attempted.
func WithMaxTries(n uint) ProviderOption {
	return func(p *FreeBusyProvider) {
		p.maxTries = n
	}
}

// WithLogger sets the logger used for failed fetches.
func WithLogger(logger logging.Logger) ProviderOption {
	return func(p *FreeBusyProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewFreeBusyProvider creates a provider backed by client.
func NewFreeBusyProvider(client *Client, opts ...ProviderOption) *FreeBusyProvider {
	p := &FreeBusyProvider{
		client:   client,
		maxTries: availability.DefaultRateLimitRetries,
		logger:   logging.DefaultLogger().ForProvider(instrumentation.ProviderGoogle),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements availability.Provider.
func (p *FreeBusyProvider) Name() string {
	return instrumentation.ProviderGoogle
}

// FetchBusy implements availability.Provider.
func (p *FreeBusyProvider) FetchBusy(ctx context.Context, participantID string, window availability.TimeInterval) availability.ParticipantBusy {
	ctx, span := instrumentation.StartProviderSpan(ctx, p.Name(), "freebusy.query")
	defer span.End()

	infos, err := availability.RetryRateLimited(ctx, p.maxTries, func() ([]FreeBusyInfo, error) {
		infos, err := p.client.QueryFreeBusy(ctx, window.Start, window.End, []string{participantID})
		return infos, classifyError(err)
	})
	if err != nil {
		err = classifyError(err)
		instrumentation.SetSpanError(span, err)
		logging.FetchFailed(p.logger, participantID, err)
		return availability.Unknown(participantID, err)
	}

	busy := p.toParticipantBusy(participantID, infos, window)
	instrumentation.SetSpanResult(span, busy.Err)
	return busy
}

func (p *FreeBusyProvider) toParticipantBusy(participantID string, infos []FreeBusyInfo, window availability.TimeInterval) availability.ParticipantBusy {
	var info *FreeBusyInfo
	for i := range infos {
		if strings.EqualFold(infos[i].Calendar, strings.TrimSpace(participantID)) {
			info = &infos[i]
			break
		}
	}
	if info == nil {
		return availability.Unknown(participantID,
			fmt.Errorf("%w: no free/busy data returned", availability.ErrProviderUnavailable))
	}
	if len(info.Errors) > 0 {
		return availability.Unknown(participantID, calendarError(info.Errors[0]))
	}

	ref := window.Start.Location()
	intervals := make([]availability.TimeInterval, 0, len(info.Busy))
	for i, b := range info.Busy {
		iv, err := availability.ParseProviderInterval(b.Start, b.End, "UTC", ref)
		if err != nil {
			return availability.Unknown(participantID,
				fmt.Errorf("%w: busy[%d]: %v", availability.ErrProviderUnavailable, i, err))
		}
		intervals = append(intervals, iv)
	}

	return availability.ParticipantBusy{
		ParticipantID: participantID,
		Intervals:     intervals,
		Status:        availability.StatusOK,
	}
}
