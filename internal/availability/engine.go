package availability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/meetslot/internal/instrumentation"
	"github.com/teemow/meetslot/internal/logging"
)

const (
	// DefaultFetchTimeout bounds all provider fetches of one request.
	DefaultFetchTimeout = 10 * time.Second

	// MaxDurationMinutes is the longest meeting that can be requested at all.
	// Durations that are valid but longer than the working window yield an empty result.
	MaxDurationMinutes = 24 * 60

	// MaxTopN caps the number of slots a single request may ask for.
	MaxTopN = 50

	// DefaultDurationMinutes is used when neither the request nor a preference hint
	// gives a duration.
	DefaultDurationMinutes = 30

	// DefaultMaxConcurrentFetches caps the provider fetches in flight for one request.
	DefaultMaxConcurrentFetches = 8
)

// Request outcomes reported to the Recorder.
const (
	OutcomeOK       = "ok"
	OutcomePartial  = "partial"
	OutcomeEmpty    = "empty"
	OutcomeRejected = "rejected"
	OutcomeCanceled = "canceled"
)

// Phase is a step of a scheduling request.
type Phase int

const (
	PhaseValidating Phase = iota
	PhaseFetchingBusy
	PhaseMerging
	PhaseFinding
	PhaseScoring
	PhaseDone
	PhaseRejected
	PhaseEmpty
)

func (p Phase) String() string {
	switch p {
	case PhaseValidating:
		return "validating"
	case PhaseFetchingBusy:
		return "fetching_busy"
	case PhaseMerging:
		return "merging"
	case PhaseFinding:
		return "finding"
	case PhaseScoring:
		return "scoring"
	case PhaseDone:
		return "done"
	case PhaseRejected:
		return "rejected"
	case PhaseEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Recorder receives engine measurements. instrumentation.Metrics implements it.
type Recorder interface {
	RecordSchedulingRequest(ctx context.Context, outcome string, duration time.Duration, candidates int)
	RecordProviderFetch(ctx context.Context, provider, status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordSchedulingRequest(context.Context, string, time.Duration, int) {}
func (nopRecorder) RecordProviderFetch(context.Context, string, string, time.Duration)  {}

// Engine resolves multi-party availability. It holds configuration only and is
// safe for concurrent use; each FindSlots call is independent.
type Engine struct {
	registry     *Registry
	topN         int
	step         time.Duration
	scoring      ScoringTable
	fetchTimeout time.Duration
	maxFetches   int
	duration     int
	policy       WorkingHoursPolicy
	logger       *slog.Logger
	metrics      Recorder
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopN sets how many ranked slots are returned.
func WithTopN(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topN = min(n, MaxTopN)
		}
	}
}

// WithStep sets the granularity of candidate start times.
func WithStep(step time.Duration) Option {
	return func(e *Engine) {
		if step > 0 {
			e.step = step
		}
	}
}

// WithScoring replaces the default scoring table.
func WithScoring(table ScoringTable) Option {
	return func(e *Engine) {
		e.scoring = table
	}
}

// WithFetchTimeout sets the per-request deadline for provider fetches.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// WithMaxConcurrentFetches limits how many participants are fetched at once.
func WithMaxConcurrentFetches(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxFetches = n
		}
	}
}

// WithDefaultDuration sets the meeting length of requests that carry neither a
// duration nor a preference hint.
func WithDefaultDuration(minutes int) Option {
	return func(e *Engine) {
		if minutes > 0 {
			e.duration = minutes
		}
	}
}

// WithDefaultPolicy sets the policy used by requests that carry none.
func WithDefaultPolicy(p WorkingHoursPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// WithClock overrides the clock used for timing measurements.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine that routes participants through registry.
func NewEngine(registry *Registry, opts ...Option) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	e := &Engine{
		registry:     registry,
		topN:         DefaultTopN,
		step:         DefaultStep,
		scoring:      DefaultScoringTable(),
		fetchTimeout: DefaultFetchTimeout,
		maxFetches:   DefaultMaxConcurrentFetches,
		duration:     DefaultDurationMinutes,
		policy:       DefaultPolicy(),
		logger:       slog.Default(),
		metrics:      nopRecorder{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the policy applied to requests without one.
func (e *Engine) Policy() WorkingHoursPolicy {
	return e.policy
}

// Backends lists the calendar backends the engine routes to.
func (e *Engine) Backends() []Backend {
	return e.registry.Backends()
}

// plan is a validated request.
type plan struct {
	participants []string
	date         Date
	duration     int
	topN         int
	policy       WorkingHoursPolicy
}

func (e *Engine) validate(req SchedulingRequest) (plan, error) {
	p := plan{
		participants: req.UniqueParticipants(),
		date:         req.Date,
		duration:     req.EffectiveDuration(),
		topN:         e.topN,
		policy:       e.policy,
	}
	if req.Policy != nil {
		p.policy = *req.Policy
	}
	if p.duration == 0 {
		p.duration = e.duration
	}

	if len(p.participants) == 0 {
		return plan{}, invalid("participants", "at least one participant is required")
	}
	if !p.date.Valid() {
		return plan{}, invalid("date", "%s is not a valid calendar date", p.date)
	}
	if p.duration <= 0 {
		return plan{}, invalid("durationMinutes", "must be positive, got %d", p.duration)
	}
	if p.duration > MaxDurationMinutes {
		return plan{}, invalid("durationMinutes", "%d exceeds the maximum of %d", p.duration, MaxDurationMinutes)
	}
	if req.MaxResults < 0 || req.MaxResults > MaxTopN {
		return plan{}, invalid("maxResults", "must be between 1 and %d, got %d", MaxTopN, req.MaxResults)
	}
	if req.MaxResults > 0 {
		p.topN = req.MaxResults
	}
	if err := p.policy.Validate(); err != nil {
		return plan{}, invalid("policy", "%v", err)
	}
	if err := e.scoring.Validate(); err != nil {
		return plan{}, invalid("scoring", "%v", err)
	}
	return p, nil
}

// Validate checks a request without contacting any provider.
func (e *Engine) Validate(req SchedulingRequest) error {
	_, err := e.validate(req)
	return err
}

// FindSlots computes the ranked candidate slots for req.
//
// Invalid requests return a *RequestError and no provider is contacted. A valid
// request that yields no candidate returns a result with Empty set. If ctx is
// canceled before the fetches complete, FindSlots returns the cancellation as an
// error and no result.
func (e *Engine) FindSlots(ctx context.Context, req SchedulingRequest) (*SlotResult, error) {
	started := e.now()
	requestID := uuid.NewString()
	logger := logging.WithRequestID(e.logger, requestID)

	ctx, span := instrumentation.StartSchedulingSpan(ctx, "availability.find_slots", requestID, len(req.Participants))
	defer span.End()

	enter := func(p Phase) {
		instrumentation.AddSpanEvent(span, p.String())
		logger.Debug("scheduling phase", logging.Phase(p.String()))
	}
	finish := func(outcome string, candidates int) {
		instrumentation.SetSchedulingOutcome(span, outcome, candidates)
		e.metrics.RecordSchedulingRequest(ctx, outcome, e.now().Sub(started), candidates)
	}

	enter(PhaseValidating)
	p, err := e.validate(req)
	if err != nil {
		enter(PhaseRejected)
		logger.Info("scheduling request rejected", logging.Err(err))
		instrumentation.SetSpanError(span, err)
		finish(OutcomeRejected, 0)
		return nil, err
	}

	result := &SlotResult{
		Slots:           []AvailabilitySlot{},
		PartialFailures: []string{},
		RequestID:       requestID,
	}

	window, workday := WorkingWindow(p.date, p.policy)
	result.Window = window
	if !workday || p.duration > p.policy.WorkingMinutes() {
		enter(PhaseEmpty)
		logger.Info("no slots possible for request",
			slog.String("date", p.date.String()),
			slog.Bool("workday", workday),
			slog.Int("duration_minutes", p.duration))
		result.Empty = true
		instrumentation.SetSpanSuccess(span)
		finish(OutcomeEmpty, 0)
		return result, nil
	}

	enter(PhaseFetchingBusy)
	busy, err := e.fetchAll(ctx, p.participants, window, logger)
	if err != nil {
		logger.Info("scheduling request canceled", logging.Err(err))
		instrumentation.SetSpanError(span, err)
		finish(OutcomeCanceled, 0)
		return nil, err
	}

	enter(PhaseMerging)
	merged := MergeBusy(busy, LunchInterval(p.date, p.policy))
	result.PartialFailures = PartialFailures(busy)

	enter(PhaseFinding)
	candidates := FindSlots(window, merged, p.duration, e.step)
	if len(candidates) == 0 {
		enter(PhaseEmpty)
		result.Empty = true
		logger.Info("no common free slot found",
			slog.Int("participants", len(p.participants)),
			slog.Int("partial_failures", len(result.PartialFailures)))
		instrumentation.SetSpanSuccess(span)
		finish(OutcomeEmpty, 0)
		return result, nil
	}

	enter(PhaseScoring)
	result.Slots = Rank(e.scoring.ScoreSlots(candidates, p.policy.Location), p.topN)

	enter(PhaseDone)
	outcome := OutcomeOK
	if !result.ConflictFree() {
		outcome = OutcomePartial
		logger.Warn("slots computed without every participant's calendar",
			slog.Int("partial_failures", len(result.PartialFailures)))
	}
	logger.Info("scheduling request completed",
		logging.Status(outcome),
		slog.Int("candidates", len(candidates)),
		slog.Int("returned", len(result.Slots)),
		logging.Duration(e.now().Sub(started)))
	instrumentation.SetSpanSuccess(span)
	finish(outcome, len(candidates))
	return result, nil
}

// QueryBusy fetches the normalized busy intervals of every participant for the
// working window of date without computing slots. Participants are returned in
// request order. On an excluded date the window is zero and no provider is called.
func (e *Engine) QueryBusy(ctx context.Context, participants []string, date Date, policy *WorkingHoursPolicy) ([]ParticipantBusy, TimeInterval, error) {
	req := SchedulingRequest{Participants: participants, Date: date, DurationMinutes: 1, Policy: policy}
	p, err := e.validate(req)
	if err != nil {
		return nil, TimeInterval{}, err
	}

	window, workday := WorkingWindow(p.date, p.policy)
	if !workday {
		return []ParticipantBusy{}, TimeInterval{}, nil
	}

	ctx, span := instrumentation.StartSchedulingSpan(ctx, "availability.query_busy", "", len(p.participants))
	defer span.End()

	busy, err := e.fetchAll(ctx, p.participants, window, e.logger)
	instrumentation.SetSpanResult(span, err)
	if err != nil {
		return nil, TimeInterval{}, err
	}
	return busy, window, nil
}

// fetchAll queries participants concurrently, at most maxFetches at a time,
// under the fetch deadline. Each goroutine writes only its own element of the
// result slice.
func (e *Engine) fetchAll(ctx context.Context, participants []string, window TimeInterval, logger *slog.Logger) ([]ParticipantBusy, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	results := make([]ParticipantBusy, len(participants))
	g, gctx := errgroup.WithContext(fetchCtx)
	g.SetLimit(e.maxFetches)
	for i, id := range participants {
		g.Go(func() error {
			results[i] = e.fetchOne(gctx, id, window, logger)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scheduling request canceled: %w", err)
	}
	return results, nil
}

// fetchOne runs a single provider fetch and stops waiting for it once ctx is done,
// so a provider that ignores cancellation cannot hold up the request.
func (e *Engine) fetchOne(ctx context.Context, participantID string, window TimeInterval, logger *slog.Logger) ParticipantBusy {
	provider, ok := e.registry.Lookup(participantID)
	if !ok {
		logger.Warn("no calendar provider for participant", logging.Participant(participantID))
		e.metrics.RecordProviderFetch(ctx, "none", StatusUnknown.String(), 0)
		return Unknown(participantID, fmt.Errorf("%w: no provider routes this participant", ErrProviderUnavailable))
	}

	started := e.now()
	done := make(chan ParticipantBusy, 1)
	go func() {
		done <- provider.FetchBusy(ctx, participantID, window)
	}()

	var busy ParticipantBusy
	select {
	case busy = <-done:
	case <-ctx.Done():
		busy = Unknown(participantID, fmt.Errorf("%w: %v", ErrDeadlineExceeded, ctx.Err()))
	}
	busy = sanitize(participantID, busy, window)

	elapsed := e.now().Sub(started)
	e.metrics.RecordProviderFetch(ctx, provider.Name(), busy.Status.String(), elapsed)
	logger.Debug("busy data fetched",
		logging.Provider(provider.Name()),
		logging.Participant(participantID),
		logging.Status(busy.Status.String()),
		slog.Int("intervals", len(busy.Intervals)),
		logging.Duration(elapsed),
		logging.Err(busy.Err))
	return busy
}

// sanitize expresses a provider answer in the window's location, drops empty intervals
// and ensures the participant ID matches the request.
func sanitize(participantID string, busy ParticipantBusy, window TimeInterval) ParticipantBusy {
	busy.ParticipantID = participantID
	if busy.Status == StatusUnknown {
		busy.Intervals = nil
		return busy
	}
	ref := window.Start.Location()
	clean := make([]TimeInterval, 0, len(busy.Intervals))
	for _, iv := range busy.Intervals {
		if iv.IsZero() {
			continue
		}
		clean = append(clean, Normalize(iv, ref))
	}
	busy.Intervals = clean
	return busy
}
