package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// DefaultRateLimitRetries is the number of attempts an adapter makes for a
// rate-limited call before reporting the participant as unknown.
const DefaultRateLimitRetries = 4

// Provider fetches busy intervals for one participant from one calendar backend.
//
// Implementations must honour ctx cancellation and must never report a participant
// as free or busy when the backend failed: failures are returned as a
// ParticipantBusy with StatusUnknown and a non-nil Err.
type Provider interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// FetchBusy returns the participant's busy intervals overlapping window.
	FetchBusy(ctx context.Context, participantID string, window TimeInterval) ParticipantBusy
}

// Registry selects the Provider that serves a participant.
// Lookups try the exact identifier, then its email domain, then the default.
type Registry struct {
	mu            sync.RWMutex
	byParticipant map[string]Provider
	byDomain      map[string]Provider
	fallback      Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byParticipant: make(map[string]Provider),
		byDomain:      make(map[string]Provider),
	}
}

// RegisterParticipant routes a single identifier to p.
func (r *Registry) RegisterParticipant(participantID string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byParticipant[strings.ToLower(strings.TrimSpace(participantID))] = p
}

// RegisterDomain routes every identifier whose email domain is domain to p.
func (r *Registry) RegisterDomain(domain string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byDomain[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))] = p
}

// SetDefault sets the provider used when no other route matches.
func (r *Registry) SetDefault(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = p
}

// Lookup returns the provider serving participantID.
func (r *Registry) Lookup(participantID string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(participantID))
	if p, ok := r.byParticipant[key]; ok {
		return p, true
	}
	if at := strings.LastIndex(key, "@"); at >= 0 {
		if p, ok := r.byDomain[key[at+1:]]; ok {
			return p, true
		}
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

// Backend describes one provider reachable through a registry.
type Backend struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

// Backends lists the distinct providers of the registry by name.
func (r *Registry) Backends() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	add := func(p Provider) {
		if p == nil {
			return
		}
		name := p.Name()
		seen[name] = seen[name] || IsConfigured(p)
	}
	add(r.fallback)
	for _, p := range r.byParticipant {
		add(p)
	}
	for _, p := range r.byDomain {
		add(p)
	}

	backends := make([]Backend, 0, len(seen))
	for name, configured := range seen {
		backends = append(backends, Backend{Name: name, Configured: configured})
	}
	sort.Slice(backends, func(i, j int) bool { return backends[i].Name < backends[j].Name })
	return backends
}

// IsConfigured reports whether p can reach a calendar at all.
func IsConfigured(p Provider) bool {
	switch v := p.(type) {
	case unconfiguredProvider:
		return false
	case *ThrottledProvider:
		return IsConfigured(v.Provider)
	default:
		return true
	}
}

type unconfiguredProvider struct {
	name string
}

// Unconfigured returns a Provider for a backend that has no credentials. Every
// fetch reports the participant as unknown with ErrProviderUnavailable.
func Unconfigured(name string) Provider {
	return unconfiguredProvider{name: name}
}

func (u unconfiguredProvider) Name() string {
	return u.name
}

func (u unconfiguredProvider) FetchBusy(_ context.Context, participantID string, _ TimeInterval) ParticipantBusy {
	return Unknown(participantID, fmt.Errorf("%w: %s backend is not configured", ErrProviderUnavailable, u.name))
}

// ThrottledProvider limits the request rate to a backend across all participants.
type ThrottledProvider struct {
	Provider
	limiter *rate.Limiter
}

// Throttle wraps p so that at most perSecond calls (with the given burst) reach it.
func Throttle(p Provider, perSecond float64, burst int) *ThrottledProvider {
	if burst < 1 {
		burst = 1
	}
	return &ThrottledProvider{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// FetchBusy waits for a token and delegates to the wrapped provider.
func (t *ThrottledProvider) FetchBusy(ctx context.Context, participantID string, window TimeInterval) ParticipantBusy {
	if err := t.limiter.Wait(ctx); err != nil {
		return Unknown(participantID, fmt.Errorf("%w: waiting for %s rate limiter: %v", ErrDeadlineExceeded, t.Name(), err))
	}
	return t.Provider.FetchBusy(ctx, participantID, window)
}

// RetryRateLimited runs fetch and retries it with exponential backoff for as long as
// it fails with ErrRateLimited, up to maxTries attempts. Any other error stops
// immediately. Adapters use it so that the engine itself never retries.
func RetryRateLimited[T any](ctx context.Context, maxTries uint, fetch func() (T, error)) (T, error) {
	if maxTries == 0 {
		maxTries = DefaultRateLimitRetries
	}
	op := func() (T, error) {
		v, err := fetch()
		if err != nil && !errors.Is(err, ErrRateLimited) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 4 * time.Second

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxTries),
	)
}
