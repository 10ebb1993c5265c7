package availability

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// StaticProvider serves busy intervals from memory. It is deterministic and is
// used for tests and for offline runs from a busy file.
type StaticProvider struct {
	name  string
	delay time.Duration
	calls atomic.Int64

	mu       sync.RWMutex
	busy     map[string][]TimeInterval
	failures map[string]error
}

// NewStaticProvider creates an empty StaticProvider. Participants without data are free.
func NewStaticProvider(name string) *StaticProvider {
	if name == "" {
		name = "static"
	}
	return &StaticProvider{
		name:     name,
		busy:     make(map[string][]TimeInterval),
		failures: make(map[string]error),
	}
}

// Name implements Provider.
func (s *StaticProvider) Name() string {
	return s.name
}

// SetBusy replaces the busy intervals of participantID.
func (s *StaticProvider) SetBusy(participantID string, intervals ...TimeInterval) *StaticProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy[participantKey(participantID)] = append([]TimeInterval(nil), intervals...)
	return s
}

// SetFailure makes every fetch for participantID fail with err.
func (s *StaticProvider) SetFailure(participantID string, err error) *StaticProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[participantKey(participantID)] = err
	return s
}

// SetDelay makes every fetch take d before answering, or until ctx is done.
func (s *StaticProvider) SetDelay(d time.Duration) *StaticProvider {
	s.delay = d
	return s
}

// Calls returns how many times FetchBusy has been invoked.
func (s *StaticProvider) Calls() int {
	return int(s.calls.Load())
}

// FetchBusy implements Provider.
func (s *StaticProvider) FetchBusy(ctx context.Context, participantID string, window TimeInterval) ParticipantBusy {
	s.calls.Add(1)

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Unknown(participantID, fmt.Errorf("%w: %v", ErrDeadlineExceeded, ctx.Err()))
		case <-timer.C:
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err, ok := s.failures[participantKey(participantID)]; ok {
		return Unknown(participantID, err)
	}

	ref := window.Start.Location()
	var out []TimeInterval
	for _, iv := range s.busy[participantKey(participantID)] {
		if iv.Overlaps(window) {
			out = append(out, Normalize(iv, ref))
		}
	}
	return ParticipantBusy{
		ParticipantID: participantID,
		Intervals:     out,
		Status:        StatusOK,
	}
}

func participantKey(participantID string) string {
	return strings.ToLower(strings.TrimSpace(participantID))
}

// busyFile is the YAML layout accepted by LoadStaticProvider.
type busyFile struct {
	// Timezone applies to timestamps without a zone designator.
	Timezone     string                     `yaml:"timezone"`
	Participants map[string]busyParticipant `yaml:"participants"`
}

type busyParticipant struct {
	Status string         `yaml:"status"`
	Busy   []busyInterval `yaml:"busy"`
}

type busyInterval struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// LoadStaticProvider reads a YAML busy file:
//
//	timezone: Europe/Istanbul
//	participants:
//	  alice@example.com:
//	    busy:
//	      - {start: "2026-10-19T10:00:00", end: "2026-10-19T11:00:00"}
//	  bob@example.com:
//	    status: unknown
//
// A participant with status "unknown" simulates an unreadable calendar.
func LoadStaticProvider(r io.Reader, ref *time.Location) (*StaticProvider, error) {
	var f busyFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode busy file: %w", err)
	}

	p := NewStaticProvider("file")
	for participant, entry := range f.Participants {
		if strings.EqualFold(entry.Status, StatusUnknown.String()) {
			p.SetFailure(participant, ErrProviderUnavailable)
			continue
		}
		intervals := make([]TimeInterval, 0, len(entry.Busy))
		for i, b := range entry.Busy {
			iv, err := ParseProviderInterval(b.Start, b.End, f.Timezone, ref)
			if err != nil {
				return nil, fmt.Errorf("participant %s busy[%d]: %w", participant, i, err)
			}
			intervals = append(intervals, iv)
		}
		p.SetBusy(participant, intervals...)
	}
	return p, nil
}
