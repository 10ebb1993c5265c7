package preferences

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/teemow/meetslot/internal/availability"
)

// Profile holds the preferences of one user.
type Profile struct {
	Timezone                 string   `json:"timezone"`
	PreferredMeetingDuration int      `json:"preferred_meeting_duration"`
	PreferredMeetingTimes    []string `json:"preferred_meeting_times"`
}

// memoryFile is the layout of the memory file. Other top-level keys are ignored.
type memoryFile struct {
	UserProfiles map[string]Profile `json:"user_profiles"`
}

// Store maps users to their profiles. A nil Store has no profiles.
type Store struct {
	profiles map[string]Profile
}

// Load decodes a memory file.
func Load(r io.Reader) (*Store, error) {
	var f memoryFile
	if err := json.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}

	s := &Store{profiles: make(map[string]Profile, len(f.UserProfiles))}
	for user, profile := range f.UserProfiles {
		s.profiles[userKey(user)] = profile
	}
	return s, nil
}

// LoadFile reads the memory file at path. A missing file yields an empty store.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Store{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func userKey(user string) string {
	return strings.ToLower(strings.TrimSpace(user))
}

// Lookup returns the profile of user.
func (s *Store) Lookup(user string) (Profile, bool) {
	if s == nil {
		return Profile{}, false
	}
	p, ok := s.profiles[userKey(user)]
	return p, ok
}

// DurationHint returns the preferred meeting duration of user, or nil.
func (s *Store) DurationHint(user string) *int {
	p, ok := s.Lookup(user)
	if !ok || p.PreferredMeetingDuration <= 0 {
		return nil
	}
	d := p.PreferredMeetingDuration
	return &d
}

// Location returns the preferred timezone of user, or nil when unset or invalid.
func (s *Store) Location(user string) *time.Location {
	p, ok := s.Lookup(user)
	if !ok || p.Timezone == "" {
		return nil
	}
	loc, err := availability.LoadLocation(p.Timezone)
	if err != nil {
		return nil
	}
	return loc
}

// Apply fills the duration hint of req from user's profile and, when the profile
// names a timezone, sets a policy in that zone derived from base. Fields already
// set on req are kept.
func (s *Store) Apply(req *availability.SchedulingRequest, user string, base availability.WorkingHoursPolicy) {
	if req.DefaultDurationHint == nil {
		req.DefaultDurationHint = s.DurationHint(user)
	}
	if req.Policy == nil {
		if loc := s.Location(user); loc != nil {
			policy := base.WithLocation(loc)
			req.Policy = &policy
		}
	}
}
