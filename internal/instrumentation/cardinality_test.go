package instrumentation

import "testing"

func TestExtractUserDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"jane@example.com", "example.com"},
		{"user@Outlook.com", "outlook.com"},
		{"admin@company.org", "company.org"},
		{"test@subdomain.example.com", "subdomain.example.com"},
		{"invalid", "unknown"},
		{"", "unknown"},
		{"@", "unknown"},
		{"user@", "unknown"},
		{"@domain.com", "domain.com"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			result := ExtractUserDomain(tt.email)
			if result != tt.expected {
				t.Errorf("ExtractUserDomain(%q) = %q, want %q", tt.email, result, tt.expected)
			}
		})
	}
}

func TestParticipantBucket(t *testing.T) {
	tests := []struct {
		n        int
		expected string
	}{
		{-1, "0"},
		{0, "0"},
		{1, "1"},
		{2, "2-3"},
		{3, "2-3"},
		{4, "4-6"},
		{6, "4-6"},
		{7, "7+"},
		{100, "7+"},
	}

	for _, tt := range tests {
		if got := ParticipantBucket(tt.n); got != tt.expected {
			t.Errorf("ParticipantBucket(%d) = %q, want %q", tt.n, got, tt.expected)
		}
	}
}
