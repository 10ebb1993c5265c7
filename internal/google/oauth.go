package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
)

const (
	// DefaultAccount is used when no account name is configured.
	DefaultAccount = "default"

	// EnvClientID and EnvClientSecret hold the OAuth client credentials.
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"

	cacheDirName = "meetslot"
)

// ReadOnlyScopes are sufficient for free/busy queries.
var ReadOnlyScopes = []string{
	calendar.CalendarReadonlyScope,
}

// WriteScopes additionally allow creating events for a booked slot.
var WriteScopes = []string{
	calendar.CalendarReadonlyScope,
	calendar.CalendarEventsScope,
}

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateAccountName ensures the account name is safe to use in a file name.
func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return nil
}

// getTokenFilePath returns the token file of an account.
func getTokenFilePath(account string) string {
	return filepath.Join(userCacheDir(), cacheDirName, fmt.Sprintf("google-%s.token", account))
}

// OAuthConfig returns the OAuth2 configuration for the given client credentials.
func OAuthConfig(clientID, clientSecret string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}
}

// GetOAuthConfig returns the OAuth2 configuration with client credentials taken
// from GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
func GetOAuthConfig() *oauth2.Config {
	return OAuthConfig(os.Getenv(EnvClientID), os.Getenv(EnvClientSecret), WriteScopes)
}

// HasTokenForAccount checks if a token file exists for the specified account.
func HasTokenForAccount(account string) bool {
	if err := validateAccountName(account); err != nil {
		return false
	}
	_, err := os.Stat(getTokenFilePath(account))
	return err == nil
}

// HasToken checks if a token exists for the default account.
func HasToken() bool {
	return HasTokenForAccount(DefaultAccount)
}

// readToken parses a token file of the form "<access token> <refresh token>".
func readToken(account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}

	slurp, err := os.ReadFile(getTokenFilePath(account))
	if err != nil {
		return nil, fmt.Errorf("no Google OAuth token found for account %s", account)
	}

	f := strings.Fields(strings.TrimSpace(string(slurp)))
	if len(f) != 2 {
		return nil, fmt.Errorf("invalid token format for account %s", account)
	}

	return &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		// Forces a refresh on first use.
		Expiry: time.Unix(1, 0),
	}, nil
}

// GetTokenSourceForAccount returns a refreshing token source for the stored
// token of account.
func GetTokenSourceForAccount(ctx context.Context, account string) (oauth2.TokenSource, error) {
	token, err := readToken(account)
	if err != nil {
		return nil, err
	}
	return GetOAuthConfig().TokenSource(ctx, token), nil
}

// GetHTTPClientForAccount returns an HTTP client authenticated as account.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func GetHTTPClientForAccount(ctx context.Context, provider TokenProvider, account string) (*http.Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	token, err := provider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}

	client := oauth2.NewClient(ctx, GetOAuthConfig().TokenSource(ctx, token))

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			ForceAttemptHTTP2: false,
		}
	}

	return client, nil
}

// GetAuthenticationErrorMessage explains how to provide a token for account.
func GetAuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("Google OAuth token not found for account %q. "+
		"Create %s containing \"<access token> <refresh token>\" and set %s and %s to the OAuth client credentials.",
		account, getTokenFilePath(account), EnvClientID, EnvClientSecret)
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
