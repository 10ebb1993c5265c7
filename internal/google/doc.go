// Package google provides OAuth2 configuration and token access for the
// Google Calendar API.
//
// Tokens are read from per-account files in the user cache directory. Acquiring
// a token in the first place is left to the operator; this package only loads
// existing tokens and lets golang.org/x/oauth2 refresh them.
//
// The TokenProvider interface allows different token sources to be plugged in.
package google
