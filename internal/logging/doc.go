// Package logging provides structured logging utilities for meetslot.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog, text or JSON output
//   - PII sanitization (participant addresses are hashed)
//   - Consistent attribute naming across the codebase
//   - Logger adapter interface for flexibility
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithRequestID(slog.Default(), result.RequestID)
//	logger.Info("busy data fetched",
//	    logging.Provider("google"),
//	    logging.Participant(email),
//	    logging.Status("ok"))
//
// # Security Considerations
//
// This package is designed with security in mind:
//   - Participant addresses are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly
package logging
