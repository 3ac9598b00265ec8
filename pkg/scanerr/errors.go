// Package scanerr defines the error taxonomy surfaced by a scan run.
//
// Every failure returned by the orchestrator is a *ScannerError whose cause
// chain holds exactly one of the typed errors below. Callers classify a
// failure with errors.Is against the sentinel values or errors.As against
// the concrete types.
package scanerr

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors matched by the typed errors' Is methods.
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrAuthentication  = errors.New("authentication error")
	ErrTimeout         = errors.New("timeout")
	ErrExternalService = errors.New("external service error")
)

// ConfigurationError reports an invalid or missing configuration field.
// It is always detected before any call to the engine and is never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Configf builds a ConfigurationError for field with a formatted reason.
func Configf(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// AuthenticationError reports a failed setup or cleanup step of an
// authentication provider.
type AuthenticationError struct {
	Method string // auth type, e.g. FORM_BASED
	Op     string // step that failed, e.g. "create user"
	Err    error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication %s: %s: %v", e.Method, e.Op, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// TimeoutError reports that a bounded phase exceeded its budget.
type TimeoutError struct {
	Phase   string
	Budget  time.Duration
	Elapsed time.Duration
	// Last is the last progress (or remaining-count) value observed.
	Last int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s phase timed out after %s (budget %s, last value %d)",
		e.Phase, e.Elapsed.Round(time.Millisecond), e.Budget, e.Last)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// ExternalServiceError reports a failed control-API call: connection
// failures, error responses and malformed payloads.
type ExternalServiceError struct {
	Endpoint   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("engine call %s failed with status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("engine call %s failed: %v", e.Endpoint, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }

// ScannerError is the single top-level error returned by a failed scan.
type ScannerError struct {
	Phase string
	// State is the last state the scan reached before failing.
	State string
	Err   error
}

func (e *ScannerError) Error() string {
	return fmt.Sprintf("scan failed during %s: %v", e.Phase, e.Err)
}

func (e *ScannerError) Unwrap() error { return e.Err }

// Kind returns a short classification of err for logs and metrics labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrExternalService):
		return "external_service"
	default:
		return "unknown"
	}
}
