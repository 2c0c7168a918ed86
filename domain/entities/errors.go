package entities

import "fmt"

// ErrorKind classifies a failure by the subsystem it belongs to. Every
// failure is locally scoped: none of them is fatal to the process.
type ErrorKind string

const (
	// ErrSensorUnavailable means the device was denied or is missing.
	// Terminal for that sensor until the user retries.
	ErrSensorUnavailable ErrorKind = "sensor_unavailable"
	// ErrSensorFault is a transient capture error, terminal until the
	// sensor is stopped and restarted.
	ErrSensorFault ErrorKind = "sensor_fault"
	// ErrOracleFailure is a malformed or empty oracle response. Recovered
	// by substituting a deterministic fallback query.
	ErrOracleFailure ErrorKind = "oracle_failure"
	// ErrSearchFailure is a search transport error or an empty result set.
	// Surfaced to the caller; the queue is left unchanged.
	ErrSearchFailure ErrorKind = "search_failure"
	// ErrSurfaceFault is a playback-surface initialization or
	// playback-disallowed error. Surfaced; no automatic item removal.
	ErrSurfaceFault ErrorKind = "surface_fault"
)

// DomainError carries the failure taxonomy alongside a human-readable
// message so callers can surface status without crashing dependents.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError wraps err with a taxonomy kind and message.
func NewDomainError(kind ErrorKind, message string, err error) *DomainError {
	return &DomainError{Kind: kind, Message: message, Err: err}
}

// KindOf returns the taxonomy kind of err, or "" when err is not a
// DomainError.
func KindOf(err error) ErrorKind {
	if de, ok := err.(*DomainError); ok {
		return de.Kind
	}
	return ""
}
