package execution

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying: timeouts, connection
// resets, venue-side 5xx. The router backs off and redials these.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// BusinessRejection is the venue declining the order for business reasons
// (insufficient buying power, unknown symbol, ...). Never retried.
type BusinessRejection struct {
	Code   string
	Reason string
}

func (e *BusinessRejection) Error() string {
	return fmt.Sprintf("exchange rejected order (%s): %s", e.Code, e.Reason)
}

// IsBusinessRejection reports whether err is a venue decline.
func IsBusinessRejection(err error) bool {
	var br *BusinessRejection
	return errors.As(err, &br)
}

// ConfigError is a fatal transport misconfiguration: plaintext endpoint
// or missing credentials. Never retried; should prevent startup.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("transport configuration error: %s", e.Reason)
}

// IsConfigError reports whether err is a fatal misconfiguration.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
