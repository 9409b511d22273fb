// Package faults defines the error taxonomy shared across the pipeline.
// Components classify provider and store failures into these types so
// callers can choose between retry, token rotation, per-item skip and
// cache-tier degradation without string matching.
package faults

import (
	"errors"
	"fmt"
	"time"
)

// TransientError wraps a failure worth retrying with backoff: network
// blips, 5xx responses, timeouts.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// QuotaError signals rate-limit exhaustion on the credential that made the
// call. It is never retried on the same credential; the token manager
// rotates instead.
type QuotaError struct {
	Op      string
	ResetAt time.Time
	Err     error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: quota exceeded (resets %s): %v", e.Op, e.ResetAt.Format(time.RFC3339), e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

// ValidationError marks a single malformed input item. Batches skip the
// item, record it and continue.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CacheDegraded reports that the durable cache tier was unavailable and a
// lower tier served the operation. Warning-level only; never fails the
// calling operation.
type CacheDegraded struct {
	Tier string
	Err  error
}

func (e *CacheDegraded) Error() string {
	return fmt.Sprintf("cache degraded to %s tier: %v", e.Tier, e.Err)
}

func (e *CacheDegraded) Unwrap() error { return e.Err }

// ConfigError is fatal at startup of the affected subsystem.
type ConfigError struct {
	Subsystem string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s configuration: %s", e.Subsystem, e.Reason)
}

// NoTokenError is returned when every configured credential is exhausted.
// EarliestReset lets callers decide to wait or abort.
type NoTokenError struct {
	EarliestReset time.Time
}

func (e *NoTokenError) Error() string {
	return fmt.Sprintf("no token available until %s", e.EarliestReset.Format(time.RFC3339))
}

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsQuota reports whether err represents rate-limit exhaustion.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// IsValidation reports whether err marks a single bad input item.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
