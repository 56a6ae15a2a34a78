package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed provider attempt. The kind drives cooldown
// policy and stats labeling; it is a tagged value, not an exception hierarchy.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindRateLimited ErrorKind = "rate_limited"
	KindAuth        ErrorKind = "auth_error"
	KindServer      ErrorKind = "server_error"
	KindNetwork     ErrorKind = "network_error"
	KindMalformed   ErrorKind = "malformed_response"
)

// AttemptError is the tagged failure of a single provider attempt.
type AttemptError struct {
	Kind ErrorKind
	Err  error
}

func (e *AttemptError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }

// Attempt wraps err with a classification kind.
func Attempt(kind ErrorKind, err error) *AttemptError {
	return &AttemptError{Kind: kind, Err: err}
}

// Attemptf wraps a formatted message with a classification kind.
func Attemptf(kind ErrorKind, format string, args ...any) *AttemptError {
	return &AttemptError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrorKind from err. Unclassified errors count as
// network failures, the most generic transient kind.
func KindOf(err error) ErrorKind {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindNetwork
}

// ExhaustedError is the terminal failure of a fetch: every eligible resource
// was tried (or none were eligible) and no stale cache entry existed.
type ExhaustedError struct {
	Category  Category
	Attempted []string
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempted) == 0 {
		return fmt.Sprintf("category %s exhausted: no eligible resources", e.Category)
	}
	return fmt.Sprintf("category %s exhausted after trying [%s]",
		e.Category, strings.Join(e.Attempted, ", "))
}

// IsExhausted reports whether err is a terminal exhaustion error.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}
