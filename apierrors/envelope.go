// Package apierrors defines the closed error taxonomy for provider calls.
// Every failure that leaves the access layer is an *Envelope; callers match
// on Kind with errors.As / IsKind rather than inspecting transport errors.
package apierrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies one member of the closed error taxonomy.
type Kind string

const (
	KindUnauthorized            Kind = "UNAUTHORIZED"
	KindTokenExpired            Kind = "TOKEN_EXPIRED"
	KindTokenInvalid            Kind = "TOKEN_INVALID"
	KindInsufficientPermissions Kind = "INSUFFICIENT_PERMISSIONS"
	KindNotFound                Kind = "NOT_FOUND"
	KindRateLimitExceeded       Kind = "RATE_LIMIT_EXCEEDED"
	KindQuotaExceeded           Kind = "QUOTA_EXCEEDED"
	KindServiceUnavailable      Kind = "SERVICE_UNAVAILABLE"
	KindTimeout                 Kind = "TIMEOUT"
	KindInvalidRequest          Kind = "INVALID_REQUEST"
	KindValidationError         Kind = "VALIDATION_ERROR"
	KindUnknown                 Kind = "UNKNOWN_ERROR"
)

// Category groups kinds by how the retry layer must treat them.
type Category string

const (
	CategoryRetryable    Category = "retryable"
	CategoryNonRetryable Category = "non_retryable"
	CategoryAuthRefresh  Category = "auth_refresh_required"
)

// kindCategories is the fixed mapping from kind to category. It is not
// overridable at call sites.
var kindCategories = map[Kind]Category{
	KindUnauthorized:            CategoryAuthRefresh,
	KindTokenExpired:            CategoryAuthRefresh,
	KindTokenInvalid:            CategoryNonRetryable,
	KindInsufficientPermissions: CategoryNonRetryable,
	KindNotFound:                CategoryNonRetryable,
	KindRateLimitExceeded:       CategoryRetryable,
	KindQuotaExceeded:           CategoryRetryable,
	KindServiceUnavailable:      CategoryRetryable,
	KindTimeout:                 CategoryRetryable,
	KindInvalidRequest:          CategoryNonRetryable,
	KindValidationError:         CategoryNonRetryable,
	KindUnknown:                 CategoryNonRetryable,
}

// Envelope is the structured failure returned by the access layer.
// It is immutable once constructed.
type Envelope struct {
	Kind       Kind
	Status     int
	Message    string
	Category   Category
	Retryable  bool
	RetryAfter time.Duration
	cause      error
}

// New builds an envelope for the given kind. Category and retryability are
// derived from the fixed taxonomy table.
func New(kind Kind, status int, message string) *Envelope {
	category, ok := kindCategories[kind]
	if !ok {
		kind = KindUnknown
		category = CategoryNonRetryable
	}
	return &Envelope{
		Kind:      kind,
		Status:    status,
		Message:   message,
		Category:  category,
		Retryable: category != CategoryNonRetryable,
	}
}

// Wrap is New plus a wrapped cause for errors.Is/As chains.
func Wrap(kind Kind, status int, message string, cause error) *Envelope {
	e := New(kind, status, message)
	e.cause = cause
	return e
}

func (e *Envelope) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Envelope) Unwrap() error { return e.cause }

// WithRetryAfter returns a copy carrying a provider-supplied delay hint.
func (e *Envelope) WithRetryAfter(d time.Duration) *Envelope {
	clone := *e
	clone.RetryAfter = d
	return &clone
}

// NonRetryable returns a copy with retrying suppressed. Used once the
// single forced credential refresh for an Unauthorized outcome is spent.
func (e *Envelope) NonRetryable() *Envelope {
	clone := *e
	clone.Retryable = false
	clone.Category = CategoryNonRetryable
	return &clone
}

// From extracts the envelope from err, or wraps err as UnknownError.
func From(err error) *Envelope {
	var e *Envelope
	if errors.As(err, &e) {
		return e
	}
	return Wrap(KindUnknown, 0, err.Error(), err)
}

// IsKind reports whether err carries an envelope of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Envelope
	return errors.As(err, &e) && e.Kind == kind
}
