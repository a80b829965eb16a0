package catalog

import (
	"context"
	"errors"
	"fmt"
)

// Category is the normalized failure taxonomy every adapter must translate
// its source-specific errors into. The dispatcher routes on categories and
// never inspects upstream error shapes.
type Category string

const (
	// CategoryInvalidIdentifier means the identifier failed validation
	// before any network call.
	CategoryInvalidIdentifier Category = "invalid_identifier"

	// CategoryAmbiguousIdentifier means the identifier matched more than
	// one country's format and no country was supplied.
	CategoryAmbiguousIdentifier Category = "ambiguous_identifier"

	// CategoryNotFound means the source was queried and had no match.
	// Absence at one source is not conclusive; fallback continues.
	CategoryNotFound Category = "not_found"

	// CategoryRateLimited means the source refused the call for quota
	// reasons (HTTP 429 and equivalents).
	CategoryRateLimited Category = "rate_limited"

	// CategoryTimeout means the bounded call deadline elapsed.
	CategoryTimeout Category = "timeout"

	// CategoryMisconfigured means the provider cannot work as configured
	// (missing or rejected credentials). The dispatcher quarantines the
	// provider for the rest of the process.
	CategoryMisconfigured Category = "misconfigured"

	// CategoryUnsupported means the adapter does not implement the
	// requested capability. The registry filters these out before
	// dispatch; seeing one at the dispatcher is a wiring bug.
	CategoryUnsupported Category = "unsupported_operation"

	// CategoryNormalization means the source answered but its payload
	// could not be mapped to a valid canonical record.
	CategoryNormalization Category = "normalization"

	// CategoryOutage means the source is unreachable or answering 5xx.
	CategoryOutage Category = "provider_outage"

	// CategoryInternal is the catch-all for unexpected adapter failures.
	CategoryInternal Category = "internal"
)

// Transient reports whether a failure of this category should be absorbed
// by the fallback loop: the next candidate may still succeed, and the same
// provider may succeed on a later request.
func (c Category) Transient() bool {
	switch c {
	case CategoryNotFound, CategoryRateLimited, CategoryTimeout,
		CategoryOutage, CategoryNormalization:
		return true
	}
	return false
}

// Error wraps an adapter failure with its normalized category and the
// provider that produced it.
type Error struct {
	Category   Category
	Provider   string
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.Provider, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.Provider, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError builds a categorized provider error.
func NewError(category Category, provider, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Provider:   provider,
		Message:    message,
		Underlying: underlying,
	}
}

// Errorf builds a categorized provider error with a formatted message.
func Errorf(category Category, provider, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Provider: provider,
		Message:  fmt.Sprintf(format, args...),
	}
}

// categorizer lets error types defined outside this package place
// themselves in the taxonomy without wrapping.
type categorizer interface {
	Category() Category
}

// CategoryOf extracts the category from an error chain. A bare deadline
// error maps to CategoryTimeout; anything else uncategorized reports
// CategoryInternal so nothing slips past the taxonomy.
func CategoryOf(err error) Category {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category
	}
	var c categorizer
	if errors.As(err, &c) {
		return c.Category()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	return CategoryInternal
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, c Category) bool {
	return CategoryOf(err) == c
}

// Sentinel errors shared across the registry and dispatcher.
var (
	// ErrDuplicateProvider is returned by Register for a name collision.
	ErrDuplicateProvider = errors.New("catalog: provider already registered")
)
