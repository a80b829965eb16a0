package atlas

import (
	"context"
	"errors"

	"corpatlas/internal/dispatch"
	"corpatlas/internal/identifier"
	dErrors "corpatlas/pkg/domain-errors"
)

// detailedError pairs a domain error with a structured payload for the
// response body. The HTTP layer picks the payload up through the
// ResponseDetails contract.
type detailedError struct {
	err     *dErrors.Error
	details any
}

func (e *detailedError) Error() string        { return e.err.Error() }
func (e *detailedError) Unwrap() error        { return e.err }
func (e *detailedError) ResponseDetails() any { return e.details }

// translate maps the internal failure shapes onto domain errors. Validation
// failures answer 422 before any network call; exhaustion splits into pure
// absence (404) and upstream failure (502), each carrying its attempt trail
// so the caller can see which sources were tried and why they failed.
func translate(err error) error {
	var ambiguous *identifier.AmbiguousError
	if errors.As(err, &ambiguous) {
		return &detailedError{
			err:     dErrors.New(dErrors.CodeInvalidInput, ambiguous.Error()),
			details: map[string]any{"candidates": ambiguous.Candidates},
		}
	}
	if errors.Is(err, identifier.ErrInvalidIdentifier) {
		return dErrors.New(dErrors.CodeInvalidInput, err.Error())
	}

	var exhausted *dispatch.NoProviderError
	if errors.As(err, &exhausted) {
		if exhausted.AllAbsent() {
			return &detailedError{
				err:     dErrors.New(dErrors.CodeNotFound, "no available source has a match"),
				details: map[string]any{"attempts": exhausted.Attempts},
			}
		}
		return &detailedError{
			err:     dErrors.New(dErrors.CodeUnavailable, "every candidate source failed"),
			details: map[string]any{"attempts": exhausted.Attempts},
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.New(dErrors.CodeUnavailable, "dispatch timed out")
	}
	return err
}
