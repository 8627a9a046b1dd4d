package gymna

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced to the API layer. Everything here renders as a
// user-visible message; nothing is swallowed beyond logging.
var (
	// ErrUnauthorized means no authenticated user was attached to the request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrServiceConfiguration means the generation API credential is missing.
	// This is a request-time failure, not a startup check.
	ErrServiceConfiguration = errors.New("generation service is not configured")
)

// GenerationError wraps the external model call's failure reason. It is
// always paired with an attempted credit refund.
type GenerationError struct {
	Reason error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Reason }

// PersistenceError wraps a failed write to the conversation store or ledger.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
