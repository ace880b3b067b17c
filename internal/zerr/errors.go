// Package zerr defines the stable error taxonomy shared by every Zenith
// subsystem: repositories, the trail replayer, the doc lake, and the cloud
// sync driver all return these sentinels (wrapped with operation context)
// rather than ad-hoc error types.
package zerr

import (
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors. Callers should use errors.Is against these, never string
// matching on Error().
var (
	// NoResult indicates a unique-key lookup missed.
	NoResult = errors.New("no result")

	// InvalidState indicates a transition rejected by the enum registry's
	// transition table, or an unsupported trail envelope version.
	InvalidState = errors.New("invalid state")

	// Validation indicates a JSON-Schema check failed during strict replay.
	Validation = errors.New("validation failed")

	// Conflict indicates a unique constraint violation (the entity_links
	// 5-tuple).
	Conflict = errors.New("conflict")

	// BudgetExceeded indicates the recursive query engine refused a request because a budget bound was hit before the request
	// could be serviced meaningfully (e.g. max_chunks == 0).
	BudgetExceeded = errors.New("budget exceeded")

	// Io indicates an underlying file or database I/O error.
	Io = errors.New("io error")

	// Other wraps a third-party or serialization error that doesn't fit any
	// of the above.
	Other = errors.New("other error")
)

// Wrap attaches operation context to err and, for sql.ErrNoRows, normalizes
// it to NoResult so callers can use errors.Is uniformly regardless of which
// store backend produced the miss.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, NoResult)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Wrapf is Wrap with a formatted operation string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(fmt.Sprintf(format, args...), err)
}

// As reports whether err is, or wraps, target.
func As(err, target error) bool {
	return errors.Is(err, target)
}
