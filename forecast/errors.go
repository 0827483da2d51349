/*
errors.go - Error types for the forecast engine

PURPOSE:
  Sentinel errors for fatal preconditions plus the structured validation
  error used by strict-mode normalization. Recoverable input malformation
  never surfaces as an error in non-strict mode; it is repaired in place.

ERROR CATEGORIES:
  1. Fatal preconditions - Projecting a state with no settings block is a
     caller bug (the sanitizer was skipped), never user input
  2. Strict-mode validation - Every repaired or dropped field reported as
     a FieldIssue so "import and validate" flows can fail hard

USAGE:
  if errors.Is(err, forecast.ErrMissingSettings) { ... }

  var verr *forecast.ValidationError
  if errors.As(err, &verr) {
      for _, issue := range verr.Issues { ... }
  }

SEE ALSO:
  - engine.go: Raises the fatal precondition errors
  - factory: Produces ValidationError in strict mode
*/
package forecast

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingSettings is returned when Project is called on a state with
	// no settings block. States must pass through normalization first.
	ErrMissingSettings = errors.New("state has no settings")

	// ErrInvalidWindow is returned when the projection window bounds are not
	// valid calendar dates.
	ErrInvalidWindow = errors.New("invalid projection window")

	// ErrValidation is the sentinel wrapped by ValidationError.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// FieldIssue describes one malformed field encountered during normalization.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError aggregates every issue found during a strict-mode
// normalization pass. In non-strict mode the same conditions are repaired
// silently and no error is produced.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = fmt.Sprintf("%s: %s", issue.Field, issue.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IsFatal returns true for errors that indicate a programming error by the
// caller rather than recoverable input.
func IsFatal(err error) bool {
	return errors.Is(err, ErrMissingSettings) || errors.Is(err, ErrInvalidWindow)
}
