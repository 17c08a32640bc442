package reconcile

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidQuery         = errors.New("invalid query")
	ErrInvalidKey           = errors.New("invalid key")
	ErrQueryExecutionFailed = errors.New("query execution failed")
	ErrSchemaMismatch       = errors.New("schema mismatch")
	ErrRunInProgress        = errors.New("a reconciliation result is already held")
)

// ValidationError is a query or key of one dataset that failed its probe.
type ValidationError struct {
	Side  Side
	Label string
	// Kind is ErrInvalidQuery or ErrInvalidKey.
	Kind  error
	Value string
}

// Field is "query" or "key".
func (e *ValidationError) Field() string {
	if e.Kind == ErrInvalidKey {
		return "key"
	}
	return "query"
}

func (e *ValidationError) Error() string {
	if e.Kind == ErrInvalidKey {
		return fmt.Sprintf("invalid key for %s: %q", e.Label, e.Value)
	}
	return fmt.Sprintf("invalid SQL query for %s", e.Label)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// ValidationErrors holds every failed field of a validation step. All its
// errors share the same Kind.
type ValidationErrors struct {
	Kind   error
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationErrors) Unwrap() error {
	return e.Kind
}

// Sides returns the sides which failed validation.
func (e *ValidationErrors) Sides() []Side {
	ret := make([]Side, len(e.Errors))
	for i, err := range e.Errors {
		ret[i] = err.Side
	}
	return ret
}

// SchemaMismatchError lists the columns found on only one side.
type SchemaMismatchError struct {
	Labels    [2]string
	LeftOnly  []string
	RightOnly []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.LeftOnly) > 0 {
		parts = append(parts, fmt.Sprintf("columns only in %s: %s", e.Labels[0], strings.Join(e.LeftOnly, ", ")))
	}
	if len(e.RightOnly) > 0 {
		parts = append(parts, fmt.Sprintf("columns only in %s: %s", e.Labels[1], strings.Join(e.RightOnly, ", ")))
	}
	return "schema mismatch: " + strings.Join(parts, "; ")
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

func executionFailed(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrQueryExecutionFailed)
}
