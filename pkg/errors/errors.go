package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies why a pipeline stage failed.
type Kind string

const (
	KindNone       Kind = ""
	KindIO         Kind = "io"
	KindParse      Kind = "parse"
	KindConnection Kind = "connection"
	KindDatabase   Kind = "database"
	KindUnexpected Kind = "unexpected"
)

// Common application errors
var (
	ErrEmptyHeader   = NewParseError("", "input has no header row", nil)
	ErrMissingColumn = NewParseError("", "required column missing", nil)
)

// ValidationError represents a validation failure with field-level details
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s - %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// StageError is a failure attributed to one pipeline stage.
type StageError struct {
	Stage   string
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *StageError) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the wrapped error
func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches another StageError of the same kind and message, so the
// sentinel values above can be used with errors.Is.
func (e *StageError) Is(target error) bool {
	t, ok := target.(*StageError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// WithStage returns a copy of e attributed to stage.
func (e *StageError) WithStage(stage string) *StageError {
	c := *e
	c.Stage = stage
	return &c
}

// NewIOError creates a file or stream failure.
func NewIOError(stage, message string, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindIO, Message: message, Err: err}
}

// NewParseError creates a malformed-input failure.
func NewParseError(stage, message string, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindParse, Message: message, Err: err}
}

// NewConnectionError creates a failure to reach the destination store.
func NewConnectionError(stage, message string, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindConnection, Message: message, Err: err}
}

// NewUnexpectedError creates a failure that fits no other kind, such as a
// recovered panic.
func NewUnexpectedError(stage, message string, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindUnexpected, Message: message, Err: err}
}

// DatabaseError is a StageError of KindDatabase carrying the server SQLSTATE
// when the driver reported one.
type DatabaseError struct {
	StageError
	SQLState string
	Detail   string
}

// NewDatabaseError wraps err from the database layer.
func NewDatabaseError(stage, message string, err error) *DatabaseError {
	de := &DatabaseError{
		StageError: StageError{Stage: stage, Kind: KindDatabase, Message: message, Err: err},
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		de.SQLState = pgErr.SQLState()
		de.Detail = pgErr.Detail
	}

	return de
}

// Error implements the error interface
func (e *DatabaseError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("%s (sqlstate %s)", e.StageError.Error(), e.SQLState)
	}
	return e.StageError.Error()
}

// Unwrap returns the wrapped error
func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of the first StageError in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var de *DatabaseError
	if errors.As(err, &de) {
		return KindDatabase
	}

	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}

	return KindUnexpected
}
