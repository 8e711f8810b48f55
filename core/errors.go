package core

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrTenantRequired = errors.New("tenant id is required")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports input that fails field constraints.
// Fields holds every failure found, never just the first one.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewValidationErrorFrom converts validator.ValidationErrors into a ValidationError using translator for messages.
// Any other error is returned untouched.
func NewValidationErrorFrom(err error, translator ut.Translator) error {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		flds = append(flds, FieldError{Field: vErr.Field(), Error: vErr.Translate(translator)})
	}
	return &ValidationError{Err: errors.New("invalid input"), Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return fmt.Sprintf("%s: %s", err.Fields[0].Field, err.Fields[0].Error)
		}
		return ""
	}
	return err.Err.Error()
}

// FieldMessages groups the field errors by field name.
func (err ValidationError) FieldMessages() map[string][]string {
	msgs := make(map[string][]string, len(err.Fields))
	for _, f := range err.Fields {
		msgs[f.Field] = append(msgs[f.Field], f.Error)
	}
	return msgs
}

// InvalidTransitionError reports a status change that is not an edge of the entity's transition table.
type InvalidTransitionError struct {
	Kind string
	From string
	To   string
}

func (err InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s status transition: %s -> %s", err.Kind, err.From, err.To)
}

// NotFoundError reports an id that does not resolve to a record in the caller's tenant.
type NotFoundError struct {
	Kind string
	ID   string
}

func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", err.Kind, err.ID)
}

func (err NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PersistenceError reports a failed store operation. Callers may retry at their discretion.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func (err PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", err.Op, err.Err)
}

func (err PersistenceError) Unwrap() error { return err.Err }

// IsNotFound reports whether err (or its cause) is a not found error.
func IsNotFound(err error) bool {
	switch cause := errors.Cause(err).(type) {
	case *NotFoundError:
		return true
	default:
		return cause == ErrNotFound
	}
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
