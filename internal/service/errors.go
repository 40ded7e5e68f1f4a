package service

import (
	"errors"
	"fmt"

	"rentacar-service/internal/store"
)

// Error kinds. Callers classify with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)

// Error carries a caller-facing message together with its kind
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func notFound(entity string, id int64) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s not found: %d", entity, id)}
}

func invalidArgument(msg string) error {
	return &Error{Kind: ErrInvalidArgument, Message: msg}
}

func conflict(format string, args ...interface{}) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// orNotFound converts store.ErrNotFound into a NotFound error naming the entity
func orNotFound(err error, entity string, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(entity, id)
	}
	return err
}
