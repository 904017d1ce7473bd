package ingest

import (
	"errors"
	"fmt"
)

// Code classifies a pipeline failure for callers.
type Code string

const (
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeStorage     Code = "STORAGE_ERROR"
	CodePersistence Code = "PERSISTENCE_ERROR"
)

var (
	ErrReaderNil          = errors.New("reader is nil")
	ErrFilenameTooLong    = errors.New("filename too long")
	ErrFileTooLarge       = errors.New("file too large")
	ErrMimeTypeNotAllowed = errors.New("mime type not allowed")
)

// Error is returned by every failing pipeline step.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf reports the pipeline code carried by err, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func validationError(op string, err error) error {
	return &Error{Code: CodeValidation, Op: op, Err: err}
}

func storageError(op string, err error) error {
	return &Error{Code: CodeStorage, Op: op, Err: err}
}

func persistenceError(op string, err error) error {
	return &Error{Code: CodePersistence, Op: op, Err: err}
}
