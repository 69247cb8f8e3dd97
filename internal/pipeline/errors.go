package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks requests that are dropped without reporting.
var ErrInvalidInput = errors.New("invalid input")

// ErrorKind classifies job failures by the step that failed.
type ErrorKind string

const (
	KindEngine      ErrorKind = "engine"
	KindPersistence ErrorKind = "persistence"
	KindPublish     ErrorKind = "publish"
	KindDelivery    ErrorKind = "delivery"
)

// Error is a failed step of a job.
type Error struct {
	Kind       ErrorKind
	ReportKind string
	Err        error
}

func (e *Error) Error() string {
	if e.ReportKind == "" {
		return fmt.Sprintf("%s failure: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s failure (%s report): %v", e.Kind, e.ReportKind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the ErrorKind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
