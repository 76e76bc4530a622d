package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline error.
type Kind string

const (
	KindInput        Kind = "input"
	KindData         Kind = "data"
	KindSpec         Kind = "spec"
	KindCollaborator Kind = "collaborator"
)

// Error carries a Kind, the operation that failed and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "unknown error"
	}
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Input reports a bad or missing input file.
func Input(op string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindInput, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Data reports unmet cleaning or analysis preconditions.
func Data(op string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindData, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Spec reports a chart specification that cannot be rendered.
func Spec(op string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindSpec, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Collaborator reports an unusable language-model response. These are
// recovered where they occur and never fail a stage.
func Collaborator(op string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindCollaborator, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
