// Package failure classifies errors by the pipeline stage that produced
// them, so callers can tell fatal from recoverable failures.
package failure

import (
	"errors"
	"fmt"
)

// Kind names the stage an error came from.
type Kind string

const (
	Config Kind = "config"
	Fetch  Kind = "fetch"
	Parse  Kind = "parse"
	Store  Kind = "store"
	Notify Kind = "notify"
)

// Error is a classified error. Op describes what was being attempted,
// usually a source or state name.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a kind. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a classified error from a format string.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first classified error in err's chain,
// or "" when there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsFatal reports whether err should abort the run.
func IsFatal(err error) bool {
	return Is(err, Config)
}
