package ai

import (
	"errors"
	"fmt"
)

// Kind classifies an agent failure.
type Kind string

const (
	// KindConfig means the agent cannot run: no key, unknown provider.
	KindConfig Kind = "config"
	// KindUpstream means the provider call failed or returned an error status.
	KindUpstream Kind = "upstream"
	// KindEmpty means the provider answered with no usable text.
	KindEmpty Kind = "empty"
)

// Error is returned by every agent operation that fails. Callers can tell a
// failed call apart from a successful, possibly short, answer.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNoCompletion is wrapped by KindEmpty errors.
var ErrNoCompletion = errors.New("no completion returned")

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func wrap(op string, kind Kind, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{Op: op, Kind: e.Kind, Err: e.Err}
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
