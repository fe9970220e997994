package matching

import (
	"errors"
	"fmt"
)

// Error kinds. Callers test with errors.Is; the HTTP layer maps them to
// 404, 400 and 502 respectively.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrUpstream   = errors.New("upstream failure")
)

// Error carries a kind, the failing operation and an optional cause.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NotFound reports a missing anchor entity.
func NotFound(op, what, id string) error {
	return &Error{Kind: ErrNotFound, Op: op, Msg: fmt.Sprintf("%s %q", what, id)}
}

// Invalid reports a malformed argument.
func Invalid(op, msg string) error {
	return &Error{Kind: ErrValidation, Op: op, Msg: msg}
}

// Upstream wraps a candidate-store failure. The cause stays reachable.
func Upstream(op string, err error) error {
	return &Error{Kind: ErrUpstream, Op: op, Err: err}
}

// Kind returns the kind sentinel of err, or nil when err is not one of ours.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrValidation, ErrUpstream} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
