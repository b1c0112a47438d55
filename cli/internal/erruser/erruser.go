// Package erruser provides errors whose Error() returns only a user-facing
// message; the underlying cause stays reachable via Unwrap() for Details
// lines and logs.
package erruser

import "errors"

// Err pairs a user-facing message with an optional cause. Error() returns
// only Msg so the primary line never leaks URLs, command lines or exit
// codes; Unwrap() exposes the technical detail.
type Err struct {
	Msg string
	Err error
}

// Error returns the user-facing message only.
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// Unwrap returns the underlying error, if any. Safe on a nil receiver.
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an error carrying the given user-facing message. A non-nil
// err is wrapped and available via Unwrap() so callers can print
// "Details: %v"; a nil err yields a plain error with no Unwrap.
func New(msg string, err error) error {
	if err == nil {
		return errors.New(msg)
	}
	return &Err{Msg: msg, Err: err}
}
