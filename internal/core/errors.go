package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so every transition's failure mode is enumerable.
type ErrorKind string

// Failure kinds.
const (
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindDecode       ErrorKind = "decode_error"
	KindPersistence  ErrorKind = "persistence_error"
	KindDelivery     ErrorKind = "delivery_error"
)

var (
	ErrUnauthorized  = errors.New("principal is not authenticated")
	ErrForbidden     = errors.New("principal is not a room participant")
	ErrNotSubscribed = errors.New("session is not subscribed")
	ErrSessionClosed = errors.New("session closed")
	ErrSendQueueFull = errors.New("send queue full")
	ErrHubClosed     = errors.New("hub closed")
	ErrUnknownType   = errors.New("unknown frame type")
	ErrMissingField  = errors.New("missing field")
)

// Error wraps a failure with its kind and the operation that produced it.
type Error struct {
	Kind ErrorKind
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

func coreError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of a core error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
