package p2pci

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownVerb        = errors.New("unknown verb")
	ErrBadLiteral         = errors.New("unexpected literal")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	ErrMalformedRequest   = errors.New("malformed request")
	ErrPortMismatch       = errors.New("port does not match connection")
	ErrTokenTooLong       = errors.New("token too long")
	ErrMalformedUpload    = errors.New("malformed upload line")
)

// StatusError is a request failure that maps to a P2P-CI status code.
type StatusError struct {
	Status Status
	Detail string
	Err    error
}

// NewStatusError builds a StatusError wrapping err.
func NewStatusError(status Status, err error, format string, args ...any) *StatusError {
	return &StatusError{Status: status, Err: err, Detail: fmt.Sprintf(format, args...)}
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Status.Reason())
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Status.Reason(), e.Detail)
}

// Code returns the numeric status.
func (e *StatusError) Code() uint32 { return uint32(e.Status) }

// Message returns the reason phrase.
func (e *StatusError) Message() string { return e.Status.Reason() }

func (e *StatusError) Unwrap() error { return e.Err }

// StatusOf returns the status carried by err, or StatusInternalError when err
// is not a StatusError.
func StatusOf(err error) Status {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return StatusInternalError
}
