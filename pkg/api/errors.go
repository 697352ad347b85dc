package api

import (
	"errors"
	"fmt"
)

// DecodePurpose names the decode step a DecodeError originates from.
type DecodePurpose string

const (
	DecodeEncoding DecodePurpose = "encoding"
	DecodeJSON     DecodePurpose = "json"
	DecodeForm     DecodePurpose = "form"
)

// DecodeError reports that connection payload data could not be decoded.
// It is raised only at the point of an explicit decode (text, json, form),
// never during body buffering, and carries the decode step that failed so
// callers can produce accurate user messaging.
type DecodeError struct {
	Purpose DecodePurpose
	Err     error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	msg := "invalid data"
	switch e.Purpose {
	case DecodeEncoding:
		msg = "invalid encoding"
	case DecodeJSON:
		msg = "invalid json"
	case DecodeForm:
		msg = "invalid form data"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error { return e.Err }

// NewEncodingError wraps err as a charset decode failure.
func NewEncodingError(err error) *DecodeError {
	return &DecodeError{Purpose: DecodeEncoding, Err: err}
}

// NewJSONError wraps err as a structured-data decode failure.
func NewJSONError(err error) *DecodeError {
	return &DecodeError{Purpose: DecodeJSON, Err: err}
}

// NewFormError wraps err as a form decode failure.
func NewFormError(err error) *DecodeError {
	return &DecodeError{Purpose: DecodeForm, Err: err}
}

// ErrNoReceive is returned when a connection's receive side is used but
// the transport did not provide one.
var ErrNoReceive = errors.New("connection has no receive operation")

// ErrNoSend is returned when a connection's send side is used but the
// transport did not provide one.
var ErrNoSend = errors.New("connection has no send operation")
