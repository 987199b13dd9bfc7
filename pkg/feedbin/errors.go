package feedbin

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when a response lacks a body or header the operation requires.
var ErrNoData = errors.New("feedbin: no data")

// DecodeError reports a response body that did not match the expected shape.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("feedbin: decode %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a request payload that could not be serialized.
// The request is never sent when this occurs.
type EncodeError struct {
	Endpoint string
	Err      error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("feedbin: encode %s payload: %v", e.Endpoint, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// UnexpectedStatusError is returned when a successful transport response carries
// a status the operation has no interpretation for.
type UnexpectedStatusError struct {
	Endpoint string
	Code     int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("feedbin: unexpected status %d from %s", e.Code, e.Endpoint)
}
