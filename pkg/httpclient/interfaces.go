package httpclient

import (
	"context"
	"errors"
	"fmt"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header(name string) string
}

// BasicAuth carries HTTP basic credentials for a single request.
type BasicAuth struct {
	Username string
	Password string
}

// Request describes one outgoing call. Body must already be encoded.
type Request struct {
	Method    string
	URL       string
	Headers   map[string]string
	Body      []byte
	BasicAuth *BasicAuth
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
// Implementations return a *StatusError for responses with status >= 400 and must
// not follow redirects.
type Client interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// StatusError is returned when the server answered with an error status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http response status %d", e.Code)
	}
	return fmt.Sprintf("http response status %d: %s", e.Code, e.Body)
}

// StatusCode extracts the HTTP status from a transport error, if it carries one.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}
