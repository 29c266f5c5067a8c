package client

import "fmt"

// ErrorKind classifies how an API call failed.
type ErrorKind string

const (
	// KindConnection means the request never reached the server.
	KindConnection ErrorKind = "connection"
	// KindHTTP means the server answered with a non-2xx status.
	KindHTTP ErrorKind = "http"
	// KindMalformed means a 2xx response carried a body that was not the
	// JSON we expected.
	KindMalformed ErrorKind = "malformed"
)

// Error is the single normalized failure value every API method returns.
// StatusCode is zero unless Kind is KindHTTP.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	cause      error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTP {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("api: %s", e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func connectionError(err error) *Error {
	return &Error{Kind: KindConnection, Message: "could not reach the server", cause: err}
}

func malformedError(err error) *Error {
	return &Error{Kind: KindMalformed, Message: "server returned an unreadable response", cause: err}
}

func httpError(status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	return &Error{Kind: KindHTTP, StatusCode: status, Message: message}
}

// IsStatus reports whether err is an HTTP-kind *Error with the given status.
func IsStatus(err error, status int) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.Kind == KindHTTP && apiErr.StatusCode == status
}
