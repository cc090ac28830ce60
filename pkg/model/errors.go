package model

import "fmt"

// ErrorKind classifies a failed Result.
type ErrorKind string

const (
	KindNone ErrorKind = ""
	// KindTransport: the request could not be sent or the response could not be received.
	KindTransport ErrorKind = "transport"
	// KindHTTP: the server answered with a non-2xx status.
	KindHTTP ErrorKind = "http"
	// KindClient: the call was rejected locally before any request was made.
	KindClient ErrorKind = "client"
)

// APIError is the error form of a failed Result.
type APIError struct {
	Kind      ErrorKind
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
	}
	return e.Message
}

// IsUnauthorized reports whether the server rejected the credentials.
func (e *APIError) IsUnauthorized() bool {
	return e.Kind == KindHTTP && (e.Status == 401 || e.Status == 403)
}
