package lexapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse is returned when a successful response does not
// carry the expected fields.
var ErrMalformedResponse = errors.New("malformed response")

// APIError is returned for non-2xx responses. Message holds the error text
// sent by the server, if any.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode,
			http.StatusText(e.StatusCode))
	}

	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// ServerMessage returns the error text sent by the server.
func (e *APIError) ServerMessage() string {
	return e.Message
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		apiErr.StatusCode == http.StatusNotFound
}
