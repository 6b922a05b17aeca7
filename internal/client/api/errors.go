package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse indicates a 2xx response whose body has the wrong shape.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError is a non-2xx response from the catalog server.
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
