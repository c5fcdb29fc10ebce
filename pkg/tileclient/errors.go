package tileclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAnonymous is returned by operations that need a signed-in viewer.
	ErrAnonymous = errors.New("tileclient: no viewer signed in")
	// ErrTogglePending is returned when a toggle is already in flight.
	ErrTogglePending = errors.New("tileclient: save toggle already pending")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tileclient: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
