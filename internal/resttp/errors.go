package resttp

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBaseURL indicates the provider returned no base URL for the task service.
	ErrNoBaseURL = errors.New("resttp: no base URL available")
)

// StatusError reports a response outside the 2xx range. Body carries a
// truncated copy of the response body for diagnostics.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("resttp: %s %s returned %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("resttp: %s %s returned %d: %s", e.Method, e.URL, e.Status, e.Body)
}
