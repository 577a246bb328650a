package semrush

import (
	"fmt"
	"time"
)

// APIError reports a failed analytics API call.
type APIError struct {
	Message      string
	StatusCode   int
	ResponseText string

	// RetryAfter is the server-suggested backoff from a 429 response,
	// zero when the header was absent or unparseable.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("semrush: %s (status %d)", e.Message, e.StatusCode)
	}
	return "semrush: " + e.Message
}
