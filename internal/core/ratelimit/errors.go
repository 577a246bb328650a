package ratelimit

import "fmt"

// ErrExhausted is a sentinel for the error returned when an admission
// could not be secured within the configured number of attempts.
// Compare with errors.Is.
var ErrExhausted = &ExhaustedError{}

// ExhaustedError is returned by Admit when every attempt found a full
// window. It is fatal to the request that triggered it; the caller
// decides whether to abort or escalate.
type ExhaustedError struct {
	Endpoint string
	Attempts int
}

func (e *ExhaustedError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("rate limit for %q not satisfied after %d attempts", e.Endpoint, e.Attempts)
	}
	return fmt.Sprintf("rate limit not satisfied after %d attempts", e.Attempts)
}

func (e *ExhaustedError) Is(tgt error) bool {
	_, ok := tgt.(*ExhaustedError)
	return ok
}
