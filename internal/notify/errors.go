package notify

import (
	"fmt"
	"time"
)

// ThrottleError — хост ответил 429; RetryAfter берется из заголовка Retry-After.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }

// PermanentError — 4xx от хоста, повтор не поможет.
type PermanentError struct {
	StatusCode int
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("webhook rejected message: status %d", e.StatusCode)
}
