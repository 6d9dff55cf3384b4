package nws

import "fmt"

// UpstreamError is a transport-level failure against the weather API:
// network error, timeout, open circuit breaker, or a non-2xx status.
type UpstreamError struct {
	Call string
	URL  string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("weather API %s call failed: %v", e.Call, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsTransient reports that retrying later may succeed.
func (e *UpstreamError) IsTransient() bool {
	return true
}

// MalformedResponseError is a structural failure: the upstream answered
// successfully but the payload lacks required fields.
type MalformedResponseError struct {
	Call   string
	URL    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("weather API %s response malformed: %s", e.Call, e.Reason)
}

func (e *MalformedResponseError) IsTransient() bool {
	return false
}
