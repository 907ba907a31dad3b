package models

import "fmt"

// NetworkError covers connectivity failures, timeouts and non-2xx provider statuses.
// StatusCode is zero when no response was received.
type NetworkError struct {
	Message    string
	StatusCode int
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("network error (status %d): %s", e.StatusCode, e.Message)
	}
	return "network error: " + e.Message
}

// MalformedResponseError means the provider body was not a usable forecast.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Reason
}
