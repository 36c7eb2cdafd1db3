package domain

import "fmt"

// FallbackRemoteMessage is used when the provider envelope indicates
// failure but carries no message.
const FallbackRemoteMessage = "provider request failed"

// NetworkError is a transport-level failure reaching the provider:
// connect errors, timeouts, unreadable responses.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteError means the provider responded but the envelope indicates
// failure. Message is the provider's own message.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("provider error during %s (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// PersistenceError is a local store read or write failure. Callers
// recover by continuing with in-memory state; it never reaches a user.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
