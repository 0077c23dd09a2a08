package events

import "errors"

// ErrBusClosed is returned by Publish once the bus has been stopped.
// Subscribing to a stopped bus returns a no-op unsubscribe function.
var ErrBusClosed = errors.New("events: bus is stopped")

// SubscriberHandlerError wraps a panic or error recovered from a
// subscriber's handler. It is logged, never propagated to the publisher.
type SubscriberHandlerError struct {
	SubscriberID uint64
	Cause        any
}

func (e *SubscriberHandlerError) Error() string {
	return "events: subscriber handler error"
}

// PersistenceError wraps a failure reading the durable event log during
// replay. A failure writing the log is logged by Publish instead, and
// event dispatch proceeds regardless.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string {
	return "events: persistence failed: " + e.Cause.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Cause }
