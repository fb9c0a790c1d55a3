package common

import "errors"

// --------------------------------------------------------------------------
// Request errors (delivered to response callbacks)
// --------------------------------------------------------------------------

var (
	// ErrTimeout is delivered to a request callback when no response arrived in time.
	// The message is part of the protocol contract with existing peers.
	ErrTimeout = errors.New("Timeout reached")

	// ErrStopped is delivered to outstanding requests when the socket is stopped,
	// and returned by Send after Stop
	ErrStopped = errors.New("socket stopped")
)

// --------------------------------------------------------------------------
// Send and lifecycle errors
// --------------------------------------------------------------------------

var (
	ErrQueueFull      = errors.New("send queue full")
	ErrRoleFixed      = errors.New("socket role already set")
	ErrNotClient      = errors.New("socket is not a client")
	ErrAlreadyStarted = errors.New("socket already started")
	ErrNoErrorHandler = errors.New("no error handler registered")
)

// --------------------------------------------------------------------------
// Wire errors
// --------------------------------------------------------------------------

// ErrProtocol is returned by the frame decoder for malformed input.
// The connection that produced it is reset.
var ErrProtocol = errors.New("protocol error")
