package bridge

import "errors"

var (
	// ErrInvalidPayload is returned when a command payload cannot be parsed.
	ErrInvalidPayload = errors.New("bridge: invalid payload")

	// ErrUnknownCommand is returned for a set topic the bridge does not handle.
	ErrUnknownCommand = errors.New("bridge: unknown command")

	// ErrNoHistory is returned when history is requested but no access log is wired.
	ErrNoHistory = errors.New("bridge: access log not configured")
)
