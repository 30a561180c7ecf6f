package core

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is unknown to the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned when a turn is requested on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrEmptyQuery is returned when a turn is requested without query text.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrCheckpointNotFound is returned when no checkpoint was ever written for a session.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrTurnNotFound is returned when cancelling a turn that is not running.
	ErrTurnNotFound = errors.New("turn not found")

	// ErrCallLimitExceeded is returned by CallBudget once a turn has spent its calls.
	ErrCallLimitExceeded = errors.New("collaborator call limit exceeded")
)
