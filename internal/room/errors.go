package room

import "errors"

// Room operation error types. Callers in the event path treat most of
// these as silent no-ops per the best-effort sync model.
var (
	ErrEmptyUsername       = errors.New("username cannot be empty")
	ErrAlreadyJoined       = errors.New("connection already in room")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotHost             = errors.New("only the host can control the timer")
)
