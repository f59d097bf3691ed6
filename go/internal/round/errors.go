package round

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidRoomCode = errors.New("room code must be 6 letters or digits")
	ErrInvalidSettings = errors.New("invalid round settings")
	ErrInvalidName     = errors.New("player name is required")
	ErrDuplicateName   = errors.New("player name already checked in")
	ErrInvalidField    = errors.New("field number out of range")
	ErrFieldOccupied   = errors.New("field already has a player")
	ErrInvalidBonus    = errors.New("bonus score must not be negative")
	ErrNoPlayers       = errors.New("no players checked in")
	ErrPlayerNotLoaded = errors.New("no player on field")
	ErrNotRunning      = errors.New("recording is not running")
	ErrAlreadyFinished = errors.New("player already finished")
	ErrWrongStatus     = errors.New("operation not allowed in current round status")
	ErrSessionNotFound = errors.New("session not found")
	ErrUnavailable     = errors.New("remote records unavailable")
)
