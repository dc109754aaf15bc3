package engine

import "errors"

// Rule violations reported by Table. They are local to the request that
// caused them and never leave the table modified.
var (
	ErrNameTaken        = errors.New("name already taken in this room")
	ErrNotLeader        = errors.New("only the room leader can do that")
	ErrHandInProgress   = errors.New("a hand is in progress")
	ErrInvalidConfig    = errors.New("invalid game configuration")
	ErrOutOfTurn        = errors.New("it is not your turn")
	ErrHandNotStarted   = errors.New("no hand has been started")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrRoomFull         = errors.New("room is full")
	ErrNotEnoughPlayers = errors.New("need at least two players with chips")
	ErrIllegalAction    = errors.New("illegal action")
	ErrInvalidName      = errors.New("invalid player name")
	ErrUnknownAction    = errors.New("unknown action")
)
