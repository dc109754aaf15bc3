package service

import (
	"errors"

	"github.com/wricardo/chip-tracker/game/config"
	"github.com/wricardo/chip-tracker/game/engine"
	"github.com/wricardo/chip-tracker/game/room"
)

var (
	ErrNotInRoom     = errors.New("you are not in that room")
	ErrAlreadySeated = errors.New("connection is already in a room")
	ErrBadRequest    = errors.New("bad request")
)

// errorCodes is checked in order; the first match wins.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrBadRequest, "BadRequest"},
	{ErrNotInRoom, "NotInRoom"},
	{ErrAlreadySeated, "AlreadySeated"},
	{room.ErrRoomNotFound, "RoomNotFound"},
	{room.ErrRoomClosed, "RoomClosed"},
	{room.ErrCodeSpaceExhausted, "CodeSpaceExhausted"},
	{engine.ErrNameTaken, "NameTaken"},
	{engine.ErrNotLeader, "NotLeader"},
	{engine.ErrHandInProgress, "HandInProgress"},
	{engine.ErrInvalidConfig, "InvalidConfig"},
	{engine.ErrOutOfTurn, "OutOfTurn"},
	{engine.ErrHandNotStarted, "HandNotStarted"},
	{engine.ErrInvalidAmount, "InvalidAmount"},
	{engine.ErrUnknownPlayer, "UnknownPlayer"},
	{engine.ErrRoomFull, "RoomFull"},
	{engine.ErrNotEnoughPlayers, "NotEnoughPlayers"},
	{engine.ErrIllegalAction, "IllegalAction"},
	{engine.ErrInvalidName, "InvalidName"},
	{engine.ErrUnknownAction, "BadRequest"},
	{config.ErrPresetNotFound, "PresetNotFound"},
	{config.ErrInvalidPreset, "InvalidConfig"},
}

// ErrorCode maps an error to its wire code. Unrecognised errors are
// "Internal".
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "Internal"
}
