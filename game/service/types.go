package service

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Inbound events.
const (
	EventCreateRoom    = "create_room"
	EventJoinRoom      = "join_room"
	EventLeaveRoom     = "leave_room"
	EventConfigureGame = "configure_game"
	EventStartHand     = "start_hand"
	EventAction        = "action"
	EventDeclareWinner = "declare_winner"
	EventOpenConfig    = "open_config"
	EventCloseConfig   = "close_config"
)

// Outbound events.
const (
	EventRoomCreated = "room_created"
	EventRoomUpdate  = "room_update"
	EventJoinError   = "join_error"
	EventError       = "error"
	EventActionLog   = "action_log"
	EventHandOver    = "hand_over"
)

// Request is an inbound envelope. Data is decoded once the event is known.
type Request struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Message is an outbound envelope.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// CreateRoomData is the payload of create_room.
type CreateRoomData struct {
	Name string `json:"name"`
}

// JoinRoomData is the payload of join_room.
type JoinRoomData struct {
	Name string `json:"name"`
	Room string `json:"room"`
}

// RoomData is the payload of events that only name a room.
type RoomData struct {
	Room string `json:"room"`
}

// ConfigureData is the payload of configure_game. Explicit amounts override
// the preset, if one is named.
type ConfigureData struct {
	Room          string              `json:"room"`
	Preset        string              `json:"preset,omitempty"`
	StartingChips decimal.NullDecimal `json:"starting_chips"`
	SmallBlind    decimal.NullDecimal `json:"small_blind"`
	BigBlind      decimal.NullDecimal `json:"big_blind"`
}

// StartHandData is the payload of start_hand. Older clients send the room
// under "code".
type StartHandData struct {
	Code string `json:"code"`
	Room string `json:"room"`
}

// ActionData is the payload of action.
type ActionData struct {
	Room   string              `json:"room"`
	Action string              `json:"action"`
	Amount decimal.NullDecimal `json:"amount"`
}

// DeclareWinnerData is the payload of declare_winner.
type DeclareWinnerData struct {
	Room   string `json:"room"`
	Winner string `json:"winner"`
}

// RoomCreatedData acknowledges create_room.
type RoomCreatedData struct {
	Code string `json:"code"`
}

// ErrorData is the payload of join_error and error.
type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ActionLogData is one line of narration.
type ActionLogData struct {
	Message string `json:"message"`
}

// HandOverData announces a resolved hand.
type HandOverData struct {
	Winner string          `json:"winner"`
	Pot    decimal.Decimal `json:"pot"`
}

// RoomSummary is the admin view of a room.
type RoomSummary struct {
	Code        string    `json:"code"`
	Players     int       `json:"players"`
	LeaderName  string    `json:"leader_name"`
	HandStarted bool      `json:"hand_started"`
	HandNumber  int       `json:"hand_number"`
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`
}
