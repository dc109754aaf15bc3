package service

import (
	"context"

	"github.com/wricardo/chip-tracker/game/config"
	"github.com/wricardo/chip-tracker/game/engine"
	"github.com/wricardo/chip-tracker/game/history"
)

// Reader is the read-only view used by the admin API and MCP tools.
type Reader interface {
	ListRooms(ctx context.Context) ([]RoomSummary, error)
	GetRoom(ctx context.Context, code string) (*engine.Snapshot, error)
	History(ctx context.Context, code string) ([]history.Entry, error)
	ListPresets(ctx context.Context) ([]*config.Preset, error)
	GetPreset(ctx context.Context, name string) (*config.Preset, error)
}

// Handler receives raw client frames and connection loss.
type Handler interface {
	Handle(ctx context.Context, connID string, raw []byte)
	Disconnect(ctx context.Context, connID string)
}

// Notifier delivers a message to one connection. Send must not block for
// long; it is called from room goroutines.
type Notifier interface {
	Send(connID string, msg Message)
}

// PresetSource resolves table presets.
type PresetSource interface {
	LoadPreset(id string) (*config.Preset, error)
	ListPresets() ([]*config.Preset, error)
}

// HandStore holds recent hands per open room.
type HandStore interface {
	List(room string) []history.Entry
	Forget(room string)
}
