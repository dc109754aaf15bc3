package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wricardo/chip-tracker/game/config"
	"github.com/wricardo/chip-tracker/game/engine"
	"github.com/wricardo/chip-tracker/game/history"
	"github.com/wricardo/chip-tracker/game/room"
)

// ListRooms summarises every open room. Rooms that close while being read
// are left out.
func (d *Dispatcher) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	rooms := d.rooms.List()
	out := make([]RoomSummary, 0, len(rooms))

	for _, r := range rooms {
		summary := RoomSummary{Code: r.Code, CreatedAt: r.CreatedAt}
		err := r.Do(ctx, func(t *engine.Table) error {
			snap := t.Snapshot()
			summary.Players = len(snap.Players)
			summary.LeaderName = snap.LeaderName
			summary.HandStarted = snap.HandStarted
			summary.HandNumber = snap.HandNumber
			return nil
		})
		if errors.Is(err, room.ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		summary.LastActive = r.LastActive()
		out = append(out, summary)
	}
	return out, nil
}

// GetRoom returns a snapshot read on the room goroutine.
func (d *Dispatcher) GetRoom(ctx context.Context, code string) (*engine.Snapshot, error) {
	r, err := d.rooms.Get(code)
	if err != nil {
		return nil, err
	}

	var snap engine.Snapshot
	if err := r.Do(ctx, func(t *engine.Table) error {
		snap = t.Snapshot()
		return nil
	}); err != nil {
		return nil, err
	}
	return &snap, nil
}

// History returns the recent hands of an open room, oldest first.
func (d *Dispatcher) History(_ context.Context, code string) ([]history.Entry, error) {
	r, err := d.rooms.Get(code)
	if err != nil {
		return nil, err
	}
	if d.hands == nil {
		return []history.Entry{}, nil
	}
	return d.hands.List(r.Code), nil
}

// ListPresets returns the available presets.
func (d *Dispatcher) ListPresets(_ context.Context) ([]*config.Preset, error) {
	if d.presets == nil {
		return []*config.Preset{config.BuiltinPreset()}, nil
	}
	return d.presets.ListPresets()
}

// GetPreset returns one preset by name.
func (d *Dispatcher) GetPreset(_ context.Context, name string) (*config.Preset, error) {
	if d.presets == nil {
		if name == config.DefaultPresetID {
			return config.BuiltinPreset(), nil
		}
		return nil, fmt.Errorf("%w: %s", config.ErrPresetNotFound, name)
	}
	return d.presets.LoadPreset(name)
}
