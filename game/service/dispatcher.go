package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/chip-tracker/game/config"
	"github.com/wricardo/chip-tracker/game/engine"
	"github.com/wricardo/chip-tracker/game/history"
	"github.com/wricardo/chip-tracker/game/room"
)

// reserved marks a connection whose create or join is in flight.
const reserved = ""

// Options configure a Dispatcher.
type Options struct {
	Rooms    *room.Registry
	Presets  PresetSource
	Recorder history.Recorder
	Hands    HandStore
	Notifier Notifier
	Logger   *slog.Logger
}

// Dispatcher turns client requests into room jobs and fans the results
// out. It tracks which room each connection is seated in.
type Dispatcher struct {
	rooms    *room.Registry
	presets  PresetSource
	recorder history.Recorder
	hands    HandStore
	notifier Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	bindings map[string]string
}

var (
	_ Handler = (*Dispatcher)(nil)
	_ Reader  = (*Dispatcher)(nil)
)

// New creates a dispatcher. Rooms is required.
func New(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Dispatcher{
		rooms:    opts.Rooms,
		presets:  opts.Presets,
		recorder: opts.Recorder,
		hands:    opts.Hands,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		bindings: make(map[string]string),
	}
}

// SetNotifier installs the outbound transport. It must be called before the
// first request is handled.
func (d *Dispatcher) SetNotifier(n Notifier) {
	d.notifier = n
}

// Handle decodes one client frame and applies it. Failures are reported
// privately to connID.
func (d *Dispatcher) Handle(ctx context.Context, connID string, raw []byte) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		d.fail(connID, "", fmt.Errorf("%w: malformed message", ErrBadRequest))
		return
	}

	logger := d.logger.With("conn", connID, "event", req.Event)
	if err := d.dispatch(ctx, connID, req); err != nil {
		logger.Debug("request rejected", "err", err)
		d.fail(connID, req.Event, err)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, connID string, req Request) error {
	switch req.Event {
	case EventCreateRoom:
		var data CreateRoomData
		if err := decode(req.Data, &data); err != nil {
			return err
		}
		return d.CreateRoom(ctx, connID, data.Name)

	case EventJoinRoom:
		var data JoinRoomData
		if err := decode(req.Data, &data); err != nil {
			return err
		}
		if data.Room == "" {
			return missing("room")
		}
		return d.JoinRoom(ctx, connID, data.Room, data.Name)

	case EventLeaveRoom:
		var data RoomData
		if err := decode(req.Data, &data); err != nil {
			return err
		}
		return d.LeaveRoom(ctx, connID, data.Room)

	case EventConfigureGame:
		var data ConfigureData
		if err := decode(req.Data, &data); err != nil {
			return err
		}
		return d.Configure(ctx, connID, data)

	case EventStartHand:
		var data StartHandData
		if err := decode(req.Data, &data); err != nil {
			return err
		}
		code := data.Code
		if code == "" {
			code = data.Room
		}
		return d.StartHand(ctx, connID, code)

	case EventAction:
		var data ActionData
		if err := decode(req.Data, &data); err != nil {
			return err
		}
		return d.Act(ctx, connID, data)

	case EventDeclareWinner:
		var data DeclareWinnerData
		if err := decode(req.Data, &data); err != nil {
			return err
		}
		if data.Winner == "" {
			return missing("winner")
		}
		return d.DeclareWinner(ctx, connID, data.Room, data.Winner)

	case EventOpenConfig, EventCloseConfig:
		var data RoomData
		if err := decode(req.Data, &data); err != nil {
			return err
		}
		open := req.Event == EventOpenConfig
		return d.inRoom(ctx, connID, data.Room, func(t *engine.Table) error {
			if open {
				return t.OpenConfig(connID)
			}
			return t.CloseConfig(connID)
		})
	}
	return fmt.Errorf("%w: unknown event %q", ErrBadRequest, req.Event)
}

// CreateRoom opens a room with connID as its leader.
func (d *Dispatcher) CreateRoom(ctx context.Context, connID, name string) error {
	if err := d.reserve(connID); err != nil {
		return err
	}

	r, err := d.rooms.Create(connID, name)
	if err != nil {
		d.unbind(connID)
		return err
	}

	err = d.run(ctx, r, func(t *engine.Table) error {
		d.bind(connID, r.Code)
		d.send(connID, EventRoomCreated, RoomCreatedData{Code: r.Code})
		return nil
	})
	if err != nil {
		d.unbind(connID)
	}
	return err
}

// JoinRoom seats connID in the room under name.
func (d *Dispatcher) JoinRoom(ctx context.Context, connID, code, name string) error {
	if err := d.reserve(connID); err != nil {
		return err
	}

	r, err := d.rooms.Get(code)
	if err != nil {
		d.unbind(connID)
		return err
	}

	// Bind on the room goroutine so a close queued behind the join
	// unbinds this connection too.
	err = d.run(ctx, r, func(t *engine.Table) error {
		if _, err := t.Seat(connID, name); err != nil {
			return err
		}
		d.bind(connID, r.Code)
		return nil
	})
	if err != nil {
		d.unbind(connID)
		return err
	}
	return nil
}

// LeaveRoom removes connID from its room. The last player out closes the
// room.
func (d *Dispatcher) LeaveRoom(ctx context.Context, connID, code string) error {
	return d.depart(ctx, connID, code, false)
}

// Disconnect is an implicit leave for a closed connection.
func (d *Dispatcher) Disconnect(ctx context.Context, connID string) {
	d.mu.Lock()
	code, ok := d.bindings[connID]
	d.mu.Unlock()
	if !ok || code == reserved {
		d.unbind(connID)
		return
	}

	if err := d.depart(ctx, connID, code, true); err != nil && !errors.Is(err, ErrNotInRoom) {
		d.logger.Warn("disconnect cleanup failed", "conn", connID, "room", code, "err", err)
	}
}

func (d *Dispatcher) depart(ctx context.Context, connID, code string, disconnected bool) error {
	r, err := d.seated(connID, code)
	if err != nil {
		return err
	}

	err = d.run(ctx, r, func(t *engine.Table) error {
		if _, err := t.Remove(connID, disconnected); err != nil {
			return err
		}
		// The code is released only after this job, so nothing can be
		// recorded for a new room under it yet.
		if t.Empty() && d.hands != nil {
			d.hands.Forget(r.Code)
		}
		return nil
	})
	if err != nil && !errors.Is(err, engine.ErrUnknownPlayer) {
		return err
	}

	d.unbind(connID)
	return nil
}

// Configure applies a preset and/or explicit amounts. Without a preset all
// three amounts are required.
func (d *Dispatcher) Configure(ctx context.Context, connID string, data ConfigureData) error {
	var preset *config.Preset
	if data.Preset != "" {
		if d.presets == nil {
			return fmt.Errorf("%w: presets are not available", engine.ErrInvalidConfig)
		}
		p, err := d.presets.LoadPreset(data.Preset)
		if err != nil {
			return fmt.Errorf("%w: %w", engine.ErrInvalidConfig, err)
		}
		preset = p
	} else {
		switch {
		case !data.StartingChips.Valid:
			return missing("starting_chips")
		case !data.SmallBlind.Valid:
			return missing("small_blind")
		case !data.BigBlind.Valid:
			return missing("big_blind")
		}
	}

	return d.inRoom(ctx, connID, data.Room, func(t *engine.Table) error {
		s := t.Settings()
		if preset != nil {
			s = preset.Settings()
		}
		if data.StartingChips.Valid {
			s.StartingChips = data.StartingChips.Decimal
		}
		if data.SmallBlind.Valid {
			s.SmallBlind = data.SmallBlind.Decimal
		}
		if data.BigBlind.Valid {
			s.BigBlind = data.BigBlind.Decimal
		}
		return t.Configure(connID, s)
	})
}

// StartHand deals a new hand.
func (d *Dispatcher) StartHand(ctx context.Context, connID, code string) error {
	return d.inRoom(ctx, connID, code, func(t *engine.Table) error {
		return t.StartHand(connID)
	})
}

// Act applies a betting action.
func (d *Dispatcher) Act(ctx context.Context, connID string, data ActionData) error {
	kind, err := engine.ParseAction(data.Action)
	if err != nil {
		return fmt.Errorf("%w: unknown action %q", ErrBadRequest, data.Action)
	}
	if kind == engine.ActionRaise && !data.Amount.Valid {
		return missing("amount")
	}

	return d.inRoom(ctx, connID, data.Room, func(t *engine.Table) error {
		return t.Act(connID, kind, data.Amount.Decimal)
	})
}

// DeclareWinner awards the pot and resets the hand.
func (d *Dispatcher) DeclareWinner(ctx context.Context, connID, code, winner string) error {
	return d.inRoom(ctx, connID, code, func(t *engine.Table) error {
		_, err := t.DeclareWinner(connID, winner)
		return err
	})
}

// inRoom runs fn in the room connID is seated in, after checking that code
// names that room.
func (d *Dispatcher) inRoom(ctx context.Context, connID, code string, fn func(*engine.Table) error) error {
	r, err := d.seated(connID, code)
	if err != nil {
		return err
	}
	return d.run(ctx, r, func(t *engine.Table) error {
		if t.PlayerByConn(connID) == nil {
			return ErrNotInRoom
		}
		return fn(t)
	})
}

// run applies a player request on the room goroutine. On success the
// drained events and a fresh snapshot are broadcast from inside the job so
// every seat sees updates in the order they were applied. Resolved hands
// are recorded in the same job, before the room can close.
func (d *Dispatcher) run(ctx context.Context, r *room.Room, fn func(*engine.Table) error) error {
	return r.Do(ctx, func(t *engine.Table) error {
		r.Touch()
		if fn != nil {
			if err := fn(t); err != nil {
				t.DrainEvents()
				return err
			}
		}

		events := t.DrainEvents()
		recipients := t.ConnIDs()
		for _, ev := range events {
			switch ev.Kind {
			case engine.EventLog:
				d.broadcast(recipients, EventActionLog, ActionLogData{Message: ev.Message})
			case engine.EventHandOver:
				d.broadcast(recipients, EventHandOver, HandOverData{Winner: ev.Result.Winner, Pot: ev.Result.Pot})
				d.record(ctx, r.Code, *ev.Result)
			}
		}
		d.broadcast(recipients, EventRoomUpdate, t.Snapshot())
		return nil
	})
}

func (d *Dispatcher) record(ctx context.Context, code string, res engine.HandResult) {
	if d.recorder == nil {
		return
	}
	entry := history.NewEntry(code, res)
	if err := d.recorder.Record(ctx, entry); err != nil {
		d.logger.Warn("failed to record hand", "room", code, "hand", res.Number, "err", err)
	}
}

// seated returns the room connID is bound to, which must be code.
func (d *Dispatcher) seated(connID, code string) (*room.Room, error) {
	code = room.NormalizeCode(code)

	d.mu.Lock()
	bound, ok := d.bindings[connID]
	d.mu.Unlock()

	if !ok || bound == reserved || (code != "" && bound != code) {
		return nil, ErrNotInRoom
	}

	r, err := d.rooms.Get(bound)
	if err != nil {
		d.unbind(connID)
		return nil, err
	}
	return r, nil
}

func (d *Dispatcher) reserve(connID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.bindings[connID]; ok {
		return ErrAlreadySeated
	}
	d.bindings[connID] = reserved
	return nil
}

func (d *Dispatcher) bind(connID, code string) {
	d.mu.Lock()
	d.bindings[connID] = code
	d.mu.Unlock()
}

func (d *Dispatcher) unbind(connID string) {
	d.mu.Lock()
	delete(d.bindings, connID)
	d.mu.Unlock()
}

// RoomOf returns the room code connID is seated in.
func (d *Dispatcher) RoomOf(connID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	code, ok := d.bindings[connID]
	return code, ok && code != reserved
}

func (d *Dispatcher) fail(connID, event string, err error) {
	kind := EventError
	if event == EventJoinRoom || event == EventCreateRoom {
		kind = EventJoinError
	}
	d.send(connID, kind, ErrorData{Message: err.Error(), Code: ErrorCode(err)})
}

func (d *Dispatcher) broadcast(connIDs []string, event string, data any) {
	for _, id := range connIDs {
		d.send(id, event, data)
	}
}

func (d *Dispatcher) send(connID, event string, data any) {
	if d.notifier == nil {
		return
	}
	d.notifier.Send(connID, Message{Event: event, Data: data})
}

// SweepIdle closes rooms where no player has acted for maxIdle. Seated
// connections are told the room closed and unbound. Admin reads do not count
// as activity.
func (d *Dispatcher) SweepIdle(ctx context.Context, maxIdle time.Duration) int {
	return d.rooms.CleanupIdle(ctx, maxIdle, func(r *room.Room, t *engine.Table) {
		conns := t.ConnIDs()
		closed := fmt.Errorf("%w: closed after %s without activity", room.ErrRoomClosed, maxIdle)
		for _, id := range conns {
			d.fail(id, "", closed)
			d.unbind(id)
		}
		if d.hands != nil {
			d.hands.Forget(r.Code)
		}
		d.logger.Info("closing idle room", "room", r.Code, "players", len(conns))
	})
}

// RunSweeper calls SweepIdle every interval until ctx is done.
func (d *Dispatcher) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.SweepIdle(ctx, maxIdle); n > 0 {
				d.logger.Info("idle rooms closed", "count", n)
			}
		}
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%w: missing data", ErrBadRequest)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s", ErrBadRequest, strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}

func missing(field string) error {
	return fmt.Errorf("%w: %s is required", ErrBadRequest, field)
}
