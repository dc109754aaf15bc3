package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/chip-tracker/game/config"
	"github.com/wricardo/chip-tracker/game/engine"
	"github.com/wricardo/chip-tracker/game/history"
	"github.com/wricardo/chip-tracker/game/room"
	"github.com/wricardo/chip-tracker/game/service"
)

// inbox collects everything sent to each connection.
type inbox struct {
	mu   sync.Mutex
	msgs map[string][]service.Message
}

func newInbox() *inbox {
	return &inbox{msgs: make(map[string][]service.Message)}
}

func (in *inbox) Send(connID string, msg service.Message) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.msgs[connID] = append(in.msgs[connID], msg)
}

func (in *inbox) all(connID string) []service.Message {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]service.Message(nil), in.msgs[connID]...)
}

func (in *inbox) clear(connID string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.msgs, connID)
}

func (in *inbox) last(t *testing.T, connID, event string) service.Message {
	t.Helper()
	msgs := in.all(connID)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Event == event {
			return msgs[i]
		}
	}
	t.Fatalf("%s received no %s", connID, event)
	return service.Message{}
}

func (in *inbox) snapshot(t *testing.T, connID string) engine.Snapshot {
	t.Helper()
	snap, ok := in.last(t, connID, service.EventRoomUpdate).Data.(engine.Snapshot)
	require.True(t, ok)
	return snap
}

func (in *inbox) logs(connID string) []string {
	var out []string
	for _, m := range in.all(connID) {
		if m.Event == service.EventActionLog {
			out = append(out, m.Data.(service.ActionLogData).Message)
		}
	}
	return out
}

func (in *inbox) lastError(t *testing.T, connID string) service.ErrorData {
	t.Helper()
	msgs := in.all(connID)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Event == service.EventError || msgs[i].Event == service.EventJoinError {
			return msgs[i].Data.(service.ErrorData)
		}
	}
	t.Fatalf("%s received no error", connID)
	return service.ErrorData{}
}

type fixture struct {
	d     *service.Dispatcher
	rooms *room.Registry
	hands *history.Memory
	in    *inbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	presets, err := config.NewManager("")
	require.NoError(t, err)

	rooms := room.NewRegistry(room.Options{})
	t.Cleanup(rooms.StopAll)

	hands := history.NewMemory(10)
	in := newInbox()
	d := service.New(service.Options{
		Rooms:    rooms,
		Presets:  presets,
		Recorder: hands,
		Hands:    hands,
		Notifier: in,
	})
	return &fixture{d: d, rooms: rooms, hands: hands, in: in}
}

func (f *fixture) send(t *testing.T, connID, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	require.NoError(t, err)
	f.d.Handle(context.Background(), connID, raw)
}

// create opens a room for connID and returns its code.
func (f *fixture) create(t *testing.T, connID, name string) string {
	t.Helper()
	f.send(t, connID, service.EventCreateRoom, map[string]any{"name": name})
	msg := f.in.last(t, connID, service.EventRoomCreated)
	return msg.Data.(service.RoomCreatedData).Code
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestHeadsUpThroughDispatcher(t *testing.T) {
	f := newFixture(t)

	code := f.create(t, "a", "Alice")
	assert.True(t, room.ValidCode(code))
	f.send(t, "b", service.EventJoinRoom, map[string]any{"name": "Bob", "room": code})

	f.send(t, "a", service.EventConfigureGame, map[string]any{
		"room": code, "starting_chips": 10, "small_blind": "0.10", "big_blind": 0.20,
	})
	f.send(t, "a", service.EventStartHand, map[string]any{"code": code})

	for _, conn := range []string{"a", "b"} {
		snap := f.in.snapshot(t, conn)
		assert.True(t, snap.HandStarted)
		assert.Equal(t, "Alice", snap.Dealer)
		assert.Equal(t, "Alice", snap.CurrentTurn)
		assert.True(t, snap.Pot.Equal(d("0.30")), "pot %s", snap.Pot)
		assert.True(t, snap.CallAmount.Equal(d("0.10")), "call %s", snap.CallAmount)
	}

	f.send(t, "a", service.EventAction, map[string]any{"room": code, "action": "call"})
	f.send(t, "b", service.EventAction, map[string]any{"room": code, "action": "check"})

	snap := f.in.snapshot(t, "a")
	assert.Equal(t, engine.RoundFlop, snap.Round)
	assert.Equal(t, "Bob", snap.CurrentTurn)
	assert.Contains(t, f.in.logs("b"), "--- FLOP ---")

	f.in.clear("a")
	f.send(t, "a", service.EventDeclareWinner, map[string]any{"room": code, "winner": "Bob"})

	msgs := f.in.all("a")
	require.GreaterOrEqual(t, len(msgs), 3)
	assert.Equal(t, service.EventActionLog, msgs[0].Event)
	assert.Equal(t, "Bob wins $0.40!", msgs[0].Data.(service.ActionLogData).Message)
	assert.Equal(t, service.EventHandOver, msgs[1].Event)
	over := msgs[1].Data.(service.HandOverData)
	assert.Equal(t, "Bob", over.Winner)
	assert.True(t, over.Pot.Equal(d("0.40")))
	assert.Equal(t, service.EventRoomUpdate, msgs[2].Event)

	snap = msgs[2].Data.(engine.Snapshot)
	assert.False(t, snap.HandStarted)
	assert.True(t, snap.Pot.IsZero())
	assert.True(t, snap.Players[0].Chips.Equal(d("9.80")))
	assert.True(t, snap.Players[1].Chips.Equal(d("10.20")))

	hands := f.hands.List(code)
	require.Len(t, hands, 1)
	assert.Equal(t, "Bob", hands[0].Winner)
	assert.Equal(t, 1, hands[0].Number)
}

func TestConcurrentDuplicateNames(t *testing.T) {
	f := newFixture(t)
	code := f.create(t, "host", "Alice")

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.send(t, fmt.Sprintf("c%d", i), service.EventJoinRoom, map[string]any{"name": "Carol", "room": code})
		}(i)
	}
	wg.Wait()

	joined, taken := 0, 0
	for i := 0; i < n; i++ {
		conn := fmt.Sprintf("c%d", i)
		if _, ok := f.d.RoomOf(conn); ok {
			joined++
			continue
		}
		e := f.in.lastError(t, conn)
		assert.Equal(t, "NameTaken", e.Code)
		taken++
	}
	assert.Equal(t, 1, joined)
	assert.Equal(t, n-1, taken)

	snap := f.in.snapshot(t, "host")
	assert.Len(t, snap.Players, 2)
}

func TestJoinErrors(t *testing.T) {
	f := newFixture(t)
	code := f.create(t, "a", "Alice")

	f.send(t, "b", service.EventJoinRoom, map[string]any{"name": "Bob", "room": "ZZZZZ"})
	msg := f.in.last(t, "b", service.EventJoinError)
	assert.Equal(t, "RoomNotFound", msg.Data.(service.ErrorData).Code)

	f.send(t, "b", service.EventJoinRoom, map[string]any{"name": "Alice", "room": code})
	assert.Equal(t, "NameTaken", f.in.lastError(t, "b").Code)

	// codes are case-insensitive
	f.send(t, "b", service.EventJoinRoom, map[string]any{"name": "Bob", "room": " " + strings.ToLower(code)})
	_, seated := f.d.RoomOf("b")
	assert.True(t, seated)

	f.send(t, "b", service.EventJoinRoom, map[string]any{"name": "Bobby", "room": code})
	assert.Equal(t, "AlreadySeated", f.in.lastError(t, "b").Code)

	f.send(t, "a", service.EventCreateRoom, map[string]any{"name": "Again"})
	assert.Equal(t, "AlreadySeated", f.in.lastError(t, "a").Code)
}

func TestNotInRoom(t *testing.T) {
	f := newFixture(t)
	code := f.create(t, "a", "Alice")
	other := f.create(t, "x", "Xavier")

	f.send(t, "stranger", service.EventStartHand, map[string]any{"code": code})
	e := f.in.lastError(t, "stranger")
	assert.Equal(t, "NotInRoom", e.Code)
	assert.Equal(t, service.EventError, f.in.all("stranger")[0].Event)

	f.send(t, "a", service.EventOpenConfig, map[string]any{"room": other})
	assert.Equal(t, "NotInRoom", f.in.lastError(t, "a").Code)

	snap := f.in.snapshot(t, "x")
	assert.False(t, snap.ShowConfig)
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t)
	code := f.create(t, "a", "Alice")
	before := f.in.snapshot(t, "a")

	f.d.Handle(context.Background(), "a", []byte("{not json"))
	assert.Equal(t, "BadRequest", f.in.lastError(t, "a").Code)

	cases := []struct {
		name  string
		event string
		data  any
	}{
		{"unknown event", "shuffle", map[string]any{"room": code}},
		{"missing data", service.EventAction, nil},
		{"unknown action", service.EventAction, map[string]any{"room": code, "action": "bet"}},
		{"raise without amount", service.EventAction, map[string]any{"room": code, "action": "raise"}},
		{"configure without blinds", service.EventConfigureGame, map[string]any{"room": code, "starting_chips": 5}},
		{"declare without winner", service.EventDeclareWinner, map[string]any{"room": code}},
		{"wrong field type", service.EventJoinRoom, map[string]any{"room": 7}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.send(t, "a", tc.event, tc.data)
			assert.Equal(t, "BadRequest", f.in.lastError(t, "a").Code)
		})
	}

	assert.Equal(t, before, f.in.snapshot(t, "a"))
}

func TestConfigureGame(t *testing.T) {
	f := newFixture(t)
	code := f.create(t, "a", "Alice")
	f.send(t, "b", service.EventJoinRoom, map[string]any{"name": "Bob", "room": code})

	t.Run("leader only", func(t *testing.T) {
		f.send(t, "b", service.EventConfigureGame, map[string]any{
			"room": code, "starting_chips": 5, "small_blind": 1, "big_blind": 2,
		})
		assert.Equal(t, "NotLeader", f.in.lastError(t, "b").Code)
	})

	t.Run("invalid amounts", func(t *testing.T) {
		f.send(t, "a", service.EventConfigureGame, map[string]any{
			"room": code, "starting_chips": 5, "small_blind": 2, "big_blind": 1,
		})
		assert.Equal(t, "InvalidConfig", f.in.lastError(t, "a").Code)
	})

	t.Run("unknown preset", func(t *testing.T) {
		f.send(t, "a", service.EventConfigureGame, map[string]any{"room": code, "preset": "nope"})
		assert.Equal(t, "InvalidConfig", f.in.lastError(t, "a").Code)
	})

	t.Run("preset with override", func(t *testing.T) {
		f.send(t, "a", service.EventConfigureGame, map[string]any{
			"room": code, "preset": "classic", "big_blind": "0.50",
		})
		snap := f.in.snapshot(t, "b")
		assert.True(t, snap.GameConfigured)
		assert.True(t, snap.StartingChips.Equal(d("10")))
		assert.True(t, snap.SmallBlind.Equal(d("0.10")))
		assert.True(t, snap.BigBlind.Equal(d("0.50")))
		assert.Contains(t, f.in.logs("b"), "Game configured: $10.00 starting, blinds $0.10/$0.50")
	})
}

func TestConfigHint(t *testing.T) {
	f := newFixture(t)
	code := f.create(t, "a", "Alice")
	f.send(t, "b", service.EventJoinRoom, map[string]any{"name": "Bob", "room": code})

	f.send(t, "b", service.EventOpenConfig, map[string]any{"room": code})
	assert.Equal(t, "NotLeader", f.in.lastError(t, "b").Code)

	f.send(t, "a", service.EventOpenConfig, map[string]any{"room": code})
	assert.True(t, f.in.snapshot(t, "b").ShowConfig)

	f.send(t, "b", service.EventCloseConfig, map[string]any{"room": code})
	assert.False(t, f.in.snapshot(t, "a").ShowConfig)
}

func TestLeaveAndDisconnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := f.create(t, "a", "Alice")
	f.send(t, "b", service.EventJoinRoom, map[string]any{"name": "Bob", "room": code})
	f.send(t, "c", service.EventJoinRoom, map[string]any{"name": "Carol", "room": code})

	f.d.Disconnect(ctx, "a")
	snap := f.in.snapshot(t, "b")
	assert.Equal(t, "b", snap.Leader)
	assert.Equal(t, "Bob", snap.LeaderName)
	assert.Contains(t, f.in.logs("c"), "Alice disconnected.")
	assert.Contains(t, f.in.logs("c"), "Bob is now the room leader.")
	_, bound := f.d.RoomOf("a")
	assert.False(t, bound)

	f.send(t, "b", service.EventLeaveRoom, map[string]any{"room": code})
	assert.Contains(t, f.in.logs("c"), "Bob has left the room.")
	assert.Equal(t, "Carol", f.in.snapshot(t, "c").LeaderName)

	// a departed connection can join another room
	other := f.create(t, "b", "Bob")
	assert.NotEqual(t, code, other)

	f.d.Disconnect(ctx, "c")
	_, err := f.rooms.Get(code)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	// disconnecting an unbound connection is harmless
	f.d.Disconnect(ctx, "nobody")
}

func TestDepartureMidHandKeepsPot(t *testing.T) {
	f := newFixture(t)
	code := f.create(t, "a", "Alice")
	f.send(t, "b", service.EventJoinRoom, map[string]any{"name": "Bob", "room": code})
	f.send(t, "c", service.EventJoinRoom, map[string]any{"name": "Carol", "room": code})
	f.send(t, "a", service.EventConfigureGame, map[string]any{"room": code, "preset": "classic"})
	f.send(t, "a", service.EventStartHand, map[string]any{"code": code})

	// dealer Alice, Bob small blind, Carol big blind
	snap := f.in.snapshot(t, "a")
	require.Equal(t, "Alice", snap.CurrentTurn)
	f.d.Disconnect(context.Background(), "c")

	snap = f.in.snapshot(t, "a")
	assert.True(t, snap.Pot.Equal(d("0.30")), "pot %s", snap.Pot)
	assert.Len(t, snap.Players, 2)

	f.send(t, "a", service.EventDeclareWinner, map[string]any{"room": code, "winner": "Alice"})
	snap = f.in.snapshot(t, "a")
	assert.True(t, snap.Players[0].Chips.Equal(d("10.30")))
	assert.True(t, snap.Players[1].Chips.Equal(d("9.90")))
}

func TestSweepIdle(t *testing.T) {
	f := newFixture(t)
	code := f.create(t, "a", "Alice")
	f.send(t, "b", service.EventJoinRoom, map[string]any{"name": "Bob", "room": code})

	n := f.d.SweepIdle(context.Background(), 0)
	assert.Equal(t, 1, n)

	for _, conn := range []string{"a", "b"} {
		assert.Equal(t, "RoomClosed", f.in.lastError(t, conn).Code)
		_, bound := f.d.RoomOf(conn)
		assert.False(t, bound)
	}
	_, err := f.rooms.Get(code)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestSweepIgnoresAdminReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := f.create(t, "a", "Alice")

	time.Sleep(60 * time.Millisecond)
	_, err := f.d.GetRoom(ctx, code)
	require.NoError(t, err)
	_, err = f.d.ListRooms(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, f.d.SweepIdle(ctx, 50*time.Millisecond))
	assert.Equal(t, "RoomClosed", f.in.lastError(t, "a").Code)
}

func TestSweepSparesActiveRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := f.create(t, "a", "Alice")

	time.Sleep(60 * time.Millisecond)
	f.send(t, "a", service.EventOpenConfig, map[string]any{"room": code})

	assert.Equal(t, 0, f.d.SweepIdle(ctx, 50*time.Millisecond))
	_, err := f.rooms.Get(code)
	assert.NoError(t, err)
}

func TestJoinAfterSweep(t *testing.T) {
	f := newFixture(t)
	code := f.create(t, "a", "Alice")
	require.Equal(t, 1, f.d.SweepIdle(context.Background(), 0))

	f.send(t, "c", service.EventJoinRoom, map[string]any{"name": "Carol", "room": code})
	assert.Equal(t, "RoomNotFound", f.in.lastError(t, "c").Code)
	_, bound := f.d.RoomOf("c")
	assert.False(t, bound)

	// the connection is free to start over
	f.create(t, "c", "Carol")
	_, bound = f.d.RoomOf("c")
	assert.True(t, bound)
}

func TestHistoryForgottenWhenRoomEmpties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := f.create(t, "a", "Alice")
	f.send(t, "b", service.EventJoinRoom, map[string]any{"name": "Bob", "room": code})
	f.send(t, "a", service.EventConfigureGame, map[string]any{"room": code, "preset": "classic"})
	f.send(t, "a", service.EventStartHand, map[string]any{"code": code})
	f.send(t, "a", service.EventDeclareWinner, map[string]any{"room": code, "winner": "Bob"})

	// recorded by the time the request returns
	require.Len(t, f.hands.List(code), 1)

	f.d.Disconnect(ctx, "a")
	f.d.Disconnect(ctx, "b")
	assert.Empty(t, f.hands.List(code))
}

func TestReader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := f.create(t, "a", "Alice")
	f.send(t, "b", service.EventJoinRoom, map[string]any{"name": "Bob", "room": code})

	rooms, err := f.d.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, code, rooms[0].Code)
	assert.Equal(t, 2, rooms[0].Players)
	assert.Equal(t, "Alice", rooms[0].LeaderName)

	snap, err := f.d.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Len(t, snap.Players, 2)

	_, err = f.d.GetRoom(ctx, "NOPE1")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	hands, err := f.d.History(ctx, code)
	require.NoError(t, err)
	assert.Empty(t, hands)

	_, err = f.d.History(ctx, "NOPE1")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	presets, err := f.d.ListPresets(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, presets)

	p, err := f.d.GetPreset(ctx, "classic")
	require.NoError(t, err)
	assert.True(t, p.BigBlind.Equal(d("0.20")))

	_, err = f.d.GetPreset(ctx, "missing")
	assert.ErrorIs(t, err, config.ErrPresetNotFound)
}

func TestErrorCode(t *testing.T) {
	cases := map[error]string{
		engine.ErrNameTaken:                                "NameTaken",
		fmt.Errorf("wrapped: %w", engine.ErrInvalidAmount): "InvalidAmount",
		room.ErrRoomNotFound:                               "RoomNotFound",
		service.ErrNotInRoom:                               "NotInRoom",
		fmt.Errorf("%w: x", service.ErrBadRequest):         "BadRequest",
		context.Canceled:                                   "Internal",

		fmt.Errorf("%w: %w", engine.ErrInvalidConfig, config.ErrPresetNotFound): "InvalidConfig",
	}
	for err, want := range cases {
		assert.Equal(t, want, service.ErrorCode(err), err.Error())
	}
}
