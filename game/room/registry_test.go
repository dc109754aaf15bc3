package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/chip-tracker/game/engine"
)

func snapshot(t *testing.T, r *Room) engine.Snapshot {
	t.Helper()
	var snap engine.Snapshot
	require.NoError(t, r.Do(context.Background(), func(table *engine.Table) error {
		snap = table.Snapshot()
		return nil
	}))
	return snap
}

func TestRegistryCreate(t *testing.T) {
	reg := NewRegistry(Options{MaxPlayers: 4})
	defer reg.StopAll()

	r, err := reg.Create("c1", "Alice")
	require.NoError(t, err)
	assert.True(t, ValidCode(r.Code), "bad code %q", r.Code)
	assert.Equal(t, 1, reg.Count())

	snap := snapshot(t, r)
	assert.Equal(t, r.Code, snap.Code)
	assert.Equal(t, "c1", snap.Leader)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Alice", snap.Players[0].Name)
	assert.False(t, snap.GameConfigured)

	t.Run("invalid name registers nothing", func(t *testing.T) {
		_, err := reg.Create("c2", "  ")
		assert.ErrorIs(t, err, engine.ErrInvalidName)
		assert.Equal(t, 1, reg.Count())
	})

	t.Run("codes are unique", func(t *testing.T) {
		seen := map[string]bool{r.Code: true}
		for i := 0; i < 50; i++ {
			other, err := reg.Create("x", "Bob")
			require.NoError(t, err)
			assert.False(t, seen[other.Code], "duplicate code %s", other.Code)
			seen[other.Code] = true
		}
	})
}

func TestRegistryCodeCollisions(t *testing.T) {
	reg := NewRegistry(Options{})
	defer reg.StopAll()

	codes := []string{"ABCD1", "ABCD1", "ABCD1", "XYZ99"}
	reg.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	first, err := reg.Create("c1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "ABCD1", first.Code)

	second, err := reg.Create("c2", "Bob")
	require.NoError(t, err)
	assert.Equal(t, "XYZ99", second.Code)

	reg.newCode = func() (string, error) { return "ABCD1", nil }
	_, err = reg.Create("c3", "Carol")
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)

	reg.newCode = func() (string, error) { return "", errors.New("entropy gone") }
	_, err = reg.Create("c3", "Carol")
	assert.Error(t, err)
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry(Options{})
	defer reg.StopAll()
	reg.newCode = func() (string, error) { return "ABCD1", nil }

	created, err := reg.Create("c1", "Alice")
	require.NoError(t, err)

	got, err := reg.Get(" abcd1 ")
	require.NoError(t, err)
	assert.Same(t, created, got)

	_, err = reg.Get("ZZZZZ")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	require.NoError(t, reg.Remove("abcd1"))
	_, err = reg.Get("ABCD1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.ErrorIs(t, reg.Remove("ABCD1"), ErrRoomNotFound)
}

func TestRoomClosesWhenEmpty(t *testing.T) {
	reg := NewRegistry(Options{})
	defer reg.StopAll()

	r, err := reg.Create("c1", "Alice")
	require.NoError(t, err)

	err = r.Do(context.Background(), func(table *engine.Table) error {
		_, err := table.Remove("c1", false)
		return err
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := reg.Get(r.Code)
		return errors.Is(err, ErrRoomNotFound)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, reg.Count())

	err = r.Do(context.Background(), func(*engine.Table) error { return nil })
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestRoomSerializesJobs(t *testing.T) {
	reg := NewRegistry(Options{})
	defer reg.StopAll()
	r, err := reg.Create("c1", "Alice")
	require.NoError(t, err)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Do(context.Background(), func(*engine.Table) error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	require.NoError(t, r.Do(context.Background(), func(*engine.Table) error {
		assert.Equal(t, 100, counter)
		return nil
	}))
}

func TestRoomRecoversFromPanics(t *testing.T) {
	reg := NewRegistry(Options{})
	defer reg.StopAll()
	r, err := reg.Create("c1", "Alice")
	require.NoError(t, err)

	err = r.Do(context.Background(), func(*engine.Table) error {
		panic("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, "Alice", snapshot(t, r).LeaderName)
}

func TestRoomDoHonoursContext(t *testing.T) {
	reg := NewRegistry(Options{})
	defer reg.StopAll()
	r, err := reg.Create("c1", "Alice")
	require.NoError(t, err)

	// Hold the actor so the queue fills up.
	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = r.Do(context.Background(), func(*engine.Table) error {
			close(started)
			<-release
			return nil
		})
	}()
	defer close(release)

	<-started
	for i := 0; i < jobBuffer; i++ {
		r.jobs <- job{fn: func(*engine.Table) error { return nil }, resp: make(chan error, 1)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = r.Do(ctx, func(*engine.Table) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCleanupIdle(t *testing.T) {
	reg := NewRegistry(Options{})
	defer reg.StopAll()

	stale, err := reg.Create("c1", "Alice")
	require.NoError(t, err)
	fresh, err := reg.Create("c2", "Bob")
	require.NoError(t, err)
	stale.lastActive.Store(time.Now().Add(-2 * time.Hour).UnixNano())

	var notified []string
	removed := reg.CleanupIdle(context.Background(), time.Hour, func(r *Room, table *engine.Table) {
		notified = append(notified, table.Snapshot().Players[0].Name)
	})

	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"Alice"}, notified)
	assert.True(t, stale.Closed())
	assert.False(t, fresh.Closed())
	assert.Equal(t, 1, reg.Count())
}

func TestReadsLeaveIdleClock(t *testing.T) {
	reg := NewRegistry(Options{})
	defer reg.StopAll()

	r, err := reg.Create("c1", "Alice")
	require.NoError(t, err)
	r.lastActive.Store(time.Now().Add(-2 * time.Hour).UnixNano())

	snapshot(t, r)
	assert.True(t, r.IsIdleFor(time.Hour, time.Now()), "a read must not count as activity")

	r.Touch()
	assert.False(t, r.IsIdleFor(time.Hour, time.Now()))

	r.lastActive.Store(time.Now().Add(-2 * time.Hour).UnixNano())
	snapshot(t, r)
	assert.Equal(t, 1, reg.CleanupIdle(context.Background(), time.Hour, nil))
	assert.True(t, r.Closed())
}

func TestClose(t *testing.T) {
	reg := NewRegistry(Options{})
	defer reg.StopAll()
	ctx := context.Background()

	r, err := reg.Create("c1", "Alice")
	require.NoError(t, err)

	closed, err := r.Close(ctx, func(*engine.Table) bool { return false })
	require.NoError(t, err)
	assert.False(t, closed)
	assert.False(t, r.Closed())

	closed, err = r.Close(ctx, nil)
	require.NoError(t, err)
	assert.True(t, closed)

	// gone from the registry as soon as Close returns
	_, err = reg.Get(r.Code)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	err = r.Do(ctx, func(*engine.Table) error { return nil })
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("ABCD1"))
	assert.False(t, ValidCode("abcd1"))
	assert.False(t, ValidCode("ABCD"))
	assert.False(t, ValidCode("ABCD-"))
	assert.Equal(t, "ABCD1", NormalizeCode(" abcd1\n"))
}
