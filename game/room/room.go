package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/chip-tracker/game/engine"
)

// ErrRoomClosed is returned for work submitted to a room whose actor has
// stopped.
var ErrRoomClosed = errors.New("room is closed")

const jobBuffer = 256

type job struct {
	fn   func(*engine.Table) error
	resp chan error
}

// Room owns one Table and applies work to it from a single goroutine, one
// job at a time, in the order jobs were submitted.
type Room struct {
	Code      string
	CreatedAt time.Time

	table      *engine.Table
	jobs       chan job
	done       chan struct{}
	stopOnce   sync.Once
	lastActive atomic.Int64
	closing    bool
	onEmpty    func(*Room)
	logger     *slog.Logger
}

func newRoom(code string, table *engine.Table, onEmpty func(*Room), logger *slog.Logger) *Room {
	now := time.Now()
	r := &Room{
		Code:      code,
		CreatedAt: now,
		table:     table,
		jobs:      make(chan job, jobBuffer),
		done:      make(chan struct{}),
		onEmpty:   onEmpty,
		logger:    logger.With("room", code),
	}
	r.lastActive.Store(now.UnixNano())
	go r.run()
	return r
}

func (r *Room) run() {
	for {
		select {
		case j := <-r.jobs:
			err := r.apply(j.fn)
			// Deregister before replying so the caller never sees the
			// empty room in the registry.
			if r.closing && r.onEmpty != nil {
				r.onEmpty(r)
			}
			j.resp <- err
			if r.closing {
				r.Stop()
				return
			}
		case <-r.done:
			r.logger.Debug("room actor stopped")
			return
		}
	}
}

func (r *Room) apply(fn func(*engine.Table) error) (err error) {
	if r.closing {
		return ErrRoomClosed
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("room job panicked", "panic", rec)
			err = fmt.Errorf("room %s: internal error", r.Code)
		}
	}()

	err = fn(r.table)
	if r.table.Empty() {
		r.closing = true
	}
	return err
}

// Do runs fn against the room's table on the room goroutine and returns its
// error. The context bounds only the wait to enqueue: once accepted, a job
// always runs to completion. A job that leaves the table empty closes the
// room; later jobs fail with ErrRoomClosed.
func (r *Room) Do(ctx context.Context, fn func(*engine.Table) error) error {
	j := job{fn: fn, resp: make(chan error, 1)}

	select {
	case r.jobs <- j:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.resp:
		return err
	case <-r.done:
		// The job may have been the one that closed the room.
		select {
		case err := <-j.resp:
			return err
		default:
			return ErrRoomClosed
		}
	}
}

// Close runs fn on the room goroutine and closes the room if it returns true
// (or fn is nil). The room leaves the registry before Close returns, and
// jobs queued behind it fail with ErrRoomClosed.
func (r *Room) Close(ctx context.Context, fn func(*engine.Table) bool) (bool, error) {
	var closed bool
	err := r.Do(ctx, func(t *engine.Table) error {
		if fn == nil || fn(t) {
			r.closing = true
			closed = true
		}
		return nil
	})
	if closed {
		r.Stop()
	}
	return closed, err
}

// Touch marks player activity. Reads leave the idle clock alone.
func (r *Room) Touch() {
	r.lastActive.Store(time.Now().UnixNano())
}

// Stop shuts down the room goroutine. Queued jobs fail with ErrRoomClosed.
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

// Closed reports whether the room goroutine has been stopped.
func (r *Room) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// LastActive returns when a player last acted in the room.
func (r *Room) LastActive() time.Time {
	return time.Unix(0, r.lastActive.Load())
}

// IsIdleFor reports whether no player has acted for at least ttl.
func (r *Room) IsIdleFor(ttl time.Duration, now time.Time) bool {
	return now.Sub(r.LastActive()) >= ttl
}
