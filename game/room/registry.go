package room

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/chip-tracker/game/engine"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrCodeSpaceExhausted = errors.New("could not allocate a room code")
)

const (
	// CodeLength is the number of characters in a room code.
	CodeLength   = 5
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeAttempts = 64
)

// Options configure a Registry.
type Options struct {
	// MaxPlayers caps seats per room. Non-positive means engine.DefaultMaxPlayers.
	MaxPlayers int
	// Defaults returns the settings a new room starts with.
	Defaults func() engine.Settings
	Logger   *slog.Logger
}

// Registry maps room codes to live rooms.
type Registry struct {
	rooms      map[string]*Room
	mu         sync.RWMutex
	maxPlayers int
	defaults   func() engine.Settings
	newCode    func() (string, error)
	logger     *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Defaults == nil {
		opts.Defaults = engine.DefaultSettings
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{
		rooms:      make(map[string]*Room),
		maxPlayers: opts.MaxPlayers,
		defaults:   opts.Defaults,
		newCode:    generateCode,
		logger:     opts.Logger,
	}
}

// Create opens a room with a fresh code and seats connID as its first
// player and leader. Nothing is registered if the player cannot be seated.
func (r *Registry) Create(connID, name string) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.allocateCode()
	if err != nil {
		return nil, err
	}

	table := engine.NewTable(code, r.defaults(), r.maxPlayers)
	if _, err := table.Seat(connID, name); err != nil {
		return nil, err
	}

	room := newRoom(code, table, r.closed, r.logger)
	r.rooms[code] = room
	r.logger.Info("room created", "room", code, "player", strings.TrimSpace(name))
	return room, nil
}

// allocateCode draws codes until one is free. Callers hold r.mu.
func (r *Registry) allocateCode() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := r.newCode()
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := r.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// Get returns the open room for code. Codes are matched case-insensitively.
func (r *Registry) Get(code string) (*Room, error) {
	r.mu.RLock()
	room, ok := r.rooms[NormalizeCode(code)]
	r.mu.RUnlock()

	if !ok || room.Closed() {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// List returns open rooms sorted by code.
func (r *Registry) List() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		result = append(result, room)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result
}

// Count returns the number of open rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Remove closes the room and forgets its code.
func (r *Registry) Remove(code string) error {
	code = NormalizeCode(code)

	r.mu.Lock()
	room, ok := r.rooms[code]
	if ok {
		delete(r.rooms, code)
	}
	r.mu.Unlock()

	if !ok {
		return ErrRoomNotFound
	}
	room.Stop()
	r.logger.Info("room closed", "room", code)
	return nil
}

// closed is called from a room goroutine once it stops taking jobs.
func (r *Registry) closed(room *Room) {
	r.mu.Lock()
	if r.rooms[room.Code] == room {
		delete(r.rooms, room.Code)
	}
	r.mu.Unlock()
	reason := "idle"
	if room.table.Empty() {
		reason = "empty"
	}
	r.logger.Info("room closed", "room", room.Code, "reason", reason)
}

// CleanupIdle closes rooms where no player has acted for maxIdle. Each room
// is checked again on its own goroutine, and beforeClose, if set, runs in
// that same job so it sees exactly the players present at close. It returns
// the number of rooms closed.
func (r *Registry) CleanupIdle(ctx context.Context, maxIdle time.Duration, beforeClose func(*Room, *engine.Table)) int {
	now := time.Now()

	var idle []*Room
	r.mu.RLock()
	for _, room := range r.rooms {
		if room.IsIdleFor(maxIdle, now) {
			idle = append(idle, room)
		}
	}
	r.mu.RUnlock()

	removed := 0
	for _, room := range idle {
		closed, err := room.Close(ctx, func(t *engine.Table) bool {
			if !room.IsIdleFor(maxIdle, time.Now()) {
				return false
			}
			if beforeClose != nil {
				beforeClose(room, t)
			}
			return true
		})
		if err == nil && closed {
			removed++
		}
	}
	return removed
}

// StopAll closes every room.
func (r *Registry) StopAll() {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[string]*Room)
	r.mu.Unlock()

	for _, room := range rooms {
		room.Stop()
	}
}

// NormalizeCode trims and upper-cases a room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code has the room code shape.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			return false
		}
	}
	return true
}

func generateCode() (string, error) {
	size := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
