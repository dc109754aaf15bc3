// Package room provides the room registry and the per-room actor.
//
// A Registry hands out 5-character room codes, maps codes to rooms and
// closes rooms that have gone empty or idle. Each Room owns an
// engine.Table and applies work to it from its own goroutine, so all changes
// to one room happen one at a time in submission order while different
// rooms run in parallel.
//
// Usage:
//
//	registry := room.NewRegistry(room.Options{MaxPlayers: 10})
//	r, err := registry.Create(connID, "Alice")
//
//	err = r.Do(ctx, func(t *engine.Table) error {
//		return t.StartHand(connID)
//	})
package room
