// Package service connects clients to rooms.
//
// The Dispatcher decodes {"event", "data"} frames, checks that the sender is
// seated in the room it names and submits the change to that room's
// goroutine. Inside the job it drains the table's narration, then sends
// action_log, hand_over and room_update messages to every seated connection
// through a Notifier. Failures go only to the sender, as join_error for
// create and join requests and as error for everything else, with a code
// from ErrorCode.
//
// Typical wiring:
//
//	rooms := room.NewRegistry(room.Options{})
//	d := service.New(service.Options{Rooms: rooms, Presets: presets, Recorder: rec, Hands: mem})
//	hub := websocket.NewHub(d, logger)
//	d.SetNotifier(hub)
//
// The same Dispatcher implements Reader for the admin API and MCP tools.
// Snapshots are read on the room goroutine so they always reflect a fully
// applied change.
package service
