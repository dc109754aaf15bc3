// Package api serves the read-only admin API and the WebSocket endpoint.
//
// Endpoints:
//   - GET /api/rooms - open rooms with player counts and last activity
//   - GET /api/rooms/{code} - full room snapshot
//   - GET /api/rooms/{code}/history - recent hands of an open room
//   - GET /api/presets - available table presets
//   - GET /api/presets/{name} - one preset
//   - GET /health - liveness plus room and connection counts
//   - /ws - WebSocket upgrade, see package websocket
//
// Anything else falls through to the static client directory.
//
// Errors are JSON with an HTTP status:
//
//	{"error": "room not found"}
//
// Unknown rooms and presets are 404. Nothing here changes room state; all
// play happens over the WebSocket.
package api
