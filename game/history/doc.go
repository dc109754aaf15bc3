// Package history records resolved hands.
//
// Recorders:
//   - Memory keeps the last N hands of each open room for the admin API
//   - FileArchive appends hands to <dir>/<ROOM>.jsonl
//   - NATSPublisher publishes hands to <subject>.<ROOM>
//
// Multi combines them. None of these are used to restore room state.
package history
