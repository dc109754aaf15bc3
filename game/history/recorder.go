package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/chip-tracker/game/engine"
)

// Entry is one resolved hand.
type Entry struct {
	ID      string    `json:"id"`
	Room    string    `json:"room"`
	EndedAt time.Time `json:"ended_at"`
	engine.HandResult
}

// NewEntry stamps a hand result with an ID and the current time.
func NewEntry(room string, result engine.HandResult) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Room:       room,
		EndedAt:    time.Now().UTC(),
		HandResult: result,
	}
}

// Recorder stores or forwards resolved hands.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Multi fans an entry out to every recorder. All recorders are tried; the
// errors are joined.
func Multi(recorders ...Recorder) Recorder {
	return multiRecorder(recorders)
}

type multiRecorder []Recorder

func (m multiRecorder) Record(ctx context.Context, entry Entry) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
