package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/chip-tracker/game/engine"
)

func entry(room string, number int) Entry {
	return NewEntry(room, engine.HandResult{
		Number: number,
		Winner: "Alice",
		Pot:    decimal.RequireFromString("0.40"),
		Round:  engine.RoundRiver,
		Stacks: []engine.Stack{
			{Name: "Alice", Chips: decimal.RequireFromString("10.20")},
			{Name: "Bob", Chips: decimal.RequireFromString("9.80")},
		},
	})
}

func TestNewEntry(t *testing.T) {
	e := entry("ABCDE", 1)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "ABCDE", e.Room)
	assert.False(t, e.EndedAt.IsZero())
	assert.Equal(t, "Alice", e.Winner)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	for i := 1; i <= 3; i++ {
		require.NoError(t, m.Record(ctx, entry("ABCDE", i)))
	}
	require.NoError(t, m.Record(ctx, entry("ZZZZZ", 1)))

	list := m.List("ABCDE")
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Number)
	assert.Equal(t, 3, list[1].Number)

	// callers get a copy
	list[0].Winner = "Mallory"
	assert.Equal(t, "Alice", m.List("ABCDE")[0].Winner)

	m.Forget("ABCDE")
	assert.Empty(t, m.List("ABCDE"))
	assert.Len(t, m.List("ZZZZZ"), 1)
}

func TestMemoryZeroLimit(t *testing.T) {
	m := NewMemory(0)
	require.NoError(t, m.Record(context.Background(), entry("ABCDE", 1)))
	assert.Empty(t, m.List("ABCDE"))
}

func TestFileArchive(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "hands")

	fa, err := NewFileArchive(dir)
	require.NoError(t, err)

	require.NoError(t, fa.Record(ctx, entry("ABCDE", 1)))
	require.NoError(t, fa.Record(ctx, entry("ABCDE", 2)))
	require.NoError(t, fa.Record(ctx, entry("QWERT", 1)))

	got, err := fa.ReadAll("ABCDE")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Number)
	assert.Equal(t, 2, got[1].Number)
	assert.True(t, got[0].Pot.Equal(decimal.RequireFromString("0.40")))
	require.Len(t, got[0].Stacks, 2)
	assert.True(t, got[0].Stacks[1].Chips.Equal(decimal.RequireFromString("9.80")))

	rooms, err := fa.Rooms()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ABCDE", "QWERT"}, rooms)

	_, err = fa.ReadAll("NOPE1")
	assert.True(t, errors.Is(err, ErrArchiveNotFound))
}

func TestReadFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BROKE.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"room\":\"BROKE\"}\n\nnot json\n"), 0644))

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

type failingRecorder struct{ err error }

func (f failingRecorder) Record(context.Context, Entry) error { return f.err }

func TestMulti(t *testing.T) {
	ctx := context.Background()
	a, b := NewMemory(5), NewMemory(5)
	boom := errors.New("boom")

	rec := Multi(a, failingRecorder{err: boom}, b)
	err := rec.Record(ctx, entry("ABCDE", 1))

	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.List("ABCDE"), 1)
	assert.Len(t, b.List("ABCDE"), 1, "a failing recorder does not stop the others")

	assert.NoError(t, Multi().Record(ctx, entry("ABCDE", 2)))
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "chiptracker.hands.ABCDE", SubjectFor("", "ABCDE"))
	assert.Equal(t, "poker.ABCDE", SubjectFor("poker", "ABCDE"))
}
