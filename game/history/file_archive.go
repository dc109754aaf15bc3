package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrArchiveNotFound is returned when a room has no archive file.
var ErrArchiveNotFound = errors.New("no archive for room")

// FileArchive appends resolved hands to one JSON-lines file per room. It is
// an audit trail; rooms are never restored from it.
type FileArchive struct {
	dir string
	mu  sync.Mutex
}

// NewFileArchive creates the archive directory if needed.
func NewFileArchive(dir string) (*FileArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &FileArchive{dir: dir}, nil
}

func (fa *FileArchive) Record(_ context.Context, entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal hand: %w", err)
	}

	fa.mu.Lock()
	defer fa.mu.Unlock()

	f, err := os.OpenFile(fa.path(entry.Room), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

// Rooms lists the room codes that have an archive.
func (fa *FileArchive) Rooms() ([]string, error) {
	entries, err := os.ReadDir(fa.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var rooms []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		rooms = append(rooms, strings.TrimSuffix(entry.Name(), ".jsonl"))
	}
	return rooms, nil
}

// ReadAll returns every archived hand for room in the order recorded.
func (fa *FileArchive) ReadAll(room string) ([]Entry, error) {
	return ReadFile(fa.path(room))
}

// ReadFile parses a JSON-lines archive file.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArchiveNotFound
		}
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), n, err)
		}
		out = append(out, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return out, nil
}

func (fa *FileArchive) path(room string) string {
	return filepath.Join(fa.dir, fmt.Sprintf("%s.jsonl", room))
}
