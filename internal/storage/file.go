package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	dom "Tasklist/internal/domain"
)

var _ Slot = (*FileSlot)(nil)

// FileSlot stores the snapshot as one JSON file.
// Writes go to a temp file in the same directory followed by an atomic rename.
type FileSlot struct {
	path string
}

// NewFileSlot returns a slot backed by path. The parent directory is created on first save.
func NewFileSlot(path string) (*FileSlot, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("file slot: path is required")
	}
	return &FileSlot{path: path}, nil
}

// Path returns the file the slot writes to.
func (s *FileSlot) Path() string { return s.path }

func (s *FileSlot) Load(ctx context.Context) ([]dom.Task, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []dom.Task{}, nil
		}
		return []dom.Task{}, fmt.Errorf("file load: %w", err)
	}
	return Decode(b)
}

func (s *FileSlot) Save(ctx context.Context, tasks []dom.Task) error {
	b, err := Encode(tasks)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file save: mkdir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("file save: create temp: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("file save: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("file save: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("file save: close: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("file save: rename: %w", err)
	}
	return nil
}
