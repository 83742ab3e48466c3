package storage

import (
	"context"
	"errors"
	"time"

	dom "Tasklist/internal/domain"
)

// DefaultKey is the storage key the task snapshot lives under.
const DefaultKey = "todoTasks"

// ErrCorruptPayload is returned by Load when the stored payload is not a task array.
// The returned slice is empty in that case.
var ErrCorruptPayload = errors.New("corrupt task payload")

// Slot persists the whole task sequence under one key.
// Load returns an empty slice and no error when nothing is stored.
// Save replaces whatever was stored before.
type Slot interface {
	Load(ctx context.Context) ([]dom.Task, error)
	Save(ctx context.Context, tasks []dom.Task) error
}

// WithTimeout bounds every Load and Save on s by d.
func WithTimeout(s Slot, d time.Duration) Slot {
	if d <= 0 {
		return s
	}
	return &timeoutSlot{next: s, timeout: d}
}

type timeoutSlot struct {
	next    Slot
	timeout time.Duration
}

func (s *timeoutSlot) Load(ctx context.Context) ([]dom.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Load(ctx)
}

func (s *timeoutSlot) Save(ctx context.Context, tasks []dom.Task) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Save(ctx, tasks)
}
