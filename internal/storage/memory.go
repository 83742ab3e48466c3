package storage

import (
	"context"
	"sync"

	dom "Tasklist/internal/domain"
)

// Compile-time check to ensure MemorySlot implements Slot interface
var _ Slot = (*MemorySlot)(nil)

// MemorySlot keeps the encoded snapshot in process memory.
// It goes through the same codec as the durable backends.
type MemorySlot struct {
	mu      sync.RWMutex
	payload []byte
}

// NewMemorySlot returns an empty slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

// NewMemorySlotWithPayload seeds the slot with raw bytes, e.g. a corrupt payload in tests.
func NewMemorySlotWithPayload(payload []byte) *MemorySlot {
	return &MemorySlot{payload: append([]byte(nil), payload...)}
}

func (s *MemorySlot) Load(ctx context.Context) ([]dom.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Decode(s.payload)
}

func (s *MemorySlot) Save(ctx context.Context, tasks []dom.Task) error {
	b, err := Encode(tasks)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = b
	return nil
}

// Payload returns a copy of the stored bytes.
func (s *MemorySlot) Payload() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.payload...)
}
