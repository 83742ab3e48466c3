package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	dom "Tasklist/internal/domain"
)

// Encode serializes the snapshot as a JSON array. A nil slice encodes as [].
func Encode(tasks []dom.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []dom.Task{}
	}
	b, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("encode tasks: %w", err)
	}
	return b, nil
}

// Decode parses a stored snapshot. Empty input is no data.
// Input that is not a JSON array yields ErrCorruptPayload.
// Array elements that cannot be decoded or that break the task invariants
// (empty text, bad date, non-positive or repeated id) are dropped.
func Decode(b []byte) ([]dom.Task, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return []dom.Task{}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return []dom.Task{}, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	out := make([]dom.Task, 0, len(raw))
	seen := make(map[dom.TaskID]struct{}, len(raw))
	for _, r := range raw {
		var t dom.Task
		if err := json.Unmarshal(r, &t); err != nil {
			continue
		}
		t.Text = strings.TrimSpace(t.Text)
		if !t.Valid() {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}
