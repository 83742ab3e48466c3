package storage

import (
	"context"
	"errors"
	"fmt"

	dom "Tasklist/internal/domain"
	"Tasklist/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Slot = (*PGSlot)(nil)

// PGSlot stores the snapshot in one row of task_slots, keyed by slot key.
type PGSlot struct {
	db  *pgxpool.Pool
	key string
}

// NewPGSlot returns a slot reading and writing the row for key. An empty key means DefaultKey.
func NewPGSlot(db *pgxpool.Pool, key string) *PGSlot {
	if key == "" {
		key = DefaultKey
	}
	return &PGSlot{db: db, key: key}
}

// Load returns the stored list. A missing row or a missing table is no data.
func (s *PGSlot) Load(ctx context.Context) ([]dom.Task, error) {
	var payload []byte
	err := s.db.QueryRow(ctx,
		`SELECT payload FROM task_slots WHERE key = $1`,
		s.key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || utils.IsPGUndefinedTable(err) {
			return []dom.Task{}, nil
		}
		return []dom.Task{}, fmt.Errorf("pg load: %w", err)
	}
	return Decode(payload)
}

// Save upserts the row with the full list.
func (s *PGSlot) Save(ctx context.Context, tasks []dom.Task) error {
	b, err := Encode(tasks)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO task_slots (key, payload, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`
	if _, err := s.db.Exec(ctx, query, s.key, string(b)); err != nil {
		return fmt.Errorf("pg save: %w", err)
	}
	return nil
}
