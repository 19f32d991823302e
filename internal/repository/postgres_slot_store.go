package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type postgresSlotStore struct {
	db *sql.DB
}

// NewPostgresSlotStore creates a SlotStore backed by the cart_slots table
func NewPostgresSlotStore(db *sql.DB) SlotStore {
	return &postgresSlotStore{db: db}
}

// Get retrieves a slot payload using parameterized queries
func (s *postgresSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT payload FROM cart_slots WHERE slot_key = $1`

	var payload string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to get cart slot: %w", err)
	}

	return []byte(payload), nil
}

// Put upserts a slot payload
func (s *postgresSlotStore) Put(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO cart_slots (slot_key, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot_key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to put cart slot: %w", err)
	}

	return nil
}

// Delete removes a slot; deleting a missing slot is not an error
func (s *postgresSlotStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM cart_slots WHERE slot_key = $1`

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete cart slot: %w", err)
	}

	return nil
}
