package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertDeliverySQL = `INSERT INTO deliveries (
        fingerprint,
        outcome,
        detail,
        attempts,
        text_chars
    ) VALUES (
        $1,$2,$3,$4,$5
    ) RETURNING id, created_at;`

	listRecentDeliveriesSQL = `SELECT
        id,
        fingerprint,
        outcome,
        detail,
        attempts,
        text_chars,
        created_at
    FROM deliveries
    ORDER BY created_at DESC
    LIMIT $1;`

	countDeliveriesSQL = `SELECT COUNT(*) FROM deliveries;`

	deleteDeliveriesBeforeSQL = `DELETE FROM deliveries WHERE created_at < $1;`
)

// DeliveryLog defines operations for delivery outcome auditing.
type DeliveryLog interface {
	InsertDelivery(ctx context.Context, rec DeliveryRecord) (DeliveryRecord, error)
	ListRecentDeliveries(ctx context.Context, limit int) ([]DeliveryRecord, error)
	CountDeliveries(ctx context.Context) (int64, error)
	DeleteDeliveriesBefore(ctx context.Context, olderThan time.Time) error
}

// Store aggregates access to the delivery audit table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertDelivery persists one outcome row and returns it with the
// generated id and timestamp filled in.
func (s *Store) InsertDelivery(ctx context.Context, rec DeliveryRecord) (DeliveryRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return rec, err
	}

	row := pool.QueryRow(ctx, insertDeliverySQL,
		rec.Fingerprint,
		rec.Outcome,
		rec.Detail,
		rec.Attempts,
		rec.TextChars,
	)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return rec, fmt.Errorf("insert delivery: %w", err)
	}
	return rec, nil
}

// ListRecentDeliveries returns the newest outcome rows, newest first.
func (s *Store) ListRecentDeliveries(ctx context.Context, limit int) ([]DeliveryRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listRecentDeliveriesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var records []DeliveryRecord
	for rows.Next() {
		var rec DeliveryRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Fingerprint,
			&rec.Outcome,
			&rec.Detail,
			&rec.Attempts,
			&rec.TextChars,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountDeliveries returns the total number of audited outcomes.
func (s *Store) CountDeliveries(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := pool.QueryRow(ctx, countDeliveriesSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count deliveries: %w", err)
	}
	return count, nil
}

// DeleteDeliveriesBefore prunes audit rows older than the given instant.
func (s *Store) DeleteDeliveriesBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, deleteDeliveriesBeforeSQL, olderThan); err != nil {
		return fmt.Errorf("delete deliveries: %w", err)
	}
	return nil
}

var _ DeliveryLog = (*Store)(nil)
