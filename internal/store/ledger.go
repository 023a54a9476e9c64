package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealradar/offers-service/internal/model"
)

// batchDayLayout is the wire form of a ledger day, e.g. "2026-08-31".
const batchDayLayout = "2006-01-02"

// Ledger records one collection batch per (source, calendar day). The
// UNIQUE (source_name, batch_day) constraint is the single cross-invocation
// synchronisation point: concurrent attempts for the same key collapse onto
// one row instead of taking an in-memory lock.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger returns a batch ledger over the given pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// GetOrCreate returns the entry for (source, day), creating a pending one on
// first touch. A concurrent creation loses the ON CONFLICT race and reads
// back the winner's row.
func (l *Ledger) GetOrCreate(ctx context.Context, source, day string) (model.BatchEntry, error) {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO collection_batches (id, source_name, batch_day, status)
		 VALUES ($1, $2, $3, 'pending')
		 ON CONFLICT (source_name, batch_day) DO NOTHING`,
		uuid.NewString(), source, day)
	if err != nil {
		return model.BatchEntry{}, fmt.Errorf("ledger insert: %w", err)
	}

	// batch_day is a DATE column; pgx returns it in binary format, which only
	// scans into time-like targets, so go through time.Time and reformat.
	var e model.BatchEntry
	var batchDay time.Time
	err = l.pool.QueryRow(ctx,
		`SELECT source_name, batch_day, status, items_count, COALESCE(error_message, ''),
		        created_at, updated_at
		 FROM collection_batches
		 WHERE source_name = $1 AND batch_day = $2`,
		source, day,
	).Scan(&e.SourceName, &batchDay, &e.Status, &e.ItemsCount, &e.ErrorMessage,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.BatchEntry{}, fmt.Errorf("ledger read: %w", err)
	}
	e.BatchDay = batchDay.Format(batchDayLayout)
	return e, nil
}

// Complete records a successful batch and its item count.
func (l *Ledger) Complete(ctx context.Context, source, day string, count int) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE collection_batches
		 SET status = 'completed', items_count = $3, error_message = NULL, updated_at = now()
		 WHERE source_name = $1 AND batch_day = $2`,
		source, day, count)
	if err != nil {
		return fmt.Errorf("ledger complete: %w", err)
	}
	return nil
}

// Fail records a failed batch; the guard will allow a retry later the same day.
func (l *Ledger) Fail(ctx context.Context, source, day, errMsg string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE collection_batches
		 SET status = 'failed', error_message = $3, updated_at = now()
		 WHERE source_name = $1 AND batch_day = $2`,
		source, day, errMsg)
	if err != nil {
		return fmt.Errorf("ledger fail: %w", err)
	}
	return nil
}
