package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/retail-orders/internal/domain/order"
)

// nextSequenceSQL performs the increment-and-fetch as one atomic statement.
// Two concurrent executions for the same (year, month) serialize on the row
// and return distinct values; there is no read-then-write window.
const nextSequenceSQL = `INSERT INTO order_counters (year, month, seq)
	VALUES ($1, $2, 1)
	ON CONFLICT (year, month) DO UPDATE SET seq = order_counters.seq + 1
	RETURNING seq`

// advanceSequenceSQL raises the counter to at least the given value, used by
// the legacy import so freshly allocated numbers cannot collide with
// imported ones.
const advanceSequenceSQL = `INSERT INTO order_counters (year, month, seq)
	VALUES ($1, $2, $3)
	ON CONFLICT (year, month) DO UPDATE
	SET seq = GREATEST(order_counters.seq, EXCLUDED.seq)`

var _ order.SequenceSource = (*PostgresSequence)(nil)

// PostgresSequence issues per-(year, month) order sequences from the
// order_counters table.
type PostgresSequence struct {
	pool *pgxpool.Pool
}

// NewPostgresSequence returns a PostgresSequence using the given pool.
func NewPostgresSequence(pool *pgxpool.Pool) *PostgresSequence {
	return &PostgresSequence{pool: pool}
}

// Next atomically increments and returns the sequence for the scope.
func (s *PostgresSequence) Next(ctx context.Context, year int, month time.Month) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, nextSequenceSQL, year, int(month)).Scan(&seq)
	if err != nil {
		return 0, errors.Wrapf(err, "increment counter %04d-%02d", year, int(month))
	}
	return seq, nil
}

// Advance raises the counter for the scope to at least seq.
func (s *PostgresSequence) Advance(ctx context.Context, year int, month time.Month, seq int64) error {
	if _, err := s.pool.Exec(ctx, advanceSequenceSQL, year, int(month), seq); err != nil {
		return errors.Wrapf(err, "advance counter %04d-%02d", year, int(month))
	}
	return nil
}
