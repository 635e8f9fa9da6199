package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/retail-orders/internal/domain/order"
)

var _ order.SequenceSource = (*RedisSequence)(nil)

// RedisSequence issues per-(year, month) order sequences with INCR, which
// is atomic server-side. Deployments that already run Redis can prefer it
// over the Postgres counter to keep allocation off the primary database.
type RedisSequence struct {
	client *redis.Client
}

// NewRedisSequence creates a RedisSequence talking to the given address.
func NewRedisSequence(addr string) *RedisSequence {
	return &RedisSequence{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Next atomically increments and returns the sequence for the scope.
// The very first INCR on a fresh key returns 1, matching the restart-at-one
// rule for each new month.
func (s *RedisSequence) Next(ctx context.Context, year int, month time.Month) (int64, error) {
	seq, err := s.client.Incr(ctx, sequenceKey(year, month)).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "increment counter %04d-%02d", year, int(month))
	}
	return seq, nil
}

// advanceScript sets the counter to the target value only when it is higher
// than the current one. Running it as a script keeps the compare-and-set
// atomic on the server.
var advanceScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local target = tonumber(ARGV[1])
if target > cur then
	redis.call('SET', KEYS[1], target)
end
return math.max(cur, target)`)

// Advance raises the counter for the scope to at least seq.
func (s *RedisSequence) Advance(ctx context.Context, year int, month time.Month, seq int64) error {
	err := advanceScript.Run(ctx, s.client, []string{sequenceKey(year, month)}, seq).Err()
	if err != nil {
		return errors.Wrapf(err, "advance counter %04d-%02d", year, int(month))
	}
	return nil
}

// Ping verifies connectivity, used by the readiness probe.
func (s *RedisSequence) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisSequence) Close() error {
	return s.client.Close()
}

func sequenceKey(year int, month time.Month) string {
	return fmt.Sprintf("orders:seq:%04d-%02d", year, int(month))
}
