package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// SequenceSource hands out the next sequence value for a (year, month)
// scope. Implementations must make the increment-and-fetch a single atomic
// operation against the backing store: a read followed by a write is
// exactly the race this interface exists to prevent. Sequences start at 1
// and restart for every new scope.
type SequenceSource interface {
	Next(ctx context.Context, year int, month time.Month) (int64, error)
}

// Allocator produces unique, month-scoped order numbers from an atomic
// sequence source. It is safe for concurrent use by any number of requests
// and any number of service instances sharing the same store.
type Allocator struct {
	seq SequenceSource
}

// NewAllocator creates an Allocator backed by the given sequence source.
func NewAllocator(seq SequenceSource) *Allocator {
	return &Allocator{seq: seq}
}

// Allocate returns the next order number for the scope of now. A failure
// here means the counter store is unavailable; callers classify it as
// transient. Sequence values consumed by requests that later fail are
// never reused, so gaps are possible but duplicates are not.
func (a *Allocator) Allocate(ctx context.Context, now time.Time) (string, error) {
	seq, err := a.seq.Next(ctx, now.Year(), now.Month())
	if err != nil {
		return "", errors.Wrap(err, "next sequence")
	}
	return FormatNumber(now.Year(), now.Month(), seq), nil
}
