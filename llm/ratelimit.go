package llm

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// RateLimiter is a counting admission gate bounding concurrent in-flight
// operations. Capacity is fixed at construction. The limiter never rejects,
// only delays: callers beyond capacity suspend until a permit frees or their
// context is cancelled.
//
// A limiter is typically owned by one model handle or shared across the model
// handles of one provider.
type RateLimiter struct {
	sem      *semaphore.Weighted
	capacity int
}

// NewRateLimiter creates a limiter admitting at most capacity concurrent
// operations. Capacity must be positive.
func NewRateLimiter(capacity int) *RateLimiter {
	if capacity < 1 {
		capacity = 1
	}
	return &RateLimiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Capacity returns the fixed permit count.
func (l *RateLimiter) Capacity() int {
	return l.capacity
}

// Run admits op once a permit is available and holds the permit until op
// returns. The permit is released on every exit path. If ctx is cancelled
// while waiting, the context error is returned and op never runs.
func (l *RateLimiter) Run(ctx context.Context, op func(ctx context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return op(ctx)
}

// Stream acquires a permit before starting op, but holds the permit for the
// full lifetime of the returned stream: it is released only when the stream
// is fully drained, terminates with an error, or is abandoned via Close.
// If op fails, the permit is released and the error returned immediately.
func (l *RateLimiter) Stream(ctx context.Context, op func(ctx context.Context) (CompletionStream, error)) (CompletionStream, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	inner, err := op(ctx)
	if err != nil {
		l.sem.Release(1)
		return nil, err
	}
	return &limitedStream{inner: inner, limiter: l}, nil
}

// limitedStream wraps a CompletionStream, releasing its permit exactly once
// on termination or abandonment.
type limitedStream struct {
	inner   CompletionStream
	limiter *RateLimiter
	release sync.Once
}

func (s *limitedStream) Next() bool {
	ok := s.inner.Next()
	if !ok {
		s.release.Do(func() { s.limiter.sem.Release(1) })
	}
	return ok
}

func (s *limitedStream) Delta() string {
	return s.inner.Delta()
}

func (s *limitedStream) Err() error {
	return s.inner.Err()
}

func (s *limitedStream) Close() error {
	err := s.inner.Close()
	s.release.Do(func() { s.limiter.sem.Release(1) })
	return err
}

var _ CompletionStream = (*limitedStream)(nil)
