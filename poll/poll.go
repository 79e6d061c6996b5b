// Package poll runs periodic fetches with cancellable subscriptions.
// Every result carries a sequence number so consumers can discard
// deliveries that arrive late or out of order.
package poll

import (
	"context"
	"sync"
	"time"
)

// Result is one delivery from a subscription.
type Result[T any] struct {
	Seq   uint64
	Value T
	Err   error
}

// Subscription is a handle on a running poll loop. Stop is idempotent;
// after Stop returns no further results are delivered.
type Subscription[T any] struct {
	results chan Result[T]
	cancel  context.CancelFunc
	once    sync.Once
	done    chan struct{}
}

func (s *Subscription[T]) Results() <-chan Result[T] {
	return s.results
}

func (s *Subscription[T]) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		// a result buffered before cancellation must not leak out after
		// Stop has returned
		select {
		case <-s.results:
		default:
		}
		close(s.results)
	})
}

// Every fetches immediately and then on every interval tick until the
// context is cancelled or Stop is called. Fetches run sequentially; a slow
// fetch delays the next tick rather than overlapping it.
func Every[T any](ctx context.Context, interval time.Duration, fetch func(context.Context) (T, error)) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		results: make(chan Result[T], 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		var seq uint64
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		deliver := func() bool {
			value, err := fetch(ctx)
			if ctx.Err() != nil {
				return false
			}
			seq++
			select {
			case sub.results <- Result[T]{Seq: seq, Value: value, Err: err}:
			case <-ctx.Done():
				return false
			}
			return true
		}

		if !deliver() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !deliver() {
					return
				}
			}
		}
	}()

	return sub
}

// Tracker keeps the highest sequence number applied so far.
type Tracker struct {
	mu      sync.Mutex
	highest uint64
}

// Reset forgets all seen sequences, e.g. when a new subscription starts.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.highest = 0
	t.mu.Unlock()
}

// Accept reports whether seq is newer than anything seen before, and
// records it if so.
func (t *Tracker) Accept(seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq <= t.highest {
		return false
	}
	t.highest = seq
	return true
}
