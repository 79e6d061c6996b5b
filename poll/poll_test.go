package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEveryDeliversSequencedResults(t *testing.T) {
	var calls int64
	sub := Every(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int64, error) {
		return atomic.AddInt64(&calls, 1), nil
	})
	defer sub.Stop()

	var lastSeq uint64
	for i := 0; i < 3; i++ {
		select {
		case res := <-sub.Results():
			if res.Err != nil {
				t.Fatalf("unexpected error: %v", res.Err)
			}
			if res.Seq <= lastSeq {
				t.Fatalf("sequence went backwards: %d after %d", res.Seq, lastSeq)
			}
			lastSeq = res.Seq
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for result")
		}
	}
}

func TestStopEndsDelivery(t *testing.T) {
	sub := Every(context.Background(), 5*time.Millisecond, func(ctx context.Context) (int, error) {
		return 1, nil
	})

	<-sub.Results()
	sub.Stop()
	sub.Stop() // idempotent

	// channel is closed after Stop; drain whatever was buffered
	for range sub.Results() {
	}
	if _, ok := <-sub.Results(); ok {
		t.Fatal("results channel still open after Stop")
	}
}

func TestStopDiscardsBufferedResult(t *testing.T) {
	fetched := make(chan struct{}, 1)
	sub := Every(context.Background(), time.Hour, func(ctx context.Context) (int, error) {
		select {
		case fetched <- struct{}{}:
		default:
		}
		return 42, nil
	})

	// let the immediate fetch land in the buffer, then stop without reading
	select {
	case <-fetched:
	case <-time.After(time.Second):
		t.Fatal("first fetch never ran")
	}
	time.Sleep(10 * time.Millisecond)
	sub.Stop()

	if res, ok := <-sub.Results(); ok {
		t.Fatalf("result seq=%d value=%v delivered after Stop returned", res.Seq, res.Value)
	}
}

func TestStopUnblocksSlowConsumer(t *testing.T) {
	sub := Every(context.Background(), time.Millisecond, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	// never read; buffered channel fills and the loop blocks on send
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		sub.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked with an unread result pending")
	}
}

func TestTrackerDiscardsStaleSequences(t *testing.T) {
	var tr Tracker
	tests := []struct {
		seq  uint64
		want bool
	}{
		{1, true},
		{2, true},
		{2, false},
		{1, false},
		{5, true},
		{4, false},
	}
	for _, tt := range tests {
		if got := tr.Accept(tt.seq); got != tt.want {
			t.Errorf("Accept(%d) = %v, want %v", tt.seq, got, tt.want)
		}
	}
}

func TestEveryReportsFetchErrors(t *testing.T) {
	wantErr := context.DeadlineExceeded
	sub := Every(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	defer sub.Stop()

	res := <-sub.Results()
	if res.Err != wantErr {
		t.Fatalf("got err %v, want %v", res.Err, wantErr)
	}
}
