package services

import (
	"testing"

	"campusbites-telegram/api"
)

func TestApplySnapshotRebuildsAndSorts(t *testing.T) {
	f := NewFeed()
	f.ApplySnapshot([]api.AgentAvailableDispatchItem{
		{OrderID: 5, BiddingTimeLeftSeconds: 100},
		{OrderID: 12, BiddingTimeLeftSeconds: 30},
		{OrderID: 8, BiddingTimeLeftSeconds: -3},
	}, func(orderID int) bool { return orderID == 8 })

	cards := f.Cards()
	if len(cards) != 3 {
		t.Fatalf("got %d cards, want 3", len(cards))
	}
	if cards[0].OrderID != 12 || cards[1].OrderID != 8 || cards[2].OrderID != 5 {
		t.Fatalf("wrong order: %d, %d, %d", cards[0].OrderID, cards[1].OrderID, cards[2].OrderID)
	}
	if cards[1].SecondsLeft != 0 {
		t.Errorf("negative server countdown should floor at 0, got %d", cards[1].SecondsLeft)
	}
	if !cards[1].BidSubmitted || cards[0].BidSubmitted {
		t.Error("submitted flag not applied from the lookup")
	}
}

func TestTickFloorsAtZero(t *testing.T) {
	f := NewFeed()
	f.ApplySnapshot([]api.AgentAvailableDispatchItem{
		{OrderID: 1, BiddingTimeLeftSeconds: 2},
	}, nil)

	for i := 0; i < 5; i++ {
		f.Tick()
	}
	if got := f.Cards()[0].SecondsLeft; got != 0 {
		t.Fatalf("countdown went to %d, must floor at 0", got)
	}
}

func TestApplySnapshotReseedsCountdown(t *testing.T) {
	f := NewFeed()
	f.ApplySnapshot([]api.AgentAvailableDispatchItem{
		{OrderID: 1, BiddingTimeLeftSeconds: 60},
	}, nil)
	f.Tick()
	f.Tick()
	if got := f.Cards()[0].SecondsLeft; got != 58 {
		t.Fatalf("after two ticks got %d, want 58", got)
	}

	// next poll says the server clock is at 55
	f.ApplySnapshot([]api.AgentAvailableDispatchItem{
		{OrderID: 1, BiddingTimeLeftSeconds: 55},
	}, nil)
	if got := f.Cards()[0].SecondsLeft; got != 55 {
		t.Fatalf("countdown not reseeded from the server, got %d", got)
	}
}

func TestApplySnapshotDropsDepartedOrders(t *testing.T) {
	f := NewFeed()
	f.ApplySnapshot([]api.AgentAvailableDispatchItem{
		{OrderID: 1, BiddingTimeLeftSeconds: 60},
		{OrderID: 2, BiddingTimeLeftSeconds: 60},
	}, nil)
	f.ApplySnapshot([]api.AgentAvailableDispatchItem{
		{OrderID: 2, BiddingTimeLeftSeconds: 50},
	}, nil)

	cards := f.Cards()
	if len(cards) != 1 || cards[0].OrderID != 2 {
		t.Fatalf("departed order still present: %+v", cards)
	}
}

func TestCountdownLabel(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{0, "0:00"},
		{9, "0:09"},
		{65, "1:05"},
		{240, "4:00"},
	}
	for _, tt := range tests {
		c := FeedCard{SecondsLeft: tt.secs}
		if got := c.CountdownLabel(); got != tt.want {
			t.Errorf("CountdownLabel(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestClearEmptiesFeed(t *testing.T) {
	f := NewFeed()
	f.ApplySnapshot([]api.AgentAvailableDispatchItem{
		{OrderID: 1, BiddingTimeLeftSeconds: 60},
	}, nil)
	f.Clear()
	if got := f.Cards(); len(got) != 0 {
		t.Fatalf("feed not cleared: %+v", got)
	}
}
