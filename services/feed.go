package services

import (
	"fmt"
	"sort"
	"sync"

	"campusbites-telegram/api"
)

// FeedCard is one biddable order as shown to an agent. SecondsLeft is a
// display-only countdown: seeded from the server on every poll and ticked
// down locally between polls.
type FeedCard struct {
	OrderID          int
	RestaurantName   string
	DeliveryAddress  string
	MinAllowedFare   float64
	MaxAllowedFare   float64
	BaseFare         float64
	PoolPhase        string
	StudentOnly      bool
	SecondsLeft      int
	TotalSeconds     int
	LeadingBidAmount *float64
	TotalPlacedBids  int
	BidSubmitted     bool
}

// CountdownLabel renders the remaining bidding time as M:SS.
func (c FeedCard) CountdownLabel() string {
	return fmt.Sprintf("%d:%02d", c.SecondsLeft/60, c.SecondsLeft%60)
}

// Feed holds the agent's current view of biddable orders between polls.
type Feed struct {
	mu    sync.Mutex
	cards []FeedCard
}

func NewFeed() *Feed {
	return &Feed{}
}

// ApplySnapshot rebuilds the feed from a server poll. Countdowns are
// reseeded from the server values; orders missing from the snapshot drop
// out. submitted reports whether the agent already bid on an order.
func (f *Feed) ApplySnapshot(items []api.AgentAvailableDispatchItem, submitted func(orderID int) bool) {
	cards := make([]FeedCard, 0, len(items))
	for _, it := range items {
		secs := it.BiddingTimeLeftSeconds
		if secs < 0 {
			secs = 0
		}
		cards = append(cards, FeedCard{
			OrderID:          it.OrderID,
			RestaurantName:   it.RestaurantName,
			DeliveryAddress:  it.DeliveryAddress,
			MinAllowedFare:   it.MinAllowedFare,
			MaxAllowedFare:   it.MaxAllowedFare,
			BaseFare:         it.BaseFare,
			PoolPhase:        it.PoolPhase,
			StudentOnly:      it.StudentOnly,
			SecondsLeft:      secs,
			TotalSeconds:     secs,
			LeadingBidAmount: it.LeadingBidAmount,
			TotalPlacedBids:  it.TotalPlacedBids,
			BidSubmitted:     submitted != nil && submitted(it.OrderID),
		})
	}
	// newest orders first
	sort.Slice(cards, func(i, j int) bool { return cards[i].OrderID > cards[j].OrderID })

	f.mu.Lock()
	f.cards = cards
	f.mu.Unlock()
}

// Tick decrements every countdown by one second, flooring at zero.
func (f *Feed) Tick() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cards {
		if f.cards[i].SecondsLeft > 0 {
			f.cards[i].SecondsLeft--
		}
	}
}

// Cards returns a copy of the current cards.
func (f *Feed) Cards() []FeedCard {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FeedCard, len(f.cards))
	copy(out, f.cards)
	return out
}

// MarkSubmitted flags an order's card after a successful bid without
// waiting for the next poll.
func (f *Feed) MarkSubmitted(orderID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cards {
		if f.cards[i].OrderID == orderID {
			f.cards[i].BidSubmitted = true
		}
	}
}

// Clear empties the feed, e.g. when the agent goes offline.
func (f *Feed) Clear() {
	f.mu.Lock()
	f.cards = nil
	f.mu.Unlock()
}
