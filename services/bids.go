package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"campusbites-telegram/api"

	"github.com/redis/go-redis/v9"
)

// ValidateBidAmount parses and range-checks a raw bid entry against the
// order's allowed fare window. Each failure mode has its own message; the
// checks run in order: number, lower bound, upper bound.
func ValidateBidAmount(raw string, minFare, maxFare float64) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, errors.New("Bid must be a number")
	}
	if amount < minFare {
		return 0, fmt.Errorf("Bid must be at least $%.2f", minFare)
	}
	if amount > maxFare {
		return 0, fmt.Errorf("Bid must be no more than $%.2f", maxFare)
	}
	return amount, nil
}

// SubmittedBids tracks which orders an agent has bid on, so cards keep
// showing the confirmation across polls and restarts.
type SubmittedBids struct {
	rdb *redis.Client
}

func NewSubmittedBids(rdb *redis.Client) *SubmittedBids {
	return &SubmittedBids{rdb: rdb}
}

func submittedKey(agentID string) string {
	return fmt.Sprintf("bids:submitted:%s", agentID)
}

// Add records an order in the agent's submitted set. Adding twice is a no-op.
func (s *SubmittedBids) Add(ctx context.Context, agentID string, orderID int) error {
	if err := s.rdb.SAdd(ctx, submittedKey(agentID), orderID).Err(); err != nil {
		return fmt.Errorf("record submitted bid: %w", err)
	}
	return nil
}

func (s *SubmittedBids) Contains(ctx context.Context, agentID string, orderID int) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, submittedKey(agentID), orderID).Result()
	if err != nil {
		return false, fmt.Errorf("check submitted bid: %w", err)
	}
	return ok, nil
}

func (s *SubmittedBids) Remove(ctx context.Context, agentID string, orderID int) error {
	if err := s.rdb.SRem(ctx, submittedKey(agentID), orderID).Err(); err != nil {
		return fmt.Errorf("drop submitted bid: %w", err)
	}
	return nil
}

type bidPlacer interface {
	PlaceBid(ctx context.Context, req api.DeliveryBidCreateRequest) (*api.DeliveryBid, error)
}

type bidLister interface {
	ListOrderBids(ctx context.Context, orderID int) ([]api.DeliveryBid, error)
}

type submittedStore interface {
	Add(ctx context.Context, agentID string, orderID int) error
	Contains(ctx context.Context, agentID string, orderID int) (bool, error)
	Remove(ctx context.Context, agentID string, orderID int) error
}

// BidService validates and submits bids. Validation failures never reach
// the network.
type BidService struct {
	submitted submittedStore
}

func NewBidService(submitted submittedStore) *BidService {
	return &BidService{submitted: submitted}
}

// Submit validates raw against the card's fare window, places the bid
// through the caller's session-scoped client, and records the order in the
// agent's submitted set. The returned error is either a validation message
// or the backend's detail for this order only.
func (b *BidService) Submit(ctx context.Context, placer bidPlacer, agentID string, card FeedCard, raw string) (*api.DeliveryBid, error) {
	amount, err := ValidateBidAmount(raw, card.MinAllowedFare, card.MaxAllowedFare)
	if err != nil {
		return nil, err
	}
	bid, err := placer.PlaceBid(ctx, api.DeliveryBidCreateRequest{
		OrderID:   card.OrderID,
		AgentID:   agentID,
		BidAmount: amount,
		PoolPhase: card.PoolPhase,
	})
	if err != nil {
		return nil, err
	}
	if err := b.submitted.Add(ctx, agentID, card.OrderID); err != nil {
		return bid, err
	}
	return bid, nil
}

// BidOutcome is the resolved fate of a bid on an order that left the feed.
type BidOutcome struct {
	OrderID   int
	BidStatus string
	BidAmount float64
}

// ReconcileDeparted resolves the agent's bids on orders that dropped out of
// the feed. Orders the agent never bid on are ignored; for the rest the
// order's bid list tells whether the agent won. Resolved orders leave the
// submitted set so the next departure does not re-report them.
func (b *BidService) ReconcileDeparted(ctx context.Context, lister bidLister, agentID string, departed []int) ([]BidOutcome, error) {
	var out []BidOutcome
	for _, orderID := range departed {
		mine, err := b.submitted.Contains(ctx, agentID, orderID)
		if err != nil {
			return out, err
		}
		if !mine {
			continue
		}
		bids, err := lister.ListOrderBids(ctx, orderID)
		if err != nil {
			// the order may still resolve; keep it in the set and retry
			// on the next departure diff
			continue
		}
		for _, bid := range bids {
			if bid.AgentID == agentID {
				out = append(out, BidOutcome{
					OrderID:   orderID,
					BidStatus: bid.BidStatus,
					BidAmount: bid.BidAmount,
				})
				break
			}
		}
		if err := b.submitted.Remove(ctx, agentID, orderID); err != nil {
			return out, err
		}
	}
	return out, nil
}
