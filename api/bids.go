package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Bid statuses.
const (
	BidStatusPlaced    = "placed"
	BidStatusAccepted  = "accepted"
	BidStatusRejected  = "rejected"
	BidStatusExpired   = "expired"
	BidStatusWithdrawn = "withdrawn"
)

type DeliveryBidCreateRequest struct {
	OrderID   int     `json:"order_id" validate:"required,gt=0"`
	AgentID   string  `json:"agent_id" validate:"required"`
	BidAmount float64 `json:"bid_amount" validate:"required,gt=0"`
	PoolPhase string  `json:"pool_phase" validate:"required,oneof=student_pool all_agents"`
}

type DeliveryBid struct {
	BidID          int        `json:"bid_id"`
	OrderID        int        `json:"order_id"`
	AgentID        string     `json:"agent_id"`
	BidAmount      float64    `json:"bid_amount"`
	MinAllowedFare float64    `json:"min_allowed_fare"`
	MaxAllowedFare float64    `json:"max_allowed_fare"`
	PoolPhase      string     `json:"pool_phase"`
	BidStatus      string     `json:"bid_status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func (c *Client) PlaceBid(ctx context.Context, req DeliveryBidCreateRequest) (*DeliveryBid, error) {
	var bid DeliveryBid
	if err := c.do(ctx, http.MethodPost, "/delivery-bids/", req, &bid, "Failed to place bid"); err != nil {
		return nil, err
	}
	return &bid, nil
}

func (c *Client) ListOrderBids(ctx context.Context, orderID int) ([]DeliveryBid, error) {
	var out []DeliveryBid
	path := fmt.Sprintf("/delivery-bids/orders/%d", orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, "Failed to load bids"); err != nil {
		return nil, err
	}
	return out, nil
}
