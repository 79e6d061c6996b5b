package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type DispatchStartRequest struct {
	DeliveryAddress      string `json:"delivery_address" validate:"required,min=5"`
	Phase1WaitSecondsMin int    `json:"phase1_wait_seconds_min" validate:"gt=0"`
	Phase1WaitSecondsMax int    `json:"phase1_wait_seconds_max" validate:"gt=0"`
	Phase2WaitSeconds    int    `json:"phase2_wait_seconds" validate:"gt=0"`
	PollIntervalSeconds  int    `json:"poll_interval_seconds" validate:"gt=0"`
}

type DispatchStartResponse struct {
	OrderID              int    `json:"order_id"`
	DispatchStarted      bool   `json:"dispatch_started"`
	Status               string `json:"status"` // starting or already_running
	Phase                string `json:"phase"`
	Phase1WaitSecondsMin int    `json:"phase1_wait_seconds_min"`
	Phase1WaitSecondsMax int    `json:"phase1_wait_seconds_max"`
	Phase2WaitSeconds    int    `json:"phase2_wait_seconds"`
	PollIntervalSeconds  int    `json:"poll_interval_seconds"`
	Message              string `json:"message"`
}

// DispatchStatusResponse mirrors the engine's status document. Optional
// fields are pointers so "absent" and "zero" stay distinct.
type DispatchStatusResponse struct {
	OrderID           int     `json:"order_id"`
	IsRunning         bool    `json:"is_running"`
	Status            string  `json:"status"`
	Phase             string  `json:"phase"`
	RestaurantID      *int    `json:"restaurant_id,omitempty"`
	DeliveryAddress   *string `json:"delivery_address,omitempty"`
	Phase1WaitSeconds *int    `json:"phase1_wait_seconds,omitempty"`
	Phase2WaitSeconds *int    `json:"phase2_wait_seconds,omitempty"`
	Note              *string `json:"note,omitempty"`
	UpdatedAt         *string `json:"updated_at,omitempty"`
}

// AgentAvailableDispatchItem is one biddable order in the agent feed.
type AgentAvailableDispatchItem struct {
	OrderID                int        `json:"order_id"`
	RestaurantID           int        `json:"restaurant_id"`
	RestaurantName         string     `json:"restaurant_name"`
	DeliveryAddress        string     `json:"delivery_address"`
	OrderItemsCount        int        `json:"order_items_count"`
	BaseFare               float64    `json:"base_fare"`
	MinAllowedFare         float64    `json:"min_allowed_fare"`
	MaxAllowedFare         float64    `json:"max_allowed_fare"`
	DispatchStatus         string     `json:"dispatch_status"`
	PoolPhase              string     `json:"pool_phase"`
	StudentOnly            bool       `json:"student_only"`
	BiddingTimeLeftSeconds int        `json:"bidding_time_left_seconds"`
	DispatchUpdatedAt      *string    `json:"dispatch_updated_at,omitempty"`
	LeadingBidAmount       *float64   `json:"leading_bid_amount,omitempty"`
	LeadingBidCreatedAt    *time.Time `json:"leading_bid_created_at,omitempty"`
	TotalPlacedBids        int        `json:"total_placed_bids"`
	OrderCreatedAt         *time.Time `json:"order_created_at,omitempty"`
}

// agentAvailableDispatchResponse is the feed envelope; callers only need
// the items.
type agentAvailableDispatchResponse struct {
	AgentID   string                       `json:"agent_id"`
	AgentType string                       `json:"agent_type"`
	Items     []AgentAvailableDispatchItem `json:"items"`
}

func (c *Client) StartDispatch(ctx context.Context, orderID int, req DispatchStartRequest) (*DispatchStartResponse, error) {
	var resp DispatchStartResponse
	path := fmt.Sprintf("/dispatch/orders/%d/start", orderID)
	if err := c.do(ctx, http.MethodPost, path, req, &resp, "Failed to start dispatch"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DispatchStatus(ctx context.Context, orderID int) (*DispatchStatusResponse, error) {
	var resp DispatchStatusResponse
	path := fmt.Sprintf("/dispatch/orders/%d/status", orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, "Failed to load dispatch status"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) AvailableDispatch(ctx context.Context, agentID string, limit int) ([]AgentAvailableDispatchItem, error) {
	var resp agentAvailableDispatchResponse
	path := fmt.Sprintf("/dispatch/agents/%s/available?limit=%d", agentID, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, "Failed to load available orders"); err != nil {
		return nil, err
	}
	return resp.Items, nil
}
