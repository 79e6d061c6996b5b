package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type DeliveryAgent struct {
	AgentID               string    `json:"agent_id"`
	FullName              string    `json:"full_name"`
	Email                 *string   `json:"email,omitempty"`
	PhoneNumber           string    `json:"phone_number"`
	AgentType             string    `json:"agent_type"`
	VehicleType           string    `json:"vehicle_type"`
	IsActive              bool      `json:"is_active"`
	IsVerified            bool      `json:"is_verified"`
	Rating                float64   `json:"rating"`
	TotalDeliveries       int       `json:"total_deliveries"`
	TotalEarnings         float64   `json:"total_earnings"`
	BasePayoutPerDelivery float64   `json:"base_payout_per_delivery"`
	BonusMultiplier       float64   `json:"bonus_multiplier"`
	CreatedAt             time.Time `json:"created_at"`
}

type AgentActiveOrder struct {
	OrderID         int       `json:"order_id"`
	RestaurantID    int       `json:"restaurant_id"`
	RestaurantName  string    `json:"restaurant_name"`
	DeliveryAddress string    `json:"delivery_address"`
	OrderStatus     string    `json:"order_status"`
	ItemsCount      int       `json:"items_count"`
	DeliveryFee     float64   `json:"delivery_fee"`
	CreatedAt       time.Time `json:"created_at"`
	AssignedAt      *string   `json:"assigned_at,omitempty"`
}

// AgentActiveOrdersResponse wraps the list with the agent's running totals.
type AgentActiveOrdersResponse struct {
	AgentID         string             `json:"agent_id"`
	TotalEarnings   float64            `json:"total_earnings"`
	TotalDeliveries int                `json:"total_deliveries"`
	ActiveOrders    []AgentActiveOrder `json:"active_orders"`
}

type FulfillDeliveryRequest struct {
	ProofPhotoRef      string `json:"proof_photo_ref" validate:"required"`
	ProofPhotoFilename string `json:"proof_photo_filename,omitempty"`
}

type FulfillDeliveryResponse struct {
	AgentID         string    `json:"agent_id"`
	OrderID         int       `json:"order_id"`
	OrderStatus     string    `json:"order_status"`
	PayoutAmount    float64   `json:"payout_amount"`
	PayoutStatus    string    `json:"payout_status"`
	TotalEarnings   float64   `json:"total_earnings"`
	TotalDeliveries int       `json:"total_deliveries"`
	DeliveredAt     time.Time `json:"delivered_at"`
	ProofPhotoRef   string    `json:"proof_photo_ref"`
}

func (c *Client) GetAgent(ctx context.Context, agentID string) (*DeliveryAgent, error) {
	var a DeliveryAgent
	path := fmt.Sprintf("/delivery-agents/%s", agentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &a, "Failed to load agent"); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) AgentActiveOrders(ctx context.Context, agentID string) (*AgentActiveOrdersResponse, error) {
	var resp AgentActiveOrdersResponse
	path := fmt.Sprintf("/delivery-agents/%s/active-orders", agentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, "Failed to load active orders"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) FulfillOrder(ctx context.Context, agentID string, orderID int, req FulfillDeliveryRequest) (*FulfillDeliveryResponse, error) {
	var resp FulfillDeliveryResponse
	path := fmt.Sprintf("/delivery-agents/%s/orders/%d/fulfill", agentID, orderID)
	if err := c.do(ctx, http.MethodPost, path, req, &resp, "Failed to fulfill order"); err != nil {
		return nil, err
	}
	return &resp, nil
}
