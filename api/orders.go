package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type OrderItem struct {
	ItemID         int            `json:"item_id" validate:"required,gt=0"`
	Quantity       int            `json:"quantity" validate:"required,gt=0"`
	Customizations map[string]any `json:"customizations,omitempty"`
}

type PlaceOrderRequest struct {
	UserID           int         `json:"user_id" validate:"required,gt=0"`
	RestaurantID     int         `json:"restaurant_id" validate:"required,gt=0"`
	OrderItems       []OrderItem `json:"order_items" validate:"required,min=1,dive"`
	BaseFare         float64     `json:"base_fare" validate:"gte=0"`
	DeliveryFee      float64     `json:"delivery_fee" validate:"gte=0"`
	CommissionAmount float64     `json:"commission_amount" validate:"gte=0"`
	OrderStatus      string      `json:"order_status,omitempty"`
}

type Order struct {
	OrderID           int         `json:"order_id"`
	UserID            int         `json:"user_id"`
	RestaurantID      int         `json:"restaurant_id"`
	AssignedPartnerID *string     `json:"assigned_partner_id,omitempty"`
	OrderItems        []OrderItem `json:"order_items"`
	BaseFare          float64     `json:"base_fare"`
	DeliveryFee       float64     `json:"delivery_fee"`
	CommissionAmount  float64     `json:"commission_amount"`
	OrderStatus       string      `json:"order_status"`
	CreatedAt         time.Time   `json:"created_at"`
}

// Total is the customer-facing amount: food plus delivery.
func (o Order) Total() float64 {
	return o.BaseFare + o.DeliveryFee
}

func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &o, "Failed to place order"); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) ListUserOrders(ctx context.Context, userID int) ([]Order, error) {
	var out []Order
	path := fmt.Sprintf("/orders/user/%d", userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, "Failed to load orders"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListOrders(ctx context.Context, skip, limit int) ([]Order, error) {
	var out []Order
	path := fmt.Sprintf("/orders?skip=%d&limit=%d", skip, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, "Failed to load orders"); err != nil {
		return nil, err
	}
	return out, nil
}
