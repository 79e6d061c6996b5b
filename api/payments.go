package api

import (
	"context"
	"net/http"
)

type CheckoutRequest struct {
	PaymentID string  `json:"payment_id" validate:"required"`
	OrderID   int     `json:"order_id" validate:"required,gt=0"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	var out CheckoutResponse
	if err := c.do(ctx, http.MethodPost, "/payments/stripe/checkout", req, &out, "Failed to create checkout"); err != nil {
		return nil, err
	}
	return &out, nil
}
