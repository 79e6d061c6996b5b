package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type Restaurant struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description,omitempty"`
	CuisineType    string    `json:"cuisine_type"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	CommissionRate float64   `json:"commission_rate"`
	IsActive       bool      `json:"is_active"`
	IsApproved     bool      `json:"is_approved"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListRestaurants returns restaurants that are both active and approved.
// The backend returns all of them; filtering happens here.
func (c *Client) ListRestaurants(ctx context.Context, skip, limit int) ([]Restaurant, error) {
	var all []Restaurant
	path := fmt.Sprintf("/restaurants?skip=%d&limit=%d", skip, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &all, "Failed to load restaurants"); err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.IsActive && r.IsApproved {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Client) GetRestaurant(ctx context.Context, id int) (*Restaurant, error) {
	var r Restaurant
	path := fmt.Sprintf("/restaurants/%d", id)
	if err := c.do(ctx, http.MethodGet, path, nil, &r, "Failed to load restaurant"); err != nil {
		return nil, err
	}
	return &r, nil
}
