package api

import (
	"context"
	"fmt"
	"net/http"
)

type MenuItem struct {
	MenuID       int     `json:"menu_id"`
	RestaurantID int     `json:"restaurant_id"`
	ItemName     string  `json:"item_name"`
	Price        float64 `json:"price"`
	Availability bool    `json:"availability"`
	Category     *string `json:"category,omitempty"`
}

// MenuByRestaurant returns the restaurant's available items.
func (c *Client) MenuByRestaurant(ctx context.Context, restaurantID, skip, limit int) ([]MenuItem, error) {
	var all []MenuItem
	path := fmt.Sprintf("/menu/restaurant/%d?skip=%d&limit=%d", restaurantID, skip, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &all, "Failed to load menu"); err != nil {
		return nil, err
	}
	out := all[:0]
	for _, m := range all {
		if m.Availability {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *Client) GetMenuItem(ctx context.Context, menuID int) (*MenuItem, error) {
	var m MenuItem
	path := fmt.Sprintf("/menu/%d", menuID)
	if err := c.do(ctx, http.MethodGet, path, nil, &m, "Failed to load menu item"); err != nil {
		return nil, err
	}
	return &m, nil
}
