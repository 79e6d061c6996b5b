package models

// CartItem is one menu item line in a chat's cart.
type CartItem struct {
	ItemID         int     `json:"item_id"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	Qty            int     `json:"qty"`
	Category       string  `json:"category"`
	RestaurantID   int     `json:"restaurant_id"`
	RestaurantName string  `json:"restaurant_name"`
}

// Cart is the per-chat cart. All items belong to a single restaurant.
type Cart struct {
	Items []CartItem `json:"items"`
}

func (c Cart) ItemsTotal() float64 {
	var total float64
	for _, it := range c.Items {
		total += it.Price * float64(it.Qty)
	}
	return total
}

func (c Cart) Count() int {
	var n int
	for _, it := range c.Items {
		n += it.Qty
	}
	return n
}

// RestaurantID returns the restaurant the cart belongs to, or 0 when empty.
func (c Cart) RestaurantID() int {
	if len(c.Items) == 0 {
		return 0
	}
	return c.Items[0].RestaurantID
}
