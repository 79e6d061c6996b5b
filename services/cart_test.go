package services

import (
	"testing"

	"campusbites-telegram/models"
)

func item(id int, name string, price float64, qty, restaurantID int) models.CartItem {
	return models.CartItem{
		ItemID:       id,
		Name:         name,
		Price:        price,
		Qty:          qty,
		RestaurantID: restaurantID,
	}
}

func TestApplyCartAction(t *testing.T) {
	base := models.Cart{Items: []models.CartItem{
		item(1, "Plov", 6.00, 2, 10),
		item(2, "Somsa", 1.50, 1, 10),
	}}

	tests := []struct {
		name      string
		cart      models.Cart
		action    CartAction
		wantIDs   []int
		wantQtys  []int
		wantTotal float64
	}{
		{
			"add new item same restaurant",
			base,
			AddItem{Item: item(3, "Tea", 1.00, 1, 10)},
			[]int{1, 2, 3}, []int{2, 1, 1}, 14.50,
		},
		{
			"add existing item increments quantity",
			base,
			AddItem{Item: item(1, "Plov", 6.00, 1, 10)},
			[]int{1, 2}, []int{3, 1}, 19.50,
		},
		{
			"add with zero qty defaults to one",
			models.Cart{},
			AddItem{Item: item(5, "Lagman", 4.00, 0, 10)},
			[]int{5}, []int{1}, 4.00,
		},
		{
			"add from another restaurant starts fresh",
			base,
			AddItem{Item: item(9, "Burger", 5.00, 1, 20)},
			[]int{9}, []int{1}, 5.00,
		},
		{
			"remove item",
			base,
			RemoveItem{ItemID: 1},
			[]int{2}, []int{1}, 1.50,
		},
		{
			"remove unknown item is a no-op",
			base,
			RemoveItem{ItemID: 99},
			[]int{1, 2}, []int{2, 1}, 13.50,
		},
		{
			"update quantity",
			base,
			UpdateQuantity{ItemID: 2, Qty: 4},
			[]int{1, 2}, []int{2, 4}, 18.00,
		},
		{
			"update quantity to zero removes",
			base,
			UpdateQuantity{ItemID: 1, Qty: 0},
			[]int{2}, []int{1}, 1.50,
		},
		{
			"update negative quantity removes",
			base,
			UpdateQuantity{ItemID: 1, Qty: -2},
			[]int{2}, []int{1}, 1.50,
		},
		{
			"clear",
			base,
			ClearCart{},
			nil, nil, 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyCartAction(tt.cart, tt.action)
			if len(got.Items) != len(tt.wantIDs) {
				t.Fatalf("got %d items, want %d: %+v", len(got.Items), len(tt.wantIDs), got.Items)
			}
			for i, it := range got.Items {
				if it.ItemID != tt.wantIDs[i] || it.Qty != tt.wantQtys[i] {
					t.Errorf("item %d: got (id=%d qty=%d), want (id=%d qty=%d)",
						i, it.ItemID, it.Qty, tt.wantIDs[i], tt.wantQtys[i])
				}
			}
			if total := got.ItemsTotal(); total != tt.wantTotal {
				t.Errorf("total = %.2f, want %.2f", total, tt.wantTotal)
			}
		})
	}
}

func TestApplyCartActionDoesNotMutateInput(t *testing.T) {
	cart := models.Cart{Items: []models.CartItem{item(1, "Plov", 6.00, 2, 10)}}
	_ = ApplyCartAction(cart, UpdateQuantity{ItemID: 1, Qty: 9})
	if cart.Items[0].Qty != 2 {
		t.Fatalf("input cart mutated: qty = %d", cart.Items[0].Qty)
	}
}
