package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"campusbites-telegram/db"
	"campusbites-telegram/models"

	"github.com/jackc/pgx/v5"
)

// CartAction is the closed set of cart mutations. Handlers construct one of
// the concrete actions below and pass it to ApplyCartAction.
type CartAction interface {
	isCartAction()
}

type AddItem struct {
	Item models.CartItem
}

type RemoveItem struct {
	ItemID int
}

type UpdateQuantity struct {
	ItemID int
	Qty    int
}

type ClearCart struct{}

func (AddItem) isCartAction()        {}
func (RemoveItem) isCartAction()     {}
func (UpdateQuantity) isCartAction() {}
func (ClearCart) isCartAction()      {}

// ApplyCartAction is a pure reducer: it returns the next cart without
// touching the input. Adding an item from a different restaurant replaces
// the cart; a quantity of zero or less removes the line.
func ApplyCartAction(cart models.Cart, action CartAction) models.Cart {
	switch a := action.(type) {
	case AddItem:
		if cart.RestaurantID() != 0 && cart.RestaurantID() != a.Item.RestaurantID {
			it := a.Item
			if it.Qty <= 0 {
				it.Qty = 1
			}
			return models.Cart{Items: []models.CartItem{it}}
		}
		next := cloneCart(cart)
		for i := range next.Items {
			if next.Items[i].ItemID == a.Item.ItemID {
				next.Items[i].Qty += max(a.Item.Qty, 1)
				return next
			}
		}
		it := a.Item
		if it.Qty <= 0 {
			it.Qty = 1
		}
		next.Items = append(next.Items, it)
		return next

	case RemoveItem:
		next := models.Cart{}
		for _, it := range cart.Items {
			if it.ItemID != a.ItemID {
				next.Items = append(next.Items, it)
			}
		}
		return next

	case UpdateQuantity:
		if a.Qty <= 0 {
			return ApplyCartAction(cart, RemoveItem{ItemID: a.ItemID})
		}
		next := cloneCart(cart)
		for i := range next.Items {
			if next.Items[i].ItemID == a.ItemID {
				next.Items[i].Qty = a.Qty
			}
		}
		return next

	case ClearCart:
		return models.Cart{}
	}
	return cart
}

func cloneCart(cart models.Cart) models.Cart {
	next := models.Cart{Items: make([]models.CartItem, len(cart.Items))}
	copy(next.Items, cart.Items)
	return next
}

// GetCart loads the chat's cart, returning an empty cart when none exists.
func GetCart(ctx context.Context, chatID int64) (models.Cart, error) {
	var raw []byte
	err := db.Pool.QueryRow(ctx,
		`SELECT items FROM carts WHERE chat_id = $1`, chatID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Cart{}, nil
	}
	if err != nil {
		return models.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var cart models.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return models.Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

func SaveCart(ctx context.Context, chatID int64, cart models.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO carts (chat_id, items, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (chat_id) DO UPDATE SET items = $2, updated_at = now()`,
		chatID, raw,
	)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func DeleteCart(ctx context.Context, chatID int64) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM carts WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// MutateCart loads, applies one action and saves, returning the new cart.
func MutateCart(ctx context.Context, chatID int64, action CartAction) (models.Cart, error) {
	cart, err := GetCart(ctx, chatID)
	if err != nil {
		return models.Cart{}, err
	}
	next := ApplyCartAction(cart, action)
	if err := SaveCart(ctx, chatID, next); err != nil {
		return models.Cart{}, err
	}
	return next, nil
}
