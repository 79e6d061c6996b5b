package services

import (
	"context"
	"errors"
	"strings"

	"campusbites-telegram/db"

	"github.com/jackc/pgx/v5"
)

// Order card audiences.
const (
	AudienceCustomer   = "customer"
	AudienceAgent      = "agent"
	AudienceRestaurant = "restaurant"
)

// EnsureOrderCardsTable creates order_cards if missing (safety net when
// migrate was not run).
func EnsureOrderCardsTable(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS order_cards (
			order_id BIGINT NOT NULL,
			audience TEXT NOT NULL CHECK (audience IN ('customer','agent','restaurant')),
			chat_id BIGINT NOT NULL,
			message_id INT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (order_id, audience)
		);
	`)
	return err
}

func isOrderCardsMissing(err error) bool {
	return err != nil && strings.Contains(err.Error(), "order_cards") && strings.Contains(err.Error(), "does not exist")
}

// GetOrderCard returns the chat_id and message_id of the order's card for
// the given audience so the card can be edited in place. ok is false when
// no card was sent yet.
func GetOrderCard(ctx context.Context, orderID int, audience string) (chatID int64, messageID int, ok bool, err error) {
	err = db.Pool.QueryRow(ctx, `
		SELECT chat_id, message_id FROM order_cards WHERE order_id = $1 AND audience = $2`,
		orderID, audience,
	).Scan(&chatID, &messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, false, nil
		}
		if isOrderCardsMissing(err) {
			if ensureErr := EnsureOrderCardsTable(ctx); ensureErr != nil {
				return 0, 0, false, ensureErr
			}
			return GetOrderCard(ctx, orderID, audience)
		}
		return 0, 0, false, err
	}
	return chatID, messageID, true, nil
}

// UpsertOrderCard inserts or updates the card pointer for (order_id, audience).
func UpsertOrderCard(ctx context.Context, orderID int, audience string, chatID int64, messageID int) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO order_cards (order_id, audience, chat_id, message_id, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (order_id, audience) DO UPDATE SET chat_id = EXCLUDED.chat_id, message_id = EXCLUDED.message_id, updated_at = now()`,
		orderID, audience, chatID, messageID,
	)
	if err != nil && isOrderCardsMissing(err) {
		if ensureErr := EnsureOrderCardsTable(ctx); ensureErr != nil {
			return ensureErr
		}
		return UpsertOrderCard(ctx, orderID, audience, chatID, messageID)
	}
	return err
}

// DeleteOrderCard drops the pointer once the order reaches a terminal state.
func DeleteOrderCard(ctx context.Context, orderID int, audience string) error {
	_, err := db.Pool.Exec(ctx,
		`DELETE FROM order_cards WHERE order_id = $1 AND audience = $2`, orderID, audience)
	if err != nil && isOrderCardsMissing(err) {
		return nil
	}
	return err
}
