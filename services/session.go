package services

import (
	"context"
	"errors"
	"fmt"

	"campusbites-telegram/db"
	"campusbites-telegram/models"

	"github.com/jackc/pgx/v5"
)

// Session roles.
const (
	RoleCustomer   = "customer"
	RoleAgent      = "agent"
	RoleRestaurant = "restaurant"
)

// GetSession returns the chat's linked backend identity, or nil when the
// chat has not logged in.
func GetSession(ctx context.Context, chatID int64) (*models.Session, error) {
	var s models.Session
	err := db.Pool.QueryRow(ctx, `
		SELECT tg_user_id, chat_id, role, backend_user_id, agent_id, restaurant_id, cookie
		FROM sessions WHERE chat_id = $1`, chatID,
	).Scan(&s.TgUserID, &s.ChatID, &s.Role, &s.BackendUserID, &s.AgentID, &s.RestaurantID, &s.Cookie)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &s, nil
}

func SaveSession(ctx context.Context, s models.Session) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO sessions (tg_user_id, chat_id, role, backend_user_id, agent_id, restaurant_id, cookie, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (chat_id) DO UPDATE SET
			tg_user_id = $1, role = $3, backend_user_id = $4,
			agent_id = $5, restaurant_id = $6, cookie = $7, updated_at = now()`,
		s.TgUserID, s.ChatID, s.Role, s.BackendUserID, s.AgentID, s.RestaurantID, s.Cookie,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func DeleteSession(ctx context.Context, chatID int64) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM sessions WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
