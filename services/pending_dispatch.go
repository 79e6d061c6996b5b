package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campusbites-telegram/models"

	"github.com/redis/go-redis/v9"
)

const pendingDispatchTTL = time.Hour

// PendingDispatchStore stages the order context between checkout and the
// payment-success handler that starts dispatch.
type PendingDispatchStore struct {
	rdb *redis.Client
}

func NewPendingDispatchStore(rdb *redis.Client) *PendingDispatchStore {
	return &PendingDispatchStore{rdb: rdb}
}

func pendingDispatchKey(chatID int64) string {
	return fmt.Sprintf("dispatch:pending:%d", chatID)
}

func (p *PendingDispatchStore) Stage(ctx context.Context, chatID int64, pd models.PendingDispatch) error {
	buf, err := json.Marshal(pd)
	if err != nil {
		return fmt.Errorf("encode pending dispatch: %w", err)
	}
	if err := p.rdb.Set(ctx, pendingDispatchKey(chatID), buf, pendingDispatchTTL).Err(); err != nil {
		return fmt.Errorf("stage pending dispatch: %w", err)
	}
	return nil
}

// Get returns the staged context, or nil when nothing is staged.
func (p *PendingDispatchStore) Get(ctx context.Context, chatID int64) (*models.PendingDispatch, error) {
	raw, err := p.rdb.Get(ctx, pendingDispatchKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending dispatch: %w", err)
	}
	var pd models.PendingDispatch
	if err := json.Unmarshal(raw, &pd); err != nil {
		return nil, fmt.Errorf("decode pending dispatch: %w", err)
	}
	return &pd, nil
}

func (p *PendingDispatchStore) Clear(ctx context.Context, chatID int64) error {
	if err := p.rdb.Del(ctx, pendingDispatchKey(chatID)).Err(); err != nil {
		return fmt.Errorf("clear pending dispatch: %w", err)
	}
	return nil
}
