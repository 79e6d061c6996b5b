package models

import "time"

// PendingDispatch is the context staged at checkout and consumed by the
// payment-success handler to kick off delivery dispatch.
type PendingDispatch struct {
	OrderID         int    `json:"order_id"`
	DeliveryAddress string `json:"delivery_address"`
}

// ProofOfDelivery references a captured delivery photo awaiting fulfillment.
type ProofOfDelivery struct {
	Key       string    `json:"key"`
	FileID    string    `json:"file_id"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Session links a Telegram user to a backend identity.
type Session struct {
	TgUserID      int64
	ChatID        int64
	Role          string // customer, agent or restaurant
	BackendUserID int
	AgentID       string
	RestaurantID  int
	Cookie        string
}
