package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"campusbites-telegram/api"
	"campusbites-telegram/models"

	"github.com/redis/go-redis/v9"
)

// ErrProofRequired blocks fulfillment until a delivery photo is attached.
var ErrProofRequired = errors.New("Please capture/upload a delivery photo before fulfilling.")

// ErrFulfillInFlight blocks a second fulfill attempt while one is running.
var ErrFulfillInFlight = errors.New("Fulfillment already in progress for this order.")

const proofTTL = 24 * time.Hour

// ProofStore keeps proof-of-delivery photo references in redis until the
// order is fulfilled. Keys carry the capture timestamp so a re-attached
// photo gets a fresh key.
type ProofStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewProofStore(rdb *redis.Client) *ProofStore {
	return &ProofStore{rdb: rdb, now: time.Now}
}

func proofIndexKey(agentID string, orderID int) string {
	return fmt.Sprintf("pod:index:%s:%d", agentID, orderID)
}

// Attach stores a photo reference for the order and returns the proof key.
func (p *ProofStore) Attach(ctx context.Context, agentID string, orderID int, fileID, fileName string) (*models.ProofOfDelivery, error) {
	now := p.now()
	proof := &models.ProofOfDelivery{
		Key:       fmt.Sprintf("pod:%s:%d:%d", agentID, orderID, now.Unix()),
		FileID:    fileID,
		FileName:  fileName,
		CreatedAt: now,
	}
	buf, err := json.Marshal(proof)
	if err != nil {
		return nil, fmt.Errorf("encode proof: %w", err)
	}
	if err := p.rdb.Set(ctx, proofIndexKey(agentID, orderID), buf, proofTTL).Err(); err != nil {
		return nil, fmt.Errorf("store proof: %w", err)
	}
	return proof, nil
}

// Current returns the latest proof for the order, or nil when none is stored.
func (p *ProofStore) Current(ctx context.Context, agentID string, orderID int) (*models.ProofOfDelivery, error) {
	raw, err := p.rdb.Get(ctx, proofIndexKey(agentID, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load proof: %w", err)
	}
	var proof models.ProofOfDelivery
	if err := json.Unmarshal(raw, &proof); err != nil {
		return nil, fmt.Errorf("decode proof: %w", err)
	}
	return &proof, nil
}

func (p *ProofStore) Clear(ctx context.Context, agentID string, orderID int) error {
	if err := p.rdb.Del(ctx, proofIndexKey(agentID, orderID)).Err(); err != nil {
		return fmt.Errorf("clear proof: %w", err)
	}
	return nil
}

type fulfillAPI interface {
	FulfillOrder(ctx context.Context, agentID string, orderID int, req api.FulfillDeliveryRequest) (*api.FulfillDeliveryResponse, error)
}

type proofSource interface {
	Current(ctx context.Context, agentID string, orderID int) (*models.ProofOfDelivery, error)
	Clear(ctx context.Context, agentID string, orderID int) error
}

// Fulfiller completes deliveries. A fulfill needs a stored proof and runs
// at most once per order at a time.
type Fulfiller struct {
	proofs proofSource

	mu       sync.Mutex
	inFlight map[int]bool
}

func NewFulfiller(proofs proofSource) *Fulfiller {
	return &Fulfiller{proofs: proofs, inFlight: make(map[int]bool)}
}

// Fulfill completes the delivery through the caller's session-scoped
// client. Without a stored proof it fails before any network call; a
// concurrent attempt on the same order is rejected. On success the proof
// is cleared.
func (f *Fulfiller) Fulfill(ctx context.Context, backend fulfillAPI, agentID string, orderID int) (*api.FulfillDeliveryResponse, error) {
	f.mu.Lock()
	if f.inFlight[orderID] {
		f.mu.Unlock()
		return nil, ErrFulfillInFlight
	}
	f.inFlight[orderID] = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		delete(f.inFlight, orderID)
		f.mu.Unlock()
	}()

	proof, err := f.proofs.Current(ctx, agentID, orderID)
	if err != nil {
		return nil, err
	}
	if proof == nil {
		return nil, ErrProofRequired
	}

	resp, err := backend.FulfillOrder(ctx, agentID, orderID, api.FulfillDeliveryRequest{
		ProofPhotoRef:      proof.Key,
		ProofPhotoFilename: proof.FileName,
	})
	if err != nil {
		return nil, err
	}
	if err := f.proofs.Clear(ctx, agentID, orderID); err != nil {
		return resp, err
	}
	return resp, nil
}
