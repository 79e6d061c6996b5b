package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"campusbites-telegram/api"
	"campusbites-telegram/models"
)

type memProofs struct {
	mu     sync.Mutex
	proofs map[string]*models.ProofOfDelivery
}

func newMemProofs() *memProofs {
	return &memProofs{proofs: make(map[string]*models.ProofOfDelivery)}
}

func (m *memProofs) key(agentID string, orderID int) string {
	return fmt.Sprintf("%s:%d", agentID, orderID)
}

func (m *memProofs) put(agentID string, orderID int, proof *models.ProofOfDelivery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proofs[m.key(agentID, orderID)] = proof
}

func (m *memProofs) Current(ctx context.Context, agentID string, orderID int) (*models.ProofOfDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proofs[m.key(agentID, orderID)], nil
}

func (m *memProofs) Clear(ctx context.Context, agentID string, orderID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.proofs, m.key(agentID, orderID))
	return nil
}

type fakeFulfillAPI struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
	err   error
	last  api.FulfillDeliveryRequest
}

func (f *fakeFulfillAPI) FulfillOrder(ctx context.Context, agentID string, orderID int, req api.FulfillDeliveryRequest) (*api.FulfillDeliveryResponse, error) {
	f.mu.Lock()
	f.calls++
	f.last = req
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &api.FulfillDeliveryResponse{
		AgentID:         agentID,
		OrderID:         orderID,
		OrderStatus:     "delivered",
		PayoutAmount:    6.50,
		PayoutStatus:    "completed",
		TotalEarnings:   120.50,
		TotalDeliveries: 18,
	}, nil
}

func TestFulfillRequiresProof(t *testing.T) {
	backend := &fakeFulfillAPI{}
	f := NewFulfiller(newMemProofs())

	_, err := f.Fulfill(context.Background(), backend, "AGT-9", 42)
	if !errors.Is(err, ErrProofRequired) {
		t.Fatalf("got %v, want ErrProofRequired", err)
	}
	if backend.calls != 0 {
		t.Fatal("fulfill without proof must not reach the network")
	}
}

func TestFulfillSendsProofKeyAndClearsIt(t *testing.T) {
	backend := &fakeFulfillAPI{}
	proofs := newMemProofs()
	proofs.put("AGT-9", 42, &models.ProofOfDelivery{Key: "pod:AGT-9:42:1700000000", FileName: "door.jpg"})
	f := NewFulfiller(proofs)

	resp, err := f.Fulfill(context.Background(), backend, "AGT-9", 42)
	if err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	if resp.PayoutAmount != 6.50 || resp.TotalEarnings != 120.50 || resp.TotalDeliveries != 18 {
		t.Fatalf("payout fields not carried through: %+v", resp)
	}
	if backend.last.ProofPhotoRef != "pod:AGT-9:42:1700000000" || backend.last.ProofPhotoFilename != "door.jpg" {
		t.Fatalf("wrong fulfill payload: %+v", backend.last)
	}
	if p, _ := proofs.Current(context.Background(), "AGT-9", 42); p != nil {
		t.Fatal("proof not cleared after success")
	}
}

func TestFulfillKeepsProofOnBackendError(t *testing.T) {
	backend := &fakeFulfillAPI{err: &api.Error{StatusCode: 409, Detail: "Order not assigned to agent"}}
	proofs := newMemProofs()
	proofs.put("AGT-9", 42, &models.ProofOfDelivery{Key: "pod:AGT-9:42:1700000000"})
	f := NewFulfiller(proofs)

	if _, err := f.Fulfill(context.Background(), backend, "AGT-9", 42); err == nil {
		t.Fatal("want backend error")
	}
	if p, _ := proofs.Current(context.Background(), "AGT-9", 42); p == nil {
		t.Fatal("proof must survive a failed fulfill for retry")
	}
}

func TestFulfillBlocksConcurrentAttempts(t *testing.T) {
	backend := &fakeFulfillAPI{delay: 50 * time.Millisecond}
	proofs := newMemProofs()
	proofs.put("AGT-9", 42, &models.ProofOfDelivery{Key: "pod:AGT-9:42:1700000000"})
	f := NewFulfiller(proofs)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.Fulfill(context.Background(), backend, "AGT-9", 42)
			errs <- err
		}()
	}

	var inFlight, ok int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			ok++
		case errors.Is(err, ErrFulfillInFlight):
			inFlight++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || inFlight != 1 {
		t.Fatalf("got %d successes and %d in-flight rejections, want 1 and 1", ok, inFlight)
	}
	if backend.calls != 1 {
		t.Fatalf("backend called %d times, want 1", backend.calls)
	}
}
