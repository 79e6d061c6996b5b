package services

import (
	"context"
	"errors"
	"testing"

	"campusbites-telegram/api"
)

func TestValidateBidAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		min     float64
		max     float64
		want    float64
		wantErr string
	}{
		{"valid mid-range", "5.25", 3.00, 7.50, 5.25, ""},
		{"lower boundary inclusive", "3.00", 3.00, 7.50, 3.00, ""},
		{"upper boundary inclusive", "7.50", 3.00, 7.50, 7.50, ""},
		{"trims whitespace", " 4.00 ", 3.00, 7.50, 4.00, ""},
		{"not a number", "five", 3.00, 7.50, 0, "Bid must be a number"},
		{"empty", "", 3.00, 7.50, 0, "Bid must be a number"},
		{"nan literal", "NaN", 3.00, 7.50, 0, "Bid must be a number"},
		{"infinity", "Inf", 3.00, 7.50, 0, "Bid must be a number"},
		{"below minimum", "2.99", 3.00, 7.50, 0, "Bid must be at least $3.00"},
		{"above maximum", "7.51", 3.00, 7.50, 0, "Bid must be no more than $7.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateBidAmount(tt.raw, tt.min, tt.max)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("got err %v, want %q", err, tt.wantErr)
			}
		})
	}
}

type fakeBidPlacer struct {
	calls int
	err   error
	last  api.DeliveryBidCreateRequest
}

func (f *fakeBidPlacer) PlaceBid(ctx context.Context, req api.DeliveryBidCreateRequest) (*api.DeliveryBid, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &api.DeliveryBid{
		BidID: 1, OrderID: req.OrderID, AgentID: req.AgentID,
		BidAmount: req.BidAmount, PoolPhase: req.PoolPhase, BidStatus: api.BidStatusPlaced,
	}, nil
}

type fakeSubmitted struct {
	added map[int]bool
	err   error
}

func (f *fakeSubmitted) Add(ctx context.Context, agentID string, orderID int) error {
	if f.err != nil {
		return f.err
	}
	if f.added == nil {
		f.added = make(map[int]bool)
	}
	f.added[orderID] = true
	return nil
}

func (f *fakeSubmitted) Contains(ctx context.Context, agentID string, orderID int) (bool, error) {
	return f.added[orderID], f.err
}

func (f *fakeSubmitted) Remove(ctx context.Context, agentID string, orderID int) error {
	delete(f.added, orderID)
	return f.err
}

func TestSubmitRejectsInvalidAmountBeforeNetwork(t *testing.T) {
	placer := &fakeBidPlacer{}
	svc := NewBidService(&fakeSubmitted{})
	card := FeedCard{OrderID: 42, MinAllowedFare: 3.00, MaxAllowedFare: 7.50, PoolPhase: "student_pool"}

	_, err := svc.Submit(context.Background(), placer, "AGT-9", card, "2.99")
	if err == nil || err.Error() != "Bid must be at least $3.00" {
		t.Fatalf("got err %v", err)
	}
	if placer.calls != 0 {
		t.Fatal("invalid bid reached the network")
	}
}

func TestSubmitPlacesBidAndRecordsOrder(t *testing.T) {
	placer := &fakeBidPlacer{}
	submitted := &fakeSubmitted{}
	svc := NewBidService(submitted)
	card := FeedCard{OrderID: 42, MinAllowedFare: 3.00, MaxAllowedFare: 7.50, PoolPhase: "all_agents"}

	bid, err := svc.Submit(context.Background(), placer, "AGT-9", card, "7.50")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if bid.BidAmount != 7.50 || placer.last.OrderID != 42 || placer.last.AgentID != "AGT-9" {
		t.Fatalf("wrong request: %+v", placer.last)
	}
	if placer.last.PoolPhase != "all_agents" {
		t.Fatalf("pool phase not carried from the card: %+v", placer.last)
	}
	if !submitted.added[42] {
		t.Fatal("order not recorded in the submitted set")
	}
}

func TestSubmitSurfacesBackendDetail(t *testing.T) {
	placer := &fakeBidPlacer{err: &api.Error{StatusCode: 409, Detail: "Bidding window closed"}}
	submitted := &fakeSubmitted{}
	svc := NewBidService(submitted)
	card := FeedCard{OrderID: 42, MinAllowedFare: 3.00, MaxAllowedFare: 7.50, PoolPhase: "student_pool"}

	_, err := svc.Submit(context.Background(), placer, "AGT-9", card, "5.00")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Detail != "Bidding window closed" {
		t.Fatalf("got err %v", err)
	}
	if len(submitted.added) != 0 {
		t.Fatal("failed bid must not join the submitted set")
	}
}

type fakeBidLister struct {
	byOrder map[int][]api.DeliveryBid
	err     error
}

func (f *fakeBidLister) ListOrderBids(ctx context.Context, orderID int) ([]api.DeliveryBid, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byOrder[orderID], nil
}

func TestReconcileDepartedResolvesOwnBids(t *testing.T) {
	submitted := &fakeSubmitted{added: map[int]bool{42: true, 43: true}}
	svc := NewBidService(submitted)
	lister := &fakeBidLister{byOrder: map[int][]api.DeliveryBid{
		42: {
			{BidID: 1, OrderID: 42, AgentID: "AGT-7", BidAmount: 4.00, BidStatus: api.BidStatusRejected},
			{BidID: 2, OrderID: 42, AgentID: "AGT-9", BidAmount: 4.50, BidStatus: api.BidStatusAccepted},
		},
		43: {
			{BidID: 3, OrderID: 43, AgentID: "AGT-9", BidAmount: 6.00, BidStatus: api.BidStatusRejected},
		},
		// order 44 was never bid on by this agent
		44: {
			{BidID: 4, OrderID: 44, AgentID: "AGT-7", BidAmount: 5.00, BidStatus: api.BidStatusAccepted},
		},
	}}

	outcomes, err := svc.ReconcileDeparted(context.Background(), lister, "AGT-9", []int{42, 43, 44})
	if err != nil {
		t.Fatalf("ReconcileDeparted: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("want 2 outcomes, got %+v", outcomes)
	}
	byOrder := make(map[int]BidOutcome)
	for _, oc := range outcomes {
		byOrder[oc.OrderID] = oc
	}
	if byOrder[42].BidStatus != api.BidStatusAccepted || byOrder[42].BidAmount != 4.50 {
		t.Fatalf("order 42 outcome wrong: %+v", byOrder[42])
	}
	if byOrder[43].BidStatus != api.BidStatusRejected {
		t.Fatalf("order 43 outcome wrong: %+v", byOrder[43])
	}
	if len(submitted.added) != 0 {
		t.Fatalf("resolved orders must leave the submitted set, still have %+v", submitted.added)
	}
}

func TestReconcileDepartedKeepsOrderOnListerError(t *testing.T) {
	submitted := &fakeSubmitted{added: map[int]bool{42: true}}
	svc := NewBidService(submitted)
	lister := &fakeBidLister{err: &api.Error{StatusCode: 503, Detail: "unavailable"}}

	outcomes, err := svc.ReconcileDeparted(context.Background(), lister, "AGT-9", []int{42})
	if err != nil {
		t.Fatalf("ReconcileDeparted: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("want no outcomes on lister failure, got %+v", outcomes)
	}
	if !submitted.added[42] {
		t.Fatal("unresolved order must stay in the submitted set for a retry")
	}
}
