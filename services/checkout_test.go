package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"campusbites-telegram/api"
	"campusbites-telegram/models"
)

type fakeCheckoutAPI struct {
	restaurantErr error
	fareErr       error
	orderErr      error
	checkoutErr   error

	fareReq      *api.FareRecommendationRequest
	placedOrder  *api.PlaceOrderRequest
	checkoutReq  *api.CheckoutRequest
	fareResponse api.FareRecommendation
}

func (f *fakeCheckoutAPI) GetRestaurant(ctx context.Context, id int) (*api.Restaurant, error) {
	if f.restaurantErr != nil {
		return nil, f.restaurantErr
	}
	return &api.Restaurant{
		ID: id, Name: "Campus Grill", Address: "12 University Ave",
		CommissionRate: 0.10, IsActive: true, IsApproved: true,
	}, nil
}

func (f *fakeCheckoutAPI) FareRecommendation(ctx context.Context, req api.FareRecommendationRequest) (*api.FareRecommendation, error) {
	if f.fareErr != nil {
		return nil, f.fareErr
	}
	f.fareReq = &req
	resp := f.fareResponse
	return &resp, nil
}

func (f *fakeCheckoutAPI) PlaceOrder(ctx context.Context, req api.PlaceOrderRequest) (*api.Order, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.placedOrder = &req
	return &api.Order{
		OrderID: 77, UserID: req.UserID, RestaurantID: req.RestaurantID,
		OrderItems: req.OrderItems, BaseFare: req.BaseFare,
		DeliveryFee: req.DeliveryFee, CommissionAmount: req.CommissionAmount,
		OrderStatus: "pending",
	}, nil
}

func (f *fakeCheckoutAPI) CreateCheckout(ctx context.Context, req api.CheckoutRequest) (*api.CheckoutResponse, error) {
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	f.checkoutReq = &req
	return &api.CheckoutResponse{URL: "https://pay.example/cs_123"}, nil
}

type fakeStager struct {
	staged *models.PendingDispatch
	err    error
}

func (f *fakeStager) Stage(ctx context.Context, chatID int64, pd models.PendingDispatch) error {
	if f.err != nil {
		return f.err
	}
	f.staged = &pd
	return nil
}

func testCart() models.Cart {
	return models.Cart{Items: []models.CartItem{
		{ItemID: 1, Name: "Plov", Price: 6.00, Qty: 2, RestaurantID: 10},
		{ItemID: 2, Name: "Somsa", Price: 1.50, Qty: 1, RestaurantID: 10},
	}}
}

func TestCheckoutHappyPath(t *testing.T) {
	backend := &fakeCheckoutAPI{fareResponse: api.FareRecommendation{BaseFare: 4.25, MaxBidLimit: 6.38}}
	stager := &fakeStager{}
	svc := NewCheckoutService(stager, quietLog())

	res, err := svc.Checkout(context.Background(), backend, 555, 9, testCart(), "Dorm 4, Room 12")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if res.Order.OrderID != 77 || res.DeliveryFee != 4.25 || res.PaymentURL != "https://pay.example/cs_123" {
		t.Fatalf("bad result: %+v", res)
	}
	if backend.fareReq.UserLocation.Address != "Dorm 4, Room 12" || backend.fareReq.RestaurantLocation.Address != "12 University Ave" {
		t.Fatalf("fare quote not built from both addresses: %+v", backend.fareReq)
	}
	// subtotal 13.50, 10% commission, quoted fare as delivery fee
	if backend.placedOrder.BaseFare != 13.50 || backend.placedOrder.DeliveryFee != 4.25 || backend.placedOrder.CommissionAmount != 1.35 {
		t.Fatalf("order amounts wrong: %+v", backend.placedOrder)
	}
	if len(backend.placedOrder.OrderItems) != 2 || backend.placedOrder.OrderItems[0].Quantity != 2 {
		t.Fatalf("cart items not carried over: %+v", backend.placedOrder.OrderItems)
	}
	if stager.staged == nil || stager.staged.OrderID != 77 || stager.staged.DeliveryAddress != "Dorm 4, Room 12" {
		t.Fatalf("dispatch context not staged: %+v", stager.staged)
	}
	if !strings.HasPrefix(backend.checkoutReq.PaymentID, "payment_") {
		t.Fatalf("payment id %q missing payment_ prefix", backend.checkoutReq.PaymentID)
	}
	if backend.checkoutReq.OrderID != 77 || backend.checkoutReq.Amount != 17.75 {
		t.Fatalf("checkout request wrong: %+v", backend.checkoutReq)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := NewCheckoutService(&fakeStager{}, quietLog())
	if _, err := svc.Checkout(context.Background(), &fakeCheckoutAPI{}, 555, 9, models.Cart{}, "addr"); err == nil {
		t.Fatal("want error for empty cart")
	}
}

func TestCheckoutStopsWhenOrderFails(t *testing.T) {
	wantErr := errors.New("restaurant closed")
	backend := &fakeCheckoutAPI{orderErr: wantErr}
	stager := &fakeStager{}
	svc := NewCheckoutService(stager, quietLog())

	if _, err := svc.Checkout(context.Background(), backend, 555, 9, testCart(), "addr"); !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if stager.staged != nil {
		t.Fatal("nothing should be staged when the order fails")
	}
}

func TestCheckoutProceedsWhenStagingFails(t *testing.T) {
	backend := &fakeCheckoutAPI{fareResponse: api.FareRecommendation{BaseFare: 4.25}}
	stager := &fakeStager{err: errors.New("redis down")}
	svc := NewCheckoutService(stager, quietLog())

	res, err := svc.Checkout(context.Background(), backend, 555, 9, testCart(), "addr")
	if err != nil {
		t.Fatalf("staging failure must not abort checkout: %v", err)
	}
	if res.PaymentURL == "" {
		t.Fatal("payment link missing")
	}
}
