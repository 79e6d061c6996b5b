package services

import (
	"context"
	"fmt"
	"math"

	"campusbites-telegram/api"
	"campusbites-telegram/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type checkoutAPI interface {
	GetRestaurant(ctx context.Context, id int) (*api.Restaurant, error)
	FareRecommendation(ctx context.Context, req api.FareRecommendationRequest) (*api.FareRecommendation, error)
	PlaceOrder(ctx context.Context, req api.PlaceOrderRequest) (*api.Order, error)
	CreateCheckout(ctx context.Context, req api.CheckoutRequest) (*api.CheckoutResponse, error)
}

type pendingStager interface {
	Stage(ctx context.Context, chatID int64, pd models.PendingDispatch) error
}

// CheckoutService turns a cart into a placed order with a payment link.
type CheckoutService struct {
	pending pendingStager
	log     *logrus.Logger
}

func NewCheckoutService(pending pendingStager, log *logrus.Logger) *CheckoutService {
	return &CheckoutService{pending: pending, log: log}
}

// CheckoutResult is what the customer bot renders after checkout.
type CheckoutResult struct {
	Order       *api.Order
	DeliveryFee float64
	PaymentURL  string
}

// Checkout quotes the delivery fee between the customer's address and the
// restaurant, places the order, stages the dispatch context for the
// payment-success handler, and creates the payment session. The cart must
// not be empty. The quoted base fare becomes the order's delivery fee and
// the commission comes off the food subtotal at the restaurant's rate.
func (s *CheckoutService) Checkout(ctx context.Context, backend checkoutAPI, chatID int64, userID int, cart models.Cart, address string) (*CheckoutResult, error) {
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("checkout: cart is empty")
	}

	restaurant, err := backend.GetRestaurant(ctx, cart.RestaurantID())
	if err != nil {
		return nil, err
	}

	fare, err := backend.FareRecommendation(ctx, api.FareRecommendationRequest{
		UserLocation: api.LocationInput{Address: address},
		RestaurantLocation: api.LocationInput{
			Address:   restaurant.Address,
			Latitude:  restaurant.Latitude,
			Longitude: restaurant.Longitude,
		},
	})
	if err != nil {
		return nil, err
	}

	items := make([]api.OrderItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, api.OrderItem{ItemID: it.ItemID, Quantity: it.Qty})
	}
	subtotal := cart.ItemsTotal()
	commission := math.Round(subtotal*restaurant.CommissionRate*100) / 100
	order, err := backend.PlaceOrder(ctx, api.PlaceOrderRequest{
		UserID:           userID,
		RestaurantID:     cart.RestaurantID(),
		OrderItems:       items,
		BaseFare:         subtotal,
		DeliveryFee:      fare.BaseFare,
		CommissionAmount: commission,
	})
	if err != nil {
		return nil, err
	}

	if err := s.pending.Stage(ctx, chatID, models.PendingDispatch{
		OrderID:         order.OrderID,
		DeliveryAddress: address,
	}); err != nil {
		// dispatch can still be started from the order card later
		s.log.WithFields(logrus.Fields{"order_id": order.OrderID}).
			WithError(err).Warn("failed to stage dispatch context")
	}

	checkout, err := backend.CreateCheckout(ctx, api.CheckoutRequest{
		PaymentID: "payment_" + uuid.NewString(),
		OrderID:   order.OrderID,
		Amount:    order.Total(),
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.OrderID,
		"total":    order.Total(),
		"fee":      fare.BaseFare,
	}).Info("checkout created")

	return &CheckoutResult{
		Order:       order,
		DeliveryFee: fare.BaseFare,
		PaymentURL:  checkout.URL,
	}, nil
}
