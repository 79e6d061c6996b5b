package api

import (
	"context"
	"net/http"
)

type LocationInput struct {
	Address   string   `json:"address" validate:"required,min=3"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type FareRecommendationRequest struct {
	UserLocation       LocationInput `json:"user_location" validate:"required"`
	RestaurantLocation LocationInput `json:"restaurant_location" validate:"required"`
	DistanceKm         *float64      `json:"distance_km,omitempty"`
}

type FareBreakdown struct {
	DistanceKm          float64 `json:"distance_km"`
	BasePickupFee       float64 `json:"base_pickup_fee"`
	DistanceComponent   float64 `json:"distance_component"`
	TimeMultiplier      float64 `json:"time_multiplier"`
	PeakMultiplier      float64 `json:"peak_multiplier"`
	IncentiveMultiplier float64 `json:"incentive_multiplier"`
	PricingVersion      string  `json:"pricing_version"`
	DistanceSource      string  `json:"distance_source"`
}

// FareRecommendation: base_fare is the bidding minimum for agents and the
// delivery fee shown to the customer; max_bid_limit caps bids at 1.5x.
type FareRecommendation struct {
	BaseFare           float64       `json:"base_fare"`
	MaxBidLimit        float64       `json:"max_bid_limit"`
	EtaEstimateMinutes int           `json:"eta_estimate_minutes"`
	Breakdown          FareBreakdown `json:"breakdown"`
}

func (c *Client) FareRecommendation(ctx context.Context, req FareRecommendationRequest) (*FareRecommendation, error) {
	var out FareRecommendation
	if err := c.do(ctx, http.MethodPost, "/fares/recommendation", req, &out, "Failed to get fare recommendation"); err != nil {
		return nil, err
	}
	return &out, nil
}
