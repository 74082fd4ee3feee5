package service

import (
	"context"

	"fletea/internal/domain/pricing"
	"fletea/internal/ports"
)

// Quote computes a deterministic price for the given distance, vehicle tier
// and add-on services, along with the breakdown it was computed from. It has
// no side effects and persists nothing.
func (service *tripService) Quote(ctx context.Context, in ports.QuoteInput) (ports.QuoteResult, error) {
	price, err := pricing.Quote(in.DistanceKm, in.VehicleType, in.Services)
	if err != nil {
		return ports.QuoteResult{}, err
	}

	// pricing.Quote already validated the tier and every service id
	perKm, _ := pricing.Rate(in.VehicleType)
	var fees map[string]int64
	for _, id := range in.Services {
		if fee, ok := pricing.ServiceFee(id); ok {
			if fees == nil {
				fees = make(map[string]int64, len(in.Services))
			}
			fees[id] = fee
		}
	}

	service.logger.Debug(ctx, "quote_computed", "Quote computed", map[string]any{
		"distance_km":  in.DistanceKm,
		"vehicle_type": in.VehicleType.String(),
		"services":     in.Services,
		"price":        price,
	})

	return ports.QuoteResult{
		Price:       price,
		BaseFare:    pricing.BaseFare,
		PerKmRate:   perKm,
		VehicleType: in.VehicleType.String(),
		DistanceKm:  in.DistanceKm,
		Services:    in.Services,
		ServiceFees: fees,
	}, nil
}
