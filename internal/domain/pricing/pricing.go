// Package pricing implements the deterministic quote engine.
//
// price = BaseFare + rate(vehicle) * distanceKm + sum(fee(service))
// rounded half-up to a whole amount. The same inputs always yield the
// same price; quoting has no side effects.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"fletea/internal/domain/trip"
)

// BaseFare is charged on every trip regardless of distance or tier.
const BaseFare int64 = 3000

// perKmRates holds the per-kilometre rate for each vehicle tier.
var perKmRates = map[trip.VehicleType]float64{
	trip.VehicleChico:     900,
	trip.VehicleMediano:   1500,
	trip.VehicleMudancera: 2500,
}

// serviceFees holds the flat add-on fee for each optional service.
var serviceFees = map[string]int64{
	"helper":  2000,
	"packing": 1500,
}

var (
	ErrUnknownService  = errors.New("unknown service id")
	ErrInvalidDistance = errors.New("distance_km must be a positive number")
)

// Quote computes the fixed price for a trip. Duplicate service ids are
// charged once. An unknown service id fails the whole quote rather than
// being silently skipped.
func Quote(distanceKm float64, vt trip.VehicleType, services []string) (int64, error) {
	if distanceKm <= 0 || math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) {
		return 0, ErrInvalidDistance
	}
	rate, ok := perKmRates[vt]
	if !ok {
		return 0, trip.ErrInvalidVehicleType
	}

	total := float64(BaseFare) + rate*distanceKm

	seen := make(map[string]struct{}, len(services))
	for _, id := range services {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		fee, ok := serviceFees[id]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownService, id)
		}
		total += float64(fee)
	}

	return roundHalfUp(total), nil
}

// Rate returns the per-kilometre rate for a vehicle tier.
func Rate(vt trip.VehicleType) (float64, bool) {
	r, ok := perKmRates[vt]
	return r, ok
}

// ServiceFee returns the flat fee for a service id.
func ServiceFee(id string) (int64, bool) {
	f, ok := serviceFees[id]
	return f, ok
}

// KnownServices lists valid add-on service ids (for API validation messages).
func KnownServices() []string {
	out := make([]string, 0, len(serviceFees))
	for id := range serviceFees {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}
