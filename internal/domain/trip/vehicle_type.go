package trip

import (
	"errors"
	"strings"
)

// VehicleType is a vehicle tier as stored in the `trips` table.
type VehicleType string

const (
	VehicleChico     VehicleType = "flete_chico"   // small van
	VehicleMediano   VehicleType = "flete_mediano" // pickup-size truck
	VehicleMudancera VehicleType = "mudancera"     // full moving truck
)

var ErrInvalidVehicleType = errors.New("invalid vehicle type")

// ParseVehicleType normalizes (lowercases+trims) and validates a vehicle type string.
func ParseVehicleType(in string) (VehicleType, error) {
	vt := VehicleType(strings.ToLower(strings.TrimSpace(in)))
	if vt.Valid() {
		return vt, nil
	}
	return "", ErrInvalidVehicleType
}

// Valid reports whether vehicleType is one of the allowed vehicle tier constants.
func (vehicleType VehicleType) Valid() bool {
	switch vehicleType {
	case VehicleChico, VehicleMediano, VehicleMudancera:
		return true
	default:
		return false
	}
}

// String returns the string representation of the VehicleType.
func (vehicleType VehicleType) String() string {
	return string(vehicleType)
}
