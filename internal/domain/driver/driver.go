package driver

import (
	"errors"
	"time"

	"fletea/internal/domain/trip"
)

// Driver is the availability/profile record for a fletero.
type Driver struct {
	ID           string
	Name         string
	VehicleType  trip.VehicleType
	Available    bool
	LastLocation *trip.Location
	UpdatedAt    time.Time
}

var ErrNotFound = errors.New("driver not found")

// SetAvailable flips the availability flag and stamps the change.
func (d *Driver) SetAvailable(v bool) {
	d.Available = v
	d.UpdatedAt = time.Now().UTC()
}

// UpdateLocation records the driver's last reported position.
func (d *Driver) UpdateLocation(loc trip.Location) {
	d.LastLocation = &loc
	d.UpdatedAt = time.Now().UTC()
}
