package trip

import (
	"errors"
	"testing"
)

func newPendingTrip(t *testing.T) *Trip {
	t.Helper()
	tr, err := NewTrip("rider-1", "Av. Italia 1234", "Bvar. Artigas 567", 8.2, VehicleChico, 10380, "furniture", nil, []string{"helper"})
	if err != nil {
		t.Fatalf("NewTrip() error = %v", err)
	}
	return tr
}

func TestNewTripValidation(t *testing.T) {
	cases := []struct {
		name string
		fn   func() (*Trip, error)
		want error
	}{
		{"missing rider", func() (*Trip, error) {
			return NewTrip("  ", "a", "b", 1, VehicleChico, 100, "", nil, nil)
		}, ErrRiderRequired},
		{"missing origin", func() (*Trip, error) {
			return NewTrip("r", "", "b", 1, VehicleChico, 100, "", nil, nil)
		}, ErrOriginRequired},
		{"missing destination", func() (*Trip, error) {
			return NewTrip("r", "a", " ", 1, VehicleChico, 100, "", nil, nil)
		}, ErrDestinationRequired},
		{"non-positive distance", func() (*Trip, error) {
			return NewTrip("r", "a", "b", 0, VehicleChico, 100, "", nil, nil)
		}, ErrDistanceInvalid},
		{"bad vehicle type", func() (*Trip, error) {
			return NewTrip("r", "a", "b", 1, VehicleType("bike"), 100, "", nil, nil)
		}, ErrInvalidVehicleType},
		{"non-positive price", func() (*Trip, error) {
			return NewTrip("r", "a", "b", 1, VehicleChico, 0, "", nil, nil)
		}, ErrPriceInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.fn(); !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNewTripStartsPendingAndDedupesServices(t *testing.T) {
	tr, err := NewTrip("r", "a", "b", 3, VehicleMediano, 7500, "", nil, []string{"helper", " helper ", "packing", ""})
	if err != nil {
		t.Fatalf("NewTrip() error = %v", err)
	}
	if tr.Status != StatusPending {
		t.Errorf("new trip status = %s, want pending", tr.Status)
	}
	if tr.DriverID != nil {
		t.Error("new trip must have no driver")
	}
	if len(tr.Services) != 2 || tr.Services[0] != "helper" || tr.Services[1] != "packing" {
		t.Errorf("services = %v, want [helper packing]", tr.Services)
	}
}

func TestAccept(t *testing.T) {
	tr := newPendingTrip(t)

	if err := tr.Accept(""); !errors.Is(err, ErrDriverRequired) {
		t.Errorf("Accept(\"\") error = %v, want ErrDriverRequired", err)
	}

	if err := tr.Accept("driver-1"); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if tr.Status != StatusAccepted {
		t.Errorf("status = %s, want accepted", tr.Status)
	}
	if tr.DriverID == nil || *tr.DriverID != "driver-1" {
		t.Errorf("driver id not set")
	}
	if tr.AcceptedAt == nil {
		t.Error("accepted_at not stamped")
	}

	// second accept loses
	if err := tr.Accept("driver-2"); !errors.Is(err, ErrAlreadyAccepted) {
		t.Errorf("second Accept() error = %v, want ErrAlreadyAccepted", err)
	}
	if *tr.DriverID != "driver-1" {
		t.Error("losing accept must not overwrite the driver")
	}
}

func TestAdvanceHappyPath(t *testing.T) {
	tr := newPendingTrip(t)
	if err := tr.Accept("driver-1"); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	if err := tr.Advance(StatusLoading, "https://img/loading.jpg", &Location{Latitude: -34.9, Longitude: -56.1}); err != nil {
		t.Fatalf("Advance(loading) error = %v", err)
	}
	if tr.LoadingPhotoURL == nil || *tr.LoadingPhotoURL != "https://img/loading.jpg" {
		t.Error("loading photo not recorded")
	}
	if tr.LoadingAt == nil {
		t.Error("loading_at not stamped")
	}
	if tr.LastLocation == nil || tr.LastLocation.Latitude != -34.9 {
		t.Error("location not recorded")
	}

	if err := tr.Advance(StatusInProgress, "", nil); err != nil {
		t.Fatalf("Advance(in_progress) error = %v", err)
	}
	if tr.StartedAt == nil {
		t.Error("started_at not stamped")
	}

	if err := tr.Advance(StatusCompleted, "https://img/delivered.jpg", nil); err != nil {
		t.Fatalf("Advance(completed) error = %v", err)
	}
	if tr.DeliveryPhotoURL == nil || *tr.DeliveryPhotoURL != "https://img/delivered.jpg" {
		t.Error("delivery photo not recorded")
	}
	if tr.CompletedAt == nil {
		t.Error("completed_at not stamped")
	}
	if !tr.Status.Terminal() {
		t.Error("completed trip must be terminal")
	}
}

func TestAdvanceRejectsSkippedSteps(t *testing.T) {
	tr := newPendingTrip(t)
	if err := tr.Accept("driver-1"); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	// accepted -> in_progress skips loading
	if err := tr.Advance(StatusInProgress, "", nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Advance(in_progress) error = %v, want ErrInvalidTransition", err)
	}
	// accepted -> completed skips two steps
	if err := tr.Advance(StatusCompleted, "", nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Advance(completed) error = %v, want ErrInvalidTransition", err)
	}
	// going backwards
	if err := tr.Advance(StatusPending, "", nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Advance(pending) error = %v, want ErrInvalidTransition", err)
	}
	if tr.Status != StatusAccepted {
		t.Errorf("failed advances must not change status, got %s", tr.Status)
	}
}

func TestCancelWindow(t *testing.T) {
	// pending trips can be cancelled
	tr := newPendingTrip(t)
	if err := tr.Cancel(); err != nil {
		t.Fatalf("Cancel() from pending error = %v", err)
	}
	if tr.Status != StatusCancelled || tr.CancelledAt == nil {
		t.Error("cancelled state not recorded")
	}

	// accepted trips can be cancelled
	tr = newPendingTrip(t)
	_ = tr.Accept("driver-1")
	if err := tr.Cancel(); err != nil {
		t.Fatalf("Cancel() from accepted error = %v", err)
	}

	// loading and beyond cannot
	tr = newPendingTrip(t)
	_ = tr.Accept("driver-1")
	_ = tr.Advance(StatusLoading, "", nil)
	if err := tr.Cancel(); !errors.Is(err, ErrNotCancellable) {
		t.Errorf("Cancel() from loading error = %v, want ErrNotCancellable", err)
	}

	// cancelling twice fails
	tr = newPendingTrip(t)
	_ = tr.Cancel()
	if err := tr.Cancel(); !errors.Is(err, ErrNotCancellable) {
		t.Errorf("second Cancel() error = %v, want ErrNotCancellable", err)
	}
}
