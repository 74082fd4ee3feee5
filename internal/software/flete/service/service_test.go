package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"fletea/internal/domain/driver"
	"fletea/internal/domain/rating"
	"fletea/internal/domain/trip"
	"fletea/internal/domain/user"
	"fletea/internal/general/logger"
	"fletea/internal/ports"
)

// ----- in-memory fakes for the ports interfaces -----

type fakeUOW struct{}

func (fakeUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeStore backs the trip, driver and rating repositories with maps guarded
// by one mutex, mirroring the conditional-update semantics of the SQL layer.
type fakeStore struct {
	mu      sync.Mutex
	trips   map[string]*trip.Trip
	drivers map[string]*driver.Driver
	ratings map[string]*rating.Rating // keyed by trip id + reviewer id
	nextID  int
}

func ratingKey(tripID, reviewerID string) string { return tripID + "|" + reviewerID }

func newFakeStore() *fakeStore {
	return &fakeStore{
		trips:   make(map[string]*trip.Trip),
		drivers: make(map[string]*driver.Driver),
		ratings: make(map[string]*rating.Rating),
	}
}

func (s *fakeStore) CreateTrip(_ context.Context, t *trip.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		s.nextID++
		t.ID = "trip-" + time.Now().UTC().Format("150405") + "-" + string(rune('a'+s.nextID))
	}
	cp := *t
	s.trips[t.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*trip.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, trip.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) GetActiveForDriver(_ context.Context, driverID string) (*trip.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trips {
		if t.DriverID != nil && *t.DriverID == driverID && t.Status.Active() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListPending(_ context.Context, limit int) ([]*trip.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*trip.Trip
	for _, t := range s.trips {
		if t.Status == trip.StatusPending {
			cp := *t
			out = append(out, &cp)
		}
	}
	// newest first, mirroring the SQL layer
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) ListByRider(_ context.Context, riderID string, limit int) ([]*trip.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*trip.Trip
	for _, t := range s.trips {
		if t.RiderID == riderID && len(out) < limit {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByDriver(_ context.Context, driverID string, limit int) ([]*trip.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*trip.Trip
	for _, t := range s.trips {
		if t.DriverID != nil && *t.DriverID == driverID && len(out) < limit {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) AcceptPending(_ context.Context, tripID, driverID string, acceptedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return trip.ErrNotFound
	}
	if t.Status != trip.StatusPending || t.DriverID != nil {
		return trip.ErrAlreadyAccepted
	}
	t.DriverID = &driverID
	t.Status = trip.StatusAccepted
	t.AcceptedAt = &acceptedAt
	return nil
}

func (s *fakeStore) AdvanceStatus(_ context.Context, tripID string, from, to trip.Status, photoURL *string, loc *trip.Location, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return trip.ErrNotFound
	}
	if t.Status != from {
		return trip.ErrInvalidTransition
	}
	t.Status = to
	switch to {
	case trip.StatusLoading:
		t.LoadingAt = &ts
		t.LoadingPhotoURL = photoURL
	case trip.StatusInProgress:
		t.StartedAt = &ts
	case trip.StatusCompleted:
		t.CompletedAt = &ts
		t.DeliveryPhotoURL = photoURL
	}
	if loc != nil {
		t.LastLocation = loc
	}
	return nil
}

func (s *fakeStore) Cancel(_ context.Context, tripID string, cancelledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return trip.ErrNotFound
	}
	if !t.Status.Cancellable() {
		return trip.ErrNotCancellable
	}
	t.Status = trip.StatusCancelled
	t.CancelledAt = &cancelledAt
	return nil
}

func (s *fakeStore) Upsert(_ context.Context, d *driver.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	cp.UpdatedAt = time.Now().UTC()
	s.drivers[d.ID] = &cp
	return nil
}

func (s *fakeStore) GetDriverByID(_ context.Context, driverID string) (*driver.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[driverID]
	if !ok {
		return nil, driver.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *fakeStore) SetAvailability(_ context.Context, driverID string, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[driverID]
	if !ok {
		return driver.ErrNotFound
	}
	d.Available = available
	return nil
}

func (s *fakeStore) ListAvailable(_ context.Context, vt trip.VehicleType, limit int) ([]*driver.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*driver.Driver
	for _, d := range s.drivers {
		if d.Available && d.VehicleType == vt && len(out) < limit {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateLocation(_ context.Context, driverID string, loc trip.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[driverID]
	if !ok {
		return driver.ErrNotFound
	}
	d.LastLocation = &loc
	return nil
}

func (s *fakeStore) Create(_ context.Context, r *rating.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ratingKey(r.TripID, r.ReviewerID)
	if _, exists := s.ratings[key]; exists {
		return rating.ErrAlreadyRated
	}
	if r.ID == "" {
		r.ID = "rating-" + key
	}
	cp := *r
	s.ratings[key] = &cp
	return nil
}

func (s *fakeStore) ListByTrip(_ context.Context, tripID string) ([]*rating.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*rating.Rating
	for _, r := range s.ratings {
		if r.TripID == tripID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) SummaryForDriver(_ context.Context, driverID string) (*rating.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := rating.Summary{DriverID: driverID}
	var sum int
	for _, r := range s.ratings {
		if r.RevieweeID == driverID {
			sum += r.Score
			out.Count++
		}
	}
	if out.Count > 0 {
		out.Average = float64(sum) / float64(out.Count)
	}
	return &out, nil
}

// tripRepoView and ratingRepoView split the fakeStore across the two
// repository interfaces that share method names.
type tripRepoView struct{ *fakeStore }

type driverRepoView struct{ *fakeStore }

func (v driverRepoView) GetByID(ctx context.Context, driverID string) (*driver.Driver, error) {
	return v.fakeStore.GetDriverByID(ctx, driverID)
}

type noopCache struct{}

func (noopCache) GetTrip(context.Context, string) (*trip.Trip, bool) { return nil, false }
func (noopCache) SetTrip(context.Context, *trip.Trip)                {}
func (noopCache) GetPending(context.Context) ([]*trip.Trip, bool)    { return nil, false }
func (noopCache) SetPending(context.Context, []*trip.Trip)           {}
func (noopCache) Invalidate(context.Context, string)                 {}

type capturingPublisher struct {
	mu       sync.Mutex
	messages []publishedMsg
}

type publishedMsg struct {
	exchange   string
	routingKey string
	body       []byte
}

func (p *capturingPublisher) Publish(_ context.Context, exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMsg{exchange, routingKey, body})
	return nil
}

func (p *capturingPublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		keys = append(keys, m.routingKey)
	}
	return keys
}

// recordingEventRepo keeps appended audit events in memory, in order.
type recordingEventRepo struct {
	mu     sync.Mutex
	events []*trip.Event
}

func (r *recordingEventRepo) Append(_ context.Context, e *trip.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.events = append(r.events, &cp)
	return nil
}

func (r *recordingEventRepo) ListByTrip(_ context.Context, tripID string) ([]*trip.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*trip.Event
	for _, e := range r.events {
		if e.TripID == tripID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ----- fixture -----

type fixture struct {
	store   *fakeStore
	events  *recordingEventRepo
	pub     *capturingPublisher
	trips   ports.TripService
	drivers ports.DriverService
	ratings ports.RatingService
}

func newFixture() *fixture {
	store := newFakeStore()
	events := &recordingEventRepo{}
	pub := &capturingPublisher{}
	log := logger.New("test")
	uow := fakeUOW{}
	tripRepo := tripRepoView{store}
	driverRepo := driverRepoView{store}

	return &fixture{
		store:   store,
		events:  events,
		pub:     pub,
		trips:   NewTripService(log, uow, tripRepo, events, driverRepo, noopCache{}, pub),
		drivers: NewDriverService(log, uow, driverRepo, store),
		ratings: NewRatingService(log, uow, tripRepo, store),
	}
}

func (f *fixture) createTrip(t *testing.T, riderID string) string {
	t.Helper()
	res, err := f.trips.CreateTrip(context.Background(), ports.CreateTripInput{
		RiderID:            riderID,
		OriginAddress:      "Av. Italia 1234",
		DestinationAddress: "Bvar. Artigas 567",
		DistanceKm:         8,
		VehicleType:        trip.VehicleChico,
		Services:           []string{"helper"},
	})
	if err != nil {
		t.Fatalf("CreateTrip() error = %v", err)
	}
	return res.TripID
}

// ----- tests -----

func TestCreateTripPricesAndPublishes(t *testing.T) {
	f := newFixture()
	res, err := f.trips.CreateTrip(context.Background(), ports.CreateTripInput{
		RiderID:            "rider-1",
		OriginAddress:      "a",
		DestinationAddress: "b",
		DistanceKm:         10,
		VehicleType:        trip.VehicleMediano,
		Services:           []string{"packing"},
	})
	if err != nil {
		t.Fatalf("CreateTrip() error = %v", err)
	}
	if res.Status != "pending" {
		t.Errorf("status = %s, want pending", res.Status)
	}
	// 3000 base + 1500*10 + 1500 packing
	if res.Price != 19500 {
		t.Errorf("price = %d, want 19500", res.Price)
	}

	keys := f.pub.routingKeys()
	if len(keys) != 1 || keys[0] != "trip.status.pending" {
		t.Errorf("published routing keys = %v, want [trip.status.pending]", keys)
	}
}

func TestCreateTripRejectsUnknownService(t *testing.T) {
	f := newFixture()
	_, err := f.trips.CreateTrip(context.Background(), ports.CreateTripInput{
		RiderID:            "rider-1",
		OriginAddress:      "a",
		DestinationAddress: "b",
		DistanceKm:         10,
		VehicleType:        trip.VehicleChico,
		Services:           []string{"piano"},
	})
	if err == nil {
		t.Fatal("CreateTrip() with unknown service should fail")
	}
	if len(f.store.trips) != 0 {
		t.Error("failed create must not persist a trip")
	}
	if len(f.pub.routingKeys()) != 0 {
		t.Error("failed create must not publish")
	}
}

func TestAcceptTripExactlyOnceUnderRace(t *testing.T) {
	f := newFixture()
	tripID := f.createTrip(t, "rider-1")

	const drivers = 16
	var wg sync.WaitGroup
	wins := make(chan string, drivers)
	conflicts := make(chan error, drivers)

	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			driverID := "driver-" + string(rune('a'+n))
			_, err := f.trips.AcceptTrip(context.Background(), ports.AcceptTripInput{TripID: tripID, DriverID: driverID})
			if err != nil {
				conflicts <- err
				return
			}
			wins <- driverID
		}(i)
	}
	wg.Wait()
	close(wins)
	close(conflicts)

	if len(wins) != 1 {
		t.Fatalf("winners = %d, want exactly 1", len(wins))
	}
	winner := <-wins
	for err := range conflicts {
		if !errors.Is(err, trip.ErrAlreadyAccepted) {
			t.Errorf("loser error = %v, want ErrAlreadyAccepted", err)
		}
	}

	stored, err := f.store.GetByID(context.Background(), tripID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.DriverID == nil || *stored.DriverID != winner {
		t.Errorf("stored driver = %v, want %s", stored.DriverID, winner)
	}
	if stored.Status != trip.StatusAccepted {
		t.Errorf("stored status = %s, want accepted", stored.Status)
	}
}

func TestAcceptTripRejectsBusyDriver(t *testing.T) {
	f := newFixture()
	first := f.createTrip(t, "rider-1")
	second := f.createTrip(t, "rider-2")

	if _, err := f.trips.AcceptTrip(context.Background(), ports.AcceptTripInput{TripID: first, DriverID: "driver-1"}); err != nil {
		t.Fatalf("first AcceptTrip() error = %v", err)
	}
	_, err := f.trips.AcceptTrip(context.Background(), ports.AcceptTripInput{TripID: second, DriverID: "driver-1"})
	if !errors.Is(err, trip.ErrAlreadyAccepted) {
		t.Fatalf("busy driver AcceptTrip() error = %v, want ErrAlreadyAccepted", err)
	}

	stored, _ := f.store.GetByID(context.Background(), second)
	if stored.Status != trip.StatusPending {
		t.Errorf("second trip status = %s, want pending", stored.Status)
	}
}

func TestAcceptTripMissingTrip(t *testing.T) {
	f := newFixture()
	_, err := f.trips.AcceptTrip(context.Background(), ports.AcceptTripInput{TripID: "nope", DriverID: "driver-1"})
	if !errors.Is(err, trip.ErrNotFound) {
		t.Fatalf("AcceptTrip() error = %v, want ErrNotFound", err)
	}
}

func TestAdvanceTripFullLifecycle(t *testing.T) {
	f := newFixture()
	tripID := f.createTrip(t, "rider-1")
	ctx := context.Background()

	if _, err := f.trips.AcceptTrip(ctx, ports.AcceptTripInput{TripID: tripID, DriverID: "driver-1"}); err != nil {
		t.Fatalf("AcceptTrip() error = %v", err)
	}

	steps := []trip.Status{trip.StatusLoading, trip.StatusInProgress, trip.StatusCompleted}
	for _, next := range steps {
		res, err := f.trips.AdvanceTrip(ctx, ports.AdvanceTripInput{
			TripID:   tripID,
			DriverID: "driver-1",
			Next:     next,
			PhotoURL: "https://img/" + next.String() + ".jpg",
		})
		if err != nil {
			t.Fatalf("AdvanceTrip(%s) error = %v", next, err)
		}
		if res.NewStatus != next.String() {
			t.Errorf("new status = %s, want %s", res.NewStatus, next)
		}
	}

	stored, _ := f.store.GetByID(ctx, tripID)
	if stored.Status != trip.StatusCompleted {
		t.Errorf("final status = %s, want completed", stored.Status)
	}
	if stored.LoadingPhotoURL == nil || stored.DeliveryPhotoURL == nil {
		t.Error("evidence photos not recorded")
	}

	want := []string{"trip.status.pending", "trip.status.accepted", "trip.status.loading", "trip.status.in_progress", "trip.status.completed"}
	got := f.pub.routingKeys()
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("routing key [%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAdvanceTripRejectsStepSkipAndWrongDriver(t *testing.T) {
	f := newFixture()
	tripID := f.createTrip(t, "rider-1")
	ctx := context.Background()

	if _, err := f.trips.AcceptTrip(ctx, ports.AcceptTripInput{TripID: tripID, DriverID: "driver-1"}); err != nil {
		t.Fatalf("AcceptTrip() error = %v", err)
	}

	// skipping loading
	_, err := f.trips.AdvanceTrip(ctx, ports.AdvanceTripInput{TripID: tripID, DriverID: "driver-1", Next: trip.StatusCompleted})
	if !errors.Is(err, trip.ErrInvalidTransition) {
		t.Errorf("step-skip error = %v, want ErrInvalidTransition", err)
	}

	// a different driver
	_, err = f.trips.AdvanceTrip(ctx, ports.AdvanceTripInput{TripID: tripID, DriverID: "driver-2", Next: trip.StatusLoading})
	if !errors.Is(err, trip.ErrInvalidTransition) {
		t.Errorf("wrong-driver error = %v, want ErrInvalidTransition", err)
	}

	stored, _ := f.store.GetByID(ctx, tripID)
	if stored.Status != trip.StatusAccepted {
		t.Errorf("status after rejected advances = %s, want accepted", stored.Status)
	}
}

func TestCancelTripGuards(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// pending: rider can cancel
	tripID := f.createTrip(t, "rider-1")
	res, err := f.trips.CancelTrip(ctx, tripID, "rider-1")
	if err != nil {
		t.Fatalf("CancelTrip() error = %v", err)
	}
	if res.Status != "cancelled" {
		t.Errorf("status = %s, want cancelled", res.Status)
	}

	// someone else's trip reads as not found
	tripID = f.createTrip(t, "rider-1")
	if _, err := f.trips.CancelTrip(ctx, tripID, "rider-2"); !errors.Is(err, trip.ErrNotFound) {
		t.Errorf("foreign cancel error = %v, want ErrNotFound", err)
	}

	// loading and beyond cannot be cancelled
	if _, err := f.trips.AcceptTrip(ctx, ports.AcceptTripInput{TripID: tripID, DriverID: "driver-1"}); err != nil {
		t.Fatalf("AcceptTrip() error = %v", err)
	}
	if _, err := f.trips.AdvanceTrip(ctx, ports.AdvanceTripInput{TripID: tripID, DriverID: "driver-1", Next: trip.StatusLoading}); err != nil {
		t.Fatalf("AdvanceTrip() error = %v", err)
	}
	if _, err := f.trips.CancelTrip(ctx, tripID, "rider-1"); !errors.Is(err, trip.ErrNotCancellable) {
		t.Errorf("late cancel error = %v, want ErrNotCancellable", err)
	}
}

func TestCancelAcceptedTripFreesDriver(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.drivers.SetAvailability(ctx, ports.SetAvailabilityInput{
		DriverID: "driver-1", Available: true, VehicleType: trip.VehicleChico,
	}); err != nil {
		t.Fatalf("SetAvailability() error = %v", err)
	}

	tripID := f.createTrip(t, "rider-1")
	if _, err := f.trips.AcceptTrip(ctx, ports.AcceptTripInput{TripID: tripID, DriverID: "driver-1"}); err != nil {
		t.Fatalf("AcceptTrip() error = %v", err)
	}
	if f.store.drivers["driver-1"].Available {
		t.Error("accepting a trip must mark the driver unavailable")
	}

	if _, err := f.trips.CancelTrip(ctx, tripID, "rider-1"); err != nil {
		t.Fatalf("CancelTrip() error = %v", err)
	}
	if !f.store.drivers["driver-1"].Available {
		t.Error("cancelling an accepted trip must free the driver")
	}
}

func TestRateTripEitherPartyOnceEach(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tripID := f.createTrip(t, "rider-1")

	// not yet completed
	_, err := f.ratings.RateTrip(ctx, ports.RateTripInput{TripID: tripID, ReviewerID: "rider-1", Score: 5})
	if !errors.Is(err, rating.ErrTripNotCompleted) {
		t.Fatalf("premature rating error = %v, want ErrTripNotCompleted", err)
	}

	// run the trip to completion
	if _, err := f.trips.AcceptTrip(ctx, ports.AcceptTripInput{TripID: tripID, DriverID: "driver-1"}); err != nil {
		t.Fatalf("AcceptTrip() error = %v", err)
	}
	for _, next := range []trip.Status{trip.StatusLoading, trip.StatusInProgress, trip.StatusCompleted} {
		if _, err := f.trips.AdvanceTrip(ctx, ports.AdvanceTripInput{TripID: tripID, DriverID: "driver-1", Next: next}); err != nil {
			t.Fatalf("AdvanceTrip(%s) error = %v", next, err)
		}
	}

	// an outsider may not rate
	_, err = f.ratings.RateTrip(ctx, ports.RateTripInput{TripID: tripID, ReviewerID: "rider-2", Score: 5})
	if !errors.Is(err, rating.ErrNotParticipant) {
		t.Fatalf("foreign rating error = %v, want ErrNotParticipant", err)
	}

	// the rider reviews the driver
	res, err := f.ratings.RateTrip(ctx, ports.RateTripInput{TripID: tripID, ReviewerID: "rider-1", Score: 4, Comment: "careful with the boxes"})
	if err != nil {
		t.Fatalf("rider RateTrip() error = %v", err)
	}
	if res.Score != 4 || res.RatingID == "" || res.RevieweeID != "driver-1" {
		t.Errorf("unexpected rider rating result %+v", res)
	}

	// the driver reviews the rider
	res, err = f.ratings.RateTrip(ctx, ports.RateTripInput{TripID: tripID, ReviewerID: "driver-1", Score: 5})
	if err != nil {
		t.Fatalf("driver RateTrip() error = %v", err)
	}
	if res.RevieweeID != "rider-1" {
		t.Errorf("driver rating reviewee = %s, want rider-1", res.RevieweeID)
	}

	// each party rates at most once
	if _, err = f.ratings.RateTrip(ctx, ports.RateTripInput{TripID: tripID, ReviewerID: "rider-1", Score: 1}); !errors.Is(err, rating.ErrAlreadyRated) {
		t.Fatalf("duplicate rider rating error = %v, want ErrAlreadyRated", err)
	}
	if _, err = f.ratings.RateTrip(ctx, ports.RateTripInput{TripID: tripID, ReviewerID: "driver-1", Score: 1}); !errors.Is(err, rating.ErrAlreadyRated) {
		t.Fatalf("duplicate driver rating error = %v, want ErrAlreadyRated", err)
	}

	got, err := f.ratings.GetTripRatings(ctx, tripID)
	if err != nil {
		t.Fatalf("GetTripRatings() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("GetTripRatings() returned %d ratings, want 2", len(got))
	}
}

func TestGetDriverIncludesRatingSummary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.drivers.SetAvailability(ctx, ports.SetAvailabilityInput{
		DriverID: "driver-1", Available: true, VehicleType: trip.VehicleMudancera, Name: "Pedro",
	}); err != nil {
		t.Fatalf("SetAvailability() error = %v", err)
	}

	// two completed, rated trips
	for i, score := range []int{5, 3} {
		rider := "rider-" + string(rune('a'+i))
		tripID := f.createTrip(t, rider)
		if _, err := f.trips.AcceptTrip(ctx, ports.AcceptTripInput{TripID: tripID, DriverID: "driver-1"}); err != nil {
			t.Fatalf("AcceptTrip() error = %v", err)
		}
		for _, next := range []trip.Status{trip.StatusLoading, trip.StatusInProgress, trip.StatusCompleted} {
			if _, err := f.trips.AdvanceTrip(ctx, ports.AdvanceTripInput{TripID: tripID, DriverID: "driver-1", Next: next}); err != nil {
				t.Fatalf("AdvanceTrip(%s) error = %v", next, err)
			}
		}
		if _, err := f.ratings.RateTrip(ctx, ports.RateTripInput{TripID: tripID, ReviewerID: rider, Score: score}); err != nil {
			t.Fatalf("RateTrip() error = %v", err)
		}
	}

	view, err := f.drivers.GetDriver(ctx, "driver-1")
	if err != nil {
		t.Fatalf("GetDriver() error = %v", err)
	}
	if view.RatingCount != 2 {
		t.Errorf("rating count = %d, want 2", view.RatingCount)
	}
	if view.Rating != 4 {
		t.Errorf("rating average = %v, want 4", view.Rating)
	}
	if view.Name != "Pedro" || view.VehicleType != "mudancera" {
		t.Errorf("unexpected profile %+v", view)
	}
}

func TestActiveForDriver(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.trips.ActiveForDriver(ctx, "driver-1"); !errors.Is(err, trip.ErrNotFound) {
		t.Fatalf("idle driver ActiveForDriver() error = %v, want ErrNotFound", err)
	}

	tripID := f.createTrip(t, "rider-1")
	if _, err := f.trips.AcceptTrip(ctx, ports.AcceptTripInput{TripID: tripID, DriverID: "driver-1"}); err != nil {
		t.Fatalf("AcceptTrip() error = %v", err)
	}

	view, err := f.trips.ActiveForDriver(ctx, "driver-1")
	if err != nil {
		t.Fatalf("ActiveForDriver() error = %v", err)
	}
	if view.TripID != tripID || view.Status != "accepted" {
		t.Errorf("active trip = %+v", view)
	}
}

func TestQuoteEndpointShapesResult(t *testing.T) {
	f := newFixture()
	res, err := f.trips.Quote(context.Background(), ports.QuoteInput{
		DistanceKm:  4,
		VehicleType: trip.VehicleChico,
		Services:    []string{"helper"},
	})
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if res.Price != 3000+900*4+2000 {
		t.Errorf("price = %d", res.Price)
	}
	if res.BaseFare != 3000 || res.VehicleType != "flete_chico" {
		t.Errorf("unexpected quote result %+v", res)
	}
	if res.PerKmRate != 900 {
		t.Errorf("per-km rate = %v, want 900", res.PerKmRate)
	}
	if res.ServiceFees["helper"] != 2000 {
		t.Errorf("service fees = %v, want helper 2000", res.ServiceFees)
	}
}

func TestListPendingNewestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ids := []string{
		f.createTrip(t, "rider-1"),
		f.createTrip(t, "rider-2"),
		f.createTrip(t, "rider-3"),
	}
	base := time.Now().UTC().Add(-time.Hour)
	f.store.mu.Lock()
	for i, id := range ids {
		f.store.trips[id].CreatedAt = base.Add(time.Duration(i) * time.Minute)
	}
	f.store.mu.Unlock()

	got, err := f.trips.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListPending() returned %d trips, want 3", len(got))
	}
	want := []string{ids[2], ids[1], ids[0]}
	for i := range want {
		if got[i].TripID != want[i] {
			t.Errorf("trip [%d] = %s, want %s (newest first)", i, got[i].TripID, want[i])
		}
	}
}

func TestCompleteTripFreesDriver(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.drivers.SetAvailability(ctx, ports.SetAvailabilityInput{
		DriverID: "driver-1", Available: true, VehicleType: trip.VehicleChico,
	}); err != nil {
		t.Fatalf("SetAvailability() error = %v", err)
	}

	tripID := f.createTrip(t, "rider-1")
	if _, err := f.trips.AcceptTrip(ctx, ports.AcceptTripInput{TripID: tripID, DriverID: "driver-1"}); err != nil {
		t.Fatalf("AcceptTrip() error = %v", err)
	}
	if f.store.drivers["driver-1"].Available {
		t.Error("accepting a trip must mark the driver unavailable")
	}

	for _, next := range []trip.Status{trip.StatusLoading, trip.StatusInProgress, trip.StatusCompleted} {
		if _, err := f.trips.AdvanceTrip(ctx, ports.AdvanceTripInput{TripID: tripID, DriverID: "driver-1", Next: next}); err != nil {
			t.Fatalf("AdvanceTrip(%s) error = %v", next, err)
		}
	}
	if !f.store.drivers["driver-1"].Available {
		t.Error("completing a trip must free the driver for new work")
	}
}

func TestTripEventTrailRecordsLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tripID := f.createTrip(t, "rider-1")
	if _, err := f.trips.AcceptTrip(ctx, ports.AcceptTripInput{TripID: tripID, DriverID: "driver-1"}); err != nil {
		t.Fatalf("AcceptTrip() error = %v", err)
	}
	for _, next := range []trip.Status{trip.StatusLoading, trip.StatusInProgress, trip.StatusCompleted} {
		if _, err := f.trips.AdvanceTrip(ctx, ports.AdvanceTripInput{TripID: tripID, DriverID: "driver-1", Next: next}); err != nil {
			t.Fatalf("AdvanceTrip(%s) error = %v", next, err)
		}
	}

	events, err := f.trips.ListEvents(ctx, tripID)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	want := []string{"pending", "accepted", "loading", "in_progress", "completed"}
	if len(events) != len(want) {
		t.Fatalf("ListEvents() returned %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i].NewStatus != want[i] {
			t.Errorf("event [%d] new status = %s, want %s", i, events[i].NewStatus, want[i])
		}
	}
	if events[0].ActorID != "rider-1" {
		t.Errorf("creation event actor = %s, want rider-1", events[0].ActorID)
	}
	if events[1].ActorID != "driver-1" {
		t.Errorf("accept event actor = %s, want driver-1", events[1].ActorID)
	}

	if _, err := f.trips.ListEvents(ctx, "nope"); !errors.Is(err, trip.ErrNotFound) {
		t.Errorf("ListEvents(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestListMineByRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tripID := f.createTrip(t, "rider-1")
	if _, err := f.trips.AcceptTrip(ctx, ports.AcceptTripInput{TripID: tripID, DriverID: "driver-1"}); err != nil {
		t.Fatalf("AcceptTrip() error = %v", err)
	}

	asRider, err := f.trips.ListMine(ctx, "rider-1", user.RoleRider)
	if err != nil {
		t.Fatalf("ListMine(rider) error = %v", err)
	}
	if len(asRider) != 1 || asRider[0].TripID != tripID {
		t.Errorf("rider trips = %+v, want the created trip", asRider)
	}

	asDriver, err := f.trips.ListMine(ctx, "driver-1", user.RoleDriver)
	if err != nil {
		t.Fatalf("ListMine(driver) error = %v", err)
	}
	if len(asDriver) != 1 || asDriver[0].TripID != tripID {
		t.Errorf("driver trips = %+v, want the accepted trip", asDriver)
	}

	other, err := f.trips.ListMine(ctx, "driver-2", user.RoleDriver)
	if err != nil {
		t.Fatalf("ListMine(other driver) error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("unrelated driver sees %d trips, want 0", len(other))
	}
}
