package service

import (
	"fletea/internal/general/logger"
	"fletea/internal/ports"
)

// tripService encapsulates the trip lifecycle logic and dependencies.
type tripService struct {
	logger     *logger.Logger
	uow        ports.UnitOfWork
	tripRepo   ports.TripRepository
	eventRepo  ports.TripEventRepository
	driverRepo ports.DriverRepository
	cache      ports.TripCache
	pub        ports.EventPublisher
}

// NewTripService creates a new instance of the TripService with the provided dependencies.
func NewTripService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	tripRepo ports.TripRepository,
	eventRepo ports.TripEventRepository,
	driverRepo ports.DriverRepository,
	cache ports.TripCache,
	pub ports.EventPublisher,
) ports.TripService {
	return &tripService{
		logger:     logger,
		uow:        uow,
		tripRepo:   tripRepo,
		eventRepo:  eventRepo,
		driverRepo: driverRepo,
		cache:      cache,
		pub:        pub,
	}
}

// driverService encapsulates driver availability logic and dependencies.
type driverService struct {
	logger     *logger.Logger
	uow        ports.UnitOfWork
	driverRepo ports.DriverRepository
	ratingRepo ports.RatingRepository
}

// NewDriverService creates a new instance of the DriverService with the provided dependencies.
func NewDriverService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	driverRepo ports.DriverRepository,
	ratingRepo ports.RatingRepository,
) ports.DriverService {
	return &driverService{
		logger:     logger,
		uow:        uow,
		driverRepo: driverRepo,
		ratingRepo: ratingRepo,
	}
}

// ratingService encapsulates the one-time trip rating logic.
type ratingService struct {
	logger     *logger.Logger
	uow        ports.UnitOfWork
	tripRepo   ports.TripRepository
	ratingRepo ports.RatingRepository
}

// NewRatingService creates a new instance of the RatingService with the provided dependencies.
func NewRatingService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	tripRepo ports.TripRepository,
	ratingRepo ports.RatingRepository,
) ports.RatingService {
	return &ratingService{
		logger:     logger,
		uow:        uow,
		tripRepo:   tripRepo,
		ratingRepo: ratingRepo,
	}
}
