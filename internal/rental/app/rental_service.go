package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otprent/rental-gateway/internal/rental/domain"
)

// rentalRegistry is the slice of the registry the service drives.
type rentalRegistry interface {
	Upsert(record domain.RentalRecord)
	Snapshot() []domain.RentalRecord
	Get(requestID string) (domain.RentalRecord, bool)
	Pending() []domain.RentalRecord
}

// poller is the scheduler surface used here.
type poller interface {
	EnsureRunning()
	RefreshAll(ctx context.Context)
	RefreshOne(ctx context.Context, requestID string) error
}

// providerCaches is the read-through cache surface for provider data.
type providerCaches interface {
	Balance(ctx context.Context) (domain.BalanceSnapshot, bool)
	SetBalance(ctx context.Context, balance float64)
	Services(ctx context.Context, country string) ([]domain.ServiceCatalogEntry, bool)
	SetServices(ctx context.Context, country string, entries []domain.ServiceCatalogEntry)
}

// ErrRentalNotFound is returned for lookups of unknown request ids.
var ErrRentalNotFound = fmt.Errorf("rental not found")

// RentalService ties the provider gateway, registry, scheduler and
// caches together behind the operations the HTTP layer exposes.
type RentalService struct {
	gateway  domain.ProviderGateway
	registry rentalRegistry
	poller   poller
	caches   providerCaches
	logger   *slog.Logger
	now      func() time.Time
}

func NewRentalService(
	gateway domain.ProviderGateway,
	reg rentalRegistry,
	p poller,
	caches providerCaches,
	logger *slog.Logger,
) *RentalService {
	return &RentalService{
		gateway:  gateway,
		registry: reg,
		poller:   p,
		caches:   caches,
		logger:   logger.With("component", "rental_service"),
		now:      time.Now,
	}
}

// Resume re-arms the polling loop for rentals restored from the store.
// Called once at startup, after the registry has loaded its snapshot.
func (s *RentalService) Resume() {
	if pending := s.registry.Pending(); len(pending) > 0 {
		s.logger.Info("resuming polling for restored rentals", "pending", len(pending))
	}
	s.poller.EnsureRunning()
}

// Rent leases a phone number. The service name and price are copied
// from the catalog entry selected at rent time and stay immutable on
// the record afterwards.
func (s *RentalService) Rent(ctx context.Context, serviceID, country string) (domain.RentalRecord, error) {
	services, err := s.Services(ctx, country, false)
	if err != nil {
		s.logger.WarnContext(ctx, "catalog lookup failed during rent, continuing without it",
			"country", country, "error", err)
	}

	serviceName := "Unknown"
	var price int64
	for _, svc := range services {
		if svc.ID == serviceID {
			serviceName = svc.Name
			price = svc.Price
			break
		}
	}

	result, err := s.gateway.RentPhone(ctx, serviceID, country)
	if err != nil {
		return domain.RentalRecord{}, err
	}

	record := domain.RentalRecord{
		RequestID:   result.RequestID,
		PhoneNumber: result.PhoneNumber,
		ServiceID:   serviceID,
		ServiceName: serviceName,
		Price:       price,
		Status:      domain.StatusWaiting,
		CreatedTime: s.now().UTC(),
	}
	s.registry.Upsert(record)
	s.poller.EnsureRunning()

	s.logger.InfoContext(ctx, "phone number rented",
		"request_id", record.RequestID, "service_id", serviceID, "country", country)
	return record, nil
}

// Balance returns the provider balance, trusting a cached snapshot for
// its TTL unless force is set.
func (s *RentalService) Balance(ctx context.Context, force bool) (domain.BalanceSnapshot, error) {
	if !force {
		if snap, ok := s.caches.Balance(ctx); ok {
			return snap, nil
		}
	}

	balance, err := s.gateway.GetBalance(ctx)
	if err != nil {
		return domain.BalanceSnapshot{}, err
	}
	s.caches.SetBalance(ctx, balance)
	return domain.BalanceSnapshot{Balance: balance, Timestamp: s.now().UTC()}, nil
}

// Services returns the catalog for a country, cached until a forced
// refresh.
func (s *RentalService) Services(ctx context.Context, country string, force bool) ([]domain.ServiceCatalogEntry, error) {
	if !force {
		if entries, ok := s.caches.Services(ctx, country); ok {
			return entries, nil
		}
	}

	entries, err := s.gateway.GetServices(ctx, country)
	if err != nil {
		return nil, err
	}
	s.caches.SetServices(ctx, country, entries)
	return entries, nil
}

// History passes a filtered history lookup through to the provider.
func (s *RentalService) History(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	return s.gateway.GetHistory(ctx, filter)
}

// Rentals returns all tracked rentals in insertion order.
func (s *RentalService) Rentals(ctx context.Context) []domain.RentalRecord {
	return s.registry.Snapshot()
}

// Rental returns one tracked rental.
func (s *RentalService) Rental(ctx context.Context, requestID string) (domain.RentalRecord, error) {
	rec, ok := s.registry.Get(requestID)
	if !ok {
		return domain.RentalRecord{}, ErrRentalNotFound
	}
	return rec, nil
}

// RefreshRental re-fetches one rental's status out of band.
func (s *RentalService) RefreshRental(ctx context.Context, requestID string) (domain.RentalRecord, error) {
	if _, ok := s.registry.Get(requestID); !ok {
		return domain.RentalRecord{}, ErrRentalNotFound
	}
	if err := s.poller.RefreshOne(ctx, requestID); err != nil {
		return domain.RentalRecord{}, err
	}
	rec, _ := s.registry.Get(requestID)
	return rec, nil
}

// RefreshRentals refreshes every pending rental once, synchronously.
func (s *RentalService) RefreshRentals(ctx context.Context) []domain.RentalRecord {
	s.poller.RefreshAll(ctx)
	return s.registry.Snapshot()
}
