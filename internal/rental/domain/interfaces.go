package domain

import (
	"context"
	"time"
)

// ProviderGateway is the typed client for the OTP rental provider. All
// operations are side-effect-free on local state; callers own any
// registry or cache updates that follow.
type ProviderGateway interface {
	GetBalance(ctx context.Context) (float64, error)
	GetServices(ctx context.Context, country string) ([]ServiceCatalogEntry, error)
	RentPhone(ctx context.Context, serviceID, country string) (RentResult, error)
	GetSessionStatus(ctx context.Context, requestID string) (SessionStatus, error)
	GetHistory(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error)
}

// RentalStore persists the rental registry snapshot across restarts.
// Load must treat an absent or unparseable store as empty rather than
// failing the caller; the store is an advisory cache, the provider is
// the system of record.
type RentalStore interface {
	Load() (map[string]RentalRecord, error)
	Save(records map[string]RentalRecord) error
}

// EventType classifies user-visible rental transitions.
type EventType string

const (
	EventOTPReceived   EventType = "otp.received"
	EventRentalExpired EventType = "rental.expired"
)

// Event is one user-visible transition, emitted on the edge out of the
// waiting state.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier is the side channel for transition events. Implementations
// must not participate in state; failures are theirs to log.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}
