package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/otprent/rental-gateway/internal/rental/domain"
)

// Registry is the authoritative in-memory collection of rental records,
// written through to a RentalStore after every mutation. All mutation
// goes through Upsert and ApplyTransition so the waiting->success edge
// notification fires exactly once per transition.
type Registry struct {
	mu      sync.Mutex
	records map[string]domain.RentalRecord
	order   []string

	store    domain.RentalStore
	notifier domain.Notifier
	logger   *slog.Logger
}

// New builds a registry seeded from the store. A failed load degrades
// to an empty registry; the snapshot is advisory.
func New(store domain.RentalStore, notifier domain.Notifier, logger *slog.Logger) *Registry {
	r := &Registry{
		records:  map[string]domain.RentalRecord{},
		store:    store,
		notifier: notifier,
		logger:   logger.With("component", "rental_registry"),
	}

	loaded, err := store.Load()
	if err != nil {
		r.logger.Warn("failed to load rental snapshot, starting empty", "error", err)
		loaded = map[string]domain.RentalRecord{}
	}
	r.records = loaded

	// The map loses insertion order across restarts; creation time is
	// the closest stable substitute for display ordering.
	for id := range loaded {
		r.order = append(r.order, id)
	}
	sort.Slice(r.order, func(i, j int) bool {
		a, b := loaded[r.order[i]], loaded[r.order[j]]
		if !a.CreatedTime.Equal(b.CreatedTime) {
			return a.CreatedTime.Before(b.CreatedTime)
		}
		return r.order[i] < r.order[j]
	})

	return r
}

// Upsert inserts or overwrites a record by request id. Re-adding an
// existing id keeps its position.
func (r *Registry) Upsert(record domain.RentalRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.RequestID]; !exists {
		r.order = append(r.order, record.RequestID)
	}
	r.records[record.RequestID] = record
	r.persistLocked()
}

// Pending returns the waiting records in insertion order.
func (r *Registry) Pending() []domain.RentalRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []domain.RentalRecord
	for _, id := range r.order {
		if rec := r.records[id]; rec.Status == domain.StatusWaiting {
			pending = append(pending, rec)
		}
	}
	return pending
}

// Snapshot returns all records in insertion order.
func (r *Registry) Snapshot() []domain.RentalRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.RentalRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id])
	}
	return out
}

// Get looks up one record by request id.
func (r *Registry) Get(requestID string) (domain.RentalRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[requestID]
	return rec, ok
}

// ApplyTransition copies a status fetch result onto the stored record.
// An absent id is a logged no-op: the record may have been removed
// between scheduling the fetch and its resolution. Applying the same
// result twice is idempotent, and a late result landing on an already
// terminal record is a benign overwrite.
func (r *Registry) ApplyTransition(ctx context.Context, requestID string, result domain.SessionStatus) {
	r.mu.Lock()

	rec, ok := r.records[requestID]
	if !ok {
		r.mu.Unlock()
		r.logger.WarnContext(ctx, "transition for unknown rental ignored", "request_id", requestID)
		return
	}

	prior := rec.Status
	rec.Status = result.Status
	rec.Code = result.Code
	rec.SMSContent = result.SMSContent
	rec.IsSound = result.IsSound
	r.records[requestID] = rec
	r.persistLocked()

	var event *domain.Event
	switch {
	case prior == domain.StatusWaiting && result.Status == domain.StatusSuccess:
		event = &domain.Event{
			ID:        uuid.NewString(),
			Type:      domain.EventOTPReceived,
			RequestID: requestID,
			Code:      result.Code,
			At:        time.Now().UTC(),
		}
	case prior == domain.StatusWaiting && result.Status == domain.StatusExpired:
		event = &domain.Event{
			ID:        uuid.NewString(),
			Type:      domain.EventRentalExpired,
			RequestID: requestID,
			Message:   "rental expired before a code arrived",
			At:        time.Now().UTC(),
		}
	}
	r.mu.Unlock()

	if event != nil {
		transitionsCounter.WithLabelValues(prior.String(), result.Status.String()).Inc()
		r.notifier.Notify(ctx, *event)
	}
}

// persistLocked writes the snapshot through to the store. Persistence
// failures are absorbed here: the registry keeps serving from memory.
func (r *Registry) persistLocked() {
	snapshot := make(map[string]domain.RentalRecord, len(r.records))
	for id, rec := range r.records {
		snapshot[id] = rec
	}
	if err := r.store.Save(snapshot); err != nil {
		persistFailuresCounter.Inc()
		r.logger.Warn("failed to persist rental snapshot, continuing in memory", "error", err)
	}
}
