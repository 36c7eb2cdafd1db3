package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/otprent/rental-gateway/internal/rental/domain"
)

// Clock abstracts timer scheduling so tests can drive virtual time.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the production Clock backed by time.After.
var RealClock Clock = realClock{}

// rentalRegistry is the slice of the registry the poller needs.
type rentalRegistry interface {
	Pending() []domain.RentalRecord
	Get(requestID string) (domain.RentalRecord, bool)
	ApplyTransition(ctx context.Context, requestID string, result domain.SessionStatus)
}

// Config controls the polling loop.
type Config struct {
	// Interval between the end of one tick and the start of the next.
	Interval time.Duration
	// MaxConcurrent bounds the status-fetch fan-out within a tick.
	MaxConcurrent int
}

// Poller owns the single polling loop that refreshes every rental
// still awaiting a code. It arms at most one timer, waits out the
// interval only after the previous tick's fetches have finished, and
// disarms itself on the first tick that finds nothing pending.
type Poller struct {
	registry rentalRegistry
	gateway  domain.ProviderGateway
	logger   *slog.Logger
	clock    Clock
	cfg      Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewPoller builds a poller. A nil clock gets the real one; a zero
// interval defaults to 5s and a zero fan-out bound to 8.
func NewPoller(reg rentalRegistry, gateway domain.ProviderGateway, logger *slog.Logger, clock Clock, cfg Config) *Poller {
	if clock == nil {
		clock = RealClock
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	return &Poller{
		registry: reg,
		gateway:  gateway,
		logger:   logger.With("component", "poll_scheduler"),
		clock:    clock,
		cfg:      cfg,
	}
}

// EnsureRunning arms the polling loop if it is idle and there is at
// least one waiting rental. Calling it repeatedly never creates a
// second loop.
func (p *Poller) EnsureRunning() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	if len(p.registry.Pending()) == 0 {
		return
	}

	p.running = true
	p.stopCh = make(chan struct{})
	go p.loop(p.stopCh)
	p.logger.Info("polling loop armed", "interval", p.cfg.Interval)
}

// Running reports whether the loop is currently armed.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stop disarms the loop if armed. Safe to call repeatedly and
// concurrently with the loop's own self-disarm.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false
	close(p.stopCh)
	p.logger.Info("polling loop stopped")
}

func (p *Poller) loop(stopCh chan struct{}) {
	ctx := context.Background()
	for {
		select {
		case <-p.clock.After(p.cfg.Interval):
			if p.tick(ctx) {
				continue
			}
			p.mu.Lock()
			// Stop already disarmed us and a newer loop may own the flag.
			if p.stopCh != stopCh {
				p.mu.Unlock()
				return
			}
			// A rent may have landed after the tick's empty snapshot,
			// with its EnsureRunning seeing the loop still armed. The
			// re-check under the lock closes that window.
			if len(p.registry.Pending()) > 0 {
				p.mu.Unlock()
				continue
			}
			p.running = false
			p.mu.Unlock()
			p.logger.Info("polling loop disarmed, no pending rentals")
			return
		case <-stopCh:
			return
		}
	}
}

// tick refreshes every pending rental once. It reports whether there
// was anything to do; a tick that finds an empty pending set asks the
// loop to disarm.
func (p *Poller) tick(ctx context.Context) bool {
	pending := p.registry.Pending()
	if len(pending) == 0 {
		return false
	}

	ticksCounter.Inc()
	timer := prometheus.NewTimer(tickDurationHist)
	defer timer.ObserveDuration()

	p.refresh(ctx, pending)
	return true
}

// refresh issues one status fetch per record concurrently, bounded by
// MaxConcurrent, and routes every result through ApplyTransition. A
// failed fetch for one record never blocks or fails its siblings.
func (p *Poller) refresh(ctx context.Context, records []domain.RentalRecord) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrent)

	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			result, err := p.gateway.GetSessionStatus(gctx, rec.RequestID)
			if err != nil {
				fetchCounter.WithLabelValues("error").Inc()
				p.logger.WarnContext(gctx, "status fetch failed, record unchanged this tick",
					"request_id", rec.RequestID, "error", err)
				return nil
			}
			fetchCounter.WithLabelValues("ok").Inc()
			p.registry.ApplyTransition(gctx, rec.RequestID, result)
			return nil
		})
	}
	_ = g.Wait()
}

// RefreshAll performs one synchronous refresh of the pending set, the
// manual "refresh everything now" action. It neither arms nor disarms
// the loop.
func (p *Poller) RefreshAll(ctx context.Context) {
	pending := p.registry.Pending()
	if len(pending) == 0 {
		return
	}
	p.refresh(ctx, pending)
}

// RefreshOne fetches and applies the status of a single rental,
// regardless of scheduler state. Used for user-triggered retries.
func (p *Poller) RefreshOne(ctx context.Context, requestID string) error {
	if _, ok := p.registry.Get(requestID); !ok {
		return fmt.Errorf("unknown rental %q", requestID)
	}

	result, err := p.gateway.GetSessionStatus(ctx, requestID)
	if err != nil {
		fetchCounter.WithLabelValues("error").Inc()
		return err
	}
	fetchCounter.WithLabelValues("ok").Inc()
	p.registry.ApplyTransition(ctx, requestID, result)
	return nil
}
