package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otprent/rental-gateway/internal/rental/domain"
)

const (
	balanceKey        = "viotp:balance"
	servicesKeyPrefix = "viotp:services:"
)

// Caches holds the provider-data read-through caches: the balance
// snapshot (trusted for BalanceTTL) and the per-country service
// catalog (kept until explicitly refreshed). Cache misses and failures
// only cost a provider round-trip, so every error path degrades to
// "not cached".
type Caches struct {
	client *redis.Client
	logger *slog.Logger
}

func NewCaches(client *redis.Client, logger *slog.Logger) *Caches {
	return &Caches{
		client: client,
		logger: logger.With("component", "provider_caches"),
	}
}

// Balance returns the cached snapshot, or ok=false when absent or
// expired. Expiry is enforced by the key TTL set in SetBalance.
func (c *Caches) Balance(ctx context.Context) (domain.BalanceSnapshot, bool) {
	raw, err := c.client.Get(ctx, balanceKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "balance cache read failed", "error", err)
		}
		return domain.BalanceSnapshot{}, false
	}

	var snap domain.BalanceSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.WarnContext(ctx, "balance cache entry is corrupt", "error", err)
		return domain.BalanceSnapshot{}, false
	}
	return snap, true
}

// SetBalance stores a fresh snapshot with the balance TTL.
func (c *Caches) SetBalance(ctx context.Context, balance float64) {
	snap := domain.BalanceSnapshot{Balance: balance, Timestamp: time.Now().UTC()}
	raw, err := json.Marshal(snap)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to marshal balance snapshot", "error", err)
		return
	}
	if err := c.client.Set(ctx, balanceKey, raw, domain.BalanceTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "balance cache write failed", "error", err)
	}
}

// Services returns the cached catalog for a country, or ok=false.
func (c *Caches) Services(ctx context.Context, country string) ([]domain.ServiceCatalogEntry, bool) {
	raw, err := c.client.Get(ctx, servicesKeyPrefix+country).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "service catalog cache read failed", "country", country, "error", err)
		}
		return nil, false
	}

	var entries []domain.ServiceCatalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.logger.WarnContext(ctx, "service catalog cache entry is corrupt", "country", country, "error", err)
		return nil, false
	}
	return entries, true
}

// SetServices stores the catalog for a country. No TTL: the catalog is
// kept until a forced refresh overwrites it.
func (c *Caches) SetServices(ctx context.Context, country string, entries []domain.ServiceCatalogEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to marshal service catalog", "country", country, "error", err)
		return
	}
	if err := c.client.Set(ctx, servicesKeyPrefix+country, raw, 0).Err(); err != nil {
		c.logger.WarnContext(ctx, "service catalog cache write failed", "country", country, "error", err)
	}
}

// InvalidateServices drops the cached catalog for a country.
func (c *Caches) InvalidateServices(ctx context.Context, country string) error {
	if err := c.client.Del(ctx, servicesKeyPrefix+country).Err(); err != nil {
		return fmt.Errorf("invalidate service catalog for %s: %w", country, err)
	}
	return nil
}
