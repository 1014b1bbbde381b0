package pricer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mintscout/pkg/config"
	"github.com/mintscout/pkg/db"
)

// PriceAPI is the one pool-API method the pricer needs. The client behind
// it reports failures as errors rather than empty documents, so retry
// policy lives here and nowhere else.
type PriceAPI interface {
	SimpleTokenPrice(ctx context.Context, network, address string) (float64, error)
}

// Pricer captures USD price snapshots for resolved tokens and computes
// price change since a mention.
type Pricer struct {
	cfg     *config.Config
	store   *db.Store
	api     PriceAPI
	backoff time.Duration // base retry delay, doubles per attempt
}

func New(cfg *config.Config, store *db.Store, api PriceAPI) *Pricer {
	return &Pricer{cfg: cfg, store: store, api: api, backoff: time.Second}
}

// Snapshot fetches the current USD price for one token and stores it.
// Retries up to PRICE_RETRY_MAX attempts with doubling backoff; a zero
// price counts as a failed attempt.
func (p *Pricer) Snapshot(ctx context.Context, tokenKey string, chain config.Chain) (float64, error) {
	price, err := p.fetchWithRetry(ctx, tokenKey, chain)
	if err != nil {
		return 0, err
	}
	if err := p.store.InsertSnapshot(tokenKey, chain, price); err != nil {
		return 0, fmt.Errorf("store snapshot: %w", err)
	}
	log.Debug().Str("token", abbrev(tokenKey)).Str("chain", string(chain)).
		Float64("price", price).Msg("price snapshot")
	return price, nil
}

func (p *Pricer) fetchWithRetry(ctx context.Context, tokenKey string, chain config.Chain) (float64, error) {
	attempts := p.cfg.PriceRetryMax
	if attempts < 1 {
		attempts = 1
	}

	delay := p.backoff
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		price, err := p.api.SimpleTokenPrice(ctx, config.GeckoNetworkID(chain), tokenKey)
		if err == nil && price > 0 {
			return price, nil
		}
		if err == nil {
			err = fmt.Errorf("zero price for %s on %s", abbrev(tokenKey), chain)
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		log.Debug().Err(err).Str("token", abbrev(tokenKey)).Int("attempt", attempt).Msg("price fetch failed, retrying")
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return 0, lastErr
}

// SnapshotAll captures prices for every token resolved from a mention in
// the last `hours` hours. One dead token does not starve the rest.
func (p *Pricer) SnapshotAll(ctx context.Context, hours int) int {
	targets, err := p.store.SnapshotTargets(hours)
	if err != nil {
		log.Error().Err(err).Msg("snapshot targets query failed")
		return 0
	}

	count := 0
	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}
		if _, err := p.Snapshot(ctx, t.TokenKey, t.Chain); err != nil {
			log.Warn().Err(err).Str("token", abbrev(t.TokenKey)).Str("chain", string(t.Chain)).
				Msg("price snapshot failed")
			continue
		}
		count++
	}

	if count > 0 {
		log.Info().Int("tokens", count).Int("targets", len(targets)).Msg("📸 price snapshots captured")
	}
	return count
}

// ROISince reports the percent change between the first snapshot captured
// at or after `since` and the latest one. Returns false when fewer than
// two usable snapshots exist.
func (p *Pricer) ROISince(tokenKey string, chain config.Chain, since time.Time) (float64, bool) {
	first, err := p.store.FirstSnapshotSince(tokenKey, chain, since)
	if err != nil || first == nil || first.PriceUSD <= 0 {
		return 0, false
	}
	latest, err := p.store.LatestSnapshot(tokenKey, chain)
	if err != nil || latest == nil || latest.ID == first.ID {
		return 0, false
	}
	return (latest.PriceUSD - first.PriceUSD) / first.PriceUSD * 100, true
}

func abbrev(addr string) string {
	if len(addr) > 12 {
		return addr[:6] + "..." + addr[len(addr)-4:]
	}
	return addr
}
