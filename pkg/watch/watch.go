package watch

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mintscout/pkg/config"
	"github.com/mintscout/pkg/db"
	"github.com/mintscout/pkg/resolver"
)

// Identifier is the slice of the resolution facade the worker drives.
type Identifier interface {
	ResolveTickers(ctx context.Context, symbols []string) map[string]resolver.TokenIdentity
	ResolveAddresses(ctx context.Context, addresses []string) map[string]resolver.TokenIdentity
	ResolveNamePhrases(ctx context.Context, phrases []string) map[string]resolver.TokenIdentity
}

// Worker drains unresolved token mentions from the store and stamps each
// with its canonical identity. Resolved tokens with a real chain feed the
// find corpus.
type Worker struct {
	cfg    *config.Config
	store  *db.Store
	engine Identifier
}

func NewWorker(cfg *config.Config, store *db.Store, engine Identifier) *Worker {
	return &Worker{cfg: cfg, store: store, engine: engine}
}

// Run polls for unresolved mentions until the context ends.
func (w *Worker) Run(ctx context.Context) error {
	log.Info().Dur("interval", w.cfg.ResolvePollInterval).
		Int("batch", w.cfg.ResolveBatchSize).Msg("starting resolve worker")

	ticker := time.NewTicker(w.cfg.ResolvePollInterval)
	defer ticker.Stop()

	w.ResolvePending(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.ResolvePending(ctx)
		}
	}
}

// ResolvePending resolves one batch of pending mentions, oldest first, and
// returns the number stamped.
func (w *Worker) ResolvePending(ctx context.Context) int {
	mentions, err := w.store.UnresolvedMentions(w.cfg.ResolveBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("unresolved mentions query failed")
		return 0
	}
	if len(mentions) == 0 {
		return 0
	}

	byMode := map[resolver.Mode][]string{}
	for _, m := range mentions {
		mode := resolver.ParseMode(m.Mode)
		byMode[mode] = append(byMode[mode], m.RawText)
	}

	identities := map[resolver.Mode]map[string]resolver.TokenIdentity{}
	if raw := byMode[resolver.ModeTicker]; len(raw) > 0 {
		identities[resolver.ModeTicker] = w.engine.ResolveTickers(ctx, raw)
	}
	if raw := byMode[resolver.ModeAddress]; len(raw) > 0 {
		identities[resolver.ModeAddress] = w.engine.ResolveAddresses(ctx, raw)
	}
	if raw := byMode[resolver.ModeName]; len(raw) > 0 {
		identities[resolver.ModeName] = w.engine.ResolveNamePhrases(ctx, raw)
	}

	stamped := 0
	for _, m := range mentions {
		mode := resolver.ParseMode(m.Mode)
		id, ok := identities[mode][resolver.NormalizeQuery(mode, m.RawText)]
		if !ok {
			// Raw text that normalizes to nothing can never resolve.
			// Retire it with zero confidence so it stops clogging the queue.
			log.Warn().Int64("mention", m.ID).Str("raw", m.RawText).Msg("retiring unresolvable mention")
			key := strings.TrimSpace(m.RawText)
			if err := w.store.MarkMentionResolved(m.ID, key, key, 0, ""); err == nil {
				stamped++
			}
			continue
		}

		if err := w.store.MarkMentionResolved(m.ID, id.TokenKey, id.TokenDisplay, id.Confidence, id.Chain); err != nil {
			log.Error().Err(err).Int64("mention", m.ID).Msg("mention stamp failed")
			continue
		}
		stamped++

		// Fallback identities carry no chain and stay out of the corpus.
		if id.Chain != "" {
			if err := w.store.UpsertResolvedToken(id.TokenKey, id.Chain, id.Symbol, id.Name); err != nil {
				log.Error().Err(err).Str("token", id.TokenKey).Msg("resolved token upsert failed")
			}
		}
	}

	log.Info().Int("pending", len(mentions)).Int("stamped", stamped).Msg("🔎 resolve pass complete")
	return stamped
}
