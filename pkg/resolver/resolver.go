package resolver

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mintscout/pkg/config"
	"github.com/mintscout/pkg/gecko"
)

// PoolAPI is the upstream surface the resolver depends on, one method per
// concern. *gecko.Client satisfies it; tests plug in a stub.
type PoolAPI interface {
	SearchPools(ctx context.Context, query, network string) gecko.PoolDocument
	SearchTokens(ctx context.Context, query, network string) gecko.TokenDocument
	PoolsForToken(ctx context.Context, network, address string) gecko.PoolDocument
	Trending(ctx context.Context, network string) gecko.TrendingSet
}

// TokenIdentity is the engine's output unit. TokenKey is a canonical chain
// address when resolution succeeds; on fallback it is the normalized query
// text (or the canonical address for address queries). Chain, Symbol and
// Name are populated from the winning candidate and stay empty on fallback.
type TokenIdentity struct {
	TokenKey     string
	TokenDisplay string
	Confidence   int

	Chain  config.Chain
	Symbol string
	Name   string
}

// Resolver turns raw token mentions into canonical identities. It holds no
// state between batches and performs no writes; persistence belongs to the
// caller.
type Resolver struct {
	cfg *config.Config
	api PoolAPI
}

func New(cfg *config.Config, api PoolAPI) *Resolver {
	return &Resolver{cfg: cfg, api: api}
}

// ResolveTickers resolves ticker symbols ("$BONK", "wif"). Keys of the
// returned map are lowercased, $-stripped symbols.
func (r *Resolver) ResolveTickers(ctx context.Context, symbols []string) map[string]TokenIdentity {
	return r.resolveBatch(ctx, symbols, ModeTicker)
}

// ResolveAddresses resolves chain addresses. Keys are canonical addresses:
// lowercased for EVM, case-preserved for base-58.
func (r *Resolver) ResolveAddresses(ctx context.Context, addresses []string) map[string]TokenIdentity {
	return r.resolveBatch(ctx, addresses, ModeAddress)
}

// ResolveNamePhrases resolves free-text token names ("dog wif hat"). Keys
// are lowercased, whitespace-collapsed phrases.
func (r *Resolver) ResolveNamePhrases(ctx context.Context, phrases []string) map[string]TokenIdentity {
	return r.resolveBatch(ctx, phrases, ModeName)
}

// resolveBatch normalizes and de-dups the inputs, fetches trending once per
// network, then resolves every query under a bounded worker limit. The
// returned map always carries one entry per distinct non-empty input; a
// query that fails completely gets the fallback identity, never a hole.
func (r *Resolver) resolveBatch(ctx context.Context, inputs []string, mode Mode) map[string]TokenIdentity {
	keys := normalizeInputs(inputs, mode)
	results := make(map[string]TokenIdentity, len(keys))
	if len(keys) == 0 {
		return results
	}

	batch := uuid.New().String()[:8]
	trending := r.fetchTrending(ctx)

	var mu sync.Mutex
	var g errgroup.Group
	resolved := 0
	g.SetLimit(r.cfg.ResolveConcurrency)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			id, ok := r.resolveOne(ctx, batch, key, mode, trending)
			mu.Lock()
			results[key] = id
			if ok {
				resolved++
			}
			mu.Unlock()
			if !ok {
				log.Debug().Str("batch", batch).Str("query", key).Str("mode", mode.String()).Msg("fell back to unresolved identity")
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info().
		Str("batch", batch).
		Str("mode", mode.String()).
		Int("queries", len(keys)).
		Int("resolved", resolved).
		Int("fallback", len(keys)-resolved).
		Msg("🎯 Resolution batch complete")
	return results
}

// NormalizeQuery maps one raw input to the key its resolution is filed
// under in the result map: canonical address, lowercased bare symbol, or
// whitespace-collapsed phrase.
func NormalizeQuery(mode Mode, raw string) string {
	switch mode {
	case ModeAddress:
		return Classify(raw).Canonical
	case ModeName:
		return normalizePhrase(raw)
	default:
		return normalizeTicker(raw)
	}
}

// normalizeInputs maps raw inputs to result-map keys, preserving first-seen
// order and dropping empties and duplicates.
func normalizeInputs(inputs []string, mode Mode) []string {
	seen := map[string]bool{}
	var keys []string
	for _, raw := range inputs {
		key := NormalizeQuery(mode, raw)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// fetchTrending pulls the trending set once per configured network. Batch
// scoped: the sets live for this call only and are passed down explicitly.
func (r *Resolver) fetchTrending(ctx context.Context) map[config.Chain]gecko.TrendingSet {
	out := make(map[config.Chain]gecko.TrendingSet, len(r.cfg.Networks))
	for _, chain := range r.cfg.Networks {
		out[chain] = r.api.Trending(ctx, config.GeckoNetworkID(chain))
	}
	return out
}

// resolveOne runs the full pipeline for a single normalized query: variant
// fan-out, merge, token-centric fallback, ranking, confidence. The bool
// result reports whether a real candidate won (false means fallback).
func (r *Resolver) resolveOne(ctx context.Context, batch, key string, mode Mode, trending map[config.Chain]gecko.TrendingSet) (TokenIdentity, bool) {
	networks := r.networksFor(key, mode)
	if len(networks) == 0 {
		return fallbackIdentity(key, mode), false
	}

	merged := r.searchAll(ctx, key, mode, networks, trending)
	if len(merged) == 0 {
		merged = r.tokenCentricFallback(ctx, key, mode, networks, trending)
	}

	winner, ok := selectWinner(merged, r.cfg)
	if !ok {
		return fallbackIdentity(key, mode), false
	}

	log.Debug().
		Str("batch", batch).
		Str("query", key).
		Str("token", winner.Address).
		Str("symbol", winner.Symbol).
		Str("venue", winner.Venue).
		Float64("volume24h", winner.Volume24hUSD).
		Float64("liquidity", winner.LiquidityUSD).
		Float64("boost", winner.TrendingBoost).
		Msg("winner selected")

	return TokenIdentity{
		TokenKey:     winner.Address,
		TokenDisplay: displayFor(winner),
		Confidence:   confidenceFor(mode, winner),
		Chain:        winner.Chain,
		Symbol:       strings.TrimPrefix(strings.TrimSpace(winner.Symbol), "$"),
		Name:         strings.TrimSpace(winner.Name),
	}, true
}

// networksFor narrows the configured networks for one query. Address
// queries only hit chains the address shape is valid for; everything else
// searches all configured networks.
func (r *Resolver) networksFor(key string, mode Mode) []config.Chain {
	if mode != ModeAddress {
		return r.cfg.Networks
	}
	kind := Classify(key).Kind
	var out []config.Chain
	for _, chain := range r.cfg.Networks {
		if ValidForChain(kind, chain) {
			out = append(out, chain)
		}
	}
	return out
}

// searchAll fans the query's search variants out across networks
// concurrently and joins the results in a fixed order, so full-tie ranking
// stays deterministic regardless of which request finished first.
func (r *Resolver) searchAll(ctx context.Context, key string, mode Mode, networks []config.Chain, trending map[config.Chain]gecko.TrendingSet) []Candidate {
	type job struct {
		variant string
		chain   config.Chain
	}
	var jobs []job
	for _, variant := range searchVariants(key, mode, r.cfg) {
		for _, chain := range networks {
			jobs = append(jobs, job{variant: variant, chain: chain})
		}
	}

	perJob := make([][]Candidate, len(jobs))
	var g errgroup.Group
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			doc := r.api.SearchPools(ctx, j.variant, config.GeckoNetworkID(j.chain))
			perJob[i] = buildCandidates(doc, key, mode, j.chain, trending[j.chain], r.cfg)
			return nil
		})
	}
	_ = g.Wait()

	var merged []Candidate
	for _, cands := range perJob {
		merged = append(merged, cands...)
	}
	return merged
}

// searchVariants expands one normalized query into the strings actually
// sent upstream. The builder always matches against the normalized key, so
// a variant can only add candidates, never divert the match.
func searchVariants(key string, mode Mode, cfg *config.Config) []string {
	variants := []string{key}
	switch mode {
	case ModeTicker:
		variants = append(variants, "$"+key)
		if alias := cfg.Alias(key); alias != "" {
			variants = append(variants, alias)
		}
	case ModeName:
		if alias := cfg.Alias(strings.ReplaceAll(key, " ", "")); alias != "" {
			variants = append(variants, alias)
		}
	}
	return variants
}

// tokenCentricFallback recovers tokens whose pools the generic search does
// not index: search tokens directly, then pull each discovered token's own
// pools and rebuild candidates in the same mode, which re-applies the
// original query match.
func (r *Resolver) tokenCentricFallback(ctx context.Context, key string, mode Mode, networks []config.Chain, trending map[config.Chain]gecko.TrendingSet) []Candidate {
	var merged []Candidate
	for _, chain := range networks {
		network := config.GeckoNetworkID(chain)
		tdoc := r.api.SearchTokens(ctx, key, network)
		for _, row := range tdoc.Data {
			addr := strings.TrimSpace(row.Attributes.Address)
			if addr == "" || CanonicalAddress(addr, chain) == "" {
				continue
			}
			pdoc := r.api.PoolsForToken(ctx, network, addr)
			merged = append(merged, buildCandidates(pdoc, key, mode, chain, trending[chain], r.cfg)...)
		}
	}
	if len(merged) > 0 {
		log.Debug().Str("query", key).Int("candidates", len(merged)).Msg("token-centric fallback recovered candidates")
	}
	return merged
}

func displayFor(c Candidate) string {
	sym := strings.TrimPrefix(strings.TrimSpace(c.Symbol), "$")
	if sym != "" {
		return "$" + strings.ToUpper(sym)
	}
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return abbrev(c.Address)
}

// fallbackIdentity is the total-contract escape hatch: the key itself
// becomes the token key, with a fixed low-but-nonzero confidence per mode.
func fallbackIdentity(key string, mode Mode) TokenIdentity {
	id := TokenIdentity{TokenKey: key, Confidence: fallbackConfidence(mode)}
	switch mode {
	case ModeAddress:
		id.TokenDisplay = abbrev(key)
	case ModeName:
		id.TokenDisplay = key
	default:
		id.TokenDisplay = "$" + strings.ToUpper(key)
	}
	return id
}

func abbrev(addr string) string {
	if len(addr) > 12 {
		return addr[:6] + "..." + addr[len(addr)-4:]
	}
	return addr
}
