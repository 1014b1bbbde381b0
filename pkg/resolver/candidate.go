package resolver

import (
	"strings"

	"github.com/mintscout/pkg/config"
	"github.com/mintscout/pkg/gecko"
)

// Mode tells how a query is matched against pool sides.
type Mode int

const (
	ModeTicker Mode = iota
	ModeAddress
	ModeName
)

func (m Mode) String() string {
	switch m {
	case ModeAddress:
		return "address"
	case ModeName:
		return "name"
	default:
		return "ticker"
	}
}

// ParseMode is the inverse of String. Unrecognized values parse as ticker.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "address":
		return ModeAddress
	case "name":
		return ModeName
	default:
		return ModeTicker
	}
}

// Candidate is one matching side of one liquidity pool. Candidates are
// built fresh per resolution call and never persisted.
type Candidate struct {
	Address       string
	Symbol        string
	Name          string
	Chain         config.Chain
	Venue         string
	VenueScore    int
	QuoteSymbol   string
	QuotePref     int
	Volume24hUSD  float64
	LiquidityUSD  float64
	MarketCapUSD  float64
	TrendingBoost float64
	PoolName      string
}

// buildCandidates turns one raw search payload into candidates for one
// query. The query arrives pre-normalized for its mode: canonical address,
// lowercased $-stripped ticker, or lowercased phrase.
func buildCandidates(doc gecko.PoolDocument, query string, mode Mode, chain config.Chain, trending gecko.TrendingSet, cfg *config.Config) []Candidate {
	tokens := doc.TokenTable()
	dexes := doc.DexTable()

	var out []Candidate
	for _, pool := range doc.Data {
		base, baseOK := tokens[pool.Relationships.BaseToken.Data.ID]
		quote, quoteOK := tokens[pool.Relationships.QuoteToken.Data.ID]
		if !baseOK || !quoteOK {
			continue
		}

		venue := dexes[pool.Relationships.Dex.Data.ID]
		if venue == "" {
			venue = pool.Relationships.Dex.Data.ID
		}
		venueScore := cfg.VenuePriority(venue)
		// Unlisted venues are rejected outright except in name mode,
		// where they pass at rank 0.
		if venueScore == 0 && mode != ModeName {
			continue
		}

		baseAddr := CanonicalAddress(base.Address, chain)
		quoteAddr := CanonicalAddress(quote.Address, chain)
		if baseAddr == "" && quoteAddr == "" {
			continue
		}

		// Pools quoted in arbitrary illiquid assets are not trustworthy
		// resolution evidence.
		quotePref := cfg.QuotePreference(chain, quote.Symbol)
		if quotePref == 0 {
			continue
		}

		chosen, chosenAddr, ok := chooseSide(base, quote, baseAddr, quoteAddr, pool.Attributes.Name, query, mode, cfg)
		if !ok || chosenAddr == "" {
			continue
		}

		boost := 0.0
		if trending.HasAddress(chosenAddr) {
			boost += 1
		}
		if chosen.Symbol != "" && trending.HasSymbol(chosen.Symbol) {
			boost += 0.5
		}

		mcap := float64(pool.Attributes.MarketCapUSD)
		if mcap == 0 {
			mcap = float64(pool.Attributes.FDVUSD)
		}

		out = append(out, Candidate{
			Address:       chosenAddr,
			Symbol:        chosen.Symbol,
			Name:          chosen.Name,
			Chain:         chain,
			Venue:         venue,
			VenueScore:    venueScore,
			QuoteSymbol:   quote.Symbol,
			QuotePref:     quotePref,
			Volume24hUSD:  float64(pool.Attributes.VolumeUSD.H24),
			LiquidityUSD:  float64(pool.Attributes.ReserveInUSD),
			MarketCapUSD:  mcap,
			TrendingBoost: boost,
			PoolName:      pool.Attributes.Name,
		})
	}
	return out
}

// chooseSide picks at most one side of a pool for a query. A pool never
// contributes both of its sides.
func chooseSide(base, quote gecko.IncludedAttrs, baseAddr, quoteAddr, poolName, query string, mode Mode, cfg *config.Config) (gecko.IncludedAttrs, string, bool) {
	switch mode {
	case ModeAddress:
		if baseAddr != "" && baseAddr == query {
			return base, baseAddr, true
		}
		if quoteAddr != "" && quoteAddr == query {
			return quote, quoteAddr, true
		}
	case ModeTicker:
		if tickerMatches(base.Symbol, query, cfg) {
			return base, baseAddr, true
		}
		if tickerMatches(quote.Symbol, query, cfg) {
			return quote, quoteAddr, true
		}
	case ModeName:
		if nameMatches(base, query) {
			return base, baseAddr, true
		}
		if nameMatches(quote, query) {
			return quote, quoteAddr, true
		}
		// Pair name as a last match surface; the base side is the token
		// the pair is named for.
		if phraseLike(poolName, query) {
			return base, baseAddr, true
		}
	}
	return gecko.IncludedAttrs{}, "", false
}

// tickerMatches compares a reported symbol to a normalized query ticker,
// case-insensitively, $-stripped, honoring configured aliases.
func tickerMatches(symbol, query string, cfg *config.Config) bool {
	s := normalizeTicker(symbol)
	if s == "" {
		return false
	}
	if s == query {
		return true
	}
	if alias := cfg.Alias(query); alias != "" && s == alias {
		return true
	}
	return false
}

func nameMatches(tok gecko.IncludedAttrs, phrase string) bool {
	return phraseLike(tok.Name, phrase) || phraseLike(tok.Symbol, phrase)
}

func phraseLike(s, phrase string) bool {
	if s == "" || phrase == "" {
		return false
	}
	ls := strings.ToLower(s)
	if strings.Contains(ls, phrase) {
		return true
	}
	return diceCoefficient(ls, phrase) > nameSimilarityThreshold
}

func normalizeTicker(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "$"))
}

func normalizePhrase(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
