package gecko

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mintscout/pkg/config"
)

// TrendingSet holds the tokens flagged as trending upstream, valid for the
// duration of one resolution batch. Zero value is a usable empty set.
type TrendingSet struct {
	addresses map[string]struct{}
	symbols   map[string]struct{}
}

func NewTrendingSet(addresses, symbols []string) TrendingSet {
	set := TrendingSet{
		addresses: make(map[string]struct{}, len(addresses)),
		symbols:   make(map[string]struct{}, len(symbols)),
	}
	for _, a := range addresses {
		if a != "" {
			set.addresses[a] = struct{}{}
		}
	}
	for _, s := range symbols {
		if s != "" {
			set.symbols[strings.ToLower(s)] = struct{}{}
		}
	}
	return set
}

func (t TrendingSet) HasAddress(canonical string) bool {
	_, ok := t.addresses[canonical]
	return ok
}

func (t TrendingSet) HasSymbol(symbol string) bool {
	_, ok := t.symbols[strings.ToLower(symbol)]
	return ok
}

func (t TrendingSet) Size() int {
	return len(t.addresses)
}

// The same logical resource has moved paths upstream more than once, so a
// short list of known URL shapes is tried in order.
var trendingShapes = []string{
	"%s/networks/%s/trending_pools?include=base_token,quote_token,dex",
	"%s/networks/trending_pools?network=%s&include=base_token,quote_token,dex",
	"%s/networks/%s/pools?include=base_token,quote_token,dex&page=1",
}

// Trending fetches the trending token set for one network. First shape that
// answers 200 with a non-empty set wins; when every shape fails the result
// is simply empty. Trending is a tie-breaker signal, never a hard input.
func (c *Client) Trending(ctx context.Context, network string) TrendingSet {
	for _, shape := range trendingShapes {
		u := fmt.Sprintf(shape, c.cfg.GeckoBaseURL, url.QueryEscape(network))

		var doc PoolDocument
		if err := c.getJSON(ctx, u, &doc); err != nil {
			log.Debug().Err(err).Str("network", network).Msg("trending endpoint failed, trying next shape")
			continue
		}
		if set := trendingFromDoc(doc, network); set.Size() > 0 {
			log.Debug().Int("tokens", set.Size()).Str("network", network).Msg("trending set loaded")
			return set
		}
	}
	return TrendingSet{}
}

func trendingFromDoc(doc PoolDocument, network string) TrendingSet {
	tokens := doc.TokenTable()
	var addrs, syms []string
	for _, pool := range doc.Data {
		tok, ok := tokens[pool.Relationships.BaseToken.Data.ID]
		if !ok || tok.Address == "" {
			continue
		}
		addrs = append(addrs, CanonicalForNetwork(tok.Address, network))
		if tok.Symbol != "" {
			syms = append(syms, tok.Symbol)
		}
	}
	return NewTrendingSet(addrs, syms)
}

// CanonicalForNetwork applies the per-chain casing rule to an address the
// API reported: EVM folds to lowercase, base-58 chains keep case.
func CanonicalForNetwork(address, network string) string {
	if config.ChainForNetworkID(network) == config.ChainSolana {
		return address
	}
	return strings.ToLower(address)
}
