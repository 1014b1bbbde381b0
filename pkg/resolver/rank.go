package resolver

import (
	"sort"

	"github.com/mintscout/pkg/config"
)

// compositeScore orders merged candidates. The weight gaps make it
// effectively lexicographic: trending dominates venue rank, venue rank
// dominates quote preference, then volume, liquidity, market cap.
func compositeScore(c Candidate) float64 {
	return c.TrendingBoost*100000 +
		float64(c.VenueScore)*10000 +
		float64(c.QuotePref)*5000 +
		c.Volume24hUSD*50 +
		c.LiquidityUSD*5 +
		c.MarketCapUSD
}

// sortByComposite sorts descending. Stable, so candidates that tie on the
// full score keep their parse order.
func sortByComposite(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return compositeScore(cands[i]) > compositeScore(cands[j])
	})
}

// pickBestForTicker narrows a candidate set to one winner through discrete
// filter steps rather than a blended score: keep the best venue rank, then
// the best quote preference, then take the highest volume with liquidity
// and market cap as tie-breaks.
func pickBestForTicker(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}

	maxVenue := cands[0].VenueScore
	for _, c := range cands[1:] {
		if c.VenueScore > maxVenue {
			maxVenue = c.VenueScore
		}
	}
	step := filterCandidates(cands, func(c Candidate) bool { return c.VenueScore == maxVenue })

	maxQuote := step[0].QuotePref
	for _, c := range step[1:] {
		if c.QuotePref > maxQuote {
			maxQuote = c.QuotePref
		}
	}
	step = filterCandidates(step, func(c Candidate) bool { return c.QuotePref == maxQuote })

	sort.SliceStable(step, func(i, j int) bool {
		if step[i].Volume24hUSD != step[j].Volume24hUSD {
			return step[i].Volume24hUSD > step[j].Volume24hUSD
		}
		if step[i].LiquidityUSD != step[j].LiquidityUSD {
			return step[i].LiquidityUSD > step[j].LiquidityUSD
		}
		return step[i].MarketCapUSD > step[j].MarketCapUSD
	})
	return step[0], true
}

func filterCandidates(cands []Candidate, keep func(Candidate) bool) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// cluster aggregates every candidate sharing one canonical address.
type cluster struct {
	address        string
	count          int
	totalVolume    float64
	totalLiquidity float64
	bestVenueScore int
	bestQuotePref  int
	members        []Candidate
}

// clusterByAddress groups candidates by canonical address, preserving
// first-seen order so later tie-breaks stay deterministic.
func clusterByAddress(cands []Candidate) []cluster {
	index := map[string]int{}
	var clusters []cluster
	for _, c := range cands {
		i, ok := index[c.Address]
		if !ok {
			i = len(clusters)
			index[c.Address] = i
			clusters = append(clusters, cluster{address: c.Address})
		}
		cl := &clusters[i]
		cl.count++
		cl.totalVolume += c.Volume24hUSD
		cl.totalLiquidity += c.LiquidityUSD
		if c.VenueScore > cl.bestVenueScore {
			cl.bestVenueScore = c.VenueScore
		}
		if c.QuotePref > cl.bestQuotePref {
			cl.bestQuotePref = c.QuotePref
		}
		cl.members = append(cl.members, c)
	}
	return clusters
}

// bestCluster rewards consensus: the address that more independent query
// variants agreed on beats a single high-volume outlier pool.
func bestCluster(clusters []cluster) (cluster, bool) {
	if len(clusters) == 0 {
		return cluster{}, false
	}
	best := clusters[0]
	for _, cl := range clusters[1:] {
		if clusterLess(best, cl) {
			best = cl
		}
	}
	return best, true
}

// clusterLess reports whether b strictly beats a, comparing count, total
// volume, total liquidity, best venue rank, best quote preference in order.
func clusterLess(a, b cluster) bool {
	if a.count != b.count {
		return a.count < b.count
	}
	if a.totalVolume != b.totalVolume {
		return a.totalVolume < b.totalVolume
	}
	if a.totalLiquidity != b.totalLiquidity {
		return a.totalLiquidity < b.totalLiquidity
	}
	if a.bestVenueScore != b.bestVenueScore {
		return a.bestVenueScore < b.bestVenueScore
	}
	return a.bestQuotePref < b.bestQuotePref
}

// acceptable is the minimum-quality guard: a winner needs real volume or
// real liquidity, otherwise the query falls back to unresolved.
func acceptable(c Candidate, cfg *config.Config) bool {
	return c.Volume24hUSD >= cfg.MinVolume24hUSD || c.LiquidityUSD >= cfg.MinLiquidityUSD
}

// selectWinner runs the full selection pipeline over merged candidates:
// composite ordering, address clustering, per-cluster cascading filter,
// then the acceptance guard.
func selectWinner(cands []Candidate, cfg *config.Config) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	sortByComposite(cands)
	cl, ok := bestCluster(clusterByAddress(cands))
	if !ok {
		return Candidate{}, false
	}
	winner, ok := pickBestForTicker(cl.members)
	if !ok || !acceptable(winner, cfg) {
		return Candidate{}, false
	}
	return winner, true
}

// Per-mode confidence floors. Address lookups are inherently more certain
// than ticker lookups, which beat free-text name matching.
const (
	confBaseAddress = 98
	confBaseTicker  = 95
	confBaseName    = 88

	confFallbackAddress = 96
	confFallbackTicker  = 95
	confFallbackName    = 85
)

func confidenceFor(mode Mode, winner Candidate) int {
	var conf int
	switch mode {
	case ModeAddress:
		conf = confBaseAddress
	case ModeName:
		conf = confBaseName
	default:
		conf = confBaseTicker
	}
	if winner.VenueScore > 0 {
		conf += 2
	}
	if winner.TrendingBoost > 0 {
		conf++
	}
	if conf > 100 {
		conf = 100
	}
	return conf
}

func fallbackConfidence(mode Mode) int {
	switch mode {
	case ModeAddress:
		return confFallbackAddress
	case ModeName:
		return confFallbackName
	default:
		return confFallbackTicker
	}
}
