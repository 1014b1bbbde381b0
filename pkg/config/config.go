package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Chain string

const (
	ChainSolana   Chain = "solana"
	ChainEthereum Chain = "ethereum"
	ChainBase     Chain = "base"
	ChainBSC      Chain = "bsc"
)

func AllChains() []Chain {
	return []Chain{ChainSolana, ChainEthereum, ChainBase, ChainBSC}
}

// GeckoNetworkID maps a chain to the network id the pool-search API uses.
func GeckoNetworkID(c Chain) string {
	switch c {
	case ChainSolana:
		return "solana"
	case ChainEthereum:
		return "eth"
	case ChainBase:
		return "base"
	case ChainBSC:
		return "bsc"
	default:
		return string(c)
	}
}

// ChainForNetworkID is the inverse of GeckoNetworkID.
func ChainForNetworkID(id string) Chain {
	switch id {
	case "eth":
		return ChainEthereum
	default:
		return Chain(id)
	}
}

// KOLFeed is one tracked account and the RSS feed it is read from.
// URL may be empty, in which case feed mirrors are tried per handle.
type KOLFeed struct {
	Handle string
	URL    string
}

type Config struct {
	// Pool-search API
	GeckoBaseURL       string
	HTTPTimeout        time.Duration
	SearchRateLimitRPS float64

	// Resolution
	Networks           []Chain
	MinVolume24hUSD    float64
	MinLiquidityUSD    float64
	VenuePriorities    map[string]int
	NativeQuotes       map[Chain][]string
	StableQuotes       []string
	Aliases            map[string]string // bidirectional, lowercased
	ResolveConcurrency int

	// Feeds
	KOLFeeds         []KOLFeed
	FeedMirrors      []string
	FeedPollInterval time.Duration

	// Watch loop
	ResolvePollInterval time.Duration
	ResolveBatchSize    int

	// Price snapshots
	PriceSnapshotCron string
	PriceRetryMax     int

	// DB
	DBPath string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		GeckoBaseURL:       envOr("GECKO_BASE_URL", "https://api.geckoterminal.com/api/v2"),
		HTTPTimeout:        time.Duration(envInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		SearchRateLimitRPS: envFloat("SEARCH_RATE_LIMIT_RPS", 2.0),

		MinVolume24hUSD:    envFloat("MIN_VOLUME_24H", 1000),
		MinLiquidityUSD:    envFloat("MIN_LIQUIDITY", 5000),
		ResolveConcurrency: envInt("RESOLVE_CONCURRENCY", 4),

		StableQuotes: splitTrim(envOr("STABLE_QUOTES", "USDC,USDT")),

		FeedPollInterval:    time.Duration(envInt("FEED_POLL_SECONDS", 60)) * time.Second,
		ResolvePollInterval: time.Duration(envInt("RESOLVE_POLL_SECONDS", 30)) * time.Second,
		ResolveBatchSize:    envInt("RESOLVE_BATCH_SIZE", 20),

		PriceSnapshotCron: envOr("PRICE_SNAPSHOT_CRON", "*/10 * * * *"),
		PriceRetryMax:     envInt("PRICE_RETRY_MAX", 3),

		DBPath: envOr("DB_PATH", "mintscout.db"),
	}

	// Target networks
	for _, n := range splitTrim(envOr("NETWORKS", "solana")) {
		cfg.Networks = append(cfg.Networks, Chain(strings.ToLower(n)))
	}

	// Venue allow-list: "raydium:3,orca:2,meteora:1". Venue names are
	// disjoint across chains, so one map covers all target networks.
	cfg.VenuePriorities = map[string]int{
		"raydium": 3, "orca": 2, "meteora": 1,
		"uniswap": 3, "pancakeswap": 2, "sushiswap": 1,
	}
	if v := os.Getenv("VENUE_PRIORITIES"); v != "" {
		cfg.VenuePriorities = map[string]int{}
		for _, pair := range splitTrim(v) {
			parts := strings.SplitN(pair, ":", 2)
			if len(parts) != 2 {
				continue
			}
			if p, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
				cfg.VenuePriorities[strings.ToLower(strings.TrimSpace(parts[0]))] = p
			}
		}
	}

	// Accepted native quote assets per chain
	cfg.NativeQuotes = map[Chain][]string{
		ChainSolana:   splitTrim(envOr("NATIVE_QUOTES_SOLANA", "SOL,WSOL")),
		ChainEthereum: splitTrim(envOr("NATIVE_QUOTES_ETHEREUM", "ETH,WETH")),
		ChainBase:     splitTrim(envOr("NATIVE_QUOTES_BASE", "ETH,WETH")),
		ChainBSC:      splitTrim(envOr("NATIVE_QUOTES_BSC", "BNB,WBNB")),
	}

	// Ticker aliases, stored in both directions: "wif=dogwifhat"
	cfg.Aliases = map[string]string{"wif": "dogwifhat", "dogwifhat": "wif"}
	if v := os.Getenv("TOKEN_ALIASES"); v != "" {
		cfg.Aliases = map[string]string{}
		for _, pair := range splitTrim(v) {
			parts := strings.SplitN(pair, "=", 2)
			if len(parts) != 2 {
				continue
			}
			a := strings.ToLower(strings.TrimSpace(parts[0]))
			b := strings.ToLower(strings.TrimSpace(parts[1]))
			if a == "" || b == "" {
				continue
			}
			cfg.Aliases[a] = b
			cfg.Aliases[b] = a
		}
	}

	// Tracked feeds: "handle=https://.../rss" or bare "handle"
	for _, f := range splitTrim(os.Getenv("KOL_FEEDS")) {
		parts := strings.SplitN(f, "=", 2)
		kf := KOLFeed{Handle: strings.TrimSpace(parts[0])}
		if len(parts) == 2 {
			kf.URL = strings.TrimSpace(parts[1])
		}
		if kf.Handle != "" {
			cfg.KOLFeeds = append(cfg.KOLFeeds, kf)
		}
	}

	if v := os.Getenv("FEED_MIRRORS"); v != "" {
		cfg.FeedMirrors = splitTrim(v)
	} else {
		cfg.FeedMirrors = []string{
			"https://nitter.privacydev.net",
		}
	}

	return cfg, nil
}

// VenuePriority resolves a venue name to its allow-list rank. Unknown venues
// rank 0. Compound venue ids ("raydium-clmm") inherit the base venue's rank.
func (c *Config) VenuePriority(venue string) int {
	v := strings.ToLower(strings.TrimSpace(venue))
	if v == "" {
		return 0
	}
	if p, ok := c.VenuePriorities[v]; ok {
		return p
	}
	best := 0
	for key, p := range c.VenuePriorities {
		if strings.HasPrefix(v, key) && p > best {
			best = p
		}
	}
	return best
}

// QuotePreference ranks a pool's quote asset: 2 native, 1 stablecoin, 0 else.
// Pools quoted in anything ranked 0 are not accepted as resolution evidence.
func (c *Config) QuotePreference(chain Chain, symbol string) int {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return 0
	}
	for _, q := range c.NativeQuotes[chain] {
		if strings.EqualFold(q, s) {
			return 2
		}
	}
	for _, q := range c.StableQuotes {
		if strings.EqualFold(q, s) {
			return 1
		}
	}
	return 0
}

// Alias returns the configured counterpart symbol, or "" when none exists.
func (c *Config) Alias(symbol string) string {
	return c.Aliases[strings.ToLower(strings.TrimSpace(symbol))]
}

func (c *Config) ExplorerTokenURL(chain Chain, address string) string {
	switch chain {
	case ChainSolana:
		return "https://solscan.io/token/" + address
	case ChainEthereum:
		return "https://etherscan.io/token/" + address
	case ChainBase:
		return "https://basescan.org/token/" + address
	case ChainBSC:
		return "https://bscscan.com/token/" + address
	default:
		return ""
	}
}

func (c *Config) Validate() error {
	if len(c.Networks) == 0 {
		return fmt.Errorf("no target networks configured (NETWORKS)")
	}
	known := map[Chain]bool{}
	for _, ch := range AllChains() {
		known[ch] = true
	}
	for _, n := range c.Networks {
		if !known[n] {
			return fmt.Errorf("unknown network %q (supported: solana, ethereum, base, bsc)", n)
		}
	}
	if c.MinVolume24hUSD < 0 || c.MinLiquidityUSD < 0 {
		return fmt.Errorf("liquidity thresholds must be >= 0")
	}
	if c.ResolveConcurrency < 1 {
		return fmt.Errorf("RESOLVE_CONCURRENCY must be >= 1")
	}
	if len(c.VenuePriorities) == 0 {
		return fmt.Errorf("venue allow-list is empty (VENUE_PRIORITIES)")
	}
	return nil
}

// helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
