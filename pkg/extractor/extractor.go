package extractor

import (
	"regexp"
	"strings"

	"github.com/mintscout/pkg/resolver"
)

var (
	// Address patterns
	solanaAddrRe = regexp.MustCompile(`\b([1-9A-HJ-NP-Za-km-z]{32,44})\b`)
	evmAddrRe    = regexp.MustCompile(`\b(0x[a-fA-F0-9]{40})\b`)
	tickerRe     = regexp.MustCompile(`\$([A-Za-z][A-Za-z0-9]{1,10})\b`)

	// Quoted spans are the only name-phrase surface worth resolving;
	// unquoted prose is far too noisy.
	quotedRe = regexp.MustCompile(`["“]([^"”\n]{3,48})["”]`)

	// DEX/tool link patterns
	dexscreenerRe = regexp.MustCompile(`https?://(?:www\.)?dexscreener\.com/[^\s\)\]]+`)
	birdeyeRe     = regexp.MustCompile(`https?://(?:www\.)?birdeye\.so/[^\s\)\]]+`)
	pumpfunRe     = regexp.MustCompile(`https?://(?:www\.)?pump\.fun/[^\s\)\]]+`)
	photonRe      = regexp.MustCompile(`https?://(?:www\.)?photon-sol\.tinyastro\.io/[^\s\)\]]+`)
	gmgnRe        = regexp.MustCompile(`https?://(?:www\.)?gmgn\.ai/[^\s\)\]]+`)
	bullxRe       = regexp.MustCompile(`https?://(?:www\.)?bullx\.io/[^\s\)\]]+`)
	genericURLRe  = regexp.MustCompile(`https?://[^\s\)\]]+`)

	// Words that pass the base58 shape check but are never addresses
	falsePositives = map[string]bool{
		"SOL": true, "USDC": true, "USDT": true, "BONK": true, "WIF": true,
		"JUP": true, "RAY": true, "ORCA": true, "Twitter": true, "Telegram": true,
		"Discord": true, "https": true, "http": true, "pump": true, "solana": true,
		"ethereum": true, "bitcoin": true, "lamports": true,
	}

	// Noise tickers to skip
	noiseTickers = map[string]bool{
		"USD": true, "EUR": true, "GBP": true, "BTC": true, "ETH": true,
		"NFT": true, "DM": true, "RT": true, "DYOR": true, "NFA": true,
		"IMO": true, "TBH": true, "ATH": true, "ATL": true, "APY": true,
		"TVL": true, "CEO": true, "DEX": true, "CEX": true, "DCA": true,
		"FUD": true, "HODL": true, "FOMO": true, "WAGMI": true,
	}
)

// Extraction is everything resolvable pulled out of one post, split by the
// resolution mode each item feeds.
type Extraction struct {
	Tickers     []string // uppercased, $-stripped, noise-filtered
	Addresses   []string // chain addresses found standalone in the text
	LinkCAs     []string // contract addresses pulled out of DEX links
	NamePhrases []string // quoted spans, raw casing
}

func (e Extraction) Empty() bool {
	return len(e.Tickers) == 0 && len(e.Addresses) == 0 &&
		len(e.LinkCAs) == 0 && len(e.NamePhrases) == 0
}

// AddressQueries merges standalone and link-derived addresses, link CAs
// first since a shared link is the stronger signal.
func (e Extraction) AddressQueries() []string {
	out := make([]string, 0, len(e.LinkCAs)+len(e.Addresses))
	for _, a := range e.LinkCAs {
		out = appendUnique(out, a)
	}
	for _, a := range e.Addresses {
		out = appendUnique(out, a)
	}
	return out
}

// Extract parses post text into ticker, address and name-phrase queries.
func Extract(text string) Extraction {
	var r Extraction

	// 1. Typed DEX links first; they carry contract addresses in the path
	allLinks := concat(
		dexscreenerRe.FindAllString(text, -1),
		birdeyeRe.FindAllString(text, -1),
		pumpfunRe.FindAllString(text, -1),
		photonRe.FindAllString(text, -1),
		gmgnRe.FindAllString(text, -1),
		bullxRe.FindAllString(text, -1),
	)
	for _, link := range allLinks {
		if ca := extractCAFromLink(link); ca != "" {
			r.LinkCAs = appendUnique(r.LinkCAs, ca)
		}
	}

	// Remove links from text before address extraction to avoid false
	// positives from path segments
	cleanText := text
	for _, link := range allLinks {
		cleanText = strings.Replace(cleanText, link, " ", 1)
	}
	for _, u := range genericURLRe.FindAllString(cleanText, -1) {
		cleanText = strings.Replace(cleanText, u, " ", 1)
		if ca := extractCAFromLink(u); ca != "" {
			r.LinkCAs = appendUnique(r.LinkCAs, ca)
		}
	}

	// 2. EVM addresses
	for _, addr := range evmAddrRe.FindAllString(cleanText, -1) {
		r.Addresses = appendUnique(r.Addresses, addr)
	}

	// 3. Solana addresses, filtered aggressively
	for _, addr := range solanaAddrRe.FindAllString(cleanText, -1) {
		if isChainAddress(addr) {
			r.Addresses = appendUnique(r.Addresses, addr)
		}
	}

	// 4. $TICKER mentions
	for _, m := range tickerRe.FindAllStringSubmatch(text, -1) {
		if len(m) > 1 {
			ticker := strings.ToUpper(m[1])
			if !noiseTickers[ticker] {
				r.Tickers = appendUnique(r.Tickers, ticker)
			}
		}
	}

	// 5. Quoted name phrases, from the original text so link removal
	// cannot re-pair the surrounding quotes
	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		if len(m) > 1 {
			if phrase := cleanPhrase(m[1]); phrase != "" {
				r.NamePhrases = appendUnique(r.NamePhrases, phrase)
			}
		}
	}

	return r
}

// isChainAddress runs the real classifier over a shape-matched span, then
// drops well-known words that still decode as base58.
func isChainAddress(addr string) bool {
	if falsePositives[addr] {
		return false
	}
	return resolver.Classify(addr).IsAddress()
}

// cleanPhrase keeps quoted spans that read like a token name: one to five
// words, letters present, no leftover address or ticker noise.
func cleanPhrase(s string) string {
	s = strings.TrimSpace(s)
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > 5 {
		return ""
	}
	if strings.Contains(s, "$") || strings.Contains(s, "http") {
		return ""
	}
	if resolver.Classify(s).IsAddress() {
		return ""
	}
	hasLetter := false
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return ""
	}
	return strings.Join(words, " ")
}

func extractCAFromLink(url string) string {
	url = strings.TrimRight(url, "/")
	// Remove query params and fragments
	if idx := strings.Index(url, "?"); idx > 0 {
		// But check query params for token addresses too
		query := url[idx+1:]
		url = url[:idx]
		for _, param := range strings.Split(query, "&") {
			parts := strings.SplitN(param, "=", 2)
			if len(parts) == 2 && isChainAddress(parts[1]) {
				return parts[1]
			}
		}
	}

	parts := strings.Split(url, "/")
	// Walk backwards to find the first thing that looks like an address
	for i := len(parts) - 1; i >= 0; i-- {
		segment := strings.TrimSpace(parts[i])
		if segment == "" {
			continue
		}
		if isChainAddress(segment) {
			return segment
		}
	}
	return ""
}

func appendUnique(slice []string, val string) []string {
	for _, v := range slice {
		if v == val {
			return slice
		}
	}
	return append(slice, val)
}

func concat(slices ...[]string) []string {
	var result []string
	for _, s := range slices {
		result = append(result, s...)
	}
	return result
}
