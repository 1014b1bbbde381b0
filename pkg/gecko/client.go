package gecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mintscout/pkg/config"
)

// Client talks to the DEX pool-search API. Every public method is
// best-effort: transport failures, non-2xx statuses and malformed bodies
// all come back as an empty document, never as an error. Callers treat
// empty as "no candidates".
type Client struct {
	cfg     *config.Config
	client  *http.Client
	limiter *rate.Limiter
}

func New(cfg *config.Config) *Client {
	burst := int(cfg.SearchRateLimitRPS)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.SearchRateLimitRPS), burst),
	}
}

// SearchPools runs the generic pool search for one query on one network.
func (c *Client) SearchPools(ctx context.Context, query, network string) PoolDocument {
	u := fmt.Sprintf("%s/search/pools?query=%s&network=%s&include=base_token,quote_token,dex&page=1",
		c.cfg.GeckoBaseURL, url.QueryEscape(query), url.QueryEscape(network))

	var doc PoolDocument
	if err := c.getJSON(ctx, u, &doc); err != nil {
		log.Debug().Err(err).Str("query", query).Str("network", network).Msg("pool search failed")
		return PoolDocument{}
	}
	return doc
}

// SearchTokens runs the token search, the recovery path for tokens whose
// pools the generic search does not index.
func (c *Client) SearchTokens(ctx context.Context, query, network string) TokenDocument {
	u := fmt.Sprintf("%s/search/tokens?query=%s&network=%s&page=1",
		c.cfg.GeckoBaseURL, url.QueryEscape(query), url.QueryEscape(network))

	var doc TokenDocument
	if err := c.getJSON(ctx, u, &doc); err != nil {
		log.Debug().Err(err).Str("query", query).Str("network", network).Msg("token search failed")
		return TokenDocument{}
	}
	return doc
}

// PoolsForToken lists the pools of one known token address.
func (c *Client) PoolsForToken(ctx context.Context, network, address string) PoolDocument {
	u := fmt.Sprintf("%s/networks/%s/tokens/%s/pools?include=base_token,quote_token,dex&page=1",
		c.cfg.GeckoBaseURL, url.QueryEscape(network), url.QueryEscape(address))

	var doc PoolDocument
	if err := c.getJSON(ctx, u, &doc); err != nil {
		log.Debug().Err(err).Str("address", address).Str("network", network).Msg("token pools fetch failed")
		return PoolDocument{}
	}
	return doc
}

// SimpleTokenPrice fetches the current USD price for one token address.
// Unlike the search methods this one returns its error: the price
// collaborator wraps it with retries.
func (c *Client) SimpleTokenPrice(ctx context.Context, network, address string) (float64, error) {
	u := fmt.Sprintf("%s/simple/networks/%s/token_price/%s",
		c.cfg.GeckoBaseURL, url.QueryEscape(network), url.QueryEscape(address))

	var out struct {
		Data struct {
			Attributes struct {
				TokenPrices map[string]FlexFloat `json:"token_prices"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return 0, err
	}
	for _, p := range out.Data.Attributes.TokenPrices {
		if p > 0 {
			return float64(p), nil
		}
	}
	return 0, fmt.Errorf("no price for %s on %s", address, network)
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // 10MB max
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
