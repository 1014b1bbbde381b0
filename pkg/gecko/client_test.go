package gecko

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintscout/pkg/config"
)

func testCfg(baseURL string) *config.Config {
	return &config.Config{
		GeckoBaseURL:       baseURL,
		HTTPTimeout:        2 * time.Second,
		SearchRateLimitRPS: 100,
	}
}

const bonkSearchBody = `{
  "data": [{
    "id": "solana_8sLbNZoA1cfnvMJLPfp98ZLAnFSYCFApfJKMbiXNLwxj",
    "type": "pool",
    "attributes": {
      "name": "BONK / SOL",
      "address": "8sLbNZoA1cfnvMJLPfp98ZLAnFSYCFApfJKMbiXNLwxj",
      "base_token_price_usd": "0.0000234",
      "reserve_in_usd": "20000.55",
      "market_cap_usd": null,
      "fdv_usd": 1234567,
      "volume_usd": {"h24": "50000"}
    },
    "relationships": {
      "base_token": {"data": {"id": "solana_DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", "type": "token"}},
      "quote_token": {"data": {"id": "solana_So11111111111111111111111111111111111111112", "type": "token"}},
      "dex": {"data": {"id": "raydium", "type": "dex"}}
    }
  }],
  "included": [
    {"id": "solana_DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", "type": "token",
     "attributes": {"address": "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", "name": "Bonk", "symbol": "BONK"}},
    {"id": "solana_So11111111111111111111111111111111111111112", "type": "token",
     "attributes": {"address": "So11111111111111111111111111111111111111112", "name": "Wrapped SOL", "symbol": "SOL"}},
    {"id": "raydium", "type": "dex", "attributes": {"name": "Raydium"}}
  ]
}`

func TestSearchPools_ParsesDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/pools", r.URL.Path)
		assert.Equal(t, "bonk", r.URL.Query().Get("query"))
		assert.Equal(t, "solana", r.URL.Query().Get("network"))
		w.Write([]byte(bonkSearchBody))
	}))
	defer srv.Close()

	doc := New(testCfg(srv.URL)).SearchPools(context.Background(), "bonk", "solana")

	require.Len(t, doc.Data, 1)
	pool := doc.Data[0]
	assert.Equal(t, "BONK / SOL", pool.Attributes.Name)
	assert.Equal(t, 50000.0, float64(pool.Attributes.VolumeUSD.H24))
	assert.Equal(t, 20000.55, float64(pool.Attributes.ReserveInUSD))
	assert.Equal(t, 0.0, float64(pool.Attributes.MarketCapUSD))
	assert.Equal(t, 1234567.0, float64(pool.Attributes.FDVUSD))

	tokens := doc.TokenTable()
	base := tokens[pool.Relationships.BaseToken.Data.ID]
	assert.Equal(t, "BONK", base.Symbol)
	assert.Equal(t, "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", base.Address)

	dexes := doc.DexTable()
	assert.Equal(t, "Raydium", dexes["raydium"])
}

func TestSearchPools_Non200ReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	doc := New(testCfg(srv.URL)).SearchPools(context.Background(), "bonk", "solana")
	assert.True(t, doc.Empty())
}

func TestSearchPools_MalformedBodyReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	doc := New(testCfg(srv.URL)).SearchPools(context.Background(), "bonk", "solana")
	assert.True(t, doc.Empty())
}

func TestSearchPools_TransportErrorReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	doc := New(testCfg(srv.URL)).SearchPools(context.Background(), "bonk", "solana")
	assert.True(t, doc.Empty())
}

func TestSearchTokens_Parses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/tokens", r.URL.Path)
		w.Write([]byte(`{"data": [{"id": "solana_abc", "type": "token",
			"attributes": {"address": "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", "name": "Bonk", "symbol": "BONK"}}]}`))
	}))
	defer srv.Close()

	doc := New(testCfg(srv.URL)).SearchTokens(context.Background(), "bonk", "solana")
	require.Len(t, doc.Data, 1)
	assert.Equal(t, "BONK", doc.Data[0].Attributes.Symbol)
}

func TestPoolsForToken_UsesTokenPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/networks/solana/tokens/DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263/pools", r.URL.Path)
		w.Write([]byte(bonkSearchBody))
	}))
	defer srv.Close()

	doc := New(testCfg(srv.URL)).PoolsForToken(context.Background(), "solana", "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
	assert.False(t, doc.Empty())
}

func TestSimpleTokenPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"attributes": {"token_prices": {"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": "0.0000234"}}}}`))
	}))
	defer srv.Close()

	price, err := New(testCfg(srv.URL)).SimpleTokenPrice(context.Background(), "solana", "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
	require.NoError(t, err)
	assert.Equal(t, 0.0000234, price)
}

func TestSimpleTokenPrice_ErrorOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(testCfg(srv.URL)).SimpleTokenPrice(context.Background(), "solana", "missing")
	assert.Error(t, err)
}

func TestFlexFloat_Forms(t *testing.T) {
	var out struct {
		A FlexFloat `json:"a"`
		B FlexFloat `json:"b"`
		C FlexFloat `json:"c"`
		D FlexFloat `json:"d"`
		E FlexFloat `json:"e"`
	}
	body := `{"a": "123.5", "b": 42, "c": null, "d": "", "e": "n/a"}`
	require.NoError(t, json.Unmarshal([]byte(body), &out))

	assert.Equal(t, 123.5, float64(out.A))
	assert.Equal(t, 42.0, float64(out.B))
	assert.Equal(t, 0.0, float64(out.C))
	assert.Equal(t, 0.0, float64(out.D))
	assert.Equal(t, 0.0, float64(out.E))
}
