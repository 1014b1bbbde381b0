package gecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrending_FirstShapeWins(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(bonkSearchBody))
	}))
	defer srv.Close()

	set := New(testCfg(srv.URL)).Trending(context.Background(), "solana")

	assert.Equal(t, []string{"/networks/solana/trending_pools"}, paths)
	assert.Equal(t, 1, set.Size())
	assert.True(t, set.HasAddress("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"))
	assert.True(t, set.HasSymbol("bonk"))
	assert.True(t, set.HasSymbol("BONK"))
}

func TestTrending_FallsThroughShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/networks/solana/trending_pools":
			http.Error(w, "gone", http.StatusNotFound)
		case "/networks/trending_pools":
			w.Write([]byte(`{"data": [], "included": []}`)) // 200 but empty, keep trying
		default:
			w.Write([]byte(bonkSearchBody))
		}
	}))
	defer srv.Close()

	set := New(testCfg(srv.URL)).Trending(context.Background(), "solana")
	assert.Equal(t, 1, set.Size())
}

func TestTrending_AllShapesFailReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	set := New(testCfg(srv.URL)).Trending(context.Background(), "solana")
	assert.Equal(t, 0, set.Size())
	assert.False(t, set.HasAddress("anything"))
	assert.False(t, set.HasSymbol("anything"))
}

func TestNewTrendingSet_SkipsEmpty(t *testing.T) {
	set := NewTrendingSet([]string{"abc", ""}, []string{"", "WIF"})
	assert.Equal(t, 1, set.Size())
	assert.True(t, set.HasSymbol("wif"))
}

func TestCanonicalForNetwork(t *testing.T) {
	mixed := "0xAbCdEf1234567890aBcDeF1234567890AbCdEf12"
	assert.Equal(t, strings.ToLower(mixed), CanonicalForNetwork(mixed, "eth"))
	assert.Equal(t, strings.ToLower(mixed), CanonicalForNetwork(mixed, "base"))

	mint := "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	assert.Equal(t, mint, CanonicalForNetwork(mint, "solana"))
}
