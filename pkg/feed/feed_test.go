package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintscout/pkg/config"
	"github.com/mintscout/pkg/db"
)

const bonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>degen / @degen</title>
<item>
<title>$BONK</title>
<description>$BONK is cooking, CA: ` + bonkMint + `</description>
<link>https://nitter.example/degen/status/1234567890#m</link>
<pubDate>Mon, 25 Aug 2025 10:00:00 +0000</pubDate>
</item>
<item>
<title>gm</title>
<description>gm, no calls today</description>
<link>https://nitter.example/degen/status/1234567891#m</link>
<pubDate>Mon, 25 Aug 2025 11:00:00 +0000</pubDate>
</item>
</channel>
</rss>`

func testStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// ---- Item parsing ----

func TestParseItem_CleansMarkupAndExtractsID(t *testing.T) {
	item := parseItem(rssItem{
		Description: `Huge &amp; real: <b>$BONK</b> pumping`,
		Link:        "https://nitter.example/degen/status/1234567890#m",
		PubDate:     "Mon, 25 Aug 2025 10:00:00 +0000",
	})

	assert.Equal(t, "1234567890", item.ID)
	assert.Contains(t, item.Text, "$BONK")
	assert.Contains(t, item.Text, "Huge & real")
	assert.NotContains(t, item.Text, "<b>")
	assert.True(t, item.PostedAt.Equal(time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC)))
}

func TestParseItem_FallsBackToTitleAndGUID(t *testing.T) {
	item := parseItem(rssItem{Title: "gm frens", GUID: "guid-42"})

	assert.Equal(t, "guid-42", item.ID)
	assert.Equal(t, "gm frens", item.Text)
	assert.False(t, item.PostedAt.IsZero())
}

func TestFeedURLs_DirectURLWinsOverMirrors(t *testing.T) {
	p := NewPoller(&config.Config{FeedMirrors: []string{"https://a.example", "https://b.example/"}}, nil)

	assert.Equal(t, []string{"https://direct.example/feed.xml"},
		p.feedURLs(config.KOLFeed{Handle: "degen", URL: "https://direct.example/feed.xml"}))
	assert.Equal(t, []string{"https://a.example/degen/rss", "https://b.example/degen/rss"},
		p.feedURLs(config.KOLFeed{Handle: "degen"}))
}

// ---- Fetch ----

func TestFetchRSS_ParsesItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	p := NewPoller(&config.Config{}, nil)
	items, err := p.fetchRSS(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1234567890", items[0].ID)
	assert.Equal(t, "1234567891", items[1].ID)
}

func TestFetchRSS_ErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewPoller(&config.Config{}, nil)
	_, err := p.fetchRSS(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetchFeed_FallsThroughDeadMirror(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/degen/rss" {
			w.Write([]byte(sampleRSS))
			return
		}
		http.Error(w, "dead mirror", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewPoller(&config.Config{FeedMirrors: []string{srv.URL + "/dead", srv.URL}}, nil)
	items, err := p.fetchFeed(context.Background(), config.KOLFeed{Handle: "degen"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/dead/degen/rss", "/degen/rss"}, paths)
}

func TestFetchFeed_ErrorWhenAllSourcesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewPoller(&config.Config{FeedMirrors: []string{srv.URL}}, nil)
	_, err := p.fetchFeed(context.Background(), config.KOLFeed{Handle: "degen"})
	assert.Error(t, err)
}

// ---- Poll + persistence ----

func TestPollAll_RecordsMentions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	store := testStore(t)
	cfg := &config.Config{KOLFeeds: []config.KOLFeed{{Handle: "degen", URL: srv.URL}}}

	count := NewPoller(cfg, store).PollAll(context.Background())
	assert.Equal(t, 2, count)

	pending, err := store.UnresolvedMentions(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	byMode := map[string]string{}
	for _, m := range pending {
		byMode[m.Mode] = m.RawText
	}
	assert.Equal(t, "$BONK", byMode["ticker"])
	assert.Equal(t, bonkMint, byMode["address"])
}

func TestPollAll_SkipsAlreadyIngestedItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	store := testStore(t)
	cfg := &config.Config{KOLFeeds: []config.KOLFeed{{Handle: "degen", URL: srv.URL}}}
	p := NewPoller(cfg, store)

	assert.Equal(t, 2, p.PollAll(context.Background()))
	assert.Equal(t, 0, p.PollAll(context.Background()))

	pending, err := store.UnresolvedMentions(10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestPollAll_RegistersKOL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	store := testStore(t)
	cfg := &config.Config{KOLFeeds: []config.KOLFeed{{Handle: "degen", URL: srv.URL}}}
	NewPoller(cfg, store).PollAll(context.Background())

	kols, err := store.GetKOLs()
	require.NoError(t, err)
	require.Len(t, kols, 1)
	assert.Equal(t, "degen", kols[0].Handle)
	assert.Equal(t, srv.URL, kols[0].FeedURL)
}
