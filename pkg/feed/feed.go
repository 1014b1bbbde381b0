package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mintscout/pkg/config"
	"github.com/mintscout/pkg/db"
	"github.com/mintscout/pkg/extractor"
	"github.com/mintscout/pkg/resolver"
)

// Item is one parsed feed entry.
type Item struct {
	ID       string
	Text     string
	PostedAt time.Time
}

// Poller ingests RSS feeds for the tracked accounts and records every
// token mention it finds. Posts already ingested are skipped through the
// (source, external_id) unique index, so restarts never double-count.
type Poller struct {
	cfg    *config.Config
	store  *db.Store
	client *http.Client
}

func NewPoller(cfg *config.Config, store *db.Store) *Poller {
	return &Poller{cfg: cfg, store: store, client: &http.Client{Timeout: 30 * time.Second}}
}

// Run polls every configured feed until the context ends.
func (p *Poller) Run(ctx context.Context) error {
	log.Info().Int("feeds", len(p.cfg.KOLFeeds)).Dur("interval", p.cfg.FeedPollInterval).Msg("starting feed poller")

	ticker := time.NewTicker(p.cfg.FeedPollInterval)
	defer ticker.Stop()

	// Initial fetch
	p.PollAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.PollAll(ctx)
		}
	}
}

// PollAll fetches every feed once and returns the number of new mentions
// recorded.
func (p *Poller) PollAll(ctx context.Context) int {
	total := 0
	for _, kf := range p.cfg.KOLFeeds {
		if ctx.Err() != nil {
			return total
		}

		kolID, err := p.store.UpsertKOL(kf.Handle, kf.URL)
		if err != nil {
			log.Error().Err(err).Str("handle", kf.Handle).Msg("kol upsert failed")
			continue
		}

		items, err := p.fetchFeed(ctx, kf)
		if err != nil {
			log.Warn().Err(err).Str("handle", kf.Handle).Msg("feed fetch failed")
			continue
		}

		for _, item := range items {
			total += p.processItem(kolID, kf.Handle, item)
		}
	}
	return total
}

// fetchFeed tries the account's own feed URL, or each configured mirror in
// order. First source that yields items wins.
func (p *Poller) fetchFeed(ctx context.Context, kf config.KOLFeed) ([]Item, error) {
	for _, u := range p.feedURLs(kf) {
		items, err := p.fetchRSS(ctx, u)
		if err != nil {
			log.Debug().Err(err).Str("url", u).Msg("feed source failed")
			continue
		}
		if len(items) > 0 {
			return items, nil
		}
	}
	return nil, fmt.Errorf("all feed sources failed for @%s", kf.Handle)
}

func (p *Poller) feedURLs(kf config.KOLFeed) []string {
	if kf.URL != "" {
		return []string{kf.URL}
	}
	urls := make([]string, 0, len(p.cfg.FeedMirrors))
	for _, m := range p.cfg.FeedMirrors {
		urls = append(urls, fmt.Sprintf("%s/%s/rss", strings.TrimRight(m, "/"), kf.Handle))
	}
	return urls
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

func (p *Poller) fetchRSS(ctx context.Context, url string) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // 10MB max
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}

	var items []Item
	for _, it := range feed.Channel.Items {
		item := parseItem(it)
		if item.ID != "" && item.Text != "" {
			items = append(items, item)
		}
	}
	return items, nil
}

// parseItem cleans one RSS entry: strip markup from the description, fall
// back to the title, and take the last link path segment as the item id.
func parseItem(it rssItem) Item {
	text := htmlTagRe.ReplaceAllString(it.Description, " ")
	text = strings.TrimSpace(html.UnescapeString(text))
	if text == "" {
		text = strings.TrimSpace(it.Title)
	}

	id := strings.TrimRight(strings.TrimSpace(it.Link), "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	if i := strings.Index(id, "#"); i > 0 {
		id = id[:i]
	}
	if id == "" {
		id = strings.TrimSpace(it.GUID)
	}

	ts, _ := time.Parse(time.RFC1123Z, it.PubDate)
	if ts.IsZero() {
		if t, err := time.Parse(time.RFC1123, it.PubDate); err == nil {
			ts = t
		}
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return Item{ID: id, Text: text, PostedAt: ts}
}

// processItem stores one feed item and the mentions extracted from it.
// Returns the number of mentions recorded; 0 for items seen before.
func (p *Poller) processItem(kolID int64, handle string, item Item) int {
	postID, err := p.store.InsertPost(kolID, "rss", item.ID, item.Text, item.PostedAt)
	if err != nil {
		log.Error().Err(err).Str("handle", handle).Str("post", item.ID).Msg("post insert failed")
		return 0
	}
	if postID == 0 {
		return 0 // already ingested
	}

	ex := extractor.Extract(item.Text)
	if ex.Empty() {
		return 0
	}

	addresses := ex.AddressQueries()
	log.Info().
		Str("handle", handle).
		Str("post", item.ID).
		Strs("tickers", ex.Tickers).
		Int("addresses", len(addresses)).
		Int("names", len(ex.NamePhrases)).
		Msg("📱 post with token mentions")

	count := 0
	for _, t := range ex.Tickers {
		count += p.insertMention(kolID, postID, "$"+t, resolver.ModeTicker, item.PostedAt)
	}
	for _, a := range addresses {
		count += p.insertMention(kolID, postID, a, resolver.ModeAddress, item.PostedAt)
	}
	for _, n := range ex.NamePhrases {
		count += p.insertMention(kolID, postID, n, resolver.ModeName, item.PostedAt)
	}
	return count
}

func (p *Poller) insertMention(kolID, postID int64, raw string, mode resolver.Mode, at time.Time) int {
	_, err := p.store.InsertMention(db.Mention{
		KOLID:       kolID,
		PostID:      postID,
		RawText:     raw,
		Mode:        mode.String(),
		MentionedAt: at,
	})
	if err != nil {
		log.Error().Err(err).Str("raw", raw).Msg("mention insert failed")
		return 0
	}
	return 1
}
