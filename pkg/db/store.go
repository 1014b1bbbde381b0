package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mintscout/pkg/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS kols (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    handle TEXT NOT NULL,
    feed_url TEXT DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(handle)
);

CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kol_id INTEGER REFERENCES kols(id),
    source TEXT NOT NULL,
    external_id TEXT NOT NULL,
    content TEXT NOT NULL,
    posted_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(source, external_id)
);

CREATE TABLE IF NOT EXISTS token_mentions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kol_id INTEGER REFERENCES kols(id),
    post_id INTEGER REFERENCES posts(id),
    raw_text TEXT NOT NULL,
    mode TEXT NOT NULL,
    mentioned_at TIMESTAMP,
    token_key TEXT DEFAULT '',
    token_display TEXT DEFAULT '',
    confidence INTEGER DEFAULT 0,
    chain TEXT DEFAULT '',
    resolved_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS resolved_tokens (
    token_key TEXT NOT NULL,
    chain TEXT NOT NULL,
    symbol TEXT DEFAULT '',
    name TEXT DEFAULT '',
    last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY(token_key, chain)
);

CREATE TABLE IF NOT EXISTS price_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    token_key TEXT NOT NULL,
    chain TEXT NOT NULL,
    price_usd REAL NOT NULL,
    captured_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_post_kol ON posts(kol_id);
CREATE INDEX IF NOT EXISTS idx_mention_token ON token_mentions(token_key);
CREATE INDEX IF NOT EXISTS idx_mention_time ON token_mentions(mentioned_at);
CREATE INDEX IF NOT EXISTS idx_mention_unresolved ON token_mentions(resolved_at) WHERE resolved_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_snapshot_token ON price_snapshots(token_key, chain, captured_at);
`

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ---- KOLs ----

// UpsertKOL registers a tracked handle, updating the feed URL when a
// non-empty one arrives. Returns the row id in both cases.
func (s *Store) UpsertKOL(handle, feedURL string) (int64, error) {
	_, err := s.db.Exec(`
		INSERT INTO kols (handle, feed_url)
		VALUES (?, ?)
		ON CONFLICT(handle) DO UPDATE SET
			feed_url = CASE WHEN excluded.feed_url != '' THEN excluded.feed_url ELSE kols.feed_url END`,
		handle, feedURL)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := s.db.QueryRow("SELECT id FROM kols WHERE handle=?", handle).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) GetKOLs() ([]KOL, error) {
	rows, err := s.db.Query("SELECT id, handle, COALESCE(feed_url,''), created_at FROM kols ORDER BY handle")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kols []KOL
	for rows.Next() {
		var k KOL
		if err := rows.Scan(&k.ID, &k.Handle, &k.FeedURL, &k.CreatedAt); err != nil {
			continue
		}
		kols = append(kols, k)
	}
	return kols, nil
}

// ---- Posts ----

// InsertPost stores one post, deduplicated on (source, external_id).
// Returns 0 for an already-seen post.
func (s *Store) InsertPost(kolID int64, source, externalID, content string, postedAt time.Time) (int64, error) {
	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO posts (kol_id, source, external_id, content, posted_at)
		VALUES (?, ?, ?, ?, ?)`,
		kolID, source, externalID, content, postedAt)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetPostsForKOL(kolID int64, limit int) ([]Post, error) {
	rows, err := s.db.Query(`
		SELECT id, kol_id, source, external_id, content, posted_at, created_at
		FROM posts WHERE kol_id=? ORDER BY posted_at DESC LIMIT ?`, kolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.KOLID, &p.Source, &p.ExternalID, &p.Content, &p.PostedAt, &p.CreatedAt); err != nil {
			continue
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// ---- Token Mentions ----

func (s *Store) InsertMention(m Mention) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO token_mentions (kol_id, post_id, raw_text, mode, mentioned_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.KOLID, m.PostID, m.RawText, m.Mode, m.MentionedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UnresolvedMentions returns the oldest mentions the resolver has not
// stamped yet.
func (s *Store) UnresolvedMentions(limit int) ([]Mention, error) {
	rows, err := s.db.Query(`
		SELECT id, kol_id, post_id, raw_text, mode, mentioned_at
		FROM token_mentions WHERE resolved_at IS NULL
		ORDER BY mentioned_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mentions []Mention
	for rows.Next() {
		var m Mention
		if err := rows.Scan(&m.ID, &m.KOLID, &m.PostID, &m.RawText, &m.Mode, &m.MentionedAt); err != nil {
			continue
		}
		mentions = append(mentions, m)
	}
	return mentions, nil
}

// MarkMentionResolved stamps one mention with its resolved identity.
func (s *Store) MarkMentionResolved(id int64, tokenKey, tokenDisplay string, confidence int, chain config.Chain) error {
	_, err := s.db.Exec(`
		UPDATE token_mentions
		SET token_key=?, token_display=?, confidence=?, chain=?, resolved_at=CURRENT_TIMESTAMP
		WHERE id=?`,
		tokenKey, tokenDisplay, confidence, string(chain), id)
	return err
}

func (s *Store) GetRecentMentions(hours, limit int) ([]Mention, error) {
	rows, err := s.db.Query(`
		SELECT id, kol_id, post_id, raw_text, mode, mentioned_at,
		       COALESCE(token_key,''), COALESCE(token_display,''), confidence, COALESCE(chain,''), resolved_at
		FROM token_mentions WHERE mentioned_at > datetime('now', ?)
		ORDER BY mentioned_at DESC LIMIT ?`, fmt.Sprintf("-%d hours", hours), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mentions []Mention
	for rows.Next() {
		var m Mention
		var chain string
		var resolvedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.KOLID, &m.PostID, &m.RawText, &m.Mode, &m.MentionedAt,
			&m.TokenKey, &m.TokenDisplay, &m.Confidence, &chain, &resolvedAt); err != nil {
			continue
		}
		m.Chain = config.Chain(chain)
		if resolvedAt.Valid {
			t := resolvedAt.Time
			m.ResolvedAt = &t
		}
		mentions = append(mentions, m)
	}
	return mentions, nil
}

// MentionsForToken lists every stamped mention of one token, oldest first,
// the input for ROI-since-mention math.
func (s *Store) MentionsForToken(tokenKey string, chain config.Chain) ([]Mention, error) {
	rows, err := s.db.Query(`
		SELECT id, kol_id, post_id, raw_text, mode, mentioned_at,
		       token_key, token_display, confidence, chain, resolved_at
		FROM token_mentions WHERE token_key=? AND chain=? AND resolved_at IS NOT NULL
		ORDER BY mentioned_at ASC`, tokenKey, string(chain))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mentions []Mention
	for rows.Next() {
		var m Mention
		var ch string
		var resolvedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.KOLID, &m.PostID, &m.RawText, &m.Mode, &m.MentionedAt,
			&m.TokenKey, &m.TokenDisplay, &m.Confidence, &ch, &resolvedAt); err != nil {
			continue
		}
		m.Chain = config.Chain(ch)
		if resolvedAt.Valid {
			t := resolvedAt.Time
			m.ResolvedAt = &t
		}
		mentions = append(mentions, m)
	}
	return mentions, nil
}

// ---- Resolved Tokens ----

func (s *Store) UpsertResolvedToken(tokenKey string, chain config.Chain, symbol, name string) error {
	_, err := s.db.Exec(`
		INSERT INTO resolved_tokens (token_key, chain, symbol, name, last_seen)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(token_key, chain) DO UPDATE SET
			symbol = CASE WHEN excluded.symbol != '' THEN excluded.symbol ELSE resolved_tokens.symbol END,
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE resolved_tokens.name END,
			last_seen = CURRENT_TIMESTAMP`,
		tokenKey, string(chain), symbol, name)
	return err
}

func (s *Store) GetResolvedTokens() ([]ResolvedToken, error) {
	rows, err := s.db.Query(`
		SELECT token_key, chain, COALESCE(symbol,''), COALESCE(name,''), last_seen
		FROM resolved_tokens ORDER BY last_seen DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []ResolvedToken
	for rows.Next() {
		var t ResolvedToken
		var chain string
		if err := rows.Scan(&t.TokenKey, &chain, &t.Symbol, &t.Name, &t.LastSeen); err != nil {
			continue
		}
		t.Chain = config.Chain(chain)
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// ---- Price Snapshots ----

func (s *Store) InsertSnapshot(tokenKey string, chain config.Chain, priceUSD float64) error {
	_, err := s.db.Exec(
		"INSERT INTO price_snapshots (token_key, chain, price_usd) VALUES (?, ?, ?)",
		tokenKey, string(chain), priceUSD)
	return err
}

// SnapshotTargets lists the distinct tokens mentioned within the window,
// the working set for the price job.
func (s *Store) SnapshotTargets(hours int) ([]SnapshotTarget, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT token_key, chain FROM token_mentions
		WHERE resolved_at IS NOT NULL AND chain != '' AND mentioned_at > datetime('now', ?)`,
		fmt.Sprintf("-%d hours", hours))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []SnapshotTarget
	for rows.Next() {
		var t SnapshotTarget
		var chain string
		if err := rows.Scan(&t.TokenKey, &chain); err != nil {
			continue
		}
		t.Chain = config.Chain(chain)
		targets = append(targets, t)
	}
	return targets, nil
}

// FirstSnapshotSince returns the earliest snapshot at or after the given
// time, the price baseline for a mention.
func (s *Store) FirstSnapshotSince(tokenKey string, chain config.Chain, since time.Time) (*PriceSnapshot, error) {
	var p PriceSnapshot
	var ch string
	err := s.db.QueryRow(`
		SELECT id, token_key, chain, price_usd, captured_at
		FROM price_snapshots WHERE token_key=? AND chain=? AND captured_at >= ?
		ORDER BY captured_at ASC, id ASC LIMIT 1`,
		tokenKey, string(chain), since).Scan(&p.ID, &p.TokenKey, &ch, &p.PriceUSD, &p.CapturedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Chain = config.Chain(ch)
	return &p, nil
}

func (s *Store) LatestSnapshot(tokenKey string, chain config.Chain) (*PriceSnapshot, error) {
	var p PriceSnapshot
	var ch string
	err := s.db.QueryRow(`
		SELECT id, token_key, chain, price_usd, captured_at
		FROM price_snapshots WHERE token_key=? AND chain=?
		ORDER BY captured_at DESC, id DESC LIMIT 1`,
		tokenKey, string(chain)).Scan(&p.ID, &p.TokenKey, &ch, &p.PriceUSD, &p.CapturedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Chain = config.Chain(ch)
	return &p, nil
}

// ---- Stats ----

func (s *Store) GetStats() (map[string]int64, error) {
	stats := map[string]int64{}
	tables := []string{"kols", "posts", "token_mentions", "resolved_tokens", "price_snapshots"}

	for _, t := range tables {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err == nil {
			stats[t] = count
		}
	}

	var unresolved int64
	s.db.QueryRow("SELECT COUNT(*) FROM token_mentions WHERE resolved_at IS NULL").Scan(&unresolved)
	stats["unresolved_mentions"] = unresolved

	return stats, nil
}
