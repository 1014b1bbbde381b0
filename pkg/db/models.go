package db

import (
	"time"

	"github.com/mintscout/pkg/config"
)

// ---- Core Models ----

type KOL struct {
	ID        int64     `json:"id"`
	Handle    string    `json:"handle"`
	FeedURL   string    `json:"feed_url"` // empty means mirrors are tried per handle
	CreatedAt time.Time `json:"created_at"`
}

type Post struct {
	ID         int64     `json:"id"`
	KOLID      int64     `json:"kol_id"`
	Source     string    `json:"source"` // "rss","manual"
	ExternalID string    `json:"external_id"`
	Content    string    `json:"content"`
	PostedAt   time.Time `json:"posted_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Mention is one raw token reference pulled out of a post. Identity fields
// stay empty until the resolver stamps them.
type Mention struct {
	ID          int64     `json:"id"`
	KOLID       int64     `json:"kol_id"`
	PostID      int64     `json:"post_id"`
	RawText     string    `json:"raw_text"`
	Mode        string    `json:"mode"` // "ticker","address","name"
	MentionedAt time.Time `json:"mentioned_at"`

	TokenKey     string       `json:"token_key"`
	TokenDisplay string       `json:"token_display"`
	Confidence   int          `json:"confidence"`
	Chain        config.Chain `json:"chain"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`
}

func (m Mention) Resolved() bool {
	return m.ResolvedAt != nil
}

// ResolvedToken is one row of the lookup corpus the find command searches.
type ResolvedToken struct {
	TokenKey string       `json:"token_key"`
	Chain    config.Chain `json:"chain"`
	Symbol   string       `json:"symbol"`
	Name     string       `json:"name"`
	LastSeen time.Time    `json:"last_seen"`
}

type PriceSnapshot struct {
	ID         int64        `json:"id"`
	TokenKey   string       `json:"token_key"`
	Chain      config.Chain `json:"chain"`
	PriceUSD   float64      `json:"price_usd"`
	CapturedAt time.Time    `json:"captured_at"`
}

// SnapshotTarget identifies one token the price job should snapshot.
type SnapshotTarget struct {
	TokenKey string       `json:"token_key"`
	Chain    config.Chain `json:"chain"`
}
