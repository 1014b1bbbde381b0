package gecko

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexFloat decodes the API's numerics, which arrive as JSON numbers,
// quoted strings, or null depending on endpoint and field. Anything absent
// or unparseable decodes to 0 so a single odd field never sinks a payload.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	bb := bytes.TrimSpace(b)
	if len(bb) == 0 || string(bb) == "null" {
		*f = 0
		return nil
	}
	if bb[0] == '"' {
		var s string
		if err := json.Unmarshal(bb, &s); err != nil {
			*f = 0
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(bb, &v); err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

// PoolDocument is a pools response: pool rows plus an included side-table
// of the token and dex records the rows reference by id.
type PoolDocument struct {
	Data     []PoolRow     `json:"data"`
	Included []IncludedRow `json:"included"`
}

func (d PoolDocument) Empty() bool {
	return len(d.Data) == 0
}

type PoolRow struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Attributes    PoolAttributes `json:"attributes"`
	Relationships PoolRelations  `json:"relationships"`
}

type PoolAttributes struct {
	Name              string        `json:"name"`
	Address           string        `json:"address"`
	BaseTokenPriceUSD FlexFloat     `json:"base_token_price_usd"`
	ReserveInUSD      FlexFloat     `json:"reserve_in_usd"`
	MarketCapUSD      FlexFloat     `json:"market_cap_usd"`
	FDVUSD            FlexFloat     `json:"fdv_usd"`
	VolumeUSD         VolumeWindows `json:"volume_usd"`
	PoolCreatedAt     string        `json:"pool_created_at"`
}

type VolumeWindows struct {
	H24 FlexFloat `json:"h24"`
}

type PoolRelations struct {
	BaseToken  RelRef `json:"base_token"`
	QuoteToken RelRef `json:"quote_token"`
	Dex        RelRef `json:"dex"`
}

type RelRef struct {
	Data RelData `json:"data"`
}

type RelData struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type IncludedRow struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Attributes IncludedAttrs `json:"attributes"`
}

// IncludedAttrs covers both token rows (address/name/symbol) and dex rows
// (name only); absent fields stay empty.
type IncludedAttrs struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// TokenDocument is a token-search response.
type TokenDocument struct {
	Data []TokenRow `json:"data"`
}

func (d TokenDocument) Empty() bool {
	return len(d.Data) == 0
}

type TokenRow struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Attributes IncludedAttrs `json:"attributes"`
}

// TokenTable indexes a document's included token rows by row id.
func (d PoolDocument) TokenTable() map[string]IncludedAttrs {
	m := make(map[string]IncludedAttrs, len(d.Included))
	for _, row := range d.Included {
		if row.Type == "token" {
			m[row.ID] = row.Attributes
		}
	}
	return m
}

// DexTable indexes a document's included dex rows by row id.
func (d PoolDocument) DexTable() map[string]string {
	m := map[string]string{}
	for _, row := range d.Included {
		if row.Type == "dex" {
			name := row.Attributes.Name
			if name == "" {
				name = row.ID
			}
			m[row.ID] = name
		}
	}
	return m
}
