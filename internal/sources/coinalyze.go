package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/crypto-factory/internal/httpx"
	"github.com/rickgao/crypto-factory/internal/model"
)

// DefaultCoinalyzeURL is the Coinalyze API base.
const DefaultCoinalyzeURL = "https://api.coinalyze.net/v1"

// KeyFunc returns the API key to use for the next call. Adapters that
// share a rotating credential pool get their key through this.
type KeyFunc func() (string, error)

// Coinalyze fetches the trailing-hour liquidation history for a
// perpetual contract.
type Coinalyze struct {
	client  *httpx.Client
	baseURL string
	symbol  string // Coinalyze symbol code, e.g. BTCUSDT.6 for Binance perp
	key     KeyFunc
	now     func() time.Time
}

// NewCoinalyze creates the liquidations adapter.
func NewCoinalyze(client *httpx.Client, baseURL, symbol string, key KeyFunc) *Coinalyze {
	if baseURL == "" {
		baseURL = DefaultCoinalyzeURL
	}
	return &Coinalyze{
		client:  client,
		baseURL: baseURL,
		symbol:  symbol,
		key:     key,
		now:     time.Now,
	}
}

type coinalyzeLiquidation struct {
	Side  string  `json:"side"`
	Value float64 `json:"value"`
}

// Fetch satisfies collector.FetchFunc.
func (c *Coinalyze) Fetch(ctx context.Context) (map[string]float64, error) {
	key, err := c.key()
	if err != nil {
		return nil, err
	}

	now := c.now()
	query := url.Values{
		"symbols": {c.symbol},
		"from":    {strconv.FormatInt(now.Add(-time.Hour).Unix(), 10)},
		"to":      {strconv.FormatInt(now.Unix(), 10)},
	}
	header := http.Header{"Api_key": {key}}

	var events []coinalyzeLiquidation
	if err := c.client.GetJSON(ctx, c.baseURL+"/liquidation-history", query, header, &events); err != nil {
		return nil, err
	}

	var longLiq, shortLiq float64
	for _, ev := range events {
		// A buy liquidation closes a long position.
		switch strings.ToLower(ev.Side) {
		case "buy":
			longLiq += ev.Value
		case "sell":
			shortLiq += ev.Value
		}
	}

	return map[string]float64{
		model.FieldLiqLong1h:  longLiq,
		model.FieldLiqShort1h: shortLiq,
		model.FieldLiqTotal1h: longLiq + shortLiq,
	}, nil
}
