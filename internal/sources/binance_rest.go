package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/crypto-factory/internal/httpx"
	"github.com/rickgao/crypto-factory/internal/model"
)

// DefaultBinanceFuturesURL is the Binance USD-M futures REST base.
const DefaultBinanceFuturesURL = "https://fapi.binance.com"

// BinanceREST fetches futures derivatives data: funding rate, open
// interest, and the top-trader long/short ratio. The three endpoints
// are independent, so they run concurrently; any failure fails the
// whole poll and the previous snapshot stays in place.
type BinanceREST struct {
	client  *httpx.Client
	baseURL string
	symbol  string
}

// NewBinanceREST creates the futures REST adapter.
func NewBinanceREST(client *httpx.Client, baseURL, symbol string) *BinanceREST {
	if baseURL == "" {
		baseURL = DefaultBinanceFuturesURL
	}
	return &BinanceREST{
		client:  client,
		baseURL: baseURL,
		symbol:  symbol,
	}
}

// Fetch satisfies collector.FetchFunc.
func (b *BinanceREST) Fetch(ctx context.Context) (map[string]float64, error) {
	var mu sync.Mutex
	fields := make(map[string]float64, 3)
	set := func(name string, v float64) {
		mu.Lock()
		fields[name] = v
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := b.fetchFundingRate(ctx)
		if err != nil {
			return fmt.Errorf("funding rate: %w", err)
		}
		set(model.FieldFundingRate, v)
		return nil
	})
	g.Go(func() error {
		v, err := b.fetchOpenInterest(ctx)
		if err != nil {
			return fmt.Errorf("open interest: %w", err)
		}
		set(model.FieldOpenInterest, v)
		return nil
	})
	g.Go(func() error {
		v, err := b.fetchLongShortRatio(ctx)
		if err != nil {
			return fmt.Errorf("long/short ratio: %w", err)
		}
		set(model.FieldLongShortRatio, v)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fields, nil
}

func (b *BinanceREST) fetchFundingRate(ctx context.Context) (float64, error) {
	var out []struct {
		FundingRate string `json:"fundingRate"`
	}
	err := b.client.GetJSON(ctx, b.baseURL+"/fapi/v1/fundingRate",
		url.Values{"symbol": {b.symbol}, "limit": {"1"}}, nil, &out)
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("empty funding rate response")
	}
	return strconv.ParseFloat(out[0].FundingRate, 64)
}

func (b *BinanceREST) fetchOpenInterest(ctx context.Context) (float64, error) {
	var out struct {
		OpenInterest string `json:"openInterest"`
	}
	err := b.client.GetJSON(ctx, b.baseURL+"/fapi/v1/openInterest",
		url.Values{"symbol": {b.symbol}}, nil, &out)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(out.OpenInterest, 64)
}

func (b *BinanceREST) fetchLongShortRatio(ctx context.Context) (float64, error) {
	var out []struct {
		LongShortRatio string `json:"longShortRatio"`
	}
	err := b.client.GetJSON(ctx, b.baseURL+"/futures/data/topLongShortAccountRatio",
		url.Values{"symbol": {b.symbol}, "period": {"5m"}, "limit": {"1"}}, nil, &out)
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("empty long/short ratio response")
	}
	return strconv.ParseFloat(out[0].LongShortRatio, 64)
}
