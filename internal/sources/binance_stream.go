package sources

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/crypto-factory/internal/model"
)

// DefaultBinanceStreamURL is the combined-stream endpoint for a spot
// symbol. Streams: aggregate trades, top-5 depth at 100ms, 24h ticker.
func DefaultBinanceStreamURL(symbol string) string {
	s := strings.ToLower(symbol)
	return fmt.Sprintf("wss://stream.binance.com:9443/stream?streams=%s@aggTrade/%s@depth5@100ms/%s@ticker",
		s, s, s)
}

// largeTradeNotional is the quote-volume threshold above which a trade
// counts as large.
const largeTradeNotional = 100_000

// BinanceStream parses Binance combined-stream messages into feature
// fields. It carries the rolling trade-flow window, so flow_delta_1m,
// flow_delta_5m, and large_trade_count stay wall-clock correct across
// socket reconnects.
type BinanceStream struct {
	mu         sync.Mutex
	flow       *tradeFlow
	tradeCount float64
	now        func() time.Time
}

// NewBinanceStream creates a stream handler.
func NewBinanceStream() *BinanceStream {
	return &BinanceStream{
		flow: newTradeFlow(5*time.Minute, largeTradeNotional),
		now:  time.Now,
	}
}

// combined-stream envelope: {"stream":"btcusdt@aggTrade","data":{...}}
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type aggTradeMsg struct {
	Price      string `json:"p"`
	Quantity   string `json:"q"`
	TradeTime  int64  `json:"T"`
	BuyerMaker bool   `json:"m"`
}

type depthMsg struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

type tickerMsg struct {
	Open       string `json:"o"`
	High       string `json:"h"`
	Low        string `json:"l"`
	Close      string `json:"c"`
	Volume     string `json:"v"`
	VWAP       string `json:"w"`
	TradeCount int64  `json:"n"`
}

// Handle parses one raw message. It satisfies collector.MessageHandler.
func (b *BinanceStream) Handle(msg []byte) (map[string]float64, error) {
	var env streamEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch {
	case strings.Contains(env.Stream, "@aggTrade"):
		return b.handleTrade(env.Data)
	case strings.Contains(env.Stream, "@depth"):
		return b.handleDepth(env.Data)
	case strings.Contains(env.Stream, "@ticker"):
		return b.handleTicker(env.Data)
	}
	return nil, nil
}

func (b *BinanceStream) handleTrade(data []byte) (map[string]float64, error) {
	var t aggTradeMsg
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode aggTrade: %w", err)
	}

	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("aggTrade price %q: %w", t.Price, err)
	}
	qty, err := strconv.ParseFloat(t.Quantity, 64)
	if err != nil {
		return nil, fmt.Errorf("aggTrade quantity %q: %w", t.Quantity, err)
	}

	// Buyer-is-maker means the aggressor sold.
	notional := price * qty
	if t.BuyerMaker {
		notional = -notional
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.flow.add(now, notional)
	b.tradeCount++

	return map[string]float64{
		model.FieldClose:           price,
		model.FieldVolume:          qty,
		model.FieldTradeCount:      b.tradeCount,
		model.FieldFlowDelta1m:     b.flow.delta(now, time.Minute),
		model.FieldFlowDelta5m:     b.flow.delta(now, 5*time.Minute),
		model.FieldLargeTradeCount: b.flow.largeCount(),
	}, nil
}

func (b *BinanceStream) handleDepth(data []byte) (map[string]float64, error) {
	var d depthMsg
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode depth: %w", err)
	}
	if len(d.Bids) == 0 || len(d.Asks) == 0 {
		return nil, nil
	}

	bestBid, err := strconv.ParseFloat(d.Bids[0][0], 64)
	if err != nil {
		return nil, fmt.Errorf("depth bid price: %w", err)
	}
	bestAsk, err := strconv.ParseFloat(d.Asks[0][0], 64)
	if err != nil {
		return nil, fmt.Errorf("depth ask price: %w", err)
	}

	fields := map[string]float64{
		model.FieldBidPrice1:    bestBid,
		model.FieldAskPrice1:    bestAsk,
		model.FieldBidAskSpread: bestAsk - bestBid,
	}

	var bidVol, askVol float64
	for i, lvl := range d.Bids {
		if i >= 5 {
			break
		}
		q, err := strconv.ParseFloat(lvl[1], 64)
		if err != nil {
			return nil, fmt.Errorf("depth bid qty: %w", err)
		}
		bidVol += q
	}
	for i, lvl := range d.Asks {
		if i >= 5 {
			break
		}
		q, err := strconv.ParseFloat(lvl[1], 64)
		if err != nil {
			return nil, fmt.Errorf("depth ask qty: %w", err)
		}
		askVol += q
	}
	if total := bidVol + askVol; total > 0 {
		fields[model.FieldOBImbalance5] = (bidVol - askVol) / total
	}

	bidQtyFields := []string{model.FieldBidQty1, model.FieldBidQty2, model.FieldBidQty3}
	askQtyFields := []string{model.FieldAskQty1, model.FieldAskQty2, model.FieldAskQty3}
	for i := 0; i < 3; i++ {
		if i < len(d.Bids) {
			q, err := strconv.ParseFloat(d.Bids[i][1], 64)
			if err != nil {
				return nil, fmt.Errorf("depth bid qty: %w", err)
			}
			fields[bidQtyFields[i]] = q
		}
		if i < len(d.Asks) {
			q, err := strconv.ParseFloat(d.Asks[i][1], 64)
			if err != nil {
				return nil, fmt.Errorf("depth ask qty: %w", err)
			}
			fields[askQtyFields[i]] = q
		}
	}

	return fields, nil
}

func (b *BinanceStream) handleTicker(data []byte) (map[string]float64, error) {
	var t tickerMsg
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode ticker: %w", err)
	}

	fields := make(map[string]float64, 7)
	for _, p := range []struct {
		name string
		raw  string
	}{
		{model.FieldOpen, t.Open},
		{model.FieldHigh, t.High},
		{model.FieldLow, t.Low},
		{model.FieldClose, t.Close},
		{model.FieldVolume, t.Volume},
		{model.FieldVWAP, t.VWAP},
	} {
		v, err := strconv.ParseFloat(p.raw, 64)
		if err != nil {
			return nil, fmt.Errorf("ticker %s %q: %w", p.name, p.raw, err)
		}
		fields[p.name] = v
	}
	fields[model.FieldTradeCount] = float64(t.TradeCount)

	b.mu.Lock()
	b.tradeCount = float64(t.TradeCount)
	b.mu.Unlock()

	return fields, nil
}
