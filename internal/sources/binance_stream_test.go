package sources

import (
	"math"
	"testing"
	"time"

	"github.com/rickgao/crypto-factory/internal/model"
)

func TestBinanceStream_AggTrade(t *testing.T) {
	b := NewBinanceStream()

	msg := []byte(`{"stream":"btcusdt@aggTrade","data":{"p":"50000.0","q":"0.5","T":1700000000000,"m":false}}`)
	fields, err := b.Handle(msg)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if fields[model.FieldClose] != 50000.0 {
		t.Errorf("close = %v, want 50000", fields[model.FieldClose])
	}
	if fields[model.FieldVolume] != 0.5 {
		t.Errorf("volume = %v, want 0.5", fields[model.FieldVolume])
	}
	if fields[model.FieldTradeCount] != 1 {
		t.Errorf("trade_count = %v, want 1", fields[model.FieldTradeCount])
	}
	// Buy aggressor: positive flow of 25000 USD.
	if fields[model.FieldFlowDelta1m] != 25000 {
		t.Errorf("flow_delta_1m = %v, want 25000", fields[model.FieldFlowDelta1m])
	}
}

func TestBinanceStream_FlowDeltaSigned(t *testing.T) {
	b := NewBinanceStream()

	// Buy 25k, then sell 10k (buyer is maker).
	if _, err := b.Handle([]byte(`{"stream":"btcusdt@aggTrade","data":{"p":"50000","q":"0.5","m":false}}`)); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	fields, err := b.Handle([]byte(`{"stream":"btcusdt@aggTrade","data":{"p":"50000","q":"0.2","m":true}}`))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if got := fields[model.FieldFlowDelta1m]; got != 15000 {
		t.Errorf("flow_delta_1m = %v, want 15000", got)
	}
	if got := fields[model.FieldFlowDelta5m]; got != 15000 {
		t.Errorf("flow_delta_5m = %v, want 15000", got)
	}
}

func TestBinanceStream_FlowWindowExpiry(t *testing.T) {
	b := NewBinanceStream()
	base := time.Now()
	b.now = func() time.Time { return base }

	if _, err := b.Handle([]byte(`{"stream":"btcusdt@aggTrade","data":{"p":"50000","q":"1","m":false}}`)); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	// Two minutes on: the first trade leaves the 1m window but stays in
	// the 5m window.
	b.now = func() time.Time { return base.Add(2 * time.Minute) }
	fields, err := b.Handle([]byte(`{"stream":"btcusdt@aggTrade","data":{"p":"50000","q":"0.1","m":false}}`))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if got := fields[model.FieldFlowDelta1m]; got != 5000 {
		t.Errorf("flow_delta_1m = %v, want 5000", got)
	}
	if got := fields[model.FieldFlowDelta5m]; got != 55000 {
		t.Errorf("flow_delta_5m = %v, want 55000", got)
	}
}

func TestBinanceStream_LargeTradeCount(t *testing.T) {
	b := NewBinanceStream()

	// 150k notional: large. 5k notional: not.
	if _, err := b.Handle([]byte(`{"stream":"btcusdt@aggTrade","data":{"p":"50000","q":"3","m":true}}`)); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	fields, err := b.Handle([]byte(`{"stream":"btcusdt@aggTrade","data":{"p":"50000","q":"0.1","m":false}}`))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if got := fields[model.FieldLargeTradeCount]; got != 1 {
		t.Errorf("large_trade_count = %v, want 1", got)
	}
}

func TestBinanceStream_Depth(t *testing.T) {
	b := NewBinanceStream()

	msg := []byte(`{"stream":"btcusdt@depth5@100ms","data":{
		"bids":[["49990","2.0"],["49980","3.0"],["49970","1.0"]],
		"asks":[["50010","1.0"],["50020","2.0"],["50030","1.0"]]}}`)
	fields, err := b.Handle(msg)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if fields[model.FieldBidAskSpread] != 20 {
		t.Errorf("spread = %v, want 20", fields[model.FieldBidAskSpread])
	}
	if fields[model.FieldBidPrice1] != 49990 || fields[model.FieldAskPrice1] != 50010 {
		t.Errorf("best bid/ask = %v/%v, want 49990/50010",
			fields[model.FieldBidPrice1], fields[model.FieldAskPrice1])
	}
	// Imbalance: (6 - 4) / 10 = 0.2.
	if math.Abs(fields[model.FieldOBImbalance5]-0.2) > 1e-9 {
		t.Errorf("imbalance = %v, want 0.2", fields[model.FieldOBImbalance5])
	}
	if fields[model.FieldBidQty2] != 3.0 || fields[model.FieldAskQty3] != 1.0 {
		t.Errorf("level quantities wrong: %v", fields)
	}
}

func TestBinanceStream_Ticker(t *testing.T) {
	b := NewBinanceStream()

	msg := []byte(`{"stream":"btcusdt@ticker","data":{
		"o":"49000","h":"51000","l":"48500","c":"50500","v":"12345.6","w":"49900.1","n":98765}}`)
	fields, err := b.Handle(msg)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	want := map[string]float64{
		model.FieldOpen:       49000,
		model.FieldHigh:       51000,
		model.FieldLow:        48500,
		model.FieldClose:      50500,
		model.FieldVolume:     12345.6,
		model.FieldVWAP:       49900.1,
		model.FieldTradeCount: 98765,
	}
	for name, v := range want {
		if fields[name] != v {
			t.Errorf("%s = %v, want %v", name, fields[name], v)
		}
	}
}

func TestBinanceStream_MalformedMessage(t *testing.T) {
	b := NewBinanceStream()

	if _, err := b.Handle([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed envelope")
	}
	if _, err := b.Handle([]byte(`{"stream":"btcusdt@aggTrade","data":{"p":"oops","q":"1"}}`)); err == nil {
		t.Error("expected error for non-numeric price")
	}

	// Unknown streams are ignored, not errors.
	fields, err := b.Handle([]byte(`{"stream":"btcusdt@kline_1m","data":{}}`))
	if err != nil {
		t.Errorf("unknown stream returned error: %v", err)
	}
	if fields != nil {
		t.Errorf("unknown stream returned fields: %v", fields)
	}
}
