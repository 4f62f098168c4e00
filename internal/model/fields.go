package model

// Feature field names. Each constant is both the snapshot map key used by
// collectors and the feature_store column the value lands in.
const (
	// Group A: price & volume
	FieldOpen         = "open"
	FieldHigh         = "high"
	FieldLow          = "low"
	FieldClose        = "close"
	FieldVolume       = "volume"
	FieldTradeCount   = "trade_count"
	FieldVWAP         = "vwap"
	FieldVolatilityHV = "volatility_hv"

	// Group B: order book & flow
	FieldBidAskSpread    = "bid_ask_spread"
	FieldOBImbalance5    = "ob_imbalance_5"
	FieldFlowDelta1m     = "flow_delta_1m"
	FieldFlowDelta5m     = "flow_delta_5m"
	FieldLargeTradeCount = "large_trade_count"
	FieldBidQty1         = "bid_qty_1"
	FieldBidQty2         = "bid_qty_2"
	FieldBidQty3         = "bid_qty_3"
	FieldAskQty1         = "ask_qty_1"
	FieldAskQty2         = "ask_qty_2"
	FieldAskQty3         = "ask_qty_3"
	FieldBidPrice1       = "bid_price_1"
	FieldAskPrice1       = "ask_price_1"

	// Group C: derivatives & greeks
	FieldFundingRate     = "funding_rate"
	FieldOpenInterest    = "open_interest"
	FieldLongShortRatio  = "long_short_ratio"
	FieldImpliedVol      = "implied_volatility"
	FieldIVRank          = "iv_rank"
	FieldDeltaExposure   = "delta_exposure"
	FieldPutCallRatioVol = "put_call_ratio_vol"
	FieldPutCallRatioOI  = "put_call_ratio_oi"
	FieldTheta           = "theta"
	FieldVega            = "vega"
	FieldLiqLong1h       = "liquidation_long_1h"
	FieldLiqShort1h      = "liquidation_short_1h"
	FieldLiqTotal1h      = "liquidation_total_1h"

	// Group D: sentiment & external
	FieldNewsSentiment  = "news_sentiment"
	FieldNewsCount      = "news_count"
	FieldFearGreedIndex = "fear_greed_index"

	// Group E: clock features (derived by the orchestrator)
	FieldTimeHour  = "time_hour"
	FieldTimeDay   = "time_day"
	FieldIsWeekend = "is_weekend"
)

// ValueColumns lists every feature column in feature_store order. The
// timestamp and symbol key columns are not included.
var ValueColumns = []string{
	FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume,
	FieldTradeCount, FieldVWAP, FieldVolatilityHV,
	FieldBidAskSpread, FieldOBImbalance5,
	FieldFlowDelta1m, FieldFlowDelta5m, FieldLargeTradeCount,
	FieldBidQty1, FieldBidQty2, FieldBidQty3,
	FieldAskQty1, FieldAskQty2, FieldAskQty3,
	FieldBidPrice1, FieldAskPrice1,
	FieldFundingRate, FieldOpenInterest, FieldLongShortRatio,
	FieldImpliedVol, FieldIVRank, FieldDeltaExposure,
	FieldPutCallRatioVol, FieldPutCallRatioOI,
	FieldTheta, FieldVega,
	FieldLiqLong1h, FieldLiqShort1h, FieldLiqTotal1h,
	FieldNewsSentiment, FieldNewsCount, FieldFearGreedIndex,
	FieldTimeHour, FieldTimeDay, FieldIsWeekend,
}
