package sources

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/rickgao/crypto-factory/internal/httpx"
	"github.com/rickgao/crypto-factory/internal/model"
)

// DefaultDeribitURL is the Deribit public API base.
const DefaultDeribitURL = "https://www.deribit.com/api/v2/public"

// ATM Black-Scholes assumptions for the synthetic greeks.
const (
	bsTimeToExpiry = 30.0 / 365.0
	bsRiskFreeRate = 0.05
)

// Deribit aggregates the public BTC options book into market-wide IV
// and greek exposure features. No credential is required.
type Deribit struct {
	client   *httpx.Client
	baseURL  string
	currency string
}

// NewDeribit creates the options adapter.
func NewDeribit(client *httpx.Client, baseURL, currency string) *Deribit {
	if baseURL == "" {
		baseURL = DefaultDeribitURL
	}
	return &Deribit{
		client:   client,
		baseURL:  baseURL,
		currency: currency,
	}
}

type deribitInstrument struct {
	InstrumentName  string  `json:"instrument_name"`
	OpenInterest    float64 `json:"open_interest"`
	MarkIV          float64 `json:"mark_iv"`
	Volume24h       float64 `json:"volume_24h"`
	UnderlyingPrice float64 `json:"underlying_price"`
	Greeks          struct {
		Delta float64 `json:"delta"`
		Theta float64 `json:"theta"`
		Vega  float64 `json:"vega"`
	} `json:"greeks"`
}

type deribitBookSummary struct {
	Result []deribitInstrument `json:"result"`
}

// Fetch satisfies collector.FetchFunc.
func (d *Deribit) Fetch(ctx context.Context) (map[string]float64, error) {
	var resp deribitBookSummary
	err := d.client.GetJSON(ctx, d.baseURL+"/get_book_summary_by_currency",
		url.Values{"currency": {d.currency}, "kind": {"option"}}, nil, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("empty options book for %s", d.currency)
	}
	return aggregateOptions(resp.Result), nil
}

// aggregateOptions folds per-instrument summaries into market-wide
// features: OI-weighted IV, IV rank, net greek exposure, put/call
// ratios, and ATM Black-Scholes greeks.
func aggregateOptions(instruments []deribitInstrument) map[string]float64 {
	var (
		totalOI, weightedIV            float64
		netDelta, netTheta, netVega    float64
		putOI, callOI, putVol, callVol float64
		ivValues                       []float64
	)
	spot := instruments[0].UnderlyingPrice

	for _, inst := range instruments {
		switch {
		case strings.HasSuffix(inst.InstrumentName, "-P"):
			putOI += inst.OpenInterest
			putVol += inst.Volume24h
		case strings.HasSuffix(inst.InstrumentName, "-C"):
			callOI += inst.OpenInterest
			callVol += inst.Volume24h
		}

		if inst.OpenInterest > 0 && inst.MarkIV > 0 {
			totalOI += inst.OpenInterest
			weightedIV += inst.MarkIV * inst.OpenInterest
			ivValues = append(ivValues, inst.MarkIV)

			netDelta += inst.Greeks.Delta * inst.OpenInterest
			netTheta += inst.Greeks.Theta * inst.OpenInterest
			netVega += inst.Greeks.Vega * inst.OpenInterest
		}
	}

	fields := make(map[string]float64, 8)
	if callOI > 0 {
		fields[model.FieldPutCallRatioOI] = putOI / callOI
	}
	if callVol > 0 {
		fields[model.FieldPutCallRatioVol] = putVol / callVol
	}

	if totalOI == 0 {
		return fields
	}

	avgIV := weightedIV / totalOI
	fields[model.FieldImpliedVol] = avgIV
	fields[model.FieldDeltaExposure] = netDelta

	// Deribit reports mark_iv as a percentage; the BS inputs want a
	// decimal. Small values are already decimal.
	ivDecimal := avgIV
	if avgIV >= 5 {
		ivDecimal = avgIV / 100
	}

	fields[model.FieldIVRank] = ivRank(avgIV, ivValues)

	_, theta, vega := blackScholesATM(spot, ivDecimal)
	// Net exposure carries the market-wide greeks; the ATM theta/vega
	// stand in when the book reports none.
	if netTheta != 0 {
		fields[model.FieldTheta] = netTheta
	} else {
		fields[model.FieldTheta] = theta
	}
	if netVega != 0 {
		fields[model.FieldVega] = netVega
	} else {
		fields[model.FieldVega] = vega
	}

	return fields
}

// ivRank places the current IV within the day's cross-sectional IV
// range as a 0-100 percentile. Thin books default to the midpoint.
func ivRank(current float64, ivValues []float64) float64 {
	if len(ivValues) <= 10 {
		return 50.0
	}
	sort.Float64s(ivValues)
	minIV, maxIV := ivValues[0], ivValues[len(ivValues)-1]
	if maxIV <= minIV {
		return 50.0
	}
	return (current - minIV) / (maxIV - minIV) * 100
}

// blackScholesATM computes delta, theta, and vega for an at-the-money
// call with fixed expiry and rate assumptions.
func blackScholesATM(spot, iv float64) (delta, theta, vega float64) {
	if spot <= 0 || iv <= 0 {
		return 0, 0, 0
	}

	T := bsTimeToExpiry
	r := bsRiskFreeRate
	sqrtT := math.Sqrt(T)

	// ATM: strike = spot, so log(S/K) = 0.
	d1 := (r + 0.5*iv*iv) * T / (iv * sqrtT)
	d2 := d1 - iv*sqrtT

	delta = normCDF(d1)
	vega = spot * normPDF(d1) * sqrtT / 100
	theta = -(spot*normPDF(d1)*iv/(2*sqrtT) +
		r*spot*math.Exp(-r*T)*normCDF(d2)) / 365

	return delta, theta, vega
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
