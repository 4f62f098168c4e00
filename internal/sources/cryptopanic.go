package sources

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rickgao/crypto-factory/internal/httpx"
	"github.com/rickgao/crypto-factory/internal/model"
)

// DefaultCryptoPanicURL is the CryptoPanic developer API base.
const DefaultCryptoPanicURL = "https://cryptopanic.com/api/developer/v2"

// sentimentSampleCap bounds how many posts contribute to the score.
const sentimentSampleCap = 20

// CryptoPanic derives a vote-balance sentiment score from rising news
// posts for a currency.
type CryptoPanic struct {
	client   *httpx.Client
	baseURL  string
	currency string
	key      KeyFunc
}

// NewCryptoPanic creates the news sentiment adapter.
func NewCryptoPanic(client *httpx.Client, baseURL, currency string, key KeyFunc) *CryptoPanic {
	if baseURL == "" {
		baseURL = DefaultCryptoPanicURL
	}
	return &CryptoPanic{
		client:   client,
		baseURL:  baseURL,
		currency: currency,
		key:      key,
	}
}

type cryptoPanicResponse struct {
	Results []struct {
		Votes struct {
			Positive float64 `json:"positive"`
			Negative float64 `json:"negative"`
		} `json:"votes"`
	} `json:"results"`
}

// Fetch satisfies collector.FetchFunc. Sentiment is the mean of
// (pos-neg)/(pos+neg) over voted posts; posts with no votes are
// skipped.
func (c *CryptoPanic) Fetch(ctx context.Context) (map[string]float64, error) {
	key, err := c.key()
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"auth_token": {key},
		"currencies": {c.currency},
		"kind":       {"news"},
		"filter":     {"rising"},
	}

	var resp cryptoPanicResponse
	if err := c.client.GetJSON(ctx, c.baseURL+"/posts/", query, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("no posts for %s", c.currency)
	}

	var sum float64
	var voted int
	for i, post := range resp.Results {
		if i >= sentimentSampleCap {
			break
		}
		pos, neg := post.Votes.Positive, post.Votes.Negative
		if pos+neg == 0 {
			continue
		}
		sum += (pos - neg) / (pos + neg)
		voted++
	}

	fields := map[string]float64{
		model.FieldNewsCount: float64(len(resp.Results)),
	}
	if voted > 0 {
		fields[model.FieldNewsSentiment] = sum / float64(voted)
	}
	return fields, nil
}
