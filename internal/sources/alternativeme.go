package sources

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rickgao/crypto-factory/internal/httpx"
	"github.com/rickgao/crypto-factory/internal/model"
)

// DefaultAlternativeMeURL is the fear & greed index endpoint. Public,
// no credential.
const DefaultAlternativeMeURL = "https://api.alternative.me/fng/"

// AlternativeMe fetches the crypto fear & greed index.
type AlternativeMe struct {
	client  *httpx.Client
	baseURL string
}

// NewAlternativeMe creates the fear & greed adapter.
func NewAlternativeMe(client *httpx.Client, baseURL string) *AlternativeMe {
	if baseURL == "" {
		baseURL = DefaultAlternativeMeURL
	}
	return &AlternativeMe{client: client, baseURL: baseURL}
}

type fearGreedResponse struct {
	Data []struct {
		Value string `json:"value"`
	} `json:"data"`
}

// Fetch satisfies collector.FetchFunc.
func (a *AlternativeMe) Fetch(ctx context.Context) (map[string]float64, error) {
	var resp fearGreedResponse
	if err := a.client.GetJSON(ctx, a.baseURL, nil, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty fear & greed response")
	}

	v, err := strconv.ParseFloat(resp.Data[0].Value, 64)
	if err != nil {
		return nil, fmt.Errorf("fear & greed value %q: %w", resp.Data[0].Value, err)
	}

	return map[string]float64{model.FieldFearGreedIndex: v}, nil
}
