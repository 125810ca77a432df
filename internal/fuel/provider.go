// Package fuel queries a Fuel GraphQL node for chain metadata.
package fuel

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const latestBlockQuery = `{ chain { latestBlock { header { height } } } }`

// Provider is a minimal client for the chain's GraphQL endpoint. The
// indexer asks it exactly one question: the current head height.
type Provider struct {
	http *resty.Client
}

func NewProvider(url string) *Provider {
	httpClient := resty.New().
		SetBaseURL(url).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Provider{http: httpClient}
}

type graphqlRequest struct {
	Query string `json:"query"`
}

// Fuel GraphQL serializes numeric scalars as decimal strings.
type latestBlockResponse struct {
	Data struct {
		Chain struct {
			LatestBlock struct {
				Header struct {
					Height string `json:"height"`
				} `json:"header"`
			} `json:"latestBlock"`
		} `json:"chain"`
	} `json:"data"`
}

// LatestBlockHeight returns the current chain head block number.
func (p *Provider) LatestBlockHeight(ctx context.Context) (int64, error) {
	var result latestBlockResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(graphqlRequest{Query: latestBlockQuery}).
		SetResult(&result).
		Post("")
	if err != nil {
		return 0, fmt.Errorf("latest block: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("latest block: status %d: %s", resp.StatusCode(), resp.String())
	}

	raw := result.Data.Chain.LatestBlock.Header.Height
	height, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse height %q: %w", raw, err)
	}
	return height, nil
}
