// Package oracle provides price feed implementations for the stable engine:
// a manual in-memory feed for tests and incident overrides, and an HTTP
// adapter for JSON quote endpoints.
package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"stablecore/native/stable"
)

// ManualFeed is an in-memory price feed used for tests and manual overrides
// during incident response.
type ManualFeed struct {
	mu       sync.RWMutex
	decimals uint8
	round    stable.RoundData
}

// NewManualFeed constructs a feed reporting prices with the given decimals.
// The initial price is recorded as a complete round at the given time.
func NewManualFeed(decimals uint8, price *big.Int, updatedAt time.Time) *ManualFeed {
	feed := &ManualFeed{decimals: decimals}
	feed.Set(price, updatedAt)
	return feed
}

// Set records a new complete round.
func (f *ManualFeed) Set(price *big.Int, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	round := stable.RoundData{UpdatedAt: updatedAt, Complete: true}
	if price != nil {
		round.Price = new(big.Int).Set(price)
	}
	f.round = round
}

// SetIncomplete records a round that has not finished, which the engine
// rejects.
func (f *ManualFeed) SetIncomplete(price *big.Int, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	round := stable.RoundData{UpdatedAt: updatedAt, Complete: false}
	if price != nil {
		round.Price = new(big.Int).Set(price)
	}
	f.round = round
}

func (f *ManualFeed) LatestRound() (stable.RoundData, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	round := f.round
	if round.Price != nil {
		round.Price = new(big.Int).Set(round.Price)
	}
	return round, nil
}

func (f *ManualFeed) Decimals() uint8 { return f.decimals }

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPFeed fetches rounds from a JSON quote endpoint. The endpoint is
// expected to respond with {"price": "<integer>", "updatedAt": <unix
// seconds>, "complete": <bool>} where price is expressed in the feed's
// decimals.
type HTTPFeed struct {
	client   HTTPDoer
	endpoint string
	decimals uint8
}

// NewHTTPFeed constructs an HTTP feed adapter. When the client is nil,
// http.DefaultClient is used.
func NewHTTPFeed(client HTTPDoer, endpoint string, decimals uint8) (*HTTPFeed, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("oracle: endpoint required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFeed{client: client, endpoint: trimmed, decimals: decimals}, nil
}

type httpRound struct {
	Price     string `json:"price"`
	UpdatedAt int64  `json:"updatedAt"`
	Complete  bool   `json:"complete"`
}

func (f *HTTPFeed) LatestRound() (stable.RoundData, error) {
	req, err := http.NewRequest(http.MethodGet, f.endpoint, nil)
	if err != nil {
		return stable.RoundData{}, fmt.Errorf("oracle: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return stable.RoundData{}, fmt.Errorf("oracle: fetch round: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return stable.RoundData{}, fmt.Errorf("oracle: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return stable.RoundData{}, fmt.Errorf("oracle: read round: %w", err)
	}
	var round httpRound
	if err := json.Unmarshal(body, &round); err != nil {
		return stable.RoundData{}, fmt.Errorf("oracle: decode round: %w", err)
	}
	price, ok := new(big.Int).SetString(strings.TrimSpace(round.Price), 10)
	if !ok {
		return stable.RoundData{}, fmt.Errorf("oracle: invalid price %q", round.Price)
	}
	return stable.RoundData{
		Price:     price,
		UpdatedAt: time.Unix(round.UpdatedAt, 0),
		Complete:  round.Complete,
	}, nil
}

func (f *HTTPFeed) Decimals() uint8 { return f.decimals }
