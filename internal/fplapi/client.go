// Package fplapi is a thin, circuit-broken client for the public FPL
// bootstrap/entry/transfer endpoints -- an optional data source the core
// MILP never depends on directly. It follows the circuit-breaker shape the
// teacher's realtime-service providers use around their upstream feeds:
// wrap every outbound call in a gobreaker.CircuitBreaker so a flaky FPL API
// degrades to an explicit error instead of stalling a solve request.
package fplapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const defaultBaseURL = "https://fantasy.premierleague.com/api"

// Client fetches FPL bootstrap/entry/transfer data over HTTP, breaking the
// circuit after a run of failures.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// Options configures the circuit breaker and HTTP client.
type Options struct {
	BaseURL        string
	RequestTimeout time.Duration
	// BreakerInterval is the rolling window gobreaker counts failures over.
	BreakerInterval time.Duration
	// BreakerTimeout is how long the breaker stays open before allowing a
	// trial request through.
	BreakerTimeout time.Duration
}

// New creates a Client. Zero-valued Options fields take the teacher's
// defaults: a 10s request timeout, a 60s failure-counting window, and a 30s
// open-circuit cooldown.
func New(opts Options, logger *logrus.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.BreakerInterval <= 0 {
		opts.BreakerInterval = 60 * time.Second
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "fplapi",
		Interval: opts.BreakerInterval,
		Timeout:  opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker":    name,
				"from_state": from,
				"to_state":   to,
			}).Warn("fplapi: circuit breaker state changed")
		},
	})

	return &Client{
		baseURL: opts.BaseURL,
		http:    &http.Client{Timeout: opts.RequestTimeout},
		breaker: breaker,
		logger:  logger,
	}
}

// BootstrapPlayer is the subset of the bootstrap-static "elements" payload
// this system's projection pipeline actually consumes.
type BootstrapPlayer struct {
	ID             int     `json:"id"`
	WebName        string  `json:"web_name"`
	ElementType    int     `json:"element_type"`
	Team           int     `json:"team"`
	NowCost        int     `json:"now_cost"`
	Status         string  `json:"status"`
	ChanceOfNext   *int    `json:"chance_of_playing_next_round"`
	FormPerMatch   string  `json:"form"`
	ExpectedPoints string  `json:"ep_next"`
}

// Bootstrap is the trimmed bootstrap-static response.
type Bootstrap struct {
	Elements []BootstrapPlayer `json:"elements"`
}

// FetchBootstrap retrieves the current bootstrap-static payload, breaking
// the circuit on repeated failures.
func (c *Client) FetchBootstrap(ctx context.Context) (*Bootstrap, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.getJSON(ctx, "/bootstrap-static/", &Bootstrap{})
	})
	if err != nil {
		return nil, fmt.Errorf("fplapi: fetch bootstrap: %w", err)
	}
	return result.(*Bootstrap), nil
}

// EntryPick is one pick from an FPL manager entry's picks history, the subset
// system needs to reconstruct a SquadState from a live account.
type EntryPick struct {
	PlayerID       int  `json:"element"`
	IsCaptain      bool `json:"is_captain"`
	IsViceCaptain  bool `json:"is_vice_captain"`
	Multiplier     int  `json:"multiplier"`
	Position       int  `json:"position"`
}

// EntryPicks is the /entry/{id}/event/{gw}/picks/ response.
type EntryPicks struct {
	Picks []EntryPick `json:"picks"`
	EntryHistory struct {
		Bank         int `json:"bank"`
		Value        int `json:"value"`
		EventTransfers int `json:"event_transfers"`
	} `json:"entry_history"`
}

// FetchEntryPicks retrieves a manager's picks for a given gameweek.
func (c *Client) FetchEntryPicks(ctx context.Context, entryID, gameweek int) (*EntryPicks, error) {
	path := fmt.Sprintf("/entry/%d/event/%d/picks/", entryID, gameweek)
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.getJSON(ctx, path, &EntryPicks{})
	})
	if err != nil {
		return nil, fmt.Errorf("fplapi: fetch entry picks: %w", err)
	}
	return result.(*EntryPicks), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) (interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
