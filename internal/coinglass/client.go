// Package coinglass polls the CoinGlass futures API for the two metrics the
// scoring engine consumes: funding rate and global long/short account ratio.
package coinglass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/argos97/signal-gateway/internal/metrics"
	"github.com/argos97/signal-gateway/internal/retry"
	"github.com/argos97/signal-gateway/internal/signal"
)

const defaultTimeout = 10 * time.Second

// Client fetches metric series for symbols. Fetch failures degrade to "no
// data" for the affected metric; they never fail a sample as a whole.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   retry.Config
	log     zerolog.Logger
}

// NewClient builds a CoinGlass client. The API key travels in the
// coinglass-api-key header on every request.
func NewClient(baseURL, apiKey string, timeout time.Duration, rc retry.Config, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		retry:   rc,
		log:     log,
	}
}

// Sample fetches both metrics for a symbol concurrently. Either side may come
// back nil; the caller scores whatever survived.
func (c *Client) Sample(ctx context.Context, symbol string) signal.MetricSample {
	sample := signal.MetricSample{Symbol: symbol}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sample.FundingRate = c.fundingRate(ctx, symbol)
	}()
	go func() {
		defer wg.Done()
		sample.LongShortRatio = c.longShortRatio(ctx, symbol)
	}()
	wg.Wait()

	return sample
}

func (c *Client) fundingRate(ctx context.Context, symbol string) *float64 {
	body, err := c.get(ctx, "/api/futures/funding-rate/exchange-list?symbol="+url.QueryEscape(symbol))
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("funding rate fetch failed")
		metrics.FetchFailures.WithLabelValues(symbol, "funding_rate").Inc()
		return nil
	}
	rate := parseFundingRate(body)
	if rate == nil {
		metrics.FetchFailures.WithLabelValues(symbol, "funding_rate").Inc()
	}
	return rate
}

func (c *Client) longShortRatio(ctx context.Context, symbol string) *float64 {
	body, err := c.get(ctx, "/api/futures/global-long-short-account-ratio/history?symbol="+url.QueryEscape(symbol)+"&limit=1")
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("long/short ratio fetch failed")
		metrics.FetchFailures.WithLabelValues(symbol, "long_short_ratio").Inc()
		return nil
	}
	ratio := parseLongShortRatio(body)
	if ratio == nil {
		metrics.FetchFailures.WithLabelValues(symbol, "long_short_ratio").Inc()
	}
	return ratio
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return retry.DoValue(ctx, c.retry, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("coinglass-api-key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http do: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	})
}
