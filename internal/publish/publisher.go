// Package publish delivers scored signals to the relay's ingestion endpoint.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/argos97/signal-gateway/internal/metrics"
	"github.com/argos97/signal-gateway/internal/retry"
	"github.com/argos97/signal-gateway/internal/score"
	"github.com/argos97/signal-gateway/internal/signal"
)

// Timeframe tags every poller-built envelope so the relay can tell these
// signals apart from TradingView alerts.
const Timeframe = "coinglass"

const deliverTimeout = 8 * time.Second

// Publisher gates scores on the threshold and posts qualifying envelopes to
// the webhook. Delivery is best-effort: a failure after retries is logged and
// swallowed, and the next poll cycle is the outer retry.
type Publisher struct {
	webhookURL string
	secret     string
	minScore   int
	http       *http.Client
	retry      retry.Config
	log        zerolog.Logger
}

// NewPublisher builds a publisher delivering to webhookURL with the shared
// secret.
func NewPublisher(webhookURL, secret string, minScore int, rc retry.Config, log zerolog.Logger) *Publisher {
	return &Publisher{
		webhookURL: webhookURL,
		secret:     secret,
		minScore:   minScore,
		http:       &http.Client{Timeout: deliverTimeout},
		retry:      rc,
		log:        log,
	}
}

// Publish evaluates one sample's scores and delivers the envelope when the
// winning side clears the threshold (inclusive).
func (p *Publisher) Publish(ctx context.Context, sample signal.MetricSample, result score.Result) {
	final, side := result.Final()
	if final < p.minScore {
		p.log.Debug().Str("symbol", sample.Symbol).Int("score", final).Msg("ignored low score")
		return
	}

	payload := map[string]any{
		"symbol":      sample.Symbol,
		"long_score":  result.LongScore,
		"short_score": result.ShortScore,
		"scores": map[string]int{
			"long_score":  result.LongScore,
			"short_score": result.ShortScore,
		},
		"tf": Timeframe,
		"meta": map[string]any{
			"fundingRate":    sample.FundingRate,
			"longShortRatio": sample.LongShortRatio,
		},
	}

	if err := p.deliver(ctx, payload); err != nil {
		p.log.Error().Err(err).Str("symbol", sample.Symbol).Msg("signal delivery failed")
		return
	}
	metrics.SignalsPublished.WithLabelValues(sample.Symbol, side).Inc()
	p.log.Info().Str("symbol", sample.Symbol).Str("side", side).Int("score", final).Msg("signal sent")
}

func (p *Publisher) deliver(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return retry.Do(ctx, p.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-webhook-key", p.secret)

		resp, err := p.http.Do(req)
		if err != nil {
			return fmt.Errorf("http do: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	})
}
