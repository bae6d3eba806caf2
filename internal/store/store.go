// Package store talks to the downstream append-only record store and hosts
// the optional idempotency guard.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/argos97/signal-gateway/internal/metrics"
	"github.com/argos97/signal-gateway/internal/retry"
)

// RecordStore appends opaque records to named collections. The store never
// interprets what it is given; failures are the caller's to log and swallow.
type RecordStore interface {
	CreateRecord(ctx context.Context, collection string, record any) error
}

const defaultTimeout = 8 * time.Second

// Client is the HTTP record-store implementation.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   retry.Config
	log     zerolog.Logger
}

// NewClient builds a record-store client authenticated via the x-api-key
// header.
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

// CreateRecord appends one record to a collection, retry-wrapped.
func (c *Client) CreateRecord(ctx context.Context, collection string, record any) error {
	body, err := json.Marshal(record)
	if err != nil {
		metrics.StoreWrites.WithLabelValues(collection, "error").Inc()
		return fmt.Errorf("marshal record: %w", err)
	}
	url := fmt.Sprintf("%s/collections/%s/records", c.baseURL, collection)

	err = retry.Do(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("http do: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		metrics.StoreWrites.WithLabelValues(collection, "error").Inc()
		return err
	}
	metrics.StoreWrites.WithLabelValues(collection, "ok").Inc()
	return nil
}
