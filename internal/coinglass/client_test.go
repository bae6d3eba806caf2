package coinglass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/argos97/signal-gateway/internal/retry"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", time.Second, retry.Config{Attempts: 2, Delay: time.Millisecond}, zerolog.Nop())
}

func TestSampleBothMetrics(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("coinglass-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		switch {
		case strings.Contains(r.URL.Path, "funding-rate"):
			_, _ = w.Write([]byte(`{"data":[{"list":[{"funding_rate":0.0015}]}]}`))
		case strings.Contains(r.URL.Path, "long-short-account-ratio"):
			if r.URL.Query().Get("limit") != "1" {
				t.Errorf("expected limit=1, got %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"data":[{"long_short_ratio":0.7}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	sample := client.Sample(context.Background(), "BTC")
	if sample.Symbol != "BTC" {
		t.Fatalf("unexpected symbol: %s", sample.Symbol)
	}
	if sample.FundingRate == nil || *sample.FundingRate != 0.0015 {
		t.Fatalf("unexpected funding rate: %v", sample.FundingRate)
	}
	if sample.LongShortRatio == nil || *sample.LongShortRatio != 0.7 {
		t.Fatalf("unexpected ratio: %v", sample.LongShortRatio)
	}
}

func TestSampleDegradesPerMetric(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "funding-rate") {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"long_short_ratio":0.6}]}`))
	})

	sample := client.Sample(context.Background(), "ETH")
	if sample.FundingRate != nil {
		t.Fatalf("funding failure must degrade to nil, got %v", *sample.FundingRate)
	}
	if sample.LongShortRatio == nil || *sample.LongShortRatio != 0.6 {
		t.Fatalf("ratio fetch must survive the funding failure, got %v", sample.LongShortRatio)
	}
}

func TestSampleRetriesTransientFailures(t *testing.T) {
	attempts := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "funding-rate") {
			attempts++
			if attempts == 1 {
				http.Error(w, "flaky", http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"data":[{"list":[{"funding_rate":0.001}]}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	sample := client.Sample(context.Background(), "BTC")
	if attempts != 2 {
		t.Fatalf("expected a retry, got %d attempts", attempts)
	}
	if sample.FundingRate == nil || *sample.FundingRate != 0.001 {
		t.Fatalf("expected funding rate after retry, got %v", sample.FundingRate)
	}
}
