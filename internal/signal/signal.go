// Package signal standardizes the payloads shared between the poller, the
// relay, and the persistence layer.
package signal

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SignalTTL is how long a stored signal stays actionable. Expiry is
// interpreted by downstream consumers, never enforced here.
const SignalTTL = time.Hour

// MetricSample is one poll cycle's raw metrics for a symbol. A nil field means
// the source returned no usable data this cycle; scoring treats that as a
// neutral default, not as zero.
type MetricSample struct {
	Symbol         string
	FundingRate    *float64
	LongShortRatio *float64
}

// Source identifies who wrote an audit entry.
type Source string

// Status is the lifecycle state of an audit entry. Every event gets exactly
// one "received" entry followed by one terminal entry.
type Status string

const (
	SourceTradingView Source = "tradingview"
	SourceServer      Source = "server"

	StatusReceived   Status = "received"
	StatusProcessed  Status = "processed"
	StatusIgnoredLow Status = "ignored_low_score"
	StatusError      Status = "error"
)

// LogEntry is one append-only audit record. Entries are immutable once
// written; corrections are new entries, never edits.
type LogEntry struct {
	EventID      string     `json:"event_id"`
	Payload      *Payload   `json:"payload"`
	Source       Source     `json:"source"`
	Status       Status     `json:"status"`
	Attempts     int        `json:"attempts"`
	ProcessedAt  *time.Time `json:"processed_at"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Record is the durable signal created when a score clears the threshold.
type Record struct {
	EventID    string         `json:"event_id"`
	Symbol     string         `json:"symbol"`
	TF         string         `json:"tf"`
	Side       string         `json:"side"`
	Score      int            `json:"score"`
	Conditions map[string]any `json:"conditions"`
	Meta       map[string]any `json:"meta"`
	Status     string         `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
}

// EventID derives the deterministic fingerprint used as the dedup and
// idempotency key: sha256 over the sender-supplied id, symbol, tf, and
// timestamp. Identical tuples replayed by the sender collapse to the same
// identity. The raw symbol/tf fields are used here, not their fallbacks, so
// the fingerprint is stable against how the rest of the pipeline normalizes.
func EventID(p *Payload) string {
	s := p.EventID + "|" + p.Symbol + "|" + p.TF + "|" + string(p.Timestamp)
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
