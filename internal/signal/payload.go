package signal

import (
	"bytes"
	"strconv"
)

// Number tolerates JSON numbers and numeric strings, coercing anything else
// to zero the way the relay always has.
type Number float64

// UnmarshalJSON implements lenient numeric decoding.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// Text tolerates JSON strings and bare scalars, keeping the scalar's literal
// form. Senders emit timestamps both as strings and as epoch numbers.
type Text string

// UnmarshalJSON implements lenient string decoding.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		if s, err := strconv.Unquote(string(b)); err == nil {
			*t = Text(s)
			return nil
		}
	}
	*t = Text(b)
	return nil
}

// ScorePair is the nested scores object some senders use instead of the
// top-level score fields.
type ScorePair struct {
	LongScore  Number `json:"long_score"`
	ShortScore Number `json:"short_score"`
}

// Payload is the inbound webhook body. Field pairs like symbol/ticker and
// tf/timeframe exist because TradingView templates and the poller disagree on
// names; accessors below apply the fallback order.
type Payload struct {
	EventID    string         `json:"event_id,omitempty"`
	Symbol     string         `json:"symbol,omitempty"`
	Ticker     string         `json:"ticker,omitempty"`
	TF         string         `json:"tf,omitempty"`
	Timeframe  string         `json:"timeframe,omitempty"`
	Timestamp  Text           `json:"timestamp,omitempty"`
	Secret     string         `json:"secret,omitempty"`
	LongScore  Number         `json:"long_score,omitempty"`
	ShortScore Number         `json:"short_score,omitempty"`
	Scores     *ScorePair     `json:"scores,omitempty"`
	Indicators map[string]any `json:"indicators,omitempty"`
	Conditions map[string]any `json:"conditions,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// DisplaySymbol resolves the symbol with the ticker fallback.
func (p *Payload) DisplaySymbol() string {
	if p.Symbol != "" {
		return p.Symbol
	}
	if p.Ticker != "" {
		return p.Ticker
	}
	return "UNKNOWN"
}

// DisplayTF resolves the timeframe with the timeframe fallback.
func (p *Payload) DisplayTF() string {
	if p.TF != "" {
		return p.TF
	}
	if p.Timeframe != "" {
		return p.Timeframe
	}
	return "unknown"
}

// CarriedScores returns the long/short scores, preferring the top-level
// fields over the nested scores object.
func (p *Payload) CarriedScores() (long, short float64) {
	long = float64(p.LongScore)
	short = float64(p.ShortScore)
	if p.Scores != nil {
		if long == 0 {
			long = float64(p.Scores.LongScore)
		}
		if short == 0 {
			short = float64(p.Scores.ShortScore)
		}
	}
	return long, short
}

// SignalConditions resolves the conditions map with the indicators fallback.
func (p *Payload) SignalConditions() map[string]any {
	if p.Indicators != nil {
		return p.Indicators
	}
	if p.Conditions != nil {
		return p.Conditions
	}
	return map[string]any{}
}

// SignalMeta returns the meta map, never nil.
func (p *Payload) SignalMeta() map[string]any {
	if p.Meta != nil {
		return p.Meta
	}
	return map[string]any{}
}
