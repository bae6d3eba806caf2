package signal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
)

func TestEventIDDeterministic(t *testing.T) {
	p := &Payload{Symbol: "BTC", TF: "coinglass", Timestamp: "1700000000"}
	a := EventID(p)
	b := EventID(p)
	if a != b {
		t.Fatalf("expected stable fingerprint, got %s vs %s", a, b)
	}

	sum := sha256.Sum256([]byte("|BTC|coinglass|1700000000"))
	if want := hex.EncodeToString(sum[:]); a != want {
		t.Fatalf("unexpected fingerprint: got %s want %s", a, want)
	}
}

func TestEventIDUsesSuppliedID(t *testing.T) {
	base := &Payload{Symbol: "ETH", TF: "5m"}
	withID := &Payload{EventID: "abc", Symbol: "ETH", TF: "5m"}
	if EventID(base) == EventID(withID) {
		t.Fatalf("supplied event id must change the fingerprint")
	}
}

func TestPayloadDecodeTolerant(t *testing.T) {
	body := `{
		"ticker": "BTCUSDT",
		"timeframe": "15m",
		"timestamp": 1700000000,
		"long_score": "82",
		"scores": {"long_score": 10, "short_score": 18}
	}`
	var p Payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.DisplaySymbol() != "BTCUSDT" {
		t.Fatalf("expected ticker fallback, got %s", p.DisplaySymbol())
	}
	if p.DisplayTF() != "15m" {
		t.Fatalf("expected timeframe fallback, got %s", p.DisplayTF())
	}
	if p.Timestamp != "1700000000" {
		t.Fatalf("expected numeric timestamp kept literally, got %q", p.Timestamp)
	}
	long, short := p.CarriedScores()
	if long != 82 {
		t.Fatalf("top-level long_score should win, got %.0f", long)
	}
	if short != 18 {
		t.Fatalf("nested short_score should backfill, got %.0f", short)
	}
}

func TestPayloadDecodeGarbageScores(t *testing.T) {
	var p Payload
	if err := json.Unmarshal([]byte(`{"long_score":"high","short_score":null}`), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	long, short := p.CarriedScores()
	if long != 0 || short != 0 {
		t.Fatalf("garbage scores must coerce to zero, got %.0f/%.0f", long, short)
	}
}

func TestPayloadDefaults(t *testing.T) {
	var p Payload
	if p.DisplaySymbol() != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN symbol, got %s", p.DisplaySymbol())
	}
	if p.DisplayTF() != "unknown" {
		t.Fatalf("expected unknown tf, got %s", p.DisplayTF())
	}
	if c := p.SignalConditions(); c == nil || len(c) != 0 {
		t.Fatalf("expected empty conditions map, got %v", c)
	}
	if m := p.SignalMeta(); m == nil {
		t.Fatalf("expected non-nil meta map")
	}
}
