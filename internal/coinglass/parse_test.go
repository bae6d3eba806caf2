package coinglass

import (
	"math"
	"testing"
)

func TestParseFundingRateStablecoinMarginList(t *testing.T) {
	body := []byte(`{"data":[{"symbol":"BTC","stablecoin_margin_list":[
		{"exchange":"Binance","funding_rate":0.001},
		{"exchange":"OKX","funding_rate":0.003}
	]}]}`)
	got := parseFundingRate(body)
	if got == nil {
		t.Fatalf("expected funding rate, got nil")
	}
	if math.Abs(*got-0.002) > 1e-12 {
		t.Fatalf("expected mean 0.002, got %f", *got)
	}
}

func TestParseFundingRateNestedList(t *testing.T) {
	body := []byte(`{"data":[{"list":[{"fundingRate":"0.0010"},{"rate":0.0030}]}]}`)
	got := parseFundingRate(body)
	if got == nil || math.Abs(*got-0.002) > 1e-12 {
		t.Fatalf("expected mean 0.002 from nested list, got %v", got)
	}
}

func TestParseFundingRateExchanges(t *testing.T) {
	body := []byte(`{"data":[{"exchanges":[{"funding":0.002}]}]}`)
	got := parseFundingRate(body)
	if got == nil || *got != 0.002 {
		t.Fatalf("expected 0.002 from exchanges shape, got %v", got)
	}
}

func TestParseFundingRateFlattensNestedArrays(t *testing.T) {
	body := []byte(`{"data":[[{"funding_rate":0.002}],{"funding_rate":0.004}]}`)
	got := parseFundingRate(body)
	if got == nil || math.Abs(*got-0.003) > 1e-12 {
		t.Fatalf("expected mean 0.003 from flattened data, got %v", got)
	}
}

func TestParseFundingRateEntriesWithoutValuesCountAsZero(t *testing.T) {
	body := []byte(`{"data":[{"list":[{"funding_rate":0.004},{"exchange":"NoRate"}]}]}`)
	got := parseFundingRate(body)
	if got == nil || math.Abs(*got-0.002) > 1e-12 {
		t.Fatalf("expected mean 0.002 with zero-counted entry, got %v", got)
	}
}

func TestParseFundingRateEmptyMatchedListIsTerminal(t *testing.T) {
	// The wrapper object must not leak into the average as a zero entry
	// when the matched exchange list is empty.
	cases := [][]byte{
		[]byte(`{"data":[{"symbol":"BTC","stablecoin_margin_list":[]}]}`),
		[]byte(`{"data":[{"list":[]}]}`),
		[]byte(`{"data":[{"exchanges":[]}]}`),
	}
	for _, body := range cases {
		if got := parseFundingRate(body); got != nil {
			t.Fatalf("expected nil for empty matched list %s, got %f", body, *got)
		}
	}
}

func TestParseFundingRateNoData(t *testing.T) {
	cases := [][]byte{
		[]byte(`{}`),
		[]byte(`{"data":[]}`),
		[]byte(`{"data":"oops"}`),
		[]byte(`not json`),
	}
	for _, body := range cases {
		if got := parseFundingRate(body); got != nil {
			t.Fatalf("expected nil for %s, got %f", body, *got)
		}
	}
}

func TestParseLongShortRatioDataArray(t *testing.T) {
	body := []byte(`{"data":[
		{"time":1,"long_short_ratio":0.61},
		{"time":2,"long_short_ratio":0.70}
	]}`)
	got := parseLongShortRatio(body)
	if got == nil || *got != 0.70 {
		t.Fatalf("expected most recent point 0.70, got %v", got)
	}
}

func TestParseLongShortRatioTopLevelArray(t *testing.T) {
	body := []byte(`[{"long_ratio":"0.55"}]`)
	got := parseLongShortRatio(body)
	if got == nil || *got != 0.55 {
		t.Fatalf("expected 0.55 from top-level array, got %v", got)
	}
}

func TestParseLongShortRatioPointsObject(t *testing.T) {
	body := []byte(`{"data":{"points":[{"value":0.42}]}}`)
	got := parseLongShortRatio(body)
	if got == nil || *got != 0.42 {
		t.Fatalf("expected 0.42 from data.points, got %v", got)
	}
}

func TestParseLongShortRatioPositionalPoint(t *testing.T) {
	body := []byte(`{"data":[[1700000000, 0.66]]}`)
	got := parseLongShortRatio(body)
	if got == nil || *got != 0.66 {
		t.Fatalf("expected 0.66 from positional point, got %v", got)
	}
}

func TestParseLongShortRatioZeroIsNotPresent(t *testing.T) {
	body := []byte(`{"data":[{"long_short_ratio":0}]}`)
	if got := parseLongShortRatio(body); got != nil {
		t.Fatalf("zero ratio must read as no data, got %f", *got)
	}
}

func TestParseLongShortRatioNoData(t *testing.T) {
	cases := [][]byte{
		[]byte(`{}`),
		[]byte(`{"data":[]}`),
		[]byte(`{"data":[{"note":"no ratio here"}]}`),
		[]byte(`garbage`),
	}
	for _, body := range cases {
		if got := parseLongShortRatio(body); got != nil {
			t.Fatalf("expected nil for %s, got %f", body, *got)
		}
	}
}
