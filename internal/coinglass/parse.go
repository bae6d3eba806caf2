package coinglass

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CoinGlass has shipped the same logical payload under several shapes across
// API revisions. Each response is run through a prioritized strategy chain;
// the first strategy that yields anything wins, and a response no strategy
// matches reads as "no data", never as an error.

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// fundingListStrategies extract the per-exchange entry list from the decoded
// data array, in priority order. A strategy that matches its shape is
// terminal even when the matched list is empty: an empty
// stablecoin_margin_list means "no data", not "try the next shape".
var fundingListStrategies = []func([]json.RawMessage) ([]json.RawMessage, bool){
	nestedListUnder("stablecoin_margin_list"),
	nestedListUnder("list"),
	nestedListUnder("exchanges"),
	flattenData,
}

// parseFundingRate averages every funding value found across exchange
// entries. Entries without a recognizable value count as zero, matching how
// the relay has always averaged this endpoint. Returns nil when no entries
// are found at all.
func parseFundingRate(body []byte) *float64 {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	var data []json.RawMessage
	if err := json.Unmarshal(env.Data, &data); err != nil || len(data) == 0 {
		return nil
	}

	var entries []json.RawMessage
	for _, strategy := range fundingListStrategies {
		if list, ok := strategy(data); ok {
			entries = list
			break
		}
	}
	if len(entries) == 0 {
		return nil
	}

	sum := 0.0
	for _, entry := range entries {
		sum += fundingValue(entry)
	}
	mean := sum / float64(len(entries))
	return &mean
}

func nestedListUnder(key string) func([]json.RawMessage) ([]json.RawMessage, bool) {
	return func(data []json.RawMessage) ([]json.RawMessage, bool) {
		var first map[string]json.RawMessage
		if err := json.Unmarshal(data[0], &first); err != nil {
			return nil, false
		}
		raw, present := first[key]
		if !present {
			return nil, false
		}
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, false
		}
		return list, true
	}
}

// flattenData splices nested arrays into one entry list and keeps plain
// entries as-is. It is the last fallback and always matches.
func flattenData(data []json.RawMessage) ([]json.RawMessage, bool) {
	out := make([]json.RawMessage, 0, len(data))
	for _, elem := range data {
		var nested []json.RawMessage
		if err := json.Unmarshal(elem, &nested); err == nil {
			out = append(out, nested...)
			continue
		}
		out = append(out, elem)
	}
	return out, true
}

// fundingValue pulls the first named funding field out of an entry, zero when
// nothing parses.
func fundingValue(entry json.RawMessage) float64 {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return 0
	}
	for _, key := range []string{"funding_rate", "fundingRate", "funding", "rate"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if v, ok := numberFrom(raw); ok && v != 0 {
			return v
		}
	}
	return 0
}

// ratioPointStrategies locate the time-ordered point list, in priority order:
// the data field as an array, the whole body as an array, then data.points.
var ratioPointStrategies = []func(body []byte) []json.RawMessage{
	func(body []byte) []json.RawMessage {
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil
		}
		var points []json.RawMessage
		if err := json.Unmarshal(env.Data, &points); err != nil {
			return nil
		}
		return points
	},
	func(body []byte) []json.RawMessage {
		var points []json.RawMessage
		if err := json.Unmarshal(body, &points); err != nil {
			return nil
		}
		return points
	},
	func(body []byte) []json.RawMessage {
		var env struct {
			Data struct {
				Points []json.RawMessage `json:"points"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil
		}
		return env.Data.Points
	},
}

// parseLongShortRatio takes the most recent point and extracts the ratio by
// candidate field name. A non-finite or exactly-zero ratio reads as "not
// present": this source never reports a true zero.
func parseLongShortRatio(body []byte) *float64 {
	var points []json.RawMessage
	for _, strategy := range ratioPointStrategies {
		if points = strategy(body); len(points) > 0 {
			break
		}
	}
	if len(points) == 0 {
		return nil
	}
	last := points[len(points)-1]

	ratio, ok := ratioFromPoint(last)
	if !ok || ratio == 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return nil
	}
	return &ratio
}

func ratioFromPoint(point json.RawMessage) (float64, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(point, &fields); err == nil {
		for _, key := range []string{"long_short_ratio", "long_ratio", "ratio", "value"} {
			raw, ok := fields[key]
			if !ok {
				continue
			}
			if v, ok := numberFrom(raw); ok && v != 0 {
				return v, true
			}
		}
		return 0, false
	}

	// Positional point: [timestamp, ratio, ...].
	var arr []json.RawMessage
	if err := json.Unmarshal(point, &arr); err == nil && len(arr) > 1 {
		if v, ok := numberFrom(arr[1]); ok {
			return v, true
		}
	}
	return 0, false
}

// numberFrom parses JSON numbers and numeric strings.
func numberFrom(raw json.RawMessage) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
