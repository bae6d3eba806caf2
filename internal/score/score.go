// Package score maps raw market metrics onto long/short bias scores.
package score

import (
	"math"

	"github.com/argos97/signal-gateway/internal/signal"
)

// fundingFullScale is the funding rate that saturates the funding
// contribution at ±50. Typical perp funding stays inside ±0.003.
const fundingFullScale = 0.003

// Result carries both directional scores. shortScore is 100-longScore by
// construction, so the two always sum to 100.
type Result struct {
	LongScore  int
	ShortScore int
}

// Compute derives the scores for one metric sample. Missing funding defaults
// to 0 and missing ratio to 0.5, the neutral midpoint: absent data must read
// as "no evidence", not as an extreme.
//
// The funding rate maps linearly onto [-50, 50], the long/short ratio onto
// [0, 100]; the two are averaged with equal weight, so funding can shift the
// sentiment base by at most ±25 points. Rounding is math.Round (half away
// from zero); every negative intermediate clamps to 0 afterwards, so the
// result matches half-up rounding exactly.
func Compute(sample signal.MetricSample) Result {
	fr := 0.0
	if sample.FundingRate != nil {
		fr = *sample.FundingRate
	}
	lsr := 0.5
	if sample.LongShortRatio != nil {
		lsr = *sample.LongShortRatio
	}

	frScore := clamp(fr/fundingFullScale*50, -50, 50)
	longBase := clamp(lsr, 0, 1) * 100

	long := int(clamp(math.Round((longBase+frScore)/2), 0, 100))
	return Result{LongScore: long, ShortScore: 100 - long}
}

// Final reduces a result to the delivered score and side. Ties favor long.
func (r Result) Final() (score int, side string) {
	if r.LongScore >= r.ShortScore {
		return r.LongScore, "long"
	}
	return r.ShortScore, "short"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
