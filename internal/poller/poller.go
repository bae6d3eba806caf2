// Package poller drives the sample → score → publish cycle.
package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/argos97/signal-gateway/internal/metrics"
	"github.com/argos97/signal-gateway/internal/score"
	"github.com/argos97/signal-gateway/internal/signal"
)

// Sampler produces one metric sample per symbol per cycle.
type Sampler interface {
	Sample(ctx context.Context, symbol string) signal.MetricSample
}

// Publisher forwards a scored sample, applying its own threshold gate.
type Publisher interface {
	Publish(ctx context.Context, sample signal.MetricSample, result score.Result)
}

// Poller walks the symbol list sequentially each cycle with a fixed pause
// between symbols. The pause bounds request rate against the upstream source;
// it is a politeness policy, not a correctness requirement.
type Poller struct {
	sampler   Sampler
	publisher Publisher
	symbols   []string
	interval  time.Duration
	pause     time.Duration
	log       zerolog.Logger
}

// New constructs a poller over the given symbols.
func New(sampler Sampler, publisher Publisher, symbols []string, interval, pause time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	if pause < 0 {
		pause = 0
	}
	return &Poller{
		sampler:   sampler,
		publisher: publisher,
		symbols:   symbols,
		interval:  interval,
		pause:     pause,
		log:       log,
	}
}

// Run polls until the context is canceled. The first cycle starts
// immediately.
func (p *Poller) Run(ctx context.Context) error {
	p.RunOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single poll cycle. A failure on one symbol never aborts
// the rest of the cycle.
func (p *Poller) RunOnce(ctx context.Context) {
	p.log.Info().Strs("symbols", p.symbols).Msg("poll cycle")
	for i, symbol := range p.symbols {
		if ctx.Err() != nil {
			return
		}
		sample := p.sampler.Sample(ctx, symbol)
		result := score.Compute(sample)
		p.log.Debug().
			Str("symbol", symbol).
			Int("long", result.LongScore).
			Int("short", result.ShortScore).
			Msg("scored")
		p.publisher.Publish(ctx, sample, result)

		if i < len(p.symbols)-1 && p.pause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pause):
			}
		}
	}
	metrics.PollCycles.Inc()
}
