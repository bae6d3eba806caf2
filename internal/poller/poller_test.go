package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/argos97/signal-gateway/internal/score"
	"github.com/argos97/signal-gateway/internal/signal"
)

type stubSampler struct {
	mu      sync.Mutex
	sampled []string
	ratios  map[string]float64
}

func (s *stubSampler) Sample(_ context.Context, symbol string) signal.MetricSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampled = append(s.sampled, symbol)
	sample := signal.MetricSample{Symbol: symbol}
	if r, ok := s.ratios[symbol]; ok {
		sample.LongShortRatio = &r
	}
	return sample
}

type stubPublisher struct {
	mu        sync.Mutex
	published []signal.MetricSample
	results   []score.Result
}

func (p *stubPublisher) Publish(_ context.Context, sample signal.MetricSample, result score.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, sample)
	p.results = append(p.results, result)
}

func TestRunOnceProcessesSymbolsInOrder(t *testing.T) {
	sampler := &stubSampler{ratios: map[string]float64{"BTC": 1.0, "ETH": 0.5}}
	publisher := &stubPublisher{}
	p := New(sampler, publisher, []string{"BTC", "ETH"}, time.Minute, 0, zerolog.Nop())

	p.RunOnce(context.Background())

	if len(sampler.sampled) != 2 || sampler.sampled[0] != "BTC" || sampler.sampled[1] != "ETH" {
		t.Fatalf("expected sequential BTC,ETH, got %v", sampler.sampled)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(publisher.published))
	}
	// BTC: longBase 100, no funding -> (100+0)/2 = 50. ETH: longBase 50 -> 25.
	if publisher.results[0].LongScore != 50 {
		t.Fatalf("expected BTC long score 50, got %d", publisher.results[0].LongScore)
	}
	if publisher.results[1].LongScore != 25 {
		t.Fatalf("expected ETH long score 25, got %d", publisher.results[1].LongScore)
	}
}

func TestRunOnceStopsOnCancel(t *testing.T) {
	sampler := &stubSampler{}
	publisher := &stubPublisher{}
	p := New(sampler, publisher, []string{"A", "B", "C"}, time.Minute, 50*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	p.RunOnce(ctx)

	if len(sampler.sampled) >= 3 {
		t.Fatalf("expected cancellation to cut the cycle short, sampled %v", sampler.sampled)
	}
}

func TestRunStopsWhenCanceled(t *testing.T) {
	sampler := &stubSampler{}
	publisher := &stubPublisher{}
	p := New(sampler, publisher, []string{"BTC"}, 10*time.Millisecond, 0, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	err := p.Run(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if len(sampler.sampled) < 2 {
		t.Fatalf("expected at least the initial cycle plus one tick, got %d", len(sampler.sampled))
	}
}
