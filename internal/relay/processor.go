// Package relay implements the webhook ingestion endpoint: authenticate,
// deduplicate, acknowledge immediately, evaluate asynchronously.
package relay

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/argos97/signal-gateway/internal/metrics"
	"github.com/argos97/signal-gateway/internal/notify"
	"github.com/argos97/signal-gateway/internal/signal"
	"github.com/argos97/signal-gateway/internal/store"
)

// Collection names in the downstream record store.
const (
	CollectionWebhookLog = "WebhookLog"
	CollectionSignals    = "signals"
)

type job struct {
	id      string
	eventID string
	payload *signal.Payload
}

// Processor runs the deferred phase of webhook handling on a bounded worker
// pool. Jobs for different events run concurrently with no ordering
// guarantee; once started, a job runs to completion — there is no
// cancellation.
type Processor struct {
	records  store.RecordStore
	dedup    store.Deduper
	dedupTTL time.Duration
	notifier notify.Notifier
	minScore int
	log      zerolog.Logger

	jobs    chan job
	workers sync.WaitGroup
	pending sync.WaitGroup
	now     func() time.Time
}

// ProcessorOptions collects the processor's collaborators and knobs. Dedup
// and Notifier are optional; nil disables them.
type ProcessorOptions struct {
	Records   store.RecordStore
	Dedup     store.Deduper
	DedupTTL  time.Duration
	Notifier  notify.Notifier
	MinScore  int
	Workers   int
	QueueSize int
	Log       zerolog.Logger
}

// NewProcessor builds and starts the worker pool.
func NewProcessor(opts ProcessorOptions) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.MinScore <= 0 {
		opts.MinScore = 70
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = signal.SignalTTL
	}
	p := &Processor{
		records:  opts.Records,
		dedup:    opts.Dedup,
		dedupTTL: opts.DedupTTL,
		notifier: opts.Notifier,
		minScore: opts.MinScore,
		log:      opts.Log,
		jobs:     make(chan job, opts.QueueSize),
		now:      time.Now,
	}
	for i := 0; i < opts.Workers; i++ {
		p.workers.Add(1)
		go p.work()
	}
	return p
}

// Enqueue hands an acknowledged payload to the pool. Blocks when the queue is
// full, which bounds memory under a delivery flood.
func (p *Processor) Enqueue(eventID string, payload *signal.Payload) {
	p.pending.Add(1)
	p.jobs <- job{id: uuid.NewString(), eventID: eventID, payload: payload}
}

// Wait blocks until every enqueued job has finished. Test hook and shutdown
// aid; new enqueues during the wait are waited on too.
func (p *Processor) Wait() {
	p.pending.Wait()
}

// Close drains the pool. Enqueue must not be called after Close.
func (p *Processor) Close() {
	close(p.jobs)
	p.workers.Wait()
}

func (p *Processor) work() {
	defer p.workers.Done()
	for j := range p.jobs {
		p.run(j)
		p.pending.Done()
	}
}

// run evaluates one event. Everything in here is best-effort: store and
// notification failures are logged and swallowed, and a panic becomes a
// terminal "error" audit entry for the event.
func (p *Processor) run(j job) {
	// The deferred phase outlives the request; per-call timeouts live in the
	// collaborator clients.
	ctx := context.Background()
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Str("job", j.id).Str("event_id", j.eventID).Interface("panic", rec).Msg("evaluation failed")
			p.writeLog(ctx, j, signal.StatusError, fmt.Sprintf("%v", rec))
		}
	}()

	long, short := j.payload.CarriedScores()
	final := long
	side := "long"
	if short > long {
		final = short
		side = "short"
	}

	// The gate compares the sender's raw value; fractional scores just under
	// the threshold must not slip through via rounding.
	if final < float64(p.minScore) {
		p.log.Info().Str("event_id", j.eventID).Float64("score", final).Msg("ignored low score")
		p.writeLog(ctx, j, signal.StatusIgnoredLow, "")
		return
	}

	now := p.now().UTC()
	rec := signal.Record{
		EventID:    j.eventID,
		Symbol:     j.payload.DisplaySymbol(),
		TF:         j.payload.DisplayTF(),
		Side:       side,
		Score:      int(math.Round(final)),
		Conditions: j.payload.SignalConditions(),
		Meta:       j.payload.SignalMeta(),
		Status:     "active",
		CreatedAt:  now,
		ExpiresAt:  now.Add(signal.SignalTTL),
	}

	duplicate := false
	if p.dedup != nil {
		claimed, err := p.dedup.PutIfAbsent(ctx, j.eventID, p.dedupTTL)
		if err != nil {
			// Fail open: a broken guard must not stop signal delivery.
			p.log.Warn().Err(err).Str("event_id", j.eventID).Msg("dedup check failed")
		} else {
			duplicate = !claimed
		}
	}

	if duplicate {
		p.log.Info().Str("event_id", j.eventID).Msg("duplicate delivery, signal creation skipped")
	} else {
		if err := p.records.CreateRecord(ctx, CollectionSignals, rec); err != nil {
			p.log.Error().Err(err).Str("event_id", j.eventID).Msg("signal store failed")
		} else {
			p.log.Info().Str("event_id", j.eventID).Str("symbol", rec.Symbol).Int("score", rec.Score).Msg("signal stored")
		}
	}

	p.writeLog(ctx, j, signal.StatusProcessed, "")

	// Notification is not gated on persistence success, only on the
	// duplicate guard.
	if !duplicate && p.notifier != nil {
		if err := p.notifier.Send(ctx, notify.SignalText(rec)); err != nil {
			p.log.Warn().Err(err).Str("event_id", j.eventID).Msg("notification failed")
		}
	}
}

func (p *Processor) writeLog(ctx context.Context, j job, status signal.Status, errMsg string) {
	now := p.now().UTC()
	entry := signal.LogEntry{
		EventID:      j.eventID,
		Payload:      j.payload,
		Source:       signal.SourceServer,
		Status:       status,
		Attempts:     1,
		ProcessedAt:  &now,
		ErrorMessage: errMsg,
	}
	if err := p.records.CreateRecord(ctx, CollectionWebhookLog, entry); err != nil {
		p.log.Warn().Err(err).Str("event_id", j.eventID).Str("status", string(status)).Msg("audit write failed")
	}
	metrics.WebhookEvents.WithLabelValues(string(status)).Inc()
}
