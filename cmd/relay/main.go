package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/argos97/signal-gateway/internal/config"
	"github.com/argos97/signal-gateway/internal/metrics"
	"github.com/argos97/signal-gateway/internal/notify"
	"github.com/argos97/signal-gateway/internal/relay"
	"github.com/argos97/signal-gateway/internal/retry"
	"github.com/argos97/signal-gateway/internal/store"
	"github.com/argos97/signal-gateway/internal/util"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		boot := util.NewLogger("info", "")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel, cfg.App.Env)

	if err := cfg.ValidateRelay(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	rc := retry.Config{
		Attempts: cfg.Retry.Attempts,
		Delay:    time.Duration(cfg.Retry.Delay) * time.Millisecond,
	}

	records := buildRecordStore(cfg, rc, log)

	var dedup store.Deduper
	if cfg.Relay.Dedup.Enabled {
		dedup = store.NewDeduper(cfg.Relay.Dedup.RedisURL)
		log.Info().Msg("idempotency guard enabled")
	}

	var notifier notify.Notifier
	if tg := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log); tg != nil {
		notifier = tg
		log.Info().Msg("telegram notifications enabled")
	}

	proc := relay.NewProcessor(relay.ProcessorOptions{
		Records:   records,
		Dedup:     dedup,
		DedupTTL:  time.Duration(cfg.Relay.Dedup.TTL) * time.Millisecond,
		Notifier:  notifier,
		MinScore:  cfg.Relay.MinScore,
		Workers:   cfg.Relay.Workers,
		QueueSize: cfg.Relay.QueueSize,
		Log:       log,
	})

	server := relay.NewServer(cfg.Relay.Secret, records, proc, log)
	httpServer := &http.Server{Addr: cfg.Relay.ListenAddr, Handler: server.Router()}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Info().Str("addr", cfg.Relay.ListenAddr).Msg("relay listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("relay server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	// Drain deferred evaluations before exiting.
	proc.Close()
}

// buildRecordStore prefers the HTTP record store and falls back to a local
// JSONL audit file so the trail survives a missing downstream.
func buildRecordStore(cfg *config.Config, rc retry.Config, log zerolog.Logger) store.RecordStore {
	if cfg.Store.BaseURL != "" && cfg.Store.APIKey != "" {
		return store.NewClient(cfg.Store.BaseURL, cfg.Store.APIKey,
			time.Duration(cfg.Store.Timeout)*time.Millisecond, rc, log)
	}
	path := cfg.Store.FallbackPath
	if path == "" {
		path = "data/webhook-log.jsonl"
	}
	jsonl, err := store.NewJSONLStore(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("open fallback audit file")
	}
	log.Warn().Str("path", path).Msg("record store not configured, using local audit file")
	return jsonl
}
