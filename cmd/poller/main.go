package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/argos97/signal-gateway/internal/coinglass"
	"github.com/argos97/signal-gateway/internal/config"
	"github.com/argos97/signal-gateway/internal/metrics"
	"github.com/argos97/signal-gateway/internal/poller"
	"github.com/argos97/signal-gateway/internal/publish"
	"github.com/argos97/signal-gateway/internal/retry"
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

	if err := cfg.ValidatePoller(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rc := retry.Config{
		Attempts: cfg.Retry.Attempts,
		Delay:    time.Duration(cfg.Retry.Delay) * time.Millisecond,
	}
	sampler := coinglass.NewClient(
		cfg.CoinGlass.BaseURL,
		cfg.CoinGlass.APIKey,
		time.Duration(cfg.CoinGlass.Timeout)*time.Millisecond,
		rc,
		log,
	)
	publisher := publish.NewPublisher(cfg.Relay.WebhookURL, cfg.Relay.Secret, cfg.Relay.MinScore, rc, log)

	p := poller.New(
		sampler,
		publisher,
		cfg.CoinGlass.Symbols,
		time.Duration(cfg.CoinGlass.PollInterval)*time.Millisecond,
		time.Duration(cfg.CoinGlass.SymbolPause)*time.Millisecond,
		log,
	)

	log.Info().Strs("symbols", cfg.CoinGlass.Symbols).Msg("poller started")
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("poller stopped")
	}
	log.Info().Msg("shutting down")
}
