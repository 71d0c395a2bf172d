package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"tradelab/internal/api"
	"tradelab/internal/config"
	"tradelab/internal/engine"
	"tradelab/internal/marketdata"
	"tradelab/internal/store"
	"tradelab/internal/util"
)

func main() {
	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bars, closeStore, err := store.Open(ctx, store.Options{
		Backend:     cfg.Storage.Backend,
		DataDir:     cfg.Storage.DataDir,
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresURL: cfg.Storage.PostgresURL,
	})
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.Storage.Backend, err)
	}
	defer closeStore()

	source := marketdata.NewChain(marketdata.ChainOptions{
		Alpaca: marketdata.AlpacaOptions{
			APIKey:     cfg.Alpaca.APIKey,
			APISecret:  cfg.Alpaca.APISecret,
			DataURL:    cfg.Alpaca.DataURL,
			Feed:       cfg.Alpaca.Feed,
			BarMinutes: cfg.Backtest.BarMinutes,
		},
		RequestDelay:   cfg.Backtest.RequestDelay,
		MaxRetries:     cfg.Backtest.MaxRetries,
		RetryBaseDelay: cfg.Backtest.RetryBaseDelay,
	}, bars)

	eng := engine.New(source,
		engine.WithBarMinutes(cfg.Backtest.BarMinutes),
		engine.WithHalfSpread(cfg.Backtest.HalfSpread),
		engine.WithRiskFreeRate(cfg.Backtest.RiskFreeRate),
		engine.WithLogger(logger.With("component", "engine")),
	)

	slog.Info("tradelab-server starting",
		"http", cfg.Server.Port,
		"grpc", cfg.Server.GRPCPort,
		"storage", cfg.Storage.Backend,
		"alpaca", cfg.Alpaca.Enabled(),
	)

	srv := api.NewServer(cfg, eng, logger)
	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("server error", "error", err)
		closeStore()
		log.Fatal(err)
	}
}
