package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/critterbot/config"
	"github.com/alejandrodnm/critterbot/internal/adapters/notify"
	"github.com/alejandrodnm/critterbot/internal/adapters/program"
	"github.com/alejandrodnm/critterbot/internal/adapters/rpc"
	"github.com/alejandrodnm/critterbot/internal/adapters/storage"
	"github.com/alejandrodnm/critterbot/internal/closer"
	"github.com/alejandrodnm/critterbot/internal/discovery"
	"github.com/alejandrodnm/critterbot/internal/recycler"
	"github.com/alejandrodnm/critterbot/internal/wallet"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one recycle cycle and exit")
	closeMode := flag.Bool("close", false, "close the richest closeable game and exit")
	fillMode := flag.String("fill", "", "place one bet per number on the given game and exit")
	report := flag.Bool("report", false, "print attempt history and stats, then exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full candidate table (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	if *report {
		runReport(ctx, store)
		return
	}

	w, err := wallet.FromEnvironment("SECRET_KEY")
	if err != nil {
		slog.Error("failed to load wallet", "err", err)
		os.Exit(1)
	}

	slog.Info("critterbot starting",
		"config", *configPath,
		"endpoint", cfg.RPC.Endpoint,
		"program", cfg.RPC.ProgramID,
		"wallet", w.Address(),
		"interval", cfg.CycleInterval(),
		"once", *once,
	)

	client := rpc.NewClient(cfg.RPC.Endpoint)
	ledger := rpc.NewLedger(client)
	funder := rpc.NewFunder(client)
	contract := program.New(client, ledger, w, cfg.RPC.ProgramID, cfg.RewardPolicy())
	finder := discovery.New(contract, ledger)
	notifier := notify.NewConsole(*table)

	closerCfg := closer.DefaultConfig()
	closerCfg.PollInterval = cfg.PollInterval()
	closerCfg.MaxSubmitRetries = cfg.Closer.MaxSubmitRetries
	closerCfg.MaxCycles = cfg.Closer.MaxCycles
	closerCfg.MaxTransientErrors = cfg.Closer.MaxTransientErrors
	closerCfg.BetValue = cfg.Closer.BetValue
	closerCfg.Identity = w.Address()
	controller := closer.New(closerCfg, ledger, contract)

	if *closeMode {
		runClose(ctx, finder, controller, notifier)
		return
	}
	if *fillMode != "" {
		runFill(ctx, contract, *fillMode, cfg.Closer.BetValue)
		return
	}

	recycleCfg := recycler.DefaultConfig()
	recycleCfg.CycleInterval = cfg.CycleInterval()
	recycleCfg.GameDurationSlots = cfg.Bot.GameDurationSlots
	recycleCfg.MinBalance = cfg.Bot.MinBalance
	recycleCfg.TopUpAmount = cfg.Bot.TopUpAmount
	recycleCfg.ClaimPrizes = cfg.Bot.ClaimPrizes
	recycleCfg.Once = *once

	o := recycler.New(recycleCfg, finder, controller, contract, ledger, funder, store, notifier, w.Address())
	if err := o.Run(ctx); err != nil {
		slog.Error("recycler exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("critterbot stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
