package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bitfsorg/constitution-go/config"
	"github.com/bitfsorg/constitution-go/host"
	"github.com/bitfsorg/constitution-go/keystore"
	"github.com/bitfsorg/constitution-go/network"
	"github.com/bitfsorg/constitution-go/payout"
	"github.com/bitfsorg/constitution-go/store"
)

// EnvKeyPassword holds the password of the treasury key file.
const EnvKeyPassword = "CONSTITUTION_KEY_PASSWORD"

// drainTimeout bounds how long a command waits for queued payouts on exit.
const drainTimeout = 2 * time.Minute

// globalFlags are shared by every subcommand.
type globalFlags struct {
	dataDir    string
	configPath string
	caller     string
}

// app is the per-invocation wiring of config, logger and runtime.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	rt       *host.Runtime
}

// loadConfig reads the config file, falling back to defaults when the file
// does not exist. --datadir overrides the file.
func loadConfig(g *globalFlags) (config.Config, error) {
	dataDir := g.dataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	path := g.configPath
	if path == "" {
		path = config.ConfigPath(dataDir)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return cfg, err
	}
	if g.dataDir != "" || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config, stderr io.Writer) (*slog.Logger, func() error, error) {
	w, closeFn, err := config.OpenLogOutput(cfg, stderr)
	if err != nil {
		return nil, nil, err
	}
	return config.NewLogger(cfg, w), closeFn, nil
}

// openApp opens the store, starts the runtime and queues payouts left in
// the outbox.
func openApp(ctx context.Context, g *globalFlags, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := newLogger(cfg, stderr)
	if err != nil {
		return nil, err
	}

	sink, err := newSink(ctx, cfg, logger)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, store.DefaultFileName))
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	rt, err := host.New(st, sink, host.WithLogger(logger))
	if err != nil {
		_ = st.Close()
		_ = closeLog()
		return nil, err
	}
	// Requests left over by an earlier run go out first.
	if n, err := rt.FlushPayouts(ctx); err != nil {
		logger.ErrorContext(ctx, "payout outbox not read", "error", err)
	} else if n > 0 {
		logger.InfoContext(ctx, "resumed pending payouts", "count", n)
	}
	return &app{cfg: cfg, logger: logger, closeLog: closeLog, rt: rt}, nil
}

// Close drains queued payouts and releases the store and log file.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	return errors.Join(a.rt.Close(ctx), a.closeLog())
}

// newSink returns the payout sink selected by cfg.PayoutMode.
func newSink(ctx context.Context, cfg config.Config, logger *slog.Logger) (payout.Sink, error) {
	if cfg.PayoutMode != config.PayoutModeChain {
		return payout.NewLogSink(logger), nil
	}

	client, err := newRPCClient(cfg)
	if err != nil {
		return nil, err
	}
	key, err := keystore.Load(keyPath(cfg), os.Getenv(EnvKeyPassword))
	if err != nil {
		return nil, fmt.Errorf("load treasury key (password from %s): %w", EnvKeyPassword, err)
	}
	sink, err := payout.NewChainSink(client, key, cfg.Network == "mainnet", cfg.FeeRate)
	if err != nil {
		return nil, err
	}
	if err := client.ImportAddress(ctx, sink.Treasury().String()); err != nil {
		logger.Warn("treasury address not imported", "address", sink.Treasury().String(), "error", err)
	}
	return sink, nil
}

func newRPCClient(cfg config.Config) (*network.RPCClient, error) {
	rpcCfg, err := network.ResolveConfig(&network.RPCConfig{
		URL:      cfg.RPCURL,
		User:     cfg.RPCUser,
		Password: cfg.RPCPassword,
	}, network.EnvFromOS(), cfg.Network)
	if err != nil {
		return nil, err
	}
	return network.NewRPCClient(*rpcCfg), nil
}

func keyPath(cfg config.Config) string {
	return filepath.Join(cfg.DataDir, keystore.DefaultFileName)
}
