package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/injective-mining/gminer/internal/broadcaster"
	"github.com/injective-mining/gminer/internal/chainapi"
	"github.com/injective-mining/gminer/internal/chainclock"
	"github.com/injective-mining/gminer/internal/drillx"
	"github.com/injective-mining/gminer/internal/orchestrator"
	"github.com/injective-mining/gminer/internal/state"
	"github.com/injective-mining/gminer/internal/txsigner"
	"github.com/injective-mining/gminer/internal/wallet"
)

func runMine(_ *cobra.Command, _ []string) error {
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errConfig, err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: setup logger: %v", errConfig, err)
	}
	defer logger.Sync()

	logger.Info("starting gminer",
		zap.String("network", cfg.Network),
		zap.String("contract_address", cfg.ContractAddress),
		zap.Int("workers", cfg.Workers),
	)
	if cfg.Network != "mainnet" {
		logger.Warn("not running on mainnet", zap.String("network", cfg.Network))
	}

	w, err := wallet.FromMnemonic(cfg.Mnemonic, "")
	if err != nil {
		return fmt.Errorf("%w: derive wallet: %v", errConfig, err)
	}

	var signer txsigner.Signer
	switch cfg.SignerKind {
	case "bridge":
		signer = txsigner.NewBridgeSigner(w.Address())
	default:
		signer, err = txsigner.NewNativeSigner(w)
		if err != nil {
			return fmt.Errorf("%w: construct signer: %v", errConfig, err)
		}
	}

	store, err := state.Load(cfg.StateFile)
	if err != nil {
		return fmt.Errorf("%w: load durable state: %v", errConfig, err)
	}
	history, err := state.OpenHistory(cfg.HistoryDB, logger)
	if err != nil {
		return fmt.Errorf("%w: open history database: %v", errConfig, err)
	}
	defer history.Close()

	client := chainapi.New(cfg.ChainRESTURL, cfg.ContractAddress, 10*time.Second)
	clock := chainclock.New(client, logger)
	bc := broadcaster.New(client, logger)

	orch := orchestrator.New(orchestrator.Config{
		MinerAddress:           signer.Address(),
		ContractAddress:        cfg.ContractAddress,
		ChainID:                cfg.ChainID,
		EthChainID:             cfg.EthChainID,
		WorkerCount:            cfg.Workers,
		SubmissionBufferBlocks: cfg.SubmissionBufferBlocks,
		GasPrice:               cfg.GasPriceInj,
	}, logger, clock, drillx.PlaceholderHasher{}, signer, bc, store, history)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RunDuration > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, cfg.RunDuration)
		defer timeoutCancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	runErr := orch.Run(ctx)
	switch {
	case runErr == nil, runErr == context.Canceled:
		return nil
	case runErr == context.DeadlineExceeded:
		return fmt.Errorf("%w", errTimeout)
	default:
		return fmt.Errorf("%w: %v", errChain, runErr)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	c := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return c.Build()
}
