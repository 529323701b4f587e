// Package config holds the miner's immutable runtime configuration.
package config

import (
	"fmt"
	"os"
	"time"
)

// SignerKind selects which txsigner.Signer implementation the mine
// command constructs at startup and hands to the orchestrator.
type SignerKind string

const (
	SignerNative SignerKind = "native"
	SignerBridge SignerKind = "bridge"
)

// Config is built once in main and passed by reference. Nothing in the
// miner mutates it after construction; values that change at runtime
// live elsewhere (committed epochs and the pending reveal in
// state.DurableState, the account sequence in the broadcaster's cache).
type Config struct {
	Mnemonic string
	Network  string // "testnet" | "mainnet"

	Workers                int
	SubmissionBufferBlocks uint64

	StateFile string
	HistoryDB string

	SignerKind SignerKind

	ChainRESTURL    string
	ContractAddress string
	ChainID         string // Cosmos chain-id, e.g. "injective-888"
	EthChainID      uint64 // EIP-712 domain chainId, e.g. 1439

	GasPriceInj string // decimal string, denom "inj"

	LogLevel string

	RunDuration time.Duration // 0 means run until signalled
}

// Default returns a Config with sensible testnet defaults. Callers
// overlay CLI flags and environment variables on top of this before
// calling Validate.
func Default() *Config {
	return &Config{
		Network:                "testnet",
		Workers:                4,
		SubmissionBufferBlocks: 8,
		StateFile:              ".gminer/state.json",
		HistoryDB:              ".gminer/history.db",
		SignerKind:             SignerNative,
		ChainRESTURL:           "https://testnet.sentry.lcd.injective.network:443",
		ContractAddress:        "inj1mdq8lej6n35lp977w9nvc7mglwc3tqh5cms42y",
		ChainID:                "injective-888",
		EthChainID:             1439,
		GasPriceInj:            "500000000",
		LogLevel:               "info",
	}
}

// ApplyEnv overlays environment variables the spec allows to substitute
// for CLI flags. MNEMONIC is the only one.
func (c *Config) ApplyEnv() {
	if c.Mnemonic == "" {
		if m := os.Getenv("MNEMONIC"); m != "" {
			c.Mnemonic = m
		}
	}
}

// Validate checks the config for errors that should abort startup with
// exit code 1 before any chain I/O or key derivation is attempted.
func (c *Config) Validate() error {
	if c.Mnemonic == "" {
		return fmt.Errorf("mnemonic is required (--mnemonic or MNEMONIC env var)")
	}
	if c.Network != "testnet" && c.Network != "mainnet" {
		return fmt.Errorf("network must be 'testnet' or 'mainnet', got %q", c.Network)
	}
	if c.Workers < 1 || c.Workers > 1000 {
		return fmt.Errorf("workers must be in [1, 1000], got %d", c.Workers)
	}
	if c.SubmissionBufferBlocks == 0 {
		return fmt.Errorf("submission-buffer-blocks must be at least 1")
	}
	if c.StateFile == "" {
		return fmt.Errorf("state-file is required")
	}
	if c.SignerKind != SignerNative && c.SignerKind != SignerBridge {
		return fmt.Errorf("signer must be 'native' or 'bridge', got %q", c.SignerKind)
	}
	if c.ContractAddress == "" {
		return fmt.Errorf("contract-address is required")
	}
	if c.ChainRESTURL == "" {
		return fmt.Errorf("chain-rest-url is required")
	}
	return nil
}
