// Package cmd wires the gminer binary's cobra command tree to the
// orchestrator, following the teacher's startup idiom (flag parsing,
// env overlay, logger construction, signal-driven shutdown) adapted
// onto spf13/cobra the way spacemeshos-post's postcli and
// weisyn-go-weisyn's root command do.
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/injective-mining/gminer/internal/config"
)

// errConfig, errChain, and errTimeout classify a run's failure for the
// process exit code: 1 for bad configuration, 2 for an unrecoverable
// chain error, 124 for a --run-duration timeout.
var (
	errConfig  = errors.New("configuration error")
	errChain   = errors.New("unrecoverable chain error")
	errTimeout = errors.New("run duration elapsed")
)

// ExitCodeFor maps a command error to the process exit code described
// in SPEC_FULL.md §6.
func ExitCodeFor(err error) int {
	switch {
	case errors.Is(err, errTimeout):
		return 124
	case errors.Is(err, errChain):
		return 2
	case errors.Is(err, errConfig):
		return 1
	default:
		return 1
	}
}

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "gminer",
	Short: "gminer mines Injective proof-of-work epochs",
	Long: `gminer runs the commit-reveal mining loop against an Injective
proof-of-work contract: it watches the chain's epoch clock, searches the
64-bit nonce space in parallel for a qualifying digest, and submits the
commit, reveal, and claim transactions in turn.`,
	RunE: runMine,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfg.Mnemonic, "mnemonic", "", "BIP-39 mnemonic for the mining account (or MNEMONIC env var)")
	flags.StringVar(&cfg.Network, "network", cfg.Network, "network to mine on (testnet|mainnet)")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of parallel nonce-search workers")
	flags.Uint64Var(&cfg.SubmissionBufferBlocks, "submission-buffer-blocks", cfg.SubmissionBufferBlocks, "minimum blocks remaining in a phase before submitting")
	flags.StringVar(&cfg.StateFile, "state-file", cfg.StateFile, "path to the durable state JSON file")
	flags.StringVar(&cfg.HistoryDB, "history-db", cfg.HistoryDB, "path to the bbolt epoch history database")
	flags.StringVar((*string)(&cfg.SignerKind), "signer", string(cfg.SignerKind), "transaction signer to use (native|bridge)")
	flags.StringVar(&cfg.ChainRESTURL, "chain-rest-url", cfg.ChainRESTURL, "base URL of the chain's REST/LCD endpoint")
	flags.StringVar(&cfg.ContractAddress, "contract-address", cfg.ContractAddress, "bech32 address of the mining contract")
	flags.StringVar(&cfg.ChainID, "chain-id", cfg.ChainID, "Cosmos chain-id")
	flags.Uint64Var(&cfg.EthChainID, "eth-chain-id", cfg.EthChainID, "EIP-712 domain chainId")
	flags.StringVar(&cfg.GasPriceInj, "gas-price", cfg.GasPriceInj, "gas price in inj (base units)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")
	flags.DurationVar(&cfg.RunDuration, "run-duration", 0, "stop after this long (0 runs until signalled)")
}

// Execute runs the command tree; main translates its error into a
// process exit code via ExitCodeFor.
func Execute() error {
	return rootCmd.Execute()
}
