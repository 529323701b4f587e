// Package broadcaster serializes transaction submission to the chain,
// owning the account's sequence cache and retrying the handful of
// transient failure codes the chain is known to return.
package broadcaster

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/injective-mining/gminer/internal/chainapi"
)

// Chain error codes the broadcaster knows how to recover from.
const (
	codeSignatureOrSequence1 = 4
	codeSequenceMismatch     = 32
	codeOutOfGas             = 11
)

const (
	broadcastTimeout = 30 * time.Second
	maxGas           = 800000

	// GasCommit, GasReveal, and GasClaim are the default gas limits for
	// each transaction kind; 200k was tried for claim and observed to
	// fail on-chain, hence the higher default here.
	GasCommit = 250000
	GasReveal = 300000
	GasClaim  = 400000
)

// Result is what the orchestrator receives for a broadcast attempt.
type Result struct {
	TxHash string
	Code   uint32
	RawLog string
}

// Broadcaster owns the account's sequence cache and serializes every
// broadcast through a single mutex, so two concurrent submissions for
// the same address can never race the sequence.
type Broadcaster struct {
	client  *chainapi.Client
	logger  *zap.Logger
	limiter *rate.Limiter

	mu       sync.Mutex
	addr     string
	accNum   uint64
	sequence uint64
	primed   bool
}

// New constructs a Broadcaster. The rate limiter is sized generously
// above any legitimate per-epoch submission rate; it exists only to
// cap retry-storm amplification if a bug ever causes rapid re-broadcast.
func New(client *chainapi.Client, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// Prime seeds the sequence cache from chain truth. Call it once at
// startup and again whenever the orchestrator forces a resync.
func (b *Broadcaster) Prime(ctx context.Context, addr string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshLocked(ctx, addr)
}

func (b *Broadcaster) refreshLocked(ctx context.Context, addr string) error {
	acc, err := b.client.QueryAccount(ctx, addr)
	if err != nil {
		return err
	}
	b.addr = addr
	b.accNum = acc.AccountNumber
	b.sequence = acc.Sequence
	b.primed = true
	return nil
}

// Sequence returns the cached (account_number, sequence) pair a signer
// should use for its next transaction. Sign must happen before
// Broadcast so the two stay coupled to one sequence value.
func (b *Broadcaster) Sequence() (accountNumber, sequence uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accNum, b.sequence, b.primed
}

// SignFunc produces a freshly signed tx for the given sequence and gas
// limit; the broadcaster calls it again on every retry so a bumped gas
// limit or refreshed sequence is reflected in the next attempt.
type SignFunc func(sequence uint64, gas uint64) ([]byte, error)

// Broadcast signs and submits a transaction, retrying once on a stale
// sequence and once on out-of-gas, per the policy in SPEC_FULL.md §4.6.
// On success it optimistically advances the cached sequence by one.
func (b *Broadcaster) Broadcast(ctx context.Context, addr string, gas uint64, sign SignFunc) (Result, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.primed || b.addr != addr {
		if err := b.refreshLocked(ctx, addr); err != nil {
			return Result{}, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, broadcastTimeout)
	defer cancel()

	sequenceRetried := false
	gasRetried := false

	for {
		txBytes, err := sign(b.sequence, gas)
		if err != nil {
			return Result{}, err
		}

		res, err := b.client.BroadcastTx(ctx, txBytes)
		if err != nil {
			return Result{}, err
		}

		switch {
		case res.Code == 0:
			b.sequence++
			return Result{TxHash: res.TxHash, Code: res.Code, RawLog: res.RawLog}, nil

		case !sequenceRetried && (res.Code == codeSignatureOrSequence1 || res.Code == codeSequenceMismatch):
			b.logger.Debug("broadcast failed on stale sequence, refreshing and retrying",
				zap.Uint32("code", res.Code), zap.String("addr", addr))
			sequenceRetried = true
			if err := b.refreshLocked(ctx, addr); err != nil {
				return Result{}, err
			}
			continue

		case !gasRetried && res.Code == codeOutOfGas:
			gasRetried = true
			gas *= 2
			if gas > maxGas {
				gas = maxGas
			}
			b.logger.Debug("broadcast out of gas, doubling and retrying", zap.Uint64("gas", gas))
			continue

		default:
			return Result{TxHash: res.TxHash, Code: res.Code, RawLog: res.RawLog}, nil
		}
	}
}
