// Package orchestrator is the top-level epoch state machine. It is the
// single owner of its own epoch state, best solution and commitment;
// every other component either produces events it consumes or is called
// synchronously from its own event loop goroutine, so none of those
// fields need a mutex. Committed-epoch history and the pending-reveal
// record live in state.Store, and the sequence cache in the Broadcaster,
// each behind that component's own lock.
package orchestrator

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/injective-mining/gminer/internal/broadcaster"
	"github.com/injective-mining/gminer/internal/chainapi"
	"github.com/injective-mining/gminer/internal/chainclock"
	"github.com/injective-mining/gminer/internal/commitment"
	"github.com/injective-mining/gminer/internal/drillx"
	"github.com/injective-mining/gminer/internal/miner"
	"github.com/injective-mining/gminer/internal/partition"
	"github.com/injective-mining/gminer/internal/state"
	"github.com/injective-mining/gminer/internal/txsigner"
)

// State is one node of the epoch state machine described in
// SPEC_FULL.md §4.7.
type State int

const (
	StateIdle State = iota
	StateMining
	StateCommitting
	StateCommitted
	StateRevealing
	StateRevealed
	StateClaiming
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMining:
		return "mining"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateRevealing:
		return "revealing"
	case StateRevealed:
		return "revealed"
	case StateClaiming:
		return "claiming"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// maxSafeJSONInt is 2^53-1, the largest integer a JSON number survives
// unchanged through a float64-based decoder.
const maxSafeJSONInt = uint64(1)<<53 - 1

// Clock is the subset of *chainclock.Clock the orchestrator depends
// on; satisfied structurally so tests can supply a fake.
type Clock interface {
	Observations() <-chan chainclock.Observation
	Stalled() <-chan bool
	Run(ctx context.Context)
}

// Broadcaster is the subset of *broadcaster.Broadcaster the
// orchestrator depends on.
type Broadcaster interface {
	Prime(ctx context.Context, addr string) error
	Sequence() (accountNumber, sequence uint64, ok bool)
	Broadcast(ctx context.Context, addr string, gas uint64, sign broadcaster.SignFunc) (broadcaster.Result, error)
}

// Config holds the orchestrator's static, immutable parameters.
type Config struct {
	MinerAddress           string
	ContractAddress        string
	ChainID                string
	EthChainID             uint64
	WorkerCount            int
	SubmissionBufferBlocks uint64
	Difficulty             uint32
	GasPrice               string
}

// Orchestrator drives one miner's participation across epochs.
type Orchestrator struct {
	cfg Config

	logger      *zap.Logger
	clock       Clock
	hasher      drillx.Hasher
	signer      txsigner.Signer
	broadcaster Broadcaster
	store       *state.Store
	history     *state.History

	state           State
	epoch           uint64
	phase           chainapi.Phase
	blocksRemaining uint64

	pool       *miner.Pool
	solutions  <-chan miner.Solution
	haveBest   bool
	best       miner.Solution
	salt       [commitment.SaltSize]byte
	commitment commitment.Commitment
}

// New constructs an Orchestrator. Call Run to drive it.
func New(cfg Config, logger *zap.Logger, clock Clock, hasher drillx.Hasher, signer txsigner.Signer, bc Broadcaster, store *state.Store, history *state.History) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		logger:      logger,
		clock:       clock,
		hasher:      hasher,
		signer:      signer,
		broadcaster: bc,
		store:       store,
		history:     history,
		state:       StateIdle,
	}
}

// Run drives the event loop until ctx is cancelled. On cancellation it
// raises the cancel flag for any in-flight worker pool, drains its
// solution channel, and returns ctx.Err().
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.broadcaster.Prime(ctx, o.cfg.MinerAddress); err != nil {
		o.logger.Warn("initial sequence priming failed, will retry on first broadcast", zap.Error(err))
	}

	go o.clock.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			o.shutdownPool()
			return ctx.Err()

		case obs, ok := <-o.clock.Observations():
			if !ok {
				continue
			}
			o.handleObservation(ctx, obs)

		case stalled, ok := <-o.clock.Stalled():
			if ok && stalled {
				o.logger.Warn("chain clock stalled; pausing submissions, workers keep running")
			}

		case sol, ok := <-o.solutions:
			if ok {
				o.handleSolution(sol)
			}
		}
	}
}

func (o *Orchestrator) handleObservation(ctx context.Context, obs chainclock.Observation) {
	if obs.Epoch.EpochID != o.epoch {
		o.onEpochAdvance(obs.Epoch.EpochID)
	}
	o.phase = obs.Epoch.Phase
	if obs.Epoch.EndHeight > obs.Height {
		o.blocksRemaining = obs.Epoch.EndHeight - obs.Height
	} else {
		o.blocksRemaining = 0
	}

	switch o.state {
	case StateIdle:
		o.tryStartMining(ctx, obs.Epoch)
	case StateMining:
		o.tryCommit(ctx)
	case StateCommitted:
		o.tryReveal(ctx)
	case StateRevealed:
		o.tryClaim(ctx)
	}
}

func (o *Orchestrator) onEpochAdvance(newEpoch uint64) {
	if o.state != StateIdle && o.state != StateDone {
		o.logger.Warn("epoch advanced mid-flight; forfeiting",
			zap.Uint64("epoch", o.epoch), zap.Stringer("state", o.state))
		o.recordMissed(o.epoch)
	}
	o.shutdownPool()
	o.epoch = newEpoch
	o.state = StateIdle
}

func (o *Orchestrator) alreadyCommitted(epoch uint64) bool {
	for _, e := range o.store.Snapshot().CommittedEpochs {
		if e == epoch {
			return true
		}
	}
	return false
}

func (o *Orchestrator) tryStartMining(ctx context.Context, epoch chainapi.EpochState) {
	if epoch.Phase != chainapi.PhaseCommit {
		return
	}
	if o.alreadyCommitted(epoch.EpochID) {
		return
	}
	if o.blocksRemaining < o.cfg.SubmissionBufferBlocks {
		return
	}

	partitions, err := partition.AllForEpoch(o.cfg.MinerAddress, epoch.EpochID, o.cfg.WorkerCount)
	if err != nil {
		o.logger.Error("failed to build partitions", zap.Error(err))
		return
	}

	difficulty := epoch.Difficulty
	if difficulty == 0 {
		difficulty = o.cfg.Difficulty
	}

	o.pool = miner.New(o.logger, o.hasher)
	o.pool.Start(epoch.Challenge, difficulty, partitions)
	o.solutions = o.pool.Solutions()
	o.haveBest = false
	o.state = StateMining
	o.logger.Info("mining started", zap.Uint64("epoch", epoch.EpochID), zap.Uint32("difficulty", difficulty))
}

func (o *Orchestrator) handleSolution(sol miner.Solution) {
	if o.state != StateMining {
		return
	}
	if !o.haveBest || sol.LeadingZeroBits > o.best.LeadingZeroBits {
		o.haveBest = true
		o.best = sol
	}
}

func (o *Orchestrator) tryCommit(ctx context.Context) {
	if o.phase != chainapi.PhaseCommit {
		o.logger.Warn("commit phase ended without a broadcast solution", zap.Uint64("epoch", o.epoch))
		o.shutdownPool()
		o.state = StateIdle
		return
	}
	if o.blocksRemaining < o.cfg.SubmissionBufferBlocks {
		o.logger.Warn("submission buffer exceeded; skipping epoch",
			zap.Uint64("epoch", o.epoch), zap.Uint64("blocks_remaining", o.blocksRemaining))
		o.shutdownPool()
		o.state = StateIdle
		return
	}
	if !o.haveBest {
		return
	}

	o.shutdownPool()
	o.state = StateCommitting
	o.doCommit(ctx)
}

func (o *Orchestrator) doCommit(ctx context.Context) {
	c, err := commitment.Build(o.cfg.MinerAddress, o.best.Nonce, o.best.Digest)
	if err != nil {
		o.logger.Error("failed to build commitment", zap.Error(err))
		o.state = StateIdle
		return
	}
	o.salt = c.Salt
	o.commitment = c

	gas := uint64(broadcaster.GasCommit)
	res, err := o.broadcaster.Broadcast(ctx, o.cfg.MinerAddress, gas, func(seq, gas uint64) ([]byte, error) {
		return o.signExecute(seq, gas, map[string]any{
			"commit_solution": map[string]any{
				"commitment": base64.StdEncoding.EncodeToString(c.Hash[:]),
			},
		})
	})
	if err != nil {
		o.logger.Error("commit broadcast failed", zap.Error(err))
		o.state = StateIdle
		return
	}
	if !broadcastAccepted(res) {
		o.logger.Warn("commit rejected on-chain", zap.Uint32("code", res.Code), zap.String("log", res.RawLog))
		o.recordMissed(o.epoch)
		o.state = StateIdle
		return
	}

	epoch := o.epoch
	err = o.store.Mutate(func(s *state.DurableState) {
		s.LastSeenEpoch = epoch
		s.CommittedEpochs = append(s.CommittedEpochs, epoch)
		s.PendingReveal = &state.PendingReveal{
			Epoch:  epoch,
			Nonce:  state.EncodeNonceDecimal(o.best.Nonce),
			Digest: state.EncodeDigestBase64(o.best.Digest),
			Salt:   state.EncodeDigestBase64(o.salt),
		}
	})
	if err != nil {
		o.logger.Error("failed to persist commit state", zap.Error(err))
	}
	if err := o.history.Record(state.EpochRecord{EpochID: epoch, Outcome: state.OutcomeCommitted, CommitTxHash: res.TxHash, RecordedAt: recordTime()}); err != nil {
		o.logger.Warn("failed to record commit in history", zap.Error(err))
	}

	o.logger.Info("commit accepted", zap.Uint64("epoch", epoch), zap.String("tx_hash", res.TxHash))
	o.state = StateCommitted
}

func (o *Orchestrator) tryReveal(ctx context.Context) {
	switch o.phase {
	case chainapi.PhaseReveal:
		if o.blocksRemaining < o.cfg.SubmissionBufferBlocks {
			o.logger.Warn("reveal submission buffer exceeded; forfeiting", zap.Uint64("epoch", o.epoch))
			o.recordMissed(o.epoch)
			o.state = StateIdle
			return
		}
		o.state = StateRevealing
		o.doReveal(ctx)
	case chainapi.PhaseSettlement:
		o.logger.Warn("settlement reached without a reveal; forfeiting", zap.Uint64("epoch", o.epoch))
		o.recordMissed(o.epoch)
		o.state = StateIdle
	}
}

func (o *Orchestrator) doReveal(ctx context.Context) {
	pending := o.store.Snapshot().PendingReveal
	if pending == nil || pending.Epoch != o.epoch {
		o.logger.Error("no pending reveal recorded for epoch; cannot reveal", zap.Uint64("epoch", o.epoch))
		o.state = StateIdle
		return
	}

	nonce, err := strconv.ParseUint(pending.Nonce, 10, 64)
	if err != nil {
		o.logger.Error("corrupt pending reveal nonce", zap.Error(err))
		o.state = StateIdle
		return
	}

	gas := uint64(broadcaster.GasReveal)
	res, err := o.broadcaster.Broadcast(ctx, o.cfg.MinerAddress, gas, func(seq, gas uint64) ([]byte, error) {
		return o.signExecute(seq, gas, map[string]any{
			"reveal_solution": map[string]any{
				"nonce":  nonceJSONValue(nonce),
				"digest": pending.Digest,
				"salt":   pending.Salt,
			},
		})
	})
	if err != nil {
		o.logger.Error("reveal broadcast failed", zap.Error(err))
		o.state = StateCommitted
		return
	}
	if !broadcastAccepted(res) {
		o.logger.Warn("reveal rejected on-chain", zap.Uint32("code", res.Code), zap.String("log", res.RawLog))
		o.recordMissed(o.epoch)
		o.state = StateIdle
		return
	}

	epoch := o.epoch
	if err := o.store.Mutate(func(s *state.DurableState) {
		s.PendingReveal = nil
	}); err != nil {
		o.logger.Error("failed to clear pending reveal", zap.Error(err))
	}
	if err := o.history.Record(state.EpochRecord{EpochID: epoch, Outcome: state.OutcomeRevealed, RevealTxHash: res.TxHash, RecordedAt: recordTime()}); err != nil {
		o.logger.Warn("failed to record reveal in history", zap.Error(err))
	}

	o.logger.Info("reveal accepted", zap.Uint64("epoch", epoch), zap.String("tx_hash", res.TxHash))
	o.state = StateRevealed
}

func (o *Orchestrator) tryClaim(ctx context.Context) {
	if o.phase != chainapi.PhaseSettlement {
		return
	}
	o.state = StateClaiming
	o.maybeAdvanceEpoch(ctx)
	o.doClaim(ctx)
}

// maybeAdvanceEpoch attempts advance_epoch defensively once per observed
// settlement transition, swallowing "not authorized"/no-op errors: chain
// policy may already run this step via an external keeper (§9).
func (o *Orchestrator) maybeAdvanceEpoch(ctx context.Context) {
	gas := uint64(broadcaster.GasCommit)
	res, err := o.broadcaster.Broadcast(ctx, o.cfg.MinerAddress, gas, func(seq, gas uint64) ([]byte, error) {
		return o.signExecute(seq, gas, map[string]any{"advance_epoch": map[string]any{}})
	})
	if err != nil {
		o.logger.Debug("advance_epoch call failed, continuing", zap.Error(err))
		return
	}
	if !broadcastAccepted(res) {
		o.logger.Debug("advance_epoch rejected (likely already advanced), continuing", zap.String("log", res.RawLog))
	}
}

func (o *Orchestrator) doClaim(ctx context.Context) {
	epoch := o.epoch
	gas := uint64(broadcaster.GasClaim)
	res, err := o.broadcaster.Broadcast(ctx, o.cfg.MinerAddress, gas, func(seq, gas uint64) ([]byte, error) {
		return o.signExecute(seq, gas, map[string]any{
			"claim_reward": map[string]any{"epoch": nonceJSONValue(epoch)},
		})
	})
	if err != nil {
		o.logger.Error("claim broadcast failed", zap.Error(err))
		o.state = StateRevealed
		return
	}
	if !broadcastAccepted(res) {
		o.logger.Warn("claim rejected on-chain", zap.Uint32("code", res.Code), zap.String("log", res.RawLog))
		o.recordMissed(epoch)
		o.state = StateIdle
		return
	}

	if err := o.history.Record(state.EpochRecord{EpochID: epoch, Outcome: state.OutcomeClaimed, ClaimTxHash: res.TxHash, RecordedAt: recordTime()}); err != nil {
		o.logger.Warn("failed to record claim in history", zap.Error(err))
	}
	o.logger.Info("claim accepted", zap.Uint64("epoch", epoch), zap.String("tx_hash", res.TxHash))
	o.state = StateDone
}

func (o *Orchestrator) signExecute(sequence, gas uint64, execMsg any) ([]byte, error) {
	accNum, _, _ := o.broadcaster.Sequence()
	signed, err := o.signer.Sign(txsigner.ExecuteRequest{
		SenderAddr:    o.signer.Address(),
		ContractAddr:  o.cfg.ContractAddress,
		ExecMsg:       execMsg,
		AccountNumber: accNum,
		Sequence:      sequence,
		ChainID:       o.cfg.ChainID,
		EthChainID:    o.cfg.EthChainID,
		Fee: txsigner.Fee{
			Amount: []txsigner.Coin{{Denom: "inj", Amount: o.cfg.GasPrice}},
			Gas:    gas,
		},
	})
	if err != nil {
		return nil, err
	}
	return signed.TxBytes, nil
}

func (o *Orchestrator) recordMissed(epoch uint64) {
	if err := o.history.Record(state.EpochRecord{EpochID: epoch, Outcome: state.OutcomeMissed, RecordedAt: recordTime()}); err != nil {
		o.logger.Warn("failed to record missed epoch in history", zap.Error(err))
	}
}

func (o *Orchestrator) shutdownPool() {
	if o.pool == nil {
		return
	}
	o.pool.Cancel()
	o.pool.Wait()
	o.pool.Drain()
	o.pool = nil
	o.solutions = nil
}

// nonceJSONValue renders n as a JSON number when it fits losslessly in
// a float64-backed decoder, or as a decimal string above that
// threshold — the exact rule SPEC_FULL.md §6 specifies for nonce and
// epoch fields in contract-execute messages.
func nonceJSONValue(n uint64) any {
	if n > maxSafeJSONInt {
		return strconv.FormatUint(n, 10)
	}
	return n
}

// broadcastAccepted treats an explicit "already committed"-style
// contract rejection as success for state purposes (§7), since
// re-driving that epoch would only waste retries.
func broadcastAccepted(res broadcaster.Result) bool {
	if res.Code == 0 {
		return true
	}
	return strings.Contains(strings.ToLower(res.RawLog), "already committed")
}

func recordTime() time.Time {
	return time.Now().UTC()
}
