package miner

import (
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/injective-mining/gminer/internal/drillx"
	"github.com/injective-mining/gminer/internal/partition"
)

// cancelCheckInterval is how many hashes a worker computes between
// checks of its cancellation flag. The worker must return within one
// batch of this size after cancel is raised.
const cancelCheckInterval = 4096

// worker owns exactly one partition for the duration of an epoch. It
// never shares mutable state with other workers except the cancel flag
// it reads and the channels it writes to.
type worker struct {
	id        uint32
	hasher    drillx.Hasher
	logger    *zap.Logger
	solutions chan<- Solution
	events    chan<- any // Exhausted or WorkerPanic
}

// run searches partition for a digest whose leading-zero-bit count is
// at least difficulty, starting from challenge. It locks the calling
// goroutine to its OS thread for the duration of the search, approximating
// the "one OS thread per worker" contract for a hash-heavy compute loop.
// cancel is polled every cancelCheckInterval hashes; run returns promptly
// once it is set. done is closed exactly once by Pool.Cancel and lets a
// worker blocked sending a solution on a full channel bail out immediately
// instead of waiting for its next cancelCheckInterval poll.
func (w *worker) run(challenge [32]byte, difficulty uint32, p partition.Partition, cancel *atomic.Bool, done <-chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker panicked", zap.Uint32("worker_id", w.id), zap.Any("reason", r))
			select {
			case w.events <- WorkerPanic{WorkerID: w.id, Reason: r}:
			default:
			}
		}
	}()

	scratch := drillx.NewScratch()
	nonce := p.Start
	lastNonce := p.End
	if !p.Inclusive() {
		lastNonce = p.End - 1
	}
	count := uint64(0)

	for {
		if count%cancelCheckInterval == 0 && cancel.Load() {
			return
		}

		digest := w.hasher.Hash(challenge, nonce, scratch)
		if lz := drillx.LeadingZeroBits(digest); lz >= difficulty {
			sol := Solution{WorkerID: w.id, Nonce: nonce, Digest: digest, LeadingZeroBits: lz}
			select {
			case w.solutions <- sol:
			case <-done:
				return
			}
			// Keep searching: a better solution may still exist before
			// the commit cut-off. The orchestrator picks the best one.
		}

		count++
		if nonce == lastNonce {
			break
		}
		nonce++
	}

	select {
	case w.events <- Exhausted{WorkerID: w.id}:
	default:
	}
}
