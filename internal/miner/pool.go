// Package miner runs the parallel nonce search: a pool of workers, each
// bound to one partition of the 64-bit nonce space, searching for a
// digest that meets the epoch's difficulty threshold.
package miner

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/injective-mining/gminer/internal/drillx"
	"github.com/injective-mining/gminer/internal/partition"
)

// Pool owns a set of workers for the lifetime of a single epoch's
// search. A new Pool is created per epoch; it is not reused.
type Pool struct {
	logger *zap.Logger
	hasher drillx.Hasher

	cancel     atomic.Bool
	cancelOnce sync.Once
	done       chan struct{}
	solutions  chan Solution
	events     chan any

	wg sync.WaitGroup
}

// New constructs a Pool. hasher is injected so tests can substitute a
// cheap or deterministic implementation.
func New(logger *zap.Logger, hasher drillx.Hasher) *Pool {
	return &Pool{
		logger:    logger,
		hasher:    hasher,
		done:      make(chan struct{}),
		solutions: make(chan Solution, 64),
		events:    make(chan any, 64),
	}
}

// Start launches one goroutine per partition. Each worker searches until
// it is cancelled or exhausts its range.
func (p *Pool) Start(challenge [32]byte, difficulty uint32, partitions []partition.Partition) {
	for _, part := range partitions {
		w := &worker{
			id:        part.WorkerID,
			hasher:    p.hasher,
			logger:    p.logger,
			solutions: p.solutions,
			events:    p.events,
		}
		p.wg.Add(1)
		part := part
		go func() {
			defer p.wg.Done()
			w.run(challenge, difficulty, part, &p.cancel, p.done)
		}()
	}
}

// Solutions returns the channel workers publish candidate solutions on.
// It is single-producer-per-worker, single-consumer: only the
// orchestrator reads from it.
func (p *Pool) Solutions() <-chan Solution {
	return p.solutions
}

// Events returns the channel workers publish Exhausted and WorkerPanic
// notifications on.
func (p *Pool) Events() <-chan any {
	return p.events
}

// Cancel raises the shared cancellation flag and closes the done
// channel exactly once. The flag is observed within cancelCheckInterval
// hashes by the search loop; done unblocks a worker parked on a full
// solutions channel immediately, regardless of where it is in its loop.
func (p *Pool) Cancel() {
	p.cancel.Store(true)
	p.cancelOnce.Do(func() {
		close(p.done)
	})
}

// Wait blocks until every worker goroutine has returned. Callers should
// call Cancel first if they don't want to wait for natural exhaustion.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Drain discards any buffered solutions and events after cancellation,
// so a stale solution from a just-finished epoch can never leak into the
// next one.
func (p *Pool) Drain() {
	for {
		select {
		case <-p.solutions:
		case <-p.events:
		default:
			return
		}
	}
}
