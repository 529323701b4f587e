// Package chainclock polls the chain for height and epoch-state
// changes and exposes them to the orchestrator as a monotonic stream
// of Observation values. Its backoff-on-failure loop is hand-rolled in
// the shape of the teacher's own submitBlock/discovery retry loops
// rather than pulled from a backoff library (see DESIGN.md).
package chainclock

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/injective-mining/gminer/internal/chainapi"
)

const (
	pollInterval   = 1 * time.Second
	pollTimeout    = 10 * time.Second
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	stalledAfter   = 60 * time.Second
)

// Observation is a single successful poll result.
type Observation struct {
	Height uint64
	Epoch  chainapi.EpochState
}

// Clock polls chainapi.Client on a fixed cadence and reports height
// and epoch-state observations, plus a Stalled signal when polling has
// failed continuously for longer than stalledAfter.
type Clock struct {
	client *chainapi.Client
	logger *zap.Logger

	observations chan Observation
	stalled      chan bool
}

// New constructs a Clock. Call Run to start polling.
func New(client *chainapi.Client, logger *zap.Logger) *Clock {
	return &Clock{
		client:       client,
		logger:       logger,
		observations: make(chan Observation, 1),
		stalled:      make(chan bool, 1),
	}
}

// Observations streams successful polls. Only the most recent value is
// buffered; consumers are expected to keep up or poll the channel
// promptly, mirroring a "latest observation wins" semantics.
func (c *Clock) Observations() <-chan Observation {
	return c.observations
}

// Stalled emits true when sustained polling failure crosses
// stalledAfter, and false again once polling recovers.
func (c *Clock) Stalled() <-chan bool {
	return c.stalled
}

// Run polls until ctx is cancelled. It never returns an error: all
// failures are transient-by-default and handled internally via
// backoff, surfaced only as a Stalled signal.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	delay := initialBackoff
	var firstFailure time.Time
	isStalled := false
	var lastHeight uint64
	haveHeight := false

	poll := func() {
		pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
		defer cancel()

		height, err := c.client.QueryBlockHeight(pollCtx)
		if err == nil {
			var epoch chainapi.EpochState
			epoch, err = c.client.QueryEpochState(pollCtx)
			if err == nil {
				delay = initialBackoff
				firstFailure = time.Time{}
				if isStalled {
					isStalled = false
					c.emitStalled(false)
				}
				if haveHeight && height < lastHeight {
					c.logger.Warn("chain poll returned a lower height than previously observed, discarding",
						zap.Uint64("observed_height", height), zap.Uint64("last_height", lastHeight))
					return
				}
				lastHeight = height
				haveHeight = true
				c.emitObservation(Observation{Height: height, Epoch: epoch})
				return
			}
		}

		c.logger.Warn("chain poll failed, backing off",
			zap.Error(err),
			zap.Duration("retry_in", delay),
		)
		if firstFailure.IsZero() {
			firstFailure = time.Now()
		} else if !isStalled && time.Since(firstFailure) > stalledAfter {
			isStalled = true
			c.emitStalled(true)
		}
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

func (c *Clock) emitObservation(o Observation) {
	select {
	case c.observations <- o:
	default:
		select {
		case <-c.observations:
		default:
		}
		c.observations <- o
	}
}

func (c *Clock) emitStalled(v bool) {
	select {
	case c.stalled <- v:
	default:
		select {
		case <-c.stalled:
		default:
		}
		c.stalled <- v
	}
}
