// Package guard rate-limits sensitive operations per key (client IP or
// submitted email), with a capped failure counter and a time-boxed block.
package guard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/crewbase/crewbase/internal/clock"
	"go.uber.org/zap"
)

// ReasonTooManyFailures is reported with every block.
const ReasonTooManyFailures = "MULTIPLE_FAILED_ATTEMPT"

// BlockedError is returned by Check while a key is blocked.
type BlockedError struct {
	Key       string
	Remaining time.Duration
	Reason    string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked for %s: %s", e.Remaining, e.Reason)
}

// RemainingMinutes reports the remaining block time rounded up, as shown to
// clients.
func (e *BlockedError) RemainingMinutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}

// Store holds failure counters and block expiries for one keyspace.
// Implementations cap their size and expire idle entries.
type Store interface {
	Failures(ctx context.Context, key string) (int, error)
	SetFailures(ctx context.Context, key string, count int) error
	BlockedUntil(ctx context.Context, key string) (time.Time, bool, error)
	Block(ctx context.Context, key string, until time.Time) error
	Reset(ctx context.Context, key string) error
}

// Guard applies a failure threshold and block duration over a Store.
// IP and email guards run over independent keyspaces so rotating one
// identifier does not bypass the other's limit.
type Guard struct {
	store     Store
	threshold int
	blockFor  time.Duration
	clk       clock.Clock
	log       *zap.Logger
}

func New(store Store, threshold int, blockFor time.Duration, clk clock.Clock, log *zap.Logger) *Guard {
	return &Guard{
		store:     store,
		threshold: threshold,
		blockFor:  blockFor,
		clk:       clk,
		log:       log,
	}
}

// Check fails with BlockedError while the key is blocked. It never mutates.
func (g *Guard) Check(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	until, ok, err := g.store.BlockedUntil(ctx, key)
	if err != nil {
		return err
	}
	now := g.clk.Now()
	if ok && now.Before(until) {
		return &BlockedError{
			Key:       key,
			Remaining: until.Sub(now),
			Reason:    ReasonTooManyFailures,
		}
	}
	return nil
}

// Fail records a failed attempt. Reaching the threshold installs (or extends)
// a block; the counter is deliberately not reset, so continued failures keep
// pushing the block forward.
func (g *Guard) Fail(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	count, err := g.store.Failures(ctx, key)
	if err != nil {
		return err
	}
	count++
	if err := g.store.SetFailures(ctx, key, count); err != nil {
		return err
	}
	if count >= g.threshold {
		until := g.clk.Now().Add(g.blockFor)
		if err := g.store.Block(ctx, key, until); err != nil {
			return err
		}
		g.log.Warn("key blocked after repeated failures",
			zap.String("key", key),
			zap.Int("failures", count),
			zap.Time("until", until),
		)
	}
	return nil
}

// Reset clears both the failure count and any block for the key. Called on
// successful authentication.
func (g *Guard) Reset(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return g.store.Reset(ctx, key)
}
