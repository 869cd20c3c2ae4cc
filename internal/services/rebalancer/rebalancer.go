// Package rebalancer drives one rebalance cycle of a liquidity position:
// range check, withdraw, swap and deposit.
package rebalancer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
	"github.com/vadiminshakov/lpkeeper/internal/services/tracker"
	"github.com/vadiminshakov/lpkeeper/internal/storage/journal"
	"go.uber.org/zap"
)

// Venue performs pool queries and on-chain operations for the position.
type Venue interface {
	// FetchPool returns current position amounts, or nil when the pool is unknown.
	FetchPool(ctx context.Context, pool domain.PoolID) (*domain.PoolSnapshot, error)
	// WithdrawAll removes 100% of the position and returns the released amounts.
	WithdrawAll(ctx context.Context, pool domain.PoolID, signer domain.Signer) (domain.Withdrawal, error)
	// Swap sells input of the source asset and returns the realized output.
	Swap(ctx context.Context, pool domain.PoolID, direction domain.Direction, input decimal.Decimal, signer domain.Signer) (domain.SwapResult, error)
	// Deposit adds liquidity and waits for confirmation.
	Deposit(ctx context.Context, pool domain.PoolID, base, quote decimal.Decimal, signer domain.Signer) (domain.Confirmation, error)
}

type journalWriter interface {
	Append(rec journal.Record) error
}

// Recorder receives cycle telemetry.
type Recorder interface {
	ObserveDrift(pool string, base, quote decimal.Decimal)
	CycleFinished(pool string, outcome string)
	StageFailed(pool string, stage string)
}

// Outcome summarizes a finished cycle.
type Outcome struct {
	CycleID   string
	State     domain.CycleState
	Snapshot  *domain.PoolSnapshot
	InRange   bool
	Withdrawn *domain.Withdrawal
	Plan      *domain.RebalancePlan
	Deposit   *domain.Confirmation
	// Stranded holds wallet balances left outside the pool when a cycle
	// fails after the withdrawal. They need manual reconciliation.
	Stranded *domain.PoolSnapshot
}

// Rebalanced reports whether the cycle redeposited the position.
func (o *Outcome) Rebalanced() bool {
	return o != nil && o.State == domain.StateDone && o.Deposit != nil
}

// Option configures a Rebalancer.
type Option func(*Rebalancer)

// WithJournal records every stage transition.
func WithJournal(j journalWriter) Option {
	return func(r *Rebalancer) {
		r.journal = j
	}
}

// WithRecorder reports cycle metrics.
func WithRecorder(rec Recorder) Option {
	return func(r *Rebalancer) {
		r.recorder = rec
	}
}

// WithCycleIDs overrides cycle id generation.
func WithCycleIDs(fn func() string) Option {
	return func(r *Rebalancer) {
		r.newCycleID = fn
	}
}

// Rebalancer manages exactly one position. Rebalance is not safe for
// concurrent use: callers run at most one cycle per position at a time.
type Rebalancer struct {
	l          *zap.Logger
	position   domain.Position
	venue      Venue
	signer     domain.Signer
	tolerance  decimal.Decimal
	journal    journalWriter
	recorder   Recorder
	newCycleID func() string
}

// New validates configuration and returns a rebalancer for the position.
func New(l *zap.Logger, position domain.Position, venue Venue, signer domain.Signer, tolerance decimal.Decimal, opts ...Option) (*Rebalancer, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if err := position.Validate(); err != nil {
		return nil, err
	}
	if err := tracker.ValidateTolerance(tolerance); err != nil {
		return nil, err
	}
	if venue == nil {
		return nil, errors.New("venue is required")
	}
	if signer == nil {
		return nil, errors.New("signer is required")
	}

	r := &Rebalancer{
		l:          l.With(zap.String("pool", position.Pool().String()), zap.String("pair", position.Pair().String())),
		position:   position,
		venue:      venue,
		signer:     signer,
		tolerance:  tolerance,
		newCycleID: journal.NewCycleID,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Position returns the managed position.
func (r *Rebalancer) Position() domain.Position {
	return r.position
}

// Rebalance runs one cycle. The returned outcome is non-nil even on failure;
// the error is a *domain.StageError naming the failed stage.
func (r *Rebalancer) Rebalance(ctx context.Context) (*Outcome, error) {
	c := &cycle{
		r:       r,
		outcome: &Outcome{CycleID: r.newCycleID(), State: domain.StateIdle},
		l:       r.l,
	}
	c.l = c.l.With(zap.String("cycle", c.outcome.CycleID))

	err := c.run(ctx)
	if r.recorder != nil {
		r.recorder.CycleFinished(r.position.Pool().String(), cycleResult(c.outcome, err))
	}
	return c.outcome, err
}

func cycleResult(o *Outcome, err error) string {
	switch {
	case err != nil:
		return "failed"
	case o.InRange:
		return "in_range"
	default:
		return "rebalanced"
	}
}
