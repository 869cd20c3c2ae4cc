package rebalancer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
	"github.com/vadiminshakov/lpkeeper/internal/services/strategy"
	"github.com/vadiminshakov/lpkeeper/internal/services/tracker"
	"github.com/vadiminshakov/lpkeeper/internal/storage/journal"
	"go.uber.org/zap"
)

// cycle holds the state of a single Rebalance call.
type cycle struct {
	r       *Rebalancer
	outcome *Outcome
	l       *zap.Logger
}

func (c *cycle) run(ctx context.Context) error {
	pool := c.r.position.Pool()

	c.transition(domain.StateCheckingRange)
	snapshot, err := c.r.venue.FetchPool(ctx, pool)
	if err != nil {
		return c.fail(domain.StageRangeCheck, errors.Wrapf(err, "fetch pool %s", pool))
	}
	if snapshot == nil {
		return c.fail(domain.StageRangeCheck, &domain.PoolNotFoundError{PoolID: pool})
	}
	c.outcome.Snapshot = snapshot

	baseDrift, quoteDrift, err := tracker.Drift(*snapshot, c.r.position)
	if err != nil {
		return c.fail(domain.StageRangeCheck, err)
	}
	if c.r.recorder != nil {
		c.r.recorder.ObserveDrift(pool.String(), baseDrift, quoteDrift)
	}

	inRange, err := tracker.IsInRange(*snapshot, c.r.position, c.r.tolerance)
	if err != nil {
		return c.fail(domain.StageRangeCheck, err)
	}
	c.l.Info("range checked",
		zap.String("base", snapshot.Base.String()),
		zap.String("quote", snapshot.Quote.String()),
		zap.String("base_drift", baseDrift.String()),
		zap.String("quote_drift", quoteDrift.String()),
		zap.String("tolerance", c.r.tolerance.String()),
		zap.Bool("in_range", inRange))
	if inRange {
		c.outcome.InRange = true
		c.transition(domain.StateDone)
		return nil
	}

	c.transition(domain.StateWithdrawing)
	c.record(domain.StageWithdraw, journal.StatusPending, snapshot.Base, snapshot.Quote, "")
	withdrawn, err := c.r.venue.WithdrawAll(ctx, pool, c.r.signer)
	if err != nil {
		return c.fail(domain.StageWithdraw, asTransactionError(domain.StageWithdraw, err))
	}
	c.outcome.Withdrawn = &withdrawn
	c.record(domain.StageWithdraw, journal.StatusDone, withdrawn.Base, withdrawn.Quote, "")

	plan := strategy.ComputePlan(domain.PoolSnapshot{Base: withdrawn.Base, Quote: withdrawn.Quote}, c.r.position)
	c.outcome.Plan = &plan
	c.outcome.Stranded = &domain.PoolSnapshot{Base: withdrawn.Base, Quote: withdrawn.Quote}
	c.l.Info("rebalance planned",
		zap.String("direction", plan.Direction.String()),
		zap.String("swap_amount", plan.SwapAmount.String()))

	c.transition(domain.StateSwapping)
	output := decimal.Zero
	if plan.IsNoop() {
		c.l.Warn("nothing to swap, redepositing withdrawn amounts")
	} else {
		c.record(domain.StageSwap, journal.StatusPending, withdrawn.Base, withdrawn.Quote, plan.Direction.String()+" "+plan.SwapAmount.String())
		res, err := c.r.venue.Swap(ctx, pool, plan.Direction, plan.SwapAmount, c.r.signer)
		if err != nil {
			return c.fail(domain.StageSwap, asTransactionError(domain.StageSwap, err))
		}
		output = res.Output
	}
	plan.Settle(output)
	c.outcome.Stranded = &domain.PoolSnapshot{Base: plan.ResultingBase, Quote: plan.ResultingQuote}
	c.record(domain.StageSwap, journal.StatusDone, plan.ResultingBase, plan.ResultingQuote, "output "+output.String())

	c.transition(domain.StateDepositing)
	c.record(domain.StageDeposit, journal.StatusPending, plan.ResultingBase, plan.ResultingQuote, "")
	confirmation, err := c.r.venue.Deposit(ctx, pool, plan.ResultingBase, plan.ResultingQuote, c.r.signer)
	if err != nil {
		return c.fail(domain.StageDeposit, asTransactionError(domain.StageDeposit, err))
	}
	c.outcome.Deposit = &confirmation
	c.outcome.Stranded = nil
	c.record(domain.StageDeposit, journal.StatusDone, plan.ResultingBase, plan.ResultingQuote, confirmation.Signature)

	c.l.Info("position rebalanced",
		zap.String("base", plan.ResultingBase.String()),
		zap.String("quote", plan.ResultingQuote.String()),
		zap.String("signature", confirmation.Signature))
	c.transition(domain.StateDone)
	return nil
}

func (c *cycle) transition(to domain.CycleState) {
	c.l.Debug("cycle state", zap.String("from", c.outcome.State.String()), zap.String("to", to.String()))
	c.outcome.State = to
}

func (c *cycle) fail(stage domain.Stage, err error) error {
	c.transition(domain.StateFailed)

	var base, quote decimal.Decimal
	fields := []zap.Field{zap.String("stage", stage.String()), zap.Error(err)}
	if s := c.outcome.Stranded; s != nil {
		base, quote = s.Base, s.Quote
		fields = append(fields, zap.String("stranded_base", base.String()), zap.String("stranded_quote", quote.String()))
	}
	c.l.Error("rebalance cycle failed", fields...)

	if stage != domain.StageRangeCheck {
		rec := journal.Record{Status: journal.StatusFailed, Base: base, Quote: quote, Error: err.Error()}
		c.write(stage, rec)
	}
	if c.r.recorder != nil {
		c.r.recorder.StageFailed(c.r.position.Pool().String(), stage.String())
	}

	return &domain.StageError{Stage: stage, Err: err}
}

func (c *cycle) record(stage domain.Stage, status journal.Status, base, quote decimal.Decimal, detail string) {
	c.write(stage, journal.Record{Status: status, Base: base, Quote: quote, Detail: detail})
}

func (c *cycle) write(stage domain.Stage, rec journal.Record) {
	if c.r.journal == nil {
		return
	}
	rec.CycleID = c.outcome.CycleID
	rec.Pool = c.r.position.Pool().String()
	rec.Stage = stage.String()
	if err := c.r.journal.Append(rec); err != nil {
		c.l.Warn("failed to journal rebalance stage", zap.String("stage", rec.Stage), zap.Error(err))
	}
}

// asTransactionError keeps venue TransactionErrors as is and wraps anything else.
func asTransactionError(stage domain.Stage, err error) error {
	var txErr *domain.TransactionError
	if errors.As(err, &txErr) {
		return err
	}
	return &domain.TransactionError{Op: stage.String(), Err: err}
}
