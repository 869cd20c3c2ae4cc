package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/lpkeeper/config"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
	"github.com/vadiminshakov/lpkeeper/internal/services/rebalancer"
	"github.com/vadiminshakov/lpkeeper/internal/services/venue"
	"github.com/vadiminshakov/lpkeeper/internal/storage/journal"
)

// RebalanceBot keeps a single position within tolerance of its target.
type RebalanceBot struct {
	Config     config.Config
	rebalancer *rebalancer.Rebalancer
	journal    *journal.WALStore
	simulator  *venue.Simulator
}

// Close releases the journal.
func (b *RebalanceBot) Close() error {
	return b.journal.Close()
}

// Simulator returns the simulated venue, if the bot runs against one.
func (b *RebalanceBot) Simulator() *venue.Simulator {
	return b.simulator
}

// Journal returns the cycle journal of the position.
func (b *RebalanceBot) Journal() *journal.WALStore {
	return b.journal
}

// Unreconciled lists cycles whose funds were left outside the pool.
func (b *RebalanceBot) Unreconciled() ([]journal.Record, error) {
	return b.journal.Unreconciled()
}

// RunOnce executes a single rebalance cycle.
func (b *RebalanceBot) RunOnce(ctx context.Context, logger *zap.Logger) (*rebalancer.Outcome, error) {
	outcome, err := b.rebalancer.Rebalance(ctx)
	if err != nil {
		logFailure(logger, b.Config, outcome, err)
		return outcome, err
	}

	if outcome.Rebalanced() {
		logger.Info("Position rebalanced",
			zap.String("pool", b.Config.Pool.String()),
			zap.String("cycle", outcome.CycleID),
			zap.String("direction", outcome.Plan.Direction.String()),
			zap.String("swap_amount", outcome.Plan.SwapAmount.String()),
			zap.String("base", outcome.Plan.ResultingBase.String()),
			zap.String("quote", outcome.Plan.ResultingQuote.String()),
			zap.String("signature", outcome.Deposit.Signature))
	} else {
		logger.Debug("Position in range", zap.String("pool", b.Config.Pool.String()))
	}
	return outcome, nil
}

// Run checks the position immediately and then on every tick of the check
// interval. Configuration errors stop the loop; other failures are retried
// on the next tick.
func (b *RebalanceBot) Run(ctx context.Context, logger *zap.Logger) error {
	logger.Info("Starting rebalance loop",
		zap.String("pool", b.Config.Pool.String()),
		zap.String("pair", b.Config.Pair.String()),
		zap.Duration("check_interval", b.Config.CheckInterval))

	if err := b.tick(ctx, logger); err != nil {
		return err
	}

	ticker := time.NewTicker(b.Config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Context done, stopping rebalance loop.", zap.String("pool", b.Config.Pool.String()))
			return ctx.Err()
		case <-ticker.C:
			if err := b.tick(ctx, logger); err != nil {
				return err
			}
		}
	}
}

func (b *RebalanceBot) tick(ctx context.Context, logger *zap.Logger) error {
	_, err := b.RunOnce(ctx, logger)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return errors.Wrap(err, "rebalance stopped")
	}
	return nil
}

func logFailure(logger *zap.Logger, conf config.Config, outcome *rebalancer.Outcome, err error) {
	fields := []zap.Field{zap.String("pool", conf.Pool.String()), zap.Error(err)}
	if outcome == nil || outcome.Stranded == nil {
		logger.Error("Rebalance cycle failed", fields...)
		return
	}

	fields = append(fields,
		zap.String("cycle", outcome.CycleID),
		zap.String("stranded_base", outcome.Stranded.Base.String()),
		zap.String("stranded_quote", outcome.Stranded.Quote.String()))
	logger.Error("Rebalance cycle failed after withdrawal, funds need manual reconciliation", fields...)
}
