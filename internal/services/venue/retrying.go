package venue

import (
	"context"
	"time"

	"github.com/vadiminshakov/lpkeeper/internal/domain"
	"github.com/vadiminshakov/lpkeeper/internal/services/rebalancer"
	"github.com/vadiminshakov/lpkeeper/pkg/retrier"
	"go.uber.org/zap"
)

// Retrying retries pool reads of the wrapped venue. Transactions pass
// through untouched: resubmitting them could double-spend.
type Retrying struct {
	rebalancer.Venue
	retrier *retrier.Retrier
}

// NewRetrying wraps v. Options override the default backoff.
func NewRetrying(l *zap.Logger, v rebalancer.Venue, opts ...retrier.Option) *Retrying {
	if l == nil {
		l = zap.NewNop()
	}
	opts = append([]retrier.Option{
		retrier.WithOnRetry(func(attempt int, wait time.Duration, err error) {
			l.Warn("pool fetch failed, retrying", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		}),
	}, opts...)

	return &Retrying{Venue: v, retrier: retrier.New(opts...)}
}

// FetchPool retries transient read failures. A missing pool is returned as is.
func (r *Retrying) FetchPool(ctx context.Context, pool domain.PoolID) (*domain.PoolSnapshot, error) {
	return retrier.DoWithData(r.retrier, ctx, func(ctx context.Context) (*domain.PoolSnapshot, error) {
		return r.Venue.FetchPool(ctx, pool)
	})
}
