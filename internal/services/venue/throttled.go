package venue

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/vadiminshakov/lpkeeper/internal/domain"
	"github.com/vadiminshakov/lpkeeper/internal/services/rebalancer"
)

// Throttled limits the rate of venue calls.
type Throttled struct {
	venue   rebalancer.Venue
	limiter *rate.Limiter
}

// NewThrottled wraps v with a token bucket of the given rate and burst.
func NewThrottled(v rebalancer.Venue, limit rate.Limit, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{venue: v, limiter: rate.NewLimiter(limit, burst)}
}

// PerSecond returns a throttle allowing perSecond calls with an equal burst.
func PerSecond(v rebalancer.Venue, perSecond float64) *Throttled {
	return NewThrottled(v, rate.Limit(perSecond), int(math.Ceil(perSecond)))
}

func (t *Throttled) FetchPool(ctx context.Context, pool domain.PoolID) (*domain.PoolSnapshot, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait failed")
	}
	return t.venue.FetchPool(ctx, pool)
}

func (t *Throttled) WithdrawAll(ctx context.Context, pool domain.PoolID, signer domain.Signer) (domain.Withdrawal, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return domain.Withdrawal{}, txError(opWithdraw, errors.Wrap(err, "rate limit wait failed"))
	}
	return t.venue.WithdrawAll(ctx, pool, signer)
}

func (t *Throttled) Swap(ctx context.Context, pool domain.PoolID, direction domain.Direction, input decimal.Decimal, signer domain.Signer) (domain.SwapResult, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return domain.SwapResult{}, txError(opSwap, errors.Wrap(err, "rate limit wait failed"))
	}
	return t.venue.Swap(ctx, pool, direction, input, signer)
}

func (t *Throttled) Deposit(ctx context.Context, pool domain.PoolID, base, quote decimal.Decimal, signer domain.Signer) (domain.Confirmation, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return domain.Confirmation{}, txError(opDeposit, errors.Wrap(err, "rate limit wait failed"))
	}
	return t.venue.Deposit(ctx, pool, base, quote, signer)
}
