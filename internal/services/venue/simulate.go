// Package venue provides Venue implementations for the rebalancer.
package venue

import (
	"context"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
	"github.com/vadiminshakov/lpkeeper/internal/storage/simstate"
	"github.com/vadiminshakov/lpkeeper/internal/wallet"
	"go.uber.org/zap"
)

const (
	bpsDenominator = 10000
	quotePrecision = 6
)

const (
	opWithdraw = "withdraw"
	opSwap     = "swap"
	opDeposit  = "deposit"
)

// SimulatorConfig seeds a simulated pool. Amounts are in human-readable units.
type SimulatorConfig struct {
	Pool          domain.PoolID
	Owner         string
	BaseDecimals  int32
	FeeBps        int64
	BaseReserve   decimal.Decimal
	QuoteReserve  decimal.Decimal
	PositionBase  decimal.Decimal
	PositionQuote decimal.Decimal
	StateDir      string
}

// Simulator is a constant-product pool with a single tracked LP position.
// Swaps trade against the reserves of other liquidity providers.
type Simulator struct {
	mu       sync.Mutex
	l        *zap.Logger
	pool     domain.PoolID
	owner    string
	decimals int32
	feeBps   int64
	amounts  simstate.Amounts
	txCount  uint64
	store    *simstate.Store
	failures map[string]error
}

// NewSimulator creates a simulator, restoring persisted state when present.
func NewSimulator(l *zap.Logger, cfg SimulatorConfig) (*Simulator, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if cfg.Owner == "" {
		return nil, errors.New("simulator owner public key is required")
	}
	if cfg.FeeBps < 0 || cfg.FeeBps >= bpsDenominator {
		return nil, errors.Errorf("fee_bps must be in [0, %d), got %d", bpsDenominator, cfg.FeeBps)
	}
	if cfg.BaseDecimals < 0 {
		return nil, errors.Errorf("base_decimals must not be negative, got %d", cfg.BaseDecimals)
	}

	store, err := simstate.NewStore(cfg.StateDir, cfg.Pool)
	if err != nil {
		return nil, errors.Wrap(err, "init simulate state store")
	}

	s := &Simulator{
		l:        l,
		pool:     cfg.Pool,
		owner:    cfg.Owner,
		decimals: cfg.BaseDecimals,
		feeBps:   cfg.FeeBps,
		amounts: simstate.Amounts{
			BaseReserveRaw:  domain.ToSmallestUnits(cfg.BaseReserve, cfg.BaseDecimals),
			QuoteReserve:    cfg.QuoteReserve,
			PositionBaseRaw: domain.ToSmallestUnits(cfg.PositionBase, cfg.BaseDecimals),
			PositionQuote:   cfg.PositionQuote,
			WalletBaseRaw:   decimal.Zero,
			WalletQuote:     decimal.Zero,
		},
		store:    store,
		failures: make(map[string]error),
	}
	if err := s.restoreState(); err != nil {
		l.Warn("failed to restore simulate state", zap.Error(err))
	}

	l.Info("simulate venue init",
		zap.String("pool", cfg.Pool.String()),
		zap.String("position_base", s.normalize(s.amounts.PositionBaseRaw).String()),
		zap.String("position_quote", s.amounts.PositionQuote.String()),
		zap.String("base_reserve", s.normalize(s.amounts.BaseReserveRaw).String()),
		zap.String("quote_reserve", s.amounts.QuoteReserve.String()),
		zap.Int64("fee_bps", s.feeBps))
	return s, nil
}

// FetchPool returns the position amounts or nil for an unknown pool.
func (s *Simulator) FetchPool(ctx context.Context, pool domain.PoolID) (*domain.PoolSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pool != s.pool {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return &domain.PoolSnapshot{
		Base:  s.normalize(s.amounts.PositionBaseRaw),
		Quote: s.amounts.PositionQuote,
	}, nil
}

// WithdrawAll moves the whole position into the owner's wallet.
func (s *Simulator) WithdrawAll(ctx context.Context, pool domain.PoolID, signer domain.Signer) (domain.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.authorize(ctx, opWithdraw, pool, signer); err != nil {
		return domain.Withdrawal{}, err
	}
	if s.amounts.PositionBaseRaw.IsZero() && s.amounts.PositionQuote.IsZero() {
		return domain.Withdrawal{}, txError(opWithdraw, errors.New("position is empty"))
	}

	base, quote := s.amounts.PositionBaseRaw, s.amounts.PositionQuote
	s.amounts.WalletBaseRaw = s.amounts.WalletBaseRaw.Add(base)
	s.amounts.WalletQuote = s.amounts.WalletQuote.Add(quote)
	s.amounts.PositionBaseRaw = decimal.Zero
	s.amounts.PositionQuote = decimal.Zero
	s.persist()

	w := domain.Withdrawal{Base: s.normalize(base), Quote: quote}
	s.l.Info("simulate withdraw", zap.String("base", w.Base.String()), zap.String("quote", w.Quote.String()))
	return w, nil
}

// Swap trades input of the source asset from the wallet against the reserves.
func (s *Simulator) Swap(ctx context.Context, pool domain.PoolID, direction domain.Direction, input decimal.Decimal, signer domain.Signer) (domain.SwapResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.authorize(ctx, opSwap, pool, signer); err != nil {
		return domain.SwapResult{}, err
	}
	if !input.IsPositive() {
		return domain.SwapResult{}, txError(opSwap, errors.Errorf("swap input must be positive, got %s", input))
	}

	var output decimal.Decimal
	switch direction {
	case domain.BaseToQuote:
		inRaw := domain.ToSmallestUnits(input, s.decimals)
		if inRaw.GreaterThan(s.amounts.WalletBaseRaw) {
			return domain.SwapResult{}, txError(opSwap, errors.Errorf("insufficient base balance: have %s, need %s",
				s.normalize(s.amounts.WalletBaseRaw), input))
		}
		output = s.quoteOut(s.normalize(inRaw)).RoundFloor(quotePrecision)
		if !output.IsPositive() || output.GreaterThanOrEqual(s.amounts.QuoteReserve) {
			return domain.SwapResult{}, txError(opSwap, errors.New("not enough quote liquidity"))
		}
		s.amounts.WalletBaseRaw = s.amounts.WalletBaseRaw.Sub(inRaw)
		s.amounts.BaseReserveRaw = s.amounts.BaseReserveRaw.Add(inRaw)
		s.amounts.WalletQuote = s.amounts.WalletQuote.Add(output)
		s.amounts.QuoteReserve = s.amounts.QuoteReserve.Sub(output)
	case domain.QuoteToBase:
		if input.GreaterThan(s.amounts.WalletQuote) {
			return domain.SwapResult{}, txError(opSwap, errors.Errorf("insufficient quote balance: have %s, need %s",
				s.amounts.WalletQuote, input))
		}
		outRaw := domain.ToSmallestUnits(s.baseOut(input), s.decimals)
		if !outRaw.IsPositive() || outRaw.GreaterThanOrEqual(s.amounts.BaseReserveRaw) {
			return domain.SwapResult{}, txError(opSwap, errors.New("not enough base liquidity"))
		}
		s.amounts.WalletQuote = s.amounts.WalletQuote.Sub(input)
		s.amounts.QuoteReserve = s.amounts.QuoteReserve.Add(input)
		s.amounts.WalletBaseRaw = s.amounts.WalletBaseRaw.Add(outRaw)
		s.amounts.BaseReserveRaw = s.amounts.BaseReserveRaw.Sub(outRaw)
		output = s.normalize(outRaw)
	default:
		return domain.SwapResult{}, txError(opSwap, errors.Errorf("unknown direction %d", direction))
	}
	s.persist()

	s.l.Info("simulate swap",
		zap.String("direction", direction.String()),
		zap.String("input", input.String()),
		zap.String("output", output.String()))
	return domain.SwapResult{Output: output}, nil
}

// Deposit moves wallet balances into the position.
func (s *Simulator) Deposit(ctx context.Context, pool domain.PoolID, base, quote decimal.Decimal, signer domain.Signer) (domain.Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, err := s.authorize(ctx, opDeposit, pool, signer)
	if err != nil {
		return domain.Confirmation{}, err
	}
	if base.IsNegative() || quote.IsNegative() || (base.IsZero() && quote.IsZero()) {
		return domain.Confirmation{}, txError(opDeposit, errors.Errorf("invalid deposit amounts %s/%s", base, quote))
	}

	baseRaw := domain.ToSmallestUnits(base, s.decimals)
	if baseRaw.GreaterThan(s.amounts.WalletBaseRaw) {
		return domain.Confirmation{}, txError(opDeposit, errors.Errorf("insufficient base balance: have %s, need %s",
			s.normalize(s.amounts.WalletBaseRaw), base))
	}
	if quote.GreaterThan(s.amounts.WalletQuote) {
		return domain.Confirmation{}, txError(opDeposit, errors.Errorf("insufficient quote balance: have %s, need %s",
			s.amounts.WalletQuote, quote))
	}

	s.amounts.WalletBaseRaw = s.amounts.WalletBaseRaw.Sub(baseRaw)
	s.amounts.WalletQuote = s.amounts.WalletQuote.Sub(quote)
	s.amounts.PositionBaseRaw = s.amounts.PositionBaseRaw.Add(baseRaw)
	s.amounts.PositionQuote = s.amounts.PositionQuote.Add(quote)
	s.persist()

	c := domain.Confirmation{Signature: base58.Encode(sig)}
	s.l.Info("simulate deposit", zap.String("base", base.String()), zap.String("quote", quote.String()), zap.String("signature", c.Signature))
	return c, nil
}

// Nudge shifts position amounts to emulate price movement inside the pool.
// Amounts never go below zero.
func (s *Simulator) Nudge(baseDelta, quoteDelta decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.amounts.PositionBaseRaw = decimal.Max(decimal.Zero, s.amounts.PositionBaseRaw.Add(domain.ToSmallestUnits(baseDelta, s.decimals)))
	s.amounts.PositionQuote = decimal.Max(decimal.Zero, s.amounts.PositionQuote.Add(quoteDelta))
	s.persist()
}

// FailNext makes the next call of op ("withdraw", "swap" or "deposit") fail with err.
func (s *Simulator) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// WalletBalances returns owner balances held outside the pool.
func (s *Simulator) WalletBalances() domain.PoolSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.PoolSnapshot{Base: s.normalize(s.amounts.WalletBaseRaw), Quote: s.amounts.WalletQuote}
}

// authorize checks pool, context, injected failures and the owner's signature.
// Callers hold s.mu.
func (s *Simulator) authorize(ctx context.Context, op string, pool domain.PoolID, signer domain.Signer) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, txError(op, err)
	}
	if pool != s.pool {
		return nil, txError(op, errors.Errorf("unknown pool %s", pool))
	}
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return nil, txError(op, err)
	}
	if signer == nil || signer.PublicKey() != s.owner {
		return nil, txError(op, errors.New("signer is not the position owner"))
	}

	s.txCount++
	msg := []byte(fmt.Sprintf("%s:%s:%d", op, pool, s.txCount))
	sig, err := signer.Sign(msg)
	if err != nil {
		return nil, txError(op, errors.Wrap(err, "sign transaction"))
	}
	if !wallet.Verify(s.owner, msg, sig) {
		return nil, txError(op, errors.New("signature verification failed"))
	}
	return sig, nil
}

// quoteOut applies the fee and the x*y=k invariant to a base input.
func (s *Simulator) quoteOut(baseIn decimal.Decimal) decimal.Decimal {
	in := s.afterFee(baseIn)
	reserveIn := s.normalize(s.amounts.BaseReserveRaw)
	return s.amounts.QuoteReserve.Mul(in).Div(reserveIn.Add(in))
}

func (s *Simulator) baseOut(quoteIn decimal.Decimal) decimal.Decimal {
	in := s.afterFee(quoteIn)
	reserveOut := s.normalize(s.amounts.BaseReserveRaw)
	return reserveOut.Mul(in).Div(s.amounts.QuoteReserve.Add(in))
}

func (s *Simulator) afterFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(bpsDenominator - s.feeBps)).Div(decimal.NewFromInt(bpsDenominator))
}

func (s *Simulator) normalize(raw decimal.Decimal) decimal.Decimal {
	return domain.NormalizeAmount(raw, s.decimals)
}

func (s *Simulator) restoreState() error {
	state, err := s.store.Load()
	if err != nil || state == nil {
		return err
	}
	if state.Pool != s.pool.String() {
		return errors.Errorf("state belongs to pool %s", state.Pool)
	}
	if state.FeeBps < 0 || state.FeeBps >= bpsDenominator {
		return errors.Errorf("stored fee_bps must be in [0, %d), got %d", bpsDenominator, state.FeeBps)
	}

	amounts, err := state.Decode()
	if err != nil {
		return err
	}
	s.amounts = amounts
	s.txCount = state.TransactionCount
	s.decimals = state.BaseDecimals
	s.feeBps = state.FeeBps
	return nil
}

// persist is called with s.mu held.
func (s *Simulator) persist() {
	state := simstate.State{
		Pool:             s.pool.String(),
		Owner:            s.owner,
		BaseDecimals:     s.decimals,
		FeeBps:           s.feeBps,
		TransactionCount: s.txCount,
	}
	state.Encode(s.amounts)
	if err := s.store.Save(state); err != nil {
		s.l.Warn("failed to persist simulate state", zap.Error(err))
	}
}

func txError(op string, err error) error {
	return &domain.TransactionError{Op: op, Err: err}
}
