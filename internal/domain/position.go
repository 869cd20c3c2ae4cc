package domain

import (
	"github.com/shopspring/decimal"
)

// Position is a liquidity-provider stake in a two-asset pool and the
// allocation the rebalancer keeps it at.
type Position struct {
	pool        PoolID
	pair        Pair
	targetBase  decimal.Decimal
	targetQuote decimal.Decimal
}

// NewPosition validates targets and builds a read-only position.
func NewPosition(pool PoolID, pair Pair, targetBase, targetQuote decimal.Decimal) (Position, error) {
	if pool == "" {
		return Position{}, &ConfigurationError{Field: "pool", Reason: "pool identifier is required"}
	}
	if !targetBase.IsPositive() {
		return Position{}, &ConfigurationError{Field: "target_base", Reason: "must be greater than zero, got " + targetBase.String()}
	}
	if !targetQuote.IsPositive() {
		return Position{}, &ConfigurationError{Field: "target_quote", Reason: "must be greater than zero, got " + targetQuote.String()}
	}

	return Position{
		pool:        pool,
		pair:        pair,
		targetBase:  targetBase,
		targetQuote: targetQuote,
	}, nil
}

// Pool returns the pool identifier.
func (p Position) Pool() PoolID { return p.pool }

// Pair returns the asset pair.
func (p Position) Pair() Pair { return p.pair }

// TargetBase returns the target base amount.
func (p Position) TargetBase() decimal.Decimal { return p.targetBase }

// TargetQuote returns the target quote amount.
func (p Position) TargetQuote() decimal.Decimal { return p.targetQuote }

// Validate re-checks target invariants. A zero Position fails.
func (p Position) Validate() error {
	if !p.targetBase.IsPositive() {
		return &ConfigurationError{Field: "target_base", Reason: "must be greater than zero, got " + p.targetBase.String()}
	}
	if !p.targetQuote.IsPositive() {
		return &ConfigurationError{Field: "target_quote", Reason: "must be greater than zero, got " + p.targetQuote.String()}
	}
	return nil
}
