package domain

import (
	"github.com/shopspring/decimal"
)

// Direction of a rebalancing swap.
type Direction int

const (
	BaseToQuote Direction = iota
	QuoteToBase
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case BaseToQuote:
		return "base_to_quote"
	case QuoteToBase:
		return "quote_to_base"
	default:
		return "unknown"
	}
}

// RebalancePlan describes the swap of a single rebalance cycle.
// Resulting amounts are known only after the swap, see Settle.
type RebalancePlan struct {
	Direction  Direction
	SwapAmount decimal.Decimal

	// amounts the plan was computed from
	Withdrawn PoolSnapshot

	ResultingBase  decimal.Decimal
	ResultingQuote decimal.Decimal
	Settled        bool
}

// Settle fills the amounts to deposit once the swap output is known.
func (p *RebalancePlan) Settle(output decimal.Decimal) {
	switch p.Direction {
	case BaseToQuote:
		p.ResultingBase = p.Withdrawn.Base.Sub(p.SwapAmount)
		p.ResultingQuote = p.Withdrawn.Quote.Add(output)
	default:
		p.ResultingBase = p.Withdrawn.Base.Add(output)
		p.ResultingQuote = p.Withdrawn.Quote.Sub(p.SwapAmount)
	}
	p.Settled = true
}

// IsNoop reports whether the plan swaps nothing.
func (p RebalancePlan) IsNoop() bool {
	return !p.SwapAmount.IsPositive()
}
