// Package strategy decides how to swap withdrawn liquidity back to the target allocation.
package strategy

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
)

// ComputePlan picks the swap direction and input amount for amounts that were
// already found out of range. The excess of the source asset is swapped away
// in full; the other asset keeps everything it had plus the swap output.
//
// When both assets exceed their targets the larger surplus is the source, base
// wins ties. When neither exceeds its target the plan is a zero QuoteToBase swap.
func ComputePlan(amounts domain.PoolSnapshot, position domain.Position) domain.RebalancePlan {
	baseSurplus := amounts.Base.Sub(position.TargetBase())
	quoteSurplus := amounts.Quote.Sub(position.TargetQuote())

	if baseSurplus.IsPositive() && baseSurplus.GreaterThanOrEqual(quoteSurplus) {
		return domain.RebalancePlan{
			Direction:  domain.BaseToQuote,
			SwapAmount: baseSurplus,
			Withdrawn:  amounts,
		}
	}

	swapAmount := quoteSurplus
	if !swapAmount.IsPositive() {
		swapAmount = decimal.Zero
	}

	return domain.RebalancePlan{
		Direction:  domain.QuoteToBase,
		SwapAmount: swapAmount,
		Withdrawn:  amounts,
	}
}
