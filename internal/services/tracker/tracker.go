// Package tracker measures how far a position has drifted from its target allocation.
package tracker

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
)

// DefaultTolerance is the relative drift accepted on each asset.
var DefaultTolerance = decimal.NewFromFloat(0.10)

// ValidateTolerance checks that tolerance is a fraction in (0, 1].
func ValidateTolerance(tolerance decimal.Decimal) error {
	if !tolerance.IsPositive() || tolerance.GreaterThan(decimal.NewFromInt(1)) {
		return &domain.ConfigurationError{Field: "tolerance", Reason: "must be in (0, 1], got " + tolerance.String()}
	}
	return nil
}

// Drift returns |current - target| / target for both assets, rounded to
// decimal.DivisionPrecision places.
func Drift(snapshot domain.PoolSnapshot, position domain.Position) (base, quote decimal.Decimal, err error) {
	if err := position.Validate(); err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}

	base = relativeDiff(snapshot.Base, position.TargetBase())
	quote = relativeDiff(snapshot.Quote, position.TargetQuote())
	return base, quote, nil
}

// IsInRange reports whether both assets are within tolerance of their targets.
func IsInRange(snapshot domain.PoolSnapshot, position domain.Position, tolerance decimal.Decimal) (bool, error) {
	if err := ValidateTolerance(tolerance); err != nil {
		return false, err
	}

	if err := position.Validate(); err != nil {
		return false, err
	}

	return withinTolerance(snapshot.Base, position.TargetBase(), tolerance) &&
		withinTolerance(snapshot.Quote, position.TargetQuote(), tolerance), nil
}

// withinTolerance compares without dividing so the result is exact.
func withinTolerance(current, target, tolerance decimal.Decimal) bool {
	return current.Sub(target).Abs().LessThanOrEqual(tolerance.Mul(target))
}

// relativeDiff expects a positive target. Division rounds, so use it for
// reporting only.
func relativeDiff(current, target decimal.Decimal) decimal.Decimal {
	return current.Sub(target).Abs().Div(target)
}
