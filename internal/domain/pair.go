// Package domain defines core data structures used throughout the rebalancer.
package domain

import (
	"fmt"
	"strings"
)

// Pair is the two assets held by a liquidity position.
type Pair struct {
	// Base asset symbol, e.g. SOL.
	Base string
	// Quote asset symbol, e.g. USDC.
	Quote string
}

// ParsePair parses BASE_QUOTE notation.
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, &ConfigurationError{Field: "pair", Reason: fmt.Sprintf("invalid pair %q, expected BASE_QUOTE", s)}
	}
	return Pair{Base: parts[0], Quote: parts[1]}, nil
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.Base, p.Quote)
}
