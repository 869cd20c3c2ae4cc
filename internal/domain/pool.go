package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

const publicKeyLength = 32

// PoolID identifies a pool account on chain (base58 public key).
type PoolID string

// ParsePoolID checks that s is a base58-encoded 32 byte public key.
func ParsePoolID(s string) (PoolID, error) {
	if s == "" {
		return "", &ConfigurationError{Field: "pool", Reason: "pool identifier is required"}
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return "", &ConfigurationError{Field: "pool", Reason: fmt.Sprintf("decode base58: %v", err)}
	}
	if len(raw) != publicKeyLength {
		return "", &ConfigurationError{Field: "pool", Reason: fmt.Sprintf("expected %d bytes, got %d", publicKeyLength, len(raw))}
	}
	return PoolID(s), nil
}

// String returns the string representation.
func (id PoolID) String() string {
	return string(id)
}

// PoolSnapshot current amounts of the position in its pool, in human-readable units.
type PoolSnapshot struct {
	Base  decimal.Decimal
	Quote decimal.Decimal
}

// NormalizeAmount converts a raw on-chain amount in smallest units into
// human-readable units, e.g. lamports into SOL for decimals=9.
func NormalizeAmount(raw decimal.Decimal, decimals int32) decimal.Decimal {
	return raw.Shift(-decimals)
}

// ToSmallestUnits is the inverse of NormalizeAmount. Fractions below one
// smallest unit are truncated.
func ToSmallestUnits(amount decimal.Decimal, decimals int32) decimal.Decimal {
	return amount.Shift(decimals).Truncate(0)
}
