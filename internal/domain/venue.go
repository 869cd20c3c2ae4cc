package domain

import "github.com/shopspring/decimal"

// Signer authorizes venue operations on behalf of the position owner.
type Signer interface {
	PublicKey() string
	Sign(message []byte) ([]byte, error)
}

// Withdrawal amounts released by withdrawing the whole position.
type Withdrawal struct {
	Base  decimal.Decimal
	Quote decimal.Decimal
}

// SwapResult realized output of a swap, in units of the output asset.
type SwapResult struct {
	Output decimal.Decimal
}

// Confirmation of a deposited position.
type Confirmation struct {
	Signature string
}
