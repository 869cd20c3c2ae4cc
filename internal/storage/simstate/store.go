// Package simstate persists simulated pool state so restarts keep reserves and the position.
package simstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
)

const defaultStateDir = "./wal/simulate"

// Store keeps simulator state of one pool in a JSON file.
type Store struct {
	path string
}

func getStateDir(dir string) string {
	if dir != "" {
		return dir
	}
	if stateDir := os.Getenv("LPKEEPER_SIMULATE_STATE_DIR"); stateDir != "" {
		return stateDir
	}
	return defaultStateDir
}

// NewStore creates a simulator state store for the pool. Empty dir falls
// back to LPKEEPER_SIMULATE_STATE_DIR and then ./wal/simulate.
func NewStore(dir string, pool domain.PoolID) (*Store, error) {
	stateDir := getStateDir(dir)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create simulate state dir")
	}

	return &Store{path: filepath.Join(stateDir, fmt.Sprintf("%s.json", pool))}, nil
}

// State is the persisted simulator data. Base amounts are stored in smallest units.
type State struct {
	Pool             string `json:"pool"`
	Owner            string `json:"owner"`
	BaseDecimals     int32  `json:"base_decimals"`
	FeeBps           int64  `json:"fee_bps"`
	BaseReserveRaw   string `json:"base_reserve_raw"`
	QuoteReserve     string `json:"quote_reserve"`
	PositionBaseRaw  string `json:"position_base_raw"`
	PositionQuote    string `json:"position_quote"`
	WalletBaseRaw    string `json:"wallet_base_raw"`
	WalletQuote      string `json:"wallet_quote"`
	TransactionCount uint64 `json:"tx_count"`
}

// Amounts is the decoded form of the decimal fields of State.
type Amounts struct {
	BaseReserveRaw  decimal.Decimal
	QuoteReserve    decimal.Decimal
	PositionBaseRaw decimal.Decimal
	PositionQuote   decimal.Decimal
	WalletBaseRaw   decimal.Decimal
	WalletQuote     decimal.Decimal
}

// Decode parses the stored decimal strings. Empty strings decode to zero.
func (s State) Decode() (Amounts, error) {
	var a Amounts
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"base_reserve_raw", s.BaseReserveRaw, &a.BaseReserveRaw},
		{"quote_reserve", s.QuoteReserve, &a.QuoteReserve},
		{"position_base_raw", s.PositionBaseRaw, &a.PositionBaseRaw},
		{"position_quote", s.PositionQuote, &a.PositionQuote},
		{"wallet_base_raw", s.WalletBaseRaw, &a.WalletBaseRaw},
		{"wallet_quote", s.WalletQuote, &a.WalletQuote},
	}

	for _, f := range fields {
		if f.raw == "" {
			*f.dst = decimal.Zero
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return Amounts{}, errors.Wrapf(err, "decode %s", f.name)
		}
		*f.dst = v
	}
	return a, nil
}

// Encode writes amounts back into their string form.
func (s *State) Encode(a Amounts) {
	s.BaseReserveRaw = a.BaseReserveRaw.String()
	s.QuoteReserve = a.QuoteReserve.String()
	s.PositionBaseRaw = a.PositionBaseRaw.String()
	s.PositionQuote = a.PositionQuote.String()
	s.WalletBaseRaw = a.WalletBaseRaw.String()
	s.WalletQuote = a.WalletQuote.String()
}

// Load reads simulator state from disk. A missing file yields nil state.
func (s *Store) Load() (*State, error) {
	if s == nil || s.path == "" {
		return nil, nil
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "read simulate state")
	}

	if len(payload) == 0 {
		return nil, nil
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, errors.Wrap(err, "decode simulate state")
	}

	return &state, nil
}

// Save writes simulator state to disk atomically via temp file.
func (s *Store) Save(state State) error {
	if s == nil || s.path == "" {
		return nil
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode simulate state")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write simulate state temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist simulate state")
	}

	return nil
}
