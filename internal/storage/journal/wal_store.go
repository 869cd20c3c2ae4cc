// Package journal persists rebalance cycle progress so operators can reconcile
// funds left outside the pool after a failed cycle.
package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
)

const (
	defaultJournalDir = "./wal"
	segmentThreshold  = 1000
	maxSegments       = 100
	dirPermissions    = 0o755
	recordKeyPrefix   = "rebalance_cycle_"
)

// Status of a journaled stage.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Record is a single stage transition of a cycle.
type Record struct {
	CycleID string          `json:"cycle_id"`
	Pool    string          `json:"pool"`
	Stage   string          `json:"stage"`
	Status  Status          `json:"status"`
	Base    decimal.Decimal `json:"base"`
	Quote   decimal.Decimal `json:"quote"`
	Detail  string          `json:"detail,omitempty"`
	Error   string          `json:"error,omitempty"`
	Time    time.Time       `json:"time"`
}

// IndexedRecord bundles a record with its WAL index.
type IndexedRecord struct {
	Index  uint64
	Record Record
}

// WALStore appends cycle records to a write-ahead log.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
	now func() time.Time
}

// NewWALStore opens (or creates) a journal for the pool under dir.
func NewWALStore(dir string, pool domain.PoolID) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}
	walDir := filepath.Join(dir, pool.String())
	if err := os.MkdirAll(walDir, dirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure journal directory %s", walDir)
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              walDir,
		Prefix:           "cycle_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init rebalance journal WAL")
	}

	return &WALStore{wal: wal, now: time.Now}, nil
}

// NewCycleID returns a fresh cycle identifier.
func NewCycleID() string {
	return uuid.New().String()
}

// Append writes a record. Time is filled when empty.
func (s *WALStore) Append(rec Record) error {
	if s == nil || s.wal == nil {
		return errors.New("rebalance journal is not initialized")
	}
	if rec.CycleID == "" {
		return errors.New("journal record cycle id is required")
	}
	if rec.Time.IsZero() {
		rec.Time = s.now().UTC()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal journal record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, recordKeyPrefix+rec.CycleID, payload)
}

// RecordsAfter returns records written after the given WAL index.
func (s *WALStore) RecordsAfter(index uint64) ([]IndexedRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("rebalance journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]IndexedRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			return nil, errors.Wrapf(err, "read journal record %d", idx)
		}
		if !strings.HasPrefix(key, recordKeyPrefix) {
			continue
		}
		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, errors.Wrap(err, "decode journal record")
		}
		records = append(records, IndexedRecord{Index: idx, Record: rec})
	}

	return records, nil
}

// Cycle returns all records of one cycle in write order.
func (s *WALStore) Cycle(cycleID string) ([]Record, error) {
	all, err := s.RecordsAfter(0)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range all {
		if r.Record.CycleID == cycleID {
			out = append(out, r.Record)
		}
	}
	return out, nil
}

// Unreconciled returns the last record of every cycle that withdrew the
// position but never finished the deposit. Funds of those cycles sit in the
// wallet as loose base/quote balances. Cycles listed in inFlight are skipped.
func (s *WALStore) Unreconciled(inFlight ...string) ([]Record, error) {
	all, err := s.RecordsAfter(0)
	if err != nil {
		return nil, err
	}

	type progress struct {
		last      Record
		withdrawn bool
		deposited bool
	}
	cycles := make(map[string]*progress)
	order := make([]string, 0)
	for _, r := range all {
		p, seen := cycles[r.Record.CycleID]
		if !seen {
			p = &progress{}
			cycles[r.Record.CycleID] = p
			order = append(order, r.Record.CycleID)
		}
		p.last = r.Record
		if r.Record.Status != StatusDone {
			continue
		}
		switch r.Record.Stage {
		case domain.StageWithdraw.String():
			p.withdrawn = true
		case domain.StageDeposit.String():
			p.deposited = true
		}
	}

	skip := make(map[string]struct{}, len(inFlight))
	for _, id := range inFlight {
		skip[id] = struct{}{}
	}

	var out []Record
	for _, id := range order {
		if _, ok := skip[id]; ok {
			continue
		}
		if p := cycles[id]; p.withdrawn && !p.deposited {
			out = append(out, p.last)
		}
	}
	return out, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("rebalance journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
