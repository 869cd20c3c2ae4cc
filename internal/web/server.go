// Package web serves operator endpoints: Prometheus metrics and the
// rebalance journal, as JSON or as an SSE stream.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/lpkeeper/internal/storage/journal"
)

const (
	journalPollInterval = 2 * time.Second
	heartbeatInterval   = 30 * time.Second
)

type journalReader interface {
	RecordsAfter(index uint64) ([]journal.IndexedRecord, error)
}

// Server exposes HTTP endpoints for metrics and per-pool journals.
type Server struct {
	Addr         string
	Metrics      http.Handler
	PollInterval time.Duration

	l        *zap.Logger
	mu       sync.RWMutex
	journals map[string]journalReader
}

// NewServer creates a server. metrics may be nil.
func NewServer(l *zap.Logger, addr string, metrics http.Handler) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{
		Addr:         addr,
		Metrics:      metrics,
		PollInterval: journalPollInterval,
		l:            l,
		journals:     make(map[string]journalReader),
	}
}

// AddJournal publishes the journal of a pool.
func (s *Server) AddJournal(pool string, j journalReader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journals[pool] = j
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics)
	}
	mux.HandleFunc("/journal", s.handleJournal)
	mux.HandleFunc("/journal/stream", s.handleJournalStream)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) journal(w http.ResponseWriter, r *http.Request) (journalReader, bool) {
	pool := r.URL.Query().Get("pool")
	s.mu.RLock()
	j, ok := s.journals[pool]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, fmt.Sprintf("unknown pool %q", pool), http.StatusNotFound)
		return nil, false
	}
	return j, true
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	j, ok := s.journal(w, r)
	if !ok {
		return
	}
	records, err := j.RecordsAfter(0)
	if err != nil {
		s.l.Error("journal read failed", zap.Error(err))
		http.Error(w, "failed to load journal", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []journal.IndexedRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

func (s *Server) handleJournalStream(w http.ResponseWriter, r *http.Request) {
	j, ok := s.journal(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat so proxies keep the connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(s.PollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendRecords := func() error {
		records, err := j.RecordsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, rec := range records {
			payload, err := json.Marshal(rec.Record)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", rec.Index)
			fmt.Fprintf(w, "event: cycle\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			lastIndex = rec.Index
		}
		flusher.Flush()
		return nil
	}

	if err := sendRecords(); err != nil {
		s.l.Error("journal stream initial load failed", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendRecords(); err != nil {
				s.l.Warn("journal stream poll failed", zap.Error(err))
			}
		}
	}
}
