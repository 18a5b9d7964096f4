package corpus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobmcallan/dart-portal/internal/common"
)

// Loader produces the full company list.
type Loader interface {
	Load(ctx context.Context) ([]Record, error)
}

// Snapshot is an immutable, search-ready company list.
type Snapshot struct {
	entries  []indexedRecord
	listed   int
	loadedAt time.Time
}

// NewSnapshot indexes records for searching.
func NewSnapshot(records []Record) *Snapshot {
	s := &Snapshot{entries: index(records), loadedAt: time.Now()}
	for _, r := range records {
		if r.Listed() {
			s.listed++
		}
	}
	return s
}

// Len is the number of companies.
func (s *Snapshot) Len() int { return len(s.entries) }

// Listed is the number of companies with a stock code.
func (s *Snapshot) Listed() int { return s.listed }

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Search ranks this snapshot's companies against keyword.
func (s *Snapshot) Search(keyword string, limit int) ([]Result, error) {
	return rank(s.entries, keyword, limit)
}

// Store serves searches from the current snapshot. Reload builds a new
// snapshot and swaps it in whole; readers never see a partial corpus.
type Store struct {
	loader   Loader
	logger   *common.Logger
	current  atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
	lastErr  atomic.Value
}

// NewStore creates a store with an empty snapshot. Call Reload to populate it.
func NewStore(loader Loader, logger *common.Logger) *Store {
	s := &Store{loader: loader, logger: logger}
	s.current.Store(NewSnapshot(nil))
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Search ranks the current snapshot.
func (s *Store) Search(keyword string, limit int) ([]Result, error) {
	return s.Snapshot().Search(keyword, limit)
}

// Reload replaces the snapshot from the loader. On failure the previous
// snapshot stays in place.
func (s *Store) Reload(ctx context.Context) (int, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	records, err := s.loader.Load(ctx)
	if err != nil {
		s.lastErr.Store(err.Error())
		return 0, fmt.Errorf("failed to load company corpus: %w", err)
	}

	snap := NewSnapshot(records)
	s.current.Store(snap)
	s.lastErr.Store("")

	s.logger.Info().
		Int("companies", snap.Len()).
		Int("listed", snap.Listed()).
		Dur("elapsed", time.Since(start)).
		Msg("company corpus loaded")

	return snap.Len(), nil
}

// LastError is the message of the most recent failed reload, or "".
func (s *Store) LastError() string {
	v, _ := s.lastErr.Load().(string)
	return v
}

// Status describes the store for health checks.
type Status struct {
	Companies      int       `json:"companies_loaded"`
	Listed         int       `json:"listed"`
	DatabaseExists bool      `json:"database_exists"`
	DatabasePath   string    `json:"database_path"`
	LoadedAt       time.Time `json:"loaded_at"`
	LastError      string    `json:"last_error,omitempty"`
}

// Status reports the current snapshot and, when the loader is file backed,
// where the database lives.
func (s *Store) Status() Status {
	snap := s.Snapshot()
	st := Status{
		Companies: snap.Len(),
		Listed:    snap.Listed(),
		LoadedAt:  snap.LoadedAt(),
		LastError: s.LastError(),
	}
	if src, ok := s.loader.(interface {
		Path() string
		Exists() bool
	}); ok {
		st.DatabasePath = src.Path()
		st.DatabaseExists = src.Exists()
	}
	return st
}
