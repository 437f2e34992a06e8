package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/orbitwatch/internal/domain/orbit"
	"github.com/okian/orbitwatch/pkg/metrics"
)

// DefaultLimit applies when a Query sets no limit.
const DefaultLimit = 100

// Query filters List. A zero NoradID matches every satellite.
type Query struct {
	NoradID int
	Limit   int
}

// Entry is a stored record plus its decoded epoch. Epoch is zero when the
// element set does not decode.
type Entry struct {
	orbit.Record
	Epoch time.Time `json:"EPOCH,omitempty"`
}

// Store keeps the catalog in memory, newest epoch first. A satellite may
// appear more than once; Get returns its newest element set.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	latest  map[int]int // norad id -> index into entries
}

// NewStore creates a store holding records.
func NewStore(records []orbit.Record) *Store {
	s := &Store{}
	s.Replace(records)
	return s
}

// Replace swaps the whole catalog.
func (s *Store) Replace(records []orbit.Record) {
	entries, latest := index(decodeEntries(records))

	s.mu.Lock()
	s.entries = entries
	s.latest = latest
	s.mu.Unlock()

	metrics.UpdateCatalogSize(len(entries))
}

// Add appends the valid records and returns how many were stored. On an
// epoch tie the added element set becomes the newest.
func (s *Store) Add(records []orbit.Record) int {
	kept := make([]orbit.Record, 0, len(records))
	for _, rec := range records {
		if valid(rec) {
			kept = append(kept, rec)
		}
	}
	if len(kept) == 0 {
		return 0
	}
	fresh := decodeEntries(kept)

	s.mu.Lock()
	entries, latest := index(append(fresh, s.entries...))
	s.entries = entries
	s.latest = latest
	size := len(entries)
	s.mu.Unlock()

	metrics.UpdateCatalogSize(size)
	return len(kept)
}

func decodeEntries(records []orbit.Record) []Entry {
	entries := make([]Entry, len(records))
	for i, rec := range records {
		entries[i] = Entry{Record: rec}
		if e, err := orbit.Decode(rec.Line1, rec.Line2); err == nil {
			entries[i].Epoch = e.Epoch
		}
	}
	return entries
}

// index sorts entries newest epoch first and maps each satellite to its
// first entry.
func index(entries []Entry) ([]Entry, map[int]int) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Epoch.After(entries[j].Epoch)
	})
	latest := make(map[int]int, len(entries))
	for i, e := range entries {
		if _, ok := latest[e.NoradID]; !ok {
			latest[e.NoradID] = i
		}
	}
	return entries, latest
}

// Get returns the newest record for a satellite.
func (s *Store) Get(ctx context.Context, noradID int) (orbit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.latest[noradID]
	if !ok {
		return orbit.Record{}, ErrNotFound
	}
	return s.entries[i].Record, nil
}

// List returns up to q.Limit entries, newest epoch first.
func (s *Store) List(ctx context.Context, q Query) []Entry {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, min(limit, len(s.entries)))
	for _, e := range s.entries {
		if len(out) >= limit {
			break
		}
		if q.NoradID != 0 && e.NoradID != q.NoradID {
			continue
		}
		out = append(out, e)
	}
	return out
}

// All returns the newest record of every satellite, newest epoch first.
func (s *Store) All(ctx context.Context) []orbit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orbit.Record, 0, len(s.latest))
	for i, e := range s.entries {
		if s.latest[e.NoradID] == i {
			out = append(out, e.Record)
		}
	}
	return out
}

// Count returns the number of stored element sets.
func (s *Store) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
