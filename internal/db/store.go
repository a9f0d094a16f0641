// Package db persists the set of announcements already reported. The Store
// keeps the state in memory for the whole run and writes it back once.
package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tender_spider/internal/logger"
	"tender_spider/internal/models"
)

// TimeLayout is the first-seen timestamp format.
const TimeLayout = time.RFC3339

// Backend loads and saves the whole seen-state at once.
type Backend interface {
	Load(ctx context.Context) (models.SeenState, error)
	Save(ctx context.Context, state models.SeenState) error
	Close(ctx context.Context) error
}

type Store struct {
	backend  Backend
	capacity int
	log      logger.Logger

	mu    sync.Mutex
	state models.SeenState
}

func NewStore(backend Backend, capacity int, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		backend:  backend,
		capacity: capacity,
		log:      log,
		state:    models.SeenState{},
	}
}

// Load reads the persisted state. A missing or unreadable store is treated
// as empty and only logged. It returns the number of records loaded.
func (s *Store) Load(ctx context.Context) int {
	state, err := s.backend.Load(ctx)
	if err != nil {
		s.log.Warn("Seen store unreadable, starting empty", logger.Error(err))
		state = nil
	}
	if state == nil {
		state = models.SeenState{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return countRecords(state)
}

func (s *Store) IsNew(bucket, identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state[bucket][identity]
	return !ok
}

// MarkSeen records identity in bucket. An existing first-seen time is kept.
func (s *Store) MarkSeen(bucket, identity string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.state[bucket]
	if !ok {
		b = map[string]string{}
		s.state[bucket] = b
	}
	if _, seen := b[identity]; !seen {
		b[identity] = at.Format(TimeLayout)
	}
}

// Save trims every bucket to capacity, oldest first-seen evicted first, and
// writes the state through the backend.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	evicted := 0
	for bucket, records := range s.state {
		evicted += trimBucket(records, s.capacity)
		if len(records) == 0 {
			delete(s.state, bucket)
		}
	}
	snapshot := cloneState(s.state)
	s.mu.Unlock()

	if evicted > 0 {
		s.log.Info("Evicted oldest seen records", logger.Int("evicted", evicted), logger.Int("capacity", s.capacity))
	}
	if err := s.backend.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save seen store: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() models.SeenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

func (s *Store) Close(ctx context.Context) error {
	return s.backend.Close(ctx)
}

// Records flattens a state into records sorted by bucket, then first-seen.
func Records(state models.SeenState) []models.SeenRecord {
	var out []models.SeenRecord
	for bucket, records := range state {
		for id, ts := range records {
			out = append(out, models.SeenRecord{ID: recordID(bucket, id), Bucket: bucket, Identity: id, FirstSeen: ts})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bucket != out[j].Bucket {
			return out[i].Bucket < out[j].Bucket
		}
		if out[i].FirstSeen != out[j].FirstSeen {
			return out[i].FirstSeen < out[j].FirstSeen
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}

func recordID(bucket, identity string) string {
	return bucket + "/" + identity
}

// trimBucket deletes the oldest entries until at most capacity remain.
func trimBucket(records map[string]string, capacity int) int {
	if capacity <= 0 || len(records) <= capacity {
		return 0
	}
	type entry struct {
		id string
		at time.Time
	}
	entries := make([]entry, 0, len(records))
	for id, ts := range records {
		at, err := time.Parse(TimeLayout, ts)
		if err != nil {
			at = time.Time{}
		}
		entries = append(entries, entry{id: id, at: at})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].at.Equal(entries[j].at) {
			return entries[i].at.Before(entries[j].at)
		}
		return entries[i].id < entries[j].id
	})
	drop := len(entries) - capacity
	for _, e := range entries[:drop] {
		delete(records, e.id)
	}
	return drop
}

func cloneState(state models.SeenState) models.SeenState {
	out := make(models.SeenState, len(state))
	for bucket, records := range state {
		b := make(map[string]string, len(records))
		for id, ts := range records {
			b[id] = ts
		}
		out[bucket] = b
	}
	return out
}

func countRecords(state models.SeenState) int {
	n := 0
	for _, records := range state {
		n += len(records)
	}
	return n
}
