// Package store implements the versioned, reader/writer-locked replica of
// flag and segment entities (plus the internal test category) that the
// streaming pipeline feeds, and the Registry of typed definitions the
// evaluator reads from.
package store

import (
	"sync"

	"github.com/TimurManjosov/fbgo-sdk/internal/category"
	"github.com/TimurManjosov/fbgo-sdk/internal/model"
)

// Store is the interface the update-status provider and streaming pipeline
// share. Both the in-memory implementation and the offline Null variant
// satisfy it.
type Store interface {
	// Get returns the entity for key in category c, or the zero Entity
	// (empty Key) if it is absent or archived.
	Get(c category.Category, key string) model.Entity
	// GetAll returns every non-archived entity in category c, keyed by
	// entity key.
	GetAll(c category.Category) map[string]model.Entity
	// Init replaces the entire store content atomically and bumps
	// latestVersion. A no-op when version is not strictly greater than
	// the current latestVersion.
	Init(allData map[category.Category]map[string]model.Entity, version int64) bool
	// Upsert applies a single entity update, gated on the existing
	// entity's own timestamp rather than the global latestVersion.
	Upsert(c category.Category, key string, entity model.Entity, version int64) bool
	// Initialized reports whether Init or Upsert has ever succeeded.
	Initialized() bool
	// LatestVersion returns the highest version accepted by Init or
	// Upsert so far.
	LatestVersion() int64
	// Stop releases any resources. The in-memory store has none; it
	// exists to satisfy Close() propagation from the Coordinator.
	Stop()
}

// MemoryStore is the default, in-process Store implementation: a plain map
// of maps guarded by a single RWMutex, mirroring the reader/writer lock
// contract of the original SDK's InMemoryDataStorage.
type MemoryStore struct {
	mu            sync.RWMutex
	data          map[category.Category]map[string]model.Entity
	initialized   bool
	latestVersion int64
}

// NewMemoryStore creates an empty, uninitialized store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{data: make(map[category.Category]map[string]model.Entity)}
	for _, c := range category.All {
		s.data[c] = make(map[string]model.Entity)
	}
	return s
}

// Get returns the zero Entity (Key == "") when absent or archived.
func (s *MemoryStore) Get(c category.Category, key string) model.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, ok := s.data[c]
	if !ok {
		return model.Entity{}
	}
	entity, ok := bucket[key]
	if !ok || entity.IsArchived {
		return model.Entity{}
	}
	return entity
}

// GetAll filters archived entities from the returned snapshot.
func (s *MemoryStore) GetAll(c category.Category) map[string]model.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.data[c]
	result := make(map[string]model.Entity, len(bucket))
	for k, entity := range bucket {
		if entity.IsArchived {
			continue
		}
		result[k] = entity
	}
	return result
}

// Init replaces the whole store atomically. A nil allData, or a version not
// strictly greater than latestVersion, is a silent no-op.
func (s *MemoryStore) Init(allData map[category.Category]map[string]model.Entity, version int64) bool {
	if allData == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if version <= s.latestVersion {
		return false
	}

	fresh := make(map[category.Category]map[string]model.Entity, len(category.All))
	for _, c := range category.All {
		bucket := allData[c]
		copied := make(map[string]model.Entity, len(bucket))
		for k, v := range bucket {
			copied[k] = v
		}
		fresh[c] = copied
	}

	s.data = fresh
	s.latestVersion = version
	s.initialized = true
	return true
}

// Upsert gates on the existing entity's own timestamp, not the global
// latestVersion, so an out-of-order update for one key cannot be rejected
// by a newer update already applied to a different key. A successful
// upsert still advances the global latestVersion.
func (s *MemoryStore) Upsert(c category.Category, key string, entity model.Entity, version int64) bool {
	if key == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.data[c]
	if !ok {
		bucket = make(map[string]model.Entity)
		s.data[c] = bucket
	}

	if existing, ok := bucket[key]; ok && version <= existing.Timestamp {
		return false
	}

	bucket[key] = entity
	if version > s.latestVersion {
		s.latestVersion = version
	}
	s.initialized = true
	return true
}

// Initialized reports whether Init or Upsert has ever succeeded.
func (s *MemoryStore) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// LatestVersion returns the highest version accepted so far.
func (s *MemoryStore) LatestVersion() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestVersion
}

// Stop is a no-op; MemoryStore holds no external resources.
func (s *MemoryStore) Stop() {}

// NullStore is an explicit WithDataStorage override for callers who want
// every evaluation to fall back to its caller-supplied default: it
// reports initialized and silently discards every write. It is not the
// automatic offline-mode store — offline Clients still get a real
// MemoryStore, since InitializeFromExternalJSON needs somewhere to land
// bootstrapped flags.
type NullStore struct{}

// NewNullStore returns a Store that never stores anything.
func NewNullStore() *NullStore { return &NullStore{} }

func (*NullStore) Get(category.Category, string) model.Entity { return model.Entity{} }
func (*NullStore) GetAll(category.Category) map[string]model.Entity {
	return map[string]model.Entity{}
}
func (*NullStore) Init(map[category.Category]map[string]model.Entity, int64) bool { return false }
func (*NullStore) Upsert(category.Category, string, model.Entity, int64) bool     { return false }
func (*NullStore) Initialized() bool                                              { return true }
func (*NullStore) LatestVersion() int64                                           { return 0 }
func (*NullStore) Stop()                                                          {}
