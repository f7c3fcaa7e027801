// Package cache stores validation outcomes between cycles so datasets whose
// fingerprints have not moved can skip re-execution. Entries carry a TTL and
// the fingerprint the dataset had when the outcome was produced; callers
// compare fingerprints before trusting an outcome across cycles.
package cache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/stratalake/dqguard/fingerprint"
	"github.com/stratalake/dqguard/quality"
)

// DefaultShardCount is the number of map shards a store spreads keys over.
const DefaultShardCount = 16

// Key identifies a cached outcome: one dataset validated against one suite.
type Key struct {
	Dataset quality.DatasetKey
	Suite   string
}

// String renders the key as "layer/name#suite".
func (k Key) String() string {
	return k.Dataset.String() + "#" + k.Suite
}

// Entry is a cached outcome together with the fingerprint captured when the
// outcome was produced and the timestamps governing its lifetime.
type Entry struct {
	Outcome     quality.Outcome         `json:"outcome"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	InsertedAt  time.Time               `json:"inserted_at"`
	ExpiresAt   time.Time               `json:"expires_at"`
}

// entry is the stored form; elem is the entry's position in the eviction
// queue and never leaves the store.
type entry struct {
	Entry
	elem *list.Element
}

type shard struct {
	mu      sync.RWMutex
	entries map[Key]entry
}

// Store is a TTL result cache bounded to maxEntries. Reads touch only the
// shard holding the key; writes additionally serialize on the eviction
// queue, a FIFO of keys in insertion order. When an insert would push the
// store past maxEntries the single oldest entry is evicted first.
//
// Expired entries are misses and are removed lazily by the read that finds
// them, so the queue length always equals the number of live entries.
type Store struct {
	shards     []*shard
	maxEntries int
	log        *zap.SugaredLogger

	// queueMu guards queue and orders all map mutations. Lock it before any
	// shard mutex, never the other way around.
	queueMu sync.Mutex
	queue   *list.List // of Key, front is oldest

	hits    atomic.Uint64
	misses  atomic.Uint64
	evicted atomic.Uint64

	timeNow func() time.Time // Injectable for testing
}

// NewStore creates a result cache with real time.
func NewStore(maxEntries int, log *zap.SugaredLogger) *Store {
	return NewStoreWithClock(maxEntries, log, time.Now)
}

// NewStoreWithClock creates a result cache with an injectable clock (for testing).
func NewStoreWithClock(maxEntries int, log *zap.SugaredLogger, timeNow func() time.Time) *Store {
	shards := make([]*shard, DefaultShardCount)
	for i := range shards {
		shards[i] = &shard{entries: make(map[Key]entry)}
	}
	return &Store{
		shards:     shards,
		maxEntries: maxEntries,
		log:        log,
		queue:      list.New(),
		timeNow:    timeNow,
	}
}

func (s *Store) shardFor(key Key) *shard {
	h := fnv.New32a()
	h.Write([]byte(key.String()))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Get returns the entry for key if one exists and has not expired. An
// expired entry is a miss and is removed on the way out.
func (s *Store) Get(key Key) (Entry, bool) {
	sh := s.shardFor(key)
	now := s.timeNow()

	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return Entry{}, false
	}
	if now.Before(e.ExpiresAt) {
		s.hits.Add(1)
		return e.Entry, true
	}

	// Expired. Drop the entry so the queue stays in step with the maps; the
	// elem comparison skips the delete if another writer replaced the entry
	// between our read and this lock.
	s.queueMu.Lock()
	sh.mu.Lock()
	if cur, ok := sh.entries[key]; ok && cur.elem == e.elem {
		delete(sh.entries, key)
		s.queue.Remove(cur.elem)
	}
	sh.mu.Unlock()
	s.queueMu.Unlock()

	s.misses.Add(1)
	if s.log != nil {
		s.log.Debugw("Cache entry expired", "key", key.String(), "expired_at", e.ExpiresAt)
	}
	return Entry{}, false
}

// Put stores an outcome under key for ttl. A non-positive ttl would produce
// an entry that is already expired, so the write is dropped. Re-putting an
// existing key replaces the entry and moves it to the youngest queue slot.
func (s *Store) Put(key Key, outcome quality.Outcome, fp fingerprint.Fingerprint, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := s.timeNow()

	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	sh := s.shardFor(key)
	sh.mu.Lock()
	if old, ok := sh.entries[key]; ok {
		s.queue.Remove(old.elem)
		delete(sh.entries, key)
	}
	sh.mu.Unlock()

	if s.maxEntries > 0 && s.queue.Len() >= s.maxEntries {
		s.evictOldest()
	}

	elem := s.queue.PushBack(key)
	sh.mu.Lock()
	sh.entries[key] = entry{
		Entry: Entry{
			Outcome:     outcome,
			Fingerprint: fp,
			InsertedAt:  now,
			ExpiresAt:   now.Add(ttl),
		},
		elem: elem,
	}
	sh.mu.Unlock()
}

// evictOldest removes the entry at the front of the queue. Must be called
// with queueMu held.
func (s *Store) evictOldest() {
	front := s.queue.Front()
	if front == nil {
		return
	}
	key := front.Value.(Key)
	s.queue.Remove(front)

	sh := s.shardFor(key)
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()

	s.evicted.Add(1)
	if s.log != nil {
		s.log.Debugw("Cache full, evicted oldest entry", "key", key.String(), "max_entries", s.maxEntries)
	}
}

// Invalidate removes the entry for key if present.
func (s *Store) Invalidate(key Key) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	sh := s.shardFor(key)
	sh.mu.Lock()
	if e, ok := sh.entries[key]; ok {
		delete(sh.entries, key)
		s.queue.Remove(e.elem)
	}
	sh.mu.Unlock()
}

// Len returns the number of live entries, expired or not yet read included.
func (s *Store) Len() int {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return s.queue.Len()
}

// Stats returns cumulative hit, miss, and eviction counts.
func (s *Store) Stats() (hits, misses, evicted uint64) {
	return s.hits.Load(), s.misses.Load(), s.evicted.Load()
}
