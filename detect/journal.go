package detect

import (
	"sync"

	"github.com/stratalake/dqguard/fingerprint"
	"github.com/stratalake/dqguard/quality"
)

// Journal stores the last known fingerprint per dataset and hands out
// per-dataset locks so concurrent validations of the same dataset
// cannot interleave their metadata writes. Unrelated datasets stay
// independent.
//
// The journal is in-memory and per-process: a cold start validates
// everything, which fails toward revalidating rather than skipping.
type Journal struct {
	mu      sync.Mutex // guards the maps, never held across a key lock
	entries map[quality.DatasetKey]fingerprint.Fingerprint
	locks   map[quality.DatasetKey]*sync.Mutex
}

// NewJournal creates an empty fingerprint journal
func NewJournal() *Journal {
	return &Journal{
		entries: make(map[quality.DatasetKey]fingerprint.Fingerprint),
		locks:   make(map[quality.DatasetKey]*sync.Mutex),
	}
}

// Lock acquires the per-dataset lock, creating it on first use, and
// returns the unlock. The caller must invoke the unlock exactly once.
func (j *Journal) Lock(key quality.DatasetKey) func() {
	j.mu.Lock()
	l, ok := j.locks[key]
	if !ok {
		l = &sync.Mutex{}
		j.locks[key] = l
	}
	j.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns the stored fingerprint for key. ok is false when the
// dataset has never been fingerprinted (cold start).
func (j *Journal) Get(key quality.DatasetKey) (fingerprint.Fingerprint, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fp, ok := j.entries[key]
	return fp, ok
}

// Put stores the fingerprint for key, superseding any previous one
func (j *Journal) Put(key quality.DatasetKey, fp fingerprint.Fingerprint) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[key] = fp
}

// Len returns the number of fingerprinted datasets
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}
