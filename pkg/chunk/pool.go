// Package chunk provides the content-addressed chunk pool shared by every
// record of one history.
package chunk

import (
	"sort"
	"sync"

	"github.com/papercomputeco/rewind/pkg/hash"
)

// PutResult describes what a Put did to the pool.
type PutResult struct {
	// Inserted is true if no entry existed under the digest.
	Inserted bool

	// Collided is true if an entry existed under the digest with a different
	// payload. The old payload has been overwritten.
	Collided bool
}

// Pool maps digests to serialized chunk payloads. Entries are never removed
// individually: identical payloads hash identically and collapse to a single
// entry, so there is nothing to reference count and Clear is all or nothing.
type Pool struct {
	// mu guards entries and size
	mu sync.RWMutex

	// entries is keyed by the digest of the payload it holds
	entries map[hash.Digest]string

	// size is the sum of payload lengths in bytes
	size int
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{
		entries: make(map[hash.Digest]string),
	}
}

// Put stores payload under digest, overwriting any existing entry.
func (p *Pool) Put(digest hash.Digest, payload string) PutResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, ok := p.entries[digest]
	if ok && existing == payload {
		return PutResult{}
	}

	p.entries[digest] = payload
	p.size += len(payload) - len(existing)

	return PutResult{Inserted: !ok, Collided: ok}
}

// Get returns the payload stored under digest.
func (p *Pool) Get(digest hash.Digest) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	payload, ok := p.entries[digest]
	if !ok {
		return "", NotFoundError{Digest: digest}
	}

	return payload, nil
}

// Has reports whether an entry exists under digest.
func (p *Pool) Has(digest hash.Digest) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.entries[digest]
	return ok
}

// Len returns the number of entries.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.entries)
}

// Bytes returns the total payload size in bytes.
func (p *Pool) Bytes() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.size
}

// Digests returns every digest in the pool, sorted.
func (p *Pool) Digests() []hash.Digest {
	p.mu.RLock()
	defer p.mu.RUnlock()

	digests := make([]hash.Digest, 0, len(p.entries))
	for d := range p.entries {
		digests = append(digests, d)
	}
	sort.Slice(digests, func(i, j int) bool { return digests[i] < digests[j] })

	return digests
}

// Clear removes every entry.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = make(map[hash.Digest]string)
	p.size = 0
}
