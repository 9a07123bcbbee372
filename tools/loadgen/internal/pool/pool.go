// Package pool holds values harvested from API responses during a load run
// so later requests can reference real identifiers instead of random ones.
package pool

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
)

// Kind classifies a harvested value by what it identifies.
type Kind string

const (
	KindProductID    Kind = "product_id"
	KindProductSlug  Kind = "product_slug"
	KindCategorySlug Kind = "category_slug"
	KindOrderID      Kind = "order_id"
)

// ErrPoolClosed is returned when an operation is attempted on a closed pool.
var ErrPoolClosed = errors.New("value pool is closed")

// ValuePool is a thread-safe store of harvested values keyed by kind.
// Each kind is capped; when full, a random existing value is replaced so
// the pool keeps drifting toward recently seen identifiers.
type ValuePool struct {
	mu      sync.RWMutex
	values  map[Kind][]string
	perKind int
	closed  atomic.Bool

	addCount     atomic.Int64
	hitCount     atomic.Int64
	missCount    atomic.Int64
	replaceCount atomic.Int64

	rng *rand.Rand
}

// New creates a ValuePool holding at most perKind values per kind.
func New(perKind int, seed int64) *ValuePool {
	if perKind <= 0 {
		perKind = 256
	}
	return &ValuePool{
		values:  make(map[Kind][]string),
		perKind: perKind,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Add records a harvested value. Duplicates are allowed; they just bias
// random picks toward common values, which matches real traffic.
func (p *ValuePool) Add(kind Kind, value string) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if value == "" {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.addCount.Add(1)
	values := p.values[kind]
	if len(values) >= p.perKind {
		values[p.rng.Intn(len(values))] = value
		p.replaceCount.Add(1)
		return nil
	}
	p.values[kind] = append(values, value)
	return nil
}

// Random returns a uniformly random value of the given kind.
// The second return is false when the pool has none yet.
func (p *ValuePool) Random(kind Kind) (string, bool) {
	if p.closed.Load() {
		return "", false
	}

	// Full lock because the rng is not safe for concurrent use
	p.mu.Lock()
	defer p.mu.Unlock()

	values := p.values[kind]
	if len(values) == 0 {
		p.missCount.Add(1)
		return "", false
	}
	p.hitCount.Add(1)
	return values[p.rng.Intn(len(values))], true
}

// Len returns the number of stored values of a kind.
func (p *ValuePool) Len(kind Kind) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.values[kind])
}

// Stats reports pool counters for the end-of-run summary.
type Stats struct {
	Adds     int64
	Hits     int64
	Misses   int64
	Replaced int64
}

// Stats returns a snapshot of the pool counters.
func (p *ValuePool) Stats() Stats {
	return Stats{
		Adds:     p.addCount.Load(),
		Hits:     p.hitCount.Load(),
		Misses:   p.missCount.Load(),
		Replaced: p.replaceCount.Load(),
	}
}

// Close marks the pool closed. Subsequent Add and Random calls fail fast.
func (p *ValuePool) Close() {
	p.closed.Store(true)
}
