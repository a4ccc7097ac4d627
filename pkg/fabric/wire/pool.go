package wire

import "sync"

// Pool is a canonicalizing cache: Add returns the first-seen instance that is
// structurally equal to its argument, so thousands of identically wired
// locations end up sharing one Set or Map rather than holding duplicates.
//
// A pool is scoped to one generation (or deserialization) run and discarded
// with it; it never evicts. The mutex makes Add safe to call from the
// generator's worker pool.
type Pool[T any] struct {
	mu      sync.Mutex
	hash    func(T) uint64
	eq      func(T, T) bool
	buckets map[uint64][]T
	size    int
}

// NewPool builds a pool over the given structural hash and equality. Values
// with equal hashes are distinguished by eq, so hash collisions only cost a
// short scan.
func NewPool[T any](hash func(T) uint64, eq func(T, T) bool) *Pool[T] {
	return &Pool[T]{
		hash:    hash,
		eq:      eq,
		buckets: make(map[uint64][]T),
	}
}

// Add returns the canonical instance equal to x, interning x when no equal
// value has been seen before.
func (p *Pool[T]) Add(x T) T {
	h := p.hash(x)

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.buckets[h] {
		if p.eq(c, x) {
			return c
		}
	}
	p.buckets[h] = append(p.buckets[h], x)
	p.size++
	return x
}

// Size returns the number of canonical instances interned so far.
func (p *Pool[T]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// NewSetPool returns a pool for connection sets. A nil set hashes to the
// empty hash and only equals nil, so the empty sentinel stays shared.
func NewSetPool() *Pool[*Set] {
	return NewPool(
		func(s *Set) uint64 { return s.Hash() },
		func(a, b *Set) bool { return a.Equal(b) },
	)
}

// NewMapPool returns a pool for adjacency maps.
func NewMapPool() *Pool[*Map] {
	return NewPool(
		func(m *Map) uint64 { return m.Hash() },
		func(a, b *Map) bool { return a.Equal(b) },
	)
}

// NewTemplateSetPool returns a pool for legal-wire and node-root sets.
func NewTemplateSetPool() *Pool[*TemplateSet] {
	return NewPool(
		func(ts *TemplateSet) uint64 { return ts.Hash() },
		func(a, b *TemplateSet) bool { return a.Equal(b) },
	)
}
