package wire

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Argument-validation failures reported by NewMapSized.
var (
	ErrInvalidCapacity   = errors.New("wire: capacity must be non-negative")
	ErrInvalidLoadFactor = errors.New("wire: load factor must be in (0, 1]")
)

const (
	// MinCapacity is the smallest backing array a Map will allocate.
	MinCapacity = 4
	// DefaultLoadFactor triggers doubling when size crosses capacity×0.85.
	DefaultLoadFactor = 0.85
)

// probeStride is the open-addressing step. With a power-of-two capacity of
// at least four, overflowing the array by less than four and masking with &3
// lands exactly where a mod-capacity wrap would, so the probe walks every
// slot before repeating (gcd(3, 2^k) = 1).
const probeStride = 3

// Map is the core adjacency table: an open-addressing map from canonical
// wire templates (keyed by ordinal) to connection sets. It exists because a
// device holds one or two of these per tile across hundreds of thousands of
// tiles; Go's built-in map costs too much per instance at that count.
//
// Maps are mutated only by the generator. After generation they are shared
// through pooling and must be treated as immutable; all read paths,
// including the lazily cached views, are then safe for concurrent use.
type Map struct {
	keys       []*Template
	values     []*Set
	size       int
	limit      int
	loadFactor float32

	// version counts mutations; the cached views below carry the version
	// they were computed at and are rebuilt whenever the counters diverge.
	version uint64

	viewMu       sync.Mutex
	keyView      []*Template
	keyViewVer   uint64
	valueView    []*Set
	valueViewVer uint64
}

// NewMap returns an empty map with the minimum capacity and default load
// factor.
func NewMap() *Map {
	m, _ := NewMapSized(MinCapacity, DefaultLoadFactor)
	return m
}

// NewMapSized returns an empty map sized for the given capacity, rounded up
// to a power of two no smaller than MinCapacity.
func NewMapSized(capacity int, loadFactor float32) (*Map, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if loadFactor <= 0 || loadFactor > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLoadFactor, loadFactor)
	}
	n := MinCapacity
	for n < capacity {
		n <<= 1
	}
	m := &Map{
		keys:       make([]*Template, n),
		values:     make([]*Set, n),
		loadFactor: loadFactor,
		version:    1,
	}
	m.limit = int(float32(n) * loadFactor)
	return m, nil
}

// Size returns the number of distinct keys.
func (m *Map) Size() int {
	if m == nil {
		return 0
	}
	return m.size
}

// Capacity returns the current backing array length.
func (m *Map) Capacity() int { return len(m.keys) }

// LoadFactor returns the growth threshold ratio the map was built with.
func (m *Map) LoadFactor() float32 { return m.loadFactor }

func (m *Map) bucketFor(ordinal int32) int {
	i := int(ordinal) & (len(m.keys) - 1)
	for m.keys[i] != nil && m.keys[i].ordinal != ordinal {
		i += probeStride
		if i >= len(m.keys) {
			i &= probeStride
		}
	}
	return i
}

// Get returns the connection set filed under t, or nil when absent. A nil
// map is a valid empty map.
func (m *Map) Get(t *Template) *Set {
	if m == nil || t == nil {
		return nil
	}
	i := m.bucketFor(t.ordinal)
	if m.keys[i] == nil {
		return nil
	}
	return m.values[i]
}

// Contains reports whether t is a key.
func (m *Map) Contains(t *Template) bool {
	if m == nil || t == nil {
		return false
	}
	return m.keys[m.bucketFor(t.ordinal)] != nil
}

// Put files s under t, replacing any previous value. Growth doubles the
// backing arrays and re-puts every entry, so resizing never perturbs lookup
// results for keys already present.
func (m *Map) Put(t *Template, s *Set) {
	i := m.bucketFor(t.ordinal)
	if m.keys[i] == nil {
		if m.size+1 > m.limit {
			m.grow()
			i = m.bucketFor(t.ordinal)
		}
		m.keys[i] = t
		m.size++
	}
	m.values[i] = s
	m.version++
}

func (m *Map) grow() {
	oldKeys, oldValues := m.keys, m.values
	m.keys = make([]*Template, len(oldKeys)*2)
	m.values = make([]*Set, len(oldValues)*2)
	m.limit = int(float32(len(m.keys)) * m.loadFactor)
	m.size = 0
	for i, k := range oldKeys {
		if k == nil {
			continue
		}
		j := m.bucketFor(k.ordinal)
		m.keys[j] = k
		m.values[j] = oldValues[i]
		m.size++
	}
}

// Keys returns the key set as an ordinal-sorted view. The view is computed
// lazily, cached, and invalidated by mutation; callers must not modify it.
func (m *Map) Keys() []*Template {
	if m == nil {
		return nil
	}
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	if m.keyViewVer != m.version {
		view := make([]*Template, 0, m.size)
		for _, k := range m.keys {
			if k != nil {
				view = append(view, k)
			}
		}
		sort.Slice(view, func(i, j int) bool { return view[i].ordinal < view[j].ordinal })
		m.keyView = view
		m.keyViewVer = m.version
	}
	return m.keyView
}

// Values returns the value sets ordered by key ordinal, cached like Keys.
// Callers must not modify the returned slice.
func (m *Map) Values() []*Set {
	if m == nil {
		return nil
	}
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	if m.valueViewVer != m.version {
		keys := make([]int, 0, m.size)
		byOrdinal := make(map[int]*Set, m.size)
		for i, k := range m.keys {
			if k != nil {
				keys = append(keys, int(k.ordinal))
				byOrdinal[int(k.ordinal)] = m.values[i]
			}
		}
		sort.Ints(keys)
		view := make([]*Set, len(keys))
		for i, ord := range keys {
			view[i] = byOrdinal[ord]
		}
		m.valueView = view
		m.valueViewVer = m.version
	}
	return m.valueView
}

// Range calls fn for every entry until fn returns false. Iteration order is
// bucket order and therefore unspecified; use Keys for deterministic walks.
func (m *Map) Range(fn func(t *Template, s *Set) bool) {
	if m == nil {
		return
	}
	for i, k := range m.keys {
		if k == nil {
			continue
		}
		if !fn(k, m.values[i]) {
			return
		}
	}
}

// Occupied calls fn for every occupied bucket with its index, in bucket
// order. The persisted form stores exactly these triples so that serialized
// size scales with entry count, not capacity.
func (m *Map) Occupied(fn func(bucket int, t *Template, s *Set) bool) {
	if m == nil {
		return
	}
	for i, k := range m.keys {
		if k == nil {
			continue
		}
		if !fn(i, k, m.values[i]) {
			return
		}
	}
}

// RestoreBucket places an entry directly at a recorded bucket index during
// deserialization, bypassing probing. The caller must restore into a map
// whose capacity matches the one the bucket was recorded against.
func (m *Map) RestoreBucket(bucket int, t *Template, s *Set) error {
	if bucket < 0 || bucket >= len(m.keys) {
		return fmt.Errorf("wire: bucket %d out of range for capacity %d", bucket, len(m.keys))
	}
	if m.keys[bucket] != nil {
		return fmt.Errorf("wire: bucket %d restored twice", bucket)
	}
	m.keys[bucket] = t
	m.values[bucket] = s
	m.size++
	m.version++
	return nil
}

// Trim compacts every stored set, demoting emptied ones to nil values.
func (m *Map) Trim() {
	if m == nil {
		return
	}
	changed := false
	for i, k := range m.keys {
		if k == nil {
			continue
		}
		trimmed := m.values[i].Trim()
		if trimmed != m.values[i] {
			m.values[i] = trimmed
			changed = true
		}
	}
	if changed {
		m.version++
	}
}

// Equal reports structural equality: the same key set and, for every key,
// equal connection sets. Capacity and layout do not participate.
func (m *Map) Equal(o *Map) bool {
	if m.Size() != o.Size() {
		return false
	}
	if m == nil || o == nil {
		return m.Size() == o.Size()
	}
	equal := true
	m.Range(func(t *Template, s *Set) bool {
		if !o.Contains(t) || !s.Equal(o.Get(t)) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

// Hash returns a layout-independent structural hash for pooling: per-entry
// hashes are combined by addition so bucket order cannot influence it.
func (m *Map) Hash() uint64 {
	var h uint64
	m.Range(func(t *Template, s *Set) bool {
		h += hashMix(hashMix(hashSeed, uint64(uint32(t.ordinal))), s.Hash())
		return true
	})
	return h
}
