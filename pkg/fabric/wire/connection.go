package wire

import "fmt"

// Connection is an immutable directed edge descriptor. Only the sink side is
// stored; the source wire is implied by the map key the connection is filed
// under. Offsets are kept as int16 to hold the per-edge footprint at sixteen
// bytes — grid dimensions never approach the int16 range.
//
// Ordering is (sink ordinal, column offset, row offset). The configurable
// flag participates in neither ordering nor key equality: a switch and a
// fixed connection between the same pair of wires never coexist, which the
// generator guarantees by sourcing the two kinds from disjoint declarations.
type Connection struct {
	sink         *Template
	rowOff       int16
	colOff       int16
	configurable bool
}

// NewConnection builds a descriptor for an edge to sink displaced by
// (rowOff, colOff) from the source tile. The sink must be a canonical
// template.
func NewConnection(sink *Template, rowOff, colOff int, configurable bool) Connection {
	return Connection{
		sink:         sink,
		rowOff:       int16(rowOff),
		colOff:       int16(colOff),
		configurable: configurable,
	}
}

// Sink returns the sink wire template.
func (c Connection) Sink() *Template { return c.sink }

// RowOffset returns the row displacement to the sink tile.
func (c Connection) RowOffset() int { return int(c.rowOff) }

// ColOffset returns the column displacement to the sink tile.
func (c Connection) ColOffset() int { return int(c.colOff) }

// Offset returns both displacements as an Offset value.
func (c Connection) Offset() Offset {
	return Offset{Rows: int(c.rowOff), Cols: int(c.colOff)}
}

// IsConfigurable reports whether the edge is a configurable switch rather
// than fixed metal.
func (c Connection) IsConfigurable() bool { return c.configurable }

// IsZero reports whether c is the zero descriptor.
func (c Connection) IsZero() bool { return c.sink == nil }

// Compare orders connections by (sink ordinal, column offset, row offset).
func (c Connection) Compare(o Connection) int {
	switch {
	case c.sink.ordinal != o.sink.ordinal:
		if c.sink.ordinal < o.sink.ordinal {
			return -1
		}
		return 1
	case c.colOff != o.colOff:
		if c.colOff < o.colOff {
			return -1
		}
		return 1
	case c.rowOff != o.rowOff:
		if c.rowOff < o.rowOff {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// EqualKey reports whether two connections address the same sink wire,
// ignoring the configurable flag.
func (c Connection) EqualKey(o Connection) bool { return c.Compare(o) == 0 }

func (c Connection) String() string {
	kind := "conn"
	if c.configurable {
		kind = "switch"
	}
	return fmt.Sprintf("%s->%s%s", kind, c.sink.Name(), c.Offset())
}

// Set is a sorted growable array of Connections. A nil *Set is a valid
// empty set for every read method; Trim demotes an emptied set back to nil.
// Sets are mutated only during generation and are shared via pooling
// afterwards, so holders must treat them as immutable.
type Set struct {
	conns []Connection
}

// NewSet returns an empty set with room for the typical fan-out.
func NewSet() *Set {
	return &Set{conns: make([]Connection, 0, 2)}
}

// NewSetCapacity returns an empty set with the given capacity hint.
func NewSetCapacity(n int) *Set {
	if n < 0 {
		n = 0
	}
	return &Set{conns: make([]Connection, 0, n)}
}

// Len returns the number of connections.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.conns)
}

// At returns the i-th connection in sorted order.
func (s *Set) At(i int) Connection { return s.conns[i] }

// Add inserts c in order. When a connection with an equal key is already
// present the set is unchanged, the first entry wins, and Add reports false.
func (s *Set) Add(c Connection) bool {
	// Fan-out is almost always below six; a linear walk from the back is
	// cheaper than binary search plus the same copy.
	i := len(s.conns)
	for i > 0 {
		cmp := s.conns[i-1].Compare(c)
		if cmp == 0 {
			return false
		}
		if cmp < 0 {
			break
		}
		i--
	}
	s.conns = append(s.conns, Connection{})
	copy(s.conns[i+1:], s.conns[i:])
	s.conns[i] = c
	return true
}

// Contains reports whether a connection with c's key is present.
func (s *Set) Contains(c Connection) bool {
	_, ok := s.Get(c)
	return ok
}

// Get returns the stored connection matching c's key, including its stored
// configurable flag.
func (s *Set) Get(c Connection) (Connection, bool) {
	if s == nil {
		return Connection{}, false
	}
	lo, hi := 0, len(s.conns)
	for lo < hi {
		mid := (lo + hi) / 2
		cmp := s.conns[mid].Compare(c)
		switch {
		case cmp == 0:
			return s.conns[mid], true
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return Connection{}, false
}

// All returns a copy of the connections in sorted order.
func (s *Set) All() []Connection {
	if s.Len() == 0 {
		return nil
	}
	out := make([]Connection, len(s.conns))
	copy(out, s.conns)
	return out
}

// Clone returns an independent mutable copy. Cloning nil yields an empty set.
func (s *Set) Clone() *Set {
	out := NewSetCapacity(s.Len())
	if s != nil {
		out.conns = out.conns[:len(s.conns)]
		copy(out.conns, s.conns)
	}
	return out
}

// Trim compacts the backing array to exact length and demotes an empty set
// to nil, the absent sentinel.
func (s *Set) Trim() *Set {
	if s.Len() == 0 {
		return nil
	}
	if len(s.conns) == cap(s.conns) {
		return s
	}
	exact := make([]Connection, len(s.conns))
	copy(exact, s.conns)
	s.conns = exact
	return s
}

// Equal reports element-wise structural equality, flags included. Sets are
// canonically sorted, so index-aligned comparison suffices.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		a, b := s.conns[i], o.conns[i]
		if a.Compare(b) != 0 || a.configurable != b.configurable {
			return false
		}
	}
	return true
}

// Hash returns a deterministic structural hash for pooling.
func (s *Set) Hash() uint64 {
	h := hashSeed
	for i := 0; i < s.Len(); i++ {
		c := s.conns[i]
		h = hashMix(h, uint64(uint32(c.sink.ordinal)))
		h = hashMix(h, uint64(uint16(c.rowOff))<<16|uint64(uint16(c.colOff)))
		if c.configurable {
			h = hashMix(h, 1)
		}
	}
	return h
}
