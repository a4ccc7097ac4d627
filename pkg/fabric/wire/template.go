package wire

import (
	"fmt"
	"sort"
	"sync"
)

// Offset is a relative spatial displacement in grid cells. Positive rows grow
// downward and positive columns grow rightward, matching report order.
type Offset struct {
	Rows int
	Cols int
}

// Plus returns the component-wise sum of two offsets.
func (o Offset) Plus(p Offset) Offset {
	return Offset{Rows: o.Rows + p.Rows, Cols: o.Cols + p.Cols}
}

// Negate returns the offset pointing the opposite way.
func (o Offset) Negate() Offset {
	return Offset{Rows: -o.Rows, Cols: -o.Cols}
}

// IsZero reports whether the offset is the identity displacement.
func (o Offset) IsZero() bool {
	return o.Rows == 0 && o.Cols == 0
}

func (o Offset) String() string {
	return fmt.Sprintf("(%+d,%+d)", o.Rows, o.Cols)
}

// Template is the interned descriptor of a wire type. Identity, equality and
// ordering are carried entirely by the dense ordinal; the name exists for
// reporting and the deterministic numbering pass. Tile-scoped instances held
// by node templates additionally carry the offset that locates the wire
// relative to its node's root tile. Templates are immutable and shared; only
// a Table creates them.
type Template struct {
	name    string
	ordinal int32
	off     Offset
}

// Name returns the wire type name as it appeared in the report.
func (t *Template) Name() string { return t.name }

// Ordinal returns the dense index assigned during generation.
func (t *Template) Ordinal() int32 { return t.ordinal }

// Offset returns the displacement from the owning node's root tile. It is
// zero for canonical instances, which are the only ones used as map keys.
func (t *Template) Offset() Offset { return t.off }

// Compare orders templates by ordinal only. Offset never participates.
func (t *Template) Compare(o *Template) int {
	switch {
	case t.ordinal < o.ordinal:
		return -1
	case t.ordinal > o.ordinal:
		return 1
	default:
		return 0
	}
}

// Equal reports ordinal equality, mirroring Compare.
func (t *Template) Equal(o *Template) bool {
	return t != nil && o != nil && t.ordinal == o.ordinal
}

func (t *Template) String() string {
	if t.off.IsZero() {
		return fmt.Sprintf("%s#%d", t.name, t.ordinal)
	}
	return fmt.Sprintf("%s#%d%s", t.name, t.ordinal, t.off)
}

type variantKey struct {
	ordinal int32
	off     Offset
}

// Table is the device-wide arena of interned templates. The canonical
// zero-offset instance for each name is index-addressed by ordinal; offset
// variants used inside node templates are interned on demand so that any
// (ordinal, offset) pair maps to exactly one pointer.
type Table struct {
	mu       sync.Mutex
	ordered  []*Template
	byName   map[string]*Template
	variants map[variantKey]*Template
}

// NewTable interns one canonical template per name, assigning ordinals in
// lexicographic name order regardless of the order names arrive in. The
// numbering is therefore reproducible for identical inputs.
func NewTable(names []string) *Table {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	tb := &Table{
		ordered:  make([]*Template, 0, len(sorted)),
		byName:   make(map[string]*Template, len(sorted)),
		variants: make(map[variantKey]*Template),
	}
	for _, name := range sorted {
		if _, dup := tb.byName[name]; dup {
			continue
		}
		t := &Template{name: name, ordinal: int32(len(tb.ordered))}
		tb.ordered = append(tb.ordered, t)
		tb.byName[name] = t
	}
	return tb
}

// Len returns the number of distinct wire type names.
func (tb *Table) Len() int { return len(tb.ordered) }

// Canonical returns the zero-offset template for an ordinal, or nil when the
// ordinal is out of range.
func (tb *Table) Canonical(ordinal int32) *Template {
	if ordinal < 0 || int(ordinal) >= len(tb.ordered) {
		return nil
	}
	return tb.ordered[ordinal]
}

// ByName resolves a wire type name to its canonical template.
func (tb *Table) ByName(name string) (*Template, bool) {
	t, ok := tb.byName[name]
	return t, ok
}

// WithOffset interns and returns the variant of t displaced by off. A zero
// offset returns the canonical instance. Safe for concurrent use; node
// template derivation runs on a worker pool.
func (tb *Table) WithOffset(t *Template, off Offset) *Template {
	if off.IsZero() {
		return tb.ordered[t.ordinal]
	}
	key := variantKey{ordinal: t.ordinal, off: off}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	if v, ok := tb.variants[key]; ok {
		return v
	}
	v := &Template{name: t.name, ordinal: t.ordinal, off: off}
	tb.variants[key] = v
	return v
}

// Names returns all wire type names in ordinal order. The slice is fresh and
// safe to keep.
func (tb *Table) Names() []string {
	names := make([]string, len(tb.ordered))
	for i, t := range tb.ordered {
		names[i] = t.name
	}
	return names
}

// TemplateSet is an immutable, ordinal-sorted set of canonical templates,
// used for a tile's legal wire set and for node roots. A nil *TemplateSet is
// a valid empty set for every read method.
type TemplateSet struct {
	tmpls []*Template
}

// NewTemplateSet copies, sorts and de-duplicates tmpls. Nil is returned for
// an empty input so empty sets cost nothing.
func NewTemplateSet(tmpls []*Template) *TemplateSet {
	if len(tmpls) == 0 {
		return nil
	}
	sorted := make([]*Template, len(tmpls))
	copy(sorted, tmpls)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ordinal < sorted[j].ordinal })

	out := sorted[:1]
	for _, t := range sorted[1:] {
		if t.ordinal != out[len(out)-1].ordinal {
			out = append(out, t)
		}
	}
	return &TemplateSet{tmpls: out}
}

// Len returns the number of templates in the set.
func (ts *TemplateSet) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.tmpls)
}

// At returns the i-th template in ordinal order.
func (ts *TemplateSet) At(i int) *Template { return ts.tmpls[i] }

// IndexOf returns the position of t in the set, or -1 when absent.
func (ts *TemplateSet) IndexOf(t *Template) int {
	if ts == nil || t == nil {
		return -1
	}
	i := sort.Search(len(ts.tmpls), func(i int) bool { return ts.tmpls[i].ordinal >= t.ordinal })
	if i < len(ts.tmpls) && ts.tmpls[i].ordinal == t.ordinal {
		return i
	}
	return -1
}

// Contains reports whether t is a member of the set.
func (ts *TemplateSet) Contains(t *Template) bool { return ts.IndexOf(t) >= 0 }

// Equal reports element-wise ordinal equality.
func (ts *TemplateSet) Equal(o *TemplateSet) bool {
	if ts.Len() != o.Len() {
		return false
	}
	for i := 0; i < ts.Len(); i++ {
		if ts.tmpls[i].ordinal != o.tmpls[i].ordinal {
			return false
		}
	}
	return true
}

// Hash returns a deterministic structural hash for pooling.
func (ts *TemplateSet) Hash() uint64 {
	h := hashSeed
	for i := 0; i < ts.Len(); i++ {
		h = hashMix(h, uint64(uint32(ts.tmpls[i].ordinal)))
	}
	return h
}
