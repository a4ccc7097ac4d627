package wire_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

func testTable(t *testing.T, n int) *wire.Table {
	t.Helper()
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("W%04d", i)
	}
	return wire.NewTable(names)
}

func TestTableOrdinalsAreLexicographic(t *testing.T) {
	require := require.New(t)

	// Arrival order must not matter for numbering.
	a := wire.NewTable([]string{"NORTH", "CLK", "SOUTH", "CLK"})
	b := wire.NewTable([]string{"SOUTH", "CLK", "NORTH"})

	require.Equal(3, a.Len())
	require.Equal(a.Len(), b.Len())
	for i := int32(0); int(i) < a.Len(); i++ {
		require.Equal(a.Canonical(i).Name(), b.Canonical(i).Name(),
			"ordinal %d must name the same wire in both tables", i)
	}

	clk, ok := a.ByName("CLK")
	require.True(ok)
	require.Equal(int32(0), clk.Ordinal(), "CLK sorts first lexicographically")
}

func TestTableWithOffsetInterns(t *testing.T) {
	require := require.New(t)
	tb := testTable(t, 4)
	tmpl := tb.Canonical(2)

	off := wire.Offset{Rows: 1, Cols: -2}
	v1 := tb.WithOffset(tmpl, off)
	v2 := tb.WithOffset(tmpl, off)
	require.Same(v1, v2, "equal (ordinal, offset) pairs must share one instance")
	require.Equal(off, v1.Offset())
	require.True(v1.Equal(tmpl), "offset variants still compare equal by ordinal")

	require.Same(tmpl, tb.WithOffset(v1, wire.Offset{}), "zero offset resolves to the canonical instance")
}

func TestMapPutGetSize(t *testing.T) {
	require := require.New(t)
	tb := testTable(t, 64)
	m := wire.NewMap()

	for i := int32(0); i < 64; i++ {
		s := wire.NewSet()
		s.Add(wire.NewConnection(tb.Canonical((i+1)%64), 0, 1, false))
		m.Put(tb.Canonical(i), s)
	}
	require.Equal(64, m.Size(), "size must equal distinct inserted keys")

	// Resizing happened several times above; every key must still resolve.
	for i := int32(0); i < 64; i++ {
		s := m.Get(tb.Canonical(i))
		require.Equal(1, s.Len(), "key %d lost after growth", i)
		require.Equal((i+1)%64, s.At(0).Sink().Ordinal())
	}

	// Overwrite replaces without growing size.
	repl := wire.NewSet()
	repl.Add(wire.NewConnection(tb.Canonical(0), 2, 2, true))
	m.Put(tb.Canonical(7), repl)
	require.Equal(64, m.Size())
	require.True(repl.Equal(m.Get(tb.Canonical(7))))
}

func TestMapSizedValidation(t *testing.T) {
	require := require.New(t)

	_, err := wire.NewMapSized(-1, 0.85)
	require.ErrorIs(err, wire.ErrInvalidCapacity)

	_, err = wire.NewMapSized(8, 0)
	require.ErrorIs(err, wire.ErrInvalidLoadFactor)
	_, err = wire.NewMapSized(8, 1.5)
	require.ErrorIs(err, wire.ErrInvalidLoadFactor)

	m, err := wire.NewMapSized(5, 0.85)
	require.NoError(err)
	require.Equal(8, m.Capacity(), "capacity rounds up to a power of two")
}

func TestMapViewsTrackMutation(t *testing.T) {
	require := require.New(t)
	tb := testTable(t, 16)
	m := wire.NewMap()

	m.Put(tb.Canonical(9), wire.NewSet())
	m.Put(tb.Canonical(3), wire.NewSet())
	keys := m.Keys()
	require.Len(keys, 2)
	require.Equal(int32(3), keys[0].Ordinal(), "key view is ordinal-sorted")
	require.Equal(int32(9), keys[1].Ordinal())

	// Unchanged map returns the cached view.
	again := m.Keys()
	require.Equal(len(keys), len(again))

	// A mutation must invalidate it.
	m.Put(tb.Canonical(0), wire.NewSet())
	keys = m.Keys()
	require.Len(keys, 3)
	require.Equal(int32(0), keys[0].Ordinal())

	vals := m.Values()
	require.Len(vals, 3, "value view is parallel to the key view")
}

func TestMapEqualIgnoresLayout(t *testing.T) {
	require := require.New(t)
	tb := testTable(t, 32)

	build := func(order []int32) *wire.Map {
		m := wire.NewMap()
		for _, ord := range order {
			s := wire.NewSet()
			s.Add(wire.NewConnection(tb.Canonical(31), -1, 0, ord%2 == 0))
			m.Put(tb.Canonical(ord), s)
		}
		return m
	}

	a := build([]int32{1, 5, 9, 13})
	b := build([]int32{13, 9, 5, 1})
	require.True(a.Equal(b), "insertion order must not affect equality")
	require.Equal(a.Hash(), b.Hash(), "structural hash must be layout-independent")

	b.Put(tb.Canonical(2), wire.NewSet())
	require.False(a.Equal(b))
}

func TestSetAddDedupAndOrder(t *testing.T) {
	require := require.New(t)
	tb := testTable(t, 8)
	s := wire.NewSet()

	require.True(s.Add(wire.NewConnection(tb.Canonical(4), 1, 1, false)))
	require.True(s.Add(wire.NewConnection(tb.Canonical(2), 0, 0, false)))
	require.True(s.Add(wire.NewConnection(tb.Canonical(4), 0, 1, true)))

	// Same (sink, row, col) key again: size unchanged even when the flag
	// differs, first entry wins.
	require.False(s.Add(wire.NewConnection(tb.Canonical(2), 0, 0, true)))
	require.Equal(3, s.Len())

	got, ok := s.Get(wire.NewConnection(tb.Canonical(2), 0, 0, true))
	require.True(ok)
	require.False(got.IsConfigurable(), "first inserted flag must win")

	// Sorted by (sink ordinal, col, row).
	require.Equal(int32(2), s.At(0).Sink().Ordinal())
	require.Equal(int32(4), s.At(1).Sink().Ordinal())
	require.Equal(int32(4), s.At(2).Sink().Ordinal())
	require.True(s.At(1).ColOffset() <= s.At(2).ColOffset())
}

func TestSetTrimDemotesEmpty(t *testing.T) {
	require := require.New(t)

	empty := wire.NewSetCapacity(8)
	require.Nil(empty.Trim(), "an emptied set trims to the nil sentinel")

	var nilSet *wire.Set
	require.Equal(0, nilSet.Len())
	require.False(nilSet.Contains(wire.Connection{}))

	tb := testTable(t, 4)
	s := wire.NewSetCapacity(16)
	s.Add(wire.NewConnection(tb.Canonical(1), 0, 0, false))
	trimmed := s.Trim()
	require.Equal(1, trimmed.Len())
}

func TestPoolCanonicalizes(t *testing.T) {
	require := require.New(t)
	tb := testTable(t, 8)

	mk := func() *wire.Set {
		s := wire.NewSet()
		s.Add(wire.NewConnection(tb.Canonical(3), 0, 1, true))
		s.Add(wire.NewConnection(tb.Canonical(5), -1, 0, false))
		return s
	}

	pool := wire.NewSetPool()
	x1, x2 := mk(), mk()
	require.NotSame(x1, x2)

	c1 := pool.Add(x1)
	c2 := pool.Add(x2)
	require.Same(x1, c1, "first add interns its argument")
	require.Same(c1, c2, "structurally equal values share one canonical instance")
	require.Equal(1, pool.Size())

	other := wire.NewSet()
	other.Add(wire.NewConnection(tb.Canonical(0), 0, 0, false))
	require.Same(other, pool.Add(other))
	require.Equal(2, pool.Size())
}

func TestMapPoolSharesIdenticalAdjacency(t *testing.T) {
	require := require.New(t)
	tb := testTable(t, 16)
	pool := wire.NewMapPool()

	build := func() *wire.Map {
		m := wire.NewMap()
		s := wire.NewSet()
		s.Add(wire.NewConnection(tb.Canonical(1), 0, 1, false))
		m.Put(tb.Canonical(0), s)
		return m
	}

	c1 := pool.Add(build())
	c2 := pool.Add(build())
	require.Same(c1, c2, "identically wired tiles must share one map")
}

func TestTemplateSet(t *testing.T) {
	require := require.New(t)
	tb := testTable(t, 16)

	ts := wire.NewTemplateSet([]*wire.Template{
		tb.Canonical(9), tb.Canonical(1), tb.Canonical(9), tb.Canonical(4),
	})
	require.Equal(3, ts.Len(), "duplicates collapse")
	require.Equal(int32(1), ts.At(0).Ordinal())
	require.True(ts.Contains(tb.Canonical(4)))
	require.False(ts.Contains(tb.Canonical(2)))
	require.Equal(2, ts.IndexOf(tb.Canonical(9)))

	require.Nil(wire.NewTemplateSet(nil), "empty input yields the nil sentinel")
	var nilTS *wire.TemplateSet
	require.Equal(0, nilTS.Len())
	require.False(nilTS.Contains(tb.Canonical(0)))
}
