package route_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/route"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// testWires builds distinct wire values without a full device; tree
// operations only compare wire identity.
func testWires(t *testing.T, names ...string) map[string]fabric.Wire {
	t.Helper()
	table := wire.NewTable(names)
	out := make(map[string]fabric.Wire, len(names))
	for _, n := range names {
		tmpl, ok := table.ByName(n)
		require.True(t, ok)
		out[n] = fabric.TileWire(nil, tmpl)
	}
	return out
}

func conn(src, sink fabric.Wire, configurable bool) fabric.Connection {
	return fabric.NewConnection(src, sink, configurable)
}

func TestAddConnection(t *testing.T) {
	w := testWires(t, "A", "B", "C")
	root := route.NewTree(w["A"])

	b, err := root.AddConnection(conn(w["A"], w["B"], true))
	require.NoError(t, err)
	require.Equal(t, w["B"], b.Wire())
	require.Same(t, root, b.Parent())
	require.False(t, b.IsRoot())

	// Source must be the node's own wire.
	_, err = root.AddConnection(conn(w["C"], w["B"], true))
	require.ErrorIs(t, err, route.ErrWireMismatch)
}

func TestAttachConnection(t *testing.T) {
	w := testWires(t, "A", "B", "C")
	root := route.NewTree(w["A"])
	node := route.NewTree(w["B"])

	// Sink must match the node being attached.
	err := root.AttachConnection(conn(w["A"], w["C"], true), node)
	require.ErrorIs(t, err, route.ErrWireMismatch)
	require.True(t, node.IsRoot())

	require.NoError(t, root.AttachConnection(conn(w["A"], w["B"], true), node))
	require.Same(t, root, node.Parent())

	// Re-parenting an attached node fails and leaves both trees alone.
	other := route.NewTree(w["A"])
	err = other.AttachConnection(conn(w["A"], w["B"], true), node)
	require.ErrorIs(t, err, route.ErrAttached)
	require.Same(t, root, node.Parent())
	require.Empty(t, other.Children())
}

func TestDetach(t *testing.T) {
	w := testWires(t, "A", "B", "C", "D")
	root := route.NewTree(w["A"])
	cb := conn(w["A"], w["B"], true)
	b, err := root.AddConnection(cb)
	require.NoError(t, err)
	c, err := root.AddConnection(conn(w["A"], w["C"], false))
	require.NoError(t, err)

	got, err := root.RemoveConnection(cb)
	require.NoError(t, err)
	require.Same(t, b, got)
	require.True(t, b.IsRoot())
	require.True(t, b.Connection().IsZero())

	_, err = root.RemoveConnection(cb)
	require.ErrorIs(t, err, route.ErrNotChild)

	require.NoError(t, root.Disconnect(c))
	require.ErrorIs(t, root.Disconnect(c), route.ErrNotChild)

	d, err := root.AddConnection(conn(w["A"], w["D"], true))
	require.NoError(t, err)
	got, err = root.DisconnectWire(w["D"])
	require.NoError(t, err)
	require.Same(t, d, got)
	require.Empty(t, root.Children())
}

func TestPreorder(t *testing.T) {
	w := testWires(t, "A", "B", "C", "D")
	root := route.NewTree(w["A"])
	b, _ := root.AddConnection(conn(w["A"], w["B"], true))
	_, _ = b.AddConnection(conn(w["B"], w["D"], true))
	_, _ = root.AddConnection(conn(w["A"], w["C"], true))

	var names []string
	for _, n := range root.Preorder() {
		names = append(names, n.Wire().Template().Name())
	}
	// Parent always before children.
	require.Equal(t, []string{"A", "B", "D", "C"}, names)
}

func TestPrune(t *testing.T) {
	// A -> B -> D
	//   -> C
	w := testWires(t, "A", "B", "C", "D")
	root := route.NewTree(w["A"])
	b, _ := root.AddConnection(conn(w["A"], w["B"], true))
	d, _ := b.AddConnection(conn(w["B"], w["D"], true))
	c, _ := root.AddConnection(conn(w["A"], w["C"], true))

	keep := map[fabric.Wire]bool{w["D"]: true}
	require.True(t, root.Prune(keep))

	// C is gone, the A-B-D spine survives because D is kept.
	require.Len(t, root.Children(), 1)
	require.Same(t, b, root.Children()[0])
	require.Len(t, b.Children(), 1)
	require.Same(t, d, b.Children()[0])
	require.True(t, c.IsRoot())

	// Idempotent on the same keep set.
	require.True(t, root.Prune(keep))
	require.Len(t, root.Preorder(), 3)

	require.False(t, root.Prune(map[fabric.Wire]bool{}))
}

func TestAllPIPs(t *testing.T) {
	w := testWires(t, "A", "B", "C", "D")
	root := route.NewTree(w["A"])
	b, _ := root.AddConnection(conn(w["A"], w["B"], true))
	_, _ = b.AddConnection(conn(w["B"], w["C"], false))
	d, _ := b.AddConnection(conn(w["B"], w["D"], true))

	// Collection starts from the root even when called on a leaf.
	pips := d.AllPIPs()
	require.Len(t, pips, 2)
	require.Contains(t, pips, conn(w["A"], w["B"], true).PIP())
	require.Contains(t, pips, conn(w["B"], w["D"], true).PIP())
}

func TestDeepCopy(t *testing.T) {
	w := testWires(t, "A", "B", "C")
	b := route.NewTree(w["B"])
	cw, _ := b.AddConnection(conn(w["B"], w["C"], true))

	cp := b.DeepCopy()
	require.Equal(t, b.Wire(), cp.Wire())
	require.True(t, cp.IsRoot())
	require.True(t, cp.Connection().IsZero())
	require.Len(t, cp.Children(), 1)
	require.Equal(t, cw.Connection(), cp.Children()[0].Connection())

	// Mutating the copy leaves the original alone.
	cp.Disconnect(cp.Children()[0])
	require.Len(t, b.Children(), 1)
}

func TestPreorderConcurrentReaders(t *testing.T) {
	w := testWires(t, "A", "B", "C")
	root := route.NewTree(w["A"])
	root.AddConnection(conn(w["A"], w["B"], true))
	root.AddConnection(conn(w["A"], w["C"], true))

	done := make(chan int, 4)
	for i := 0; i < 4; i++ {
		go func() {
			done <- len(root.Preorder())
		}()
	}
	for i := 0; i < 4; i++ {
		require.Equal(t, 3, <-done)
	}
}
