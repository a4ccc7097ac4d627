package fabric_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/pinout"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/report"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// testReport is a 1x3 device exercising the whole pipeline: a configurable
// switch feeding a fixed two-hop metal run (IN -> A -> B -> C) that ends on
// a site pin two tiles away, a dead fixed edge (D -> E) touching nothing of
// interest, and a site with an alternate type and an intra-site
// routethrough.
const testReport = `
(fabric_report (part OTFTEST)
  (primitive_defs 2
    (primitive_def SLICE
      (pin AX input AXW)
      (element BUF lut
        (pin A1 input A1W)
        (pin O6 output O6W)
        (conn A1W O6W)
      )
      (switch AXW A1W)
      (routethrough BUF A1 O6)
    )
    (primitive_def SLICEM
      (pin AX input MXW)
    )
  )
  (grid (rows 1) (cols 3)
    (tile (row 0) (col 0) (name INT_X0Y0) (type INT)
      (wire IN)
      (wire A)
      (wire D)
      (switch IN A)
      (conn A (tile INT_X1Y0 B))
      (conn D (tile INT_X1Y0 E))
    )
    (tile (row 0) (col 1) (name INT_X1Y0) (type INT)
      (wire B)
      (wire E)
      (conn B (tile CLB_X2Y0 C))
    )
    (tile (row 0) (col 2) (name CLB_X2Y0) (type CLB)
      (wire C)
      (site (name SLICE_X0Y0) (type SLICE) (alternates SLICEM)
        (pinwire AX input C)
      )
    )
  )
  (summary (wires 10))
)
`

func generateTestDevice(t *testing.T, opts ...fabric.Option) *fabric.Device {
	t.Helper()
	dev, err := fabric.NewGenerator(opts...).Generate(report.Bytes(testReport))
	require.NoError(t, err)
	return dev
}

func TestGenerateSkeleton(t *testing.T) {
	dev := generateTestDevice(t)

	require.Equal(t, "OTFTEST", dev.Part())
	require.Equal(t, 1, dev.Rows())
	require.Equal(t, 3, dev.Cols())
	require.Equal(t, 10, dev.Templates().Len())
	require.Equal(t, 10, dev.WireCount())

	tile, ok := dev.TileByName("INT_X1Y0")
	require.True(t, ok)
	require.Equal(t, 0, tile.Row())
	require.Equal(t, 1, tile.Col())
	require.Equal(t, "INT", tile.TypeName())
	require.Same(t, tile, dev.Tile(0, 1))
	require.Nil(t, dev.Tile(1, 0))
	require.Nil(t, dev.Tile(0, -1))

	site, ok := dev.SiteByName("SLICE_X0Y0")
	require.True(t, ok)
	require.Equal(t, "SLICE", site.TypeName())
	require.Len(t, site.PossibleTypes(), 2)
	require.Len(t, site.Bels(), 1)

	w, ok := dev.WireByName("INT_X0Y0/A")
	require.True(t, ok)
	require.Equal(t, "INT_X0Y0/A", w.Name())
	_, ok = dev.WireByName("INT_X0Y0/NOPE")
	require.False(t, ok)
	_, ok = dev.WireByName("unqualified")
	require.False(t, ok)
}

// findConn locates the connection to the named sink in a map entry.
func findConn(t *testing.T, m *wire.Map, src *wire.Template, sink *wire.Template, rows, cols int) (wire.Connection, bool) {
	t.Helper()
	set := m.Get(src)
	for i := 0; i < set.Len(); i++ {
		c := set.At(i)
		if c.Sink() == sink && c.RowOffset() == rows && c.ColOffset() == cols {
			return c, true
		}
	}
	return wire.Connection{}, false
}

func TestCorrectionCollapsesAndPrunes(t *testing.T) {
	dev := generateTestDevice(t)
	t0 := dev.Tile(0, 0)
	t1 := dev.Tile(0, 1)
	t2 := dev.Tile(0, 2)

	tmpl := func(name string) *wire.Template {
		tm, ok := dev.TemplateByName(name)
		require.True(t, ok)
		return tm
	}

	// The fixed run A -> B -> C gains a collapsed direct edge A -> C with
	// the summed offset; the original hops survive because each still
	// serves a wire of interest.
	a, b, c := tmpl("A"), tmpl("B"), tmpl("C")
	direct, ok := findConn(t, t0.ForwardMap(), a, c, 0, 2)
	require.True(t, ok, "collapsed A->C edge missing")
	require.False(t, direct.IsConfigurable())
	_, ok = findConn(t, t0.ForwardMap(), a, b, 0, 1)
	require.True(t, ok, "original A->B hop dropped")
	_, ok = findConn(t, t1.ForwardMap(), b, c, 0, 1)
	require.True(t, ok, "original B->C hop dropped")

	// ...and its mirror lands in the sink tile's reverse map.
	_, ok = findConn(t, t2.ReverseMap(), c, a, 0, -2)
	require.True(t, ok, "mirror of collapsed edge missing")

	// D -> E connects nothing of interest at either end: pruned, and the
	// emptied entries disappear entirely.
	require.Nil(t, t0.ForwardMap().Get(tmpl("D")))
	require.Nil(t, t1.ReverseMap().Get(tmpl("E")))
}

func TestMirrorInvariant(t *testing.T) {
	dev := generateTestDevice(t)

	dev.Tiles(func(tile *fabric.Tile) bool {
		for _, src := range tile.ForwardMap().Keys() {
			set := tile.ForwardMap().Get(src)
			for i := 0; i < set.Len(); i++ {
				c := set.At(i)
				far := dev.Tile(tile.Row()+c.RowOffset(), tile.Col()+c.ColOffset())
				require.NotNil(t, far, "%s/%s leaves the grid", tile.Name(), src.Name())
				mirror := wire.NewConnection(src, -c.RowOffset(), -c.ColOffset(), c.IsConfigurable())
				got, ok := far.ReverseMap().Get(c.Sink()).Get(mirror)
				require.True(t, ok, "no mirror for %s/%s -> %s", tile.Name(), src.Name(), c.Sink().Name())
				require.Equal(t, c.IsConfigurable(), got.IsConfigurable())
			}
		}
		return true
	})
}

func TestTileNodes(t *testing.T) {
	dev := generateTestDevice(t)

	wireByName := func(q string) fabric.Wire {
		w, ok := dev.WireByName(q)
		require.True(t, ok, q)
		return w
	}

	// A roots a node spanning the fixed metal into the neighbor tiles.
	node := dev.NodeOf(wireByName("INT_X0Y0/A"))
	require.IsType(t, fabric.TileNode{}, node)
	var names []string
	for _, w := range node.Wires() {
		names = append(names, w.Name())
	}
	require.Equal(t, []string{"INT_X0Y0/A", "INT_X1Y0/B", "CLB_X2Y0/C"}, names)

	// Its one inbound configurable edge is the IN -> A switch.
	rev := node.ReverseConnections()
	require.Len(t, rev, 1)
	require.Equal(t, wireByName("INT_X0Y0/IN"), rev[0].Source())
	require.Equal(t, wireByName("INT_X0Y0/A"), rev[0].Sink())
	require.True(t, rev[0].IsConfigurable())
	require.Empty(t, node.Connections())

	// B is not a root; it resolves through its fixed edge to C's node.
	viaB := dev.NodeOf(wireByName("INT_X1Y0/B"))
	require.Equal(t, wireByName("CLB_X2Y0/C"), viaB.Wire())

	// E lost its only edge to pruning and degenerates to itself.
	lone := dev.NodeOf(wireByName("INT_X1Y0/E"))
	require.Equal(t, []fabric.Wire{wireByName("INT_X1Y0/E")}, lone.Wires())
	require.Empty(t, lone.Connections())
	require.Empty(t, lone.ReverseConnections())
}

func TestNodePinResolutionFollowsActiveType(t *testing.T) {
	dev := generateTestDevice(t)
	site, ok := dev.SiteByName("SLICE_X0Y0")
	require.True(t, ok)

	w, ok := dev.WireByName("INT_X0Y0/A")
	require.True(t, ok)
	node := dev.NodeOf(w).(fabric.TileNode)

	// C is bound to pin AX, which both possible types declare; only the
	// anchor matching the active type resolves.
	require.Len(t, node.PinAnchors(), 2)
	pins := node.ConnectedPins()
	require.Len(t, pins, 1)
	require.Equal(t, "AX", pins[0].Name())
	require.Equal(t, site.Type(), pins[0].SiteType())

	slicem, ok := dev.SiteTypeByName("SLICEM")
	require.True(t, ok)
	require.NoError(t, site.SetType(slicem))
	pins = node.ConnectedPins()
	require.Len(t, pins, 1)
	require.Equal(t, slicem, pins[0].SiteType())

	slice, ok := dev.SiteTypeByName("SLICE")
	require.True(t, ok)
	require.NoError(t, site.SetType(slice))
}

func TestSetTypeRejectsImpossibleTypes(t *testing.T) {
	dev := generateTestDevice(t)
	site, ok := dev.SiteByName("SLICE_X0Y0")
	require.True(t, ok)
	active := site.Type()

	// A type outside the name table entirely must still come back as an
	// assembly error, not a crash, and leave the site alone.
	for _, st := range []fabric.SiteType{99, -1} {
		err := site.SetType(st)
		var ae *fabric.AssemblyError
		require.ErrorAs(t, err, &ae)
		require.Equal(t, active, site.Type())
	}
}

func TestSiteNodesAndRoutethrough(t *testing.T) {
	dev := generateTestDevice(t)
	site, ok := dev.SiteByName("SLICE_X0Y0")
	require.True(t, ok)

	a1w, ok := site.Wire("A1W")
	require.True(t, ok)
	o6w, ok := site.Wire("O6W")
	require.True(t, ok)
	axw, ok := site.Wire("AXW")
	require.True(t, ok)

	// A1W and O6W are one node joined by the fixed element conn.
	node := dev.NodeOf(a1w)
	require.IsType(t, fabric.SiteNode{}, node)
	require.Equal(t, []fabric.Wire{a1w, o6w}, node.Wires())

	// The AXW -> A1W mux is the node's only inbound configurable edge.
	rev := node.ReverseConnections()
	require.Len(t, rev, 1)
	require.Equal(t, axw, rev[0].Source())

	// Both member wires terminate on BEL pins.
	terms := node.(fabric.SiteNode).Terminals()
	require.Len(t, terms, 2)
	require.Equal(t, "BUF", terms[0].Bel().Name())

	require.True(t, dev.IsRouteThrough(a1w, o6w))
	require.False(t, dev.IsRouteThrough(o6w, a1w))
	require.False(t, dev.IsRouteThrough(axw, a1w))
	tileWire, _ := dev.WireByName("CLB_X2Y0/C")
	require.False(t, dev.IsRouteThrough(tileWire, o6w))
}

func TestIdenticalTilesShareStructures(t *testing.T) {
	const twin = `
(fabric_report (part TWIN)
  (grid (rows 1) (cols 2)
    (tile (row 0) (col 0) (name INT_X0Y0) (type INT)
      (wire X)
      (wire Y)
      (switch X Y)
    )
    (tile (row 0) (col 1) (name INT_X1Y0) (type INT)
      (wire X)
      (wire Y)
      (switch X Y)
    )
  )
  (summary (wires 2))
)
`
	dev, err := fabric.NewGenerator().Generate(report.Bytes(twin))
	require.NoError(t, err)

	t0, t1 := dev.Tile(0, 0), dev.Tile(0, 1)
	require.Same(t, t0.ForwardMap(), t1.ForwardMap())
	require.Same(t, t0.ReverseMap(), t1.ReverseMap())
}

func TestGenerateRejectsMalformedReports(t *testing.T) {
	cases := []struct {
		name      string
		mangle    func(string) string
		construct string
	}{
		{
			name:      "missing grid cell",
			mangle:    func(s string) string { return strings.Replace(s, "(cols 3)", "(cols 4)", 1) },
			construct: "grid",
		},
		{
			name:      "summary wire count mismatch",
			mangle:    func(s string) string { return strings.Replace(s, "(wires 10)", "(wires 7)", 1) },
			construct: "summary",
		},
		{
			name:      "site type without primitive definition",
			mangle:    func(s string) string { return strings.Replace(s, "(type SLICE)", "(type DSP)", 1) },
			construct: "site",
		},
		{
			name:      "pinwire names undeclared tile wire",
			mangle:    func(s string) string { return strings.Replace(s, "(pinwire AX input C)", "(pinwire AX input GHOST)", 1) },
			construct: "pinwire",
		},
		{
			name:      "routethrough names unknown element",
			mangle:    func(s string) string { return strings.Replace(s, "(routethrough BUF A1 O6)", "(routethrough XBUF A1 O6)", 1) },
			construct: "routethrough",
		},
		{
			name:      "conn to unknown tile",
			mangle:    func(s string) string { return strings.Replace(s, "(tile INT_X1Y0 B)", "(tile INT_X9Y9 B)", 1) },
			construct: "conn",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fabric.NewGenerator().Generate(report.Bytes(tc.mangle(testReport)))
			require.Error(t, err)
			var fe *fabric.FormatError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tc.construct, fe.Construct)
		})
	}
}

func TestLoadDeviceInfo(t *testing.T) {
	parser, err := pinout.NewParser()
	require.NoError(t, err)
	doc, err := parser.ParseString(`
deviceinfo OTFTEST is
  section pinout is
    pin P1 : site SLICE_X0Y0 bel BUF;
  end section;
end deviceinfo;
`)
	require.NoError(t, err)

	dev := generateTestDevice(t, fabric.WithDeviceInfo(doc))

	pin, ok := dev.PackagePin("P1")
	require.True(t, ok)
	require.Equal(t, "SLICE_X0Y0", pin.Site)

	bel, err := dev.PackagePinBel("P1")
	require.NoError(t, err)
	require.Equal(t, "BUF", bel.Name())

	_, err = dev.PackagePinBel("P9")
	var ae *fabric.AssemblyError
	require.ErrorAs(t, err, &ae)

	// Without device info the queries stay empty but never fail.
	bare := generateTestDevice(t)
	require.Empty(t, bare.PackagePins())
	_, ok = bare.PackagePin("P1")
	require.False(t, ok)
}

func TestLoadDeviceInfoRejectsBadDocuments(t *testing.T) {
	parser, err := pinout.NewParser()
	require.NoError(t, err)

	noPinout, err := parser.ParseString(`
deviceinfo OTFTEST is
  section notes is
    note vendor "test";
  end section;
end deviceinfo;
`)
	require.NoError(t, err)
	_, err = fabric.NewGenerator(fabric.WithDeviceInfo(noPinout)).Generate(report.Bytes(testReport))
	require.Error(t, err)

	badSite, err := parser.ParseString(`
deviceinfo OTFTEST is
  section pinout is
    pin P1 : site NOWHERE bel BUF;
  end section;
end deviceinfo;
`)
	require.NoError(t, err)
	_, err = fabric.NewGenerator(fabric.WithDeviceInfo(badSite)).Generate(report.Bytes(testReport))
	require.Error(t, err)
	var fe *fabric.FormatError
	require.ErrorAs(t, err, &fe)
}
