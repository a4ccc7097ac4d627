package fabric_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/pinout"
)

func TestDeviceRoundTrip(t *testing.T) {
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
	orig := generateTestDevice(t, fabric.WithDeviceInfo(doc))

	var buf bytes.Buffer
	require.NoError(t, fabric.WriteDevice(&buf, orig))

	got, err := fabric.ReadDevice(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	require.Equal(t, orig.Part(), got.Part())
	require.Equal(t, orig.Rows(), got.Rows())
	require.Equal(t, orig.Cols(), got.Cols())
	require.Equal(t, orig.WireCount(), got.WireCount())
	if diff := cmp.Diff(orig.Templates().Names(), got.Templates().Names()); diff != "" {
		t.Fatalf("template names differ (-orig +got):\n%s", diff)
	}
	if diff := cmp.Diff(orig.PackagePins(), got.PackagePins()); diff != "" {
		t.Fatalf("package pins differ (-orig +got):\n%s", diff)
	}

	// Adjacency equality is layout-independent per map.
	orig.Tiles(func(tile *fabric.Tile) bool {
		other, ok := got.TileByName(tile.Name())
		require.True(t, ok)
		require.Equal(t, tile.Row(), other.Row())
		require.Equal(t, tile.Col(), other.Col())
		require.Equal(t, tile.TypeName(), other.TypeName())
		require.True(t, tile.ForwardMap().Equal(other.ForwardMap()),
			"forward map of %s differs", tile.Name())
		require.True(t, tile.ReverseMap().Equal(other.ReverseMap()),
			"reverse map of %s differs", tile.Name())
		return true
	})

	// Derived structures answer queries identically.
	for _, q := range []string{"INT_X0Y0/A", "INT_X1Y0/B", "INT_X1Y0/E"} {
		ow, ok := orig.WireByName(q)
		require.True(t, ok)
		gw, ok := got.WireByName(q)
		require.True(t, ok)
		var origNames, gotNames []string
		for _, w := range orig.NodeOf(ow).Wires() {
			origNames = append(origNames, w.Name())
		}
		for _, w := range got.NodeOf(gw).Wires() {
			gotNames = append(gotNames, w.Name())
		}
		require.Equal(t, origNames, gotNames, "node of %s", q)
	}

	site, ok := got.SiteByName("SLICE_X0Y0")
	require.True(t, ok)
	require.Equal(t, "SLICE", site.TypeName())
	a1w, ok := site.Wire("A1W")
	require.True(t, ok)
	o6w, ok := site.Wire("O6W")
	require.True(t, ok)
	require.True(t, got.IsRouteThrough(a1w, o6w))

	bel, err := got.PackagePinBel("P1")
	require.NoError(t, err)
	require.Equal(t, "BUF", bel.Name())

	// A second encode of the restored device is byte-identical: writing is
	// deterministic and restore preserved everything it encodes.
	var again bytes.Buffer
	require.NoError(t, fabric.WriteDevice(&again, got))
	require.Equal(t, buf.Bytes(), again.Bytes())
}

func TestReadDeviceRejectsCorruptInput(t *testing.T) {
	dev := generateTestDevice(t)
	var buf bytes.Buffer
	require.NoError(t, fabric.WriteDevice(&buf, dev))
	good := buf.Bytes()

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte{}, good...)
		bad[0] = 'X'
		_, err := fabric.ReadDevice(bytes.NewReader(bad))
		require.Error(t, err)
		var fe *fabric.FormatError
		require.ErrorAs(t, err, &fe)
	})

	t.Run("unsupported version", func(t *testing.T) {
		bad := append([]byte{}, good...)
		bad[4] = 0xFF
		_, err := fabric.ReadDevice(bytes.NewReader(bad))
		require.Error(t, err)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := fabric.ReadDevice(bytes.NewReader(good[:len(good)/2]))
		require.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := fabric.ReadDevice(bytes.NewReader(nil))
		require.Error(t, err)
	})
}
