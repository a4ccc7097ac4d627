package fabric

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// TileType indexes the device's tile type name table.
type TileType int32

// SiteType indexes the device's site type name table.
type SiteType int32

// Tile is one grid cell of the device's spatial layout. It owns the forward
// and reverse adjacency of its wires; identically wired tiles share the
// adjacency maps, legal wire sets and node tables through pooling, so a Tile
// itself stays small.
//
// Tiles are immutable once generation finishes.
type Tile struct {
	dev      *Device
	row, col int
	name     string
	typ      TileType
	sites    []*Site

	forward *wire.Map
	reverse *wire.Map
	legal   *wire.TemplateSet
	nodes   *nodeTable
}

// Device returns the owning device.
func (t *Tile) Device() *Device { return t.dev }

// Row returns the grid row.
func (t *Tile) Row() int { return t.row }

// Col returns the grid column.
func (t *Tile) Col() int { return t.col }

// Name returns the unique tile name.
func (t *Tile) Name() string { return t.name }

// Type returns the tile type.
func (t *Tile) Type() TileType { return t.typ }

// TypeName returns the tile type name.
func (t *Tile) TypeName() string { return t.dev.tileTypes[t.typ] }

// Sites returns the tile's sites in declaration order. The slice is shared;
// callers must not modify it.
func (t *Tile) Sites() []*Site { return t.sites }

// Site returns the i-th site, or nil when out of range.
func (t *Tile) Site(i int) *Site {
	if i < 0 || i >= len(t.sites) {
		return nil
	}
	return t.sites[i]
}

// HasWire reports whether the tile declares the wire template.
func (t *Tile) HasWire(tmpl *wire.Template) bool {
	return t.legal.Contains(tmpl)
}

// Wires returns every wire of the tile, resolved on demand.
func (t *Tile) Wires() []Wire {
	out := make([]Wire, t.legal.Len())
	for i := 0; i < t.legal.Len(); i++ {
		out[i] = TileWire(t, t.legal.At(i))
	}
	return out
}

// Wire resolves a wire name declared in this tile.
func (t *Tile) Wire(name string) (Wire, bool) {
	tmpl, ok := t.dev.templates.ByName(name)
	if !ok || !t.legal.Contains(tmpl) {
		return Wire{}, false
	}
	return TileWire(t, tmpl), true
}

// Neighbor returns the tile displaced by off, or nil when off leaves the
// grid.
func (t *Tile) Neighbor(off wire.Offset) *Tile {
	return t.dev.Tile(t.row+off.Rows, t.col+off.Cols)
}

// ForwardMap exposes the tile's forward adjacency. The map is shared and
// read-only after generation.
func (t *Tile) ForwardMap() *wire.Map { return t.forward }

// ReverseMap exposes the tile's reverse adjacency, read-only like
// ForwardMap.
func (t *Tile) ReverseMap() *wire.Map { return t.reverse }

// Connections resolves the outgoing edges of a wire in this tile.
func (t *Tile) Connections(tmpl *wire.Template) []Connection {
	return resolveTileConnections(t, tmpl, t.forward.Get(tmpl), false)
}

// ReverseConnections resolves the incoming edges of a wire in this tile.
func (t *Tile) ReverseConnections(tmpl *wire.Template) []Connection {
	return resolveTileConnections(t, tmpl, t.reverse.Get(tmpl), true)
}

func (t *Tile) String() string {
	return fmt.Sprintf("%s@(%d,%d)", t.name, t.row, t.col)
}
