package fabric

import (
	"sort"
	"strings"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/pinout"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// PackagePin maps one pin of the physical package to the site and BEL it
// bonds out to.
type PackagePin struct {
	Name string
	Site string
	Bel  string
}

// Device is the fixed physical fabric of one part: the tile grid, its sites,
// the interned wire template table and the shared adjacency built by the
// generator. A Device is immutable after generation (site active types
// excepted, which are per-site single-writer state) and safe for
// unsynchronized concurrent reads.
type Device struct {
	part       string
	rows, cols int
	tiles      []Tile // row-major

	tileByName map[string]*Tile
	siteByName map[string]*Site

	templates     *wire.Table
	tileTypes     []string
	siteTypes     []string
	siteTemplates []*SiteTemplate // indexed by SiteType

	packagePins map[string]PackagePin // nil until device info is loaded
	wireCount   int
}

// Part returns the part name the report declared.
func (d *Device) Part() string { return d.part }

// Rows returns the grid height.
func (d *Device) Rows() int { return d.rows }

// Cols returns the grid width.
func (d *Device) Cols() int { return d.cols }

// WireCount returns the canonical number of distinct wire templates.
func (d *Device) WireCount() int { return d.wireCount }

// Templates returns the device's interned template table.
func (d *Device) Templates() *wire.Table { return d.templates }

// Tile returns the tile at (row, col), or nil when outside the grid.
func (d *Device) Tile(row, col int) *Tile {
	if row < 0 || row >= d.rows || col < 0 || col >= d.cols {
		return nil
	}
	return &d.tiles[row*d.cols+col]
}

// TileByName resolves a tile name.
func (d *Device) TileByName(name string) (*Tile, bool) {
	t, ok := d.tileByName[name]
	return t, ok
}

// SiteByName resolves a site name.
func (d *Device) SiteByName(name string) (*Site, bool) {
	s, ok := d.siteByName[name]
	return s, ok
}

// Tiles calls fn for every tile in row-major order until fn returns false.
func (d *Device) Tiles(fn func(*Tile) bool) {
	for i := range d.tiles {
		if !fn(&d.tiles[i]) {
			return
		}
	}
}

// SiteTypeName returns the name of a site type.
func (d *Device) SiteTypeName(st SiteType) string { return d.siteTypes[st] }

// SiteTypeByName resolves a site type name.
func (d *Device) SiteTypeByName(name string) (SiteType, bool) {
	for i, n := range d.siteTypes {
		if n == name {
			return SiteType(i), true
		}
	}
	return 0, false
}

// SiteTemplate returns the shared template of a site type.
func (d *Device) SiteTemplate(st SiteType) *SiteTemplate {
	if int(st) < 0 || int(st) >= len(d.siteTemplates) {
		return nil
	}
	return d.siteTemplates[st]
}

// TemplateByName resolves a wire type name to its canonical template.
func (d *Device) TemplateByName(name string) (*wire.Template, bool) {
	return d.templates.ByName(name)
}

// WireByName resolves a qualified "TILE/WIRE" or "SITE/WIRE" name.
func (d *Device) WireByName(qualified string) (Wire, bool) {
	i := strings.LastIndexByte(qualified, '/')
	if i <= 0 || i == len(qualified)-1 {
		return Wire{}, false
	}
	loc, wname := qualified[:i], qualified[i+1:]
	if t, ok := d.tileByName[loc]; ok {
		return t.Wire(wname)
	}
	if s, ok := d.siteByName[loc]; ok {
		return s.Wire(wname)
	}
	return Wire{}, false
}

// NodeOf returns the routing node a wire belongs to. For a tile wire that is
// not itself a node root, the node is found through the wire's direct edge
// to a root; a wire with no such edge forms a degenerate single-wire node.
func (d *Device) NodeOf(w Wire) Node {
	if w.IsZero() {
		return nil
	}
	if w.site != nil {
		st := w.site.Template()
		if nt := st.nodes.lookup(w.tmpl); nt != nil {
			return SiteNode{site: w.site, typ: w.site.active, tmpl: nt}
		}
		return SiteNode{site: w.site, typ: w.site.active, tmpl: &NodeTemplate{
			root:    w.tmpl,
			members: []*wire.Template{w.tmpl},
		}}
	}

	t := w.tile
	if nt := t.nodes.lookup(w.tmpl); nt != nil {
		return TileNode{tile: t, tmpl: nt}
	}
	// Correction guarantees a non-root wire has a direct fixed edge to a
	// root (forward to a sink of interest, or backward from a source of
	// interest).
	if n, ok := d.rootThroughMap(t, w.tmpl, t.forward); ok {
		return n
	}
	if n, ok := d.rootThroughMap(t, w.tmpl, t.reverse); ok {
		return n
	}
	return TileNode{tile: t, tmpl: &NodeTemplate{
		root:    w.tmpl,
		members: []*wire.Template{w.tmpl},
	}}
}

func (d *Device) rootThroughMap(t *Tile, tmpl *wire.Template, m *wire.Map) (Node, bool) {
	set := m.Get(tmpl)
	for i := 0; i < set.Len(); i++ {
		c := set.At(i)
		if c.IsConfigurable() {
			continue
		}
		other := t.Neighbor(c.Offset())
		if other == nil {
			continue
		}
		if nt := other.nodes.lookup(c.Sink()); nt != nil {
			return TileNode{tile: other, tmpl: nt}, true
		}
	}
	return nil, false
}

// IsRouteThrough reports whether a BEL of the owning site can be configured
// to pass a signal straight from a to b. Both wires must be interior wires
// of the same site; the check runs against the site's active type.
func (d *Device) IsRouteThrough(a, b Wire) bool {
	if a.site == nil || a.site != b.site {
		return false
	}
	return a.site.Template().isRouteThrough(a.tmpl, b.tmpl)
}

// LoadDeviceInfo loads the auxiliary package-pin document. A document
// without a pinout section is an error; package pins naming unknown sites
// are too, so a stale document is caught at load time rather than at query
// time.
func (d *Device) LoadDeviceInfo(doc *pinout.Document) error {
	if doc == nil {
		return formatErrf("deviceinfo", "no document")
	}
	sec := doc.PinoutSection()
	if sec == nil {
		return formatErrf("deviceinfo", "document for %q lacks a pinout section", doc.Part)
	}
	pins := make(map[string]PackagePin, len(sec.Pins))
	for _, p := range sec.Pins {
		if _, ok := d.siteByName[p.Site]; !ok {
			return formatErrf("deviceinfo",
				"package pin %q names unknown site %q", p.Name, p.Site)
		}
		pins[p.Name] = PackagePin{Name: p.Name, Site: p.Site, Bel: p.Bel}
	}
	d.packagePins = pins
	return nil
}

// PackagePin resolves a package pin name. Without loaded device info every
// lookup reports false.
func (d *Device) PackagePin(name string) (PackagePin, bool) {
	p, ok := d.packagePins[name]
	return p, ok
}

// PackagePins returns all package pins sorted by name, or nil when no
// device info is loaded.
func (d *Device) PackagePins() []PackagePin {
	if len(d.packagePins) == 0 {
		return nil
	}
	out := make([]PackagePin, 0, len(d.packagePins))
	for _, p := range d.packagePins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PackagePinBel resolves a package pin to its live BEL under the site's
// active type.
func (d *Device) PackagePinBel(name string) (Bel, error) {
	p, ok := d.packagePins[name]
	if !ok {
		return Bel{}, assemblyErrf("package pin lookup", "unknown package pin %q", name)
	}
	s, ok := d.siteByName[p.Site]
	if !ok {
		return Bel{}, assemblyErrf("package pin lookup", "package pin %q names unknown site %q", name, p.Site)
	}
	return s.Bel(p.Bel)
}
