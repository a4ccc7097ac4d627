package fabric

import (
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/report"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// Wire is a signal-carrying location: a wire template qualified by the tile
// or site it lives in. Wires are lightweight comparable values computed on
// demand; nothing in the device holds one long-term, so they are usable as
// map keys in keep-sets and PIP collections.
type Wire struct {
	tile *Tile
	site *Site // nil for tile wires
	tmpl *wire.Template
}

// TileWire qualifies a template by a tile.
func TileWire(t *Tile, tmpl *wire.Template) Wire {
	return Wire{tile: t, tmpl: tmpl}
}

// SiteWire qualifies a template by a site.
func SiteWire(s *Site, tmpl *wire.Template) Wire {
	return Wire{tile: s.tile, site: s, tmpl: tmpl}
}

// IsZero reports whether w is the zero value rather than a real location.
func (w Wire) IsZero() bool { return w.tmpl == nil }

// InSite reports whether the wire lives inside a site rather than in the
// tile routing fabric.
func (w Wire) InSite() bool { return w.site != nil }

// Tile returns the tile the wire is in (for site wires, the site's tile).
func (w Wire) Tile() *Tile { return w.tile }

// Site returns the owning site, or nil for tile wires.
func (w Wire) Site() *Site { return w.site }

// Template returns the canonical wire template.
func (w Wire) Template() *wire.Template { return w.tmpl }

// Name returns the qualified name, "TILE/WIRE" or "SITE/WIRE".
func (w Wire) Name() string {
	if w.IsZero() {
		return "<nil>"
	}
	if w.site != nil {
		return w.site.name + "/" + w.tmpl.Name()
	}
	return w.tile.name + "/" + w.tmpl.Name()
}

func (w Wire) String() string { return w.Name() }

// wireLess is the deterministic total order used to canonicalize PIPs.
func wireLess(a, b Wire) bool {
	if a.tile != b.tile {
		if a.tile.row != b.tile.row {
			return a.tile.row < b.tile.row
		}
		return a.tile.col < b.tile.col
	}
	as, bs := -1, -1
	if a.site != nil {
		as = a.site.index
	}
	if b.site != nil {
		bs = b.site.index
	}
	if as != bs {
		return as < bs
	}
	return a.tmpl.Ordinal() < b.tmpl.Ordinal()
}

// PIP is a materialized "this configurable switch is set" fact between two
// wires. Equality is undirected: the logical layer only cares that the
// switch between the pair is on, not which way the router crossed it.
type PIP struct {
	Start Wire
	End   Wire
}

// Equal reports symmetric equality.
func (p PIP) Equal(o PIP) bool {
	return (p.Start == o.Start && p.End == o.End) ||
		(p.Start == o.End && p.End == o.Start)
}

// Canonical returns p with its endpoints in the deterministic order, so the
// canonical form is usable as a map key with the undirected semantics.
func (p PIP) Canonical() PIP {
	if wireLess(p.End, p.Start) {
		return PIP{Start: p.End, End: p.Start}
	}
	return p
}

func (p PIP) String() string {
	return p.Start.Name() + "<->" + p.End.Name()
}

// SitePin is an external pin of a site under one of its possible types. The
// pin is real only while that type is the site's active type.
type SitePin struct {
	site *Site
	typ  SiteType
	pin  int
}

// Site returns the owning site.
func (p SitePin) Site() *Site { return p.site }

// SiteType returns the type the pin belongs to.
func (p SitePin) SiteType() SiteType { return p.typ }

// IsZero reports whether p is the zero value.
func (p SitePin) IsZero() bool { return p.site == nil }

func (p SitePin) template() *SitePinTemplate {
	return &p.site.tile.dev.siteTemplates[p.typ].pins[p.pin]
}

// Name returns the pin name.
func (p SitePin) Name() string { return p.template().Name }

// Direction returns the pin direction as seen from outside the site.
func (p SitePin) Direction() report.Direction { return p.template().Direction }

// InternalWire returns the site-interior wire the pin enters or leaves on.
func (p SitePin) InternalWire() Wire {
	return SiteWire(p.site, p.template().Wire)
}

// ExternalWire returns the tile wire the pin is bound to, or the zero Wire
// when the site instance does not bind this pin.
func (p SitePin) ExternalWire() Wire {
	if b, ok := p.site.pinBinding(p.template().Name); ok {
		return TileWire(p.site.tile, b.tile)
	}
	return Wire{}
}

func (p SitePin) String() string {
	if p.IsZero() {
		return "<nil>"
	}
	return p.site.name + "." + p.Name()
}

// Bel is the smallest configurable functional element inside a site, under
// one of the site's possible types.
type Bel struct {
	site *Site
	typ  SiteType
	bel  int
}

// Site returns the owning site.
func (b Bel) Site() *Site { return b.site }

// IsZero reports whether b is the zero value.
func (b Bel) IsZero() bool { return b.site == nil }

func (b Bel) template() *BelTemplate {
	return &b.site.tile.dev.siteTemplates[b.typ].bels[b.bel]
}

// Name returns the BEL name.
func (b Bel) Name() string { return b.template().Name }

// Type returns the BEL type name.
func (b Bel) Type() string { return b.template().Type }

// Pins returns the BEL's pins.
func (b Bel) Pins() []BelPin {
	tmpl := b.template()
	pins := make([]BelPin, len(tmpl.Pins))
	for i := range tmpl.Pins {
		pins[i] = BelPin{site: b.site, typ: b.typ, bel: b.bel, pin: i}
	}
	return pins
}

// Pin returns the named pin.
func (b Bel) Pin(name string) (BelPin, bool) {
	tmpl := b.template()
	for i := range tmpl.Pins {
		if tmpl.Pins[i].Name == name {
			return BelPin{site: b.site, typ: b.typ, bel: b.bel, pin: i}, true
		}
	}
	return BelPin{}, false
}

func (b Bel) String() string {
	if b.IsZero() {
		return "<nil>"
	}
	return b.site.name + "/" + b.Name()
}

// BelPin is a pin on a BEL.
type BelPin struct {
	site *Site
	typ  SiteType
	bel  int
	pin  int
}

// IsZero reports whether p is the zero value.
func (p BelPin) IsZero() bool { return p.site == nil }

// Bel returns the owning BEL.
func (p BelPin) Bel() Bel { return Bel{site: p.site, typ: p.typ, bel: p.bel} }

func (p BelPin) template() *BelPinTemplate {
	return &p.site.tile.dev.siteTemplates[p.typ].bels[p.bel].Pins[p.pin]
}

// Name returns the pin name.
func (p BelPin) Name() string { return p.template().Name }

// Direction returns the pin direction.
func (p BelPin) Direction() report.Direction { return p.template().Direction }

// Wire returns the site wire the pin attaches to.
func (p BelPin) Wire() Wire {
	return SiteWire(p.site, p.template().Wire)
}

func (p BelPin) String() string {
	if p.IsZero() {
		return "<nil>"
	}
	return p.Bel().String() + "." + p.Name()
}
