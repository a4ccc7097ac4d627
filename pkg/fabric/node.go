package fabric

import (
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// ConnTemplate is an abstract connection of a node template: source and sink
// are offset-carrying template instances located relative to the node's root
// tile, and the ordinal is the connection's dense index within its template.
type ConnTemplate struct {
	ordinal      int32
	source       *wire.Template
	sink         *wire.Template
	configurable bool
}

// PinAnchor records where a site pin connects to a node: the tuple is
// resolved against live sites on demand. A template enumerates anchors for
// every type its site could ever take; only the active type's pin is real.
type PinAnchor struct {
	off       wire.Offset
	siteIndex int32
	siteType  SiteType
	pinIndex  int32
}

// TermAnchor is the intra-site analogue of PinAnchor, naming a BEL pin.
type TermAnchor struct {
	siteType SiteType
	belIndex int32
	pinIndex int32
}

// NodeTemplate is the shared, position-independent description of a node:
// its member wires (offset-carrying template instances relative to the root
// tile), its configurable edges in both directions, and the pins it touches.
// Templates are hash-consed, so every tile with the same local shape
// references one instance; a Node is just a template anchored at a location.
type NodeTemplate struct {
	root    *wire.Template
	members []*wire.Template
	forward []ConnTemplate
	reverse []ConnTemplate
	pins    []PinAnchor
	terms   []TermAnchor
}

// Root returns the canonical root wire template.
func (nt *NodeTemplate) Root() *wire.Template { return nt.root }

func (nt *NodeTemplate) equal(o *NodeTemplate) bool {
	if nt.root != o.root ||
		len(nt.members) != len(o.members) ||
		len(nt.forward) != len(o.forward) ||
		len(nt.reverse) != len(o.reverse) ||
		len(nt.pins) != len(o.pins) ||
		len(nt.terms) != len(o.terms) {
		return false
	}
	// Members and endpoints are interned through the template table, so
	// pointer comparison is structural comparison.
	for i := range nt.members {
		if nt.members[i] != o.members[i] {
			return false
		}
	}
	for i := range nt.forward {
		if nt.forward[i] != o.forward[i] {
			return false
		}
	}
	for i := range nt.reverse {
		if nt.reverse[i] != o.reverse[i] {
			return false
		}
	}
	for i := range nt.pins {
		if nt.pins[i] != o.pins[i] {
			return false
		}
	}
	for i := range nt.terms {
		if nt.terms[i] != o.terms[i] {
			return false
		}
	}
	return true
}

func (nt *NodeTemplate) hash() uint64 {
	h := uint64(1469598103934665603)
	mix := func(x uint64) { h = (h ^ x) * 1099511628211 }
	mix(uint64(uint32(nt.root.Ordinal())))
	for _, m := range nt.members {
		mix(uint64(uint32(m.Ordinal())))
		mix(uint64(uint32(m.Offset().Rows))<<32 | uint64(uint32(m.Offset().Cols)))
	}
	for _, c := range nt.forward {
		mix(uint64(uint32(c.source.Ordinal()))<<32 | uint64(uint32(c.sink.Ordinal())))
	}
	for _, c := range nt.reverse {
		mix(uint64(uint32(c.source.Ordinal()))<<32 | uint64(uint32(c.sink.Ordinal())))
	}
	for _, p := range nt.pins {
		mix(uint64(uint32(p.siteIndex))<<32 | uint64(uint32(p.pinIndex)))
		mix(uint64(uint32(p.siteType)))
	}
	for _, t := range nt.terms {
		mix(uint64(uint32(t.belIndex))<<32 | uint64(uint32(t.pinIndex)))
	}
	return h
}

// nodeTable pairs a tile's (or site template's) node roots with their
// templates; roots and table are both pooled.
type nodeTable struct {
	roots     *wire.TemplateSet
	templates []*NodeTemplate
}

func (t *nodeTable) lookup(root *wire.Template) *NodeTemplate {
	if t == nil {
		return nil
	}
	i := t.roots.IndexOf(root)
	if i < 0 {
		return nil
	}
	return t.templates[i]
}

func (t *nodeTable) equal(o *nodeTable) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !t.roots.Equal(o.roots) || len(t.templates) != len(o.templates) {
		return false
	}
	for i := range t.templates {
		// Node templates are pooled first, so identity comparison holds.
		if t.templates[i] != o.templates[i] {
			return false
		}
	}
	return true
}

func (t *nodeTable) hash() uint64 {
	if t == nil {
		return 0
	}
	h := t.roots.Hash()
	for _, nt := range t.templates {
		h = (h ^ nt.hash()) * 1099511628211
	}
	return h
}

// Node is the coalesced, location-resolved unit of the routing graph. The
// variant set is closed: a node is either a TileNode or a SiteNode, and
// consumers handle exactly those two shapes.
type Node interface {
	// Wire returns the node's root wire.
	Wire() Wire
	// Wires returns every wire the node coalesces, resolved on demand.
	Wires() []Wire
	// Connections returns the node's outgoing configurable edges.
	Connections() []Connection
	// ReverseConnections returns the node's incoming configurable edges.
	ReverseConnections() []Connection

	sealedNode()
}

// TileNode anchors a node template at a tile. The zero value is not a valid
// node.
type TileNode struct {
	tile *Tile
	tmpl *NodeTemplate
}

func (n TileNode) sealedNode() {}

// Tile returns the node's root tile.
func (n TileNode) Tile() *Tile { return n.tile }

// Template returns the shared node template.
func (n TileNode) Template() *NodeTemplate { return n.tmpl }

// Wire returns the root wire.
func (n TileNode) Wire() Wire {
	return TileWire(n.tile, n.tmpl.root)
}

func (n TileNode) resolve(member *wire.Template) Wire {
	t := n.tile.Neighbor(member.Offset())
	if t == nil {
		return Wire{}
	}
	return TileWire(t, n.tile.dev.templates.Canonical(member.Ordinal()))
}

// Wires computes the absolute tile of each member wire by offsetting the
// root tile, producing resolved wires on demand; nothing is stored.
func (n TileNode) Wires() []Wire {
	out := make([]Wire, 0, len(n.tmpl.members))
	for _, m := range n.tmpl.members {
		if w := n.resolve(m); !w.IsZero() {
			out = append(out, w)
		}
	}
	return out
}

func (n TileNode) resolveConns(cts []ConnTemplate) []Connection {
	out := make([]Connection, 0, len(cts))
	for _, ct := range cts {
		src, sink := n.resolve(ct.source), n.resolve(ct.sink)
		if src.IsZero() || sink.IsZero() {
			continue
		}
		out = append(out, Connection{source: src, sink: sink, configurable: ct.configurable})
	}
	return out
}

// Connections resolves the node's outgoing configurable edges at this
// anchor.
func (n TileNode) Connections() []Connection {
	return n.resolveConns(n.tmpl.forward)
}

// ReverseConnections resolves the node's incoming configurable edges.
func (n TileNode) ReverseConnections() []Connection {
	return n.resolveConns(n.tmpl.reverse)
}

// ConnectedPins resolves the template's pin anchors into live site pins.
// Anchors whose site is currently configured to a different type resolve to
// nothing.
func (n TileNode) ConnectedPins() []SitePin {
	out := make([]SitePin, 0, len(n.tmpl.pins))
	for _, a := range n.tmpl.pins {
		if p, ok := n.ConnectedPin(a); ok {
			out = append(out, p)
		}
	}
	return out
}

// ConnectedPin resolves one anchor, reporting false when the anchor's site
// is missing or its active type does not match the anchor's expected type.
func (n TileNode) ConnectedPin(a PinAnchor) (SitePin, bool) {
	t := n.tile.Neighbor(a.off)
	if t == nil {
		return SitePin{}, false
	}
	s := t.Site(int(a.siteIndex))
	if s == nil || s.active != a.siteType {
		return SitePin{}, false
	}
	return SitePin{site: s, typ: a.siteType, pin: int(a.pinIndex)}, true
}

// PinAnchors returns the template's pin anchors.
func (n TileNode) PinAnchors() []PinAnchor { return n.tmpl.pins }

// SiteNode anchors a node template inside a site; offsets collapse to zero
// and sinks resolve to BEL pins or site pins instead of tile-level sites.
type SiteNode struct {
	site *Site
	typ  SiteType
	tmpl *NodeTemplate
}

func (n SiteNode) sealedNode() {}

// Site returns the owning site.
func (n SiteNode) Site() *Site { return n.site }

// Template returns the shared node template.
func (n SiteNode) Template() *NodeTemplate { return n.tmpl }

// Wire returns the root wire.
func (n SiteNode) Wire() Wire {
	return SiteWire(n.site, n.tmpl.root)
}

// Wires resolves the member wires inside the site.
func (n SiteNode) Wires() []Wire {
	out := make([]Wire, len(n.tmpl.members))
	dev := n.site.tile.dev
	for i, m := range n.tmpl.members {
		out[i] = SiteWire(n.site, dev.templates.Canonical(m.Ordinal()))
	}
	return out
}

func (n SiteNode) resolveConns(cts []ConnTemplate) []Connection {
	dev := n.site.tile.dev
	out := make([]Connection, len(cts))
	for i, ct := range cts {
		out[i] = Connection{
			source:       SiteWire(n.site, dev.templates.Canonical(ct.source.Ordinal())),
			sink:         SiteWire(n.site, dev.templates.Canonical(ct.sink.Ordinal())),
			configurable: ct.configurable,
		}
	}
	return out
}

// Connections resolves the node's outgoing configurable edges.
func (n SiteNode) Connections() []Connection {
	return n.resolveConns(n.tmpl.forward)
}

// ReverseConnections resolves the node's incoming configurable edges.
func (n SiteNode) ReverseConnections() []Connection {
	return n.resolveConns(n.tmpl.reverse)
}

// Terminals resolves the template's BEL pin anchors. An anchor is real only
// while its site type is the active one.
func (n SiteNode) Terminals() []BelPin {
	out := make([]BelPin, 0, len(n.tmpl.terms))
	for _, a := range n.tmpl.terms {
		if p, ok := n.Terminal(a); ok {
			out = append(out, p)
		}
	}
	return out
}

// Terminal resolves one BEL pin anchor.
func (n SiteNode) Terminal(a TermAnchor) (BelPin, bool) {
	if n.site.active != a.siteType {
		return BelPin{}, false
	}
	return BelPin{site: n.site, typ: a.siteType, bel: int(a.belIndex), pin: int(a.pinIndex)}, true
}

// TermAnchors returns the template's BEL pin anchors.
func (n SiteNode) TermAnchors() []TermAnchor { return n.tmpl.terms }

// ConnectedPins resolves the site pins touching the node.
func (n SiteNode) ConnectedPins() []SitePin {
	out := make([]SitePin, 0, len(n.tmpl.pins))
	for _, a := range n.tmpl.pins {
		if n.site.active != a.siteType {
			continue
		}
		out = append(out, SitePin{site: n.site, typ: a.siteType, pin: int(a.pinIndex)})
	}
	return out
}
