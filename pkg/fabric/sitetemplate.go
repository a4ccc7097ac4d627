package fabric

import (
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/report"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// SitePinTemplate describes one external pin of a site type.
type SitePinTemplate struct {
	Name      string
	Direction report.Direction
	Wire      *wire.Template // site-interior wire the pin attaches to
}

// BelPinTemplate describes one pin of a BEL.
type BelPinTemplate struct {
	Name      string
	Direction report.Direction
	Wire      *wire.Template
}

// BelTemplate describes one BEL of a site type.
type BelTemplate struct {
	Name string
	Type string
	Pins []BelPinTemplate
}

// routethroughEdge is one (input site wire, output site wire) pair a BEL can
// be configured to short together.
type routethroughEdge struct {
	in  int32 // site wire ordinals
	out int32
}

// SiteTemplate is the shared intra-site wiring graph, BEL set and pin set of
// one site type. Every site instance of the type references the same
// template; switching a site's active type just changes which template it
// resolves through.
type SiteTemplate struct {
	typ      SiteType
	name     string
	pins     []SitePinTemplate
	pinIndex map[string]int
	bels     []BelTemplate
	belIndex map[string]int
	wires    *wire.TemplateSet

	// forward is captured from the report; reverse is derived from it when
	// generation finalizes.
	forward *wire.Map
	reverse *wire.Map
	nodes   *nodeTable

	routethroughs map[routethroughEdge]string // edge -> element name
}

// Type returns the site type this template describes.
func (st *SiteTemplate) Type() SiteType { return st.typ }

// Name returns the site type name.
func (st *SiteTemplate) Name() string { return st.name }

// PinCount returns the number of external pins.
func (st *SiteTemplate) PinCount() int { return len(st.pins) }

// PinTemplate returns the i-th pin description.
func (st *SiteTemplate) PinTemplate(i int) *SitePinTemplate { return &st.pins[i] }

// BelCount returns the number of BELs.
func (st *SiteTemplate) BelCount() int { return len(st.bels) }

// BelTemplate returns the i-th BEL description.
func (st *SiteTemplate) BelTemplate(i int) *BelTemplate { return &st.bels[i] }

// WireCount returns the number of site-interior wires.
func (st *SiteTemplate) WireCount() int { return st.wires.Len() }

// ForwardMap exposes the intra-site forward adjacency, read-only after
// generation.
func (st *SiteTemplate) ForwardMap() *wire.Map { return st.forward }

// ReverseMap exposes the derived intra-site reverse adjacency.
func (st *SiteTemplate) ReverseMap() *wire.Map { return st.reverse }

// isRouteThrough reports whether a BEL of this type can short the two site
// wires together.
func (st *SiteTemplate) isRouteThrough(in, out *wire.Template) bool {
	if in == nil || out == nil {
		return false
	}
	_, ok := st.routethroughs[routethroughEdge{in: in.Ordinal(), out: out.Ordinal()}]
	return ok
}

// mirrorMap derives a reverse adjacency from a forward one whose edges stay
// within the same scope (intra-site maps): every edge src -> (sink, off)
// files a back-edge sink -> (src, -off) under the sink, preserving the
// configurable flag. Cross-tile mirroring is handled by the generator, which
// files back-edges into the sink tile's map instead.
func mirrorMap(forward *wire.Map, pools *poolSet) *wire.Map {
	reverse := wire.NewMap()
	for _, src := range forward.Keys() {
		set := forward.Get(src)
		for i := 0; i < set.Len(); i++ {
			c := set.At(i)
			back := reverse.Get(c.Sink())
			if back == nil {
				back = wire.NewSet()
				reverse.Put(c.Sink(), back)
			}
			back.Add(wire.NewConnection(src, -c.RowOffset(), -c.ColOffset(), c.IsConfigurable()))
		}
	}
	return poolMap(reverse, pools)
}
