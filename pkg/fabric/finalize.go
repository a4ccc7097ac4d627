package fabric

import (
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// Phase 4: derive everything the corrected maps imply. Site templates get
// their reverse maps mirrored from the forward ones; every tile and site
// template gets its node table - the hash-consed, position-independent node
// templates consumers resolve Nodes through; the canonical wire-type count
// is recorded. Deserialization reuses this step so the persisted form only
// carries the raw structures.
func (g *Generator) finalize(dev *Device, cls classification, pools *poolSet) {
	for _, st := range dev.siteTemplates {
		st.reverse = mirrorMap(st.forward, pools)
		st.nodes = deriveSiteNodes(dev, st, pools)
	}
	g.runJobs(len(dev.tiles), func(i int) {
		t := &dev.tiles[i]
		t.nodes = deriveTileNodes(dev, t, cls, pools)
	})
	dev.wireCount = dev.templates.Len()
}

// deriveTileNodes builds the node table of one tile from its corrected
// maps: every wire of interest roots a node; the node's members are the
// wires its fixed metal still reaches; its connections are the configurable
// edges touching any member; its pin anchors are the site pins bound to any
// member. Templates are interned, so tiles with identical local shape share
// one table.
func deriveTileNodes(dev *Device, t *Tile, cls classification, pools *poolSet) *nodeTable {
	var roots []*wire.Template
	for i := 0; i < t.legal.Len(); i++ {
		tmpl := t.legal.At(i)
		if cls.forwardInterest(tmpl) || cls.reverseInterest(tmpl) {
			roots = append(roots, tmpl)
		}
	}
	if len(roots) == 0 {
		return nil
	}

	rootSet := pools.tmplSets.Add(wire.NewTemplateSet(roots))
	templates := make([]*NodeTemplate, rootSet.Len())
	for i := 0; i < rootSet.Len(); i++ {
		templates[i] = pools.nodes.Add(buildTileNodeTemplate(dev, t, rootSet.At(i)))
	}
	return pools.nodeTables.Add(&nodeTable{roots: rootSet, templates: templates})
}

func buildTileNodeTemplate(dev *Device, t *Tile, root *wire.Template) *NodeTemplate {
	nt := &NodeTemplate{
		root:    root,
		members: []*wire.Template{root},
	}

	// Member discovery: the fixed-metal closure from the root. Offsets are
	// realized as interned offset-carrying template instances, so member
	// lists compare by pointer.
	type member struct {
		tmpl *wire.Template // canonical
		off  wire.Offset
	}
	members := []member{{tmpl: root}}
	closure(dev, t, root, false, func(reached *wire.Template, off wire.Offset) {
		nt.members = append(nt.members, dev.templates.WithOffset(reached, off))
		members = append(members, member{tmpl: reached, off: off})
	})

	// Configurable edges touching any member, in both directions.
	for _, m := range members {
		mt := dev.Tile(t.row+m.off.Rows, t.col+m.off.Cols)
		if mt == nil {
			continue
		}
		mv := dev.templates.WithOffset(m.tmpl, m.off)

		fset := mt.forward.Get(m.tmpl)
		for i := 0; i < fset.Len(); i++ {
			c := fset.At(i)
			if !c.IsConfigurable() {
				continue
			}
			nt.forward = append(nt.forward, ConnTemplate{
				ordinal:      int32(len(nt.forward)),
				source:       mv,
				sink:         dev.templates.WithOffset(c.Sink(), m.off.Plus(c.Offset())),
				configurable: true,
			})
		}
		rset := mt.reverse.Get(m.tmpl)
		for i := 0; i < rset.Len(); i++ {
			c := rset.At(i)
			if !c.IsConfigurable() {
				continue
			}
			nt.reverse = append(nt.reverse, ConnTemplate{
				ordinal:      int32(len(nt.reverse)),
				source:       dev.templates.WithOffset(c.Sink(), m.off.Plus(c.Offset())),
				sink:         mv,
				configurable: true,
			})
		}

		// Pin anchors: one per possible site type declaring a pin bound to
		// this member wire. Only the anchor matching the site's active type
		// resolves at query time.
		for _, s := range mt.sites {
			for _, pb := range s.pins.all() {
				if pb.tile != m.tmpl {
					continue
				}
				for _, pt := range s.possible {
					if pi, ok := dev.siteTemplates[pt].pinIndex[pb.name]; ok {
						nt.pins = append(nt.pins, PinAnchor{
							off:       m.off,
							siteIndex: int32(s.index),
							siteType:  pt,
							pinIndex:  int32(pi),
						})
					}
				}
			}
		}
	}
	return nt
}

// deriveSiteNodes is the intra-site analogue. Roots are the wires touching
// a site pin, a BEL pin or a configurable mux; offsets collapse to zero.
func deriveSiteNodes(dev *Device, st *SiteTemplate, pools *poolSet) *nodeTable {
	interest := make(map[int32]bool)
	for i := range st.pins {
		interest[st.pins[i].Wire.Ordinal()] = true
	}
	for bi := range st.bels {
		for pi := range st.bels[bi].Pins {
			interest[st.bels[bi].Pins[pi].Wire.Ordinal()] = true
		}
	}
	for _, src := range st.forward.Keys() {
		set := st.forward.Get(src)
		for i := 0; i < set.Len(); i++ {
			if set.At(i).IsConfigurable() {
				interest[src.Ordinal()] = true
				interest[set.At(i).Sink().Ordinal()] = true
			}
		}
	}

	var roots []*wire.Template
	for i := 0; i < st.wires.Len(); i++ {
		if interest[st.wires.At(i).Ordinal()] {
			roots = append(roots, st.wires.At(i))
		}
	}
	if len(roots) == 0 {
		return nil
	}

	rootSet := pools.tmplSets.Add(wire.NewTemplateSet(roots))
	templates := make([]*NodeTemplate, rootSet.Len())
	for i := 0; i < rootSet.Len(); i++ {
		templates[i] = pools.nodes.Add(buildSiteNodeTemplate(dev, st, rootSet.At(i)))
	}
	return pools.nodeTables.Add(&nodeTable{roots: rootSet, templates: templates})
}

func buildSiteNodeTemplate(dev *Device, st *SiteTemplate, root *wire.Template) *NodeTemplate {
	nt := &NodeTemplate{
		root:    root,
		members: []*wire.Template{root},
	}

	// Fixed-metal closure inside the site.
	visited := map[int32]struct{}{root.Ordinal(): {}}
	queue := []*wire.Template{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		set := st.forward.Get(cur)
		for i := 0; i < set.Len(); i++ {
			c := set.At(i)
			if c.IsConfigurable() {
				continue
			}
			if _, seen := visited[c.Sink().Ordinal()]; seen {
				continue
			}
			visited[c.Sink().Ordinal()] = struct{}{}
			nt.members = append(nt.members, c.Sink())
			queue = append(queue, c.Sink())
		}
	}

	for _, m := range nt.members {
		fset := st.forward.Get(m)
		for i := 0; i < fset.Len(); i++ {
			c := fset.At(i)
			if !c.IsConfigurable() {
				continue
			}
			nt.forward = append(nt.forward, ConnTemplate{
				ordinal:      int32(len(nt.forward)),
				source:       m,
				sink:         c.Sink(),
				configurable: true,
			})
		}
		rset := st.reverse.Get(m)
		for i := 0; i < rset.Len(); i++ {
			c := rset.At(i)
			if !c.IsConfigurable() {
				continue
			}
			nt.reverse = append(nt.reverse, ConnTemplate{
				ordinal:      int32(len(nt.reverse)),
				source:       c.Sink(),
				sink:         m,
				configurable: true,
			})
		}

		for pi := range st.pins {
			if st.pins[pi].Wire == m {
				nt.pins = append(nt.pins, PinAnchor{
					siteType: st.typ,
					pinIndex: int32(pi),
				})
			}
		}
		for bi := range st.bels {
			for pi := range st.bels[bi].Pins {
				if st.bels[bi].Pins[pi].Wire == m {
					nt.terms = append(nt.terms, TermAnchor{
						siteType: st.typ,
						belIndex: int32(bi),
						pinIndex: int32(pi),
					})
				}
			}
		}
	}
	return nt
}

// buildTileReverseMaps reconstructs every tile's reverse adjacency from the
// forward maps, filing each back-edge into the sink tile. Used by the codec,
// which persists forward maps only: correction keeps the two directions
// exact mirrors, so the reverse side is derivable.
func buildTileReverseMaps(dev *Device, pools *poolSet) {
	for i := range dev.tiles {
		dev.tiles[i].reverse = wire.NewMap()
	}
	for i := range dev.tiles {
		t := &dev.tiles[i]
		for _, src := range t.forward.Keys() {
			set := t.forward.Get(src)
			for j := 0; j < set.Len(); j++ {
				c := set.At(j)
				sinkTile := t.Neighbor(c.Offset())
				if sinkTile == nil {
					continue
				}
				addEdge(sinkTile.reverse, c.Sink(),
					wire.NewConnection(src, -c.RowOffset(), -c.ColOffset(), c.IsConfigurable()))
			}
		}
	}
	for i := range dev.tiles {
		dev.tiles[i].reverse = poolMap(dev.tiles[i].reverse, pools)
	}
}
