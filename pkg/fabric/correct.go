package fabric

import (
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// Phase 3: closure plus pruning. For every wire the generator walks the
// fixed (non-configurable) metal in both directions, adds collapsed direct
// edges to every functionally meaningful wire it can reach, and removes the
// fixed edges that no longer serve a wire of interest. Forward and reverse
// passes run independently per tile on the worker pool; their add/remove
// sets are merged by set algebra and applied by rebuilding each tile's maps
// through the canonicalizing pools, so the mirror invariant holds by
// construction.

// edgeEdit is one pending add or removal against a named tile map.
type edgeEdit struct {
	tile int // row-major tile index
	fwd  bool
	src  *wire.Template
	conn wire.Connection
}

// tileEditSet is the per-tile result of the compute step. Workers write
// disjoint slots, so no locking is needed.
type tileEditSet struct {
	adds    []edgeEdit
	removes []edgeEdit
}

type visitKey struct {
	ord        int32
	rows, cols int
}

func (g *Generator) correct(dev *Device, cls classification, pools *poolSet) (added, removed int) {
	n := len(dev.tiles)
	edits := make([]tileEditSet, n)

	g.runJobs(n, func(i int) {
		edits[i] = correctTile(dev, &dev.tiles[i], i, cls)
	})

	// Merge: every add and remove is mirrored into the opposite map of the
	// tile at the other end of the edge, then grouped per tile for apply.
	pending := make([]tileEditSet, n)
	place := func(e edgeEdit) {
		p := &pending[e.tile]
		p.adds = append(p.adds, e)
	}
	placeRemove := func(e edgeEdit) {
		p := &pending[e.tile]
		p.removes = append(p.removes, e)
	}
	for i := range edits {
		for _, e := range edits[i].adds {
			place(e)
			place(mirrorEdit(dev, e))
			added++
		}
		for _, e := range edits[i].removes {
			placeRemove(e)
			placeRemove(mirrorEdit(dev, e))
			removed++
		}
	}

	g.runJobs(n, func(i int) {
		applyTileEdits(dev, &dev.tiles[i], pending[i], pools)
	})
	return added, removed
}

// mirrorEdit produces the opposite-map twin of an edit: a forward edge
// src -> (sink, off) at tile T mirrors as the reverse edge
// sink -> (src, -off) at tile T+off, and vice versa.
func mirrorEdit(dev *Device, e edgeEdit) edgeEdit {
	t := &dev.tiles[e.tile]
	other := t.Neighbor(e.conn.Offset())
	return edgeEdit{
		tile: other.row*dev.cols + other.col,
		fwd:  !e.fwd,
		src:  e.conn.Sink(),
		conn: wire.NewConnection(e.src, -e.conn.RowOffset(), -e.conn.ColOffset(), e.conn.IsConfigurable()),
	}
}

func correctTile(dev *Device, t *Tile, tileIndex int, cls classification) tileEditSet {
	var out tileEditSet

	// Forward closure: collapse every fixed multi-hop path from w into a
	// direct edge onto each reachable wire of interest.
	for _, src := range t.forward.Keys() {
		closure(dev, t, src, false, func(reached *wire.Template, off wire.Offset) {
			if cls.forwardInterest(reached) {
				out.adds = append(out.adds, edgeEdit{
					tile: tileIndex,
					fwd:  true,
					src:  src,
					conn: wire.NewConnection(reached, off.Rows, off.Cols, false),
				})
			}
		})
	}

	// Reverse closure: the same walk against the reverse maps, collecting
	// sources of interest.
	for _, src := range t.reverse.Keys() {
		closure(dev, t, src, true, func(reached *wire.Template, off wire.Offset) {
			if cls.reverseInterest(reached) {
				out.adds = append(out.adds, edgeEdit{
					tile: tileIndex,
					fwd:  false,
					src:  src,
					conn: wire.NewConnection(reached, off.Rows, off.Cols, false),
				})
			}
		})
	}

	// Removal set, computed over forward maps only; mirroring covers the
	// reverse side. A fixed edge u -> v survives only while one endpoint
	// still matters: u as a source of interest, or v as a sink of interest.
	for _, src := range t.forward.Keys() {
		srcInterest := cls.reverseInterest(src)
		set := t.forward.Get(src)
		for i := 0; i < set.Len(); i++ {
			c := set.At(i)
			if c.IsConfigurable() {
				continue
			}
			if !srcInterest && !cls.forwardInterest(c.Sink()) {
				out.removes = append(out.removes, edgeEdit{
					tile: tileIndex, fwd: true, src: src, conn: c,
				})
			}
		}
	}
	return out
}

// closure breadth-first traverses fixed edges from (start, t), calling visit
// for every distinct (template, cumulative offset) reached beyond the start.
// The visited set keys on (sink ordinal, cumulative offset), so loops in the
// metal terminate.
func closure(dev *Device, t *Tile, start *wire.Template, rev bool, visit func(*wire.Template, wire.Offset)) {
	type item struct {
		tmpl *wire.Template
		off  wire.Offset
	}
	visited := map[visitKey]struct{}{
		{ord: start.Ordinal()}: {},
	}
	queue := []item{{tmpl: start}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		curTile := dev.Tile(t.row+cur.off.Rows, t.col+cur.off.Cols)
		if curTile == nil {
			continue
		}
		m := curTile.forward
		if rev {
			m = curTile.reverse
		}
		set := m.Get(cur.tmpl)
		for i := 0; i < set.Len(); i++ {
			c := set.At(i)
			if c.IsConfigurable() {
				continue
			}
			off := cur.off.Plus(c.Offset())
			key := visitKey{ord: c.Sink().Ordinal(), rows: off.Rows, cols: off.Cols}
			if _, seen := visited[key]; seen {
				continue
			}
			visited[key] = struct{}{}
			visit(c.Sink(), off)
			queue = append(queue, item{tmpl: c.Sink(), off: off})
		}
	}
}

// applyTileEdits rebuilds both maps of one tile from scratch: surviving
// edges are copied, removals skipped, adds inserted, and every set and map
// re-interned through the pools.
func applyTileEdits(dev *Device, t *Tile, pending tileEditSet, pools *poolSet) {
	type delKey struct {
		ord        int32
		rows, cols int
	}
	delF := make(map[*wire.Template]map[delKey]struct{})
	delR := make(map[*wire.Template]map[delKey]struct{})
	for _, e := range pending.removes {
		into := delF
		if !e.fwd {
			into = delR
		}
		set, ok := into[e.src]
		if !ok {
			set = make(map[delKey]struct{})
			into[e.src] = set
		}
		set[delKey{e.conn.Sink().Ordinal(), e.conn.RowOffset(), e.conn.ColOffset()}] = struct{}{}
	}

	rebuild := func(old *wire.Map, del map[*wire.Template]map[delKey]struct{}, fwd bool) *wire.Map {
		fresh := wire.NewMap()
		for _, src := range old.Keys() {
			set := old.Get(src)
			kill := del[src]
			next := wire.NewSetCapacity(set.Len())
			for i := 0; i < set.Len(); i++ {
				c := set.At(i)
				if !c.IsConfigurable() {
					if _, dead := kill[delKey{c.Sink().Ordinal(), c.RowOffset(), c.ColOffset()}]; dead {
						continue
					}
				}
				next.Add(c)
			}
			if next.Len() > 0 {
				fresh.Put(src, next)
			}
		}
		for _, e := range pending.adds {
			if e.fwd != fwd {
				continue
			}
			addEdge(fresh, e.src, e.conn)
		}
		return poolMap(fresh, pools)
	}

	t.forward = rebuild(t.forward, delF, true)
	t.reverse = rebuild(t.reverse, delR, false)
}
