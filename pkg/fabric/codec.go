package fabric

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/report"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// Compact persisted device form. Only round-trip fidelity is contractual:
// a deserialized device must equal the original under the model's equality
// rules, not byte-for-byte internals. The format therefore stores only what
// cannot be derived - forward maps as occupied (key, bucket, set) triples,
// site bindings, type tables - and rebuilds reverse maps, classification
// and node tables on load through the same finalization the generator runs.
//
// All integers are little-endian; strings are u32-length-prefixed UTF-8.

var codecMagic = [4]byte{'O', 'T', 'F', 'D'}

const codecVersion uint16 = 1

// WriteDevice serializes d.
func WriteDevice(w io.Writer, d *Device) error {
	buf := bufio.NewWriter(w)
	bw := &binWriter{w: buf}
	bw.raw(codecMagic[:])
	bw.u16(codecVersion)
	bw.str(d.part)
	bw.u32(uint32(d.rows))
	bw.u32(uint32(d.cols))

	names := d.templates.Names()
	bw.u32(uint32(len(names)))
	for _, n := range names {
		bw.str(n)
	}
	bw.u32(uint32(len(d.tileTypes)))
	for _, n := range d.tileTypes {
		bw.str(n)
	}
	bw.u32(uint32(len(d.siteTypes)))
	for _, n := range d.siteTypes {
		bw.str(n)
	}

	for _, st := range d.siteTemplates {
		writeSiteTemplate(bw, st)
	}
	for i := range d.tiles {
		writeTile(bw, &d.tiles[i])
	}

	pins := d.PackagePins()
	bw.u32(uint32(len(pins)))
	for _, p := range pins {
		bw.str(p.Name)
		bw.str(p.Site)
		bw.str(p.Bel)
	}
	bw.u32(uint32(d.wireCount))

	if bw.err != nil {
		return fmt.Errorf("fabric: write device: %w", bw.err)
	}
	return buf.Flush()
}

func writeSiteTemplate(bw *binWriter, st *SiteTemplate) {
	bw.u32(uint32(len(st.pins)))
	for i := range st.pins {
		bw.str(st.pins[i].Name)
		bw.u8(uint8(st.pins[i].Direction))
		bw.u32(uint32(st.pins[i].Wire.Ordinal()))
	}
	bw.u32(uint32(len(st.bels)))
	for i := range st.bels {
		b := &st.bels[i]
		bw.str(b.Name)
		bw.str(b.Type)
		bw.u32(uint32(len(b.Pins)))
		for j := range b.Pins {
			bw.str(b.Pins[j].Name)
			bw.u8(uint8(b.Pins[j].Direction))
			bw.u32(uint32(b.Pins[j].Wire.Ordinal()))
		}
	}
	writeMap(bw, st.forward)
	bw.u32(uint32(len(st.routethroughs)))
	// Deterministic output: iterate edges in sorted order.
	edges := make([]routethroughEdge, 0, len(st.routethroughs))
	for e := range st.routethroughs {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].in != edges[j].in {
			return edges[i].in < edges[j].in
		}
		return edges[i].out < edges[j].out
	})
	for _, e := range edges {
		bw.u32(uint32(e.in))
		bw.u32(uint32(e.out))
		bw.str(st.routethroughs[e])
	}
}

func writeTile(bw *binWriter, t *Tile) {
	bw.str(t.name)
	bw.u32(uint32(t.typ))
	bw.u32(uint32(t.legal.Len()))
	for i := 0; i < t.legal.Len(); i++ {
		bw.u32(uint32(t.legal.At(i).Ordinal()))
	}
	writeMap(bw, t.forward)
	bw.u32(uint32(len(t.sites)))
	for _, s := range t.sites {
		bw.str(s.name)
		bw.u32(uint32(len(s.possible)))
		for _, p := range s.possible {
			bw.u32(uint32(p))
		}
		bw.u32(uint32(s.active))
		bindings := s.pins.all()
		bw.u32(uint32(len(bindings)))
		for _, pb := range bindings {
			bw.str(pb.name)
			bw.u8(uint8(pb.dir))
			bw.u32(uint32(pb.tile.Ordinal()))
		}
	}
}

// writeMap persists only the occupied (key, bucket, value) triples so the
// serialized size scales with entry count, not table capacity.
func writeMap(bw *binWriter, m *wire.Map) {
	bw.u32(uint32(m.Capacity()))
	bw.u32(uint32(m.Size()))
	m.Occupied(func(bucket int, t *wire.Template, s *wire.Set) bool {
		bw.u32(uint32(bucket))
		bw.u32(uint32(t.Ordinal()))
		bw.u16(uint16(s.Len()))
		for i := 0; i < s.Len(); i++ {
			c := s.At(i)
			bw.u32(uint32(c.Sink().Ordinal()))
			bw.u16(uint16(int16(c.RowOffset())))
			bw.u16(uint16(int16(c.ColOffset())))
			flag := uint8(0)
			if c.IsConfigurable() {
				flag = 1
			}
			bw.u8(flag)
		}
		return true
	})
}

// ReadDevice deserializes a device written by WriteDevice, re-interning
// every shared structure through fresh pools and re-deriving what the
// format omits.
func ReadDevice(r io.Reader) (*Device, error) {
	br := &binReader{r: bufio.NewReader(r)}

	var magic [4]byte
	br.raw(magic[:])
	if br.err == nil && magic != codecMagic {
		return nil, formatErrf("device binary", "bad magic %q", magic[:])
	}
	if v := br.u16(); br.err == nil && v != codecVersion {
		return nil, formatErrf("device binary", "unsupported version %d", v)
	}

	pools := newPoolSet()
	dev := &Device{
		part: br.str(),
		rows: int(br.u32()),
		cols: int(br.u32()),
	}
	if br.err != nil {
		return nil, fmt.Errorf("fabric: read device: %w", br.err)
	}
	if dev.rows <= 0 || dev.cols <= 0 {
		return nil, formatErrf("device binary", "empty grid %dx%d", dev.rows, dev.cols)
	}

	names := make([]string, br.u32())
	for i := range names {
		names[i] = br.str()
	}
	dev.templates = wire.NewTable(names)
	if dev.templates.Len() != len(names) {
		return nil, formatErrf("device binary", "template names not unique")
	}
	for i, n := range names {
		// NewTable numbers lexicographically; the persisted order must
		// already agree or ordinals in the file would be misread.
		if dev.templates.Canonical(int32(i)).Name() != n {
			return nil, formatErrf("device binary", "template names out of order at %d", i)
		}
	}

	dev.tileTypes = make([]string, br.u32())
	for i := range dev.tileTypes {
		dev.tileTypes[i] = br.str()
	}
	dev.siteTypes = make([]string, br.u32())
	for i := range dev.siteTypes {
		dev.siteTypes[i] = br.str()
	}

	dev.siteTemplates = make([]*SiteTemplate, len(dev.siteTypes))
	for i := range dev.siteTemplates {
		st, err := readSiteTemplate(br, dev, SiteType(i), pools)
		if err != nil {
			return nil, err
		}
		dev.siteTemplates[i] = st
	}

	dev.tiles = make([]Tile, dev.rows*dev.cols)
	dev.tileByName = make(map[string]*Tile, len(dev.tiles))
	dev.siteByName = make(map[string]*Site)
	for i := range dev.tiles {
		if err := readTile(br, dev, i, pools); err != nil {
			return nil, err
		}
	}

	nPins := int(br.u32())
	if nPins > 0 {
		dev.packagePins = make(map[string]PackagePin, nPins)
		for i := 0; i < nPins; i++ {
			p := PackagePin{Name: br.str(), Site: br.str(), Bel: br.str()}
			dev.packagePins[p.Name] = p
		}
	}
	dev.wireCount = int(br.u32())

	if br.err != nil {
		return nil, fmt.Errorf("fabric: read device: %w", br.err)
	}

	buildTileReverseMaps(dev, pools)
	g := NewGenerator()
	g.finalize(dev, classifyDevice(dev), pools)
	return dev, nil
}

func readSiteTemplate(br *binReader, dev *Device, typ SiteType, pools *poolSet) (*SiteTemplate, error) {
	st := &SiteTemplate{
		typ:           typ,
		name:          dev.siteTypes[typ],
		pinIndex:      make(map[string]int),
		belIndex:      make(map[string]int),
		routethroughs: make(map[routethroughEdge]string),
	}
	var wires []*wire.Template

	nPins := int(br.u32())
	for i := 0; i < nPins; i++ {
		name := br.str()
		dir := br.dir()
		tmpl, err := br.template(dev)
		if err != nil {
			return nil, err
		}
		st.pinIndex[name] = len(st.pins)
		st.pins = append(st.pins, SitePinTemplate{Name: name, Direction: dir, Wire: tmpl})
		wires = append(wires, tmpl)
	}
	nBels := int(br.u32())
	for i := 0; i < nBels; i++ {
		bel := BelTemplate{Name: br.str(), Type: br.str()}
		nBelPins := int(br.u32())
		for j := 0; j < nBelPins; j++ {
			name := br.str()
			dir := br.dir()
			tmpl, err := br.template(dev)
			if err != nil {
				return nil, err
			}
			bel.Pins = append(bel.Pins, BelPinTemplate{Name: name, Direction: dir, Wire: tmpl})
			wires = append(wires, tmpl)
		}
		st.belIndex[bel.Name] = len(st.bels)
		st.bels = append(st.bels, bel)
	}

	m, err := readMap(br, dev, pools)
	if err != nil {
		return nil, err
	}
	st.forward = m
	st.wires = pools.tmplSets.Add(wire.NewTemplateSet(wires))

	nRT := int(br.u32())
	for i := 0; i < nRT; i++ {
		in, out := int32(br.u32()), int32(br.u32())
		st.routethroughs[routethroughEdge{in: in, out: out}] = br.str()
	}
	return st, br.err
}

func readTile(br *binReader, dev *Device, index int, pools *poolSet) error {
	t := &dev.tiles[index]
	t.dev = dev
	t.row = index / dev.cols
	t.col = index % dev.cols
	t.name = br.str()
	t.typ = TileType(br.u32())
	if br.err == nil && int(t.typ) >= len(dev.tileTypes) {
		return formatErrf("device binary", "tile %s has unknown type index %d", t.name, t.typ)
	}
	dev.tileByName[t.name] = t

	nWires := int(br.u32())
	tmpls := make([]*wire.Template, 0, nWires)
	for i := 0; i < nWires; i++ {
		tmpl, err := br.template(dev)
		if err != nil {
			return err
		}
		tmpls = append(tmpls, tmpl)
	}
	t.legal = pools.tmplSets.Add(wire.NewTemplateSet(tmpls))

	m, err := readMap(br, dev, pools)
	if err != nil {
		return err
	}
	t.forward = m

	nSites := int(br.u32())
	for i := 0; i < nSites; i++ {
		s := &Site{tile: t, index: i, name: br.str()}
		nPossible := int(br.u32())
		for j := 0; j < nPossible; j++ {
			st := SiteType(br.u32())
			if br.err == nil && int(st) >= len(dev.siteTypes) {
				return formatErrf("device binary", "site %s has unknown type index %d", s.name, st)
			}
			s.possible = append(s.possible, st)
		}
		s.active = SiteType(br.u32())
		nBind := int(br.u32())
		bindings := make([]pinBinding, 0, nBind)
		for j := 0; j < nBind; j++ {
			name := br.str()
			dir := br.dir()
			tmpl, err := br.template(dev)
			if err != nil {
				return err
			}
			bindings = append(bindings, pinBinding{name: name, dir: dir, tile: tmpl})
		}
		s.pins = pools.bindings.Add(newPinBindingTable(bindings))
		t.sites = append(t.sites, s)
		dev.siteByName[s.name] = s
	}
	return br.err
}

func readMap(br *binReader, dev *Device, pools *poolSet) (*wire.Map, error) {
	capacity := int(br.u32())
	count := int(br.u32())
	if br.err != nil {
		return nil, br.err
	}
	m, err := wire.NewMapSized(capacity, wire.DefaultLoadFactor)
	if err != nil {
		return nil, formatErrf("device binary", "map capacity %d: %v", capacity, err)
	}
	if m.Capacity() != capacity {
		return nil, formatErrf("device binary", "map capacity %d is not a power of two", capacity)
	}
	for i := 0; i < count; i++ {
		bucket := int(br.u32())
		key, err := br.template(dev)
		if err != nil {
			return nil, err
		}
		n := int(br.u16())
		set := wire.NewSetCapacity(n)
		for j := 0; j < n; j++ {
			sink, err := br.template(dev)
			if err != nil {
				return nil, err
			}
			row := int(int16(br.u16()))
			col := int(int16(br.u16()))
			flag := br.u8() != 0
			set.Add(wire.NewConnection(sink, row, col, flag))
		}
		if err := m.RestoreBucket(bucket, key, pools.sets.Add(set.Trim())); err != nil {
			return nil, formatErrf("device binary", "map entry %d: %v", i, err)
		}
	}
	return pools.maps.Add(m), br.err
}

// binWriter folds the error plumbing of sequential binary writes,
// little-endian throughout.
type binWriter struct {
	w   io.Writer
	err error
}

func (bw *binWriter) raw(b []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(b)
}

func (bw *binWriter) u8(v uint8) { bw.raw([]byte{v}) }

func (bw *binWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	bw.raw(b[:])
}

func (bw *binWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	bw.raw(b[:])
}

func (bw *binWriter) str(s string) {
	bw.u32(uint32(len(s)))
	bw.raw([]byte(s))
}

type binReader struct {
	r   io.Reader
	err error
}

func (br *binReader) raw(b []byte) {
	if br.err != nil {
		return
	}
	_, br.err = io.ReadFull(br.r, b)
}

func (br *binReader) u8() uint8 {
	var b [1]byte
	br.raw(b[:])
	return b[0]
}

func (br *binReader) u16() uint16 {
	var b [2]byte
	br.raw(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (br *binReader) u32() uint32 {
	var b [4]byte
	br.raw(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (br *binReader) str() string {
	n := br.u32()
	if br.err != nil || n == 0 {
		return ""
	}
	b := make([]byte, n)
	br.raw(b)
	return string(b)
}

func (br *binReader) dir() report.Direction {
	return report.Direction(br.u8())
}

// template resolves a persisted ordinal against the restored table.
func (br *binReader) template(dev *Device) (*wire.Template, error) {
	ord := int32(br.u32())
	if br.err != nil {
		return nil, br.err
	}
	t := dev.templates.Canonical(ord)
	if t == nil {
		return nil, formatErrf("device binary", "wire ordinal %d out of range", ord)
	}
	return t, nil
}
