package fabric

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/pinout"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/report"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// defaultWorkers bounds the pool used for the per-tile phases. Correction
// and node derivation are pure per-tile transforms; only the canonicalizing
// pools are shared, and those carry their own locks.
const defaultWorkers = 8

// Option configures a Generator.
type Option func(*Generator)

// WithLogger injects the logger the generator reports phase progress on.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// WithWorkers bounds the worker pool for the per-tile phases.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithDeviceInfo supplies the optional package-pin document loaded during
// finalization.
func WithDeviceInfo(doc *pinout.Document) Option {
	return func(g *Generator) { g.info = doc }
}

// Generator builds a Device from a fabric report in four phases: template
// discovery, raw adjacency capture, closure-and-pruning correction, and
// finalization. The first two phases stream the source in order; the later
// phases fan per-tile work out over a bounded worker pool.
type Generator struct {
	log     *zap.Logger
	workers int
	info    *pinout.Document
}

// NewGenerator returns a generator with the default worker bound and a
// no-op logger.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		log:     zap.NewNop(),
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// poolSet groups the canonicalizing caches of one generation run. The set is
// owned by the run and discarded with it; sharing happens through the
// canonical instances it hands out, never through the pools themselves.
type poolSet struct {
	sets       *wire.Pool[*wire.Set]
	maps       *wire.Pool[*wire.Map]
	tmplSets   *wire.Pool[*wire.TemplateSet]
	bindings   *wire.Pool[*pinBindingTable]
	nodes      *wire.Pool[*NodeTemplate]
	nodeTables *wire.Pool[*nodeTable]
}

func newPoolSet() *poolSet {
	return &poolSet{
		sets:     wire.NewSetPool(),
		maps:     wire.NewMapPool(),
		tmplSets: wire.NewTemplateSetPool(),
		bindings: wire.NewPool(
			func(pt *pinBindingTable) uint64 { return pt.hash() },
			func(a, b *pinBindingTable) bool { return a.equal(b) },
		),
		nodes: wire.NewPool(
			func(nt *NodeTemplate) uint64 { return nt.hash() },
			func(a, b *NodeTemplate) bool { return a.equal(b) },
		),
		nodeTables: wire.NewPool(
			func(t *nodeTable) uint64 { return t.hash() },
			func(a, b *nodeTable) bool { return a.equal(b) },
		),
	}
}

// poolMap canonicalizes every set in m, then m itself.
func poolMap(m *wire.Map, pools *poolSet) *wire.Map {
	m.Trim()
	for _, k := range m.Keys() {
		if s := m.Get(k); s != nil {
			if c := pools.sets.Add(s); c != s {
				m.Put(k, c)
			}
		}
	}
	return pools.maps.Add(m)
}

// Generate runs the full pipeline. On any failure no partial device is
// returned.
func (g *Generator) Generate(src report.Source) (*Device, error) {
	pools := newPoolSet()

	start := time.Now()
	b := newBuilder()
	if err := src.Stream(&discoveryListener{b: b}); err != nil {
		return nil, err
	}
	dev, err := b.finishDiscovery(pools)
	if err != nil {
		return nil, err
	}
	g.log.Info("template discovery complete",
		zap.String("part", dev.part),
		zap.Int("rows", dev.rows), zap.Int("cols", dev.cols),
		zap.Int("wireTemplates", dev.templates.Len()),
		zap.Int("siteTypes", len(dev.siteTypes)),
		zap.Duration("elapsed", time.Since(start)))

	start = time.Now()
	cap2 := &captureListener{b: b, dev: dev}
	if err := src.Stream(cap2); err != nil {
		return nil, err
	}
	g.log.Info("raw adjacency captured",
		zap.Int("edges", cap2.edges),
		zap.Duration("elapsed", time.Since(start)))

	start = time.Now()
	cls := classifyDevice(dev)
	added, removed := g.correct(dev, cls, pools)
	g.log.Info("correction applied",
		zap.Int("edgesAdded", added), zap.Int("edgesRemoved", removed),
		zap.Duration("elapsed", time.Since(start)))

	start = time.Now()
	if err := b.finalizeRoutethroughs(dev); err != nil {
		return nil, err
	}
	if g.info != nil {
		if err := dev.LoadDeviceInfo(g.info); err != nil {
			return nil, err
		}
	} else {
		g.log.Info("no device info document; package pin queries will be empty")
	}
	g.finalize(dev, cls, pools)
	g.log.Info("device finalized",
		zap.Int("wireCount", dev.wireCount),
		zap.Int("pooledMaps", pools.maps.Size()),
		zap.Int("pooledNodeTemplates", pools.nodes.Size()),
		zap.Duration("elapsed", time.Since(start)))

	return dev, nil
}

// runJobs fans n indexed jobs out over the generator's worker pool, SART
// style: a jobs channel drained by a fixed set of goroutines.
func (g *Generator) runJobs(n int, fn func(i int)) {
	workers := g.workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	jobs := make(chan int, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// builder accumulates the pass-1 metadata: names, grid shape, site
// descriptions. Deliberately no edges - those stream straight into the maps
// in pass 2, so builder memory stays proportional to the name count, not
// the edge count.
type builder struct {
	part string
	rows int
	cols int

	tiles     []*tileMeta
	tileIndex map[string]int
	byCell    map[[2]int]string

	wireNames map[string]struct{}
	defs      map[string]*defMeta
	siteNames map[string]struct{}

	summaryWires int
}

type tileMeta struct {
	row, col int
	name     string
	typ      string
	wires    []string
	sites    []*siteMeta
}

type siteMeta struct {
	name       string
	typ        string
	alternates []string
	pinWires   []report.PinWireRecord
}

type defMeta struct {
	typ           string
	pins          []report.SitePinRecord
	elements      []*elementMeta
	switches      []report.SwitchRecord
	routethroughs []report.RoutethroughRecord
}

type elementMeta struct {
	name  string
	typ   string
	pins  []report.ElementPinRecord
	conns []report.ElementConnRecord
}

func newBuilder() *builder {
	return &builder{
		tileIndex:    make(map[string]int),
		byCell:       make(map[[2]int]string),
		wireNames:    make(map[string]struct{}),
		defs:         make(map[string]*defMeta),
		siteNames:    make(map[string]struct{}),
		summaryWires: -1,
	}
}

// discoveryListener is the phase-1 event sink.
type discoveryListener struct {
	report.NopListener
	b *builder

	curTile *tileMeta
	curSite *siteMeta
	curDef  *defMeta
	curElem *elementMeta
}

func (l *discoveryListener) EnterReport(part string) error {
	l.b.part = part
	return nil
}

func (l *discoveryListener) EnterGrid(rows, cols int) error {
	l.b.rows, l.b.cols = rows, cols
	return nil
}

func (l *discoveryListener) EnterTile(r report.TileRecord) error {
	b := l.b
	if r.Row >= b.rows || r.Col >= b.cols {
		return formatErrf("tile", "tile %s at (%d,%d) outside %dx%d grid",
			r.Name, r.Row, r.Col, b.rows, b.cols)
	}
	if _, dup := b.tileIndex[r.Name]; dup {
		return formatErrf("tile", "duplicate tile name %s", r.Name)
	}
	cell := [2]int{r.Row, r.Col}
	if prev, dup := b.byCell[cell]; dup {
		return formatErrf("tile", "tiles %s and %s share cell (%d,%d)",
			prev, r.Name, r.Row, r.Col)
	}
	tm := &tileMeta{row: r.Row, col: r.Col, name: r.Name, typ: r.Type}
	b.tileIndex[r.Name] = len(b.tiles)
	b.byCell[cell] = r.Name
	b.tiles = append(b.tiles, tm)
	l.curTile = tm
	return nil
}

func (l *discoveryListener) ExitTile() error {
	l.curTile = nil
	return nil
}

func (l *discoveryListener) OnWire(name string) error {
	l.b.wireNames[name] = struct{}{}
	l.curTile.wires = append(l.curTile.wires, name)
	return nil
}

func (l *discoveryListener) EnterSite(r report.SiteRecord) error {
	if _, dup := l.b.siteNames[r.Name]; dup {
		return formatErrf("site", "duplicate site name %s", r.Name)
	}
	l.b.siteNames[r.Name] = struct{}{}
	sm := &siteMeta{name: r.Name, typ: r.Type, alternates: r.Alternates}
	l.curTile.sites = append(l.curTile.sites, sm)
	l.curSite = sm
	return nil
}

func (l *discoveryListener) ExitSite() error {
	l.curSite = nil
	return nil
}

func (l *discoveryListener) OnPinWire(r report.PinWireRecord) error {
	l.curSite.pinWires = append(l.curSite.pinWires, r)
	return nil
}

func (l *discoveryListener) EnterPrimitiveDef(siteType string) error {
	if _, dup := l.b.defs[siteType]; dup {
		return formatErrf("primitive_def", "duplicate primitive definition for site type %s", siteType)
	}
	d := &defMeta{typ: siteType}
	l.b.defs[siteType] = d
	l.curDef = d
	return nil
}

func (l *discoveryListener) ExitPrimitiveDef() error {
	l.curDef = nil
	return nil
}

func (l *discoveryListener) OnSitePin(r report.SitePinRecord) error {
	l.b.wireNames[r.SiteWire] = struct{}{}
	l.curDef.pins = append(l.curDef.pins, r)
	return nil
}

func (l *discoveryListener) EnterElement(r report.ElementRecord) error {
	e := &elementMeta{name: r.Name, typ: r.Type}
	l.curDef.elements = append(l.curDef.elements, e)
	l.curElem = e
	return nil
}

func (l *discoveryListener) ExitElement() error {
	l.curElem = nil
	return nil
}

func (l *discoveryListener) OnElementPin(r report.ElementPinRecord) error {
	l.b.wireNames[r.SiteWire] = struct{}{}
	l.curElem.pins = append(l.curElem.pins, r)
	return nil
}

func (l *discoveryListener) OnElementConn(r report.ElementConnRecord) error {
	l.curElem.conns = append(l.curElem.conns, r)
	return nil
}

func (l *discoveryListener) OnSwitch(r report.SwitchRecord) error {
	if l.curDef != nil {
		l.curDef.switches = append(l.curDef.switches, r)
	}
	// Tile-scope switches only classify wires here; pass 2 captures them.
	return nil
}

func (l *discoveryListener) OnRoutethrough(r report.RoutethroughRecord) error {
	l.curDef.routethroughs = append(l.curDef.routethroughs, r)
	return nil
}

func (l *discoveryListener) ExitReport(s report.Summary) error {
	l.b.summaryWires = s.Wires
	return nil
}

// finishDiscovery turns the pass-1 metadata into the device skeleton:
// numbered templates, typed tiles and sites with empty adjacency, and the
// per-type site templates with their intra-site wiring.
func (b *builder) finishDiscovery(pools *poolSet) (*Device, error) {
	if b.rows == 0 || b.cols == 0 {
		return nil, formatErrf("grid", "report declares no grid")
	}
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			if _, ok := b.byCell[[2]int{r, c}]; !ok {
				return nil, formatErrf("grid", "grid cell (%d,%d) has no tile", r, c)
			}
		}
	}

	names := make([]string, 0, len(b.wireNames))
	for n := range b.wireNames {
		names = append(names, n)
	}
	table := wire.NewTable(names)

	dev := &Device{
		part:       b.part,
		rows:       b.rows,
		cols:       b.cols,
		tiles:      make([]Tile, b.rows*b.cols),
		tileByName: make(map[string]*Tile, len(b.tiles)),
		siteByName: make(map[string]*Site),
		templates:  table,
	}

	// Deterministic dense numbering for the type name tables.
	tileTypeIndex := make(map[string]TileType)
	{
		seen := make(map[string]struct{})
		for _, tm := range b.tiles {
			seen[tm.typ] = struct{}{}
		}
		typeNames := make([]string, 0, len(seen))
		for n := range seen {
			typeNames = append(typeNames, n)
		}
		sort.Strings(typeNames)
		dev.tileTypes = typeNames
		for i, n := range typeNames {
			tileTypeIndex[n] = TileType(i)
		}
	}
	siteTypeIndex := make(map[string]SiteType)
	{
		typeNames := make([]string, 0, len(b.defs))
		for n := range b.defs {
			typeNames = append(typeNames, n)
		}
		sort.Strings(typeNames)
		dev.siteTypes = typeNames
		for i, n := range typeNames {
			siteTypeIndex[n] = SiteType(i)
		}
	}

	if err := b.buildSiteTemplates(dev, table, siteTypeIndex, pools); err != nil {
		return nil, err
	}

	for _, tm := range b.tiles {
		t := dev.Tile(tm.row, tm.col)
		t.dev = dev
		t.row, t.col = tm.row, tm.col
		t.name = tm.name
		t.typ = tileTypeIndex[tm.typ]
		t.forward = wire.NewMap()
		t.reverse = wire.NewMap()
		dev.tileByName[tm.name] = t

		tmpls := make([]*wire.Template, 0, len(tm.wires))
		for _, n := range tm.wires {
			tmpl, _ := table.ByName(n)
			tmpls = append(tmpls, tmpl)
		}
		t.legal = pools.tmplSets.Add(wire.NewTemplateSet(tmpls))

		for i, sm := range tm.sites {
			site, err := b.buildSite(dev, t, i, sm, table, siteTypeIndex, pools)
			if err != nil {
				return nil, err
			}
			t.sites = append(t.sites, site)
			dev.siteByName[site.name] = site
		}
	}
	return dev, nil
}

func (b *builder) buildSite(dev *Device, t *Tile, index int, sm *siteMeta,
	table *wire.Table, siteTypeIndex map[string]SiteType, pools *poolSet) (*Site, error) {

	active, ok := siteTypeIndex[sm.typ]
	if !ok {
		return nil, formatErrf("site", "site %s has type %s with no primitive definition", sm.name, sm.typ)
	}
	possible := []SiteType{active}
	for _, alt := range sm.alternates {
		st, ok := siteTypeIndex[alt]
		if !ok {
			return nil, formatErrf("site", "site %s lists alternate type %s with no primitive definition", sm.name, alt)
		}
		possible = append(possible, st)
	}

	bindings := make([]pinBinding, 0, len(sm.pinWires))
	for _, pw := range sm.pinWires {
		tmpl, ok := table.ByName(pw.TileWire)
		if !ok || !b.tileDeclaresWire(t.name, pw.TileWire) {
			return nil, formatErrf("pinwire",
				"site %s pin %s references wire %s not declared in tile %s",
				sm.name, pw.Pin, pw.TileWire, t.name)
		}
		known := false
		for _, st := range possible {
			if _, ok := dev.siteTemplates[st].pinIndex[pw.Pin]; ok {
				known = true
				break
			}
		}
		if !known {
			return nil, formatErrf("pinwire",
				"site %s binds pin %s that no possible type of %s declares",
				sm.name, pw.Pin, sm.typ)
		}
		bindings = append(bindings, pinBinding{name: pw.Pin, dir: pw.Direction, tile: tmpl})
	}

	return &Site{
		tile:     t,
		index:    index,
		name:     sm.name,
		possible: possible,
		active:   active,
		pins:     pools.bindings.Add(newPinBindingTable(bindings)),
	}, nil
}

// tileDeclaresWire checks a wire name against the pass-1 declaration list
// of a tile; the pooled legal set is not built yet when sites are.
func (b *builder) tileDeclaresWire(tile, name string) bool {
	tm := b.tiles[b.tileIndex[tile]]
	for _, w := range tm.wires {
		if w == name {
			return true
		}
	}
	return false
}

func (b *builder) buildSiteTemplates(dev *Device, table *wire.Table,
	siteTypeIndex map[string]SiteType, pools *poolSet) error {

	dev.siteTemplates = make([]*SiteTemplate, len(dev.siteTypes))
	for _, typeName := range dev.siteTypes {
		def := b.defs[typeName]
		st := &SiteTemplate{
			typ:           siteTypeIndex[typeName],
			name:          typeName,
			pinIndex:      make(map[string]int),
			belIndex:      make(map[string]int),
			forward:       wire.NewMap(),
			routethroughs: make(map[routethroughEdge]string),
		}

		var wires []*wire.Template
		for _, p := range def.pins {
			tmpl, _ := table.ByName(p.SiteWire)
			if _, dup := st.pinIndex[p.Name]; dup {
				return formatErrf("pin", "site type %s declares pin %s twice", typeName, p.Name)
			}
			st.pinIndex[p.Name] = len(st.pins)
			st.pins = append(st.pins, SitePinTemplate{Name: p.Name, Direction: p.Direction, Wire: tmpl})
			wires = append(wires, tmpl)
		}
		for _, em := range def.elements {
			if _, dup := st.belIndex[em.name]; dup {
				return formatErrf("element", "site type %s declares element %s twice", typeName, em.name)
			}
			bel := BelTemplate{Name: em.name, Type: em.typ}
			for _, p := range em.pins {
				tmpl, _ := table.ByName(p.SiteWire)
				bel.Pins = append(bel.Pins, BelPinTemplate{Name: p.Name, Direction: p.Direction, Wire: tmpl})
				wires = append(wires, tmpl)
			}
			st.belIndex[em.name] = len(st.bels)
			st.bels = append(st.bels, bel)

			for _, c := range em.conns {
				src, okSrc := table.ByName(c.Source)
				sink, okSink := table.ByName(c.Sink)
				if !okSrc || !okSink {
					return formatErrf("element conn",
						"element %s of site type %s connects undeclared site wire %s -> %s",
						em.name, typeName, c.Source, c.Sink)
				}
				addEdge(st.forward, src, wire.NewConnection(sink, 0, 0, false))
			}
		}
		for _, sw := range def.switches {
			src, okSrc := table.ByName(sw.Source)
			sink, okSink := table.ByName(sw.Sink)
			if !okSrc || !okSink {
				return formatErrf("switch",
					"site type %s switches undeclared site wire %s -> %s",
					typeName, sw.Source, sw.Sink)
			}
			addEdge(st.forward, src, wire.NewConnection(sink, 0, 0, true))
		}

		st.wires = pools.tmplSets.Add(wire.NewTemplateSet(wires))
		st.forward = poolMap(st.forward, pools)
		dev.siteTemplates[st.typ] = st
	}
	return nil
}

// finalizeRoutethroughs validates the routethrough declarations against the
// built element pin sets and records them per site template.
func (b *builder) finalizeRoutethroughs(dev *Device) error {
	for _, st := range dev.siteTemplates {
		def := b.defs[st.name]
		for _, rt := range def.routethroughs {
			bi, ok := st.belIndex[rt.Element]
			if !ok {
				return formatErrf("routethrough",
					"routethrough %s %s->%s in site type %s names unknown element",
					rt.Element, rt.InPin, rt.OutPin, st.name)
			}
			bel := &st.bels[bi]
			in := bel.pinWire(rt.InPin)
			out := bel.pinWire(rt.OutPin)
			if in == nil || out == nil {
				return formatErrf("routethrough",
					"routethrough %s %s->%s in site type %s references an undeclared pin wire",
					rt.Element, rt.InPin, rt.OutPin, st.name)
			}
			st.routethroughs[routethroughEdge{in: in.Ordinal(), out: out.Ordinal()}] = rt.Element
		}
	}
	return nil
}

func (bt *BelTemplate) pinWire(pin string) *wire.Template {
	for i := range bt.Pins {
		if bt.Pins[i].Name == pin {
			return bt.Pins[i].Wire
		}
	}
	return nil
}

// captureListener is the phase-2 event sink: it streams edges straight into
// the per-tile maps. Site and primitive records were fully consumed in pass
// 1 and are skipped here.
type captureListener struct {
	report.NopListener
	b   *builder
	dev *Device

	curTile *Tile
	edges   int
}

func (l *captureListener) EnterTile(r report.TileRecord) error {
	l.curTile = l.dev.Tile(r.Row, r.Col)
	return nil
}

func (l *captureListener) ExitTile() error {
	l.curTile = nil
	return nil
}

func (l *captureListener) OnConn(r report.ConnRecord) error {
	t := l.curTile
	src, ok := l.dev.templates.ByName(r.Source)
	if !ok || !t.legal.Contains(src) {
		return formatErrf("conn", "tile %s connects undeclared wire %s", t.name, r.Source)
	}
	sinkTile := t
	if r.SinkTile != "" {
		sinkTile, ok = l.dev.tileByName[r.SinkTile]
		if !ok {
			return formatErrf("conn", "tile %s connects to unknown tile %s", t.name, r.SinkTile)
		}
	}
	sink, ok := l.dev.templates.ByName(r.SinkWire)
	if !ok || !sinkTile.legal.Contains(sink) {
		return formatErrf("conn", "tile %s connects to wire %s not declared in tile %s",
			t.name, r.SinkWire, sinkTile.name)
	}
	dr, dc := sinkTile.row-t.row, sinkTile.col-t.col
	addEdge(t.forward, src, wire.NewConnection(sink, dr, dc, false))
	addEdge(sinkTile.reverse, sink, wire.NewConnection(src, -dr, -dc, false))
	l.edges++
	return nil
}

func (l *captureListener) OnSwitch(r report.SwitchRecord) error {
	t := l.curTile
	if t == nil {
		// Primitive-definition switches were captured in pass 1.
		return nil
	}
	src, ok := l.dev.templates.ByName(r.Source)
	if !ok || !t.legal.Contains(src) {
		return formatErrf("switch", "tile %s switches undeclared wire %s", t.name, r.Source)
	}
	sink, ok := l.dev.templates.ByName(r.Sink)
	if !ok || !t.legal.Contains(sink) {
		return formatErrf("switch", "tile %s switches undeclared wire %s", t.name, r.Sink)
	}
	addEdge(t.forward, src, wire.NewConnection(sink, 0, 0, true))
	addEdge(t.reverse, sink, wire.NewConnection(src, 0, 0, true))
	l.edges++
	return nil
}

func (l *captureListener) ExitReport(s report.Summary) error {
	if s.Wires >= 0 && s.Wires != l.dev.templates.Len() {
		return formatErrf("summary",
			"summary declares %d wires but the report names %d", s.Wires, l.dev.templates.Len())
	}
	return nil
}

func addEdge(m *wire.Map, src *wire.Template, c wire.Connection) {
	set := m.Get(src)
	if set == nil {
		set = wire.NewSet()
		m.Put(src, set)
	}
	set.Add(c)
}

// classification marks, per template ordinal, the wires of interest in each
// direction: configurable-switch endpoints in both, site-pin sinks forward,
// site-pin sources in reverse.
type classification struct {
	fwd []bool
	rev []bool
}

// classifyDevice derives the classification from a device whose raw maps
// and site bindings are in place. It is shared by generation and
// deserialization, so the persisted form never has to carry it.
func classifyDevice(d *Device) classification {
	cls := classification{
		fwd: make([]bool, d.templates.Len()),
		rev: make([]bool, d.templates.Len()),
	}
	for i := range d.tiles {
		t := &d.tiles[i]
		for _, src := range t.forward.Keys() {
			set := t.forward.Get(src)
			for j := 0; j < set.Len(); j++ {
				c := set.At(j)
				if c.IsConfigurable() {
					cls.fwd[src.Ordinal()] = true
					cls.rev[src.Ordinal()] = true
					cls.fwd[c.Sink().Ordinal()] = true
					cls.rev[c.Sink().Ordinal()] = true
				}
			}
		}
		for _, s := range t.sites {
			for _, pb := range s.pins.all() {
				switch pb.dir {
				case report.DirInput:
					cls.fwd[pb.tile.Ordinal()] = true
				case report.DirOutput:
					cls.rev[pb.tile.Ordinal()] = true
				default:
					cls.fwd[pb.tile.Ordinal()] = true
					cls.rev[pb.tile.Ordinal()] = true
				}
			}
		}
	}
	return cls
}

func (c classification) forwardInterest(t *wire.Template) bool { return c.fwd[t.Ordinal()] }
func (c classification) reverseInterest(t *wire.Template) bool { return c.rev[t.Ordinal()] }
