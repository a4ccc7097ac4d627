package fabric

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/report"
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// pinBinding ties one external pin name of a site instance to the tile wire
// it surfaces on.
type pinBinding struct {
	name string
	dir  report.Direction
	tile *wire.Template
}

// pinBindingTable is the per-instance pin-to-tile-wire map, name-sorted for
// binary search and shared across identically bound sites through pooling.
type pinBindingTable struct {
	bindings []pinBinding
}

func newPinBindingTable(bindings []pinBinding) *pinBindingTable {
	if len(bindings) == 0 {
		return nil
	}
	sorted := make([]pinBinding, len(bindings))
	copy(sorted, bindings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })
	return &pinBindingTable{bindings: sorted}
}

func (pt *pinBindingTable) lookup(name string) (pinBinding, bool) {
	if pt == nil {
		return pinBinding{}, false
	}
	i := sort.Search(len(pt.bindings), func(i int) bool { return pt.bindings[i].name >= name })
	if i < len(pt.bindings) && pt.bindings[i].name == name {
		return pt.bindings[i], true
	}
	return pinBinding{}, false
}

func (pt *pinBindingTable) equal(o *pinBindingTable) bool {
	a, b := pt.all(), o.all()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (pt *pinBindingTable) all() []pinBinding {
	if pt == nil {
		return nil
	}
	return pt.bindings
}

func (pt *pinBindingTable) hash() uint64 {
	h := uint64(1469598103934665603)
	for _, b := range pt.all() {
		for i := 0; i < len(b.name); i++ {
			h = (h ^ uint64(b.name[i])) * 1099511628211
		}
		h = (h ^ uint64(b.dir)) * 1099511628211
		h = (h ^ uint64(uint32(b.tile.Ordinal()))) * 1099511628211
	}
	return h
}

// Site is a reconfigurable sub-location within a tile. Its identity (name,
// position, pin bindings) is fixed; the active type is the one mutable knob
// and selects which site template - and therefore which BELs, wires and pins
// - is visible. Changing the active type is a single-writer operation; the
// device does not synchronize it.
type Site struct {
	tile     *Tile
	index    int
	name     string
	possible []SiteType
	active   SiteType
	pins     *pinBindingTable
}

// Tile returns the owning tile.
func (s *Site) Tile() *Tile { return s.tile }

// Index returns the site's position within its tile.
func (s *Site) Index() int { return s.index }

// Name returns the unique site name.
func (s *Site) Name() string { return s.name }

// Type returns the currently active site type.
func (s *Site) Type() SiteType { return s.active }

// TypeName returns the active type's name.
func (s *Site) TypeName() string { return s.tile.dev.siteTypes[s.active] }

// PossibleTypes returns every type the site can be reconfigured to, the
// default first. The slice is shared; callers must not modify it.
func (s *Site) PossibleTypes() []SiteType { return s.possible }

// SetType switches the active type. The type must be one of the site's
// possible types; otherwise the site is left unmodified and an assembly
// error is returned.
func (s *Site) SetType(st SiteType) error {
	for _, p := range s.possible {
		if p == st {
			s.active = st
			return nil
		}
	}
	name := fmt.Sprintf("SiteType(%d)", st)
	if int(st) >= 0 && int(st) < len(s.tile.dev.siteTypes) {
		name = s.tile.dev.siteTypes[st]
	}
	return assemblyErrf("set site type",
		"site %s cannot take type %s", s.name, name)
}

// Template returns the site template of the active type.
func (s *Site) Template() *SiteTemplate {
	return s.tile.dev.siteTemplates[s.active]
}

// Pins returns the external pins of the active type.
func (s *Site) Pins() []SitePin {
	st := s.Template()
	pins := make([]SitePin, len(st.pins))
	for i := range st.pins {
		pins[i] = SitePin{site: s, typ: s.active, pin: i}
	}
	return pins
}

// Pin resolves a pin name against the active type. Unknown names return an
// assembly error so callers can distinguish a typo from an inactive type.
func (s *Site) Pin(name string) (SitePin, error) {
	st := s.Template()
	i, ok := st.pinIndex[name]
	if !ok {
		return SitePin{}, assemblyErrf("site pin lookup",
			"site %s type %s has no pin %q", s.name, s.TypeName(), name)
	}
	return SitePin{site: s, typ: s.active, pin: i}, nil
}

// Bels returns the BELs of the active type.
func (s *Site) Bels() []Bel {
	st := s.Template()
	bels := make([]Bel, len(st.bels))
	for i := range st.bels {
		bels[i] = Bel{site: s, typ: s.active, bel: i}
	}
	return bels
}

// Bel resolves a BEL name against the active type.
func (s *Site) Bel(name string) (Bel, error) {
	st := s.Template()
	i, ok := st.belIndex[name]
	if !ok {
		return Bel{}, assemblyErrf("bel lookup",
			"site %s type %s has no bel %q", s.name, s.TypeName(), name)
	}
	return Bel{site: s, typ: s.active, bel: i}, nil
}

// Wires returns every site-interior wire of the active type.
func (s *Site) Wires() []Wire {
	st := s.Template()
	out := make([]Wire, st.wires.Len())
	for i := 0; i < st.wires.Len(); i++ {
		out[i] = SiteWire(s, st.wires.At(i))
	}
	return out
}

// Wire resolves a site wire name against the active type.
func (s *Site) Wire(name string) (Wire, bool) {
	tmpl, ok := s.tile.dev.templates.ByName(name)
	if !ok || !s.Template().wires.Contains(tmpl) {
		return Wire{}, false
	}
	return SiteWire(s, tmpl), true
}

func (s *Site) pinBinding(name string) (pinBinding, bool) {
	return s.pins.lookup(name)
}

func (s *Site) String() string { return s.name }
