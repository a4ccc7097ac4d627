package report

import "fmt"

// FormatError is the distinguished parse-time failure: the report (or an
// auxiliary document) is structurally malformed. It names the offending
// construct so a multi-gigabyte input can be debugged without a hex editor.
type FormatError struct {
	Construct string // record or field the failure was detected in
	Line      int    // 1-based source line, 0 when unknown
	Detail    string
	Err       error // underlying cause, may be nil
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("report: malformed %s", e.Construct)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// Direction of a site or element pin as seen from outside the owning
// construct: an input pin sinks a signal, an output pin sources one.
type Direction int

const (
	DirInput Direction = iota
	DirOutput
	DirInout
)

func (d Direction) String() string {
	switch d {
	case DirInput:
		return "input"
	case DirOutput:
		return "output"
	case DirInout:
		return "inout"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection maps the textual direction field.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "input":
		return DirInput, true
	case "output":
		return DirOutput, true
	case "inout":
		return DirInout, true
	default:
		return 0, false
	}
}

// TileRecord opens a tile: its grid position, unique name and type name.
type TileRecord struct {
	Row  int
	Col  int
	Name string
	Type string
}

// ConnRecord declares a fixed (non-configurable) edge from a wire of the
// current tile to a wire of the named sink tile. An empty SinkTile means the
// current tile.
type ConnRecord struct {
	Source   string
	SinkTile string
	SinkWire string
}

// SwitchRecord declares a configurable edge between two wires of the current
// scope: two tile wires inside a tile, two site wires inside a primitive
// definition.
type SwitchRecord struct {
	Source string
	Sink   string
}

// SiteRecord opens a site instance inside a tile. Type is the default active
// type; Alternates lists the other types the site may be reconfigured to.
type SiteRecord struct {
	Name       string
	Type       string
	Alternates []string
}

// PinWireRecord binds an external pin of the enclosing site instance to a
// wire of the enclosing tile.
type PinWireRecord struct {
	Pin       string
	Direction Direction
	TileWire  string
}

// SitePinRecord declares an external pin on the primitive definition being
// read, bound to the site wire it enters or leaves on.
type SitePinRecord struct {
	Name      string
	Direction Direction
	SiteWire  string
}

// ElementRecord opens a primitive element (BEL) inside a primitive
// definition.
type ElementRecord struct {
	Name string
	Type string
}

// ElementPinRecord declares a pin on the current element.
type ElementPinRecord struct {
	Name      string
	Direction Direction
	SiteWire  string
}

// ElementConnRecord declares a fixed intra-site edge between two site wires,
// contributed by the current element.
type ElementConnRecord struct {
	Source string
	Sink   string
}

// RoutethroughRecord declares that an element of the enclosing primitive
// definition can be configured to pass a signal straight from one of its
// pins to another, making the BEL act as plain wire.
type RoutethroughRecord struct {
	Element string
	InPin   string
	OutPin  string
}

// Summary closes a report. Wires, when non-negative, is the writer's count
// of distinct wire names and lets the consumer cross-check its numbering.
type Summary struct {
	Wires int
}

// Listener receives the record stream. Container records arrive as properly
// nested Enter/Exit pairs; leaves arrive as On calls between their
// container's pair. Returning a non-nil error aborts the stream.
type Listener interface {
	EnterReport(part string) error
	ExitReport(s Summary) error

	EnterPrimitiveDefs(count int) error
	ExitPrimitiveDefs() error
	EnterPrimitiveDef(siteType string) error
	ExitPrimitiveDef() error
	OnSitePin(r SitePinRecord) error
	EnterElement(r ElementRecord) error
	ExitElement() error
	OnElementPin(r ElementPinRecord) error
	OnElementConn(r ElementConnRecord) error
	OnRoutethrough(r RoutethroughRecord) error

	EnterGrid(rows, cols int) error
	ExitGrid() error
	EnterTile(r TileRecord) error
	ExitTile() error
	OnWire(name string) error
	OnConn(r ConnRecord) error
	OnSwitch(r SwitchRecord) error
	EnterSite(r SiteRecord) error
	ExitSite() error
	OnPinWire(r PinWireRecord) error
}

// NopListener implements Listener with no-ops, for embedding by consumers
// that care about a subset of the stream.
type NopListener struct{}

func (NopListener) EnterReport(string) error              { return nil }
func (NopListener) ExitReport(Summary) error              { return nil }
func (NopListener) EnterPrimitiveDefs(int) error          { return nil }
func (NopListener) ExitPrimitiveDefs() error              { return nil }
func (NopListener) EnterPrimitiveDef(string) error        { return nil }
func (NopListener) ExitPrimitiveDef() error               { return nil }
func (NopListener) OnSitePin(SitePinRecord) error         { return nil }
func (NopListener) EnterElement(ElementRecord) error      { return nil }
func (NopListener) ExitElement() error                    { return nil }
func (NopListener) OnElementPin(ElementPinRecord) error   { return nil }
func (NopListener) OnElementConn(ElementConnRecord) error { return nil }
func (NopListener) OnRoutethrough(RoutethroughRecord) error {
	return nil
}
func (NopListener) EnterGrid(int, int) error      { return nil }
func (NopListener) ExitGrid() error               { return nil }
func (NopListener) EnterTile(TileRecord) error    { return nil }
func (NopListener) ExitTile() error               { return nil }
func (NopListener) OnWire(string) error           { return nil }
func (NopListener) OnConn(ConnRecord) error       { return nil }
func (NopListener) OnSwitch(SwitchRecord) error   { return nil }
func (NopListener) EnterSite(SiteRecord) error    { return nil }
func (NopListener) ExitSite() error               { return nil }
func (NopListener) OnPinWire(PinWireRecord) error { return nil }
