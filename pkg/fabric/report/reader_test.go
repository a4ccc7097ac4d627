package report

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// recorder flattens the event stream into strings so tests can assert order
// and payloads in one comparison.
type recorder struct {
	NopListener
	events []string
}

func (r *recorder) log(format string, args ...any) error {
	r.events = append(r.events, fmt.Sprintf(format, args...))
	return nil
}

func (r *recorder) EnterReport(part string) error { return r.log("report %s", part) }
func (r *recorder) ExitReport(s Summary) error    { return r.log("end-report wires=%d", s.Wires) }
func (r *recorder) EnterPrimitiveDefs(n int) error {
	return r.log("primdefs %d", n)
}
func (r *recorder) ExitPrimitiveDefs() error { return r.log("end-primdefs") }
func (r *recorder) EnterPrimitiveDef(t string) error {
	return r.log("primdef %s", t)
}
func (r *recorder) ExitPrimitiveDef() error { return r.log("end-primdef") }
func (r *recorder) OnSitePin(p SitePinRecord) error {
	return r.log("sitepin %s %s %s", p.Name, p.Direction, p.SiteWire)
}
func (r *recorder) EnterElement(e ElementRecord) error {
	return r.log("element %s %s", e.Name, e.Type)
}
func (r *recorder) ExitElement() error { return r.log("end-element") }
func (r *recorder) OnElementPin(p ElementPinRecord) error {
	return r.log("elpin %s %s %s", p.Name, p.Direction, p.SiteWire)
}
func (r *recorder) OnElementConn(c ElementConnRecord) error {
	return r.log("elconn %s %s", c.Source, c.Sink)
}
func (r *recorder) OnRoutethrough(rt RoutethroughRecord) error {
	return r.log("routethrough %s %s %s", rt.Element, rt.InPin, rt.OutPin)
}
func (r *recorder) EnterGrid(rows, cols int) error { return r.log("grid %dx%d", rows, cols) }
func (r *recorder) ExitGrid() error                { return r.log("end-grid") }
func (r *recorder) EnterTile(t TileRecord) error {
	return r.log("tile %d,%d %s %s", t.Row, t.Col, t.Name, t.Type)
}
func (r *recorder) ExitTile() error         { return r.log("end-tile") }
func (r *recorder) OnWire(name string) error { return r.log("wire %s", name) }
func (r *recorder) OnConn(c ConnRecord) error {
	return r.log("conn %s -> %s/%s", c.Source, c.SinkTile, c.SinkWire)
}
func (r *recorder) OnSwitch(s SwitchRecord) error {
	return r.log("switch %s -> %s", s.Source, s.Sink)
}
func (r *recorder) EnterSite(s SiteRecord) error {
	return r.log("site %s %s alt=%s", s.Name, s.Type, strings.Join(s.Alternates, ","))
}
func (r *recorder) ExitSite() error { return r.log("end-site") }
func (r *recorder) OnPinWire(p PinWireRecord) error {
	return r.log("pinwire %s %s %s", p.Pin, p.Direction, p.TileWire)
}

const sampleReport = `
; minimal two-tile device
(fabric_report (part TESTPART)
  (primitive_defs 1
    (primitive_def SLICE
      (pin AX input AXW)
      (pin AQ output AQW)
      (element A6LUT lut
        (pin A1 input A1W)
        (pin O6 output O6W)
        (conn A1W O6W)
      )
      (switch AXW A1W)
      (routethrough A6LUT A1 O6)
    )
  )
  (grid (rows 1) (cols 2)
    (tile (row 0) (col 0) (name INT_X0Y0) (type INT)
      (wire E_BEG)
      (switch IMUX E_BEG)
      (conn E_BEG (tile INT_X1Y0 E_END))
    )
    (tile (row 0) (col 1) (name INT_X1Y0) (type INT)
      (wire E_END)
      (conn E_END LOCAL)
      (site (name SLICE_X0Y0) (type SLICE) (alternates SLICEM SLICEX)
        (pinwire AX input LOCAL)
      )
    )
  )
  (summary (wires 4))
)
`

func TestReadFiresEventsInOrder(t *testing.T) {
	rec := &recorder{}
	if err := Bytes(sampleReport).Stream(rec); err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	want := []string{
		"report TESTPART",
		"primdefs 1",
		"primdef SLICE",
		"sitepin AX input AXW",
		"sitepin AQ output AQW",
		"element A6LUT lut",
		"elpin A1 input A1W",
		"elpin O6 output O6W",
		"elconn A1W O6W",
		"end-element",
		"switch AXW -> A1W",
		"routethrough A6LUT A1 O6",
		"end-primdef",
		"end-primdefs",
		"grid 1x2",
		"tile 0,0 INT_X0Y0 INT",
		"wire E_BEG",
		"switch IMUX -> E_BEG",
		"conn E_BEG -> INT_X1Y0/E_END",
		"end-tile",
		"tile 0,1 INT_X1Y0 INT",
		"wire E_END",
		"conn E_END -> /LOCAL",
		"site SLICE_X0Y0 SLICE alt=SLICEM,SLICEX",
		"pinwire AX input LOCAL",
		"end-site",
		"end-tile",
		"end-grid",
		"end-report wires=4",
	}
	if len(rec.events) != len(want) {
		t.Fatalf("got %d events, want %d:\n%s", len(rec.events), len(want), strings.Join(rec.events, "\n"))
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("event %d = %q, want %q", i, rec.events[i], want[i])
		}
	}
}

func TestReadIsRestartable(t *testing.T) {
	src := Bytes(sampleReport)
	for pass := 0; pass < 2; pass++ {
		rec := &recorder{}
		if err := src.Stream(rec); err != nil {
			t.Fatalf("pass %d failed: %v", pass, err)
		}
		if len(rec.events) == 0 {
			t.Fatalf("pass %d produced no events", pass)
		}
	}
}

func TestReadMalformedInput(t *testing.T) {
	cases := []struct {
		name      string
		input     string
		construct string
	}{
		{
			name:      "missing tile position",
			input:     `(fabric_report (part P) (grid (rows 1) (cols 1) (tile (name T) (type X) (row 0) (row 1))))`,
			construct: "tile",
		},
		{
			name:      "non-integer rows",
			input:     `(fabric_report (part P) (grid (rows many) (cols 1)))`,
			construct: "grid",
		},
		{
			name:      "bad direction",
			input:     `(fabric_report (part P) (grid (rows 1) (cols 1) (tile (row 0) (col 0) (name T) (type X) (site (name S) (type SL) (pinwire A sideways W)))))`,
			construct: "pinwire",
		},
		{
			name:      "truncated report",
			input:     `(fabric_report (part P) (grid (rows 1) (cols 1)`,
			construct: "grid",
		},
		{
			name:      "missing grid",
			input:     `(fabric_report (part P) (summary (wires 0)))`,
			construct: "fabric_report",
		},
		{
			name:      "unknown record",
			input:     `(fabric_report (part P) (routing))`,
			construct: "fabric_report",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Bytes(tc.input).Stream(&recorder{})
			if err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FormatError, got %T: %v", err, err)
			}
			if fe.Construct != tc.construct {
				t.Fatalf("error names construct %q, want %q (err: %v)", fe.Construct, tc.construct, err)
			}
		})
	}
}

func TestListenerErrorAbortsStream(t *testing.T) {
	boom := errors.New("listener gave up")
	l := &failAfterTiles{limit: 1, err: boom}
	err := Bytes(sampleReport).Stream(l)
	if err == nil {
		t.Fatal("expected listener error to propagate")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("error %v does not wrap the listener's error", err)
	}
	if l.tiles != 2 {
		t.Fatalf("stream continued past the failing callback: %d tiles", l.tiles)
	}
}

type failAfterTiles struct {
	NopListener
	limit int
	tiles int
	err   error
}

func (f *failAfterTiles) EnterTile(TileRecord) error {
	f.tiles++
	if f.tiles > f.limit {
		return f.err
	}
	return nil
}
