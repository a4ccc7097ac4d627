package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Read streams one report from r into the listener. It returns the first
// error from the listener or a *FormatError describing malformed input; in
// either case the stream stops immediately.
func Read(r io.Reader, l Listener) error {
	p := &parser{lex: newLexer(r), listener: l}
	return p.report()
}

type parser struct {
	lex      *lexer
	listener Listener
	peeked   *token
}

func (p *parser) next() (token, error) {
	if p.peeked != nil {
		t := *p.peeked
		p.peeked = nil
		return t, nil
	}
	return p.lex.next()
}

func (p *parser) peek() (token, error) {
	if p.peeked == nil {
		t, err := p.lex.next()
		if err != nil {
			return token{}, err
		}
		p.peeked = &t
	}
	return *p.peeked, nil
}

func (p *parser) fail(construct string, line int, detail string, args ...any) error {
	return &FormatError{
		Construct: construct,
		Line:      line,
		Detail:    fmt.Sprintf(detail, args...),
	}
}

// emit forwards a listener result, tagging non-format errors with the record
// they surfaced in.
func (p *parser) emit(construct string, line int, err error) error {
	if err == nil {
		return nil
	}
	var fe *FormatError
	if errors.As(err, &fe) {
		return err
	}
	return &FormatError{Construct: construct, Line: line, Err: err}
}

func (p *parser) expectLeft(construct string) (int, error) {
	t, err := p.next()
	if err != nil {
		return 0, err
	}
	if t.typ != tokenLeftParen {
		return 0, p.fail(construct, t.line, "expected '(', got %q", t.value)
	}
	return t.line, nil
}

func (p *parser) expectRight(construct string) error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if t.typ != tokenRightParen {
		return p.fail(construct, t.line, "expected ')', got %q", t.value)
	}
	return nil
}

func (p *parser) expectAtom(construct, field string) (string, int, error) {
	t, err := p.next()
	if err != nil {
		return "", 0, err
	}
	if t.typ != tokenAtom {
		return "", 0, p.fail(construct, t.line, "missing %s field", field)
	}
	return t.value, t.line, nil
}

func (p *parser) expectInt(construct, field string) (int, int, error) {
	v, line, err := p.expectAtom(construct, field)
	if err != nil {
		return 0, 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, 0, p.fail(construct, line, "%s is not an integer: %q", field, v)
	}
	return n, line, nil
}

func (p *parser) expectDirection(construct string) (Direction, int, error) {
	v, line, err := p.expectAtom(construct, "direction")
	if err != nil {
		return 0, 0, err
	}
	d, ok := ParseDirection(v)
	if !ok {
		return 0, 0, p.fail(construct, line, "unknown direction %q", v)
	}
	return d, line, nil
}

// keyword consumes the head atom of a record that was just opened.
func (p *parser) keyword(construct string) (string, int, error) {
	t, err := p.next()
	if err != nil {
		return "", 0, err
	}
	if t.typ != tokenAtom {
		return "", 0, p.fail(construct, t.line, "expected record keyword, got %q", t.value)
	}
	return t.value, t.line, nil
}

// property reads a single "(key value)" pair and returns key, value.
func (p *parser) property(construct string) (string, string, int, error) {
	if _, err := p.expectLeft(construct); err != nil {
		return "", "", 0, err
	}
	key, line, err := p.keyword(construct)
	if err != nil {
		return "", "", 0, err
	}
	val, _, err := p.expectAtom(construct, key)
	if err != nil {
		return "", "", 0, err
	}
	if err := p.expectRight(construct); err != nil {
		return "", "", 0, err
	}
	return key, val, line, nil
}

func (p *parser) report() error {
	line, err := p.expectLeft("fabric_report")
	if err != nil {
		return err
	}
	kw, kwLine, err := p.keyword("fabric_report")
	if err != nil {
		return err
	}
	if kw != "fabric_report" {
		return p.fail("fabric_report", kwLine, "expected fabric_report, got %q", kw)
	}

	key, part, _, err := p.property("part")
	if err != nil {
		return err
	}
	if key != "part" {
		return p.fail("fabric_report", line, "first record must be part, got %q", key)
	}
	if err := p.emit("fabric_report", line, p.listener.EnterReport(part)); err != nil {
		return err
	}

	summary := Summary{Wires: -1}
	sawGrid := false
	for {
		t, err := p.peek()
		if err != nil {
			return err
		}
		if t.typ == tokenRightParen {
			break
		}
		if t.typ == tokenEOF {
			return p.fail("fabric_report", t.line, "unexpected end of report")
		}
		if _, err := p.expectLeft("fabric_report"); err != nil {
			return err
		}
		kw, kwLine, err := p.keyword("fabric_report")
		if err != nil {
			return err
		}
		switch kw {
		case "primitive_defs":
			if err := p.primitiveDefs(kwLine); err != nil {
				return err
			}
		case "grid":
			if err := p.grid(kwLine); err != nil {
				return err
			}
			sawGrid = true
		case "summary":
			s, err := p.summary()
			if err != nil {
				return err
			}
			summary = s
		default:
			return p.fail("fabric_report", kwLine, "unknown record %q", kw)
		}
	}
	if !sawGrid {
		return p.fail("fabric_report", line, "missing grid record")
	}
	if err := p.expectRight("fabric_report"); err != nil {
		return err
	}
	return p.emit("summary", line, p.listener.ExitReport(summary))
}

func (p *parser) summary() (Summary, error) {
	s := Summary{Wires: -1}
	for {
		t, err := p.peek()
		if err != nil {
			return s, err
		}
		if t.typ == tokenRightParen {
			break
		}
		key, val, valLine, err := p.property("summary")
		if err != nil {
			return s, err
		}
		switch key {
		case "wires":
			n, err := strconv.Atoi(val)
			if err != nil {
				return s, p.fail("summary", valLine, "wires is not an integer: %q", val)
			}
			s.Wires = n
		default:
			return s, p.fail("summary", valLine, "unknown field %q", key)
		}
	}
	return s, p.expectRight("summary")
}

func (p *parser) primitiveDefs(line int) error {
	// Optional leading count atom lets writers preallocate.
	count := 0
	if t, err := p.peek(); err != nil {
		return err
	} else if t.typ == tokenAtom {
		n, _, err := p.expectInt("primitive_defs", "count")
		if err != nil {
			return err
		}
		count = n
	}
	if err := p.emit("primitive_defs", line, p.listener.EnterPrimitiveDefs(count)); err != nil {
		return err
	}
	for {
		t, err := p.peek()
		if err != nil {
			return err
		}
		if t.typ == tokenRightParen {
			break
		}
		if _, err := p.expectLeft("primitive_defs"); err != nil {
			return err
		}
		kw, kwLine, err := p.keyword("primitive_defs")
		if err != nil {
			return err
		}
		if kw != "primitive_def" {
			return p.fail("primitive_defs", kwLine, "unknown record %q", kw)
		}
		if err := p.primitiveDef(kwLine); err != nil {
			return err
		}
	}
	if err := p.expectRight("primitive_defs"); err != nil {
		return err
	}
	return p.emit("primitive_defs", line, p.listener.ExitPrimitiveDefs())
}

func (p *parser) primitiveDef(line int) error {
	siteType, _, err := p.expectAtom("primitive_def", "site type")
	if err != nil {
		return err
	}
	if err := p.emit("primitive_def", line, p.listener.EnterPrimitiveDef(siteType)); err != nil {
		return err
	}
	for {
		t, err := p.peek()
		if err != nil {
			return err
		}
		if t.typ == tokenRightParen {
			break
		}
		if _, err := p.expectLeft("primitive_def"); err != nil {
			return err
		}
		kw, kwLine, err := p.keyword("primitive_def")
		if err != nil {
			return err
		}
		switch kw {
		case "pin":
			name, _, err := p.expectAtom("pin", "name")
			if err != nil {
				return err
			}
			dir, _, err := p.expectDirection("pin")
			if err != nil {
				return err
			}
			w, _, err := p.expectAtom("pin", "site wire")
			if err != nil {
				return err
			}
			if err := p.expectRight("pin"); err != nil {
				return err
			}
			err = p.listener.OnSitePin(SitePinRecord{Name: name, Direction: dir, SiteWire: w})
			if err := p.emit("pin", kwLine, err); err != nil {
				return err
			}
		case "element":
			if err := p.element(kwLine); err != nil {
				return err
			}
		case "switch":
			if err := p.switchRecord(kwLine); err != nil {
				return err
			}
		case "routethrough":
			elem, _, err := p.expectAtom("routethrough", "element")
			if err != nil {
				return err
			}
			in, _, err := p.expectAtom("routethrough", "input pin")
			if err != nil {
				return err
			}
			out, _, err := p.expectAtom("routethrough", "output pin")
			if err != nil {
				return err
			}
			if err := p.expectRight("routethrough"); err != nil {
				return err
			}
			err = p.listener.OnRoutethrough(RoutethroughRecord{Element: elem, InPin: in, OutPin: out})
			if err := p.emit("routethrough", kwLine, err); err != nil {
				return err
			}
		default:
			return p.fail("primitive_def", kwLine, "unknown record %q", kw)
		}
	}
	if err := p.expectRight("primitive_def"); err != nil {
		return err
	}
	return p.emit("primitive_def", line, p.listener.ExitPrimitiveDef())
}

func (p *parser) element(line int) error {
	name, _, err := p.expectAtom("element", "name")
	if err != nil {
		return err
	}
	typ, _, err := p.expectAtom("element", "type")
	if err != nil {
		return err
	}
	if err := p.emit("element", line, p.listener.EnterElement(ElementRecord{Name: name, Type: typ})); err != nil {
		return err
	}
	for {
		t, err := p.peek()
		if err != nil {
			return err
		}
		if t.typ == tokenRightParen {
			break
		}
		if _, err := p.expectLeft("element"); err != nil {
			return err
		}
		kw, kwLine, err := p.keyword("element")
		if err != nil {
			return err
		}
		switch kw {
		case "pin":
			pn, _, err := p.expectAtom("element pin", "name")
			if err != nil {
				return err
			}
			dir, _, err := p.expectDirection("element pin")
			if err != nil {
				return err
			}
			w, _, err := p.expectAtom("element pin", "site wire")
			if err != nil {
				return err
			}
			if err := p.expectRight("element pin"); err != nil {
				return err
			}
			err = p.listener.OnElementPin(ElementPinRecord{Name: pn, Direction: dir, SiteWire: w})
			if err := p.emit("element pin", kwLine, err); err != nil {
				return err
			}
		case "conn":
			src, _, err := p.expectAtom("element conn", "source")
			if err != nil {
				return err
			}
			sink, _, err := p.expectAtom("element conn", "sink")
			if err != nil {
				return err
			}
			if err := p.expectRight("element conn"); err != nil {
				return err
			}
			err = p.listener.OnElementConn(ElementConnRecord{Source: src, Sink: sink})
			if err := p.emit("element conn", kwLine, err); err != nil {
				return err
			}
		default:
			return p.fail("element", kwLine, "unknown record %q", kw)
		}
	}
	if err := p.expectRight("element"); err != nil {
		return err
	}
	return p.emit("element", line, p.listener.ExitElement())
}

func (p *parser) switchRecord(line int) error {
	src, _, err := p.expectAtom("switch", "source")
	if err != nil {
		return err
	}
	sink, _, err := p.expectAtom("switch", "sink")
	if err != nil {
		return err
	}
	if err := p.expectRight("switch"); err != nil {
		return err
	}
	return p.emit("switch", line, p.listener.OnSwitch(SwitchRecord{Source: src, Sink: sink}))
}

func (p *parser) grid(line int) error {
	key, rowsVal, _, err := p.property("grid")
	if err != nil {
		return err
	}
	if key != "rows" {
		return p.fail("grid", line, "expected rows, got %q", key)
	}
	rows, err := strconv.Atoi(rowsVal)
	if err != nil {
		return p.fail("grid", line, "rows is not an integer: %q", rowsVal)
	}
	key, colsVal, _, err := p.property("grid")
	if err != nil {
		return err
	}
	if key != "cols" {
		return p.fail("grid", line, "expected cols, got %q", key)
	}
	cols, err := strconv.Atoi(colsVal)
	if err != nil {
		return p.fail("grid", line, "cols is not an integer: %q", colsVal)
	}
	if rows <= 0 || cols <= 0 {
		return p.fail("grid", line, "grid %dx%d is empty", rows, cols)
	}
	if err := p.emit("grid", line, p.listener.EnterGrid(rows, cols)); err != nil {
		return err
	}

	for {
		t, err := p.peek()
		if err != nil {
			return err
		}
		if t.typ == tokenRightParen {
			break
		}
		if _, err := p.expectLeft("grid"); err != nil {
			return err
		}
		kw, kwLine, err := p.keyword("grid")
		if err != nil {
			return err
		}
		if kw != "tile" {
			return p.fail("grid", kwLine, "unknown record %q", kw)
		}
		if err := p.tile(kwLine); err != nil {
			return err
		}
	}
	if err := p.expectRight("grid"); err != nil {
		return err
	}
	return p.emit("grid", line, p.listener.ExitGrid())
}

func (p *parser) tile(line int) error {
	rec := TileRecord{Row: -1, Col: -1}
	// Four leading properties in any order: row, col, name, type.
	for i := 0; i < 4; i++ {
		key, val, valLine, err := p.property("tile")
		if err != nil {
			return err
		}
		switch key {
		case "row":
			rec.Row, err = strconv.Atoi(val)
		case "col":
			rec.Col, err = strconv.Atoi(val)
		case "name":
			rec.Name = val
		case "type":
			rec.Type = val
		default:
			return p.fail("tile", valLine, "unknown property %q", key)
		}
		if err != nil {
			return p.fail("tile", valLine, "%s is not an integer: %q", key, val)
		}
	}
	if rec.Row < 0 || rec.Col < 0 || rec.Name == "" || rec.Type == "" {
		return p.fail("tile", line, "tile %q missing row/col/name/type", rec.Name)
	}
	if err := p.emit("tile", line, p.listener.EnterTile(rec)); err != nil {
		return err
	}

	for {
		t, err := p.peek()
		if err != nil {
			return err
		}
		if t.typ == tokenRightParen {
			break
		}
		if _, err := p.expectLeft("tile"); err != nil {
			return err
		}
		kw, kwLine, err := p.keyword("tile")
		if err != nil {
			return err
		}
		switch kw {
		case "wire":
			name, _, err := p.expectAtom("wire", "name")
			if err != nil {
				return err
			}
			if err := p.expectRight("wire"); err != nil {
				return err
			}
			if err := p.emit("wire", kwLine, p.listener.OnWire(name)); err != nil {
				return err
			}
		case "conn":
			if err := p.conn(kwLine); err != nil {
				return err
			}
		case "switch":
			if err := p.switchRecord(kwLine); err != nil {
				return err
			}
		case "site":
			if err := p.site(kwLine); err != nil {
				return err
			}
		default:
			return p.fail("tile", kwLine, "unknown record %q", kw)
		}
	}
	if err := p.expectRight("tile"); err != nil {
		return err
	}
	return p.emit("tile", line, p.listener.ExitTile())
}

// conn is either (conn SRC SINK) within the tile or
// (conn SRC (tile NAME SINK)) across tiles.
func (p *parser) conn(line int) error {
	src, _, err := p.expectAtom("conn", "source")
	if err != nil {
		return err
	}
	rec := ConnRecord{Source: src}

	t, err := p.peek()
	if err != nil {
		return err
	}
	switch t.typ {
	case tokenAtom:
		rec.SinkWire = t.value
		p.next()
	case tokenLeftParen:
		p.next()
		kw, kwLine, err := p.keyword("conn")
		if err != nil {
			return err
		}
		if kw != "tile" {
			return p.fail("conn", kwLine, "expected tile, got %q", kw)
		}
		rec.SinkTile, _, err = p.expectAtom("conn", "sink tile")
		if err != nil {
			return err
		}
		rec.SinkWire, _, err = p.expectAtom("conn", "sink wire")
		if err != nil {
			return err
		}
		if err := p.expectRight("conn"); err != nil {
			return err
		}
	default:
		return p.fail("conn", t.line, "missing sink")
	}
	if err := p.expectRight("conn"); err != nil {
		return err
	}
	return p.emit("conn", line, p.listener.OnConn(rec))
}

func (p *parser) site(line int) error {
	rec := SiteRecord{}
	for rec.Name == "" || rec.Type == "" {
		key, val, valLine, err := p.property("site")
		if err != nil {
			return err
		}
		switch key {
		case "name":
			rec.Name = val
		case "type":
			rec.Type = val
		default:
			return p.fail("site", valLine, "unknown property %q", key)
		}
	}

	// Optional alternates list.
	if t, err := p.peek(); err != nil {
		return err
	} else if t.typ == tokenLeftParen {
		save := *p.peeked
		p.next()
		kw, _, err := p.keyword("site")
		if err != nil {
			return err
		}
		if kw == "alternates" {
			for {
				t, err := p.peek()
				if err != nil {
					return err
				}
				if t.typ != tokenAtom {
					break
				}
				rec.Alternates = append(rec.Alternates, t.value)
				p.next()
			}
			if err := p.expectRight("alternates"); err != nil {
				return err
			}
		} else {
			// Not alternates: replay as a pinwire record below.
			if kw != "pinwire" {
				return p.fail("site", save.line, "unknown record %q", kw)
			}
			if err := p.emit("site", line, p.listener.EnterSite(rec)); err != nil {
				return err
			}
			if err := p.pinWire(save.line); err != nil {
				return err
			}
			return p.siteTail(line)
		}
	}
	if err := p.emit("site", line, p.listener.EnterSite(rec)); err != nil {
		return err
	}
	return p.siteTail(line)
}

func (p *parser) siteTail(line int) error {
	for {
		t, err := p.peek()
		if err != nil {
			return err
		}
		if t.typ == tokenRightParen {
			break
		}
		if _, err := p.expectLeft("site"); err != nil {
			return err
		}
		kw, kwLine, err := p.keyword("site")
		if err != nil {
			return err
		}
		if kw != "pinwire" {
			return p.fail("site", kwLine, "unknown record %q", kw)
		}
		if err := p.pinWire(kwLine); err != nil {
			return err
		}
	}
	if err := p.expectRight("site"); err != nil {
		return err
	}
	return p.emit("site", line, p.listener.ExitSite())
}

func (p *parser) pinWire(line int) error {
	pin, _, err := p.expectAtom("pinwire", "pin")
	if err != nil {
		return err
	}
	dir, _, err := p.expectDirection("pinwire")
	if err != nil {
		return err
	}
	w, _, err := p.expectAtom("pinwire", "tile wire")
	if err != nil {
		return err
	}
	if err := p.expectRight("pinwire"); err != nil {
		return err
	}
	return p.emit("pinwire", line, p.listener.OnPinWire(PinWireRecord{Pin: pin, Direction: dir, TileWire: w}))
}
