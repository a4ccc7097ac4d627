package pinout

import (
	"strings"
	"testing"
)

const sampleDoc = `
-- package pin map for the test part
deviceinfo XC7TEST is
  section notes is
    note vendor "OpenTrace";
  end section;
  section pinout is
    pin A1 : site SLICE_X0Y0 bel A6LUT;
    pin 1B2 : site SLICE_X1Y0 bel B6LUT;
  end section;
end deviceinfo;
`

func TestParseDocument(t *testing.T) {
	parser, err := NewParser()
	if err != nil {
		t.Fatalf("parser init failed: %v", err)
	}

	doc, err := parser.ParseString(sampleDoc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Part != "XC7TEST" {
		t.Errorf("part = %q, want XC7TEST", doc.Part)
	}

	sec := doc.PinoutSection()
	if sec == nil {
		t.Fatal("pinout section not found")
	}
	if len(sec.Pins) != 2 {
		t.Fatalf("got %d pins, want 2", len(sec.Pins))
	}

	p, ok := doc.Lookup("1B2")
	if !ok {
		t.Fatal("pin 1B2 not found")
	}
	if p.Site != "SLICE_X1Y0" || p.Bel != "B6LUT" {
		t.Errorf("pin 1B2 = site %q bel %q", p.Site, p.Bel)
	}

	if _, ok := doc.Lookup("Z9"); ok {
		t.Error("unknown pin resolved")
	}
}

func TestParseDocumentWithoutPinout(t *testing.T) {
	parser, err := NewParser()
	if err != nil {
		t.Fatalf("parser init failed: %v", err)
	}

	doc, err := parser.ParseString(`
deviceinfo PARTX is
  section notes is
    note vendor "OpenTrace";
  end section;
end deviceinfo;
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.PinoutSection() != nil {
		t.Error("expected no pinout section")
	}
	if len(doc.Sections) != 1 || doc.Sections[0].Notes == nil {
		t.Fatal("notes section not parsed")
	}
	if got := doc.Sections[0].Notes.Notes[0].Text(); got != "OpenTrace" {
		t.Errorf("note text = %q", got)
	}
}

func TestParseMalformedDocument(t *testing.T) {
	parser, err := NewParser()
	if err != nil {
		t.Fatalf("parser init failed: %v", err)
	}

	cases := []string{
		`deviceinfo P is section pinout is pin A1 site S bel B; end section; end deviceinfo;`, // missing colon
		`deviceinfo P is section pinout is pin A1 : site S bel B; end section;`,               // unterminated document
		`section pinout is end section;`,                                                      // no deviceinfo frame
	}
	for i, input := range cases {
		if _, err := parser.ParseString(input); err == nil {
			t.Errorf("case %d: expected parse error", i)
		} else if !strings.Contains(err.Error(), "pinout:") {
			t.Errorf("case %d: error %v lacks package prefix", i, err)
		}
	}
}
