package pinout

import "strings"

// Document is a parsed device-info file. A document carries named sections;
// consumers require specific ones (the device loader requires pinout), so a
// syntactically valid file may still be rejected by its consumer.
//
// Example:
//
//	deviceinfo XC7TEST is
//	  section pinout is
//	    pin A1 : site SLICE_X0Y0 bel A6LUT;
//	  end section;
//	end deviceinfo;
type Document struct {
	Part     string     `parser:"KwDeviceinfo @Ident KwIs"`
	Sections []*Section `parser:"@@* KwEnd KwDeviceinfo Semicolon"`
}

// Section is one named block of the document.
type Section struct {
	Pinout *PinoutSection `parser:"  @@"`
	Notes  *NotesSection  `parser:"| @@"`
}

// PinoutSection maps package pins to sites and BELs.
type PinoutSection struct {
	Pins []*PinDecl `parser:"KwSection KwPinout KwIs @@* KwEnd KwSection Semicolon"`
}

// PinDecl is one package pin binding.
type PinDecl struct {
	Name string `parser:"KwPin @Ident Colon"`
	Site string `parser:"KwSite @Ident"`
	Bel  string `parser:"KwBel @Ident Semicolon"`
}

// NotesSection carries free-form vendor annotations; the device model
// ignores it.
type NotesSection struct {
	Notes []*Note `parser:"KwSection KwNotes KwIs @@* KwEnd KwSection Semicolon"`
}

// Note is one key/value annotation.
type Note struct {
	Key   string `parser:"KwNote @Ident"`
	Value string `parser:"@String Semicolon"`
}

// Text returns the note value without its quotes.
func (n *Note) Text() string {
	return strings.Trim(n.Value, `"`)
}

// PinoutSection returns the first pinout section, or nil when the document
// has none.
func (d *Document) PinoutSection() *PinoutSection {
	for _, s := range d.Sections {
		if s.Pinout != nil {
			return s.Pinout
		}
	}
	return nil
}

// Lookup resolves a package pin name in the first pinout section.
func (d *Document) Lookup(pin string) (*PinDecl, bool) {
	sec := d.PinoutSection()
	if sec == nil {
		return nil, false
	}
	for _, p := range sec.Pins {
		if p.Name == pin {
			return p, true
		}
	}
	return nil, false
}
