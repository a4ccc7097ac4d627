// Package report defines the parse-event contract between the textual fabric
// report front end and the device generator, together with a streaming reader
// for the paren-delimited .frpt format.
//
// A report describes one device: its primitive (site type) definitions, the
// spatial tile grid with per-tile wires, connections and switches, and an
// optional trailing summary. Reports for real parts run to gigabytes, so the
// reader never materializes the document; it lexes rune by rune and fires
// Listener callbacks as records open and close. The generator streams the
// same Source twice - connections may reference tiles that appear later in
// the file, so adjacency can only be captured once the whole grid is known.
//
// Any listener callback may return an error, which aborts the stream and is
// reported wrapped in a *FormatError naming the offending construct.
package report
