package report

import (
	"bytes"
	"fmt"
	"os"
)

// Source is a restartable event stream. The generator streams the same
// source twice, so Stream must be callable repeatedly, replaying the report
// from its start each time.
type Source interface {
	Stream(l Listener) error
}

// File is a Source backed by a report file on disk. Every Stream call
// re-opens the file, so the reader never holds a descriptor between passes.
type File struct {
	Path string
}

// Stream re-opens the file and reads it into the listener.
func (f File) Stream(l Listener) error {
	fh, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("report: open %s: %w", f.Path, err)
	}
	defer fh.Close()
	return Read(fh, l)
}

// Bytes is a Source replaying an in-memory report, used by tests and the
// round-trip tooling.
type Bytes []byte

// Stream reads the buffered report into the listener.
func (b Bytes) Stream(l Listener) error {
	return Read(bytes.NewReader(b), l)
}
