package fabric

import (
	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/wire"
)

// Connection is a resolved directed edge between two concrete wires. It is
// always oriented electrically, source to sink, regardless of whether it was
// reached through a forward or a reverse adjacency walk. Connections are
// lightweight values computed on demand and never stored by the device.
type Connection struct {
	source       Wire
	sink         Wire
	configurable bool
}

// NewConnection builds a resolved edge. Routers normally obtain connections
// from tiles and nodes instead.
func NewConnection(source, sink Wire, configurable bool) Connection {
	return Connection{source: source, sink: sink, configurable: configurable}
}

// Source returns the driving wire.
func (c Connection) Source() Wire { return c.source }

// Sink returns the driven wire.
func (c Connection) Sink() Wire { return c.sink }

// IsConfigurable reports whether the edge is a configurable switch rather
// than fixed metal.
func (c Connection) IsConfigurable() bool { return c.configurable }

// IsZero reports whether c is the zero value.
func (c Connection) IsZero() bool { return c.source.IsZero() }

// PIP materializes the "switch is set" fact for a configurable connection.
func (c Connection) PIP() PIP {
	return PIP{Start: c.source, End: c.sink}.Canonical()
}

func (c Connection) String() string {
	arrow := "->"
	if c.configurable {
		arrow = "=>"
	}
	return c.source.Name() + arrow + c.sink.Name()
}

// resolveTileConnections maps the abstract connection descriptors stored
// under anchor into concrete Connections. For a forward map the anchor wire
// is the source; for a reverse map it is the sink and the stored descriptor
// names the driver.
func resolveTileConnections(t *Tile, anchor *wire.Template, set *wire.Set, rev bool) []Connection {
	if set.Len() == 0 {
		return nil
	}
	anchorWire := TileWire(t, anchor)
	out := make([]Connection, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		c := set.At(i)
		other := t.Neighbor(c.Offset())
		if other == nil {
			continue
		}
		otherWire := TileWire(other, c.Sink())
		if rev {
			out = append(out, Connection{source: otherWire, sink: anchorWire, configurable: c.IsConfigurable()})
		} else {
			out = append(out, Connection{source: anchorWire, sink: otherWire, configurable: c.IsConfigurable()})
		}
	}
	return out
}

// resolveSiteConnections is the intra-site analogue; offsets collapse to
// zero, so both endpoints stay in the anchor's site.
func resolveSiteConnections(s *Site, anchor *wire.Template, set *wire.Set, rev bool) []Connection {
	if set.Len() == 0 {
		return nil
	}
	anchorWire := SiteWire(s, anchor)
	out := make([]Connection, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		c := set.At(i)
		otherWire := SiteWire(s, c.Sink())
		if rev {
			out = append(out, Connection{source: otherWire, sink: anchorWire, configurable: c.IsConfigurable()})
		} else {
			out = append(out, Connection{source: anchorWire, sink: otherWire, configurable: c.IsConfigurable()})
		}
	}
	return out
}
