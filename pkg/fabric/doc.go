// Package fabric models the fixed physical interconnect of a reconfigurable
// chip: a grid of tiles holding wires, configurable switches and logic
// sites, and the generation pipeline that builds the model from a streamed
// fabric report.
//
// # Model
//
// A Device owns everything: the tile grid, the interned wire template
// table, per-site-type templates and the package pinout. Tiles carry their
// adjacency as shared wire.Map instances; structurally identical tiles
// point at the same maps. Wires, pins, BELs and connections are small value
// types that resolve against the shared templates on demand, so holding one
// costs nothing.
//
// Routers traverse Nodes - electrically equivalent groups of wires joined
// by fixed metal - rather than raw wires. Node is a sealed two-case
// interface: TileNode for general fabric and SiteNode for intra-site
// routing. Both resolve position-independent, hash-consed NodeTemplates at
// a concrete location.
//
// # Generation
//
// Generator builds a Device in four phases: template discovery (first
// streamed pass, names only), adjacency capture (second pass, edges
// straight into the maps), correction (fixed-metal closure and pruning on a
// bounded worker pool), and finalization (reverse maps, node tables,
// routethroughs, package pins). On any failure no partial device is
// returned.
//
// WriteDevice and ReadDevice persist a generated device in a compact binary
// form; only round-trip fidelity is contractual.
//
// A Device is immutable after generation apart from each site's active
// type, and safe for unsynchronized concurrent reads.
package fabric
