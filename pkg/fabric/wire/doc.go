// Package wire provides the memory-optimized primitives the fabric model is
// built from: interned wire templates, relative offsets, directed connection
// descriptors, and the two bespoke containers that hold them.
//
// A full device has hundreds of thousands of locations and millions of edges,
// so the containers here trade generality for footprint:
//
//   - Set is a sorted array, not a hash set. At the typical fan-out of one to
//     six connections per wire, linear insertion beats hashing and wastes no
//     memory on buckets.
//   - Map is an open-addressing table keyed by template ordinal with a
//     power-of-two capacity, so lookups are a mask and a short probe.
//   - Pool canonicalizes structurally equal values, letting thousands of
//     identically wired locations share one Set or Map instance.
//
// Templates are interned through a Table owned by the device; all equality
// and ordering is by dense ordinal, assigned once in lexicographic name
// order so that two generations of the same device number wires identically.
//
// Everything in this package is immutable once generation finishes and may
// be read concurrently without synchronization.
package wire
