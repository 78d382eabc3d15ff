// Package idgen allocates 63-bit, time-ordered identifiers without central
// coordination.
//
// # Layout
//
// An identifier packs, from the most significant bit down:
//
//	41 bits  milliseconds since the configured epoch
//	 5 bits  site id   (0..31)
//	 5 bits  worker id (0..31)
//	12 bits  per-millisecond sequence (0..4095)
//
// # Architecture boundaries
//
// One [Allocator] per (site, worker) pair per process. The allocator is
// constructed once at start-up and injected; this package keeps no global
// instance.
package idgen
