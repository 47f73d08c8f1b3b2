// Package events implements the append-only event log that records every
// fact about an image's lifecycle. Events are immutable values in a fixed
// vocabulary, totally ordered by a logical sequence number and carrying
// strictly increasing timestamps. The log offers per-subject and per-type
// queries, human-readable lifecycle narratives, and export for offline
// analysis tooling.
package events
