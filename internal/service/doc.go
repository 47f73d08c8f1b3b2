// Package service coordinates the scheduler, registry, strategy selector
// and event log behind one curation API. It is the only component that
// emits submission and interaction events, keeping the scheduler and
// registry free of cross-component knowledge.
package service
