// Package registry owns the per-image lifecycle records: state machine
// transitions, marking, visibility tracking and on-demand aggregate
// statistics. The registry carries its own lock so the worker and the
// interaction paths can mutate records concurrently without races.
package registry
