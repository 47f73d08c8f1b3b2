// Package domain contains the core entities of the curation pipeline,
// primarily the per-image lifecycle record and its state machine. These types
// are pure data with validation and derived metrics; they have no knowledge
// of scheduling, persistence, or transport concerns.
package domain
