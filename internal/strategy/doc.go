// Package strategy defines the pluggable prioritization policies. A
// strategy is a pure function from an image and its scheduling context to a
// priority boost; strategies never mutate scheduler or registry state, and
// callers apply the returned boost themselves. The active strategy is an
// explicitly constructed, injected value, and switching it is a first-class
// action recorded as a STRATEGY_CHANGED event by the caller.
package strategy
