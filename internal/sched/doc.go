// Package sched implements the attention-aware priority scheduler: a
// deduplicated task queue ordered by a score combining base priority and
// queue age. Viewport and intent boosts raise a task's priority, a periodic
// decay fades stale boosts, and batch dequeue amortizes lock acquisition for
// the worker loop.
package sched
