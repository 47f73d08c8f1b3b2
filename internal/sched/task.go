package sched

import "time"

// ageWeight converts queue age in seconds into score so old tasks
// eventually outrank newer boosted ones.
const ageWeight = 0.1

// Task is one scheduler-owned unit of pending work for an image. The
// scheduler holds at most one outstanding task per image ID.
type Task struct {
	// ID is the image this task will process.
	ID string

	// Priority is the mutable base priority. Boosts add to it, decay
	// multiplies it down.
	Priority float64

	// CreatedAt is when the task entered the queue.
	CreatedAt time.Time

	// seq is assigned once at submission and breaks score ties in FIFO
	// order without relying on floating-point equality.
	seq uint64
}

// Score computes the heap ordering key at the given instant. Lower scores
// pop first, so the negation favors high priority and old age.
func (t *Task) Score(now time.Time) float64 {
	age := now.Sub(t.CreatedAt).Seconds()
	return -(t.Priority + age*ageWeight)
}

// entry is what actually sits in the heap: the score frozen at push or
// rebuild time plus the task's submission sequence as tie-break.
type entry struct {
	score float64
	seq   uint64
	task  *Task
}

// compareEntries orders entries ascending by score, then by submission
// sequence so equal scores dequeue first-in first-out.
func compareEntries(a, b interface{}) int {
	ea, eb := a.(entry), b.(entry)
	switch {
	case ea.score < eb.score:
		return -1
	case ea.score > eb.score:
		return 1
	case ea.seq < eb.seq:
		return -1
	case ea.seq > eb.seq:
		return 1
	default:
		return 0
	}
}
