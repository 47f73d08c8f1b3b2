package domain

import (
	"time"
)

// ImageState represents where an image currently sits in the processing
// pipeline. Transitions only move forward; DONE and FAILED are terminal.
type ImageState string

// Possible image lifecycle states
const (
	StatePending ImageState = "PENDING"
	StateQueued  ImageState = "QUEUED"
	StateRunning ImageState = "RUNNING"
	StateDone    ImageState = "DONE"
	StateFailed  ImageState = "FAILED"
)

// rank orders states along the pipeline so transitions can be checked for
// forward progress. Terminal states share the highest rank.
func (s ImageState) rank() int {
	switch s {
	case StatePending:
		return 0
	case StateQueued:
		return 1
	case StateRunning:
		return 2
	case StateDone, StateFailed:
		return 3
	default:
		return -1
	}
}

// Terminal reports whether the state permits no further transitions.
func (s ImageState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// VisibleInterval is one closed span of time during which an image was
// inside the user's attention window.
type VisibleInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ImageRecord tracks the full lifecycle of one image: pipeline state, stage
// timestamps, user marking, visibility history and the inference result.
// Records are created on first submission and never deleted for the life of
// a session.
type ImageRecord struct {
	ID    string     `json:"id"`
	State ImageState `json:"state"`

	CreatedAt    time.Time `json:"created_at"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	DequeuedAt   time.Time `json:"dequeued_at"`
	InferStartAt time.Time `json:"infer_start_at"`
	InferEndAt   time.Time `json:"infer_end_at"`
	WriteBackAt  time.Time `json:"write_back_at"`

	Marked   bool      `json:"marked"`
	MarkedAt time.Time `json:"marked_at"`

	VisibleIntervals []VisibleInterval `json:"visible_intervals,omitempty"`
	CurrentlyVisible bool              `json:"currently_visible"`
	visibleSince     time.Time

	// Embedding holds the inference result once the record reaches DONE.
	Embedding []float32 `json:"-"`

	// FailureReason is set when the record reaches FAILED.
	FailureReason string `json:"failure_reason,omitempty"`
}

// NewImageRecord creates a PENDING record for the given image ID.
// Returns an error if the ID is empty.
func NewImageRecord(id string) (*ImageRecord, error) {
	if id == "" {
		return nil, ErrImageIDEmpty
	}
	return &ImageRecord{
		ID:        id,
		State:     StatePending,
		CreatedAt: time.Now(),
	}, nil
}

// Transition moves the record to the given state, enforcing forward-only
// progress. Moving to the current state is a no-op.
func (r *ImageRecord) Transition(to ImageState) error {
	if to == r.State {
		return nil
	}
	if to.rank() < 0 || r.State.Terminal() || to.rank() < r.State.rank() {
		return ErrInvalidTransition
	}
	r.State = to
	return nil
}

// Mark flags the record as user-marked. Marking an already marked record
// refreshes the mark timestamp.
func (r *ImageRecord) Mark() {
	r.Marked = true
	r.MarkedAt = time.Now()
}

// Unmark clears the user mark.
func (r *ImageRecord) Unmark() {
	r.Marked = false
	r.MarkedAt = time.Time{}
}

// EnterViewport records that the image became visible. A no-op if the image
// is already visible.
func (r *ImageRecord) EnterViewport() {
	if r.CurrentlyVisible {
		return
	}
	r.CurrentlyVisible = true
	r.visibleSince = time.Now()
}

// LeaveViewport closes the open visibility interval, if any. A no-op if the
// image is not currently visible.
func (r *ImageRecord) LeaveViewport() {
	if !r.CurrentlyVisible {
		return
	}
	r.CurrentlyVisible = false
	if !r.visibleSince.IsZero() {
		r.VisibleIntervals = append(r.VisibleIntervals, VisibleInterval{
			Start: r.visibleSince,
			End:   time.Now(),
		})
		r.visibleSince = time.Time{}
	}
}

// SetResult stores the embedding and moves the record to DONE, stamping
// infer_end (if not already stamped) and write_back.
func (r *ImageRecord) SetResult(embedding []float32) error {
	if err := r.Transition(StateDone); err != nil {
		return err
	}
	now := time.Now()
	r.Embedding = embedding
	if r.InferEndAt.IsZero() {
		r.InferEndAt = now
	}
	r.WriteBackAt = now
	return nil
}

// SetFailed moves the record to the terminal FAILED state with the given
// reason, so a task whose inference errored never lingers in RUNNING.
func (r *ImageRecord) SetFailed(reason string) error {
	if err := r.Transition(StateFailed); err != nil {
		return err
	}
	r.FailureReason = reason
	return nil
}

// QueueAge returns how long the record has been waiting since it was
// enqueued, or zero if it was never enqueued.
func (r *ImageRecord) QueueAge() time.Duration {
	if r.EnqueuedAt.IsZero() {
		return 0
	}
	return time.Since(r.EnqueuedAt)
}

// InferDuration returns the time spent in inference, or zero if inference
// has not completed.
func (r *ImageRecord) InferDuration() time.Duration {
	if r.InferStartAt.IsZero() || r.InferEndAt.IsZero() {
		return 0
	}
	return r.InferEndAt.Sub(r.InferStartAt)
}

// TotalDuration returns the elapsed time from creation to write-back,
// falling back to the latest known stage timestamp (or now) when later
// stages are missing.
func (r *ImageRecord) TotalDuration() time.Duration {
	end := r.WriteBackAt
	if end.IsZero() {
		end = r.InferEndAt
	}
	if end.IsZero() {
		end = r.DequeuedAt
	}
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(r.CreatedAt)
}

// VisibleDuration returns the total time the image has spent inside the
// attention window, including the currently open interval.
func (r *ImageRecord) VisibleDuration() time.Duration {
	var total time.Duration
	for _, iv := range r.VisibleIntervals {
		total += iv.End.Sub(iv.Start)
	}
	if r.CurrentlyVisible && !r.visibleSince.IsZero() {
		total += time.Since(r.visibleSince)
	}
	return total
}
