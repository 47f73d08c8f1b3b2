package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fokal/curator/internal/domain"
)

// Statistics summarizes the collection at one instant, computed by scanning
// all records on demand rather than maintaining incremental counters.
type Statistics struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Queued  int `json:"queued"`
	Running int `json:"running"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
	Marked  int `json:"marked"`
}

// Registry is the exclusive owner of all ImageRecord instances, keyed by
// image ID. Records are created on first submission and never deleted
// during a session.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*domain.ImageRecord
	logger  *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		records: make(map[string]*domain.ImageRecord),
		logger:  logger.With("component", "registry"),
	}
}

// Add creates a record for the image if none exists and returns whether it
// was newly created.
func (r *Registry) Add(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; ok {
		return false, nil
	}
	rec, err := domain.NewImageRecord(id)
	if err != nil {
		return false, err
	}
	r.records[id] = rec
	r.logger.Debug("image record created", "image_id", id)
	return true, nil
}

// Snapshot returns a copy of the record for the given image, or
// ErrImageNotFound.
func (r *Registry) Snapshot(id string) (domain.ImageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.ImageRecord{}, domain.ErrImageNotFound
	}
	return *rec, nil
}

// State returns the current lifecycle state of the image.
func (r *Registry) State(id string) (domain.ImageState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return "", domain.ErrImageNotFound
	}
	return rec.State, nil
}

// MarkEnqueued moves the image to QUEUED and stamps the enqueue time.
func (r *Registry) MarkEnqueued(id string) error {
	return r.update(id, func(rec *domain.ImageRecord) error {
		if err := rec.Transition(domain.StateQueued); err != nil {
			return err
		}
		rec.EnqueuedAt = time.Now()
		return nil
	})
}

// MarkDequeued moves the image to RUNNING and stamps dequeue and inference
// start times.
func (r *Registry) MarkDequeued(id string) error {
	return r.update(id, func(rec *domain.ImageRecord) error {
		if err := rec.Transition(domain.StateRunning); err != nil {
			return err
		}
		now := time.Now()
		rec.DequeuedAt = now
		rec.InferStartAt = now
		return nil
	})
}

// SetResult stores the embedding and completes the record.
func (r *Registry) SetResult(id string, embedding []float32) error {
	return r.update(id, func(rec *domain.ImageRecord) error {
		return rec.SetResult(embedding)
	})
}

// SetFailed moves the record to the terminal FAILED state.
func (r *Registry) SetFailed(id, reason string) error {
	return r.update(id, func(rec *domain.ImageRecord) error {
		return rec.SetFailed(reason)
	})
}

// Mark flags the image as user-marked.
func (r *Registry) Mark(id string) error {
	return r.update(id, func(rec *domain.ImageRecord) error {
		rec.Mark()
		return nil
	})
}

// Unmark clears the user mark.
func (r *Registry) Unmark(id string) error {
	return r.update(id, func(rec *domain.ImageRecord) error {
		rec.Unmark()
		return nil
	})
}

// EnterViewport records the image becoming visible; idempotent.
func (r *Registry) EnterViewport(id string) error {
	return r.update(id, func(rec *domain.ImageRecord) error {
		rec.EnterViewport()
		return nil
	})
}

// LeaveViewport records the image leaving the attention window; idempotent.
func (r *Registry) LeaveViewport(id string) error {
	return r.update(id, func(rec *domain.ImageRecord) error {
		rec.LeaveViewport()
		return nil
	})
}

// IsVisible reports whether the image is currently in the attention window.
// Unknown images are not visible.
func (r *Registry) IsVisible(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	return ok && rec.CurrentlyVisible
}

// IsMarked reports whether the image is user-marked. Unknown images are not
// marked.
func (r *Registry) IsMarked(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	return ok && rec.Marked
}

// QueueAge returns how long the image has waited since it was enqueued.
func (r *Registry) QueueAge(id string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return 0
	}
	return rec.QueueAge()
}

// VisibleIDs returns the IDs of all images currently in the attention
// window.
func (r *Registry) VisibleIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for id, rec := range r.records {
		if rec.CurrentlyVisible {
			out = append(out, id)
		}
	}
	return out
}

// MarkedIDs returns the IDs of all user-marked images.
func (r *Registry) MarkedIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for id, rec := range r.records {
		if rec.Marked {
			out = append(out, id)
		}
	}
	return out
}

// Statistics computes aggregate counts by scanning all records.
func (r *Registry) Statistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Statistics{Total: len(r.records)}
	for _, rec := range r.records {
		switch rec.State {
		case domain.StatePending:
			stats.Pending++
		case domain.StateQueued:
			stats.Queued++
		case domain.StateRunning:
			stats.Running++
		case domain.StateDone:
			stats.Done++
		case domain.StateFailed:
			stats.Failed++
		}
		if rec.Marked {
			stats.Marked++
		}
	}
	return stats
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *Registry) update(id string, fn func(*domain.ImageRecord) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.ErrImageNotFound
	}
	return fn(rec)
}
