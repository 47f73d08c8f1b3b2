package sched

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// Configuration errors
var (
	// ErrInvalidBoost is returned when a boost setter receives a
	// non-positive value.
	ErrInvalidBoost = errors.New("boost must be positive")

	// ErrInvalidDecayFactor is returned when the decay factor is outside
	// (0, 1].
	ErrInvalidDecayFactor = errors.New("decay factor must be in (0, 1]")
)

// Config holds the scheduler tunables. Zero values are replaced by the
// defaults from DefaultConfig.
type Config struct {
	// ViewportBoost is added to every task inside the attention window.
	ViewportBoost int

	// IntentBoost is added when the user explicitly marks an image.
	IntentBoost int

	// DecayFactor multiplies all outstanding priorities on each decay tick
	// so boosts fade instead of dominating the queue forever.
	DecayFactor float64
}

// DefaultConfig returns the scheduler defaults.
func DefaultConfig() Config {
	return Config{
		ViewportBoost: 10,
		IntentBoost:   100,
		DecayFactor:   0.95,
	}
}

// Scheduler is the priority task queue. All mutations are serialized by a
// single exclusive lock; the lock is never held while calling into other
// components. Priority mutation rebuilds the whole heap from the membership
// map (O(n log n)), trading mutation cost for implementation simplicity at
// moderate queue sizes.
type Scheduler struct {
	mu            sync.Mutex
	viewportBoost float64
	intentBoost   float64
	decayFactor   float64

	tasks map[string]*Task // membership map: one outstanding task per image
	heap  *binaryheap.Heap
	seq   uint64

	wake   chan struct{}
	logger *slog.Logger
}

// New creates a scheduler with the given configuration.
func New(cfg Config, logger *slog.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.ViewportBoost <= 0 {
		cfg.ViewportBoost = def.ViewportBoost
	}
	if cfg.IntentBoost <= 0 {
		cfg.IntentBoost = def.IntentBoost
	}
	if cfg.DecayFactor <= 0 || cfg.DecayFactor > 1 {
		cfg.DecayFactor = def.DecayFactor
	}

	return &Scheduler{
		viewportBoost: float64(cfg.ViewportBoost),
		intentBoost:   float64(cfg.IntentBoost),
		decayFactor:   cfg.DecayFactor,
		tasks:         make(map[string]*Task),
		heap:          binaryheap.NewWith(compareEntries),
		wake:          make(chan struct{}, 1),
		logger:        logger.With("component", "scheduler"),
	}
}

// Wake returns a channel that receives a pulse whenever work is submitted or
// promoted, so the worker can block instead of busy-polling.
func (s *Scheduler) Wake() <-chan struct{} {
	return s.wake
}

// signal pulses the wake channel without blocking; the channel has
// capacity one so repeated pulses coalesce.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Submit enqueues a task for the image with priority zero. Submitting an ID
// that is already outstanding is an idempotent no-op. Returns true if a new
// task was enqueued.
func (s *Scheduler) Submit(id string) bool {
	s.mu.Lock()
	if _, dup := s.tasks[id]; dup {
		s.mu.Unlock()
		return false
	}

	s.seq++
	task := &Task{
		ID:        id,
		CreatedAt: time.Now(),
		seq:       s.seq,
	}
	s.tasks[id] = task
	s.heap.Push(entry{score: task.Score(task.CreatedAt), seq: task.seq, task: task})
	outstanding := len(s.tasks)
	s.mu.Unlock()

	s.logger.Debug("task submitted", "image_id", id, "outstanding", outstanding)

	s.signal()
	return true
}

// BumpVisible raises the priority of every still-outstanding ID by the
// viewport boost, rebuilding the heap once for the whole batch.
func (s *Scheduler) BumpVisible(ids []string) {
	s.mu.Lock()
	bumped := 0
	for _, id := range ids {
		if task, ok := s.tasks[id]; ok {
			task.Priority += s.viewportBoost
			bumped++
		}
	}
	if bumped > 0 {
		s.rebuild()
	}
	s.mu.Unlock()

	if bumped > 0 {
		s.signal()
	}
}

// Promote raises a single task's priority by the intent boost.
func (s *Scheduler) Promote(id string) {
	s.mu.Lock()
	task, ok := s.tasks[id]
	if ok {
		task.Priority += s.intentBoost
		s.rebuild()
	}
	s.mu.Unlock()

	if ok {
		s.signal()
	}
}

// BoostBatch applies externally computed priority deltas, typically those
// produced by the active strategy, with a single heap rebuild for the whole
// batch. Unknown IDs are ignored.
func (s *Scheduler) BoostBatch(deltas map[string]float64) {
	s.mu.Lock()
	applied := 0
	for id, delta := range deltas {
		if task, ok := s.tasks[id]; ok {
			task.Priority += delta
			applied++
		}
	}
	if applied > 0 {
		s.rebuild()
	}
	s.mu.Unlock()

	if applied > 0 {
		s.signal()
	}
}

// Decay multiplies every outstanding priority by the decay factor. Run on a
// periodic tick so boosts fade and a stale high-priority task cannot
// dominate the queue permanently.
func (s *Scheduler) Decay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range s.tasks {
		task.Priority *= s.decayFactor
	}
	s.rebuild()
}

// Next pops the best valid task, skipping stale heap entries whose ID is no
// longer outstanding. Returns false when the queue is exhausted.
func (s *Scheduler) Next() (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		v, ok := s.heap.Pop()
		if !ok {
			return nil, false
		}
		task := v.(entry).task
		if _, outstanding := s.tasks[task.ID]; !outstanding {
			continue // stale entry left behind by a rebuild
		}
		delete(s.tasks, task.ID)
		return task, true
	}
}

// NextBatch pops up to max valid tasks in a single critical section,
// amortizing lock acquisition and reducing how often the worker wakes.
func (s *Scheduler) NextBatch(max int) []*Task {
	if max <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Task
	for len(out) < max {
		v, ok := s.heap.Pop()
		if !ok {
			break
		}
		task := v.(entry).task
		if _, outstanding := s.tasks[task.ID]; !outstanding {
			continue
		}
		delete(s.tasks, task.ID)
		out = append(out, task)
	}
	return out
}

// Len returns the number of outstanding tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Outstanding returns a snapshot of the outstanding image IDs.
func (s *Scheduler) Outstanding() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		out = append(out, id)
	}
	return out
}

// Priority returns the current base priority of an outstanding task.
// Returns false if the ID is not outstanding.
func (s *Scheduler) Priority(id string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return 0, false
	}
	return task.Priority, true
}

// SetViewportBoost updates the viewport boost under the queue lock.
func (s *Scheduler) SetViewportBoost(v int) error {
	if v <= 0 {
		return ErrInvalidBoost
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewportBoost = float64(v)
	return nil
}

// SetIntentBoost updates the intent boost under the queue lock.
func (s *Scheduler) SetIntentBoost(v int) error {
	if v <= 0 {
		return ErrInvalidBoost
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intentBoost = float64(v)
	return nil
}

// SetDecayFactor updates the decay factor under the queue lock. The factor
// must be in (0, 1].
func (s *Scheduler) SetDecayFactor(f float64) error {
	if f <= 0 || f > 1 {
		return ErrInvalidDecayFactor
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decayFactor = f
	return nil
}

// Tunables returns the current boost and decay settings.
func (s *Scheduler) Tunables() (viewportBoost, intentBoost int, decayFactor float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.viewportBoost), int(s.intentBoost), s.decayFactor
}

// rebuild recreates the heap from the membership map with fresh scores.
// Tasks keep their submission sequence so equal scores still dequeue in
// FIFO order. Caller must hold the lock.
func (s *Scheduler) rebuild() {
	now := time.Now()
	s.heap.Clear()
	for _, task := range s.tasks {
		s.heap.Push(entry{score: task.Score(now), seq: task.seq, task: task})
	}
}
