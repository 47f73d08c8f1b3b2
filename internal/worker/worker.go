// Package worker runs the dedicated inference loop: it pulls task batches
// from the scheduler, feeds each image through feature extraction and the
// inference engine, and reports progress into the registry, the event log
// and any registered presentation observers.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fokal/curator/internal/events"
	"github.com/fokal/curator/internal/registry"
	"github.com/fokal/curator/internal/sched"
	"github.com/fokal/curator/internal/strategy"
)

// Engine is the inference collaborator: it maps a feature vector to a
// normalized embedding, failing on a dimension mismatch.
type Engine interface {
	Infer(x []float32) ([]float32, error)
}

// Vectorizer is the feature-extraction collaborator. It never fails; a
// degraded read yields a zero vector of the expected length.
type Vectorizer interface {
	Vectorize(identifier string) []float32
}

// Observer receives push notifications about task progress, once per task.
// Implementations must be fast; they run on the worker goroutine.
type Observer interface {
	// OnTaskStarted is invoked when a task's inference begins.
	OnTaskStarted(id string)

	// OnTaskFinished is invoked with the embedding when a task completes.
	// It is not invoked for failed tasks.
	OnTaskFinished(id string, result []float32)
}

// Config holds the worker tunables.
type Config struct {
	// BatchSize is the maximum number of tasks pulled per iteration.
	BatchSize int

	// IdleInterval bounds how long the worker sleeps when the queue is
	// empty and no wake pulse arrives.
	IdleInterval time.Duration
}

// DefaultConfig returns reasonable worker defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:    8,
		IdleInterval: 50 * time.Millisecond,
	}
}

// Worker is the single dedicated inference loop. There is no per-task
// timeout: a stalled inference call blocks the loop, which is a known
// limitation of this core.
type Worker struct {
	scheduler  *sched.Scheduler
	registry   *registry.Registry
	eventLog   *events.Log
	engine     Engine
	vectorizer Vectorizer
	strategies *strategy.Selector

	mu        sync.RWMutex
	observers []Observer

	config     Config
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a worker. Invalid config values fall back to defaults.
func New(
	scheduler *sched.Scheduler,
	reg *registry.Registry,
	eventLog *events.Log,
	engine Engine,
	vectorizer Vectorizer,
	strategies *strategy.Selector,
	config Config,
	logger *slog.Logger,
) *Worker {
	def := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.IdleInterval <= 0 {
		config.IdleInterval = def.IdleInterval
	}

	return &Worker{
		scheduler:  scheduler,
		registry:   reg,
		eventLog:   eventLog,
		engine:     engine,
		vectorizer: vectorizer,
		strategies: strategies,
		config:     config,
		logger:     logger.With("component", "worker"),
	}
}

// RegisterObserver adds a presentation observer.
func (w *Worker) RegisterObserver(obs Observer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, obs)
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancelFunc = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Stop requests cancellation and waits for the loop to exit. A batch that
// was already pulled runs to completion and still emits its results.
func (w *Worker) Stop() {
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()
}

// run is the loop body. Cancellation is checked once per iteration, before
// pulling a new batch. When the queue is empty the worker blocks on the
// scheduler's wake pulse with a bounded fallback interval.
func (w *Worker) run(ctx context.Context) {
	w.logger.Debug("worker started", "batch_size", w.config.BatchSize)

	timer := time.NewTimer(w.config.IdleInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			w.logger.Debug("worker stopping")
			return
		}

		batch := w.scheduler.NextBatch(w.config.BatchSize)
		if len(batch) == 0 {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.config.IdleInterval)

			select {
			case <-ctx.Done():
				w.logger.Debug("worker stopping")
				return
			case <-w.scheduler.Wake():
			case <-timer.C:
			}
			continue
		}

		for _, task := range batch {
			w.process(task)
		}
	}
}

// process runs one task end to end. Failures never stop the loop.
func (w *Worker) process(task *sched.Task) {
	id := task.ID
	logger := w.logger.With("image_id", id)

	if err := w.registry.MarkDequeued(id); err != nil {
		logger.Error("failed to mark image dequeued", "error", err)
		return
	}

	strategyName := w.strategies.Current().Name()
	w.eventLog.Append(events.TypeDequeued, id, map[string]any{
		"strategy": strategyName,
		"priority": task.Priority,
	})

	w.notifyStarted(id)

	w.eventLog.Append(events.TypeInferStart, id, nil)

	// Degraded input comes back as a zero vector, which is valid input
	vec := w.vectorizer.Vectorize(id)

	embedding, err := w.engine.Infer(vec)
	if err != nil {
		// Input contract violation: log, mark failed, emit no result
		logger.Error("inference failed", "error", err)
		if ferr := w.registry.SetFailed(id, err.Error()); ferr != nil {
			logger.Error("failed to mark image failed", "error", ferr)
		}
		return
	}

	w.eventLog.Append(events.TypeInferEnd, id, nil)

	if err := w.registry.SetResult(id, embedding); err != nil {
		logger.Error("failed to store inference result", "error", err)
		return
	}
	w.eventLog.Append(events.TypeWriteBack, id, nil)

	w.notifyFinished(id, embedding)
	logger.Debug("task completed", "strategy", strategyName)
}

func (w *Worker) notifyStarted(id string) {
	w.mu.RLock()
	observers := make([]Observer, len(w.observers))
	copy(observers, w.observers)
	w.mu.RUnlock()

	for _, obs := range observers {
		obs.OnTaskStarted(id)
	}
}

func (w *Worker) notifyFinished(id string, result []float32) {
	w.mu.RLock()
	observers := make([]Observer, len(w.observers))
	copy(observers, w.observers)
	w.mu.RUnlock()

	for _, obs := range observers {
		obs.OnTaskFinished(id, result)
	}
}
