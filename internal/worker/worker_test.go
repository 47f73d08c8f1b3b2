package worker

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fokal/curator/internal/domain"
	"github.com/fokal/curator/internal/events"
	"github.com/fokal/curator/internal/infer"
	"github.com/fokal/curator/internal/registry"
	"github.com/fokal/curator/internal/sched"
	"github.com/fokal/curator/internal/strategy"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// recordingObserver collects task notifications for assertions.
type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished []string
}

func (o *recordingObserver) OnTaskStarted(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, id)
}

func (o *recordingObserver) OnTaskFinished(id string, result []float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, id)
}

func (o *recordingObserver) snapshot() (started, finished []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.started...), append([]string(nil), o.finished...)
}

type fixture struct {
	scheduler *sched.Scheduler
	registry  *registry.Registry
	eventLog  *events.Log
	worker    *Worker
	observer  *recordingObserver
	dir       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := setupTestLogger()

	s := sched.New(sched.DefaultConfig(), logger)
	reg := registry.New(logger)
	log := events.NewLog(logger)
	weights, err := infer.LoadWeights(filepath.Join(t.TempDir(), "absent.bin"), logger)
	require.NoError(t, err)

	w := New(
		s, reg, log,
		infer.NewEngine(weights),
		infer.NewVectorizer(logger),
		strategy.NewSelector(logger),
		Config{BatchSize: 4, IdleInterval: 10 * time.Millisecond},
		logger,
	)

	obs := &recordingObserver{}
	w.RegisterObserver(obs)

	return &fixture{
		scheduler: s,
		registry:  reg,
		eventLog:  log,
		worker:    w,
		observer:  obs,
		dir:       t.TempDir(),
	}
}

// submit registers an image with a real backing file and enqueues it.
func (f *fixture) submit(t *testing.T, name string, content []byte) string {
	t.Helper()
	id := filepath.Join(f.dir, name)
	if content != nil {
		require.NoError(t, os.WriteFile(id, content, 0o644))
	}
	_, err := f.registry.Add(id)
	require.NoError(t, err)
	require.NoError(t, f.registry.MarkEnqueued(id))
	f.scheduler.Submit(id)
	return id
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWorkerProcessesTaskToCompletion(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, "cat.jpg", []byte("pretend image bytes"))

	f.worker.Start()
	defer f.worker.Stop()

	waitFor(t, 5*time.Second, func() bool {
		state, err := f.registry.State(id)
		return err == nil && state == domain.StateDone
	})

	rec, err := f.registry.Snapshot(id)
	require.NoError(t, err)
	assert.Len(t, rec.Embedding, infer.OutputDim)
	assert.False(t, rec.DequeuedAt.IsZero())
	assert.False(t, rec.InferStartAt.IsZero())
	assert.False(t, rec.WriteBackAt.IsZero())

	started, finished := f.observer.snapshot()
	assert.Equal(t, []string{id}, started)
	assert.Equal(t, []string{id}, finished)
}

func TestWorkerEmitsLifecycleEventsInOrder(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, "dog.jpg", []byte("more bytes"))

	f.worker.Start()
	defer f.worker.Stop()

	waitFor(t, 5*time.Second, func() bool {
		state, err := f.registry.State(id)
		return err == nil && state == domain.StateDone
	})

	var types []events.Type
	for _, ev := range f.eventLog.BySubject(id) {
		types = append(types, ev.EventType())
	}
	assert.Equal(t, []events.Type{
		events.TypeDequeued,
		events.TypeInferStart,
		events.TypeInferEnd,
		events.TypeWriteBack,
	}, types)
}

func TestWorkerRecordsStrategyInDequeueEvent(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, "bird.jpg", []byte("bytes"))

	f.worker.Start()
	defer f.worker.Stop()

	waitFor(t, 5*time.Second, func() bool {
		return len(f.eventLog.ByType(events.TypeDequeued)) > 0
	})

	ev := f.eventLog.ByType(events.TypeDequeued)[0]
	assert.Equal(t, id, ev.Subject())
	assert.Equal(t, "Conservative", ev.Context()["strategy"])
}

func TestWorkerSubstitutesZeroVectorForUnreadableInput(t *testing.T) {
	f := newFixture(t)
	// No backing file: vectorize fails, zero vector is valid input
	id := f.submit(t, "ghost.jpg", nil)

	f.worker.Start()
	defer f.worker.Stop()

	waitFor(t, 5*time.Second, func() bool {
		state, err := f.registry.State(id)
		return err == nil && state == domain.StateDone
	})

	rec, err := f.registry.Snapshot(id)
	require.NoError(t, err)
	assert.Len(t, rec.Embedding, infer.OutputDim)
}

func TestWorkerSurvivesMultipleTasks(t *testing.T) {
	f := newFixture(t)
	ids := []string{
		f.submit(t, "a.jpg", []byte("aaa")),
		f.submit(t, "b.jpg", []byte("bbb")),
		f.submit(t, "c.jpg", []byte("ccc")),
	}

	f.worker.Start()
	defer f.worker.Stop()

	waitFor(t, 5*time.Second, func() bool {
		done := 0
		for _, id := range ids {
			if state, err := f.registry.State(id); err == nil && state == domain.StateDone {
				done++
			}
		}
		return done == len(ids)
	})

	_, finished := f.observer.snapshot()
	assert.ElementsMatch(t, ids, finished)
	assert.Equal(t, 0, f.scheduler.Len())
}

func TestWorkerStopIsClean(t *testing.T) {
	f := newFixture(t)
	f.worker.Start()
	// Stop with an empty queue: the worker must exit promptly
	done := make(chan struct{})
	go func() {
		f.worker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop in time")
	}
}

// shortVectorizer returns vectors of the wrong length to provoke the
// inference dimension check.
type shortVectorizer struct{}

func (shortVectorizer) Vectorize(identifier string) []float32 {
	return make([]float32, 3)
}

func TestWorkerMarksTaskFailedOnDimensionMismatch(t *testing.T) {
	f := newFixture(t)
	f.worker.vectorizer = shortVectorizer{}
	id := f.submit(t, "broken.jpg", []byte("bytes"))

	f.worker.Start()
	defer f.worker.Stop()

	waitFor(t, 5*time.Second, func() bool {
		state, err := f.registry.State(id)
		return err == nil && state == domain.StateFailed
	})

	rec, err := f.registry.Snapshot(id)
	require.NoError(t, err)
	assert.Contains(t, rec.FailureReason, "dimension mismatch")

	// No result emitted for the failed task
	_, finished := f.observer.snapshot()
	assert.Empty(t, finished)

	// The loop survives the failure and keeps pulling tasks
	next := f.submit(t, "also-broken.jpg", []byte("bytes"))
	waitFor(t, 5*time.Second, func() bool {
		state, err := f.registry.State(next)
		return err == nil && state == domain.StateFailed
	})
}

func TestWorkerWakesOnLateSubmission(t *testing.T) {
	f := newFixture(t)
	f.worker.Start()
	defer f.worker.Stop()

	// Let the worker go idle first
	time.Sleep(30 * time.Millisecond)
	id := f.submit(t, "late.jpg", []byte("late bytes"))

	waitFor(t, 5*time.Second, func() bool {
		state, err := f.registry.State(id)
		return err == nil && state == domain.StateDone
	})
}
