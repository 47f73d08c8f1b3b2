package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
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
	"github.com/fokal/curator/internal/worker"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestCurator() (*Curator, *sched.Scheduler, *registry.Registry, *events.Log) {
	logger := setupTestLogger()
	s := sched.New(sched.DefaultConfig(), logger)
	reg := registry.New(logger)
	log := events.NewLog(logger)
	sel := strategy.NewSelector(logger)
	return New(s, reg, log, sel, logger), s, reg, log
}

func TestSubmitEmitsCreatedAndEnqueued(t *testing.T) {
	c, s, reg, log := newTestCurator()

	require.NoError(t, c.Submit("a.jpg"))

	state, err := reg.State("a.jpg")
	require.NoError(t, err)
	assert.Equal(t, domain.StateQueued, state)
	assert.Equal(t, 1, s.Len())

	var types []events.Type
	for _, ev := range log.BySubject("a.jpg") {
		types = append(types, ev.EventType())
	}
	assert.Equal(t, []events.Type{events.TypeCreated, events.TypeEnqueued}, types)
}

func TestSubmitTwiceYieldsOneTaskAndOneEventPair(t *testing.T) {
	c, s, _, log := newTestCurator()

	require.NoError(t, c.Submit("a.jpg"))
	require.NoError(t, c.Submit("a.jpg"))

	assert.Equal(t, 1, s.Len())
	assert.Len(t, log.ByType(events.TypeCreated), 1)
	assert.Len(t, log.ByType(events.TypeEnqueued), 1)
}

func TestSubmitIgnoredForFinishedImage(t *testing.T) {
	c, s, reg, _ := newTestCurator()

	require.NoError(t, c.Submit("a.jpg"))
	// Drain the queue and finish the image as the worker would
	s.NextBatch(1)
	require.NoError(t, reg.MarkDequeued("a.jpg"))
	require.NoError(t, reg.SetResult("a.jpg", nil))

	require.NoError(t, c.Submit("a.jpg"))
	assert.Equal(t, 0, s.Len())
}

func TestMarkPromotesAndEmitsExactlyOneUserMark(t *testing.T) {
	c, s, _, log := newTestCurator()

	require.NoError(t, c.Submit("a.jpg"))
	require.NoError(t, c.Submit("x.jpg"))
	require.NoError(t, c.Mark("x.jpg"))

	assert.Contains(t, c.MarkedIDs(), "x.jpg")

	marks := log.ByType(events.TypeUserMark)
	require.Len(t, marks, 1)
	assert.Equal(t, "x.jpg", marks[0].Subject())

	// Intent boost overrides submission order
	task, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "x.jpg", task.ID)
}

func TestMarkUnknownImage(t *testing.T) {
	c, _, _, _ := newTestCurator()
	assert.ErrorIs(t, c.Mark("ghost.jpg"), domain.ErrImageNotFound)
}

func TestUnmark(t *testing.T) {
	c, _, _, _ := newTestCurator()
	require.NoError(t, c.Submit("a.jpg"))
	require.NoError(t, c.Mark("a.jpg"))
	require.NoError(t, c.Unmark("a.jpg"))
	assert.Empty(t, c.MarkedIDs())
}

func TestSetVisibleEmitsEnterAndLeave(t *testing.T) {
	c, _, reg, log := newTestCurator()

	require.NoError(t, c.Submit("a.jpg"))
	require.NoError(t, c.Submit("b.jpg"))

	c.SetVisible([]string{"a.jpg"})
	assert.True(t, reg.IsVisible("a.jpg"))
	assert.Len(t, log.ByType(events.TypeVisibleEnter), 1)

	// a leaves, b enters
	c.SetVisible([]string{"b.jpg"})
	assert.False(t, reg.IsVisible("a.jpg"))
	assert.True(t, reg.IsVisible("b.jpg"))
	assert.Len(t, log.ByType(events.TypeVisibleEnter), 2)
	assert.Len(t, log.ByType(events.TypeVisibleLeave), 1)

	// Repeating the same window adds no events
	c.SetVisible([]string{"b.jpg"})
	assert.Len(t, log.ByType(events.TypeVisibleEnter), 2)
	assert.Len(t, log.ByType(events.TypeVisibleLeave), 1)
}

func TestSetVisibleAppliesViewportBoost(t *testing.T) {
	c, s, _, _ := newTestCurator()

	require.NoError(t, c.Submit("a.jpg"))
	require.NoError(t, c.Submit("b.jpg"))

	c.SetVisible([]string{"b.jpg"})

	p, ok := s.Priority("b.jpg")
	require.True(t, ok)
	assert.InDelta(t, 10.0, p, 1e-9)

	task, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "b.jpg", task.ID)
}

func TestSetStrategyRecordsEvent(t *testing.T) {
	c, _, _, log := newTestCurator()

	st, switched := c.SetStrategy("Aggressive")
	require.True(t, switched)
	assert.Equal(t, strategy.TypeAggressive, st.Type())
	assert.Equal(t, strategy.TypeAggressive, c.ActiveStrategy().Type())

	changes := log.ByType(events.TypeStrategyChanged)
	require.Len(t, changes, 1)
	ctx := changes[0].Context()
	assert.Equal(t, "Aggressive", ctx["new_strategy"])
	assert.NotEmpty(t, ctx["description"])
}

func TestSetStrategyUnknownNameKeepsCurrentWithoutEvent(t *testing.T) {
	c, _, _, log := newTestCurator()

	before := c.ActiveStrategy()
	st, switched := c.SetStrategy("does-not-exist")
	assert.False(t, switched)
	assert.Equal(t, before.Type(), st.Type())
	assert.Empty(t, log.ByType(events.TypeStrategyChanged))
}

func TestRebalanceAppliesStrategyBoosts(t *testing.T) {
	c, s, _, _ := newTestCurator()
	_, switched := c.SetStrategy("Aggressive")
	require.True(t, switched)

	require.NoError(t, c.Submit("plain.jpg"))
	require.NoError(t, c.Submit("focused.jpg"))

	c.SetVisible([]string{"focused.jpg"}) // +10 viewport bump
	require.NoError(t, c.Mark("focused.jpg"))

	// focused.jpg already left the queue? Mark promotes but does not dequeue
	require.Equal(t, 2, s.Len())

	c.Rebalance()

	pFocused, ok := s.Priority("focused.jpg")
	require.True(t, ok)
	pPlain, ok := s.Priority("plain.jpg")
	require.True(t, ok)
	assert.Greater(t, pFocused, pPlain+100.0,
		"aggressive rebalance should widen the gap beyond the intent boost")
}

func TestTickDecaysPriorities(t *testing.T) {
	c, s, _, _ := newTestCurator()

	require.NoError(t, c.Submit("a.jpg"))
	s.Promote("a.jpg") // priority 100

	s.Decay()
	p, ok := s.Priority("a.jpg")
	require.True(t, ok)
	assert.InDelta(t, 95.0, p, 1e-9)
}

func TestStartStopTicks(t *testing.T) {
	c, s, _, _ := newTestCurator()
	require.NoError(t, c.Submit("a.jpg"))
	s.Promote("a.jpg")

	c.StartTicks(10 * time.Millisecond)
	time.Sleep(35 * time.Millisecond)
	c.StopTicks()

	p, ok := s.Priority("a.jpg")
	require.True(t, ok)
	// Conservative strategy adds only tiny age boosts, so decay dominates
	assert.Less(t, p, 100.0)
}

func TestStatisticsAndNarrative(t *testing.T) {
	c, _, _, _ := newTestCurator()

	require.NoError(t, c.Submit("a.jpg"))
	require.NoError(t, c.Mark("a.jpg"))

	stats := c.Statistics()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Queued)
	assert.Equal(t, 1, stats.Marked)

	narrative := c.Narrative("a.jpg")
	require.Len(t, narrative, 3) // created, enqueued, marked
	assert.Contains(t, c.NarrativeSummary(), "a.jpg:")

	recs := c.Events()
	assert.Len(t, recs, 3)
}

func TestSubmitRacingWorkerKeepsLifecycleOrder(t *testing.T) {
	logger := setupTestLogger()
	s := sched.New(sched.DefaultConfig(), logger)
	reg := registry.New(logger)
	log := events.NewLog(logger)
	sel := strategy.NewSelector(logger)
	c := New(s, reg, log, sel, logger)

	weights, err := infer.LoadWeights(filepath.Join(t.TempDir(), "absent.bin"), logger)
	require.NoError(t, err)

	// An eager worker that pounces on every submission; the missing backing
	// files degrade to zero vectors, which still complete normally.
	w := worker.New(
		s, reg, log,
		infer.NewEngine(weights),
		infer.NewVectorizer(logger),
		sel,
		worker.Config{BatchSize: 1, IdleInterval: time.Millisecond},
		logger,
	)
	w.Start()
	defer w.Stop()

	const n = 100
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("img-%03d.jpg", i)
		require.NoError(t, c.Submit(ids[i]),
			"a submission must never fail because the worker dequeued it first")
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if c.Statistics().Done == n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, n, c.Statistics().Done)

	// However the worker interleaved, each image's log must read
	// CREATED, ENQUEUED, then DEQUEUED.
	for _, id := range ids {
		evs := log.BySubject(id)
		require.GreaterOrEqual(t, len(evs), 3, "image %s lost lifecycle events", id)
		assert.Equal(t, events.TypeCreated, evs[0].EventType(), "image %s", id)
		assert.Equal(t, events.TypeEnqueued, evs[1].EventType(), "image %s", id)
		assert.Equal(t, events.TypeDequeued, evs[2].EventType(), "image %s", id)
	}
}

func TestTunableSetters(t *testing.T) {
	c, _, _, _ := newTestCurator()

	require.NoError(t, c.SetViewportBoost(30))
	require.NoError(t, c.SetIntentBoost(150))
	require.NoError(t, c.SetDecayFactor(0.9))

	vb, ib, df := c.Tunables()
	assert.Equal(t, 30, vb)
	assert.Equal(t, 150, ib)
	assert.InDelta(t, 0.9, df, 1e-9)

	assert.Error(t, c.SetDecayFactor(2))
}
