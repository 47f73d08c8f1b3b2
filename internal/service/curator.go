package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fokal/curator/internal/domain"
	"github.com/fokal/curator/internal/events"
	"github.com/fokal/curator/internal/registry"
	"github.com/fokal/curator/internal/sched"
	"github.com/fokal/curator/internal/strategy"
)

// Curator ties the scheduling core together: submissions, user
// interactions, strategy switching, statistics and event export all go
// through it. The scheduler, registry and event log each carry their own
// synchronization, so Curator methods can be called from any goroutine.
type Curator struct {
	scheduler  *sched.Scheduler
	registry   *registry.Registry
	eventLog   *events.Log
	strategies *strategy.Selector
	logger     *slog.Logger

	// submitMu serializes submissions so the PENDING check and the
	// enqueue below form one atomic step per image.
	submitMu sync.Mutex

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a curator over explicitly constructed components.
func New(
	scheduler *sched.Scheduler,
	reg *registry.Registry,
	eventLog *events.Log,
	strategies *strategy.Selector,
	logger *slog.Logger,
) *Curator {
	return &Curator{
		scheduler:  scheduler,
		registry:   reg,
		eventLog:   eventLog,
		strategies: strategies,
		logger:     logger.With("component", "curator"),
	}
}

// Submit registers an image and enqueues it for inference, emitting CREATED
// for new records and ENQUEUED when a task actually enters the queue.
// Submitting an image that is already queued, running or finished is a
// no-op. The record is stamped QUEUED and ENQUEUED is logged before the
// task becomes poppable, so the worker can never dequeue a task whose
// record and log have not caught up.
func (c *Curator) Submit(id string) error {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	created, err := c.registry.Add(id)
	if err != nil {
		return err
	}
	if created {
		c.eventLog.Append(events.TypeCreated, id, nil)
	}

	state, err := c.registry.State(id)
	if err != nil {
		return err
	}
	if state != domain.StatePending {
		c.logger.Debug("submission ignored, image already enqueued or processed",
			"image_id", id, "state", string(state))
		return nil
	}

	if err := c.registry.MarkEnqueued(id); err != nil {
		return err
	}
	c.eventLog.Append(events.TypeEnqueued, id, nil)
	c.scheduler.Submit(id)
	return nil
}

// Mark flags an image as important, promotes its task by the intent boost
// and records a USER_MARK event.
func (c *Curator) Mark(id string) error {
	if err := c.registry.Mark(id); err != nil {
		return err
	}
	c.eventLog.Append(events.TypeUserMark, id, map[string]any{
		"reason": "user marked the image as important",
	})
	c.scheduler.Promote(id)
	return nil
}

// Unmark clears the user mark. Unmarking emits no event; the vocabulary
// records marking as a fact, not a toggle.
func (c *Curator) Unmark(id string) error {
	return c.registry.Unmark(id)
}

// SetVisible reconciles the attention window against the given set of
// visible image IDs: images entering the window get VISIBLE_ENTER, images
// leaving get VISIBLE_LEAVE, and every still-queued visible image receives
// the viewport boost in one batch.
func (c *Curator) SetVisible(ids []string) {
	visible := make(map[string]bool, len(ids))
	for _, id := range ids {
		visible[id] = true
	}

	for _, id := range c.registry.VisibleIDs() {
		if !visible[id] {
			if err := c.registry.LeaveViewport(id); err == nil {
				c.eventLog.Append(events.TypeVisibleLeave, id, nil)
			}
		}
	}

	for _, id := range ids {
		if c.registry.IsVisible(id) {
			continue
		}
		if err := c.registry.EnterViewport(id); err != nil {
			c.logger.Debug("viewport enter ignored for unknown image", "image_id", id)
			continue
		}
		c.eventLog.Append(events.TypeVisibleEnter, id, nil)
	}

	c.scheduler.BumpVisible(ids)
}

// SetStrategy switches the active prioritization strategy by name. The
// switch is recorded as a STRATEGY_CHANGED event; an unknown name keeps the
// current strategy, records nothing, and reports false.
func (c *Curator) SetStrategy(name string) (strategy.Strategy, bool) {
	st, switched := c.strategies.SetName(name)
	if switched {
		c.eventLog.Append(events.TypeStrategyChanged, "system", map[string]any{
			"new_strategy": st.Name(),
			"description":  st.Description(),
			"type":         string(st.Type()),
		})
	}
	return st, switched
}

// ActiveStrategy returns the strategy currently in effect.
func (c *Curator) ActiveStrategy() strategy.Strategy {
	return c.strategies.Current()
}

// Strategies returns every available strategy.
func (c *Curator) Strategies() []strategy.Strategy {
	return c.strategies.All()
}

// Rebalance runs one strategy pass: for every outstanding task, the active
// strategy computes a contextual boost from visibility, marking and queue
// age, and the whole batch is applied with a single heap rebuild.
// Strategies stay pure; the scheduler only sees the resulting deltas.
func (c *Curator) Rebalance() {
	current := c.strategies.Current()
	viewportBoost, intentBoost, _ := c.scheduler.Tunables()

	outstanding := c.scheduler.Outstanding()
	if len(outstanding) == 0 {
		return
	}

	deltas := make(map[string]float64, len(outstanding))
	for _, id := range outstanding {
		deltas[id] = current.ComputeBoost(id, strategy.Context{
			ViewportBoost: float64(viewportBoost),
			IntentBoost:   float64(intentBoost),
			IsVisible:     c.registry.IsVisible(id),
			IsMarked:      c.registry.IsMarked(id),
			QueueAge:      c.registry.QueueAge(id),
		})
	}
	c.scheduler.BoostBatch(deltas)
}

// StartTicks launches the periodic maintenance loop: each tick decays all
// outstanding priorities so boosts fade, then rebalances them under the
// active strategy.
func (c *Curator) StartTicks(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelFunc = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.scheduler.Decay()
				c.Rebalance()
			}
		}
	}()
}

// StopTicks stops the maintenance loop.
func (c *Curator) StopTicks() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}

// Statistics returns aggregate collection counts, computed on demand.
func (c *Curator) Statistics() registry.Statistics {
	return c.registry.Statistics()
}

// MarkedIDs returns the IDs of all user-marked images.
func (c *Curator) MarkedIDs() []string {
	return c.registry.MarkedIDs()
}

// Narrative returns the ordered human-readable lifecycle of one image.
func (c *Curator) Narrative(id string) []string {
	return c.eventLog.Narrative(id)
}

// NarrativeSummary renders every image's lifecycle for inspection.
func (c *Curator) NarrativeSummary() string {
	return c.eventLog.NarrativeSummary()
}

// Events returns the full event sequence as export records.
func (c *Curator) Events() []events.Record {
	return c.eventLog.Records()
}

// ExportJSON writes the event log to a JSON file. Failures are logged by
// the log itself and surfaced to the caller; the in-memory log is never
// affected.
func (c *Curator) ExportJSON(path string) error {
	return c.eventLog.ExportJSON(path)
}

// ExportSQLite writes the event log to a SQLite database.
func (c *Curator) ExportSQLite(ctx context.Context, path string) error {
	return c.eventLog.ExportSQLite(ctx, path)
}

// SetViewportBoost updates the viewport boost tunable.
func (c *Curator) SetViewportBoost(v int) error {
	return c.scheduler.SetViewportBoost(v)
}

// SetIntentBoost updates the intent boost tunable.
func (c *Curator) SetIntentBoost(v int) error {
	return c.scheduler.SetIntentBoost(v)
}

// SetDecayFactor updates the decay factor tunable.
func (c *Curator) SetDecayFactor(f float64) error {
	return c.scheduler.SetDecayFactor(f)
}

// Tunables returns the current scheduler settings.
func (c *Curator) Tunables() (viewportBoost, intentBoost int, decayFactor float64) {
	return c.scheduler.Tunables()
}
