package events

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrReplayUnsupported is returned by Replay. Re-simulating history under an
// alternate strategy is a declared extension point with no defined semantics
// yet.
var ErrReplayUnsupported = errors.New("event replay is not supported")

// Log is the append-only, ordered record of everything the system does to an
// image. Appended events are never altered or removed. The log carries its
// own lock; it is safe for concurrent use by the worker and interaction
// paths.
type Log struct {
	mu     sync.RWMutex
	events []Event
	logger *slog.Logger
}

// NewLog creates an empty event log.
func NewLog(logger *slog.Logger) *Log {
	return &Log{
		logger: logger.With("component", "event_log"),
	}
}

// Append records a new event and returns it. The event receives the next
// logical sequence number and a wall timestamp guaranteed strictly greater
// than the previous event's; when the clock ties or regresses, the timestamp
// is nudged forward by one nanosecond.
func (l *Log) Append(eventType Type, subject string, context map[string]any) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now()
	if n := len(l.events); n > 0 {
		if last := l.events[n-1].timestamp; !ts.After(last) {
			ts = last.Add(time.Nanosecond)
		}
	}

	ev := Event{
		seq:       uint64(len(l.events)) + 1,
		eventType: eventType,
		subject:   subject,
		timestamp: ts,
		context:   copyContext(context),
	}
	l.events = append(l.events, ev)

	l.logger.Debug("event recorded",
		"seq", ev.seq,
		"type", string(eventType),
		"subject", subject)
	return ev
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// BySubject returns all events for one subject in chronological order.
func (l *Log) BySubject(subject string) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Event
	for _, ev := range l.events {
		if ev.subject == subject {
			out = append(out, ev)
		}
	}
	return out
}

// ByType returns all events of one type in chronological order.
func (l *Log) ByType(eventType Type) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Event
	for _, ev := range l.events {
		if ev.eventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// All returns a snapshot of the full event sequence.
func (l *Log) All() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Narrative returns the ordered human-readable lifecycle of one subject.
func (l *Log) Narrative(subject string) []string {
	evs := l.BySubject(subject)
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Narrative()
	}
	return out
}

// NarrativeSummary renders the lifecycles of every subject seen so far,
// grouped by subject in lexical order, for inspection and debugging.
func (l *Log) NarrativeSummary() string {
	l.mu.RLock()
	bySubject := make(map[string][]Event)
	for _, ev := range l.events {
		bySubject[ev.subject] = append(bySubject[ev.subject], ev)
	}
	l.mu.RUnlock()

	subjects := make([]string, 0, len(bySubject))
	for s := range bySubject {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	var b strings.Builder
	for _, s := range subjects {
		fmt.Fprintf(&b, "\n%s:\n", s)
		for _, ev := range bySubject[s] {
			fmt.Fprintf(&b, "  -> %s\n", ev.Narrative())
		}
	}
	return b.String()
}

// Replay is a declared extension point for re-simulating recorded history
// under an alternate strategy. It has no defined semantics yet and always
// returns ErrReplayUnsupported.
func (l *Log) Replay(strategyName string) error {
	return ErrReplayUnsupported
}
