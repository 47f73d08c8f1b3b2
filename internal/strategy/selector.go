package strategy

import (
	"log/slog"
	"strings"
	"sync"
)

// Selector holds the active strategy. It is constructed explicitly at
// startup and injected wherever boosts are computed; there is no package
// global. Switching is an atomic replace under a mutex.
type Selector struct {
	mu      sync.RWMutex
	current Strategy
	all     []Strategy
	logger  *slog.Logger
}

// NewSelector creates a selector over the built-in strategies with
// Conservative active, matching the scheduler's fairness-first default.
func NewSelector(logger *slog.Logger) *Selector {
	all := []Strategy{
		Conservative{},
		Aggressive{},
		NewExploratory(nil),
	}
	return &Selector{
		current: all[0],
		all:     all,
		logger:  logger.With("component", "strategy_selector"),
	}
}

// Current returns the active strategy.
func (s *Selector) Current() Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// All returns every available strategy.
func (s *Selector) All() []Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Strategy, len(s.all))
	copy(out, s.all)
	return out
}

// SetType switches the active strategy by type. An unknown type logs a
// warning and keeps the current strategy; switching never hard-fails.
// Returns the strategy active after the call and whether a switch happened.
func (s *Selector) SetType(t Type) (Strategy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.all {
		if st.Type() == t {
			s.current = st
			s.logger.Info("strategy switched",
				"strategy", st.Name(),
				"description", st.Description())
			return st, true
		}
	}

	s.logger.Warn("unknown strategy type requested, keeping current",
		"requested", string(t),
		"current", s.current.Name())
	return s.current, false
}

// SetName switches the active strategy by case-insensitive display name,
// with the same unknown-name fallback as SetType.
func (s *Selector) SetName(name string) (Strategy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.all {
		if strings.EqualFold(st.Name(), name) {
			s.current = st
			s.logger.Info("strategy switched",
				"strategy", st.Name(),
				"description", st.Description())
			return st, true
		}
	}

	s.logger.Warn("unknown strategy name requested, keeping current",
		"requested", name,
		"current", s.current.Name())
	return s.current, false
}
