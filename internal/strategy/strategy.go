package strategy

import (
	"math/rand"
	"time"
)

// Type identifies one of the built-in strategies.
type Type string

// Built-in strategy types
const (
	TypeConservative Type = "conservative"
	TypeAggressive   Type = "aggressive"
	TypeExplorer     Type = "explorer"
)

// Context carries everything a strategy may consult when computing a boost
// for one image.
type Context struct {
	// ViewportBoost is the configured boost for visible images.
	ViewportBoost float64

	// IntentBoost is the configured boost for user-marked images.
	IntentBoost float64

	// IsVisible reports whether the image is inside the attention window.
	IsVisible bool

	// IsMarked reports whether the user marked the image as important.
	IsMarked bool

	// QueueAge is how long the image has been waiting in the queue.
	QueueAge time.Duration
}

// Strategy computes a contextual priority boost for an image. Implementations
// must be pure: no scheduler or registry mutation, ever.
type Strategy interface {
	// Name returns the strategy's display name.
	Name() string

	// Description returns a short natural-language description of the
	// strategy's behavior, suitable for a status surface.
	Description() string

	// Type returns the strategy's type tag.
	Type() Type

	// ComputeBoost returns the priority boost for the given image under
	// the given context.
	ComputeBoost(imageID string, ctx Context) float64
}

// Conservative follows queue order only: pure FIFO-with-aging fairness that
// ignores visibility and marking.
type Conservative struct{}

func (Conservative) Name() string { return "Conservative" }

func (Conservative) Description() string {
	return "Follows queue order; every image is treated fairly."
}

func (Conservative) Type() Type { return TypeConservative }

func (Conservative) ComputeBoost(imageID string, ctx Context) float64 {
	return ctx.QueueAge.Seconds() * 0.1
}

// Aggressive puts user intent first: marking dominates, visibility is
// secondary, age is a tiebreaker.
type Aggressive struct{}

func (Aggressive) Name() string { return "Aggressive" }

func (Aggressive) Description() string {
	return "Marked and visible images come first; your intent matters most."
}

func (Aggressive) Type() Type { return TypeAggressive }

func (Aggressive) ComputeBoost(imageID string, ctx Context) float64 {
	var boost float64
	if ctx.IsMarked {
		boost += ctx.IntentBoost
	}
	if ctx.IsVisible {
		boost += ctx.ViewportBoost
	}
	return boost + ctx.QueueAge.Seconds()*0.05
}

// Exploratory balances user intent against diversity. The bounded random
// jitter prevents deterministic starvation when many tasks share similar
// scores.
type Exploratory struct {
	// rng, when set, replaces the package-level source. Tests inject a
	// seeded source for reproducibility.
	rng *rand.Rand
}

// NewExploratory creates an Exploratory strategy drawing jitter from the
// given source, or from the shared package source when src is nil.
func NewExploratory(src rand.Source) Exploratory {
	if src == nil {
		return Exploratory{}
	}
	return Exploratory{rng: rand.New(src)}
}

func (Exploratory) Name() string { return "Explorer" }

func (Exploratory) Description() string {
	return "Balances your intent against exploring the rest of the collection."
}

func (Exploratory) Type() Type { return TypeExplorer }

func (e Exploratory) ComputeBoost(imageID string, ctx Context) float64 {
	var boost float64
	if ctx.IsMarked {
		boost += ctx.IntentBoost * 0.5
	}
	if ctx.IsVisible {
		boost += ctx.ViewportBoost * 0.5
	}
	boost += ctx.QueueAge.Seconds() * 0.08

	if e.rng != nil {
		boost += e.rng.Float64() * 10
	} else {
		boost += rand.Float64() * 10
	}
	return boost
}
