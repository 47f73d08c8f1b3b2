package events

import (
	"fmt"
	"time"
)

// Type identifies what kind of fact an event records. The vocabulary is
// fixed; new types are an API change, not a runtime concern.
type Type string

// The minimal event vocabulary
const (
	TypeCreated         Type = "CREATED"
	TypeEnqueued        Type = "ENQUEUED"
	TypeDequeued        Type = "DEQUEUED"
	TypeInferStart      Type = "INFER_START"
	TypeInferEnd        Type = "INFER_END"
	TypeWriteBack       Type = "WRITE_BACK"
	TypeVisibleEnter    Type = "VISIBLE_ENTER"
	TypeVisibleLeave    Type = "VISIBLE_LEAVE"
	TypeUserMark        Type = "USER_MARK"
	TypeStrategyChanged Type = "STRATEGY_CHANGED"
)

// Event is one immutable fact: "subject underwent type at timestamp, with
// context". All fields are unexported so an event can never be altered once
// appended; accessors return copies where the underlying data is mutable.
type Event struct {
	seq       uint64
	eventType Type
	subject   string
	timestamp time.Time
	context   map[string]any
}

// Seq returns the logical sequence number, the authoritative total order of
// the log.
func (e Event) Seq() uint64 { return e.seq }

// EventType returns the event's type.
func (e Event) EventType() Type { return e.eventType }

// Subject returns the ID of the image the event is about.
func (e Event) Subject() string { return e.subject }

// Timestamp returns the event's wall-clock timestamp. Timestamps are
// strictly increasing across the whole log.
func (e Event) Timestamp() time.Time { return e.timestamp }

// Context returns a copy of the event's context mapping.
func (e Event) Context() map[string]any {
	return copyContext(e.context)
}

// contextString fetches a string value from the context, or fallback when
// absent or of another type.
func (e Event) contextString(key, fallback string) string {
	if v, ok := e.context[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// Narrative renders the event as a deterministic human-readable sentence,
// derived only from the event's type and context.
func (e Event) Narrative() string {
	switch e.eventType {
	case TypeCreated:
		return fmt.Sprintf("image %s was discovered and indexed", e.subject)
	case TypeEnqueued:
		return fmt.Sprintf("image %s entered the scheduling queue", e.subject)
	case TypeDequeued:
		return fmt.Sprintf("image %s was selected for inference (strategy: %s)",
			e.subject, e.contextString("strategy", "unknown"))
	case TypeInferStart:
		return fmt.Sprintf("inference started: %s", e.subject)
	case TypeInferEnd:
		return fmt.Sprintf("inference finished: %s", e.subject)
	case TypeWriteBack:
		return fmt.Sprintf("result written back: %s", e.subject)
	case TypeVisibleEnter:
		return fmt.Sprintf("image %s entered the attention window", e.subject)
	case TypeVisibleLeave:
		return fmt.Sprintf("image %s left the attention window", e.subject)
	case TypeUserMark:
		return fmt.Sprintf("user marked %s as important", e.subject)
	case TypeStrategyChanged:
		return fmt.Sprintf("scheduling strategy changed to: %s",
			e.contextString("new_strategy", "unknown"))
	default:
		return fmt.Sprintf("unknown event for %s", e.subject)
	}
}

func copyContext(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
