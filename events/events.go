// Package events describes lifecycle notifications emitted for downstream
// email and push delivery.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"live-class/constant"
)

type Event struct {
	ID          uuid.UUID              `json:"id"`
	Type        constant.EventType     `json:"type"`
	SessionID   uuid.UUID              `json:"sessionId"`
	CourseID    string                 `json:"courseId"`
	ActorID     string                 `json:"actorId"`
	Title       string                 `json:"title,omitempty"`
	Status      constant.SessionStatus `json:"status"`
	ScheduledAt time.Time              `json:"scheduledAt"`
	OccurredAt  time.Time              `json:"occurredAt"`
}

type Notifier interface {
	Publish(ctx context.Context, e Event) error
}

// LogNotifier writes events to the context logger. It is used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Publish(ctx context.Context, e Event) error {
	zerolog.Ctx(ctx).Info().
		Str("event_id", e.ID.String()).
		Str("event", string(e.Type)).
		Str("live_session_id", e.SessionID.String()).
		Str("actor_id", e.ActorID).
		Msg("live class event")
	return nil
}

// Buffer keeps published events in memory.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

func (b *Buffer) Publish(ctx context.Context, e Event) error {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
	return nil
}

func (b *Buffer) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Types returns the event types in publish order.
func (b *Buffer) Types() []constant.EventType {
	var out []constant.EventType
	for _, e := range b.Events() {
		out = append(out, e.Type)
	}
	return out
}

// Count returns how many events of type t were published.
func (b *Buffer) Count(t constant.EventType) int {
	n := 0
	for _, e := range b.Events() {
		if e.Type == t {
			n++
		}
	}
	return n
}
