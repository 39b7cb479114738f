package anim

// EventKind identifies controller event types.
type EventKind string

const (
	EventEnter EventKind = "enter"
	EventExit  EventKind = "exit"
	EventClip  EventKind = "clip"
)

// Event is emitted while a controller ticks: authored enter/exit markers of
// graph nodes and clip markers such as footsteps.
type Event struct {
	Kind   EventKind
	Name   string
	Node   int
	Entity uint64
}

// EventStream is a simple FIFO queue.
type EventStream struct {
	items []Event
}

// Push adds an event.
func (q *EventStream) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Len reports the number of queued events.
func (q *EventStream) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

// Drain returns all events and clears the queue.
func (q *EventStream) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}
