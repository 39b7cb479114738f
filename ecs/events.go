package ecs

import "strings"

// Event is something a system reported during a frame. Type is namespaced
// with a dot, e.g. "anim.enter".
type Event struct {
	Type   string
	Entity Entity
	Frame  uint64
	Data   any
}

// EventQueue holds the events of the current frame in push order. Later
// systems of the same frame see them; whatever is left is dropped when the
// scheduler ends the frame.
type EventQueue struct {
	frame  uint64
	events []Event
}

// Push stamps evt with the current frame and queues it.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	evt.Frame = q.frame
	q.events = append(q.events, evt)
}

func (q *EventQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.events)
}

// Frame is the number of frames ended so far.
func (q *EventQueue) Frame() uint64 {
	if q == nil {
		return 0
	}
	return q.frame
}

// Drain removes and returns every queued event.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	return out
}

// Take removes and returns the events whose type starts with prefix,
// leaving the others queued in order.
func (q *EventQueue) Take(prefix string) []Event {
	if q == nil {
		return nil
	}
	var out []Event
	kept := q.events[:0]
	for _, evt := range q.events {
		if strings.HasPrefix(evt.Type, prefix) {
			out = append(out, evt)
			continue
		}
		kept = append(kept, evt)
	}
	clear(q.events[len(kept):])
	q.events = kept
	return out
}

func (q *EventQueue) endFrame() {
	q.events = nil
	q.frame++
}
