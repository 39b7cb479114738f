package ecs

import (
	"fmt"

	"github.com/milk9111/animgraph/ecs/component"
)

// World owns entities and their component stores.
type World struct {
	slots  []slot
	free   []uint32
	alive  int
	stores map[component.ComponentID]store
	events EventQueue
}

type slot struct {
	gen   uint32
	alive bool
}

// NewWorld creates an empty ECS world.
func NewWorld() *World {
	return &World{stores: make(map[component.ComponentID]store)}
}

// CreateEntity allocates a new entity, reusing freed slots with a bumped
// generation.
func CreateEntity(w *World) Entity {
	var id uint32
	if n := len(w.free); n > 0 {
		id = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		w.slots = append(w.slots, slot{})
		id = uint32(len(w.slots))
	}
	w.slots[id-1].alive = true
	w.alive++
	return newEntity(id, w.slots[id-1].gen)
}

// IsAlive reports whether e still refers to a live entity.
func IsAlive(w *World, e Entity) bool {
	id := e.Index()
	if w == nil || id == 0 || int(id) > len(w.slots) {
		return false
	}
	s := w.slots[id-1]
	return s.alive && s.gen == e.Generation()
}

// DestroyEntity removes e and all its components.
func DestroyEntity(w *World, e Entity) bool {
	if !IsAlive(w, e) {
		return false
	}
	id := e.Index()
	for _, s := range w.stores {
		s.remove(id)
	}
	w.slots[id-1] = slot{gen: w.slots[id-1].gen + 1}
	w.free = append(w.free, id)
	w.alive--
	return true
}

// Entities lists every live entity in id order.
func Entities(w *World) []Entity {
	if w == nil {
		return nil
	}
	out := make([]Entity, 0, w.alive)
	for i, s := range w.slots {
		if s.alive {
			out = append(out, newEntity(uint32(i+1), s.gen))
		}
	}
	return out
}

// Events returns the world event queue.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}

func storeFor[T any](w *World, kind component.ComponentKind[T], create bool) (*sparseSet[T], error) {
	if !kind.Valid() {
		return nil, component.ErrInvalidComponentKind
	}
	s, ok := w.stores[kind.ID()]
	if !ok {
		if !create {
			return nil, nil
		}
		set := &sparseSet[T]{}
		w.stores[kind.ID()] = set
		return set, nil
	}
	set, ok := s.(*sparseSet[T])
	if !ok {
		return nil, fmt.Errorf("%w: %v holds %T", component.ErrInvalidComponentKind, kind, s)
	}
	return set, nil
}
