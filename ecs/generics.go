package ecs

import "github.com/milk9111/animgraph/ecs/component"

// Add attaches value to e, replacing a component of the same kind.
func Add[T any](w *World, e Entity, kind component.ComponentKind[T], value *T) error {
	if !IsAlive(w, e) {
		return component.ErrEntityNotAlive
	}
	if value == nil {
		return component.ErrNilComponent
	}
	s, err := storeFor(w, kind, true)
	if err != nil {
		return err
	}
	s.set(e, value)
	return nil
}

func Remove[T any](w *World, e Entity, kind component.ComponentKind[T]) bool {
	if !IsAlive(w, e) {
		return false
	}
	s, err := storeFor(w, kind, false)
	if err != nil || s == nil {
		return false
	}
	return s.remove(e.Index())
}

func Has[T any](w *World, e Entity, kind component.ComponentKind[T]) bool {
	_, ok := Get(w, e, kind)
	return ok
}

func Get[T any](w *World, e Entity, kind component.ComponentKind[T]) (*T, bool) {
	if !IsAlive(w, e) {
		return nil, false
	}
	s, err := storeFor(w, kind, false)
	if err != nil || s == nil {
		return nil, false
	}
	return s.get(e.Index())
}

// ForEach visits every live entity holding kind in storage order. fn must
// not add or remove components of kind.
func ForEach[T any](w *World, kind component.ComponentKind[T], fn func(Entity, *T)) {
	s, err := storeFor(w, kind, false)
	if err != nil || s == nil {
		return
	}
	for i, e := range s.dense {
		fn(e, s.values[i])
	}
}

func ForEach2[A, B any](w *World, ka component.ComponentKind[A], kb component.ComponentKind[B], fn func(Entity, *A, *B)) {
	sb, err := storeFor(w, kb, false)
	if err != nil || sb == nil {
		return
	}
	ForEach(w, ka, func(e Entity, a *A) {
		if b, ok := sb.get(e.Index()); ok {
			fn(e, a, b)
		}
	})
}

func ForEach3[A, B, C any](w *World, ka component.ComponentKind[A], kb component.ComponentKind[B], kc component.ComponentKind[C], fn func(Entity, *A, *B, *C)) {
	sc, err := storeFor(w, kc, false)
	if err != nil || sc == nil {
		return
	}
	ForEach2(w, ka, kb, func(e Entity, a *A, b *B) {
		if c, ok := sc.get(e.Index()); ok {
			fn(e, a, b, c)
		}
	})
}
