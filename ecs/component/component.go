package component

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	ErrEntityNotAlive       = errors.New("ecs: entity not alive")
	ErrNilComponent         = errors.New("ecs: component is nil")
	ErrInvalidComponentKind = errors.New("ecs: invalid component kind")
)

// ComponentID numbers component stores process wide, starting at 1.
type ComponentID uint32

var lastID atomic.Uint32

// ComponentKind names one store of T values. Every call to
// NewComponentKind yields a separate store, even for the same T.
type ComponentKind[T any] struct {
	id ComponentID
}

func NewComponentKind[T any]() ComponentKind[T] {
	return ComponentKind[T]{id: ComponentID(lastID.Add(1))}
}

func (k ComponentKind[T]) ID() ComponentID { return k.id }
func (k ComponentKind[T]) Valid() bool     { return k.id != 0 }

// String renders the kind as "component.Pose#3".
func (k ComponentKind[T]) String() string {
	var zero T
	return fmt.Sprintf("%T#%d", zero, k.id)
}

// ComponentHandle is how packages declare a component type once, e.g.
//
//	var PoseComponent = NewComponent[Pose]()
type ComponentHandle[T any] struct {
	kind ComponentKind[T]
}

func NewComponent[T any]() ComponentHandle[T] {
	return ComponentHandle[T]{kind: NewComponentKind[T]()}
}

func (h ComponentHandle[T]) Kind() ComponentKind[T] { return h.kind }
