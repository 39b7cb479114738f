package ecs

import "fmt"

// Entity is a generational handle: the slot index sits in the low 32 bits
// and the slot generation in the high 32 bits. Index 0 is never handed out,
// so the zero Entity is always invalid.
type Entity uint64

const indexMask = 1<<32 - 1

func newEntity(index, gen uint32) Entity {
	return Entity(uint64(gen)<<32 | uint64(index))
}

// Index is the slot of e. Live entities have distinct indices.
func (e Entity) Index() uint32 {
	return uint32(e & indexMask)
}

// Generation counts how often the slot of e was reused.
func (e Entity) Generation() uint32 {
	return uint32(e >> 32)
}

func (e Entity) Valid() bool {
	return e.Index() != 0
}

// String renders e as "index:generation", e.g. "3:1".
func (e Entity) String() string {
	return fmt.Sprintf("%d:%d", e.Index(), e.Generation())
}
