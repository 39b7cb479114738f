package ecs

import "slices"

// System is one step of a frame.
type System interface {
	Update(w *World)
}

// SystemFunc adapts a plain function to System.
type SystemFunc func(w *World)

func (f SystemFunc) Update(w *World) { f(w) }

// Scheduler runs its systems in registration order, then ends the frame:
// events nobody took are dropped and the frame counter advances.
type Scheduler struct {
	systems []System
}

func NewScheduler(systems ...System) *Scheduler {
	s := &Scheduler{}
	s.Add(systems...)
	return s
}

// Add appends systems, skipping nil ones.
func (s *Scheduler) Add(systems ...System) {
	for _, sys := range systems {
		if sys != nil {
			s.systems = append(s.systems, sys)
		}
	}
}

func (s *Scheduler) Update(w *World) {
	for _, sys := range s.systems {
		sys.Update(w)
	}
	w.events.endFrame()
}

func (s *Scheduler) Systems() []System {
	return slices.Clone(s.systems)
}
