package system

import (
	"context"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/milk9111/animgraph/anim"
	"github.com/milk9111/animgraph/anim/controller"
	"github.com/milk9111/animgraph/ecs"
	"github.com/milk9111/animgraph/ecs/component"
	"github.com/milk9111/animgraph/logger"
)

// EventPrefix prefixes the world event type of every controller event, e.g.
// "anim.enter".
const EventPrefix = "anim."

// ResourceSource resolves a controller path to a ready resource.
type ResourceSource interface {
	Controller(path string) (*controller.Resource, error)
}

// AnimControllerSystem ticks every AnimController by DT seconds per frame.
// Instances tick in parallel; pose and event write-back is sequential in
// entity order.
type AnimControllerSystem struct {
	DT        float32
	Workers   int
	Resources ResourceSource
	Log       logrus.FieldLogger

	mu      sync.Mutex
	reloads map[string]*controller.Resource
	failed  map[string]bool

	jobs []tickJob
}

type tickJob struct {
	e   ecs.Entity
	c   *component.AnimController
	out controller.Output
}

func NewAnimControllerSystem(dt float32, workers int) *AnimControllerSystem {
	return &AnimControllerSystem{DT: dt, Workers: workers}
}

func (s *AnimControllerSystem) log() logrus.FieldLogger {
	return logger.Or(s.Log)
}

// QueueReload schedules res to replace the controllers loaded from the same
// path. It is applied at the start of the next Update, so no instance is
// ticking while it swaps. Safe for concurrent use.
func (s *AnimControllerSystem) QueueReload(res *controller.Resource) {
	if res == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reloads == nil {
		s.reloads = make(map[string]*controller.Resource)
	}
	s.reloads[res.Path] = res
}

func (s *AnimControllerSystem) takeReloads() map[string]*controller.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.reloads
	s.reloads = nil
	return out
}

func (s *AnimControllerSystem) Update(w *ecs.World) {
	if s == nil || w == nil {
		return
	}
	s.applyReloads(w)

	s.jobs = s.jobs[:0]
	ecs.ForEach(w, component.AnimControllerComponent.Kind(), func(e ecs.Entity, c *component.AnimController) {
		if !s.ensureInstance(e, c) {
			return
		}
		if c.Instance.DefaultSet() != c.DefaultSet {
			c.Instance.SetDefaultSet(c.DefaultSet)
			c.DefaultSet = c.Instance.DefaultSet()
		}
		for name, v := range c.Inputs {
			c.Instance.SetInput(name, v)
		}
		s.jobs = append(s.jobs, tickJob{e: e, c: c})
	})
	if len(s.jobs) == 0 {
		return
	}

	g, _ := errgroup.WithContext(context.Background())
	if s.Workers > 0 {
		g.SetLimit(s.Workers)
	}
	for i := range s.jobs {
		job := &s.jobs[i]
		g.Go(func() error {
			job.out = job.c.Instance.Tick(s.DT)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(s.jobs, func(a, b tickJob) int {
		return int(a.e.Index()) - int(b.e.Index())
	})
	for i := range s.jobs {
		s.writeBack(w, &s.jobs[i])
	}
	s.share(w)
}

func (s *AnimControllerSystem) pose(w *ecs.World, e ecs.Entity) *component.Pose {
	pose, ok := ecs.Get(w, e, component.PoseComponent.Kind())
	if ok {
		return pose
	}
	pose = &component.Pose{}
	if err := ecs.Add(w, e, component.PoseComponent.Kind(), pose); err != nil {
		s.log().WithError(err).WithField("entity", e).Error("anim: add pose")
		return nil
	}
	return pose
}

func (s *AnimControllerSystem) writeBack(w *ecs.World, job *tickJob) {
	pose := s.pose(w, job.e)
	if pose == nil {
		return
	}
	pose.Samples = append(pose.Samples[:0], job.out.Pose...)
	pose.Held = job.out.Held
	res := job.c.Instance.Resource()
	pose.State = res.Graph.Nodes[job.c.Instance.ActiveState()].Name

	if queue, ok := ecs.Get(w, job.e, component.AnimEventsComponent.Kind()); ok {
		queue.Events = append(queue.Events[:0], job.out.Events...)
	}
	for _, ev := range job.out.Events {
		w.Events().Push(ecs.Event{Type: EventPrefix + string(ev.Kind), Entity: job.e, Data: ev})
	}
}

// share copies the pose of each SharedAnimController parent to the entities
// sharing it. Parents without a controller of their own are skipped.
func (s *AnimControllerSystem) share(w *ecs.World) {
	ecs.ForEach(w, component.SharedAnimControllerComponent.Kind(), func(e ecs.Entity, sh *component.SharedAnimController) {
		parent := ecs.Entity(sh.Parent)
		if parent == e || !ecs.Has(w, parent, component.AnimControllerComponent.Kind()) {
			return
		}
		src, ok := ecs.Get(w, parent, component.PoseComponent.Kind())
		if !ok {
			return
		}
		dst := s.pose(w, e)
		if dst == nil {
			return
		}
		dst.Samples = append(dst.Samples[:0], src.Samples...)
		dst.State = src.State
		dst.Held = src.Held
	})
}

// ensureInstance resolves the resource and creates the instance on demand.
func (s *AnimControllerSystem) ensureInstance(e ecs.Entity, c *component.AnimController) bool {
	if c.Instance != nil {
		return true
	}
	if c.Resource == nil {
		if s.Resources == nil || c.Path == "" || s.failed[c.Path] {
			return false
		}
		res, err := s.Resources.Controller(c.Path)
		if err != nil {
			if s.failed == nil {
				s.failed = make(map[string]bool)
			}
			s.failed[c.Path] = true
			s.log().WithError(err).WithFields(logrus.Fields{"entity": e, "controller": c.Path}).Error("anim: controller failed to load")
			return false
		}
		c.Resource = res
	}
	in, err := c.Resource.CreateInstanceInSet(c.DefaultSet)
	if err != nil {
		return false
	}
	in.Entity = uint64(e)
	c.DefaultSet = in.DefaultSet()
	c.Instance = in
	return true
}

// applyReloads swaps in queued resources. Inputs are carried over by name and
// the new instance starts on its entry chain.
func (s *AnimControllerSystem) applyReloads(w *ecs.World) {
	reloads := s.takeReloads()
	if len(reloads) == 0 {
		return
	}
	for path, res := range reloads {
		if res.State() != controller.StateReady {
			s.log().WithError(res.Err()).WithField("controller", path).Warn("anim: reload skipped, keeping previous controller")
			continue
		}
		delete(s.failed, path)
		count := 0
		ecs.ForEach(w, component.AnimControllerComponent.Kind(), func(e ecs.Entity, c *component.AnimController) {
			if c.Path != path {
				return
			}
			prev := c.Instance
			c.Resource = res
			c.Instance = nil
			if !s.ensureInstance(e, c) {
				return
			}
			if prev != nil {
				carryInputs(prev, c.Instance)
			}
			count++
		})
		s.log().WithFields(logrus.Fields{"controller": path, "instances": count}).Info("anim: controller reloaded")
	}
}

func carryInputs(from, to *controller.Instance) {
	decl := &from.Resource().Decl
	for i := 0; i < decl.InputsCount; i++ {
		in := decl.Inputs[i]
		if in.Type == anim.TypeEmpty {
			continue
		}
		to.SetInput(in.Name, from.Value(i))
	}
}
