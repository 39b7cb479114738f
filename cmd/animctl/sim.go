package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/animgraph/anim"
	"github.com/milk9111/animgraph/config"
	"github.com/milk9111/animgraph/ecs"
	"github.com/milk9111/animgraph/ecs/component"
	"github.com/milk9111/animgraph/ecs/system"
	"github.com/milk9111/animgraph/logger"
	"github.com/milk9111/animgraph/prefabs"
	"github.com/milk9111/animgraph/script"
)

// scene is a world with one controlled entity, optionally driven by a script.
type scene struct {
	world  *ecs.World
	sched  *ecs.Scheduler
	anim   *system.AnimControllerSystem
	lib    *prefabs.Library
	entity ecs.Entity
	driver *script.Driver
	events []ecs.Event
	time   float64
}

// runScript feeds the driver script before the controllers tick.
func (s *scene) runScript(w *ecs.World) {
	ecs.ForEach(w, component.AnimControllerComponent.Kind(), func(e ecs.Entity, c *component.AnimController) {
		if err := s.driver.Update(s.time, c); err != nil {
			logger.Log.WithError(err).WithField("entity", e).Error("animctl: script failed")
		}
	})
}

// collectEvents takes the controller events of the frame before the
// scheduler drops them.
func (s *scene) collectEvents(w *ecs.World) {
	s.events = append(s.events[:0], w.Events().Take(system.EventPrefix)...)
}

func newScene(cfg config.Config, ctrl, scriptPath string) (*scene, error) {
	clips, err := clipLibrary(cfg)
	if err != nil {
		return nil, err
	}
	lib := prefabs.NewLibrary(clips)
	res, err := lib.Controller(ctrl)
	if err != nil {
		return nil, err
	}

	s := &scene{world: ecs.NewWorld(), lib: lib}
	s.anim = system.NewAnimControllerSystem(cfg.DT(), cfg.Workers)
	s.anim.Resources = lib
	s.sched = ecs.NewScheduler()
	if scriptPath != "" {
		if s.driver, err = script.Load(scriptPath); err != nil {
			return nil, err
		}
		s.sched.Add(ecs.SystemFunc(s.runScript))
	}
	s.sched.Add(s.anim, ecs.SystemFunc(s.collectEvents))

	s.entity = ecs.CreateEntity(s.world)
	if err := ecs.Add(s.world, s.entity, component.AnimControllerComponent.Kind(), &component.AnimController{Path: res.Path}); err != nil {
		return nil, err
	}
	return s, nil
}

// step runs one frame and returns the active path and the frame's events.
func (s *scene) step(dt float32) (string, string) {
	s.sched.Update(s.world)
	s.time += float64(dt)

	c, ok := ecs.Get(s.world, s.entity, component.AnimControllerComponent.Kind())
	if !ok || c.Instance == nil {
		return "", ""
	}
	var events []anim.Event
	for _, ev := range s.events {
		if data, ok := ev.Data.(anim.Event); ok && ev.Entity == s.entity {
			events = append(events, data)
		}
	}
	return strings.Join(c.Instance.ActivePath(), "/"), formatEvents(events)
}

// runSim ticks the controller at the configured rate and prints every frame
// where the active state changed or events fired.
func runSim(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("sim", flag.ExitOnError)
	ctrl := fs.String("controller", "controllers/hero.yaml", "controller spec or .act file")
	scriptPath := fs.String("script", "", "tengo driver script")
	seconds := fs.Float64("seconds", 5, "simulated time")
	verbose := fs.Bool("v", false, "print every frame")
	_ = fs.Parse(args)

	s, err := newScene(cfg, *ctrl, *scriptPath)
	if err != nil {
		return err
	}
	if cfg.Watch {
		return watchScene(cfg, s, *scriptPath, prefabs.DefaultDebounce)
	}

	dt := cfg.DT()
	frames := int(*seconds * float64(cfg.TickRate))
	last := ""
	for f := 0; f < frames; f++ {
		path, events := s.step(dt)
		if !*verbose && path == last && events == "" {
			continue
		}
		last = path
		fmt.Printf("%6d %7.3fs %-28s %s\n", f, s.time, path, events)
	}
	logger.Log.WithFields(logrus.Fields{"frames": frames, "controller": *ctrl}).Debug("animctl: simulation done")
	return nil
}
