package system

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/animgraph/anim"
	"github.com/milk9111/animgraph/anim/controller"
	"github.com/milk9111/animgraph/ecs"
	"github.com/milk9111/animgraph/ecs/component"
)

type clip struct{ d float32 }

func (c clip) Duration() float32              { return c.d }
func (c clip) Ready() bool                    { return true }
func (c clip) Events() []controller.ClipEvent { return nil }

type resources map[string]*controller.Resource

func (r resources) Controller(path string) (*controller.Resource, error) {
	res, ok := r[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return res, nil
}

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// locomotion builds Idle <-> Run on a float "speed" input. Run announces
// itself with an enter event named enterName.
func locomotion(t *testing.T, path, enterName string) *controller.Resource {
	t.Helper()
	r := controller.NewResource(path)
	r.Log = quiet()
	idx := r.Decl.AddInput()
	if err := r.Decl.SetInput(idx, anim.TypeFloat, "speed"); err != nil {
		t.Fatal(err)
	}
	idle := r.AddAnimation(0, "idle", "idle", clip{1})
	run := r.AddAnimation(0, "run", "run", clip{0.5})
	i, _ := r.Graph.AddNode(r.Graph.Root, controller.Node{Kind: controller.KindSingle, Name: "Idle", Single: controller.Single{Clip: idle, Looped: true}})
	n, _ := r.Graph.AddNode(r.Graph.Root, controller.Node{Kind: controller.KindSingle, Name: "Run", OnEnter: []string{enterName}, Single: controller.Single{Clip: run, Looped: true}})
	for _, e := range []struct {
		from, to int
		expr     string
	}{{i, n, "speed > 0.1"}, {n, i, "speed <= 0.1"}} {
		ei, err := r.Graph.AddEdge(e.from, e.to, 0)
		if err != nil {
			t.Fatal(err)
		}
		if err := r.Graph.Edges[ei].Condition.Compile(e.expr, &r.Decl); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Create(); err != nil {
		t.Fatal(err)
	}
	return r
}

func spawn(t *testing.T, w *ecs.World, path string, speed float32) ecs.Entity {
	t.Helper()
	e := ecs.CreateEntity(w)
	c := &component.AnimController{Path: path}
	c.Set("speed", anim.FloatValue(speed))
	if err := ecs.Add(w, e, component.AnimControllerComponent.Kind(), c); err != nil {
		t.Fatal(err)
	}
	return e
}

func state(t *testing.T, w *ecs.World, e ecs.Entity) string {
	t.Helper()
	pose, ok := ecs.Get(w, e, component.PoseComponent.Kind())
	if !ok {
		t.Fatalf("entity %v has no pose", e)
	}
	return pose.State
}

func TestAnimControllerSystemTicks(t *testing.T) {
	w := ecs.NewWorld()
	sys := NewAnimControllerSystem(1.0/60, 2)
	sys.Log = quiet()
	sys.Resources = resources{"hero": locomotion(t, "hero", "run_start")}

	var ents []ecs.Entity
	for i := 0; i < 8; i++ {
		ents = append(ents, spawn(t, w, "hero", float32(i%2)))
	}
	ecs.Add(w, ents[0], component.AnimEventsComponent.Kind(), &component.AnimEvents{})

	sys.Update(w)
	var runs []ecs.Entity
	for i, e := range ents {
		want := "Idle"
		if i%2 == 1 {
			want = "Run"
			runs = append(runs, e)
		}
		if got := state(t, w, e); got != want {
			t.Fatalf("entity %d: expected %s, got %s", i, want, got)
		}
	}

	events := w.Events().Drain()
	if len(events) != len(runs) {
		t.Fatalf("expected %d events, got %d", len(runs), len(events))
	}
	for i, ev := range events {
		if ev.Entity != runs[i] || ev.Type != EventPrefix+"enter" {
			t.Fatalf("event %d: unexpected %+v", i, ev)
		}
		if data := ev.Data.(anim.Event); data.Name != "run_start" || data.Entity != uint64(runs[i]) {
			t.Fatalf("event %d: unexpected payload %+v", i, data)
		}
	}

	c, _ := ecs.Get(w, ents[0], component.AnimControllerComponent.Kind())
	c.Set("speed", anim.FloatValue(2))
	sys.Update(w)
	if got := state(t, w, ents[0]); got != "Run" {
		t.Fatalf("expected entity 0 to run, got %s", got)
	}
	q, _ := ecs.Get(w, ents[0], component.AnimEventsComponent.Kind())
	if len(q.Events) != 1 || q.Events[0].Name != "run_start" {
		t.Fatalf("expected per-entity event queue, got %+v", q.Events)
	}
}

func TestAnimControllerSystemReload(t *testing.T) {
	w := ecs.NewWorld()
	sys := NewAnimControllerSystem(0.1, 0)
	sys.Log = quiet()
	sys.Resources = resources{"hero": locomotion(t, "hero", "v1")}
	e := spawn(t, w, "hero", 1)
	other := spawn(t, w, "hero", 0)

	sys.Update(w)
	if state(t, w, e) != "Run" {
		t.Fatalf("expected Run before reload")
	}
	w.Events().Drain()

	// a failed resource is ignored
	broken := controller.NewResource("hero")
	broken.Log = quiet()
	broken.Load([]byte("nope"), nil)
	sys.QueueReload(broken)
	sys.Update(w)
	c, _ := ecs.Get(w, e, component.AnimControllerComponent.Kind())
	if c.Resource == broken {
		t.Fatalf("failed resource must not replace the running one")
	}

	v2 := locomotion(t, "hero", "v2")
	sys.QueueReload(v2)
	c.Inputs = nil
	sys.Update(w)

	if c.Resource != v2 {
		t.Fatalf("expected reloaded resource")
	}
	if got := c.Instance.Value(0); got.F != 1 {
		t.Fatalf("expected speed to carry over, got %v", got)
	}
	if state(t, w, e) != "Run" || state(t, w, other) != "Idle" {
		t.Fatalf("unexpected states after reload")
	}
	events := w.Events().Drain()
	if len(events) != 1 || events[0].Data.(anim.Event).Name != "v2" {
		t.Fatalf("expected one v2 enter event, got %+v", events)
	}
}

func TestAnimControllerSystemMissingResource(t *testing.T) {
	w := ecs.NewWorld()
	sys := NewAnimControllerSystem(0.1, 1)
	sys.Log = quiet()
	sys.Resources = resources{}
	e := spawn(t, w, "ghost", 0)

	sys.Update(w)
	sys.Update(w)
	if _, ok := ecs.Get(w, e, component.PoseComponent.Kind()); ok {
		t.Fatalf("unresolved controller should not produce a pose")
	}
	if !sys.failed["ghost"] {
		t.Fatalf("expected the failure to be remembered")
	}
}

func TestAnimControllerSystemDefaultSet(t *testing.T) {
	w := ecs.NewWorld()
	sys := NewAnimControllerSystem(0.1, 1)
	sys.Log = quiet()
	res := locomotion(t, "hero", "run")
	res.SetNames = []string{"default", "armed"}
	sys.Resources = resources{"hero": res}
	e := spawn(t, w, "hero", 0)

	sys.Update(w)
	c, _ := ecs.Get(w, e, component.AnimControllerComponent.Kind())
	c.DefaultSet = 1
	sys.Update(w)
	if got := c.Instance.DefaultSet(); got != 1 {
		t.Fatalf("expected set 1, got %d", got)
	}

	c.DefaultSet = 7
	sys.Update(w)
	if got := c.Instance.DefaultSet(); got != 0 || c.DefaultSet != 0 {
		t.Fatalf("expected fallback to set 0, got instance %d component %d", got, c.DefaultSet)
	}
}

func TestAnimControllerSystemInitialSet(t *testing.T) {
	w := ecs.NewWorld()
	sys := NewAnimControllerSystem(0.1, 1)
	sys.Log = quiet()
	res := locomotion(t, "hero", "run")
	res.SetNames = []string{"default", "armed"}
	res.AddAnimation(1, "idle", "idle_armed", clip{2})
	sys.Resources = resources{"hero": res}
	e := spawn(t, w, "hero", 0)
	c, _ := ecs.Get(w, e, component.AnimControllerComponent.Kind())
	c.DefaultSet = 1

	sys.Update(w)
	pose, _ := ecs.Get(w, e, component.PoseComponent.Kind())
	if len(pose.Samples) != 1 || pose.Samples[0].Set != 1 || pose.Held {
		t.Fatalf("expected the entry state resolved in set 1, got %+v", pose)
	}
}

func TestAnimControllerSystemSharedController(t *testing.T) {
	w := ecs.NewWorld()
	sys := NewAnimControllerSystem(0.1, 2)
	sys.Log = quiet()
	sys.Resources = resources{"hero": locomotion(t, "hero", "run")}
	parent := spawn(t, w, "hero", 1)

	share := func(p ecs.Entity) ecs.Entity {
		e := ecs.CreateEntity(w)
		if err := ecs.Add(w, e, component.SharedAnimControllerComponent.Kind(), &component.SharedAnimController{Parent: uint64(p)}); err != nil {
			t.Fatal(err)
		}
		return e
	}
	follower := share(parent)
	orphan := share(ecs.Entity(0))
	self := share(ecs.Entity(0))
	sh, _ := ecs.Get(w, self, component.SharedAnimControllerComponent.Kind())
	sh.Parent = uint64(self)

	sys.Update(w)
	want, _ := ecs.Get(w, parent, component.PoseComponent.Kind())
	got, ok := ecs.Get(w, follower, component.PoseComponent.Kind())
	if !ok || got.State != "Run" || len(got.Samples) != len(want.Samples) || got.Samples[0] != want.Samples[0] {
		t.Fatalf("follower pose %+v, want %+v", got, want)
	}
	for _, e := range []ecs.Entity{orphan, self} {
		if ecs.Has(w, e, component.PoseComponent.Kind()) {
			t.Fatalf("entity %v without a valid parent got a pose", e)
		}
	}

	pc, _ := ecs.Get(w, parent, component.AnimControllerComponent.Kind())
	pc.Set("speed", anim.FloatValue(0))
	sys.Update(w)
	if got.State != "Idle" {
		t.Fatalf("follower did not track the parent, state %s", got.State)
	}

	ecs.DestroyEntity(w, parent)
	sys.Update(w)
	if got.State != "Idle" {
		t.Fatalf("pose changed after the parent died: %s", got.State)
	}
}
