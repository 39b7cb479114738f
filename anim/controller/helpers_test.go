package controller

import (
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/animgraph/anim"
)

type testClip struct {
	duration float32
	ready    bool
	events   []ClipEvent
}

func (c *testClip) Duration() float32   { return c.duration }
func (c *testClip) Ready() bool         { return c.ready }
func (c *testClip) Events() []ClipEvent { return c.events }

type clipLoader map[string]*testClip

func (l clipLoader) LoadClip(path string) (Clip, error) {
	c, ok := l[path]
	if !ok {
		return nil, fmt.Errorf("no clip at %q", path)
	}
	return c, nil
}

type skeleton int

func (s skeleton) BoneCount() int { return int(s) }

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func addInput(t *testing.T, r *Resource, typ anim.Type, name string) int {
	t.Helper()
	idx := r.Decl.AddInput()
	if err := r.Decl.SetInput(idx, typ, name); err != nil {
		t.Fatalf("set input %q: %v", name, err)
	}
	return idx
}

func addNode(t *testing.T, r *Resource, parent int, n Node) int {
	t.Helper()
	idx, err := r.Graph.AddNode(parent, n)
	if err != nil {
		t.Fatalf("add node %q: %v", n.Name, err)
	}
	return idx
}

func addEdge(t *testing.T, r *Resource, from, to int, expr string, blend float32) int {
	t.Helper()
	idx, err := r.Graph.AddEdge(from, to, blend)
	if err != nil {
		t.Fatalf("add edge: %v", err)
	}
	if err := r.Graph.Edges[idx].Condition.Compile(expr, &r.Decl); err != nil {
		t.Fatalf("compile %q: %v", expr, err)
	}
	return idx
}

func mustCreate(t *testing.T, r *Resource) {
	t.Helper()
	if err := r.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func mustInstance(t *testing.T, r *Resource) *Instance {
	t.Helper()
	in, err := r.CreateInstance()
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}
	return in
}

var testClips = clipLoader{
	"clips/idle": {duration: 1, ready: true, events: []ClipEvent{{Time: 0.5, Name: "breath"}}},
	"clips/run":  {duration: 0.5, ready: true, events: []ClipEvent{{Time: 0, Name: "step_l"}, {Time: 0.25, Name: "step_r"}}},
	"clips/walk": {duration: 1, ready: true},
	"clips/jump": {duration: 0.75, ready: true},
}

// idleRun is the two state controller: Idle -> Run when speed > 0.1 and back
// when speed <= 0.1.
func idleRun(t *testing.T, blend float32) (*Resource, int, int) {
	t.Helper()
	r := NewResource("test/idle_run")
	r.Log = quietLogger()
	addInput(t, r, anim.TypeFloat, "speed")
	idle := r.AddAnimation(0, "idle", "clips/idle", testClips["clips/idle"])
	run := r.AddAnimation(0, "run", "clips/run", testClips["clips/run"])

	idleN := addNode(t, r, r.Graph.Root, Node{Kind: KindSingle, Name: "Idle", Single: Single{Clip: idle, Looped: true}})
	runN := addNode(t, r, r.Graph.Root, Node{Kind: KindSingle, Name: "Run", Single: Single{Clip: run, Looped: true}})
	addEdge(t, r, idleN, runN, "speed > 0.1", blend)
	addEdge(t, r, runN, idleN, "speed <= 0.1", blend)
	mustCreate(t, r)
	return r, idleN, runN
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}
