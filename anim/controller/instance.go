package controller

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/animgraph/anim"
)

// Sample is one weighted clip the pose collaborator should blend. Set is the
// animation set Clip was resolved in.
type Sample struct {
	Node   int
	Set    int
	Clip   uint32
	Time   float32
	Weight float32
	Mask   int
}

// Output is the result of a tick. Pose is owned by the instance and valid
// until the next Tick.
type Output struct {
	Pose        []Sample
	Events      []anim.Event
	Transitions int
	// Held is set when a clip was missing and the previous pose was kept.
	Held bool
}

type transition struct {
	from     int
	fromTime float32
	fromSet  int
	elapsed  float32
	duration float32
}

func (t *transition) active() bool {
	return t.from >= 0
}

// Instance is the per-entity runtime view of a Resource. It is not safe for
// concurrent use; distinct instances may tick in parallel.
type Instance struct {
	Entity uint64

	res        *Resource
	input      []byte
	defaultSet int

	active []int
	trans  []transition
	time   []float32
	// set a leaf resolves its clips in, fixed when the leaf is entered
	set    []int
	warned []bool

	events  anim.EventStream
	pose    []Sample
	scratch []Sample
	missing bool
	log     logrus.FieldLogger
}

func newInstance(res *Resource, log logrus.FieldLogger, set int) *Instance {
	n := len(res.Graph.Nodes)
	in := &Instance{
		res:    res,
		input:  make([]byte, res.Decl.Size()),
		active: make([]int, n),
		trans:  make([]transition, n),
		time:   make([]float32, n),
		set:    make([]int, n),
		warned: make([]bool, n),
		log:    log,
	}
	for i := range in.active {
		in.active[i] = -1
		in.trans[i].from = -1
	}
	in.SetDefaultSet(set)
	rc := in.context(0)
	in.enter(res.Graph.Root, &rc)
	return in
}

// Resource returns the shared, read-only resource the instance runs.
func (in *Instance) Resource() *Resource {
	return in.res
}

func (in *Instance) context(dt float32) anim.RunningContext {
	return anim.RunningContext{
		TimeDelta:   dt,
		Input:       in.input,
		Decl:        &in.res.Decl,
		CurrentNode: -1,
		CurrentEdge: -1,
		AnimSet:     in.defaultSet,
		Events:      &in.events,
		Entity:      in.Entity,
	}
}

// DefaultSet returns the animation set newly entered states resolve their
// clips in.
func (in *Instance) DefaultSet() int {
	return in.defaultSet
}

// SetDefaultSet selects the animation set for states entered from now on.
// The active states and running cross-fades keep the clips they resolved
// when they were entered. An unknown set falls back to set 0.
func (in *Instance) SetDefaultSet(set int) {
	if set < 0 || (len(in.res.SetNames) > 0 && set >= len(in.res.SetNames)) {
		in.log.WithFields(logrus.Fields{"set": set, "sets": len(in.res.SetNames)}).Warn("controller: animation set out of range, using default")
		set = 0
	}
	in.defaultSet = set
}

// SetValue writes an input. Ints are accepted for float inputs; every other
// type mismatch is rejected.
func (in *Instance) SetValue(idx int, v anim.Value) bool {
	decl := &in.res.Decl
	if idx < 0 || idx >= decl.InputsCount {
		return false
	}
	def := decl.Inputs[idx]
	if v.Type == anim.TypeInt && def.Type == anim.TypeFloat {
		v = anim.FloatValue(float32(v.I))
	}
	if v.Type != def.Type || def.Type == anim.TypeEmpty {
		return false
	}
	anim.WriteValue(in.input, def.Offset, v)
	return true
}

func (in *Instance) SetFloat(idx int, f float32) bool { return in.SetValue(idx, anim.FloatValue(f)) }
func (in *Instance) SetInt(idx int, i int32) bool     { return in.SetValue(idx, anim.IntValue(i)) }
func (in *Instance) SetBool(idx int, b bool) bool     { return in.SetValue(idx, anim.BoolValue(b)) }

// SetInput writes the input called name.
func (in *Instance) SetInput(name string, v anim.Value) bool {
	return in.SetValue(in.res.Decl.InputIdx(name), v)
}

// Value reads an input back.
func (in *Instance) Value(idx int) anim.Value {
	decl := &in.res.Decl
	if idx < 0 || idx >= decl.InputsCount || decl.Inputs[idx].Type == anim.TypeEmpty {
		return anim.Value{Type: anim.TypeEmpty}
	}
	return anim.ReadValue(in.input, decl.Inputs[idx].Offset, decl.Inputs[idx].Type)
}

// ActiveState returns the deepest active node.
func (in *Instance) ActiveState() int {
	n := in.res.Graph.Root
	for in.res.Graph.Nodes[n].Kind == KindSubGraph && in.active[n] >= 0 {
		n = in.active[n]
	}
	return n
}

// ActivePath lists the active node names from the root's child downwards.
func (in *Instance) ActivePath() []string {
	var path []string
	n := in.res.Graph.Root
	for in.res.Graph.Nodes[n].Kind == KindSubGraph && in.active[n] >= 0 {
		n = in.active[n]
		path = append(path, in.res.Graph.Nodes[n].Name)
	}
	return path
}

// Tick advances the instance by dt seconds: transitions are evaluated first
// with the current inputs, then local times advance and the pose is
// gathered.
func (in *Instance) Tick(dt float32) Output {
	rc := in.context(dt)
	fired := in.step(in.res.Graph.Root, &rc)

	in.missing = false
	in.scratch = in.scratch[:0]
	in.collect(in.res.Graph.Root, 1, nil, &rc)

	out := Output{Transitions: fired, Events: in.events.Drain()}
	if in.missing {
		out.Held = true
	} else {
		in.pose, in.scratch = in.scratch, in.pose
	}
	out.Pose = in.pose
	return out
}

// step evaluates transitions of sub-graph n and advances its active chain.
func (in *Instance) step(n int, rc *anim.RunningContext) int {
	g := &in.res.Graph
	node := &g.Nodes[n]
	if node.Kind != KindSubGraph {
		in.advance(n, rc)
		return 0
	}
	cur := in.active[n]
	if cur < 0 {
		return 0
	}

	fired := 0
	tr := &in.trans[n]
	for _, ei := range node.Sub.Edges {
		e := &g.Edges[ei]
		if e.From != cur {
			continue
		}
		// do not restart a self loop that is still blending in
		if e.To == cur && tr.active() {
			continue
		}
		rc.CurrentNode = cur
		rc.CurrentEdge = ei
		if !e.Condition.Eval(rc) {
			continue
		}
		in.exit(cur, rc)
		*tr = transition{from: -1}
		if e.BlendDuration > 0 {
			*tr = transition{from: cur, fromTime: in.time[cur], fromSet: in.set[cur], duration: e.BlendDuration}
		}
		in.active[n] = e.To
		in.enter(e.To, rc)
		fired = 1
		break
	}
	rc.CurrentNode = -1
	rc.CurrentEdge = -1

	if tr.active() {
		tr.elapsed += rc.TimeDelta
		if tr.elapsed >= tr.duration {
			*tr = transition{from: -1}
		} else if g.Nodes[tr.from].Kind != KindSubGraph {
			tr.fromTime = in.advanceTime(tr.from, tr.fromTime, tr.fromSet, rc, false)
		}
	}

	return fired + in.step(in.active[n], rc)
}

func (in *Instance) enter(n int, rc *anim.RunningContext) {
	node := &in.res.Graph.Nodes[n]
	in.time[n] = 0
	in.set[n] = rc.AnimSet
	for _, name := range node.OnEnter {
		rc.Events.Push(anim.Event{Kind: anim.EventEnter, Name: name, Node: n, Entity: rc.Entity})
	}
	if node.Kind != KindSubGraph {
		return
	}
	in.trans[n] = transition{from: -1}
	in.active[n] = node.Sub.Entry
	if node.Sub.Entry >= 0 {
		in.enter(node.Sub.Entry, rc)
	}
}

func (in *Instance) exit(n int, rc *anim.RunningContext) {
	node := &in.res.Graph.Nodes[n]
	if node.Kind == KindSubGraph && in.active[n] >= 0 {
		in.exit(in.active[n], rc)
	}
	for _, name := range node.OnExit {
		rc.Events.Push(anim.Event{Kind: anim.EventExit, Name: name, Node: n, Entity: rc.Entity})
	}
}

func (in *Instance) advance(n int, rc *anim.RunningContext) {
	in.time[n] = in.advanceTime(n, in.time[n], in.set[n], rc, true)
}

// advanceTime moves a leaf's local time forward, wrapping or clamping to the
// clip length. A blend node uses its longest child clip. Time holds while no
// clip is available. Clip markers crossed on the way are emitted when emit is
// set.
func (in *Instance) advanceTime(n int, t float32, set int, rc *anim.RunningContext, emit bool) float32 {
	node := &in.res.Graph.Nodes[n]
	var (
		speed  float32
		looped bool
		clip   Clip
		length float32
	)
	switch node.Kind {
	case KindSingle:
		speed, looped = node.Single.Speed, node.Single.Looped
		if c, ok := in.clip(set, node.Single.Clip); ok {
			clip, length = c, c.Duration()
		}
	case KindBlend:
		speed, looped = node.Blend.Speed, node.Blend.Looped
		for _, child := range node.Blend.Children {
			if c, ok := in.clip(set, child.Clip); ok {
				length = max(length, c.Duration())
			}
		}
	default:
		return t
	}
	if length <= 0 {
		return t
	}

	next := t + rc.TimeDelta*speed
	if emit && clip != nil {
		in.emitClipEvents(n, clip, t, next, looped, rc)
	}
	if looped {
		return float32(math.Mod(float64(next), float64(length)))
	}
	return min(next, length)
}

// emitClipEvents pushes the markers in [from, to), wrapping for looped clips.
// A clamped clip reports its remaining markers once when it reaches the end.
func (in *Instance) emitClipEvents(n int, clip Clip, from, to float32, looped bool, rc *anim.RunningContext) {
	length := clip.Duration()
	if !looped && from >= length {
		return
	}
	for _, ev := range clip.Events() {
		var hit bool
		switch {
		case looped && to >= length:
			hit = ev.Time >= from || ev.Time < to-length
		case looped:
			hit = ev.Time >= from && ev.Time < to
		default:
			hit = ev.Time >= from && (ev.Time < to || to >= length)
		}
		if hit {
			rc.Events.Push(anim.Event{Kind: anim.EventClip, Name: ev.Name, Node: n, Entity: rc.Entity})
		}
	}
}

func (in *Instance) clip(set int, hash uint32) (Clip, bool) {
	clip, ok := in.res.Sets.Animation(set, hash)
	if !ok || !clip.Ready() {
		return nil, false
	}
	return clip, true
}

// leafState is the local time and resolved set a leaf is sampled with.
type leafState struct {
	time float32
	set  int
}

// collect appends the weighted samples of node n. from overrides the state
// of a leaf that is fading out.
func (in *Instance) collect(n int, weight float32, from *leafState, rc *anim.RunningContext) {
	if weight <= 0 {
		return
	}
	g := &in.res.Graph
	node := &g.Nodes[n]
	ls := leafState{time: in.time[n], set: in.set[n]}
	if from != nil {
		ls = *from
	}

	switch node.Kind {
	case KindSingle:
		clip, ok := in.clip(ls.set, node.Single.Clip)
		if !ok {
			in.missingClip(n, ls.set, node.Single.Clip, rc)
			return
		}
		in.scratch = append(in.scratch, Sample{Node: n, Set: ls.set, Clip: node.Single.Clip, Time: clipTime(ls.time, clip, node.Single.Looped), Weight: weight, Mask: -1})
	case KindBlend:
		in.collectBlend(n, node, ls, weight, rc)
	case KindSubGraph:
		cur := in.active[n]
		if cur < 0 {
			return
		}
		tr := &in.trans[n]
		if !tr.active() {
			in.collect(cur, weight, nil, rc)
			return
		}
		alpha := tr.elapsed / tr.duration
		in.collect(cur, weight*alpha, nil, rc)
		var fading *leafState
		if g.Nodes[tr.from].Kind != KindSubGraph {
			fading = &leafState{time: tr.fromTime, set: tr.fromSet}
		}
		in.collect(tr.from, weight*(1-alpha), fading, rc)
	}
}

func (in *Instance) collectBlend(n int, node *Node, ls leafState, weight float32, rc *anim.RunningContext) {
	children := node.Blend.Children
	if len(children) == 0 {
		return
	}
	v := in.Value(node.Blend.Input)
	x := v.F
	if v.Type == anim.TypeInt {
		x = float32(v.I)
	}

	lo, hi, alpha := 0, 0, float32(0)
	switch {
	case x <= children[0].Value:
	case x >= children[len(children)-1].Value:
		lo, hi = len(children)-1, len(children)-1
	default:
		for i := 1; i < len(children); i++ {
			if x <= children[i].Value {
				lo, hi = i-1, i
				span := children[i].Value - children[i-1].Value
				if span > 0 {
					alpha = (x - children[i-1].Value) / span
				}
				break
			}
		}
	}

	add := func(idx int, w float32) {
		if w <= 0 {
			return
		}
		child := children[idx]
		clip, ok := in.clip(ls.set, child.Clip)
		if !ok {
			in.missingClip(n, ls.set, child.Clip, rc)
			return
		}
		in.scratch = append(in.scratch, Sample{Node: n, Set: ls.set, Clip: child.Clip, Time: clipTime(ls.time, clip, node.Blend.Looped), Weight: w, Mask: node.Blend.Mask})
	}
	if lo == hi {
		add(lo, weight)
		return
	}
	add(lo, weight*(1-alpha))
	add(hi, weight*alpha)
}

func clipTime(t float32, clip Clip, looped bool) float32 {
	length := clip.Duration()
	if length <= 0 {
		return 0
	}
	if looped {
		return float32(math.Mod(float64(t), float64(length)))
	}
	return min(t, length)
}

func (in *Instance) missingClip(n, set int, hash uint32, rc *anim.RunningContext) {
	in.missing = true
	if in.warned[n] {
		return
	}
	in.warned[n] = true
	in.log.WithFields(logrus.Fields{
		"entity": rc.Entity,
		"state":  in.res.Graph.Nodes[n].Name,
		"clip":   hash,
		"set":    set,
	}).Warn("controller: clip missing or not ready, holding previous pose")
}
