package prefabs

import (
	"errors"
	"fmt"
	"slices"

	"github.com/milk9111/animgraph/anim"
	"github.com/milk9111/animgraph/anim/condition"
	"github.com/milk9111/animgraph/anim/controller"
)

var ErrInvalidSpec = errors.New("prefabs: invalid controller spec")

// BuildWarning reports a problem that does not stop the controller from
// loading, such as a transition whose condition does not compile.
type BuildWarning struct {
	State string
	From  string
	To    string
	Expr  string
	Err   error
}

func (w BuildWarning) String() string {
	if w.From != "" {
		return fmt.Sprintf("%s: transition %s -> %s when %q: %v", w.State, w.From, w.To, w.Expr, w.Err)
	}
	return fmt.Sprintf("%s: %v", w.State, w.Err)
}

type builder struct {
	spec     *ControllerSpec
	res      *controller.Resource
	clips    map[string]bool
	warnings []BuildWarning
}

// Build turns spec into a ready resource. Transitions that fail to compile
// are kept with empty bytecode and reported as warnings; structural problems
// are errors.
func Build(spec *ControllerSpec, loader controller.ClipLoader) (*controller.Resource, []BuildWarning, error) {
	b := &builder{spec: spec, res: controller.NewResource(spec.Name), clips: map[string]bool{}}
	if err := b.build(); err != nil {
		return nil, b.warnings, fmt.Errorf("prefabs: build %s: %w", spec.Name, err)
	}
	b.res.LoadClips(loader)
	if err := b.res.Create(); err != nil {
		return nil, b.warnings, fmt.Errorf("prefabs: build %s: %w", spec.Name, err)
	}
	return b.res, b.warnings, nil
}

// BuildFile loads and builds the controller spec at filename.
func BuildFile(filename string, loader controller.ClipLoader) (*controller.Resource, []BuildWarning, error) {
	spec, err := LoadControllerSpec(filename)
	if err != nil {
		return nil, nil, err
	}
	return Build(spec, loader)
}

func (b *builder) build() error {
	r := b.res
	for _, in := range b.spec.Inputs {
		typ, ok := anim.ParseType(in.Type)
		if !ok || typ == anim.TypeEmpty {
			return fmt.Errorf("%w: input %q has type %q", ErrInvalidSpec, in.Name, in.Type)
		}
		idx := r.Decl.AddInput()
		if idx < 0 {
			return fmt.Errorf("%w: more than %d inputs", ErrInvalidSpec, anim.MaxInputs)
		}
		if err := r.Decl.SetInput(idx, typ, in.Name); err != nil {
			return fmt.Errorf("input %q: %w", in.Name, err)
		}
	}
	for _, c := range b.spec.Constants {
		idx := r.Decl.AddConstant()
		if idx < 0 {
			return fmt.Errorf("%w: more than %d constants", ErrInvalidSpec, anim.MaxConstants)
		}
		if c.Value == nil || c.Value.Type == anim.TypeEmpty {
			return fmt.Errorf("%w: constant %q has no value", ErrInvalidSpec, c.Name)
		}
		if err := r.Decl.SetConstant(idx, c.Value.Value, c.Name); err != nil {
			return fmt.Errorf("constant %q: %w", c.Name, err)
		}
	}

	if len(b.spec.Sets) > 0 {
		r.SetNames = slices.Clone(b.spec.Sets)
	}
	for _, c := range b.spec.Clips {
		set := 0
		if c.Set != "" {
			set = slices.Index(r.SetNames, c.Set)
			if set < 0 {
				return fmt.Errorf("%w: clip %q uses unknown set %q", ErrInvalidSpec, c.Name, c.Set)
			}
		}
		path := c.Path
		if path == "" {
			path = c.Name
		}
		r.AddAnimation(set, c.Name, path, nil)
		b.clips[c.Name] = true
	}

	for _, m := range b.spec.Masks {
		if r.MaskIdx(m.Name) >= 0 {
			return fmt.Errorf("%w: duplicate mask %q", ErrInvalidSpec, m.Name)
		}
		r.Masks = append(r.Masks, controller.NewBoneMask(m.Name, m.Bones...))
	}
	r.MaxRootRotationSpeed = b.spec.RootRotationSpeed

	root := b.spec.Root
	if root.Name == "" {
		root.Name = "root"
	}
	r.Graph.Nodes[r.Graph.Root].Name = root.Name
	r.Graph.Nodes[r.Graph.Root].OnEnter = root.OnEnter
	r.Graph.Nodes[r.Graph.Root].OnExit = root.OnExit
	return b.buildGraph(r.Graph.Root, &root)
}

func (b *builder) buildGraph(parent int, spec *StateSpec) error {
	g := &b.res.Graph
	names := make(map[string]int, len(spec.States))
	for i := range spec.States {
		st := &spec.States[i]
		if st.Name == "" {
			return fmt.Errorf("%w: unnamed state in %q", ErrInvalidSpec, spec.Name)
		}
		if _, dup := names[st.Name]; dup {
			return fmt.Errorf("%w: duplicate state %q in %q", ErrInvalidSpec, st.Name, spec.Name)
		}
		node, err := b.node(st)
		if err != nil {
			return err
		}
		idx, err := g.AddNode(parent, node)
		if err != nil {
			return err
		}
		names[st.Name] = idx
		if node.Kind == controller.KindSubGraph {
			if err := b.buildGraph(idx, st); err != nil {
				return err
			}
		}
	}

	if spec.Entry != "" {
		entry, ok := names[spec.Entry]
		if !ok {
			return fmt.Errorf("%w: entry %q of %q is not a state", ErrInvalidSpec, spec.Entry, spec.Name)
		}
		if err := g.SetEntry(parent, entry); err != nil {
			return err
		}
	}

	for _, t := range spec.Transitions {
		from, okFrom := names[t.From]
		to, okTo := names[t.To]
		if !okFrom || !okTo {
			return fmt.Errorf("%w: transition %s -> %s in %q references an unknown state", ErrInvalidSpec, t.From, t.To, spec.Name)
		}
		idx, err := g.AddEdge(from, to, t.Blend)
		if err != nil {
			return fmt.Errorf("transition %s -> %s: %w", t.From, t.To, err)
		}
		cond := &g.Edges[idx].Condition
		if err := cond.Compile(t.When, &b.res.Decl); err != nil {
			b.warnings = append(b.warnings, BuildWarning{State: spec.Name, From: t.From, To: t.To, Expr: t.When, Err: err})
		}
	}
	return nil
}

func (b *builder) node(st *StateSpec) (controller.Node, error) {
	n := controller.Node{Name: st.Name, OnEnter: st.OnEnter, OnExit: st.OnExit}
	switch st.kind() {
	case "single":
		if st.Clip == "" {
			return n, fmt.Errorf("%w: state %q has no clip", ErrInvalidSpec, st.Name)
		}
		n.Kind = controller.KindSingle
		n.Single = controller.Single{Clip: b.clip(st.Name, st.Clip), Looped: st.Loop, Speed: st.Speed}
	case "blend":
		in := b.res.Decl.InputIdx(st.Input)
		if in < 0 {
			return n, fmt.Errorf("%w: blend %q uses unknown input %q", ErrInvalidSpec, st.Name, st.Input)
		}
		mask := -1
		if st.Mask != "" {
			if mask = b.res.MaskIdx(st.Mask); mask < 0 {
				return n, fmt.Errorf("%w: blend %q uses unknown mask %q", ErrInvalidSpec, st.Name, st.Mask)
			}
		}
		n.Kind = controller.KindBlend
		n.Blend = controller.Blend{Input: in, Mask: mask, Looped: st.Loop, Speed: st.Speed}
		for _, c := range st.Children {
			n.Blend.Children = append(n.Blend.Children, controller.BlendChild{Clip: b.clip(st.Name, c.Clip), Value: c.Value})
		}
	case "graph":
		n.Kind = controller.KindSubGraph
	default:
		return n, fmt.Errorf("%w: state %q has unknown kind %q", ErrInvalidSpec, st.Name, st.Kind)
	}
	return n, nil
}

// clip hashes a clip reference, warning about names no set binds.
func (b *builder) clip(state, name string) uint32 {
	if !b.clips[name] {
		b.warnings = append(b.warnings, BuildWarning{State: state, Err: fmt.Errorf("clip %q is not bound in any set", name)})
	}
	return anim.HashName(name)
}

// CompileExpr compiles expr against the inputs and constants of spec, for
// tooling that checks a single condition.
func CompileExpr(spec *ControllerSpec, expr string) ([]byte, error) {
	b := &builder{spec: &ControllerSpec{Name: spec.Name, Inputs: spec.Inputs, Constants: spec.Constants}, res: controller.NewResource(spec.Name), clips: map[string]bool{}}
	if err := b.build(); err != nil {
		return nil, err
	}
	return condition.Compile(expr, &b.res.Decl)
}
