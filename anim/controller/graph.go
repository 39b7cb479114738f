package controller

import (
	"fmt"
	"slices"

	"github.com/milk9111/animgraph/anim/condition"
)

// Kind tags the variant a Node holds. Persisted as a byte.
type Kind uint8

const (
	KindSingle Kind = iota
	KindBlend
	KindSubGraph
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindBlend:
		return "blend"
	case KindSubGraph:
		return "graph"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Single plays one clip.
type Single struct {
	Clip   uint32
	Looped bool
	Speed  float32
}

// BlendChild is a clip placed at Value along the blend input axis.
type BlendChild struct {
	Clip  uint32
	Value float32
}

// Blend is a one dimensional blend tree driven by a numeric input. Children
// are kept sorted by Value.
type Blend struct {
	Input    int
	Mask     int
	Looped   bool
	Speed    float32
	Children []BlendChild
}

// SubGraph runs its own active state over Children; Edges are evaluated in
// authored order.
type SubGraph struct {
	Entry    int
	Children []int
	Edges    []int
}

// Node is a tagged variant; only the field matching Kind is meaningful.
type Node struct {
	Kind    Kind
	Name    string
	Parent  int
	OnEnter []string
	OnExit  []string

	Single Single
	Blend  Blend
	Sub    SubGraph
}

// Edge is a condition guarded transition between two siblings.
type Edge struct {
	From          int
	To            int
	Condition     condition.Condition
	BlendDuration float32
}

// Graph is an arena of nodes and edges addressed by index. Cycles between
// states are allowed; the parent/child relation is a tree under Root.
type Graph struct {
	Nodes []Node
	Edges []Edge
	Root  int
}

// NewGraph returns a graph holding only an empty root sub-graph.
func NewGraph() Graph {
	return Graph{
		Nodes: []Node{{Kind: KindSubGraph, Name: "root", Parent: -1, Sub: SubGraph{Entry: -1}}},
		Root:  0,
	}
}

// AddNode appends n as a child of parent. The first child becomes the entry
// state.
func (g *Graph) AddNode(parent int, n Node) (int, error) {
	if parent < 0 || parent >= len(g.Nodes) || g.Nodes[parent].Kind != KindSubGraph {
		return -1, fmt.Errorf("%w: parent %d is not a sub-graph", ErrCorruptGraph, parent)
	}
	switch n.Kind {
	case KindSingle:
		if n.Single.Speed == 0 {
			n.Single.Speed = 1
		}
	case KindBlend:
		if n.Blend.Speed == 0 {
			n.Blend.Speed = 1
		}
		slices.SortStableFunc(n.Blend.Children, func(a, b BlendChild) int {
			switch {
			case a.Value < b.Value:
				return -1
			case a.Value > b.Value:
				return 1
			}
			return 0
		})
	case KindSubGraph:
		n.Sub = SubGraph{Entry: -1}
	}
	n.Parent = parent
	idx := len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	p := &g.Nodes[parent].Sub
	p.Children = append(p.Children, idx)
	if p.Entry < 0 {
		p.Entry = idx
	}
	return idx, nil
}

// AddEdge appends a transition between two states of the same sub-graph.
// The condition still has to be compiled by the caller.
func (g *Graph) AddEdge(from, to int, blend float32) (int, error) {
	if from < 0 || from >= len(g.Nodes) || to < 0 || to >= len(g.Nodes) {
		return -1, fmt.Errorf("%w: edge %d -> %d out of range", ErrCorruptGraph, from, to)
	}
	parent := g.Nodes[from].Parent
	if parent < 0 || g.Nodes[to].Parent != parent {
		return -1, fmt.Errorf("%w: edge %d -> %d crosses sub-graphs", ErrCorruptGraph, from, to)
	}
	if from == to && blend <= 0 {
		return -1, fmt.Errorf("%w: state %q", ErrZeroBlendSelfLoop, g.Nodes[from].Name)
	}
	idx := len(g.Edges)
	g.Edges = append(g.Edges, Edge{From: from, To: to, BlendDuration: blend})
	p := &g.Nodes[parent].Sub
	p.Edges = append(p.Edges, idx)
	return idx, nil
}

// SetEntry changes which child a sub-graph enters first.
func (g *Graph) SetEntry(sub, child int) error {
	if sub < 0 || sub >= len(g.Nodes) || g.Nodes[sub].Kind != KindSubGraph {
		return fmt.Errorf("%w: %d is not a sub-graph", ErrCorruptGraph, sub)
	}
	if !slices.Contains(g.Nodes[sub].Sub.Children, child) {
		return fmt.Errorf("%w: %d is not a child of %d", ErrCorruptGraph, child, sub)
	}
	g.Nodes[sub].Sub.Entry = child
	return nil
}

// Find returns the index of the first node called name, or -1.
func (g *Graph) Find(name string) int {
	for i := range g.Nodes {
		if g.Nodes[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the structural invariants every loaded graph must hold.
func (g *Graph) Validate() error {
	if g.Root < 0 || g.Root >= len(g.Nodes) {
		return fmt.Errorf("%w: root %d out of range", ErrCorruptGraph, g.Root)
	}
	if g.Nodes[g.Root].Kind != KindSubGraph || g.Nodes[g.Root].Parent != -1 {
		return fmt.Errorf("%w: root must be a parentless sub-graph", ErrCorruptGraph)
	}

	visited := make([]bool, len(g.Nodes))
	stack := []int{g.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			return fmt.Errorf("%w: node %d reachable twice", ErrCorruptGraph, n)
		}
		visited[n] = true
		node := &g.Nodes[n]
		if node.Kind > KindSubGraph {
			return fmt.Errorf("%w: node %d has unknown kind %d", ErrCorruptGraph, n, node.Kind)
		}
		if node.Kind != KindSubGraph {
			continue
		}
		switch {
		case len(node.Sub.Children) == 0 && node.Sub.Entry != -1:
			return fmt.Errorf("%w: empty sub-graph %q has entry %d", ErrCorruptGraph, node.Name, node.Sub.Entry)
		case len(node.Sub.Children) > 0 && !slices.Contains(node.Sub.Children, node.Sub.Entry):
			return fmt.Errorf("%w: entry %d of %q is not a child", ErrCorruptGraph, node.Sub.Entry, node.Name)
		}
		for _, c := range node.Sub.Children {
			if c < 0 || c >= len(g.Nodes) || c == g.Root {
				return fmt.Errorf("%w: child %d of %q out of range", ErrCorruptGraph, c, node.Name)
			}
			if g.Nodes[c].Parent != n {
				return fmt.Errorf("%w: child %d of %q has parent %d", ErrCorruptGraph, c, node.Name, g.Nodes[c].Parent)
			}
			stack = append(stack, c)
		}
		for _, e := range node.Sub.Edges {
			if e < 0 || e >= len(g.Edges) {
				return fmt.Errorf("%w: edge %d of %q out of range", ErrCorruptGraph, e, node.Name)
			}
			edge := &g.Edges[e]
			if !slices.Contains(node.Sub.Children, edge.From) || !slices.Contains(node.Sub.Children, edge.To) {
				return fmt.Errorf("%w: edge %d does not connect children of %q", ErrCorruptGraph, e, node.Name)
			}
			if edge.From == edge.To && edge.BlendDuration <= 0 {
				return fmt.Errorf("%w: state %q", ErrZeroBlendSelfLoop, g.Nodes[edge.From].Name)
			}
		}
	}
	for i, v := range visited {
		if !v {
			return fmt.Errorf("%w: node %d unreachable from root", ErrCorruptGraph, i)
		}
	}

	owned := make([]int, len(g.Edges))
	for i := range g.Nodes {
		if g.Nodes[i].Kind == KindSubGraph {
			for _, e := range g.Nodes[i].Sub.Edges {
				owned[e]++
			}
		}
	}
	for e, n := range owned {
		if n != 1 {
			return fmt.Errorf("%w: edge %d owned by %d sub-graphs", ErrCorruptGraph, e, n)
		}
	}
	return nil
}
