package controller

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/animgraph/anim"
	"github.com/milk9111/animgraph/logger"
)

var (
	ErrNotReady          = errors.New("controller: resource not ready")
	ErrVersionTooNew     = errors.New("controller: version too new")
	ErrTruncated         = errors.New("controller: truncated data")
	ErrBadMagic          = errors.New("controller: bad magic")
	ErrMalformed         = errors.New("controller: malformed data")
	ErrCorruptGraph      = errors.New("controller: corrupt graph")
	ErrZeroBlendSelfLoop = errors.New("controller: self transition without blend")
	ErrInvalidMask       = errors.New("controller: invalid mask")
	ErrInvalidBlend      = errors.New("controller: invalid blend input")
	ErrInUse             = errors.New("controller: resource has instances")
)

// State is the load state of a Resource.
type State int

const (
	StateEmpty State = iota
	StateReady
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateReady:
		return "ready"
	case StateFailure:
		return "failure"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Resource is the shared, immutable definition of an animation controller.
// Instances created from it only read it; a reload builds a new Resource.
// CreateInstance is not safe for concurrent use.
type Resource struct {
	Path                 string
	Decl                 anim.InputDecl
	SetNames             []string
	Entries              []AnimSetEntry
	Sets                 AnimSet
	Masks                []BoneMask
	Graph                Graph
	MaxRootRotationSpeed float32

	Log logrus.FieldLogger

	state     State
	err       error
	instanced bool
}

// NewResource returns an empty resource with a single "default" set and a
// bare root graph.
func NewResource(path string) *Resource {
	return &Resource{
		Path:     path,
		SetNames: []string{"default"},
		Graph:    NewGraph(),
	}
}

func (r *Resource) State() State { return r.state }

// Err is the error that put the resource into StateFailure.
func (r *Resource) Err() error { return r.err }

func (r *Resource) logger() logrus.FieldLogger {
	return logger.Or(r.Log).WithField("controller", r.Path)
}

// Create validates a resource assembled in memory and marks it ready.
func (r *Resource) Create() error {
	if err := r.Validate(); err != nil {
		return r.fail(err)
	}
	r.state = StateReady
	r.err = nil
	return nil
}

func (r *Resource) fail(err error) error {
	r.state = StateFailure
	r.err = err
	return err
}

// AddAnimation binds clip under name in set and records the entry so it is
// persisted.
func (r *Resource) AddAnimation(set int, name, path string, clip Clip) uint32 {
	hash := anim.HashName(name)
	for len(r.SetNames) <= set {
		r.SetNames = append(r.SetNames, fmt.Sprintf("set%d", len(r.SetNames)))
	}
	r.Entries = append(r.Entries, AnimSetEntry{Set: set, Hash: hash, Path: path})
	if clip != nil {
		r.Sets.AddAnimation(set, hash, clip)
	}
	return hash
}

// LoadClips resolves every entry through loader. Clips that fail to load are
// left unbound; the instance holds its pose while they are missing.
func (r *Resource) LoadClips(loader ClipLoader) {
	if loader == nil {
		return
	}
	for _, e := range r.Entries {
		clip, err := loader.LoadClip(e.Path)
		if err != nil {
			r.logger().WithError(err).WithFields(logrus.Fields{"set": e.Set, "path": e.Path}).Warn("controller: clip failed to load")
			continue
		}
		r.Sets.AddAnimation(e.Set, e.Hash, clip)
	}
}

// RecompileConditions rebuilds every edge against the current declaration.
// Edges that no longer compile keep empty bytecode and never fire.
func (r *Resource) RecompileConditions() []error {
	var errs []error
	for i := range r.Graph.Edges {
		e := &r.Graph.Edges[i]
		if err := e.Condition.Recompile(&r.Decl); err != nil {
			errs = append(errs, fmt.Errorf("edge %d (%s -> %s): %w", i, r.nodeName(e.From), r.nodeName(e.To), err))
		}
	}
	return errs
}

func (r *Resource) nodeName(n int) string {
	if n < 0 || n >= len(r.Graph.Nodes) {
		return "?"
	}
	return r.Graph.Nodes[n].Name
}

// Validate checks the declaration, graph, blend inputs and mask references.
func (r *Resource) Validate() error {
	if err := r.Decl.Validate(); err != nil {
		return fmt.Errorf("controller: inputs: %w", err)
	}
	if err := r.Graph.Validate(); err != nil {
		return err
	}
	for i := range r.Graph.Nodes {
		n := &r.Graph.Nodes[i]
		if n.Kind != KindBlend {
			continue
		}
		in := n.Blend.Input
		if in < 0 || in >= r.Decl.InputsCount {
			return fmt.Errorf("%w: %q uses input %d", ErrInvalidBlend, n.Name, in)
		}
		if t := r.Decl.Inputs[in].Type; t != anim.TypeFloat && t != anim.TypeInt {
			return fmt.Errorf("%w: %q input %q is %s", ErrInvalidBlend, n.Name, r.Decl.Inputs[in].Name, t)
		}
		if n.Blend.Mask < -1 || n.Blend.Mask >= len(r.Masks) {
			return fmt.Errorf("%w: %q uses mask %d of %d", ErrInvalidMask, n.Name, n.Blend.Mask, len(r.Masks))
		}
	}
	return nil
}

// ValidateMasks checks mask bone indices against sk.
func (r *Resource) ValidateMasks(sk Skeleton) error {
	for i := range r.Masks {
		if err := r.Masks[i].validate(sk); err != nil {
			return err
		}
	}
	return nil
}

// MaskIdx returns the mask called name, or -1.
func (r *Resource) MaskIdx(name string) int {
	for i := range r.Masks {
		if r.Masks[i].Name == name {
			return i
		}
	}
	return -1
}

// CreateInstance returns a new runtime instance positioned on the root entry
// chain, resolving clips in the default set.
func (r *Resource) CreateInstance() (*Instance, error) {
	return r.CreateInstanceInSet(0)
}

// CreateInstanceInSet is CreateInstance with the entry chain resolved in the
// given animation set. Once an instance exists the resource can no longer be
// loaded again.
func (r *Resource) CreateInstanceInSet(set int) (*Instance, error) {
	if r.state != StateReady {
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotReady, r.err)
		}
		return nil, ErrNotReady
	}
	r.instanced = true
	return newInstance(r, r.logger(), set), nil
}

// Unload releases clip bindings. The resource has to be loaded again before
// new instances can be created, which only works if it never had any.
func (r *Resource) Unload() {
	r.Sets.Clear()
	r.state = StateEmpty
	r.err = nil
}
