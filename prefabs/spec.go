package prefabs

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/animgraph/anim"
)

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// ControllerSpec is the YAML authoring form of an animation controller.
type ControllerSpec struct {
	Name              string         `yaml:"name"`
	Inputs            []InputSpec    `yaml:"inputs"`
	Constants         []ConstantSpec `yaml:"constants"`
	Sets              []string       `yaml:"sets"`
	Clips             []ClipRefSpec  `yaml:"clips"`
	Masks             []MaskSpec     `yaml:"masks"`
	RootRotationSpeed float32        `yaml:"root_rotation_speed"`
	Root              StateSpec      `yaml:"root"`
}

func LoadControllerSpec(filename string) (*ControllerSpec, error) {
	spec, err := LoadSpec[ControllerSpec](filename)
	if err != nil {
		return nil, err
	}
	if spec.Name == "" {
		spec.Name = cleanPrefabPath(filename)
	}
	return &spec, nil
}

type InputSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type ConstantSpec struct {
	Name  string     `yaml:"name"`
	Value *YAMLValue `yaml:"value"`
}

// ClipRefSpec binds a clip name to a clip path inside a set. An empty set
// means the first one.
type ClipRefSpec struct {
	Set  string `yaml:"set"`
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type MaskSpec struct {
	Name  string `yaml:"name"`
	Bones []int  `yaml:"bones"`
}

// StateSpec is one node of the state tree. Kind is inferred when empty: a
// spec with states is a graph, one with children a blend, otherwise single.
type StateSpec struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"`
	OnEnter []string `yaml:"on_enter"`
	OnExit  []string `yaml:"on_exit"`

	Clip  string  `yaml:"clip"`
	Loop  bool    `yaml:"loop"`
	Speed float32 `yaml:"speed"`

	Input    string           `yaml:"input"`
	Mask     string           `yaml:"mask"`
	Children []BlendChildSpec `yaml:"children"`

	States      []StateSpec      `yaml:"states"`
	Entry       string           `yaml:"entry"`
	Transitions []TransitionSpec `yaml:"transitions"`
}

func (s *StateSpec) kind() string {
	if s.Kind != "" {
		return strings.ToLower(s.Kind)
	}
	switch {
	case len(s.States) > 0:
		return "graph"
	case len(s.Children) > 0:
		return "blend"
	default:
		return "single"
	}
}

type BlendChildSpec struct {
	Clip  string  `yaml:"clip"`
	Value float32 `yaml:"value"`
}

type TransitionSpec struct {
	From  string  `yaml:"from"`
	To    string  `yaml:"to"`
	When  string  `yaml:"when"`
	Blend float32 `yaml:"blend"`
}

// YAMLValue decodes a scalar into a typed anim value: true/false become
// bools, integers ints and everything numeric else floats. A float written
// without a fraction needs a trailing ".0".
type YAMLValue struct {
	anim.Value
}

func (v *YAMLValue) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("constant value must be a scalar")
	}
	switch value.ShortTag() {
	case "!!bool":
		b, err := strconv.ParseBool(value.Value)
		if err != nil {
			return err
		}
		v.Value = anim.BoolValue(b)
	case "!!int":
		i, err := strconv.ParseInt(value.Value, 0, 32)
		if err != nil {
			return err
		}
		v.Value = anim.IntValue(int32(i))
	case "!!float":
		f, err := strconv.ParseFloat(value.Value, 32)
		if err != nil {
			return err
		}
		v.Value = anim.FloatValue(float32(f))
	default:
		return fmt.Errorf("unsupported constant value %q", value.Value)
	}
	return nil
}

func (v YAMLValue) MarshalYAML() (any, error) {
	switch v.Type {
	case anim.TypeBool:
		return v.B, nil
	case anim.TypeInt:
		return v.I, nil
	case anim.TypeFloat:
		s := strconv.FormatFloat(float64(v.F), 'f', -1, 32)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}, nil
	default:
		return nil, nil
	}
}

// ClipSpec describes one clip of a clip catalogue.
type ClipSpec struct {
	Name     string          `yaml:"name"`
	Duration float32         `yaml:"duration"`
	Events   []ClipEventSpec `yaml:"events"`
}

type ClipEventSpec struct {
	Time float32 `yaml:"time"`
	Name string  `yaml:"name"`
}

type ClipCatalogSpec struct {
	Clips []ClipSpec `yaml:"clips"`
}
