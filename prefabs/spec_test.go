package prefabs

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/animgraph/anim"
)

func TestYAMLValueDecode(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    anim.Value
		wantErr bool
	}{
		{name: "bool", src: "value: true", want: anim.BoolValue(true)},
		{name: "int", src: "value: 3", want: anim.IntValue(3)},
		{name: "negative int", src: "value: -7", want: anim.IntValue(-7)},
		{name: "float", src: "value: 0.25", want: anim.FloatValue(0.25)},
		{name: "float without fraction", src: "value: 2.0", want: anim.FloatValue(2)},
		{name: "string", src: "value: fast", wantErr: true},
		{name: "sequence", src: "value: [1, 2]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c ConstantSpec
			err := yaml.Unmarshal([]byte(tt.src), &c)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", c.Value)
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if c.Value == nil || c.Value.Value != tt.want {
				t.Fatalf("value = %+v, want %v", c.Value, tt.want)
			}
		})
	}
}

func TestYAMLValueMarshalKeepsFloat(t *testing.T) {
	out, err := yaml.Marshal(ConstantSpec{Name: "limit", Value: &YAMLValue{anim.FloatValue(2)}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ConstantSpec
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal %q: %v", out, err)
	}
	if back.Value == nil || back.Value.Value != anim.FloatValue(2) {
		t.Fatalf("round trip of %q gave %+v", out, back.Value)
	}
}

func TestStateSpecKind(t *testing.T) {
	tests := []struct {
		name string
		spec StateSpec
		want string
	}{
		{name: "clip", spec: StateSpec{Clip: "idle"}, want: "single"},
		{name: "children", spec: StateSpec{Children: []BlendChildSpec{{Clip: "walk"}}}, want: "blend"},
		{name: "states", spec: StateSpec{States: []StateSpec{{Name: "a"}}}, want: "graph"},
		{name: "explicit", spec: StateSpec{Kind: "Blend"}, want: "blend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.kind(); got != tt.want {
				t.Fatalf("kind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadControllerSpecEmbedded(t *testing.T) {
	spec, err := LoadControllerSpec("prefabs/controllers/hero.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if spec.Name != "hero" {
		t.Fatalf("name = %q", spec.Name)
	}
	if len(spec.Root.States) != 2 || spec.Root.Entry != "Ground" {
		t.Fatalf("root = %+v", spec.Root)
	}

	names, err := Controllers()
	if err != nil {
		t.Fatalf("controllers: %v", err)
	}
	found := false
	for _, n := range names {
		found = found || n == "controllers/hero.yaml"
	}
	if !found {
		t.Fatalf("controllers/hero.yaml not listed in %v", names)
	}
}
