package anim

import (
	"errors"
	"testing"
)

func newDecl(t *testing.T, inputs ...Input) *InputDecl {
	t.Helper()
	d := &InputDecl{}
	for _, in := range inputs {
		idx := d.AddInput()
		if idx < 0 {
			t.Fatalf("AddInput failed")
		}
		if err := d.SetInput(idx, in.Type, in.Name); err != nil {
			t.Fatalf("SetInput(%q): %v", in.Name, err)
		}
	}
	return d
}

func TestInputDeclAddDefaults(t *testing.T) {
	d := &InputDecl{}
	idx := d.AddInput()
	if idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}
	if d.Inputs[0].Type != TypeEmpty {
		t.Fatalf("expected empty type, got %v", d.Inputs[0].Type)
	}
	cidx := d.AddConstant()
	if cidx != 0 || d.Constants[0].Value.Type != TypeEmpty {
		t.Fatalf("unexpected constant slot %d %+v", cidx, d.Constants[0])
	}
	if d.Size() != 0 {
		t.Fatalf("empty inputs should not occupy buffer space, size=%d", d.Size())
	}
}

func TestInputDeclCapacity(t *testing.T) {
	d := &InputDecl{}
	for i := 0; i < MaxInputs; i++ {
		if got := d.AddInput(); got != i {
			t.Fatalf("AddInput #%d returned %d", i, got)
		}
		if got := d.AddConstant(); got != i {
			t.Fatalf("AddConstant #%d returned %d", i, got)
		}
	}
	if got := d.AddInput(); got != -1 {
		t.Fatalf("expected -1 when full, got %d", got)
	}
	if got := d.AddConstant(); got != -1 {
		t.Fatalf("expected -1 when full, got %d", got)
	}
	if d.InputsCount != MaxInputs || d.ConstantsCount != MaxConstants {
		t.Fatalf("counts changed after full add: %d %d", d.InputsCount, d.ConstantsCount)
	}
}

func TestInputDeclOffsets(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(d *InputDecl)
		order   []string
		offsets []int
	}{
		{
			name:    "initial",
			mutate:  func(d *InputDecl) {},
			order:   []string{"speed", "grounded", "combo"},
			offsets: []int{0, 4, 8},
		},
		{
			name:    "remove_middle",
			mutate:  func(d *InputDecl) { d.RemoveInput(1) },
			order:   []string{"speed", "combo"},
			offsets: []int{0, 4},
		},
		{
			name:    "move_last_to_first",
			mutate:  func(d *InputDecl) { d.MoveInput(2, 0) },
			order:   []string{"combo", "speed", "grounded"},
			offsets: []int{0, 4, 8},
		},
		{
			name:    "move_first_to_last",
			mutate:  func(d *InputDecl) { d.MoveInput(0, 2) },
			order:   []string{"grounded", "combo", "speed"},
			offsets: []int{0, 4, 8},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := newDecl(t,
				Input{Type: TypeFloat, Name: "speed"},
				Input{Type: TypeBool, Name: "grounded"},
				Input{Type: TypeInt, Name: "combo"},
			)
			c.mutate(d)
			if d.InputsCount != len(c.order) {
				t.Fatalf("expected %d inputs, got %d", len(c.order), d.InputsCount)
			}
			for i, name := range c.order {
				if d.Inputs[i].Name != name {
					t.Fatalf("slot %d: expected %q, got %q", i, name, d.Inputs[i].Name)
				}
				if d.Inputs[i].Offset != c.offsets[i] {
					t.Fatalf("slot %d: expected offset %d, got %d", i, c.offsets[i], d.Inputs[i].Offset)
				}
			}
			if err := d.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestInputDeclMoveKeepsIdentity(t *testing.T) {
	d := newDecl(t,
		Input{Type: TypeFloat, Name: "a"},
		Input{Type: TypeInt, Name: "b"},
	)
	d.MoveInput(1, 0)
	if d.Inputs[0].Name != "b" || d.Inputs[0].Type != TypeInt {
		t.Fatalf("moved input lost identity: %+v", d.Inputs[0])
	}
	if d.InputIdx("a") != 1 || d.InputIdx("b") != 0 {
		t.Fatalf("lookup after move: a=%d b=%d", d.InputIdx("a"), d.InputIdx("b"))
	}
}

func TestInputDeclConstants(t *testing.T) {
	d := &InputDecl{}
	for _, name := range []string{"walk", "run", "sprint"} {
		idx := d.AddConstant()
		if err := d.SetConstant(idx, FloatValue(float32(idx)), name); err != nil {
			t.Fatalf("SetConstant: %v", err)
		}
	}
	d.MoveConstant(0, 2)
	if d.ConstantIdx("walk") != 2 || d.Constants[2].Value.F != 0 {
		t.Fatalf("move constant: %+v", d.Constants[:3])
	}
	d.RemoveConstant(0)
	if d.ConstantsCount != 2 || d.ConstantIdx("run") != -1 || d.ConstantIdx("sprint") != 0 {
		t.Fatalf("remove constant: count=%d", d.ConstantsCount)
	}
}

func TestInputDeclNameRules(t *testing.T) {
	d := newDecl(t, Input{Type: TypeFloat, Name: "speed"})
	idx := d.AddInput()

	if err := d.SetInput(idx, TypeInt, "speed"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if err := d.SetInput(idx, TypeInt, "this_name_is_definitely_longer_than_31"); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
	if err := d.SetInput(idx+1, TypeInt, "x"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := d.SetInput(idx, TypeInt, "speed_x"); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
}

func TestInputDeclLookup(t *testing.T) {
	d := newDecl(t,
		Input{Type: TypeFloat, Name: "speed"},
		Input{Type: TypeFloat, Name: "speed2"},
	)
	if got := d.InputIdx("speed"); got != 0 {
		t.Fatalf("exact lookup returned %d", got)
	}
	if got := d.InputIdx("spee"); got != -1 {
		t.Fatalf("prefix lookup should miss, got %d", got)
	}
	if got := d.ConstantIdx("speed"); got != -1 {
		t.Fatalf("constants namespace should be separate, got %d", got)
	}
}

func TestInputDeclLinearIdxBijective(t *testing.T) {
	d := newDecl(t,
		Input{Type: TypeFloat, Name: "a"},
		Input{Type: TypeBool, Name: "b"},
	)
	// empty slot in the middle
	d.AddInput()
	d.MoveInput(2, 1)
	idx := d.AddInput()
	if err := d.SetInput(idx, TypeInt, "c"); err != nil {
		t.Fatalf("SetInput: %v", err)
	}

	if got := d.InputToLinearIdx(1); got != -1 {
		t.Fatalf("empty slot should have no linear index, got %d", got)
	}
	seen := map[int]bool{}
	for i := 0; i < d.InputsCount; i++ {
		l := d.InputToLinearIdx(i)
		if l < 0 {
			continue
		}
		if seen[l] {
			t.Fatalf("linear index %d reused", l)
		}
		seen[l] = true
		if back := d.InputFromLinearIdx(l); back != i {
			t.Fatalf("round trip %d -> %d -> %d", i, l, back)
		}
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 linear indices, got %d", len(seen))
	}
	if got := d.InputFromLinearIdx(3); got != -1 {
		t.Fatalf("out of range linear index returned %d", got)
	}
}

func TestReadWriteValue(t *testing.T) {
	d := newDecl(t,
		Input{Type: TypeFloat, Name: "f"},
		Input{Type: TypeInt, Name: "i"},
		Input{Type: TypeBool, Name: "b"},
	)
	buf := make([]byte, d.Size())
	WriteValue(buf, d.Inputs[0].Offset, FloatValue(2.5))
	WriteValue(buf, d.Inputs[1].Offset, IntValue(-7))
	WriteValue(buf, d.Inputs[2].Offset, BoolValue(true))

	if v := ReadValue(buf, d.Inputs[0].Offset, TypeFloat); v.F != 2.5 {
		t.Fatalf("float: %v", v)
	}
	if v := ReadValue(buf, d.Inputs[1].Offset, TypeInt); v.I != -7 {
		t.Fatalf("int: %v", v)
	}
	if v := ReadValue(buf, d.Inputs[2].Offset, TypeBool); !v.B {
		t.Fatalf("bool: %v", v)
	}
}
