package anim

import (
	"errors"
	"fmt"
)

const (
	MaxInputs    = 32
	MaxConstants = 32
	MaxNameLen   = 31
)

var (
	ErrIndexOutOfRange = errors.New("anim: index out of range")
	ErrDuplicateName   = errors.New("anim: duplicate name")
	ErrNameTooLong     = errors.New("anim: name too long")
	ErrEmptyName       = errors.New("anim: empty name")
)

// Type is the runtime type of an input or constant. The numeric values are
// persisted, so the order must not change.
type Type int32

const (
	TypeFloat Type = iota
	TypeInt
	TypeBool
	TypeEmpty
)

func (t Type) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeEmpty:
		return "empty"
	default:
		return fmt.Sprintf("type(%d)", int32(t))
	}
}

// ParseType maps the authoring names back to a Type.
func ParseType(s string) (Type, bool) {
	switch s {
	case "float", "number":
		return TypeFloat, true
	case "int", "integer":
		return TypeInt, true
	case "bool", "boolean":
		return TypeBool, true
	case "", "empty":
		return TypeEmpty, true
	}
	return TypeEmpty, false
}

// TypeSize returns the byte width a value of t occupies in an input buffer.
func TypeSize(t Type) int {
	switch t {
	case TypeFloat, TypeInt, TypeBool:
		return 4
	default:
		return 0
	}
}

// Value is a tagged float/int/bool.
type Value struct {
	Type Type
	F    float32
	I    int32
	B    bool
}

func FloatValue(f float32) Value { return Value{Type: TypeFloat, F: f} }
func IntValue(i int32) Value     { return Value{Type: TypeInt, I: i} }
func BoolValue(b bool) Value     { return Value{Type: TypeBool, B: b} }

func (v Value) String() string {
	switch v.Type {
	case TypeFloat:
		return fmt.Sprintf("%g", v.F)
	case TypeInt:
		return fmt.Sprintf("%d", v.I)
	case TypeBool:
		return fmt.Sprintf("%t", v.B)
	default:
		return "<empty>"
	}
}

type Input struct {
	Type   Type
	Offset int
	Name   string
}

type Constant struct {
	Value Value
	Name  string
}

// InputDecl declares the typed inputs an instance buffer holds and the
// named constants conditions may reference. Offsets are always derived from
// slot order; every structural mutation recomputes them.
type InputDecl struct {
	Inputs         [MaxInputs]Input
	InputsCount    int
	Constants      [MaxConstants]Constant
	ConstantsCount int
}

// AddInput appends an empty input slot and returns its index, or -1 when the
// declaration is full.
func (d *InputDecl) AddInput() int {
	if d.InputsCount >= MaxInputs {
		return -1
	}
	idx := d.InputsCount
	d.Inputs[idx] = Input{Type: TypeEmpty}
	d.InputsCount++
	d.RecalculateOffsets()
	return idx
}

// AddConstant appends an empty constant slot and returns its index, or -1
// when the declaration is full.
func (d *InputDecl) AddConstant() int {
	if d.ConstantsCount >= MaxConstants {
		return -1
	}
	idx := d.ConstantsCount
	d.Constants[idx] = Constant{Value: Value{Type: TypeEmpty}}
	d.ConstantsCount++
	return idx
}

func (d *InputDecl) RemoveInput(idx int) {
	if idx < 0 || idx >= d.InputsCount {
		return
	}
	copy(d.Inputs[idx:d.InputsCount], d.Inputs[idx+1:d.InputsCount])
	d.InputsCount--
	d.Inputs[d.InputsCount] = Input{}
	d.RecalculateOffsets()
}

func (d *InputDecl) RemoveConstant(idx int) {
	if idx < 0 || idx >= d.ConstantsCount {
		return
	}
	copy(d.Constants[idx:d.ConstantsCount], d.Constants[idx+1:d.ConstantsCount])
	d.ConstantsCount--
	d.Constants[d.ConstantsCount] = Constant{}
}

// MoveInput moves the input at oldIdx to newIdx, shifting the inputs in
// between. The moved input keeps its name and type; offsets follow the new
// order.
func (d *InputDecl) MoveInput(oldIdx, newIdx int) {
	if oldIdx < 0 || oldIdx >= d.InputsCount || newIdx < 0 || newIdx >= d.InputsCount || oldIdx == newIdx {
		return
	}
	moved := d.Inputs[oldIdx]
	if oldIdx < newIdx {
		copy(d.Inputs[oldIdx:newIdx], d.Inputs[oldIdx+1:newIdx+1])
	} else {
		copy(d.Inputs[newIdx+1:oldIdx+1], d.Inputs[newIdx:oldIdx])
	}
	d.Inputs[newIdx] = moved
	d.RecalculateOffsets()
}

func (d *InputDecl) MoveConstant(oldIdx, newIdx int) {
	if oldIdx < 0 || oldIdx >= d.ConstantsCount || newIdx < 0 || newIdx >= d.ConstantsCount || oldIdx == newIdx {
		return
	}
	moved := d.Constants[oldIdx]
	if oldIdx < newIdx {
		copy(d.Constants[oldIdx:newIdx], d.Constants[oldIdx+1:newIdx+1])
	} else {
		copy(d.Constants[newIdx+1:oldIdx+1], d.Constants[newIdx:oldIdx])
	}
	d.Constants[newIdx] = moved
}

// SetInput changes the type and name of an existing input.
func (d *InputDecl) SetInput(idx int, typ Type, name string) error {
	if idx < 0 || idx >= d.InputsCount {
		return ErrIndexOutOfRange
	}
	if err := checkName(name); err != nil {
		return err
	}
	if other := d.InputIdx(name); other >= 0 && other != idx {
		return fmt.Errorf("%w: input %q", ErrDuplicateName, name)
	}
	d.Inputs[idx].Type = typ
	d.Inputs[idx].Name = name
	d.RecalculateOffsets()
	return nil
}

// SetConstant changes the value and name of an existing constant.
func (d *InputDecl) SetConstant(idx int, v Value, name string) error {
	if idx < 0 || idx >= d.ConstantsCount {
		return ErrIndexOutOfRange
	}
	if err := checkName(name); err != nil {
		return err
	}
	if other := d.ConstantIdx(name); other >= 0 && other != idx {
		return fmt.Errorf("%w: constant %q", ErrDuplicateName, name)
	}
	d.Constants[idx] = Constant{Value: v, Name: name}
	return nil
}

func checkName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	return nil
}

// RecalculateOffsets lays inputs out contiguously in slot order. All typed
// values are 4 bytes wide, so contiguous offsets are also aligned.
func (d *InputDecl) RecalculateOffsets() {
	offset := 0
	for i := 0; i < d.InputsCount; i++ {
		d.Inputs[i].Offset = offset
		offset += TypeSize(d.Inputs[i].Type)
	}
}

// Size is the byte length of an instance input buffer for this layout.
func (d *InputDecl) Size() int {
	size := 0
	for i := 0; i < d.InputsCount; i++ {
		size += TypeSize(d.Inputs[i].Type)
	}
	return size
}

// InputIdx returns the slot of the input called name, or -1.
func (d *InputDecl) InputIdx(name string) int {
	for i := 0; i < d.InputsCount; i++ {
		if d.Inputs[i].Type != TypeEmpty && d.Inputs[i].Name == name {
			return i
		}
	}
	return -1
}

// ConstantIdx returns the slot of the constant called name, or -1.
func (d *InputDecl) ConstantIdx(name string) int {
	for i := 0; i < d.ConstantsCount; i++ {
		if d.Constants[i].Name == name {
			return i
		}
	}
	return -1
}

// InputToLinearIdx numbers typed inputs consecutively, skipping empty slots.
func (d *InputDecl) InputToLinearIdx(idx int) int {
	if idx < 0 || idx >= d.InputsCount || d.Inputs[idx].Type == TypeEmpty {
		return -1
	}
	linear := 0
	for i := 0; i < idx; i++ {
		if d.Inputs[i].Type != TypeEmpty {
			linear++
		}
	}
	return linear
}

// InputFromLinearIdx is the inverse of InputToLinearIdx.
func (d *InputDecl) InputFromLinearIdx(linear int) int {
	if linear < 0 {
		return -1
	}
	for i := 0; i < d.InputsCount; i++ {
		if d.Inputs[i].Type == TypeEmpty {
			continue
		}
		if linear == 0 {
			return i
		}
		linear--
	}
	return -1
}

// Validate checks name uniqueness and offset consistency.
func (d *InputDecl) Validate() error {
	if d.InputsCount < 0 || d.InputsCount > MaxInputs || d.ConstantsCount < 0 || d.ConstantsCount > MaxConstants {
		return ErrIndexOutOfRange
	}
	seen := make(map[string]struct{}, d.InputsCount)
	offset := 0
	for i := 0; i < d.InputsCount; i++ {
		in := d.Inputs[i]
		if in.Type == TypeEmpty {
			continue
		}
		if err := checkName(in.Name); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		if _, dup := seen[in.Name]; dup {
			return fmt.Errorf("%w: input %q", ErrDuplicateName, in.Name)
		}
		seen[in.Name] = struct{}{}
		if in.Offset != offset {
			return fmt.Errorf("anim: input %q offset %d, want %d", in.Name, in.Offset, offset)
		}
		offset += TypeSize(in.Type)
	}
	clear(seen)
	for i := 0; i < d.ConstantsCount; i++ {
		c := d.Constants[i]
		if err := checkName(c.Name); err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: constant %q", ErrDuplicateName, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}
