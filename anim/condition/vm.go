package condition

import (
	"encoding/binary"
	"math"

	"github.com/milk9111/animgraph/anim"
)

// Eval runs compiled bytecode against rc.Input and the constants of rc.Decl.
// Empty or malformed bytecode evaluates to false. Eval does not allocate.
func Eval(code []byte, rc *anim.RunningContext) bool {
	if len(code) == 0 || rc == nil {
		return false
	}

	var stack [StackSize]anim.Value
	sp := 0
	for pc := 0; pc < len(code); {
		op := opcode(code[pc])
		pc++
		if op == opInvalid || op >= opCount || pc+opInfo[op].operands > len(code) {
			return false
		}

		switch op {
		case opPushFloat, opPushInt, opPushBool, opPushConst, opLoadInput:
			if sp == StackSize {
				return false
			}
			v, ok := operand(op, code[pc:], rc)
			if !ok {
				return false
			}
			stack[sp] = v
			sp++
		case opIntToFloat:
			if sp < 1 {
				return false
			}
			stack[sp-1] = coerce(stack[sp-1], anim.TypeFloat)
		case opNeg, opNot:
			if sp < 1 {
				return false
			}
			v, ok := applyUnary(op, stack[sp-1])
			if !ok {
				return false
			}
			stack[sp-1] = v
		default:
			if sp < 2 {
				return false
			}
			v, ok := applyBinary(op, stack[sp-2], stack[sp-1])
			if !ok {
				return false
			}
			stack[sp-2] = v
			sp--
		}
		pc += opInfo[op].operands
	}

	if sp != 1 || stack[0].Type != anim.TypeBool {
		return false
	}
	return stack[0].B
}

func operand(op opcode, imm []byte, rc *anim.RunningContext) (anim.Value, bool) {
	switch op {
	case opPushFloat:
		return anim.FloatValue(math.Float32frombits(binary.LittleEndian.Uint32(imm))), true
	case opPushInt:
		return anim.IntValue(int32(binary.LittleEndian.Uint32(imm))), true
	case opPushBool:
		return anim.BoolValue(imm[0] != 0), true
	case opPushConst:
		idx := int(imm[0])
		if rc.Decl == nil || idx >= rc.Decl.ConstantsCount {
			return anim.Value{}, false
		}
		return rc.Decl.Constants[idx].Value, true
	case opLoadInput:
		typ := anim.Type(imm[0])
		offset := int(binary.LittleEndian.Uint16(imm[1:]))
		if offset+4 > len(rc.Input) {
			return anim.Value{}, false
		}
		return anim.ReadValue(rc.Input, offset, typ), true
	}
	return anim.Value{}, false
}

func applyUnary(op opcode, v anim.Value) (anim.Value, bool) {
	if _, ok := unaryType(op, v.Type); !ok {
		return anim.Value{}, false
	}
	switch {
	case op == opNot:
		return anim.BoolValue(!v.B), true
	case v.Type == anim.TypeFloat:
		return anim.FloatValue(-v.F), true
	default:
		return anim.IntValue(-v.I), true
	}
}

func applyBinary(op opcode, a, b anim.Value) (anim.Value, bool) {
	typ, _, ok := binaryTypes(op, a.Type, b.Type)
	if !ok {
		return anim.Value{}, false
	}
	a, b = coerce(a, typ), coerce(b, typ)

	switch typ {
	case anim.TypeFloat:
		return floatOp(op, a.F, b.F), true
	case anim.TypeInt:
		return intOp(op, a.I, b.I), true
	default:
		return boolOp(op, a.B, b.B), true
	}
}

func floatOp(op opcode, a, b float32) anim.Value {
	switch op {
	case opAdd:
		return anim.FloatValue(a + b)
	case opSub:
		return anim.FloatValue(a - b)
	case opMul:
		return anim.FloatValue(a * b)
	case opDiv:
		return anim.FloatValue(a / b)
	case opLt:
		return anim.BoolValue(a < b)
	case opLe:
		return anim.BoolValue(a <= b)
	case opGt:
		return anim.BoolValue(a > b)
	case opGe:
		return anim.BoolValue(a >= b)
	case opEq:
		return anim.BoolValue(a == b)
	default:
		return anim.BoolValue(a != b)
	}
}

func intOp(op opcode, a, b int32) anim.Value {
	switch op {
	case opAdd:
		return anim.IntValue(a + b)
	case opSub:
		return anim.IntValue(a - b)
	case opMul:
		return anim.IntValue(a * b)
	case opDiv:
		if b == 0 {
			return anim.IntValue(0)
		}
		return anim.IntValue(a / b)
	case opLt:
		return anim.BoolValue(a < b)
	case opLe:
		return anim.BoolValue(a <= b)
	case opGt:
		return anim.BoolValue(a > b)
	case opGe:
		return anim.BoolValue(a >= b)
	case opEq:
		return anim.BoolValue(a == b)
	default:
		return anim.BoolValue(a != b)
	}
}

func boolOp(op opcode, a, b bool) anim.Value {
	switch op {
	case opAnd:
		return anim.BoolValue(a && b)
	case opOr:
		return anim.BoolValue(a || b)
	case opEq:
		return anim.BoolValue(a == b)
	default:
		return anim.BoolValue(a != b)
	}
}
