package condition

import "github.com/milk9111/animgraph/anim"

// join is the type lattice bool < int < float shared by the type checker and
// the VM. join[a][b] is the type both operands are coerced to, TypeEmpty
// when no implicit coercion exists. Bool never mixes with numbers.
var join = [3][3]anim.Type{
	anim.TypeFloat: {anim.TypeFloat: anim.TypeFloat, anim.TypeInt: anim.TypeFloat, anim.TypeBool: anim.TypeEmpty},
	anim.TypeInt:   {anim.TypeFloat: anim.TypeFloat, anim.TypeInt: anim.TypeInt, anim.TypeBool: anim.TypeEmpty},
	anim.TypeBool:  {anim.TypeFloat: anim.TypeEmpty, anim.TypeInt: anim.TypeEmpty, anim.TypeBool: anim.TypeBool},
}

func joinTypes(a, b anim.Type) anim.Type {
	if a < 0 || a > anim.TypeBool || b < 0 || b > anim.TypeBool {
		return anim.TypeEmpty
	}
	return join[a][b]
}

func isNumeric(t anim.Type) bool {
	return t == anim.TypeFloat || t == anim.TypeInt
}

// binaryTypes returns the operand type both sides are coerced to and the
// result type of op.
func binaryTypes(op opcode, a, b anim.Type) (operand, result anim.Type, ok bool) {
	operand = joinTypes(a, b)
	switch op {
	case opAdd, opSub, opMul, opDiv:
		if !isNumeric(operand) {
			return anim.TypeEmpty, anim.TypeEmpty, false
		}
		return operand, operand, true
	case opLt, opLe, opGt, opGe:
		if !isNumeric(operand) {
			return anim.TypeEmpty, anim.TypeEmpty, false
		}
		return operand, anim.TypeBool, true
	case opEq, opNe:
		if operand == anim.TypeEmpty {
			return anim.TypeEmpty, anim.TypeEmpty, false
		}
		return operand, anim.TypeBool, true
	case opAnd, opOr:
		if operand != anim.TypeBool {
			return anim.TypeEmpty, anim.TypeEmpty, false
		}
		return anim.TypeBool, anim.TypeBool, true
	}
	return anim.TypeEmpty, anim.TypeEmpty, false
}

func unaryType(op opcode, t anim.Type) (anim.Type, bool) {
	switch op {
	case opNeg:
		return t, isNumeric(t)
	case opNot:
		return t, t == anim.TypeBool
	}
	return anim.TypeEmpty, false
}

func coerce(v anim.Value, to anim.Type) anim.Value {
	if v.Type == anim.TypeInt && to == anim.TypeFloat {
		return anim.FloatValue(float32(v.I))
	}
	return v
}
