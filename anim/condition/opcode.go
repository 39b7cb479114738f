package condition

type opcode byte

const (
	opInvalid opcode = iota
	opPushFloat
	opPushInt
	opPushBool
	opPushConst
	opLoadInput
	opIntToFloat
	opNeg
	opNot
	opAdd
	opSub
	opMul
	opDiv
	opLt
	opLe
	opGt
	opGe
	opEq
	opNe
	opAnd
	opOr
	opCount
)

// opInfo describes the immediate operand width and the mnemonic of each
// instruction.
var opInfo = [opCount]struct {
	name     string
	operands int
}{
	opInvalid:    {"invalid", 0},
	opPushFloat:  {"push_float", 4},
	opPushInt:    {"push_int", 4},
	opPushBool:   {"push_bool", 1},
	opPushConst:  {"push_const", 1},
	opLoadInput:  {"load_input", 3},
	opIntToFloat: {"itof", 0},
	opNeg:        {"neg", 0},
	opNot:        {"not", 0},
	opAdd:        {"add", 0},
	opSub:        {"sub", 0},
	opMul:        {"mul", 0},
	opDiv:        {"div", 0},
	opLt:         {"lt", 0},
	opLe:         {"le", 0},
	opGt:         {"gt", 0},
	opGe:         {"ge", 0},
	opEq:         {"eq", 0},
	opNe:         {"ne", 0},
	opAnd:        {"and", 0},
	opOr:         {"or", 0},
}

var binaryOps = map[string]opcode{
	"+":  opAdd,
	"-":  opSub,
	"*":  opMul,
	"/":  opDiv,
	"<":  opLt,
	"<=": opLe,
	">":  opGt,
	">=": opGe,
	"==": opEq,
	"!=": opNe,
	"&&": opAnd,
	"||": opOr,
}

// precedence of binary operators, higher binds tighter.
func precedence(op opcode) int {
	switch op {
	case opOr:
		return 1
	case opAnd:
		return 2
	case opEq, opNe:
		return 3
	case opLt, opLe, opGt, opGe:
		return 4
	case opAdd, opSub:
		return 5
	case opMul, opDiv:
		return 6
	}
	return 0
}
