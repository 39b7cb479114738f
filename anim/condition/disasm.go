package condition

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/milk9111/animgraph/anim"
)

// Disassemble renders bytecode one instruction per line.
func Disassemble(code []byte) string {
	var sb strings.Builder
	for pc := 0; pc < len(code); {
		op := opcode(code[pc])
		if op == opInvalid || op >= opCount || pc+1+opInfo[op].operands > len(code) {
			fmt.Fprintf(&sb, "%04d ??? 0x%02x\n", pc, code[pc])
			pc++
			continue
		}
		imm := code[pc+1 : pc+1+opInfo[op].operands]
		fmt.Fprintf(&sb, "%04d %s", pc, opInfo[op].name)
		switch op {
		case opPushFloat:
			fmt.Fprintf(&sb, " %g", math.Float32frombits(binary.LittleEndian.Uint32(imm)))
		case opPushInt:
			fmt.Fprintf(&sb, " %d", int32(binary.LittleEndian.Uint32(imm)))
		case opPushBool:
			fmt.Fprintf(&sb, " %t", imm[0] != 0)
		case opPushConst:
			fmt.Fprintf(&sb, " #%d", imm[0])
		case opLoadInput:
			fmt.Fprintf(&sb, " %s @%d", anim.Type(imm[0]), binary.LittleEndian.Uint16(imm[1:]))
		}
		sb.WriteByte('\n')
		pc += 1 + opInfo[op].operands
	}
	return sb.String()
}
