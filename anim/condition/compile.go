package condition

import (
	"encoding/binary"
	"math"

	"github.com/milk9111/animgraph/anim"
)

// StackSize is the evaluation stack capacity of the VM. Compile rejects
// expressions that would need more.
const StackSize = 16

type emitter struct {
	decl *anim.InputDecl
	code []byte
}

// Compile parses expr against decl and returns bytecode that evaluates to a
// bool. On failure the returned error is an *Error and no bytecode is
// returned. Compile keeps no state between calls.
func Compile(expr string, decl *anim.InputDecl) ([]byte, error) {
	root, err := parse(expr, decl)
	if err != nil {
		return nil, err
	}
	if depth := stackDepth(root); depth > StackSize {
		return nil, fail(OutOfMemory, root.tok)
	}
	e := &emitter{decl: decl, code: make([]byte, 0, 32)}
	typ, err := e.emit(root)
	if err != nil {
		return nil, err
	}
	if typ != anim.TypeBool {
		return nil, fail(IncorrectTypeArgs, root.tok)
	}
	return e.code, nil
}

// stackDepth is the peak stack usage of the post-order emission of n.
func stackDepth(n *node) int {
	switch n.kind {
	case nodeUnary:
		return stackDepth(n.left)
	case nodeBinary:
		return max(stackDepth(n.left), stackDepth(n.right)+1)
	default:
		return 1
	}
}

func (e *emitter) emit(n *node) (anim.Type, error) {
	switch n.kind {
	case nodeLiteral:
		e.pushLiteral(n.value)
		return n.value.Type, nil
	case nodeInput:
		in := e.decl.Inputs[n.index]
		if in.Type == anim.TypeEmpty || in.Offset > math.MaxUint16 {
			return anim.TypeEmpty, fail(IncorrectTypeArgs, n.tok)
		}
		e.code = append(e.code, byte(opLoadInput), byte(in.Type))
		e.code = binary.LittleEndian.AppendUint16(e.code, uint16(in.Offset))
		return in.Type, nil
	case nodeConstant:
		c := e.decl.Constants[n.index]
		if c.Value.Type == anim.TypeEmpty {
			return anim.TypeEmpty, fail(IncorrectTypeArgs, n.tok)
		}
		e.code = append(e.code, byte(opPushConst), byte(n.index))
		return c.Value.Type, nil
	case nodeUnary:
		t, err := e.emit(n.left)
		if err != nil {
			return anim.TypeEmpty, err
		}
		res, ok := unaryType(n.op, t)
		if !ok {
			return anim.TypeEmpty, fail(IncorrectTypeArgs, n.tok)
		}
		e.code = append(e.code, byte(n.op))
		return res, nil
	case nodeBinary:
		return e.emitBinary(n)
	}
	return anim.TypeEmpty, fail(UnexpectedChar, n.tok)
}

func (e *emitter) emitBinary(n *node) (anim.Type, error) {
	lt, err := e.emit(n.left)
	if err != nil {
		return anim.TypeEmpty, err
	}
	// the left conversion has to happen before the right operand is pushed
	leftAt := len(e.code)
	rt, err := e.emit(n.right)
	if err != nil {
		return anim.TypeEmpty, err
	}
	operand, result, ok := binaryTypes(n.op, lt, rt)
	if !ok {
		return anim.TypeEmpty, fail(IncorrectTypeArgs, n.tok)
	}
	if lt != operand {
		e.code = append(e.code, 0)
		copy(e.code[leftAt+1:], e.code[leftAt:])
		e.code[leftAt] = byte(opIntToFloat)
	}
	if rt != operand {
		e.code = append(e.code, byte(opIntToFloat))
	}
	e.code = append(e.code, byte(n.op))
	return result, nil
}

func (e *emitter) pushLiteral(v anim.Value) {
	switch v.Type {
	case anim.TypeFloat:
		e.code = append(e.code, byte(opPushFloat))
		e.code = binary.LittleEndian.AppendUint32(e.code, math.Float32bits(v.F))
	case anim.TypeInt:
		e.code = append(e.code, byte(opPushInt))
		e.code = binary.LittleEndian.AppendUint32(e.code, uint32(v.I))
	case anim.TypeBool:
		b := byte(0)
		if v.B {
			b = 1
		}
		e.code = append(e.code, byte(opPushBool), b)
	}
}
