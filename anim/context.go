package anim

import (
	"encoding/binary"
	"hash/crc32"
	"math"
)

// RunningContext is rebuilt for every evaluation call and never persisted.
type RunningContext struct {
	TimeDelta   float32
	Input       []byte
	Decl        *InputDecl
	CurrentNode int
	CurrentEdge int
	AnimSet     int
	Events      *EventStream
	Entity      uint64
}

// HashName hashes a clip name the way animation sets key their entries.
func HashName(name string) uint32 {
	return crc32.ChecksumIEEE([]byte(name))
}

// ReadValue reinterprets the 4 bytes at offset as typ. Callers guarantee the
// buffer matches the declaration layout.
func ReadValue(buf []byte, offset int, typ Type) Value {
	raw := binary.LittleEndian.Uint32(buf[offset : offset+4])
	switch typ {
	case TypeFloat:
		return FloatValue(math.Float32frombits(raw))
	case TypeInt:
		return IntValue(int32(raw))
	case TypeBool:
		return BoolValue(raw != 0)
	default:
		return Value{Type: TypeEmpty}
	}
}

// WriteValue stores v at offset using its own type.
func WriteValue(buf []byte, offset int, v Value) {
	var raw uint32
	switch v.Type {
	case TypeFloat:
		raw = math.Float32bits(v.F)
	case TypeInt:
		raw = uint32(v.I)
	case TypeBool:
		if v.B {
			raw = 1
		}
	default:
		return
	}
	binary.LittleEndian.PutUint32(buf[offset:offset+4], raw)
}
