package controller

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/milk9111/animgraph/anim"
)

// Version numbers the binary format. Every entry only ever appends; old
// versions stay readable.
type Version int32

const (
	VersionAnimationSets Version = iota + 1
	VersionMaxRootRotationSpeed
	VersionInputRefactor
	VersionEnterExitEvents
	VersionAnimationSpeedMultiplier
	VersionMasks
	VersionEndGuard
	VersionEventsFix

	VersionLatest = VersionEventsFix
)

var versionNames = [...]string{
	VersionAnimationSets:            "animation_sets",
	VersionMaxRootRotationSpeed:     "max_root_rotation_speed",
	VersionInputRefactor:            "input_refactor",
	VersionEnterExitEvents:          "enter_exit_events",
	VersionAnimationSpeedMultiplier: "animation_speed_multiplier",
	VersionMasks:                    "masks",
	VersionEndGuard:                 "end_guard",
	VersionEventsFix:                "events_fix",
}

func (v Version) String() string {
	if v > 0 && int(v) < len(versionNames) {
		return versionNames[v]
	}
	return fmt.Sprintf("version(%d)", int32(v))
}

const (
	magic    = "ACTL"
	endGuard = uint32(0xEDDEEDDE)

	maxString = 1 << 12
	maxCount  = 1 << 16
)

// Serialize writes the resource in the latest format. Conditions are stored
// as expression text.
func (r *Resource) Serialize(w io.Writer) error {
	return r.encode(w, VersionLatest)
}

func (r *Resource) encode(w io.Writer, v Version) error {
	bw := &blobWriter{w: w}
	bw.raw([]byte(magic))
	bw.i32(int32(v))

	bw.i32(int32(r.Decl.InputsCount))
	for i := 0; i < r.Decl.InputsCount; i++ {
		in := r.Decl.Inputs[i]
		bw.i32(int32(in.Type))
		if v < VersionInputRefactor {
			bw.i32(int32(in.Offset))
		}
		bw.str(in.Name)
	}
	bw.i32(int32(r.Decl.ConstantsCount))
	for i := 0; i < r.Decl.ConstantsCount; i++ {
		c := r.Decl.Constants[i]
		bw.i32(int32(c.Value.Type))
		bw.value(c.Value)
		bw.str(c.Name)
	}

	bw.u32(uint32(len(r.SetNames)))
	for _, name := range r.SetNames {
		bw.str(name)
	}
	bw.u32(uint32(len(r.Entries)))
	for _, e := range r.Entries {
		bw.i32(int32(e.Set))
		bw.u32(e.Hash)
		bw.str(e.Path)
	}

	if v >= VersionMaxRootRotationSpeed {
		bw.f32(r.MaxRootRotationSpeed)
	}
	if v >= VersionMasks {
		bw.u32(uint32(len(r.Masks)))
		for _, m := range r.Masks {
			bw.str(m.Name)
			bw.u32(uint32(len(m.Bits)))
			for _, word := range m.Bits {
				bw.u64(word)
			}
		}
	}

	g := &r.Graph
	bw.i32(int32(g.Root))
	bw.u32(uint32(len(g.Nodes)))
	for i := range g.Nodes {
		encodeNode(bw, &g.Nodes[i], v)
	}
	bw.u32(uint32(len(g.Edges)))
	for _, e := range g.Edges {
		bw.i32(int32(e.From))
		bw.i32(int32(e.To))
		bw.str(e.Condition.Expression)
		bw.f32(e.BlendDuration)
	}

	if v >= VersionEndGuard {
		bw.u32(endGuard)
	}
	return bw.err
}

func encodeNode(bw *blobWriter, n *Node, v Version) {
	bw.u8(uint8(n.Kind))
	bw.str(n.Name)
	bw.i32(int32(n.Parent))
	if v >= VersionEventsFix {
		bw.strs(n.OnEnter)
		bw.strs(n.OnExit)
	} else if v >= VersionEnterExitEvents {
		bw.str(strings.Join(n.OnEnter, ","))
		bw.str(strings.Join(n.OnExit, ","))
	}

	switch n.Kind {
	case KindSingle:
		bw.u32(n.Single.Clip)
		bw.bool(n.Single.Looped)
		if v >= VersionAnimationSpeedMultiplier {
			bw.f32(n.Single.Speed)
		}
	case KindBlend:
		bw.i32(int32(n.Blend.Input))
		if v >= VersionMasks {
			bw.i32(int32(n.Blend.Mask))
		}
		bw.bool(n.Blend.Looped)
		if v >= VersionAnimationSpeedMultiplier {
			bw.f32(n.Blend.Speed)
		}
		bw.u32(uint32(len(n.Blend.Children)))
		for _, c := range n.Blend.Children {
			bw.u32(c.Clip)
			bw.f32(c.Value)
		}
	case KindSubGraph:
		bw.i32(int32(n.Sub.Entry))
		bw.ints(n.Sub.Children)
		bw.ints(n.Sub.Edges)
	}
}

// Load is Deserialize over an in-memory blob.
func (r *Resource) Load(data []byte, loader ClipLoader) error {
	return r.Deserialize(bytes.NewReader(data), loader)
}

// Deserialize replaces the resource contents with a decoded blob of any
// supported version. Conditions are recompiled from their text; edges that
// fail to compile load with empty bytecode. On error the resource is left in
// StateFailure and its previous contents are dropped. A resource that
// already handed out instances is left untouched and ErrInUse is returned.
func (r *Resource) Deserialize(rd io.Reader, loader ClipLoader) error {
	if r.instanced {
		return fmt.Errorf("controller: load %q: %w", r.Path, ErrInUse)
	}
	tmp := &Resource{Path: r.Path, Log: r.Log}
	if err := tmp.decode(rd); err != nil {
		r.reset()
		return r.fail(fmt.Errorf("controller: load %q: %w", r.Path, err))
	}
	for _, err := range tmp.RecompileConditions() {
		tmp.logger().WithError(err).Warn("controller: transition disabled")
	}
	if err := tmp.Validate(); err != nil {
		r.reset()
		return r.fail(fmt.Errorf("controller: load %q: %w", r.Path, err))
	}
	tmp.LoadClips(loader)

	*r = *tmp
	r.state = StateReady
	return nil
}

// PeekVersion reads the format version from the header of data without
// decoding the rest.
func PeekVersion(data []byte) (Version, error) {
	if len(data) < len(magic)+4 {
		return 0, ErrTruncated
	}
	if string(data[:len(magic)]) != magic {
		return 0, fmt.Errorf("%w: %q", ErrBadMagic, data[:len(magic)])
	}
	return Version(int32(binary.LittleEndian.Uint32(data[len(magic):]))), nil
}

func (r *Resource) reset() {
	*r = Resource{Path: r.Path, Log: r.Log}
}

func (r *Resource) decode(rd io.Reader) error {
	br := &blobReader{r: rd}
	var m [4]byte
	br.raw(m[:])
	if br.err != nil {
		return br.err
	}
	if string(m[:]) != magic {
		return fmt.Errorf("%w: %q", ErrBadMagic, m[:])
	}
	v := Version(br.i32())
	if br.err != nil {
		return br.err
	}
	if v > VersionLatest {
		return fmt.Errorf("%w: %d > %d", ErrVersionTooNew, v, VersionLatest)
	}
	if v < VersionAnimationSets {
		return fmt.Errorf("%w: version %d", ErrMalformed, v)
	}

	n := br.count(anim.MaxInputs)
	for i := 0; i < n && br.err == nil; i++ {
		idx := r.Decl.AddInput()
		typ := br.typ()
		if v < VersionInputRefactor {
			br.i32()
		}
		r.Decl.Inputs[idx] = anim.Input{Type: typ, Name: br.str()}
	}
	r.Decl.RecalculateOffsets()

	n = br.count(anim.MaxConstants)
	for i := 0; i < n && br.err == nil; i++ {
		idx := r.Decl.AddConstant()
		typ := br.typ()
		val := br.value(typ)
		r.Decl.Constants[idx] = anim.Constant{Value: val, Name: br.str()}
	}

	n = br.count(maxCount)
	for i := 0; i < n && br.err == nil; i++ {
		r.SetNames = append(r.SetNames, br.str())
	}
	n = br.count(maxCount)
	for i := 0; i < n && br.err == nil; i++ {
		r.Entries = append(r.Entries, AnimSetEntry{Set: int(br.i32()), Hash: br.u32(), Path: br.str()})
	}

	if v >= VersionMaxRootRotationSpeed {
		r.MaxRootRotationSpeed = br.f32()
	}
	if v >= VersionMasks {
		n = br.count(maxCount)
		for i := 0; i < n && br.err == nil; i++ {
			mask := BoneMask{Name: br.str()}
			words := br.count(maxCount)
			for j := 0; j < words && br.err == nil; j++ {
				mask.Bits = append(mask.Bits, br.u64())
			}
			r.Masks = append(r.Masks, mask)
		}
	}

	r.Graph.Root = int(br.i32())
	n = br.count(maxCount)
	r.Graph.Nodes = make([]Node, 0, min(n, 64))
	for i := 0; i < n && br.err == nil; i++ {
		r.Graph.Nodes = append(r.Graph.Nodes, decodeNode(br, v))
	}
	n = br.count(maxCount)
	for i := 0; i < n && br.err == nil; i++ {
		e := Edge{From: int(br.i32()), To: int(br.i32())}
		e.Condition.Expression = br.str()
		e.BlendDuration = br.f32()
		r.Graph.Edges = append(r.Graph.Edges, e)
	}

	if v >= VersionEndGuard {
		if guard := br.u32(); br.err == nil && guard != endGuard {
			return fmt.Errorf("%w: end guard %#x", ErrMalformed, guard)
		}
	}
	return br.err
}

func decodeNode(br *blobReader, v Version) Node {
	n := Node{Kind: Kind(br.u8()), Name: br.str(), Parent: int(br.i32())}
	if v >= VersionEventsFix {
		n.OnEnter = br.strs()
		n.OnExit = br.strs()
	} else if v >= VersionEnterExitEvents {
		n.OnEnter = splitEvents(br.str())
		n.OnExit = splitEvents(br.str())
	}

	switch n.Kind {
	case KindSingle:
		n.Single.Clip = br.u32()
		n.Single.Looped = br.bool()
		n.Single.Speed = 1
		if v >= VersionAnimationSpeedMultiplier {
			n.Single.Speed = br.f32()
		}
	case KindBlend:
		n.Blend.Input = int(br.i32())
		n.Blend.Mask = -1
		if v >= VersionMasks {
			n.Blend.Mask = int(br.i32())
		}
		n.Blend.Looped = br.bool()
		n.Blend.Speed = 1
		if v >= VersionAnimationSpeedMultiplier {
			n.Blend.Speed = br.f32()
		}
		count := br.count(maxCount)
		for i := 0; i < count && br.err == nil; i++ {
			n.Blend.Children = append(n.Blend.Children, BlendChild{Clip: br.u32(), Value: br.f32()})
		}
	case KindSubGraph:
		n.Sub.Entry = int(br.i32())
		n.Sub.Children = br.ints()
		n.Sub.Edges = br.ints()
	default:
		br.fail(fmt.Errorf("%w: node %q has kind %d", ErrCorruptGraph, n.Name, n.Kind))
	}
	return n
}

func splitEvents(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type blobWriter struct {
	w   io.Writer
	buf [8]byte
	err error
}

func (b *blobWriter) raw(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
}

func (b *blobWriter) u8(v uint8) {
	b.buf[0] = v
	b.raw(b.buf[:1])
}

func (b *blobWriter) bool(v bool) {
	if v {
		b.u8(1)
		return
	}
	b.u8(0)
}

func (b *blobWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(b.buf[:4], v)
	b.raw(b.buf[:4])
}

func (b *blobWriter) u64(v uint64) {
	binary.LittleEndian.PutUint64(b.buf[:8], v)
	b.raw(b.buf[:8])
}

func (b *blobWriter) i32(v int32)   { b.u32(uint32(v)) }
func (b *blobWriter) f32(v float32) { b.u32(math.Float32bits(v)) }

func (b *blobWriter) value(v anim.Value) {
	var buf [4]byte
	anim.WriteValue(buf[:], 0, v)
	b.raw(buf[:])
}

func (b *blobWriter) str(s string) {
	if len(s) > maxString && b.err == nil {
		b.err = fmt.Errorf("%w: string of %d bytes", ErrMalformed, len(s))
		return
	}
	b.u32(uint32(len(s)))
	b.raw([]byte(s))
}

func (b *blobWriter) strs(list []string) {
	b.u32(uint32(len(list)))
	for _, s := range list {
		b.str(s)
	}
}

func (b *blobWriter) ints(list []int) {
	b.u32(uint32(len(list)))
	for _, v := range list {
		b.i32(int32(v))
	}
}

// blobReader records the first error and returns zero values afterwards,
// so decoding code reads straight through and checks err once.
type blobReader struct {
	r   io.Reader
	buf [8]byte
	err error
}

func (b *blobReader) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *blobReader) raw(p []byte) {
	if b.err != nil {
		clear(p)
		return
	}
	if _, err := io.ReadFull(b.r, p); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrTruncated
		}
		b.fail(err)
		clear(p)
	}
}

func (b *blobReader) u8() uint8 {
	b.raw(b.buf[:1])
	return b.buf[0]
}

func (b *blobReader) bool() bool { return b.u8() != 0 }

func (b *blobReader) u32() uint32 {
	b.raw(b.buf[:4])
	return binary.LittleEndian.Uint32(b.buf[:4])
}

func (b *blobReader) u64() uint64 {
	b.raw(b.buf[:8])
	return binary.LittleEndian.Uint64(b.buf[:8])
}

func (b *blobReader) i32() int32   { return int32(b.u32()) }
func (b *blobReader) f32() float32 { return math.Float32frombits(b.u32()) }

func (b *blobReader) typ() anim.Type {
	t := anim.Type(b.i32())
	if t < anim.TypeFloat || t > anim.TypeEmpty {
		b.fail(fmt.Errorf("%w: value type %d", ErrMalformed, t))
		return anim.TypeEmpty
	}
	return t
}

func (b *blobReader) value(t anim.Type) anim.Value {
	b.raw(b.buf[:4])
	if b.err != nil {
		return anim.Value{Type: anim.TypeEmpty}
	}
	return anim.ReadValue(b.buf[:4], 0, t)
}

func (b *blobReader) count(limit int) int {
	n := b.u32()
	if b.err != nil {
		return 0
	}
	if int64(n) > int64(limit) {
		b.fail(fmt.Errorf("%w: count %d exceeds %d", ErrMalformed, n, limit))
		return 0
	}
	return int(n)
}

func (b *blobReader) str() string {
	n := b.count(maxString)
	if n == 0 {
		return ""
	}
	p := make([]byte, n)
	b.raw(p)
	if b.err != nil {
		return ""
	}
	return string(p)
}

func (b *blobReader) strs() []string {
	n := b.count(maxCount)
	var out []string
	for i := 0; i < n && b.err == nil; i++ {
		out = append(out, b.str())
	}
	return out
}

func (b *blobReader) ints() []int {
	n := b.count(maxCount)
	var out []int
	for i := 0; i < n && b.err == nil; i++ {
		out = append(out, int(b.i32()))
	}
	return out
}
