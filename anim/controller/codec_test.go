package controller

import (
	"bytes"
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"github.com/milk9111/animgraph/anim"
	"github.com/milk9111/animgraph/anim/condition"
)

// fullResource exercises every persisted field.
func fullResource(t *testing.T) *Resource {
	t.Helper()
	r := NewResource("test/full")
	r.Log = quietLogger()
	r.SetNames = []string{"default", "armed"}
	r.MaxRootRotationSpeed = 3.5
	speed := addInput(t, r, anim.TypeFloat, "speed")
	addInput(t, r, anim.TypeInt, "combo")
	addInput(t, r, anim.TypeBool, "airborne")
	c := r.Decl.AddConstant()
	if err := r.Decl.SetConstant(c, anim.FloatValue(0.1), "walk_threshold"); err != nil {
		t.Fatalf("set constant: %v", err)
	}
	r.Masks = []BoneMask{NewBoneMask("upper", 4, 5, 6, 90)}

	walk := r.AddAnimation(0, "walk", "clips/walk", nil)
	run := r.AddAnimation(0, "run", "clips/run", nil)
	jump := r.AddAnimation(0, "jump", "clips/jump", nil)
	r.AddAnimation(1, "walk", "clips/idle", nil)

	ground := addNode(t, r, r.Graph.Root, Node{Kind: KindSubGraph, Name: "Ground", OnEnter: []string{"land"}, OnExit: []string{"takeoff", "dust"}})
	move := addNode(t, r, ground, Node{Kind: KindBlend, Name: "Move", Blend: Blend{
		Input: speed, Mask: 0, Looped: true, Speed: 1.25,
		Children: []BlendChild{{Clip: walk, Value: 0}, {Clip: run, Value: 1}},
	}})
	attack := addNode(t, r, ground, Node{Kind: KindSingle, Name: "Attack", Single: Single{Clip: run, Speed: 2}})
	air := addNode(t, r, r.Graph.Root, Node{Kind: KindSingle, Name: "Air", Single: Single{Clip: jump, Looped: true}})

	addEdge(t, r, move, attack, "combo > 0 && speed < walk_threshold", 0.1)
	addEdge(t, r, attack, move, "combo == 0", 0.2)
	addEdge(t, r, attack, attack, "combo > 1", 0.05)
	addEdge(t, r, ground, air, "airborne", 0)
	addEdge(t, r, air, ground, "!airborne", 0.3)
	mustCreate(t, r)
	return r
}

func encode(t *testing.T, r *Resource, v Version) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := r.encode(&buf, v); err != nil {
		t.Fatalf("encode v%d: %v", v, err)
	}
	return buf.Bytes()
}

func load(t *testing.T, data []byte) (*Resource, error) {
	t.Helper()
	r := NewResource("test/loaded")
	r.Log = quietLogger()
	err := r.Load(data, testClips)
	return r, err
}

func TestSerializeRoundTrip(t *testing.T) {
	src := fullResource(t)
	var buf bytes.Buffer
	if err := src.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("ACTL")) {
		t.Fatalf("missing magic")
	}

	got, err := load(t, buf.Bytes())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.State() != StateReady {
		t.Fatalf("expected ready, got %v", got.State())
	}
	if got.Decl != src.Decl {
		t.Fatalf("decl mismatch:\n got %+v\nwant %+v", got.Decl, src.Decl)
	}
	if !slices.Equal(got.SetNames, src.SetNames) || !slices.Equal(got.Entries, src.Entries) {
		t.Fatalf("set mismatch: %v %v", got.SetNames, got.Entries)
	}
	if got.MaxRootRotationSpeed != 3.5 {
		t.Fatalf("expected root rotation speed 3.5, got %v", got.MaxRootRotationSpeed)
	}
	if len(got.Masks) != 1 || !slices.Equal(got.Masks[0].Bones(), []int{4, 5, 6, 90}) {
		t.Fatalf("mask mismatch: %+v", got.Masks)
	}
	if got.Graph.Root != src.Graph.Root || len(got.Graph.Nodes) != len(src.Graph.Nodes) {
		t.Fatalf("graph shape mismatch")
	}
	for i := range src.Graph.Nodes {
		a, b := &src.Graph.Nodes[i], &got.Graph.Nodes[i]
		if a.Kind != b.Kind || a.Name != b.Name || a.Parent != b.Parent ||
			!slices.Equal(a.OnEnter, b.OnEnter) || !slices.Equal(a.OnExit, b.OnExit) ||
			a.Single != b.Single || a.Blend.Input != b.Blend.Input || a.Blend.Mask != b.Blend.Mask ||
			a.Blend.Speed != b.Blend.Speed || !slices.Equal(a.Blend.Children, b.Blend.Children) ||
			a.Sub.Entry != b.Sub.Entry || !slices.Equal(a.Sub.Children, b.Sub.Children) || !slices.Equal(a.Sub.Edges, b.Sub.Edges) {
			t.Fatalf("node %d mismatch:\n got %+v\nwant %+v", i, *b, *a)
		}
	}
	for i := range src.Graph.Edges {
		a, b := &src.Graph.Edges[i], &got.Graph.Edges[i]
		if a.From != b.From || a.To != b.To || a.BlendDuration != b.BlendDuration || a.Condition.Expression != b.Condition.Expression {
			t.Fatalf("edge %d mismatch: got %+v want %+v", i, *b, *a)
		}
		if !bytes.Equal(a.Condition.Bytecode, b.Condition.Bytecode) {
			t.Fatalf("edge %d: recompiled bytecode differs", i)
		}
	}
	if _, ok := got.Sets.Animation(1, anim.HashName("walk")); !ok {
		t.Fatalf("expected set 1 walk to be bound through the loader")
	}

	var again bytes.Buffer
	if err := got.Serialize(&again); err != nil {
		t.Fatalf("serialize again: %v", err)
	}
	if !bytes.Equal(again.Bytes(), buf.Bytes()) {
		t.Fatalf("serialization is not stable across a round trip")
	}
}

func TestLoadedResourceRuns(t *testing.T) {
	src, idle, run := idleRun(t, 0)
	var buf bytes.Buffer
	if err := src.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	r, err := load(t, buf.Bytes())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	in := mustInstance(t, r)
	want := []int{idle, run, run, idle}
	for i, s := range []float32{0, 0.5, 0.5, 0} {
		in.SetFloat(0, s)
		in.Tick(0.1)
		if in.ActiveState() != want[i] {
			t.Fatalf("tick %d: expected %d, got %d", i, want[i], in.ActiveState())
		}
	}
}

func TestLoadOldVersions(t *testing.T) {
	src := fullResource(t)
	move := src.Graph.Find("Move")
	attack := src.Graph.Find("Attack")
	ground := src.Graph.Find("Ground")

	tests := []struct {
		v        Version
		events   bool
		speed    bool
		masks    bool
		rotation bool
	}{
		{VersionAnimationSets, false, false, false, false},
		{VersionMaxRootRotationSpeed, false, false, false, true},
		{VersionInputRefactor, false, false, false, true},
		{VersionEnterExitEvents, true, false, false, true},
		{VersionAnimationSpeedMultiplier, true, true, false, true},
		{VersionMasks, true, true, true, true},
		{VersionEndGuard, true, true, true, true},
		{VersionEventsFix, true, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.v.String(), func(t *testing.T) {
			r, err := load(t, encode(t, src, tt.v))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if r.Decl != src.Decl {
				t.Fatalf("decl mismatch")
			}
			if got := r.Graph.Nodes[ground].OnExit; tt.events != (len(got) == 2) {
				t.Fatalf("unexpected exit events %v", got)
			}
			wantSpeed := float32(1)
			if tt.speed {
				wantSpeed = 2
			}
			if got := r.Graph.Nodes[attack].Single.Speed; got != wantSpeed {
				t.Fatalf("expected speed %v, got %v", wantSpeed, got)
			}
			wantMask := -1
			if tt.masks {
				wantMask = 0
			}
			if got := r.Graph.Nodes[move].Blend.Mask; got != wantMask || (len(r.Masks) == 1) != tt.masks {
				t.Fatalf("expected mask %d, got %d with %d masks", wantMask, got, len(r.Masks))
			}
			if (r.MaxRootRotationSpeed == 3.5) != tt.rotation {
				t.Fatalf("unexpected root rotation speed %v", r.MaxRootRotationSpeed)
			}
			if _, err := r.CreateInstance(); err != nil {
				t.Fatalf("create instance: %v", err)
			}
		})
	}
}

func TestLoadFailures(t *testing.T) {
	good := encode(t, fullResource(t), VersionLatest)

	corrupt := fullResource(t)
	corrupt.Graph.Nodes[1].Parent = 3

	emptySub := func(entry func(r *Resource) int) []byte {
		r := NewResource("test/empty_sub")
		r.Log = quietLogger()
		sub := addNode(t, r, r.Graph.Root, Node{Kind: KindSubGraph, Name: "Empty"})
		r.Graph.Nodes[sub].Sub.Entry = entry(r)
		return encode(t, r, VersionLatest)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"bad_magic", append([]byte("ACTX"), good[4:]...), ErrBadMagic},
		{"too_new", func() []byte {
			d := slices.Clone(good)
			binary.LittleEndian.PutUint32(d[4:8], uint32(VersionLatest+1))
			return d
		}(), ErrVersionTooNew},
		{"zero_version", func() []byte {
			d := slices.Clone(good)
			binary.LittleEndian.PutUint32(d[4:8], 0)
			return d
		}(), ErrMalformed},
		{"truncated_header", good[:6], ErrTruncated},
		{"truncated_body", good[:len(good)/2], ErrTruncated},
		{"missing_guard", good[:len(good)-4], ErrTruncated},
		{"bad_guard", func() []byte {
			d := slices.Clone(good)
			binary.LittleEndian.PutUint32(d[len(d)-4:], 0xDEADBEEF)
			return d
		}(), ErrMalformed},
		{"corrupt_graph", encode(t, corrupt, VersionLatest), ErrCorruptGraph},
		{"empty_sub_graph_entry_out_of_range", emptySub(func(*Resource) int { return 5 }), ErrCorruptGraph},
		{"empty_sub_graph_entry_is_root", emptySub(func(r *Resource) int { return r.Graph.Root }), ErrCorruptGraph},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := load(t, tt.data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if r.State() != StateFailure || !errors.Is(r.Err(), tt.want) {
				t.Fatalf("expected failure state, got %v (%v)", r.State(), r.Err())
			}
			if _, err := r.CreateInstance(); !errors.Is(err, ErrNotReady) {
				t.Fatalf("expected ErrNotReady, got %v", err)
			}
		})
	}
}

func TestLoadDropsUncompilableEdges(t *testing.T) {
	src, _, _ := idleRun(t, 0)
	src.Graph.Edges[0].Condition.Expression = "stamina > 1"
	var buf bytes.Buffer
	if err := src.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}

	r, err := load(t, buf.Bytes())
	if err != nil {
		t.Fatalf("expected a bad condition to load, got %v", err)
	}
	e := r.Graph.Edges[0]
	if len(e.Condition.Bytecode) != 0 || e.Condition.Err != condition.UnknownIdentifier {
		t.Fatalf("expected empty bytecode with UNKNOWN_IDENTIFIER, got %v %v", e.Condition.Bytecode, e.Condition.Err)
	}
	if len(r.Graph.Edges[1].Condition.Bytecode) == 0 {
		t.Fatalf("expected the valid edge to compile")
	}
}

func TestLoadReplacesPreviousContents(t *testing.T) {
	a, _, _ := idleRun(t, 0)
	b := fullResource(t)
	var buf bytes.Buffer
	if err := b.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if err := a.Load(buf.Bytes(), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	if a.Path != "test/idle_run" {
		t.Fatalf("expected path to be kept, got %q", a.Path)
	}
	if a.Graph.Find("Ground") < 0 || a.Graph.Find("Idle") >= 0 {
		t.Fatalf("expected graph to be replaced")
	}
	if a.Sets.Len() != 0 {
		t.Fatalf("expected no clips bound without a loader, got %d", a.Sets.Len())
	}
}

func TestPeekVersion(t *testing.T) {
	r := fullResource(t)
	for _, v := range []Version{VersionAnimationSets, VersionMasks, VersionLatest} {
		got, err := PeekVersion(encode(t, r, v))
		if err != nil || got != v {
			t.Fatalf("peek v%d = %v, %v", v, got, err)
		}
	}
	if _, err := PeekVersion([]byte("ACT")); !errors.Is(err, ErrTruncated) {
		t.Fatalf("short header err = %v", err)
	}
	if _, err := PeekVersion([]byte("NOPE\x01\x00\x00\x00")); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("bad magic err = %v", err)
	}
}
