package controller

// ClipEvent is a named marker at a point of a clip's timeline.
type ClipEvent struct {
	Time float32
	Name string
}

// Clip is playable animation data owned by an external loader. The
// controller only needs its length, readiness and markers.
type Clip interface {
	Duration() float32
	Ready() bool
	Events() []ClipEvent
}

// ClipLoader resolves a clip path reference.
type ClipLoader interface {
	LoadClip(path string) (Clip, error)
}

// Skeleton supplies the bone count masks are validated against.
type Skeleton interface {
	BoneCount() int
}
