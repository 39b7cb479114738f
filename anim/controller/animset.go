package controller

// AnimSetEntry is the persisted form of one set binding.
type AnimSetEntry struct {
	Set  int
	Hash uint32
	Path string
}

type setKey struct {
	set  int
	hash uint32
}

// AnimSet maps (set, clip name hash) to a clip. Within one set a hash maps
// to at most one clip.
type AnimSet struct {
	clips map[setKey]Clip
}

// AddAnimation binds clip to hash in set, replacing an existing binding.
func (s *AnimSet) AddAnimation(set int, hash uint32, clip Clip) {
	if s.clips == nil {
		s.clips = make(map[setKey]Clip)
	}
	s.clips[setKey{set: set, hash: hash}] = clip
}

// Animation returns the clip bound to hash in set.
func (s *AnimSet) Animation(set int, hash uint32) (Clip, bool) {
	if s == nil || s.clips == nil {
		return nil, false
	}
	clip, ok := s.clips[setKey{set: set, hash: hash}]
	if !ok || clip == nil {
		return nil, false
	}
	return clip, true
}

// Len reports the number of bindings across all sets.
func (s *AnimSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.clips)
}

// Clear drops every binding. Only used before a reload or destroy.
func (s *AnimSet) Clear() {
	clear(s.clips)
}
