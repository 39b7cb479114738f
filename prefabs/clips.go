package prefabs

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/milk9111/animgraph/anim/controller"
)

// Clip is clip metadata loaded from a catalogue. It carries no sample data;
// the pose collaborator resolves the name to real animation.
type Clip struct {
	Name     string
	Length   float32
	Markers  []controller.ClipEvent
	Disabled bool
}

func (c *Clip) Duration() float32              { return c.Length }
func (c *Clip) Ready() bool                    { return !c.Disabled }
func (c *Clip) Events() []controller.ClipEvent { return c.Markers }

// ClipLibrary resolves clip paths against the clips of every loaded YAML
// catalogue. A path is a clip name, optionally qualified as "file#name".
type ClipLibrary struct {
	mu    sync.RWMutex
	clips map[string]*Clip
}

func NewClipLibrary() *ClipLibrary {
	return &ClipLibrary{clips: make(map[string]*Clip)}
}

// LoadClipLibrary reads the given catalogues, later files overriding earlier
// clip names.
func LoadClipLibrary(files ...string) (*ClipLibrary, error) {
	lib := NewClipLibrary()
	for _, f := range files {
		if err := lib.LoadCatalog(f); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func (l *ClipLibrary) LoadCatalog(filename string) error {
	spec, err := LoadSpec[ClipCatalogSpec](filename)
	if err != nil {
		return err
	}
	l.AddCatalog(spec)
	return nil
}

func (l *ClipLibrary) AddCatalog(spec ClipCatalogSpec) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, cs := range spec.Clips {
		clip := &Clip{Name: cs.Name, Length: cs.Duration}
		for _, ev := range cs.Events {
			clip.Markers = append(clip.Markers, controller.ClipEvent{Time: ev.Time, Name: ev.Name})
		}
		slices.SortStableFunc(clip.Markers, func(a, b controller.ClipEvent) int {
			switch {
			case a.Time < b.Time:
				return -1
			case a.Time > b.Time:
				return 1
			}
			return 0
		})
		l.clips[cs.Name] = clip
	}
}

// Add registers a clip directly.
func (l *ClipLibrary) Add(clip *Clip) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clips[clip.Name] = clip
}

func (l *ClipLibrary) LoadClip(path string) (controller.Clip, error) {
	name := path
	if i := strings.LastIndexByte(path, '#'); i >= 0 {
		name = path[i+1:]
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	clip, ok := l.clips[name]
	if !ok {
		return nil, fmt.Errorf("prefabs: clip %q not found", path)
	}
	return clip, nil
}

func (l *ClipLibrary) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.clips)
}
