package prefabs

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/animgraph/anim/controller"
	"github.com/milk9111/animgraph/logger"
)

// Library builds controllers on first use and caches them by cleaned path.
// Paths ending in ".act" are compiled binaries, everything else a YAML spec.
type Library struct {
	Clips controller.ClipLoader
	Log   logrus.FieldLogger

	mu    sync.Mutex
	cache map[string]*controller.Resource
}

func NewLibrary(clips controller.ClipLoader) *Library {
	return &Library{Clips: clips, cache: make(map[string]*controller.Resource)}
}

func (l *Library) log() logrus.FieldLogger {
	return logger.Or(l.Log)
}

// Controller returns the cached resource for path, building it if needed.
func (l *Library) Controller(path string) (*controller.Resource, error) {
	key := cleanPrefabPath(path)
	l.mu.Lock()
	res, ok := l.cache[key]
	l.mu.Unlock()
	if ok {
		return res, nil
	}
	return l.Reload(key)
}

// Reload rebuilds path and replaces the cached resource. On error the cached
// resource is kept.
func (l *Library) Reload(path string) (*controller.Resource, error) {
	key := cleanPrefabPath(path)
	res, err := l.load(key)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	if l.cache == nil {
		l.cache = make(map[string]*controller.Resource)
	}
	l.cache[key] = res
	l.mu.Unlock()
	return res, nil
}

// Paths lists the cached controller paths.
func (l *Library) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.cache))
	for k := range l.cache {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Cached reports whether file maps to a cached controller.
func (l *Library) Cached(file string) (string, bool) {
	key := cleanPrefabPath(file)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.cache[key]
	return key, ok
}

func (l *Library) load(key string) (*controller.Resource, error) {
	log := l.log().WithField("controller", key)
	if strings.EqualFold(filepath.Ext(key), ".act") {
		data, err := Load(key)
		if err != nil {
			return nil, err
		}
		res := controller.NewResource(key)
		res.Log = l.Log
		if err := res.Load(data, l.Clips); err != nil {
			return nil, err
		}
		return res, nil
	}

	res, warnings, err := BuildFile(key, l.Clips)
	for _, w := range warnings {
		log.Warn(w.String())
	}
	if err != nil {
		return nil, err
	}
	res.Path = key
	res.Log = l.Log
	log.WithField("states", len(res.Graph.Nodes)-1).Debug("prefabs: controller built")
	return res, nil
}
