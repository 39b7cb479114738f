package prefabs

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file has to stay quiet before its change is
// reported.
const DefaultDebounce = 100 * time.Millisecond

// ChangeKind classifies a changed prefab file.
type ChangeKind int

const (
	// ChangeSpec is a controller spec or clip catalogue.
	ChangeSpec ChangeKind = iota + 1
	ChangeScript
	// ChangeCompiled is a serialized .act controller.
	ChangeCompiled
)

func changeKind(path string) ChangeKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ChangeSpec
	case ".tengo":
		return ChangeScript
	case ".act":
		return ChangeCompiled
	}
	return 0
}

// Change is one settled file change.
type Change struct {
	Path string
	Kind ChangeKind
}

// Watcher reports prefab files once they stop changing, so an editor that
// writes a file in several steps triggers a single rebuild.
type Watcher struct {
	Events chan Change
	Errors chan error

	fsw      *fsnotify.Watcher
	debounce time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func NewWatcher(debounce time.Duration, dirs ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		Events:   make(chan Change, 16),
		Errors:   make(chan error, 1),
		fsw:      fsw,
		debounce: debounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops the watcher and waits until Events and Errors are closed.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stop)
		err = w.fsw.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.Errors)
	defer close(w.Events)

	// last write per file, reported once it is debounce old
	pending := make(map[string]time.Time)
	tick := time.NewTicker(w.debounce / 2)
	defer tick.Stop()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 || changeKind(ev.Name) == 0 {
				continue
			}
			pending[ev.Name] = time.Now()

		case now := <-tick.C:
			for name, at := range pending {
				if now.Sub(at) < w.debounce {
					continue
				}
				delete(pending, name)
				select {
				case w.Events <- Change{Path: name, Kind: changeKind(name)}:
				case <-w.stop:
					return
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}

		case <-w.stop:
			return
		}
	}
}
