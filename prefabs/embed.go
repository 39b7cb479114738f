package prefabs

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// PrefabsFS holds the default controllers, clip catalogues and driver
// scripts.
//
//go:embed controllers/*.yaml clips/*.yaml scripts/*.tengo
var PrefabsFS embed.FS

// Root is the directory whose files override the embedded defaults.
var Root = "prefabs"

// overlay serves a file from dir when it exists there and from base
// otherwise.
type overlay struct {
	dir  string
	base fs.FS
}

func (o overlay) Open(name string) (fs.File, error) {
	if f, err := os.DirFS(o.dir).Open(name); err == nil {
		return f, nil
	}
	return o.base.Open(name)
}

// FS is the prefab tree as seen by the loaders.
func FS() fs.FS {
	return overlay{dir: Root, base: PrefabsFS}
}

// Load reads a prefab through FS, falling back to name as a plain file path
// for files outside the tree. Names may carry a leading Root.
func Load(name string) ([]byte, error) {
	clean := cleanPrefabPath(name)
	if fs.ValidPath(clean) {
		if data, err := fs.ReadFile(FS(), clean); err == nil {
			return data, nil
		}
	}
	return os.ReadFile(name)
}

// LoadScript reads scripts/<name>; the "scripts/" prefix is optional.
func LoadScript(name string) ([]byte, error) {
	return fs.ReadFile(FS(), cleanScriptPath(name))
}

// ModTime reports the modification time of an override file.
func ModTime(name string) (time.Time, bool) {
	info, err := os.Stat(filepath.Join(Root, filepath.FromSlash(cleanPrefabPath(name))))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Controllers lists the embedded controller specs.
func Controllers() ([]string, error) {
	entries, err := fs.ReadDir(PrefabsFS, "controllers")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if changeKind(e.Name()) == ChangeSpec {
			out = append(out, path.Join("controllers", e.Name()))
		}
	}
	return out, nil
}

func cleanPrefabPath(p string) string {
	s := filepath.ToSlash(p)
	if after, ok := strings.CutPrefix(s, filepath.ToSlash(Root)+"/"); ok {
		return after
	}
	return s
}

func cleanScriptPath(p string) string {
	s := strings.TrimPrefix(cleanPrefabPath(p), "scripts/")
	return path.Join("scripts", s)
}
