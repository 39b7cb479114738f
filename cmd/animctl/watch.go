package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/animgraph/config"
	"github.com/milk9111/animgraph/logger"
	"github.com/milk9111/animgraph/prefabs"
	"github.com/milk9111/animgraph/script"
)

// runWatch runs a live simulation and swaps in rebuilt controllers whenever
// their files change on disk.
func runWatch(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	ctrl := fs.String("controller", "controllers/hero.yaml", "controller spec")
	scriptPath := fs.String("script", "", "tengo driver script")
	debounce := fs.Duration("debounce", prefabs.DefaultDebounce, "quiet period before a change is applied")
	_ = fs.Parse(args)

	s, err := newScene(cfg, *ctrl, *scriptPath)
	if err != nil {
		return err
	}
	return watchScene(cfg, s, *scriptPath, *debounce)
}

func watchScene(cfg config.Config, s *scene, scriptPath string, debounce time.Duration) error {
	var dirs []string
	for _, sub := range []string{"controllers", "clips", "scripts"} {
		dir := filepath.Join(prefabs.Root, sub)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		return fmt.Errorf("watch: nothing to watch under %s", prefabs.Root)
	}
	w, err := prefabs.NewWatcher(debounce, dirs...)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := logger.Log.WithField("controllers", s.lib.Paths())
	log.WithField("dirs", dirs).Info("animctl: watching")

	ticker := time.NewTicker(time.Second / time.Duration(cfg.TickRate))
	defer ticker.Stop()
	last := ""
	errs := w.Errors
	for {
		select {
		case <-ctx.Done():
			return nil
		case ch, ok := <-w.Events:
			if !ok {
				return nil
			}
			s.fileChanged(cfg, ch, scriptPath)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.WithError(err).Warn("animctl: watch error")
		case <-ticker.C:
			path, events := s.step(cfg.DT())
			if path != last || events != "" {
				log.WithFields(logrus.Fields{"state": path, "events": events}).Info("animctl: tick")
				last = path
			}
		}
	}
}

func (s *scene) fileChanged(cfg config.Config, ch prefabs.Change, scriptPath string) {
	file := ch.Path
	log := logger.Log.WithField("file", file)
	switch {
	case ch.Kind == prefabs.ChangeScript:
		if scriptPath == "" || filepath.Base(file) != filepath.Base(scriptPath) {
			return
		}
		d, err := script.Load(scriptPath)
		if err != nil {
			log.WithError(err).Warn("animctl: script reload failed, keeping previous")
			return
		}
		s.driver = d
		log.Info("animctl: script reloaded")
	case ch.Kind == prefabs.ChangeSpec && strings.Contains(filepath.ToSlash(file), "/clips/"):
		clips, err := clipLibrary(cfg)
		if err != nil {
			log.WithError(err).Warn("animctl: clip catalogue reload failed")
			return
		}
		s.lib.Clips = clips
		for _, p := range s.lib.Paths() {
			s.reload(p)
		}
	default:
		if key, ok := s.lib.Cached(file); ok {
			s.reload(key)
		}
	}
}

func (s *scene) reload(path string) {
	res, err := s.lib.Reload(path)
	if err != nil {
		logger.Log.WithError(err).WithField("controller", path).Warn("animctl: rebuild failed, keeping previous controller")
		return
	}
	s.anim.QueueReload(res)
}
