// Package reload watches a processing-tree configuration path and
// republishes a freshly compiled tree whenever it changes on disk
// (SPEC_FULL.md §4.9). The matcher core itself stays stateless and
// reload-agnostic (spec §5, "Reconfiguration": "Tree replacement is
// atomic at the pointer/reference level outside the core"); this package
// is the external collaborator that performs that replacement.
package reload

import (
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/danielsvitols/tornado/internal/buildcache"
	"github.com/danielsvitols/tornado/internal/event"
	"github.com/danielsvitols/tornado/internal/logutil"
	"github.com/danielsvitols/tornado/internal/matcher"
	"github.com/danielsvitols/tornado/internal/report"
	"github.com/danielsvitols/tornado/internal/tree"
	"github.com/danielsvitols/tornado/internal/treecfg"
)

// Supervisor watches a rules path (file or directory) and holds the most
// recently successfully compiled tree. Reads of Current never block on a
// reload in progress.
type Supervisor struct {
	path    string
	current atomic.Pointer[tree.Node]

	cache    *buildcache.Cache
	lastHash uint64

	watcher     *fsnotify.Watcher
	doneWatcher chan struct{}
}

// New compiles the tree at path once and returns a Supervisor ready to
// watch it. The caller must call Start to begin watching, and Close when
// done.
//
// It also opens the build cache (SPEC_FULL §4.10) at a path derived from
// the rules path and records this first successful load's content hash,
// so a later reload triggered by a spurious filesystem event (an atomic
// rename that touches the file without changing its bytes, a metadata-only
// write) can be recognized as a no-op without re-parsing YAML or
// recompiling any regex.
func New(path string) (*Supervisor, error) {
	content, err := treecfg.ReadContent(path)
	if err != nil {
		return nil, err
	}
	t, err := treecfg.Load(path)
	if err != nil {
		return nil, err
	}

	cache, err := buildcache.Open(cachePath(path))
	if err != nil {
		return nil, err
	}
	if err := cache.Record(content, time.Now()); err != nil {
		_ = cache.Close()
		return nil, err
	}

	s := &Supervisor{path: path, cache: cache, lastHash: buildcache.Hash(content)}
	s.current.Store(&t)
	return s, nil
}

func cachePath(path string) string {
	return filepath.Clean(path) + ".buildcache"
}

// Current returns the most recently successfully compiled tree. Safe for
// concurrent use with Start/reload.
func (s *Supervisor) Current() tree.Node {
	return *s.current.Load()
}

// Validate runs the current tree against ev in SkipActions mode and
// reports the outcome through the console reporter (spec §6.1:
// "SkipActions ... Used for dry-run/validation"). It never mutates
// Current; it exists so an operator can sanity-check a freshly reloaded
// tree against a sample event.
func (s *Supervisor) Validate(ev event.Event) matcher.ProcessedNode {
	result := matcher.Match(ev, s.Current(), matcher.SkipActions)
	report.Print(result)
	return result
}

// Start begins watching s.path for changes, recompiling and atomically
// swapping Current on every write, create or rename event whose content
// differs from the last successful load. A failed recompilation is
// logged and the previous tree is kept live (build errors must never take
// a running matcher offline).
func (s *Supervisor) Start() error {
	if s.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(s.path); err != nil {
		_ = w.Close()
		return err
	}
	s.watcher = w
	s.doneWatcher = make(chan struct{})

	go func() {
		watch := s.watcher
		done := s.doneWatcher
		for {
			select {
			case <-done:
				return
			case fsEvent := <-watch.Events:
				switch {
				case fsEvent.Op&fsnotify.Write == fsnotify.Write ||
					fsEvent.Op&fsnotify.Create == fsnotify.Create ||
					fsEvent.Op&fsnotify.Rename == fsnotify.Rename:
					s.reload()
				}
			case err := <-watch.Errors:
				logutil.Warn("reload watcher error: %v", err)
			}
		}
	}()
	return nil
}

func (s *Supervisor) reload() {
	content, err := treecfg.ReadContent(s.path)
	if err != nil {
		logutil.Warn("reload of %s failed to read, keeping previous tree: %v", s.path, err)
		return
	}

	hash := buildcache.Hash(content)
	if hash == s.lastHash {
		logutil.Verbose("reload of %s skipped: content unchanged", s.path)
		return
	}
	if _, seen, err := s.cache.Seen(content); err == nil && seen {
		logutil.Verbose("content of %s matches a previously validated build", s.path)
	}

	t, err := treecfg.Load(s.path)
	if err != nil {
		logutil.Warn("reload of %s rejected, keeping previous tree: %v", s.path, err)
		return
	}
	if err := s.cache.Record(content, time.Now()); err != nil {
		logutil.Warn("failed to record build cache entry for %s: %v", s.path, err)
	}

	s.current.Store(&t)
	s.lastHash = hash
	logutil.Info("reloaded processing tree from %s", s.path)
}

// Close stops watching and releases the underlying fsnotify handle and
// build cache.
func (s *Supervisor) Close() error {
	if s.cache != nil {
		_ = s.cache.Close()
		s.cache = nil
	}
	if s.watcher == nil {
		return nil
	}
	close(s.doneWatcher)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
