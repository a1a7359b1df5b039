// Package prune removes projects and Xcode DerivedData entries left behind by
// earlier conversions under superseded app names.
//
// Pruning is best effort: every filesystem operation is guarded on its own,
// failures are logged as warnings and the pass continues.
package prune

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"safaribuild/internal/config"
	"safaribuild/internal/logging"
)

// Separator joins the sanitized project name and the random suffix Xcode
// appends to DerivedData directory names.
const Separator = "-"

// Result counts removed artifacts. Only used for reporting.
type Result struct {
	Projects    int
	DerivedData int
}

// Total is the sum of both counters.
func (r Result) Total() int { return r.Projects + r.DerivedData }

// FS is the filesystem surface the pruner touches.
type FS interface {
	Lstat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	RemoveAll(path string) error
}

type osFS struct{}

func (osFS) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}

func (osFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

func (osFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Pruner removes legacy artifacts.
type Pruner struct {
	FS  FS
	Log *zap.Logger
}

// New returns a Pruner backed by the real filesystem.
func New(log *zap.Logger) *Pruner {
	return &Pruner{FS: osFS{}, Log: logging.OrNop(log)}
}

// Prune removes <ProjectLocation>/<name> for every legacy name and every
// DerivedData subdirectory named <Sanitize(name)>-*. It does nothing when
// cleanup is skipped or there are no legacy names. Names that are not a single
// path element, and the current app name, are never removed.
func (p *Pruner) Prune(cfg config.Config) Result {
	var res Result
	if cfg.SkipCleanup || len(cfg.LegacyNames) == 0 {
		return res
	}
	log := logging.OrNop(p.Log)

	names := make([]string, 0, len(cfg.LegacyNames))
	for _, name := range cfg.LegacyNames {
		if !config.IsPlainName(name) || name == cfg.AppName {
			log.Warn("ignoring unsafe legacy name", zap.String("name", name))
			continue
		}
		names = append(names, name)
	}

	for _, name := range names {
		target := filepath.Join(cfg.ProjectLocation, name)
		if p.remove(target, "legacy project") {
			res.Projects++
		}
	}

	res.DerivedData = p.pruneDerivedData(cfg.DerivedDataDir, names)

	log.Info("legacy artifacts pruned",
		zap.Int("projects", res.Projects),
		zap.Int("derived_data", res.DerivedData))
	return res
}

func (p *Pruner) pruneDerivedData(root string, names []string) int {
	if root == "" {
		return 0
	}
	log := logging.OrNop(p.Log)

	entries, err := p.FS.ReadDir(root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("cannot list DerivedData", zap.String("path", root), zap.Error(err))
		}
		return 0
	}

	prefixes := Prefixes(names)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !MatchesAny(entry.Name(), prefixes) {
			continue
		}
		if p.remove(filepath.Join(root, entry.Name()), "DerivedData entry") {
			removed++
		}
	}
	return removed
}

// remove deletes target recursively and reports whether it existed and is
// now gone.
func (p *Pruner) remove(target, kind string) bool {
	log := logging.OrNop(p.Log)

	if _, err := p.FS.Lstat(target); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("cannot inspect "+kind, zap.String("path", target), zap.Error(err))
		}
		return false
	}
	if err := p.FS.RemoveAll(target); err != nil {
		log.Warn("failed to remove "+kind, zap.String("path", target), zap.Error(err))
		return false
	}
	log.Debug("removed "+kind, zap.String("path", target))
	return true
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Sanitize maps every character outside [A-Za-z0-9_] to '_', the way Xcode
// derives DerivedData directory names from project names.
func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Prefixes returns Sanitize(name)+Separator for each name.
func Prefixes(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, Sanitize(name)+Separator)
	}
	return out
}

// MatchesAny reports whether dir starts with one of prefixes.
func MatchesAny(dir string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(dir, prefix) {
			return true
		}
	}
	return false
}
