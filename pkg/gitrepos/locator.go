// Package gitrepos finds git working trees under a set of search roots.
package gitrepos

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// MarkerDir is the subdirectory that identifies a repository root.
const MarkerDir = ".git"

// DefaultExcludeDirs returns directory names that are never descended into.
func DefaultExcludeDirs() []string {
	return []string{
		".git",
		"node_modules",
		".venv",
		"venv",
		"__pycache__",
		".idea",
		".vscode",
		".cursor",
	}
}

// windowsExcludeDirs are profile folders that only add noise (and access
// errors) on Windows.
var windowsExcludeDirs = []string{"AppData", "Application Data", "Local Settings"}

// Locator walks directory trees looking for repository roots.
type Locator struct {
	exclude map[string]struct{}
	logger  *slog.Logger
}

// NewLocator creates a Locator that prunes the given directory names. The
// marker directory is always pruned; Windows profile noise is added on Windows.
func NewLocator(excludeDirs []string, logger *slog.Logger) *Locator {
	return newLocator(excludeDirs, runtime.GOOS, logger)
}

func newLocator(excludeDirs []string, goos string, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	exclude := make(map[string]struct{}, len(excludeDirs)+len(windowsExcludeDirs)+1)
	exclude[MarkerDir] = struct{}{}
	for _, d := range excludeDirs {
		exclude[d] = struct{}{}
	}
	if goos == "windows" {
		for _, d := range windowsExcludeDirs {
			exclude[d] = struct{}{}
		}
	}
	return &Locator{exclude: exclude, logger: logger}
}

// Discover returns every repository root under root in depth-first order.
// A found repository is not descended into. A missing or non-directory root
// yields an empty result and a warning; unreadable subtrees are reported and
// skipped while their siblings are still walked. The walk stops early once
// ctx is done, returning what was found so far.
func (l *Locator) Discover(ctx context.Context, root string) []string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		l.logger.Warn("cannot resolve search path", "path", root, "error", err)
		return nil
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		l.logger.Warn("search path does not exist", "path", absRoot, "error", err)
		return nil
	}
	if !info.IsDir() {
		l.logger.Warn("search path is not a directory", "path", absRoot)
		return nil
	}

	var repos []string
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				l.logger.Warn("permission denied while searching repositories", "path", path)
			} else {
				l.logger.Warn("error while searching repositories", "path", path, "error", err)
			}
			if d != nil && d.IsDir() && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != absRoot {
			if _, skip := l.exclude[d.Name()]; skip {
				return filepath.SkipDir
			}
		}
		if IsRepositoryRoot(path) {
			repos = append(repos, filepath.Clean(path))
			return filepath.SkipDir
		}
		return nil
	})
	if walkErr != nil {
		l.logger.Warn("repository search aborted", "path", absRoot, "error", walkErr)
	}
	return repos
}

// DiscoverAll runs Discover for each root and concatenates the results,
// keeping only the first occurrence of a repository seen from overlapping roots.
func (l *Locator) DiscoverAll(ctx context.Context, roots []string) []string {
	seen := make(map[string]struct{})
	var all []string
	for _, root := range roots {
		if ctx.Err() != nil {
			break
		}
		repos := l.Discover(ctx, root)
		if len(repos) > 0 {
			l.logger.Info("repositories found", "root", root, "count", len(repos))
		}
		for _, repo := range repos {
			if _, dup := seen[repo]; dup {
				continue
			}
			seen[repo] = struct{}{}
			all = append(all, repo)
		}
	}
	return all
}

// IsRepositoryRoot reports whether dir contains the marker subdirectory.
func IsRepositoryRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, MarkerDir))
	return err == nil && info.IsDir()
}
