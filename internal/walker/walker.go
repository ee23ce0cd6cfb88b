// Package walker implements the Repository Walker (spec §4.2): a
// filesystem scan that discovers candidate source files under a repository
// root, honoring .gitignore, hardcoded ignore patterns, a max file size, and
// a binary-content heuristic. Grounded on the teacher's internal/scanner
// package (directory traversal, isBinaryFile, isGeneratedFile) and
// internal/gitignore (pattern compilation), generalized to the core's
// discover(root, opts) contract.
package walker

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"log/slog"

	"github.com/oracle-rag/oracle/internal/ocerrors"
)

// Options configures a single discover call.
type Options struct {
	MaxBytes        int64
	ExtraIgnoreDirs []string
}

const defaultMaxBytes = 500 * 1024

// Discover walks root depth-first and returns the sorted absolute paths of
// every file accepted for chunking. It never aborts mid-traversal unless
// root itself is invalid; per-entry errors are logged as warnings and
// skipped.
func Discover(root string, opts Options, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, ocerrors.InvalidInput("repository root does not exist", err)
	}
	if !info.IsDir() {
		return nil, ocerrors.InvalidInput("repository root is not a directory", nil)
	}

	m := newMatcher()
	for _, p := range defaultIgnorePatterns {
		m.addPattern(p)
	}
	for _, d := range defaultIgnoreDirs {
		m.addPattern(d + "/")
	}
	for _, d := range opts.ExtraIgnoreDirs {
		m.addPattern(strings.TrimSuffix(d, "/") + "/")
	}

	if err := m.addFromFile(filepath.Join(root, ".gitignore")); err != nil {
		logger.Warn("could not read .gitignore, continuing without it", "root", root, "error", err)
	}

	var accepted []string
	walkDir(root, root, m, opts, logger, &accepted)

	sort.Strings(accepted)
	return accepted, nil
}

func walkDir(root, dir string, m *matcher, opts Options, logger *slog.Logger, accepted *[]string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("could not read directory, skipping", "dir", dir, "error", err)
		return
	}

	for _, entry := range entries {
		fullPath := filepath.Join(dir, entry.Name())
		relPath, err := filepath.Rel(root, fullPath)
		if err != nil {
			logger.Warn("could not compute relative path, skipping", "path", fullPath, "error", err)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logger.Warn("could not stat entry, skipping", "path", fullPath, "error", err)
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			continue
		}

		if entry.IsDir() {
			if m.match(relPath, true) {
				continue
			}
			walkDir(root, fullPath, m, opts, logger, accepted)
			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}
		if m.match(relPath, false) {
			continue
		}

		if info.Size() > opts.MaxBytes {
			logger.Warn("file exceeds max size, skipping", "path", fullPath, "size", info.Size(), "max_bytes", opts.MaxBytes)
			continue
		}

		binary, err := looksBinary(fullPath)
		if err != nil {
			logger.Warn("could not sniff file content, skipping", "path", fullPath, "error", err)
			continue
		}
		if binary {
			continue
		}

		generated, err := looksGenerated(fullPath)
		if err != nil {
			logger.Warn("could not inspect file header, skipping", "path", fullPath, "error", err)
			continue
		}
		if generated {
			continue
		}

		*accepted = append(*accepted, fullPath)
	}
}
