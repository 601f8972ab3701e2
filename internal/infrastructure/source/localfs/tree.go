package localfs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const defaultMaxFileSize = 1 << 20 // 1 MiB

// skippedDirs are never descended into: VCS metadata, dependency trees, and
// build output carry no first-party entities.
var skippedDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"vendor":       {},
	"target":       {},
	"dist":         {},
	"build":        {},
	"__pycache__":  {},
	".venv":        {},
	"venv":         {},
}

// Tree walks a checked-out repository on local disk and lists candidate
// source files. It satisfies ports.SourceTree.
type Tree struct {
	maxFileSize int64
}

func New(maxFileSize int64) *Tree {
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	return &Tree{maxFileSize: maxFileSize}
}

// ListSourceFiles returns paths relative to root, in walk order. Hidden
// files, oversized files, and anything under a skipped directory are
// excluded; the parser registry decides later which extensions it supports.
func (t *Tree) ListSourceFiles(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root is not a directory: %s", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skippedDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fileInfo, err := d.Info()
		if err != nil {
			return nil
		}
		if fileInfo.Size() > t.maxFileSize {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relativize path %s: %w", path, err)
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source tree: %w", err)
	}
	return files, nil
}
