package recursive

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/zenith-dev/zenith/internal/sourcestore"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// defaultIgnoreDirs are skipped during a directory walk regardless of any
// ignore file, mirroring what every real workspace excludes by convention.
var defaultIgnoreDirs = map[string]bool{
	".git": true, "target": true, "node_modules": true, "vendor": true, ".cargo": true,
}

// WalkDirectory collects every regular file under root, skipping hidden and
// build-artifact directories, in no particular order (Run sorts them).
func WalkDirectory(root string) ([]SourceFile, error) {
	var out []SourceFile
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name != "." && (defaultIgnoreDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		out = append(out, SourceFile{Path: rel, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, zerr.Wrap("recursive: walk directory", err)
	}
	return out, nil
}

// LoadFromSourceStore builds the file set from a previously indexed package
// (internal/sourcestore), so the recursive engine can run without local
// filesystem access to the package's source.
func LoadFromSourceStore(ctx context.Context, store *sourcestore.Store, ecosystem, pkg, version string) ([]SourceFile, error) {
	files, err := store.ListFiles(ctx, ecosystem, pkg, version)
	if err != nil {
		return nil, err
	}
	out := make([]SourceFile, len(files))
	for i, f := range files {
		out[i] = SourceFile{Path: f.FilePath, Content: f.Content}
	}
	return out, nil
}
