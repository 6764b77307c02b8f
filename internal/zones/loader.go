// Package zones loads zone documents into the world and reloads them when
// their files change.
package zones

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pixil98/mudcore/internal/game"
)

type zoneFile struct {
	path string
	data []byte
}

// Loader implements driver.Loader for a directory of zone documents.
type Loader struct {
	dir    string
	strict bool
}

type LoaderOpt func(*Loader)

// WithStrict makes validation errors in the loaded world fatal.
func WithStrict() LoaderOpt {
	return func(l *Loader) {
		l.strict = true
	}
}

func NewLoader(dir string, opts ...LoaderOpt) *Loader {
	l := &Loader{dir: dir}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every zone file. Parsing and registration happen in the
// returned function, which runs inside the serializer.
func (l *Loader) Load(ctx context.Context) (func(ctx context.Context, w *game.World) error, error) {
	files, err := readZoneFiles(l.dir)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "read zone files", "dir", l.dir, "files", len(files))

	return func(ctx context.Context, w *game.World) error {
		return l.apply(ctx, w, files)
	}, nil
}

func (l *Loader) apply(ctx context.Context, w *game.World, files []zoneFile) error {
	loaded := 0
	for _, f := range files {
		if _, err := w.LoadZoneDocument(f.data, f.path); err != nil {
			slog.ErrorContext(ctx, "skipping zone file", "path", f.path, "error", err)
			continue
		}
		loaded++
	}
	if len(files) > 0 && loaded == 0 {
		return fmt.Errorf("no zone in %s could be loaded", l.dir)
	}

	if err := report(ctx, w.ValidateWorld()); err != nil && l.strict {
		return err
	}

	for _, res := range w.ProcessZoneResets(w.Now()) {
		slog.DebugContext(ctx, "initial zone reset", "zone", res.Zone, "spawned", res.Spawned, "failed", res.Failed)
	}
	return nil
}

// report logs a validation report and returns its error, if any.
func report(ctx context.Context, r game.ValidationReport) error {
	for _, msg := range r.Warnings {
		slog.WarnContext(ctx, "world validation", "warning", msg)
	}
	for _, msg := range r.Errors {
		slog.ErrorContext(ctx, "world validation", "error", msg)
	}
	return r.Err()
}

func readZoneFiles(dir string) ([]zoneFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading zone directory %s: %w: %w", dir, game.ErrFileAccess, err)
	}

	var files []zoneFile
	for _, entry := range entries {
		if entry.IsDir() || !IsZoneFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Error("skipping unreadable zone file", "path", path, "error", err)
			continue
		}
		files = append(files, zoneFile{path: path, data: data})
	}
	return files, nil
}

var zoneExtensions = []string{".json", ".yaml", ".yml"}

// IsZoneFile reports whether name looks like a zone document.
func IsZoneFile(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	return slices.Contains(zoneExtensions, strings.ToLower(filepath.Ext(name)))
}
