// Package storage persists validated JSON assets, one file per asset.
package storage

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pixil98/go-errors"
)

type Storer[T ValidatingSpec] interface {
	Save(Identifier, T) error
	Get(Identifier) (T, bool)
	GetAll() map[Identifier]T
	Delete(Identifier) error
}

// FileStore keeps every asset in memory and writes through to
// <path>/<id>.json on Save.
type FileStore[T ValidatingSpec] struct {
	path    string
	records map[Identifier]T

	mu sync.RWMutex
}

// NewFileStore loads every asset under path, creating the directory when it
// does not exist yet. Every broken file is reported, not just the first.
func NewFileStore[T ValidatingSpec](path string) (*FileStore[T], error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	s := &FileStore[T]{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore[T]) load() error {
	records := map[Identifier]T{}
	sources := map[Identifier]string{}
	el := errors.NewErrorList()

	walkErr := filepath.WalkDir(s.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			return nil
		}

		asset, err := readAsset[T](path)
		if err != nil {
			el.Add(fmt.Errorf("loading %s: %w", name, err))
			return nil
		}
		if err := asset.Validate(); err != nil {
			el.Add(fmt.Errorf("validating %s: %w", name, err))
			return nil
		}
		if prev, ok := sources[asset.Id()]; ok {
			el.Add(fmt.Errorf("duplicate key detected: %s (%s and %s)", asset.Id(), prev, name))
			return nil
		}
		if strings.TrimSuffix(name, ".json") != asset.Id().String() {
			slog.Warn("asset file name does not match its id", "file", path, "id", asset.Id())
		}

		records[asset.Id()] = asset.Spec
		sources[asset.Id()] = name
		return nil
	})
	el.Add(walkErr)
	if err := el.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

func readAsset[T ValidatingSpec](path string) (*Asset[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	asset := &Asset[T]{}
	if err := json.Unmarshal(data, asset); err != nil {
		return nil, fmt.Errorf("unmarshalling asset: %w", err)
	}
	return asset, nil
}

func (s *FileStore[T]) Save(id Identifier, o T) error {
	asset := &Asset[T]{
		Version:    CurrentVersion,
		Identifier: id,
		Spec:       o,
	}
	if err := asset.Validate(); err != nil {
		return fmt.Errorf("validating %s: %w", id, err)
	}

	data, err := json.MarshalIndent(asset, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling json: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := atomicWrite(s.filePath(id), data, 0o644); err != nil {
		return fmt.Errorf("saving %s: %w", id, err)
	}
	s.records[id] = o
	return nil
}

// atomicWrite replaces path with data so a crash leaves either the old file
// or the new one, never a truncated mix.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			slog.Warn("removing temp file", "path", tmp.Name(), "error", err)
		}
	}

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), perm)
	}
	if err != nil {
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		cleanup()
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (s *FileStore[T]) Get(id Identifier) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.records[id]
	return val, ok
}

func (s *FileStore[T]) GetAll() map[Identifier]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vals := make(map[Identifier]T, len(s.records))
	for id, v := range s.records {
		vals[id] = v
	}
	return vals
}

func (s *FileStore[T]) Delete(id Identifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return nil
	}
	if err := os.Remove(s.filePath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", id, err)
	}
	delete(s.records, id)
	return nil
}

func (s *FileStore[T]) filePath(id Identifier) string {
	return filepath.Join(s.path, id.String()+".json")
}
