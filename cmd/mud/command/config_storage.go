package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/mudcore/internal/commands"
	"github.com/pixil98/mudcore/internal/player"
	"github.com/pixil98/mudcore/internal/storage"
)

type StorageConfig struct {
	Characters AssetConfig[*player.Character] `json:"characters"`
	// Commands is optional; definitions found there replace the built in ones.
	Commands AssetConfig[*commands.Command] `json:"commands"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(c.Characters.Validate("characters"))
	if c.Commands.Path != "" {
		el.Add(c.Commands.Validate("commands"))
	}
	return el.Err()
}

// commandOpts overlays stored command definitions when a path is configured.
func (c *StorageConfig) commandOpts() ([]commands.HandlerOpt, error) {
	if c.Commands.Path == "" {
		return nil, nil
	}
	store, err := c.Commands.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating command store: %w", err)
	}
	return []commands.HandlerOpt{commands.WithStore(store)}, nil
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}
