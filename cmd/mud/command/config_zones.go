package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/mudcore/internal/zones"
)

type ZoneConfig struct {
	AssetsPath string `json:"asset_path"`
	// Strict refuses to start when the loaded world has validation errors.
	Strict bool `json:"strict"`
	// Watch reloads zone files when they change on disk.
	Watch       bool   `json:"watch"`
	SettleDelay string `json:"settle_delay"`
}

func (zc *ZoneConfig) validate() error {
	el := errors.NewErrorList()

	if zc.AssetsPath == "" {
		el.Add(fmt.Errorf("zones: asset_path is required"))
	} else if _, err := os.Stat(zc.AssetsPath); err != nil {
		el.Add(fmt.Errorf("zones: invalid asset_path %q: %w", zc.AssetsPath, err))
	}
	if _, err := duration("settle_delay", zc.SettleDelay, zones.DefaultSettleDelay); err != nil {
		el.Add(err)
	}

	return el.Err()
}

func (zc *ZoneConfig) buildLoader() *zones.Loader {
	var opts []zones.LoaderOpt
	if zc.Strict {
		opts = append(opts, zones.WithStrict())
	}
	return zones.NewLoader(zc.AssetsPath, opts...)
}

func (zc *ZoneConfig) buildWatcher(poster zones.Poster, ready <-chan struct{}) (*zones.Watcher, error) {
	settle, err := duration("settle_delay", zc.SettleDelay, zones.DefaultSettleDelay)
	if err != nil {
		return nil, err
	}
	return zones.NewWatcher(zc.AssetsPath, poster, zones.WithSettleDelay(settle), zones.WithReady(ready)), nil
}
