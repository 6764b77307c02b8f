package zones

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/pixil98/mudcore/internal/game"
)

const shireJSON = `{
  "zone": {"id": 40, "name": "The Shire", "reset_mode": "always", "lifespan": 10},
  "rooms": [
    {"id": 4001, "name": "Bag End", "exits": {"east": {"to_room": 4002}}},
    {"id": 4002, "name": "Hobbiton Road", "exits": {"west": {"to_room": 4001}}}
  ],
  "mobs": [{"id": 4050, "name": "hobbit"}],
  "resets": [{"op": "load_mobile", "id": 4050, "room": 4002}]
}`

const breeYAML = `
zone:
  id: 50
  name: Bree
rooms:
  - id: 5001
    name: The Prancing Pony
    exits:
      up:
        to_room: 9999
`

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

func TestIsZoneFile(t *testing.T) {
	tests := map[string]struct {
		name string
		exp  bool
	}{
		"json":       {name: "shire.json", exp: true},
		"yaml":       {name: "/zones/bree.yaml", exp: true},
		"yml upper":  {name: "BREE.YML", exp: true},
		"text":       {name: "notes.txt", exp: false},
		"editor tmp": {name: ".shire.json.swp", exp: false},
		"hidden":     {name: "/zones/.shire.json", exp: false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "zone file", IsZoneFile(tt.name), tt.exp)
		})
	}
}

func TestLoader(t *testing.T) {
	tests := map[string]struct {
		files    map[string]string
		opts     []LoaderOpt
		expZones int
		expErr   string
	}{
		"loads and resets": {
			files:    map[string]string{"40.json": shireJSON, "readme.txt": "ignored"},
			expZones: 1,
		},
		"bad file skipped": {
			files:    map[string]string{"40.json": shireJSON, "41.json": `{"zone": `},
			expZones: 1,
		},
		"nothing loadable": {
			files:  map[string]string{"41.json": `{"zone": `},
			expErr: "could be loaded",
		},
		"validation errors logged": {
			files:    map[string]string{"40.json": shireJSON, "50.yaml": breeYAML},
			expZones: 2,
		},
		"validation errors strict": {
			files:  map[string]string{"40.json": shireJSON, "50.yaml": breeYAML},
			opts:   []LoaderOpt{WithStrict()},
			expErr: "missing room 9999",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files)

			apply, err := NewLoader(dir, tt.opts...).Load(context.Background())
			if err != nil {
				t.Fatalf("loading: %v", err)
			}
			w := game.NewWorld()
			err = apply(context.Background(), w)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("applying: %v", err)
			}
			testutil.AssertEqual(t, "zones", len(w.ZoneIds()), tt.expZones)
			testutil.AssertEqual(t, "hobbits", w.CountLiveMobiles(4050), 1)
		})
	}
}

func TestLoader_MissingDirectory(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing")).Load(context.Background())
	if !errors.Is(err, game.ErrFileAccess) {
		t.Errorf("expected ErrFileAccess, got %v", err)
	}
}

func TestReloadZone(t *testing.T) {
	w := game.NewWorld()
	if _, err := w.LoadZoneDocument([]byte(shireJSON), "40.json"); err != nil {
		t.Fatalf("loading: %v", err)
	}

	renamed := `{"zone": {"id": 40, "name": "The Shire"},
	  "rooms": [{"id": 4001, "name": "Bag End, Renovated"}],
	  "mobs": [{"id": 4050, "name": "hobbit"}],
	  "resets": [{"op": "load_mobile", "id": 4050, "room": 4001}]}`
	if err := ReloadZone(context.Background(), w, []byte(renamed), "40.json"); err != nil {
		t.Fatalf("reloading: %v", err)
	}
	testutil.AssertEqual(t, "renamed", w.Room(4001).Name, "Bag End, Renovated")
	testutil.AssertEqual(t, "road gone", w.Room(4002) == nil, true)
	testutil.AssertEqual(t, "repopulated", w.CountLiveMobiles(4050), 1)

	err := ReloadZone(context.Background(), w, []byte(`{"zone": `), "40.json")
	testutil.AssertErrorContains(t, err, "parse error")
	testutil.AssertEqual(t, "kept", w.Room(4001).Name, "Bag End, Renovated")
}

// worldPoster runs units straight away under the world lock.
type worldPoster struct {
	w    *game.World
	done chan string
}

func (p *worldPoster) Post(name string, fn func(ctx context.Context, w *game.World)) error {
	p.w.Exclusive(func(w *game.World) {
		fn(context.Background(), w)
	})
	p.done <- name
	return nil
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "40.json")
	writeFiles(t, dir, map[string]string{"40.json": shireJSON})

	w := game.NewWorld()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if _, err := w.LoadZoneDocument(data, path); err != nil {
		t.Fatalf("loading: %v", err)
	}

	ready := make(chan struct{})
	poster := &worldPoster{w: w, done: make(chan string, 8)}
	watcher := NewWatcher(dir, poster, WithSettleDelay(10*time.Millisecond), WithReady(ready))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- watcher.Start(ctx) }()
	close(ready)

	// The watch is registered asynchronously, so keep rewriting until the
	// reload arrives.
	updated := `{"zone": {"id": 40, "name": "The Shire"}, "rooms": [{"id": 4001, "name": "Bag End"}, {"id": 4003, "name": "The Party Field"}]}`
	deadline := time.After(5 * time.Second)
	for reloaded := false; !reloaded; {
		writeFiles(t, dir, map[string]string{"40.json": updated, "notes.txt": "x"})
		select {
		case name := <-poster.done:
			testutil.AssertEqual(t, "unit", name, "reload "+path)
			reloaded = true
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("zone was not reloaded")
		}
	}

	var name string
	w.View(func(w *game.World) {
		if r := w.Room(4003); r != nil {
			name = r.Name
		}
	})
	testutil.AssertEqual(t, "new room", name, "The Party Field")

	cancel()
	select {
	case err := <-stopped:
		testutil.AssertEqual(t, "start error", err, nil)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
