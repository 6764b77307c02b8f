package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/pixil98/mudcore/internal/driver"
	"github.com/pixil98/mudcore/internal/game"
	"github.com/pixil98/mudcore/internal/storage"
)

type recordingPublisher struct {
	out map[game.EntityId][]game.Output
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{out: make(map[game.EntityId][]game.Output)}
}

func (p *recordingPublisher) Publish(actorId game.EntityId, out game.Output) error {
	p.out[actorId] = append(p.out[actorId], out)
	return nil
}

// text joins everything but prompts and GMCP sent to an actor.
func (p *recordingPublisher) text(id game.EntityId) string {
	var b strings.Builder
	for _, o := range p.out[id] {
		if !o.Prompt && o.Module == "" {
			b.WriteString(o.Text)
		}
	}
	return b.String()
}

func (p *recordingPublisher) modules(id game.EntityId) []string {
	var mods []string
	for _, o := range p.out[id] {
		if o.Module != "" {
			mods = append(mods, o.Module)
		}
	}
	return mods
}

func (p *recordingPublisher) reset() {
	clear(p.out)
}

type mapStore map[storage.Identifier]*Command

func (s mapStore) Save(id storage.Identifier, c *Command) error { s[id] = c; return nil }
func (s mapStore) Get(id storage.Identifier) (*Command, bool)   { c, ok := s[id]; return c, ok }
func (s mapStore) GetAll() map[storage.Identifier]*Command      { return s }
func (s mapStore) Delete(id storage.Identifier) error           { delete(s, id); return nil }

type recordingDeparter struct {
	departed []game.EntityId
}

func (d *recordingDeparter) Depart(_ context.Context, w *game.World, id game.EntityId) error {
	d.departed = append(d.departed, id)
	return w.RemovePlayer(id)
}

type recordingSaver struct {
	saved []string
}

func (s *recordingSaver) Save(p *game.Player) error {
	s.saved = append(s.saved, p.Name())
	return nil
}

type fixture struct {
	w        *game.World
	pub      *recordingPublisher
	h        *Handler
	departer *recordingDeparter
	saver    *recordingSaver
	frodo    *game.Player
	sam      *game.Player
}

// newFixture builds Bag End {east: Road} and Road {west: Bag End, down: a
// closed cellar door} with Frodo and Sam in Bag End.
func newFixture(t *testing.T, opts ...HandlerOpt) *fixture {
	t.Helper()
	f := &fixture{
		pub:      newRecordingPublisher(),
		departer: &recordingDeparter{},
		saver:    &recordingSaver{},
	}
	f.w = game.NewWorld(game.WithPublisher(f.pub))

	bagEnd := game.NewRoom(1, "Bag End", game.SectorInside)
	bagEnd.Description = "A comfortable hobbit hole."
	road := game.NewRoom(2, "Hobbiton Road", game.SectorCity)
	cellar := game.NewRoom(3, "Cellar", game.SectorInside)
	bagEnd.SetExit(game.DirEast, &game.Exit{ToRoom: 2, Description: "The road winds away."})
	road.SetExit(game.DirWest, &game.Exit{ToRoom: 1})
	road.SetExit(game.DirDown, &game.Exit{ToRoom: 3, HasDoor: true, IsClosed: true, Keyword: "trapdoor"})
	cellar.SetExit(game.DirUp, &game.Exit{ToRoom: 2})

	z := game.NewZone(40, "The Shire", game.ResetNever, 0)
	for _, r := range []*game.Room{bagEnd, road, cellar} {
		if err := f.w.AddRoom(r); err != nil {
			t.Fatalf("adding room: %v", err)
		}
		z.AddRoom(r.Id)
	}
	if err := f.w.AddZone(z); err != nil {
		t.Fatalf("adding zone: %v", err)
	}

	f.frodo = f.addPlayer(t, "Frodo", 1)
	f.sam = f.addPlayer(t, "Sam", 1)

	opts = append([]HandlerOpt{WithDeparter(f.departer), WithSaver(f.saver)}, opts...)
	h, err := NewHandler(opts...)
	if err != nil {
		t.Fatalf("creating handler: %v", err)
	}
	f.h = h
	return f
}

func (f *fixture) addPlayer(t *testing.T, name string, room game.EntityId) *game.Player {
	t.Helper()
	p := f.w.NewPlayer(name, 1, strings.ToLower(name))
	p.SetStats(game.Stats{HP: 20, MaxHP: 20, MV: 100, MaxMV: 100})
	if err := f.w.AddPlayer(p, room); err != nil {
		t.Fatalf("adding player %s: %v", name, err)
	}
	return p
}

func (f *fixture) run(p *game.Player, line string) driver.Result {
	return f.h.Execute(context.Background(), f.w, p, line)
}
