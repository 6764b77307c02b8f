package game

import (
	"testing"
	"time"
)

type recordingPublisher struct {
	out map[EntityId][]Output
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{out: make(map[EntityId][]Output)}
}

func (p *recordingPublisher) Publish(actorId EntityId, out Output) error {
	p.out[actorId] = append(p.out[actorId], out)
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// buildZone registers a zone owning the given rooms. Exits are given as
// from -> dir -> to.
func buildZone(t *testing.T, w *World, zoneId EntityId, rooms []*Room) *Zone {
	t.Helper()
	z := NewZone(zoneId, "Test Zone", ResetEmpty, DefaultResetInterval)
	for _, r := range rooms {
		if err := w.AddRoom(r); err != nil {
			t.Fatalf("adding room %d: %v", r.Id, err)
		}
		z.AddRoom(r.Id)
	}
	if err := w.AddZone(z); err != nil {
		t.Fatalf("adding zone %d: %v", zoneId, err)
	}
	return z
}

func link(from *Room, dir Direction, to *Room) {
	from.SetExit(dir, &Exit{ToRoom: to.Id})
}

// newABWorld builds rooms A{north->B} and B{south->A} with one player in A.
func newABWorld(t *testing.T) (*World, *Player, *Room, *Room) {
	t.Helper()
	w := NewWorld()
	a := NewRoom(1, "Room A", SectorInside)
	b := NewRoom(2, "Room B", SectorInside)
	link(a, DirNorth, b)
	link(b, DirSouth, a)
	buildZone(t, w, 10, []*Room{a, b})

	p := w.NewPlayer("Tester", 1, "tester")
	if err := w.AddPlayer(p, a.Id); err != nil {
		t.Fatalf("adding player: %v", err)
	}
	return w, p, a, b
}

func addPlayer(t *testing.T, w *World, name string, level int, room EntityId) *Player {
	t.Helper()
	p := w.NewPlayer(name, level, name)
	if err := w.AddPlayer(p, room); err != nil {
		t.Fatalf("adding player %s: %v", name, err)
	}
	return p
}
