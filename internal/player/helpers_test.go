package player

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pixil98/mudcore/internal/game"
	"github.com/pixil98/mudcore/internal/messaging"
	"github.com/pixil98/mudcore/internal/session"
	"github.com/pixil98/mudcore/internal/storage"
)

// inlineDispatcher runs posted units immediately under the world lock.
type inlineDispatcher struct {
	world *game.World
}

func (d *inlineDispatcher) Submit(game.EntityId, string) error { return nil }

func (d *inlineDispatcher) Post(_ string, fn func(ctx context.Context, w *game.World)) error {
	d.world.Exclusive(func(w *game.World) { fn(context.Background(), w) })
	return nil
}

type fixture struct {
	world *game.World
	chars *storage.FileStore[*Character]
	pm    *Manager
	reg   *session.Registry

	mu      sync.Mutex
	entered []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := messaging.NewLocalBus()
	w := game.NewWorld(game.WithPublisher(messaging.NewBusPublisher(bus)), game.WithStartRoom(1))
	for _, r := range []*game.Room{
		game.NewRoom(1, "Temple", game.SectorInside),
		game.NewRoom(2, "Market", game.SectorCity),
	} {
		if err := w.AddRoom(r); err != nil {
			t.Fatalf("adding room: %v", err)
		}
	}

	chars, err := storage.NewFileStore[*Character](t.TempDir())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	f := &fixture{world: w, chars: chars}
	f.pm = NewManager(chars,
		WithBcryptCost(bcrypt.MinCost),
		WithEnterHook(func(_ context.Context, _ *game.World, p *game.Player) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.entered = append(f.entered, p.Name())
		}),
	)
	f.reg = session.NewRegistry(&inlineDispatcher{world: w}, bus, f.pm, f.pm)
	return f
}

func (f *fixture) enteredNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.entered...)
}

func (f *fixture) saveCharacter(t *testing.T, name, password string, room game.EntityId) {
	t.Helper()
	c, err := NewCharacter(name, password, bcrypt.MinCost, time.Now())
	if err != nil {
		t.Fatalf("creating character: %v", err)
	}
	c.Room = room
	if err := f.chars.Save(storage.NewIdentifier(name), c); err != nil {
		t.Fatalf("saving character: %v", err)
	}
}

// stored writes queued saves and reads the record back from disk storage.
func (f *fixture) stored(t *testing.T, id storage.Identifier) (*Character, bool) {
	t.Helper()
	if err := f.pm.Flush(context.Background()); err != nil {
		t.Fatalf("flushing saves: %v", err)
	}
	return f.chars.Get(id)
}

// slowStore is an in-memory Storer whose writes take a while.
type slowStore struct {
	delay time.Duration

	mu      sync.Mutex
	records map[storage.Identifier]*Character
	writes  int
}

func newSlowStore(delay time.Duration) *slowStore {
	return &slowStore{delay: delay, records: map[storage.Identifier]*Character{}}
}

func (s *slowStore) Save(id storage.Identifier, c *Character) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = c
	s.writes++
	return nil
}

func (s *slowStore) Get(id storage.Identifier) (*Character, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.records[id]
	return c, ok
}

func (s *slowStore) GetAll() map[storage.Identifier]*Character {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[storage.Identifier]*Character, len(s.records))
	for id, c := range s.records {
		out[id] = c
	}
	return out
}

func (s *slowStore) Delete(id storage.Identifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *slowStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// client is the far end of a piped session without telnet framing.
type client struct {
	conn net.Conn

	mu  sync.Mutex
	buf bytes.Buffer
}

func (f *fixture) connect(t *testing.T) (*session.Session, *client) {
	t.Helper()
	server, conn := net.Pipe()
	s := f.reg.NewSession(session.NewChannelTransport(server, "pipe"), session.WithoutTelnet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	c := &client{conn: conn}
	go c.read()

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Errorf("session %s did not stop", s.Id())
		}
	})
	return s, c
}

func (c *client) read() {
	b := make([]byte, 1024)
	for {
		n, err := c.conn.Read(b)
		if n > 0 {
			c.mu.Lock()
			c.buf.Write(b[:n])
			c.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (c *client) output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *client) send(t *testing.T, line string) {
	t.Helper()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("client write: %v", err)
	}
}

// expect waits until the output contains text.
func (c *client) expect(t *testing.T, text string) {
	t.Helper()
	waitFor(t, text, func() bool { return strings.Contains(c.output(), text) })
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
