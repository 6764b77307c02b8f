package session

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/mudcore/internal/game"
	"github.com/pixil98/mudcore/internal/messaging"
	"github.com/pixil98/mudcore/internal/telnet"
)

// inlineDispatcher runs posted units immediately under the world lock.
type inlineDispatcher struct {
	world *game.World

	mu        sync.Mutex
	submitted []string
	err       error
}

func (d *inlineDispatcher) Submit(_ game.EntityId, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitted = append(d.submitted, text)
	return d.err
}

func (d *inlineDispatcher) Post(_ string, fn func(ctx context.Context, w *game.World)) error {
	d.world.Exclusive(func(w *game.World) { fn(context.Background(), w) })
	return nil
}

func (d *inlineDispatcher) lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.submitted...)
}

// nameLogin attaches the actor registered under the typed name.
type nameLogin struct {
	actors map[string]game.EntityId
}

func (l *nameLogin) Begin(_ context.Context, s *Session) {
	s.SendPrompt("Name? ")
}

func (l *nameLogin) HandleLine(_ context.Context, s *Session, line string) {
	id, ok := l.actors[line]
	if !ok {
		s.SendPrompt("Who? ")
		return
	}
	_ = s.Post("login", func(ctx context.Context, w *game.World) {
		if err := s.Complete(id); err != nil {
			s.Send(err.Error() + "\n")
		}
	})
}

type recordingLifecycle struct {
	mu       sync.Mutex
	linkdead []game.EntityId
	expired  []game.EntityId
}

func (l *recordingLifecycle) Linkdead(_ context.Context, _ *game.World, id game.EntityId) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.linkdead = append(l.linkdead, id)
}

func (l *recordingLifecycle) Expired(_ context.Context, _ *game.World, id game.EntityId) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expired = append(l.expired, id)
}

func (l *recordingLifecycle) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.linkdead), len(l.expired)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	reg   *Registry
	disp  *inlineDispatcher
	bus   *messaging.LocalBus
	life  *recordingLifecycle
	clock *fakeClock
	hero  game.EntityId
}

func newFixture(t *testing.T, opts ...RegistryOpt) *fixture {
	t.Helper()
	w := game.NewWorld()
	if err := w.AddRoom(game.NewRoom(1, "Hall", game.SectorInside)); err != nil {
		t.Fatalf("adding room: %v", err)
	}
	p := w.NewPlayer("Hero", 1, "hero")
	if err := w.AddPlayer(p, 1); err != nil {
		t.Fatalf("adding player: %v", err)
	}

	f := &fixture{
		disp:  &inlineDispatcher{world: w},
		bus:   messaging.NewLocalBus(),
		life:  &recordingLifecycle{},
		clock: newFakeClock(),
		hero:  p.Id(),
	}
	login := &nameLogin{actors: map[string]game.EntityId{"hero": p.Id()}}
	opts = append([]RegistryOpt{WithClock(f.clock.Now), WithName("Test MUD")}, opts...)
	f.reg = NewRegistry(f.disp, f.bus, login, f.life, opts...)
	return f
}

// client is the far end of a piped session.
type client struct {
	conn   net.Conn
	events chan telnet.Event

	mu  sync.Mutex
	raw bytes.Buffer
}

// connect starts a session on one end of a pipe and returns the other end.
func (f *fixture) connect(t *testing.T) (*Session, *client) {
	t.Helper()
	server, conn := net.Pipe()
	s := f.reg.NewSession(NewPlainTransport(server))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	c := &client{conn: conn, events: make(chan telnet.Event, 256)}
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
	classifier := telnet.NewClassifier()
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.raw.Write(buf[:n])
			c.mu.Unlock()
			for _, ev := range classifier.Feed(buf[:n]) {
				c.events <- ev
			}
		}
		if err != nil {
			close(c.events)
			return
		}
	}
}

func (c *client) write(t *testing.T, p []byte) {
	t.Helper()
	if _, err := c.conn.Write(p); err != nil {
		t.Fatalf("client write: %v", err)
	}
}

func (c *client) received() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw.String()
}

// nextProtocolEvent skips text lines and bare commands such as the GA after
// a prompt, returning the next negotiation or sub-negotiation.
func (c *client) nextProtocolEvent(t *testing.T) telnet.Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				t.Fatal("connection closed")
			}
			if ev.Kind == telnet.EventNegotiation || ev.Kind == telnet.EventSubnegotiation {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for protocol event")
		}
	}
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
