// Package player is the default login flow and player lifecycle.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pixil98/go-errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixil98/mudcore/internal/game"
	"github.com/pixil98/mudcore/internal/gmcp"
	"github.com/pixil98/mudcore/internal/session"
	"github.com/pixil98/mudcore/internal/storage"
)

const (
	MinPasswordLength = 4

	DefaultGreeting = "Welcome!\n\n"
	GoodbyeMessage  = "Goodbye, friend.. Come back soon!\n"
)

// EnterHook runs inside the serializer once a player is playing, e.g. to show
// the room.
type EnterHook func(ctx context.Context, w *game.World, p *game.Player)

// Manager logs sessions in as characters and keeps their saved records
// current. It implements session.LoginHandler and session.Lifecycle. Saves
// made from the serializer are written by the Manager's own worker.
type Manager struct {
	chars      storage.Storer[*Character]
	saves      *saver
	greeting   string
	startRoom  game.EntityId
	bcryptCost int
	onEnter    EnterHook
	now        func() time.Time

	mu     sync.Mutex
	logins map[*session.Session]*loginState
}

type ManagerOpt func(*Manager)

func WithGreeting(text string) ManagerOpt {
	return func(m *Manager) {
		m.greeting = text
	}
}

// WithStartRoom overrides the world's start room for new characters.
func WithStartRoom(id game.EntityId) ManagerOpt {
	return func(m *Manager) {
		m.startRoom = id
	}
}

func WithBcryptCost(cost int) ManagerOpt {
	return func(m *Manager) {
		m.bcryptCost = cost
	}
}

func WithEnterHook(fn EnterHook) ManagerOpt {
	return func(m *Manager) {
		m.onEnter = fn
	}
}

func WithClock(now func() time.Time) ManagerOpt {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(chars storage.Storer[*Character], opts ...ManagerOpt) *Manager {
	m := &Manager{
		chars:      chars,
		saves:      newSaver(chars),
		greeting:   DefaultGreeting,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		logins:     map[*session.Session]*loginState{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start writes queued character saves until ctx ends, then writes whatever
// is left.
func (m *Manager) Start(ctx context.Context) error {
	return m.saves.run(ctx)
}

// Flush writes every queued save before returning. The driver's stop hook
// uses it so the last SaveAll reaches disk.
func (m *Manager) Flush(ctx context.Context) error {
	if n := m.saves.backlog(); n > 0 {
		slog.InfoContext(ctx, "writing queued character saves", "count", n)
	}
	return m.saves.flush()
}

// enter queues the unit that puts the character in the world.
func (m *Manager) enter(ctx context.Context, s *session.Session, st *loginState) {
	st.step = stepEntering
	char := st.char
	account := storage.NewIdentifier(char.Name)

	err := s.Post("login "+char.Name, func(ctx context.Context, w *game.World) {
		m.forget(s)

		p, reconnected, err := m.place(w, account, char)
		if err != nil {
			slog.ErrorContext(ctx, "placing player", "name", char.Name, "error", err)
			s.Send("The world is not ready for you yet. Please try again later.\n")
			s.Disconnect("no start room")
			return
		}

		if err := s.Complete(p.Id()); err != nil {
			slog.WarnContext(ctx, "completing login", "name", char.Name, "error", err)
			if !reconnected {
				_ = w.RemovePlayer(p.Id())
			}
			return
		}

		m.arrive(ctx, w, p, reconnected)
	})
	if err != nil {
		slog.WarnContext(ctx, "queueing login", "name", char.Name, "error", err)
		m.forget(s)
		s.Send("The server is too busy right now. Please try again later.\n")
		s.Disconnect("server busy")
	}
}

// place finds the player already in the world or adds a new one at the saved
// room, falling back to the start room.
func (m *Manager) place(w *game.World, account storage.Identifier, char *Character) (*game.Player, bool, error) {
	if p := w.FindPlayer(char.Name); p != nil && p.Account == string(account) {
		return p, true, nil
	}

	p := w.NewPlayer(char.Name, char.Level, string(account))
	p.Title = char.Title
	p.SetStats(char.Stats)

	room := char.Room
	if !room.Valid() || w.Room(room) == nil {
		room = m.startRoom
	}
	if !room.Valid() || w.Room(room) == nil {
		room = w.StartRoom()
	}
	if err := w.AddPlayer(p, room); err != nil {
		return nil, false, err
	}
	return p, false, nil
}

func (m *Manager) arrive(ctx context.Context, w *game.World, p *game.Player, reconnected bool) {
	if reconnected {
		slog.InfoContext(ctx, "player reconnected", "name", p.Name(), "actor", p.Id())
		w.SendText(p.Id(), "Reconnecting.\n")
		w.SendRoom(p.Room(), fmt.Sprintf("%s has reconnected.\n", p.Name()), p.Id())
	} else {
		slog.InfoContext(ctx, "player entered", "name", p.Name(), "actor", p.Id(), "room", p.Room())
		w.SendRoom(p.Room(), fmt.Sprintf("%s has entered the game.\n", p.Name()), p.Id())
	}

	if err := m.saveWith(p, func(c *Character) { c.LastLogin = m.now() }); err != nil {
		slog.WarnContext(ctx, "saving on login", "name", p.Name(), "error", err)
	}

	SendStatus(w, p)
	if m.onEnter != nil {
		m.onEnter(ctx, w, p)
	}
}

// SendStatus sends the Char.Status and Char.Vitals GMCP messages.
func SendStatus(w *game.World, p *game.Player) {
	st := p.Stats()
	w.SendGMCP(p.Id(), "Char.Status", gmcp.CharStatus{
		Name:  p.Name(),
		Level: p.Level(),
		Room:  uint64(p.Room()),
	})
	w.SendGMCP(p.Id(), "Char.Vitals", gmcp.CharVitals{
		HP:    st.HP,
		MaxHP: st.MaxHP,
		MV:    st.MV,
		MaxMV: st.MaxMV,
	})
}

// Linkdead leaves the player in the world and tells the room.
func (m *Manager) Linkdead(ctx context.Context, w *game.World, actorId game.EntityId) {
	p := w.Player(actorId)
	if p == nil {
		return
	}
	if err := m.Save(p); err != nil {
		slog.WarnContext(ctx, "saving linkdead player", "name", p.Name(), "error", err)
	}
	w.SendRoom(p.Room(), fmt.Sprintf("%s has lost their link.\n", p.Name()), actorId)
}

// Expired saves and removes a player nobody came back for.
func (m *Manager) Expired(ctx context.Context, w *game.World, actorId game.EntityId) {
	p := w.Player(actorId)
	if p == nil {
		return
	}
	if err := m.Save(p); err != nil {
		slog.WarnContext(ctx, "saving expired player", "name", p.Name(), "error", err)
	}
	w.SendRoom(p.Room(), fmt.Sprintf("%s fades into nothingness.\n", p.Name()), actorId)
	if err := w.RemovePlayer(actorId); err != nil {
		slog.WarnContext(ctx, "removing expired player", "name", p.Name(), "error", err)
	}
	slog.InfoContext(ctx, "player expired", "name", p.Name(), "actor", actorId)
}

// Depart saves a quitting player, says goodbye and removes it. The session
// closes once the goodbye is delivered.
func (m *Manager) Depart(ctx context.Context, w *game.World, actorId game.EntityId) error {
	p := w.Player(actorId)
	if p == nil {
		return fmt.Errorf("player %d: %w", actorId, game.ErrNotFound)
	}
	el := errors.NewErrorList()
	el.Add(m.Save(p))

	w.SendRoom(p.Room(), fmt.Sprintf("%s has left the game.\n", p.Name()), actorId)
	w.SendDisconnect(actorId, GoodbyeMessage)
	el.Add(w.RemovePlayer(actorId))

	slog.InfoContext(ctx, "player quit", "name", p.Name(), "actor", actorId)
	return el.Err()
}

// Save snapshots the player's location and stats into its character record
// and queues the write. It never touches the disk itself.
func (m *Manager) Save(p *game.Player) error {
	return m.saveWith(p, nil)
}

func (m *Manager) saveWith(p *game.Player, update func(*Character)) error {
	id := storage.Identifier(p.Account)
	stored, ok := m.saves.latest(id)
	if !ok {
		return fmt.Errorf("character %s: %w", id, game.ErrNotFound)
	}

	c := *stored
	c.Level = p.Level()
	c.Title = p.Title
	c.Stats = *p.Stats()
	if p.Room().Valid() {
		c.Room = p.Room()
	}
	if update != nil {
		update(&c)
	}

	m.saves.queue(id, &c)
	return nil
}

// SaveAll queues a save of every player in the world. It also forgets login
// progress of sessions that went away.
func (m *Manager) SaveAll(ctx context.Context, w *game.World) error {
	m.prune()

	el := errors.NewErrorList()
	players := w.Players()
	for _, p := range players {
		el.Add(m.Save(p))
	}
	slog.DebugContext(ctx, "players saved", "count", len(players))
	return el.Err()
}
