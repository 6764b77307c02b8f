package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pixil98/mudcore/internal/game"
	"github.com/pixil98/mudcore/internal/messaging"
)

const (
	DefaultLoginTimeout     = 5 * time.Minute
	DefaultAFKTimeout       = 15 * time.Minute
	DefaultIdleTimeout      = 30 * time.Minute
	DefaultLinkdeadGrace    = 3 * time.Minute
	DefaultSweepInterval    = 30 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second

	ShutdownMessage = "Server is shutting down. Goodbye!"
)

// Dispatcher feeds the world serializer.
type Dispatcher interface {
	Submit(actorId game.EntityId, text string) error
	Post(name string, fn func(ctx context.Context, w *game.World)) error
}

// Subscriber delivers published actor output to sessions.
type Subscriber = messaging.Subscriber

// LoginHandler drives a session from connect until it has an actor. It calls
// Session.Complete from a serializer unit once the actor is in the world.
type LoginHandler interface {
	Begin(ctx context.Context, s *Session)
	HandleLine(ctx context.Context, s *Session, line string)
}

// Lifecycle is told when an attached actor loses its connection. Both
// methods run inside the world serializer.
type Lifecycle interface {
	// Linkdead is called when the connection drops but the actor stays.
	Linkdead(ctx context.Context, w *game.World, actorId game.EntityId)
	// Expired is called when no session will come back for the actor.
	Expired(ctx context.Context, w *game.World, actorId game.EntityId)
}

// Registry tracks live sessions and which actor each one controls.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	byActor  map[game.EntityId]*Session

	dispatcher Dispatcher
	bus        Subscriber
	login      LoginHandler
	lifecycle  Lifecycle

	name    string
	version string
	started time.Time
	now     func() time.Time

	queueSize        int
	handshakeTimeout time.Duration
	loginTimeout     time.Duration
	afkTimeout       time.Duration
	idleTimeout      time.Duration
	linkdeadGrace    time.Duration
	sweepInterval    time.Duration
}

type RegistryOpt func(*Registry)

func WithName(name string) RegistryOpt {
	return func(r *Registry) { r.name = name }
}

func WithVersion(version string) RegistryOpt {
	return func(r *Registry) { r.version = version }
}

func WithClock(now func() time.Time) RegistryOpt {
	return func(r *Registry) { r.now = now }
}

func WithQueueSize(n int) RegistryOpt {
	return func(r *Registry) { r.queueSize = n }
}

func WithLoginTimeout(d time.Duration) RegistryOpt {
	return func(r *Registry) { r.loginTimeout = d }
}

func WithAFKTimeout(d time.Duration) RegistryOpt {
	return func(r *Registry) { r.afkTimeout = d }
}

func WithIdleTimeout(d time.Duration) RegistryOpt {
	return func(r *Registry) { r.idleTimeout = d }
}

func WithLinkdeadGrace(d time.Duration) RegistryOpt {
	return func(r *Registry) { r.linkdeadGrace = d }
}

func WithSweepInterval(d time.Duration) RegistryOpt {
	return func(r *Registry) { r.sweepInterval = d }
}

func NewRegistry(d Dispatcher, bus Subscriber, login LoginHandler, lc Lifecycle, opts ...RegistryOpt) *Registry {
	r := &Registry{
		sessions:         map[string]*Session{},
		byActor:          map[game.EntityId]*Session{},
		dispatcher:       d,
		bus:              bus,
		login:            login,
		lifecycle:        lc,
		name:             "mudcore",
		now:              time.Now,
		queueSize:        DefaultQueueSize,
		handshakeTimeout: DefaultHandshakeTimeout,
		loginTimeout:     DefaultLoginTimeout,
		afkTimeout:       DefaultAFKTimeout,
		idleTimeout:      DefaultIdleTimeout,
		linkdeadGrace:    DefaultLinkdeadGrace,
		sweepInterval:    DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.started = r.now()
	return r
}

// NewSession registers a session for t without starting it.
func (r *Registry) NewSession(t Transport, opts ...SessionOpt) *Session {
	s := newSession(r, t, opts...)
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s
}

// Serve registers a session for t and runs it until the connection ends.
func (r *Registry) Serve(ctx context.Context, t Transport, opts ...SessionOpt) {
	if err := r.NewSession(t, opts...).Run(ctx); err != nil {
		slog.WarnContext(ctx, "session", "remote", t.RemoteAddr(), "error", err)
	}
}

// Start sweeps sessions for timeouts until ctx is cancelled, then says
// goodbye to everyone still connected.
func (r *Registry) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.DisconnectAll(ShutdownMessage)
			return nil
		case <-ticker.C:
			r.Sweep(r.now())
		}
	}
}

// Session looks a session up by id.
func (r *Registry) Session(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// ByActor returns the session holding an actor, linkdead ones included.
func (r *Registry) ByActor(id game.EntityId) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byActor[id]
}

// Len is the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Playing counts sessions with an actor in the game.
func (r *Registry) Playing() int {
	n := 0
	for _, s := range r.snapshot() {
		if s.State().InGame() {
			n++
		}
	}
	return n
}

func (r *Registry) snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// DisconnectAll sends msg to every connected session and closes it.
func (r *Registry) DisconnectAll(msg string) {
	for _, s := range r.snapshot() {
		if s.State() == StateLinkdead {
			continue
		}
		s.Send(msg + "\n")
		s.Disconnect("shutdown")
	}
}

func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s.id)
	for id, held := range r.byActor {
		if held == s {
			delete(r.byActor, id)
		}
	}
}

// attach binds actorId to s and retires any session that held it before.
// It reports whether a linkdead session was taken over.
func (r *Registry) attach(s *Session, actorId game.EntityId) bool {
	r.mu.Lock()
	old := r.byActor[actorId]
	r.byActor[actorId] = s
	if old != nil && old != s {
		delete(r.sessions, old.id)
	}
	r.mu.Unlock()

	if old == nil || old == s {
		return false
	}
	if old.State() == StateLinkdead {
		old.retire()
		return true
	}
	old.mu.Lock()
	old.actor = game.InvalidId
	old.dropSubscriptionLocked()
	old.mu.Unlock()
	old.Send("\nAnother connection has taken over your session.\n")
	old.Disconnect("replaced")
	return false
}

// release unbinds an actor that a session let go of deliberately.
func (r *Registry) release(s *Session, actorId game.EntityId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byActor[actorId] == s {
		delete(r.byActor, actorId)
	}
}

func (r *Registry) linkdead(s *Session, actorId game.EntityId) {
	r.post("linkdead", func(ctx context.Context, w *game.World) {
		if r.ByActor(actorId) != s {
			return
		}
		r.lifecycle.Linkdead(ctx, w, actorId)
	})
}

// abandon gives up on an actor whose session failed outright.
func (r *Registry) abandon(s *Session, actorId game.EntityId) {
	r.expire(s, actorId)
}

// expire removes the actor unless another session claimed it first. The
// check runs inside the serializer so it orders correctly against logins.
func (r *Registry) expire(s *Session, actorId game.EntityId) {
	s.mu.Lock()
	already := s.expiring
	s.expiring = true
	s.mu.Unlock()
	if already {
		return
	}
	r.post("expire session", func(ctx context.Context, w *game.World) {
		r.mu.Lock()
		held := r.byActor[actorId]
		if held != nil && held != s {
			r.mu.Unlock()
			return
		}
		delete(r.byActor, actorId)
		delete(r.sessions, s.id)
		r.mu.Unlock()

		s.retire()
		r.lifecycle.Expired(ctx, w, actorId)
	})
}

func (r *Registry) post(name string, fn func(ctx context.Context, w *game.World)) {
	if err := r.dispatcher.Post(name, fn); err != nil {
		slog.Error("posting session unit", "unit", name, "error", err)
	}
}

// Sweep applies the login, AFK, idle and linkdead timeouts.
func (r *Registry) Sweep(now time.Time) {
	for _, s := range r.snapshot() {
		state, connected, lastInput, linkdeadAt := s.times()
		switch state {
		case StateConnected, StateLogin:
			if now.Sub(connected) >= r.loginTimeout {
				slog.Info("login timed out", s.logAttrs()...)
				s.Disconnect("login timeout")
			}
		case StatePlaying, StateAFK:
			idle := now.Sub(lastInput)
			if idle >= r.idleTimeout {
				slog.Info("session idle timeout", s.logAttrs()...)
				s.idleOut()
			} else if state == StatePlaying && idle >= r.afkTimeout {
				s.goAFK()
			}
		case StateLinkdead:
			if now.Sub(linkdeadAt) >= r.linkdeadGrace {
				slog.Info("linkdead grace expired", append(s.logAttrs(), "actor", s.Actor())...)
				r.expire(s, s.Actor())
			}
		}
	}
}

// retire marks a session that is no longer tracked.
func (s *Session) retire() {
	s.mu.Lock()
	s.state = StateDisconnected
	s.actor = game.InvalidId
	s.dropSubscriptionLocked()
	s.mu.Unlock()
}
