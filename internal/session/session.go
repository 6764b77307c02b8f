// Package session runs the per-connection protocol state machine: telnet
// option negotiation, GMCP, input lines and the bounded output queue.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/pixil98/mudcore/internal/game"
	"github.com/pixil98/mudcore/internal/gmcp"
	"github.com/pixil98/mudcore/internal/messaging"
	"github.com/pixil98/mudcore/internal/telnet"
)

var (
	// ErrNetwork wraps transport failures.
	ErrNetwork = errors.New("network error")
	// ErrInvalidState is returned when an operation does not fit the session state.
	ErrInvalidState = errors.New("invalid session state")
)

// MaxReadErrors is how many consecutive failed reads a session tolerates.
const MaxReadErrors = 10

// Session is one client connection.
type Session struct {
	id        string
	transport Transport
	reg       *Registry
	telnet    bool

	classifier *telnet.Classifier
	out        *Outbox
	writerDone chan struct{}

	mu          sync.Mutex
	state       State
	actor       game.EntityId
	unsubscribe func()
	connectedAt time.Time
	lastInput   time.Time
	linkdeadAt  time.Time
	writeFailed bool
	expiring    bool
	gmcpOn      bool
	greeted     bool
	supports    gmcp.Supports
	client      gmcp.CoreHello
}

type SessionOpt func(*Session)

// WithoutTelnet disables option negotiation for transports that are not
// telnet streams, such as SSH channels.
func WithoutTelnet() SessionOpt {
	return func(s *Session) {
		s.telnet = false
	}
}

func newSession(reg *Registry, t Transport, opts ...SessionOpt) *Session {
	now := reg.now()
	s := &Session{
		id:          uuid.NewString(),
		transport:   t,
		reg:         reg,
		telnet:      true,
		classifier:  telnet.NewClassifier(),
		out:         NewOutbox(reg.queueSize),
		writerDone:  make(chan struct{}),
		state:       StateConnected,
		connectedAt: now,
		lastInput:   now,
		supports:    gmcp.NewSupports(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Id() string         { return s.id }
func (s *Session) RemoteAddr() string { return s.transport.RemoteAddr() }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Actor returns the attached actor id, or game.InvalidId.
func (s *Session) Actor() game.EntityId {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actor
}

// GMCPEnabled reports whether GMCP was negotiated.
func (s *Session) GMCPEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gmcpOn
}

// Supports reports whether the client declared support for module.
func (s *Session) Supports(module string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supports.Has(module)
}

// Client returns what the client sent in Core.Hello.
func (s *Session) Client() gmcp.CoreHello {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// QueueLen is the number of messages waiting to be written.
func (s *Session) QueueLen() int { return s.out.Len() }

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	if prev != st {
		slog.Debug("session state", "session", s.id, "from", prev, "to", st)
	}
}

func (s *Session) logAttrs() []any {
	return []any{"session", s.id, "remote", s.transport.RemoteAddr()}
}

// Run completes the transport handshake and serves the connection until it
// closes or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, s.reg.handshakeTimeout)
	err := s.transport.Handshake(hctx)
	cancel()
	if err != nil {
		_ = s.transport.Close()
		s.setState(StateDisconnected)
		close(s.writerDone)
		s.reg.remove(s)
		return fmt.Errorf("%w: handshake: %w", ErrNetwork, err)
	}

	slog.InfoContext(ctx, "session connected", s.logAttrs()...)

	go s.writeLoop()

	if s.telnet {
		s.push(telnet.Negotiate(telnet.WILL, telnet.OptGMCP))
		s.push(telnet.Negotiate(telnet.WILL, telnet.OptMSSP))
	}
	s.setState(StateLogin)
	s.reg.login.Begin(ctx, s)

	stop := context.AfterFunc(ctx, func() { s.Disconnect("server shutting down") })
	defer stop()

	readErr := s.readLoop(ctx)
	s.connectionLost(ctx, readErr)
	<-s.writerDone

	if s.State() != StateLinkdead {
		s.reg.remove(s)
	}
	slog.InfoContext(ctx, "session ended", append(s.logAttrs(), "state", s.State())...)
	return nil
}

func (s *Session) readLoop(ctx context.Context) error {
	buf := make([]byte, telnet.ReadBufferSize)
	failures := 0
	for {
		n, err := s.transport.Read(buf)
		if n > 0 {
			failures = 0
			for _, ev := range s.classifier.Feed(buf[:n]) {
				s.handleEvent(ctx, ev)
			}
		}
		if err == nil {
			continue
		}
		if s.closing() || isDisconnect(err) {
			return err
		}
		failures++
		slog.WarnContext(ctx, "session read failed", append(s.logAttrs(), "error", err, "consecutive", failures)...)
		if failures >= MaxReadErrors {
			return err
		}
	}
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

func (s *Session) closing() bool {
	switch s.State() {
	case StateDisconnecting, StateDisconnected, StateLinkdead:
		return true
	}
	return false
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)
	for msg := range s.out.C() {
		if s.writeFailedNow() {
			continue
		}
		if _, err := s.transport.Write(msg); err != nil {
			slog.Warn("session write failed", append(s.logAttrs(), "error", err)...)
			s.mu.Lock()
			s.writeFailed = true
			s.mu.Unlock()
			_ = s.transport.Close()
			s.out.Close()
		}
	}
	_ = s.transport.Close()

	s.mu.Lock()
	if s.state == StateDisconnecting {
		s.state = StateDisconnected
	}
	s.mu.Unlock()
}

func (s *Session) writeFailedNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFailed
}

// connectionLost handles the end of the read side. A playing session keeps
// its actor in the world as linkdead; anything else is disconnected.
func (s *Session) connectionLost(ctx context.Context, err error) {
	s.mu.Lock()
	switch s.state {
	case StateDisconnecting, StateDisconnected, StateLinkdead:
		s.mu.Unlock()
		return
	}
	actor := s.actor
	if actor.Valid() && !s.writeFailed {
		s.state = StateLinkdead
		s.linkdeadAt = s.reg.now()
		s.dropSubscriptionLocked()
		s.mu.Unlock()

		slog.InfoContext(ctx, "session lost link", append(s.logAttrs(), "actor", actor, "error", err)...)
		s.out.Close()
		_ = s.transport.Close()
		s.reg.linkdead(s, actor)
		return
	}

	s.state = StateDisconnected
	s.actor = game.InvalidId
	s.dropSubscriptionLocked()
	s.mu.Unlock()

	s.out.Close()
	_ = s.transport.Close()
	if actor.Valid() {
		s.reg.abandon(s, actor)
	}
}

func (s *Session) dropSubscriptionLocked() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Disconnect says goodbye, drains the queue and closes the transport. The
// attached actor, if any, is left to the caller.
func (s *Session) Disconnect(reason string) {
	s.mu.Lock()
	prev := s.state
	switch prev {
	case StateDisconnecting, StateDisconnected:
		s.mu.Unlock()
		return
	}
	actor := s.actor
	s.actor = game.InvalidId
	s.dropSubscriptionLocked()
	if prev == StateLinkdead {
		s.state = StateDisconnected
	} else {
		s.state = StateDisconnecting
	}
	s.mu.Unlock()

	if actor.Valid() {
		s.reg.release(s, actor)
	}
	if prev == StateLinkdead {
		s.reg.remove(s)
		return
	}
	slog.Info("session disconnecting", append(s.logAttrs(), "reason", reason)...)
	s.push(s.encodeText("Disconnecting: "+reason+"\n", false))
	s.out.Close()
}

// Send queues text for the client.
func (s *Session) Send(text string) {
	s.push(s.encodeText(text, false))
}

// SendPrompt queues a prompt, terminated with GA on telnet connections.
func (s *Session) SendPrompt(text string) {
	s.push(s.encodeText(text, true))
}

// SetEcho asks a telnet client to stop or resume echoing typed input.
func (s *Session) SetEcho(on bool) {
	if !s.telnet {
		return
	}
	if on {
		s.push(telnet.Negotiate(telnet.WONT, telnet.OptEcho))
		s.push([]byte("\r\n"))
	} else {
		s.push(telnet.Negotiate(telnet.WILL, telnet.OptEcho))
	}
}

// SendGMCP queues a GMCP message when the client negotiated GMCP and
// declared support for the module. Core messages are always allowed.
func (s *Session) SendGMCP(module string, v any) {
	s.mu.Lock()
	allowed := s.gmcpOn && (s.supports.Has(module) || isCoreModule(module))
	s.mu.Unlock()
	if !allowed {
		return
	}
	frame, err := gmcp.Frame(module, v)
	if err != nil {
		slog.Warn("encoding gmcp", append(s.logAttrs(), "module", module, "error", err)...)
		return
	}
	s.push(frame)
}

// Post runs fn inside the world serializer.
func (s *Session) Post(name string, fn func(ctx context.Context, w *game.World)) error {
	return s.reg.dispatcher.Post(name, fn)
}

// Complete attaches an actor to a session in the Login state and moves it to
// Playing. It must run inside the world serializer. Any other session holding
// the same actor is closed, and a linkdead one is taken over.
func (s *Session) Complete(actorId game.EntityId) error {
	if s.State() != StateLogin {
		return fmt.Errorf("completing login: %w: %s", ErrInvalidState, s.State())
	}
	unsub, err := messaging.SubscribeActor(s.reg.bus, actorId, s.deliver)
	if err != nil {
		return fmt.Errorf("subscribing actor %d: %w", actorId, err)
	}

	s.mu.Lock()
	if s.state != StateLogin {
		s.mu.Unlock()
		unsub()
		return fmt.Errorf("completing login: %w: %s", ErrInvalidState, s.state)
	}
	s.actor = actorId
	s.unsubscribe = unsub
	s.lastInput = s.reg.now()
	s.mu.Unlock()

	if s.reg.attach(s, actorId) {
		s.setState(StateReconnecting)
		slog.Info("session reconnected", append(s.logAttrs(), "actor", actorId)...)
	}
	s.setState(StatePlaying)
	return nil
}

// deliver handles output published for the attached actor.
func (s *Session) deliver(out game.Output) {
	if out.Module != "" {
		var data any
		if len(out.Data) > 0 {
			data = out.Data
		}
		s.SendGMCP(out.Module, data)
	}
	if out.Text != "" {
		s.push(s.encodeText(out.Text, out.Prompt))
	}
	if out.Disconnect {
		s.Disconnect("quit")
	}
}

func (s *Session) push(msg []byte) {
	if !s.out.Push(msg) && !s.closing() {
		slog.Warn("session output dropped", append(s.logAttrs(), "queued", s.out.Len(), "dropped", s.out.Dropped())...)
	}
}

// encodeText converts line endings to \r\n and, on telnet streams, doubles
// IAC bytes and terminates prompts with GA.
func (s *Session) encodeText(text string, prompt bool) []byte {
	b := bytes.ReplaceAll([]byte(text), []byte("\r\n"), []byte("\n"))
	b = bytes.ReplaceAll(b, []byte("\n"), []byte("\r\n"))
	if !s.telnet {
		return b
	}
	b = telnet.Escape(b)
	if prompt {
		b = append(b, telnet.GoAhead()...)
	}
	return b
}

func (s *Session) handleEvent(ctx context.Context, ev telnet.Event) {
	switch ev.Kind {
	case telnet.EventLine:
		s.handleLine(ctx, ev.Line)
	case telnet.EventNegotiation:
		s.handleNegotiation(ctx, ev.Verb, ev.Option)
	case telnet.EventSubnegotiation:
		s.handleSubnegotiation(ctx, ev.Option, ev.Payload)
	case telnet.EventCommand:
		if ev.Verb == telnet.AYT {
			s.Send("[yes]\n")
		}
	}
}

func (s *Session) handleLine(ctx context.Context, line string) {
	s.mu.Lock()
	s.lastInput = s.reg.now()
	state := s.state
	actor := s.actor
	if state == StateAFK {
		s.state = StatePlaying
	}
	s.mu.Unlock()

	switch state {
	case StateLogin:
		s.reg.login.HandleLine(ctx, s, line)
	case StateAFK:
		s.Send("You are no longer AFK.\n")
		fallthrough
	case StatePlaying:
		if err := s.reg.dispatcher.Submit(actor, line); err != nil {
			slog.DebugContext(ctx, "input rejected", append(s.logAttrs(), "error", err)...)
			s.Send(rejectionMessage(err))
		}
	}
}

// goAFK marks an idle playing session away.
func (s *Session) goAFK() bool {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return false
	}
	s.state = StateAFK
	s.mu.Unlock()
	s.Send("You are now AFK.\n")
	return true
}

// idleOut closes an idle session, leaving its actor linkdead.
func (s *Session) idleOut() bool {
	s.mu.Lock()
	if !s.state.InGame() || !s.actor.Valid() {
		s.mu.Unlock()
		return false
	}
	actor := s.actor
	s.state = StateLinkdead
	s.linkdeadAt = s.reg.now()
	s.dropSubscriptionLocked()
	s.mu.Unlock()

	s.push(s.encodeText("You have been idle too long.\n", false))
	s.out.Close()
	s.reg.linkdead(s, actor)
	return true
}

// times returns the timestamps the sweep works from.
func (s *Session) times() (state State, connected, lastInput, linkdead time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.connectedAt, s.lastInput, s.linkdeadAt
}
