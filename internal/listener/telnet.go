package listener

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"

	"github.com/pixil98/mudcore/internal/session"
)

// TelnetListener serves telnet over plain TCP, or over TLS when configured.
// Telnet negotiation is handled by the session itself.
type TelnetListener struct {
	*bound
	port   uint16
	cm     *ConnectionManager
	tlsCfg *tls.Config
}

type TelnetListenerOpt func(*TelnetListener)

// WithTLS wraps every connection in a server side TLS handshake.
func WithTLS(cfg *tls.Config) TelnetListenerOpt {
	return func(l *TelnetListener) {
		l.tlsCfg = cfg
	}
}

func NewTelnetListener(port uint16, cm *ConnectionManager, opts ...TelnetListenerOpt) *TelnetListener {
	l := &TelnetListener{
		bound: newBound(),
		port:  port,
		cm:    cm,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *TelnetListener) kind() string {
	if l.tlsCfg != nil {
		return "tls"
	}
	return "telnet"
}

func (l *TelnetListener) Start(ctx context.Context) error {
	if err := l.cm.WaitReady(ctx); err != nil {
		return nil
	}

	listener, err := listen(l.port)
	if err != nil {
		return err
	}
	l.set(listener.Addr())
	slog.InfoContext(ctx, "listening for "+l.kind(), "addr", listener.Addr().String())

	return acceptLoop(ctx, listener, l.kind(), l.handleConnection)
}

func (l *TelnetListener) handleConnection(ctx context.Context, conn net.Conn) {
	var t session.Transport
	if l.tlsCfg != nil {
		t = session.NewTLSTransport(conn, l.tlsCfg)
	} else {
		t = session.NewPlainTransport(conn)
	}
	defer func() {
		if err := t.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.ErrorContext(ctx, "closing connection", "remote", t.RemoteAddr(), "error", err)
		}
	}()

	slog.DebugContext(ctx, "connection accepted", "listener", l.kind(), "remote", t.RemoteAddr())
	l.cm.AcceptConnection(ctx, t)
}
