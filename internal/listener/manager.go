// Package listener accepts network connections and hands them to the session
// registry.
package listener

import (
	"context"

	"github.com/pixil98/mudcore/internal/session"
)

// Server runs a session over an accepted transport until it ends.
type Server interface {
	Serve(ctx context.Context, t session.Transport, opts ...session.SessionOpt)
}

// ConnectionManager holds connections back until every dependency reports
// ready, then passes them to the server.
type ConnectionManager struct {
	srv   Server
	ready []<-chan struct{}
}

func NewConnectionManager(srv Server, ready ...<-chan struct{}) *ConnectionManager {
	return &ConnectionManager{
		srv:   srv,
		ready: ready,
	}
}

// WaitReady blocks until every dependency is ready or ctx ends.
func (m *ConnectionManager) WaitReady(ctx context.Context) error {
	for _, ch := range m.ready {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, t session.Transport, opts ...session.SessionOpt) {
	m.srv.Serve(ctx, t, opts...)
}
