package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// ErrNotReady is returned by bus calls made before the server has started.
var ErrNotReady = errors.New("message bus not ready")

const (
	DefaultStartTimeout = 10 * time.Second
	drainTimeout        = 2 * time.Second
)

// NatsServer embeds a NATS server and the process's own client connection.
// Output for each actor travels through it from the world to the session
// that owns the actor.
type NatsServer struct {
	ns    *server.Server
	conn  atomic.Pointer[nats.Conn]
	ready chan struct{}

	startTimeout time.Duration
	host         string
	port         int
	inProcess    bool
}

func NewNatsServer(opts ...NatsServerOpt) (*NatsServer, error) {
	n := &NatsServer{
		ready:        make(chan struct{}),
		startTimeout: DefaultStartTimeout,
		host:         "127.0.0.1",
	}
	for _, opt := range opts {
		opt(n)
	}

	ns, err := server.NewServer(&server.Options{
		ServerName: "mudcore",
		Host:       n.host,
		Port:       n.port,
		NoSigs:     true,
		NoLog:      true,
		DontListen: n.inProcess,
	})
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	n.ns = ns
	return n, nil
}

// Start runs the server until ctx is cancelled, draining pending deliveries
// before shutting down.
func (n *NatsServer) Start(ctx context.Context) error {
	n.ns.Start()
	defer func() {
		n.ns.Shutdown()
		n.ns.WaitForShutdown()
	}()

	if !n.ns.ReadyForConnections(n.startTimeout) {
		return fmt.Errorf("nats server not ready after %s", n.startTimeout)
	}

	connOpts := []nats.Option{
		nats.Name("mudcore"),
		nats.DrainTimeout(drainTimeout),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			slog.Warn("nats delivery error", "subject", subject, "error", err)
		}),
	}
	if n.inProcess {
		connOpts = append(connOpts, nats.InProcessServer(n.ns))
	}
	conn, err := nats.Connect(n.ns.ClientURL(), connOpts...)
	if err != nil {
		return fmt.Errorf("connecting to embedded nats: %w", err)
	}
	n.conn.Store(conn)
	close(n.ready)

	slog.InfoContext(ctx, "nats server started", "url", n.ns.ClientURL(), "in_process", n.inProcess)

	<-ctx.Done()
	n.conn.Store(nil)
	if err := conn.Drain(); err != nil {
		conn.Close()
	}
	return nil
}

// Ready is closed once the client connection is usable.
func (n *NatsServer) Ready() <-chan struct{} {
	return n.ready
}

// Subscribe calls handler with each message on subject until the returned
// function is called.
func (n *NatsServer) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	conn := n.conn.Load()
	if conn == nil {
		return nil, ErrNotReady
	}
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (n *NatsServer) Publish(subject string, data []byte) error {
	conn := n.conn.Load()
	if conn == nil {
		return ErrNotReady
	}
	if err := conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
