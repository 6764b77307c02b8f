package listener

import (
	"context"
	"log/slog"
	"net"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/pixil98/mudcore/internal/session"
)

const sshHandshakeTimeout = 30 * time.Second

// SshListener serves sessions over SSH shell channels. Clients are not
// authenticated by SSH; the login flow asks for a name and password.
type SshListener struct {
	*bound
	port    uint16
	cm      *ConnectionManager
	hostKey ssh.Signer
}

func NewSshListener(port uint16, cm *ConnectionManager, hostKey ssh.Signer) *SshListener {
	return &SshListener{
		bound:   newBound(),
		port:    port,
		cm:      cm,
		hostKey: hostKey,
	}
}

func (l *SshListener) Start(ctx context.Context) error {
	if err := l.cm.WaitReady(ctx); err != nil {
		return nil
	}

	cfg := &ssh.ServerConfig{NoClientAuth: true}
	cfg.AddHostKey(l.hostKey)

	ln, err := listen(l.port)
	if err != nil {
		return err
	}
	l.set(ln.Addr())
	slog.InfoContext(ctx, "listening for ssh",
		"addr", ln.Addr().String(),
		"fingerprint", ssh.FingerprintSHA256(l.hostKey.PublicKey()))

	return acceptLoop(ctx, ln, "ssh", func(ctx context.Context, conn net.Conn) {
		l.serveConn(ctx, conn, cfg)
	})
}

func (l *SshListener) serveConn(ctx context.Context, conn net.Conn, cfg *ssh.ServerConfig) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	_ = conn.SetDeadline(time.Now().Add(sshHandshakeTimeout))
	sc, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		slog.WarnContext(ctx, "ssh handshake failed", "remote", remote, "error", err)
		return
	}
	_ = conn.SetDeadline(time.Time{})
	defer sc.Close()

	slog.InfoContext(ctx, "ssh client connected", "remote", remote, "client", string(sc.ClientVersion()))

	// Closing the connection ends the channel range below.
	stop := context.AfterFunc(ctx, func() { sc.Close() })
	defer stop()

	go ssh.DiscardRequests(reqs)

	served := false
	for nc := range chans {
		switch {
		case nc.ChannelType() != "session":
			_ = nc.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		case served:
			_ = nc.Reject(ssh.Prohibited, "one session per connection")
			continue
		}

		ch, requests, err := nc.Accept()
		if err != nil {
			slog.WarnContext(ctx, "accepting ssh channel", "remote", remote, "error", err)
			continue
		}
		served = true

		if !awaitShell(ctx, requests) {
			ch.Close()
			continue
		}

		// The channel carries no telnet, so echo control and GMCP are off.
		l.cm.AcceptConnection(ctx, session.NewChannelTransport(ch, remote), session.WithoutTelnet())
		ch.Close()
	}
}

// awaitShell answers channel requests until the client asks for a shell. SSH
// clients hold back input until the shell reply arrives. Later requests are
// still answered in the background.
func awaitShell(ctx context.Context, requests <-chan *ssh.Request) bool {
	ready := make(chan struct{})
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		shell := false
		for req := range requests {
			switch req.Type {
			case "shell":
				_ = req.Reply(!shell, nil)
				if !shell {
					shell = true
					close(ready)
				}
			case "env", "window-change":
				_ = req.Reply(true, nil)
			default:
				// Refusing pty-req keeps the client's local echo and line editing.
				_ = req.Reply(false, nil)
			}
		}
	}()

	select {
	case <-ready:
		return true
	case <-gone:
		select {
		case <-ready:
			return true
		default:
			return false
		}
	case <-ctx.Done():
		return false
	}
}
