package session

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"time"
)

// Transport is the byte stream under a session. Handshake completes before
// the first Read.
type Transport interface {
	io.ReadWriteCloser
	Handshake(ctx context.Context) error
	RemoteAddr() string
}

type plainTransport struct {
	net.Conn
}

// NewPlainTransport wraps an unencrypted connection.
func NewPlainTransport(conn net.Conn) Transport {
	return &plainTransport{Conn: conn}
}

func (t *plainTransport) Handshake(context.Context) error { return nil }
func (t *plainTransport) RemoteAddr() string              { return t.Conn.RemoteAddr().String() }

type tlsTransport struct {
	*tls.Conn
}

// NewTLSTransport wraps conn in a server side TLS connection.
func NewTLSTransport(conn net.Conn, cfg *tls.Config) Transport {
	return &tlsTransport{Conn: tls.Server(conn, cfg)}
}

func (t *tlsTransport) Handshake(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.Conn.SetDeadline(deadline)
		defer func() { _ = t.Conn.SetDeadline(time.Time{}) }()
	}
	return t.Conn.HandshakeContext(ctx)
}

func (t *tlsTransport) RemoteAddr() string { return t.Conn.RemoteAddr().String() }

type channelTransport struct {
	ch     io.ReadWriteCloser
	remote string
}

// NewChannelTransport wraps an already authenticated stream such as an SSH
// session channel. Input line endings are normalized so \r\n and a bare \r
// both end a line.
func NewChannelTransport(ch io.ReadWriteCloser, remote string) Transport {
	return &channelTransport{ch: ch, remote: remote}
}

func (t *channelTransport) Handshake(context.Context) error { return nil }
func (t *channelTransport) RemoteAddr() string              { return t.remote }
func (t *channelTransport) Write(p []byte) (int, error)     { return t.ch.Write(p) }
func (t *channelTransport) Close() error                    { return t.ch.Close() }

func (t *channelTransport) Read(p []byte) (int, error) {
	n, err := t.ch.Read(p)
	if n > 0 {
		data := bytes.ReplaceAll(p[:n], []byte("\r\n"), []byte("\n"))
		data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
		n = copy(p, data)
	}
	return n, err
}
