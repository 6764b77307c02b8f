package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"
)

// acceptLoop accepts connections on l until ctx is cancelled, running handle
// for each on its own goroutine. Connections get a context that is cancelled
// once the loop has stopped accepting, and the loop waits for them to finish.
func acceptLoop(ctx context.Context, l net.Listener, kind string, handle func(context.Context, net.Conn)) error {
	connCtx, cancelConns := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	// Close the listener when the parent context is canceled
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			// Check if shutdown was requested
			select {
			case <-ctx.Done():
				cancelConns()
				wg.Wait()
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				cancelConns()
				wg.Wait()
				return fmt.Errorf("%s listener closed: %w", kind, err)
			}
			slog.ErrorContext(ctx, "accepting connection", "listener", kind, "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			handle(connCtx, conn)
		}()
	}
}

func listen(port uint16) (net.Listener, error) {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("port %d is already in use (another server running?)", port)
		}
		return nil, fmt.Errorf("listening on port %d: %w", port, err)
	}
	return l, nil
}

// bound records the address a listener ended up on.
type bound struct {
	once sync.Once
	ch   chan struct{}
	addr net.Addr
}

func newBound() *bound {
	return &bound{ch: make(chan struct{})}
}

func (b *bound) set(addr net.Addr) {
	b.once.Do(func() {
		b.addr = addr
		close(b.ch)
	})
}

// Addr waits for the listener to bind and returns its address.
func (b *bound) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-b.ch:
		return b.addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
