package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-service"

	"github.com/pixil98/mudcore/internal/messaging"
)

type NatsMode string

const (
	// NatsModeServer runs an embedded server that also accepts network clients.
	NatsModeServer NatsMode = "server"
	// NatsModeInProcess runs an embedded server reachable only from this process.
	NatsModeInProcess NatsMode = "in_process"
	// NatsModeLocal skips NATS and delivers output in memory.
	NatsModeLocal NatsMode = "local"
)

type NatsConfig struct {
	Mode         NatsMode `json:"mode"`
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	StartTimeout string   `json:"start_timeout"`
}

func (n *NatsConfig) validate() error {
	el := errors.NewErrorList()

	switch n.Mode {
	case "", NatsModeServer, NatsModeInProcess, NatsModeLocal:
	default:
		el.Add(fmt.Errorf("unknown nats mode %q", n.Mode))
	}
	if n.StartTimeout != "" {
		_, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing start_timeout: %w", err))
		}
	}

	return el.Err()
}

// buildBus returns the message bus, the worker that runs it if any, and a
// channel closed once the bus is usable.
func (c *NatsConfig) buildBus() (messaging.Bus, service.Worker, <-chan struct{}, error) {
	if c.Mode == NatsModeLocal {
		ready := make(chan struct{})
		close(ready)
		return messaging.NewLocalBus(), nil, ready, nil
	}

	s, err := c.buildNatsServer()
	if err != nil {
		return nil, nil, nil, err
	}
	return s, s, s.Ready(), nil
}

func (c *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt
	if c.StartTimeout != "" {
		d, err := time.ParseDuration(c.StartTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing start_timeout: %w", err)
		}
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if c.Host != "" {
		opts = append(opts, messaging.WithHost(c.Host))
	}
	if c.Port != 0 {
		opts = append(opts, messaging.WithPort(c.Port))
	}
	if c.Mode == NatsModeInProcess {
		opts = append(opts, messaging.WithInProcess())
	}

	s, err := messaging.NewNatsServer(opts...)
	if err != nil {
		return nil, err
	}

	return s, nil
}
