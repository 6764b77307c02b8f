package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/mudcore/internal/session"
)

type SessionConfig struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	OutputQueue   int    `json:"output_queue"`
	LoginTimeout  string `json:"login_timeout"`
	AFKTimeout    string `json:"afk_timeout"`
	IdleTimeout   string `json:"idle_timeout"`
	LinkdeadGrace string `json:"linkdead_grace"`
	SweepInterval string `json:"sweep_interval"`
}

type sessionDuration struct {
	value string
	def   time.Duration
	opt   func(time.Duration) session.RegistryOpt
}

func (c *SessionConfig) durations() map[string]sessionDuration {
	return map[string]sessionDuration{
		"login_timeout":  {c.LoginTimeout, session.DefaultLoginTimeout, session.WithLoginTimeout},
		"afk_timeout":    {c.AFKTimeout, session.DefaultAFKTimeout, session.WithAFKTimeout},
		"idle_timeout":   {c.IdleTimeout, session.DefaultIdleTimeout, session.WithIdleTimeout},
		"linkdead_grace": {c.LinkdeadGrace, session.DefaultLinkdeadGrace, session.WithLinkdeadGrace},
		"sweep_interval": {c.SweepInterval, session.DefaultSweepInterval, session.WithSweepInterval},
	}
}

func (c *SessionConfig) validate() error {
	el := errors.NewErrorList()

	if c.OutputQueue < 0 {
		el.Add(fmt.Errorf("session output_queue cannot be negative"))
	}
	for name, d := range c.durations() {
		if _, err := duration(name, d.value, d.def); err != nil {
			el.Add(err)
		}
	}

	return el.Err()
}

func (c *SessionConfig) options() ([]session.RegistryOpt, error) {
	var opts []session.RegistryOpt
	if c.Name != "" {
		opts = append(opts, session.WithName(c.Name))
	}
	if c.Version != "" {
		opts = append(opts, session.WithVersion(c.Version))
	}
	if c.OutputQueue > 0 {
		opts = append(opts, session.WithQueueSize(c.OutputQueue))
	}
	for name, d := range c.durations() {
		v, err := duration(name, d.value, d.def)
		if err != nil {
			return nil, err
		}
		opts = append(opts, d.opt(v))
	}
	return opts, nil
}
