package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/mudcore/internal/driver"
)

const DefaultSaveInterval = 5 * time.Minute

type DriverConfig struct {
	QueueSize         int     `json:"queue_size"`
	RateLimit         float64 `json:"rate_limit"`
	RateBurst         int     `json:"rate_burst"`
	HeartbeatInterval string  `json:"heartbeat_interval"`
	SaveInterval      string  `json:"save_interval"`
}

func (c *DriverConfig) validate() error {
	el := errors.NewErrorList()

	if c.QueueSize < 0 {
		el.Add(fmt.Errorf("driver queue_size cannot be negative"))
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		el.Add(fmt.Errorf("driver rate limits cannot be negative"))
	}
	if _, err := duration("heartbeat_interval", c.HeartbeatInterval, driver.DefaultHeartbeatInterval); err != nil {
		el.Add(err)
	}
	if _, err := duration("save_interval", c.SaveInterval, DefaultSaveInterval); err != nil {
		el.Add(err)
	}

	return el.Err()
}

func (c *DriverConfig) options(tickInterval string) ([]driver.MudDriverOpt, error) {
	tick, err := duration("tick_interval", tickInterval, driver.DefaultTickLength)
	if err != nil {
		return nil, err
	}
	heartbeat, err := duration("heartbeat_interval", c.HeartbeatInterval, driver.DefaultHeartbeatInterval)
	if err != nil {
		return nil, err
	}

	opts := []driver.MudDriverOpt{
		driver.WithTickLength(tick),
		driver.WithHeartbeat(heartbeat),
	}
	if c.QueueSize > 0 {
		opts = append(opts, driver.WithQueueSize(c.QueueSize))
	}
	if c.RateLimit > 0 {
		burst := c.RateBurst
		if burst == 0 {
			burst = int(c.RateLimit * 2)
		}
		opts = append(opts, driver.WithRateLimit(c.RateLimit, burst))
	}
	return opts, nil
}

func (c *DriverConfig) saveInterval() time.Duration {
	d, err := duration("save_interval", c.SaveInterval, DefaultSaveInterval)
	if err != nil {
		return DefaultSaveInterval
	}
	return d
}
