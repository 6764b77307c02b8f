package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/mudcore/internal/journal"
)

// JournalConfig enables the command journal when Dir is set.
type JournalConfig struct {
	Dir           string `json:"dir"`
	BufferSize    int    `json:"buffer_size"`
	FlushInterval string `json:"flush_interval"`
}

func (c *JournalConfig) validate() error {
	el := errors.NewErrorList()

	if c.BufferSize < 0 {
		el.Add(fmt.Errorf("journal buffer_size cannot be negative"))
	}
	if c.FlushInterval != "" {
		if _, err := duration("flush_interval", c.FlushInterval, 0); err != nil {
			el.Add(err)
		}
	}

	return el.Err()
}

func (c *JournalConfig) buildJournal() (*journal.Journal, error) {
	if c.Dir == "" {
		return nil, nil
	}

	var opts []journal.JournalOpt
	if c.BufferSize > 0 {
		opts = append(opts, journal.WithBufferSize(c.BufferSize))
	}
	if c.FlushInterval != "" {
		d, err := duration("flush_interval", c.FlushInterval, 0)
		if err != nil {
			return nil, err
		}
		opts = append(opts, journal.WithFlushInterval(d))
	}
	return journal.New(c.Dir, opts...), nil
}
