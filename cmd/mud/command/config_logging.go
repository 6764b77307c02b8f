package command

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/pixil98/go-errors"
)

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`

	// File, when set, receives a copy of the log with size based rotation.
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

func (c *LoggingConfig) validate() error {
	el := errors.NewErrorList()

	if _, err := c.level(); err != nil {
		el.Add(err)
	}
	switch c.Format {
	case "", "text", "json":
	default:
		el.Add(fmt.Errorf("logging format must be text or json, got %q", c.Format))
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		el.Add(fmt.Errorf("logging rotation limits cannot be negative"))
	}

	return el.Err()
}

func (c *LoggingConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return lvl, fmt.Errorf("parsing logging level: %w", err)
	}
	return lvl, nil
}

// buildLogger writes to stderr and, when configured, to a rotating file.
func (c *LoggingConfig) buildLogger() (*slog.Logger, error) {
	lvl, err := c.level()
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stderr
	if c.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
			Compress:   c.Compress,
		})
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	}
	return slog.New(slog.NewTextHandler(out, opts)), nil
}
