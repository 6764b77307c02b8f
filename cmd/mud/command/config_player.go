package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixil98/mudcore/internal/game"
	"github.com/pixil98/mudcore/internal/player"
	"github.com/pixil98/mudcore/internal/storage"
)

type PlayerConfig struct {
	// StartRoom is where new characters appear. Zero uses the world default.
	StartRoom    uint64 `json:"start_room"`
	GreetingFile string `json:"greeting_file"`
	BcryptCost   int    `json:"bcrypt_cost"`
}

func (c *PlayerConfig) validate() error {
	el := errors.NewErrorList()

	if c.BcryptCost != 0 && (c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost) {
		el.Add(fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.GreetingFile != "" {
		if _, err := os.Stat(c.GreetingFile); err != nil {
			el.Add(fmt.Errorf("greeting_file: %w", err))
		}
	}

	return el.Err()
}

func (c *PlayerConfig) buildManager(chars storage.Storer[*player.Character], opts ...player.ManagerOpt) (*player.Manager, error) {
	if c.StartRoom != 0 {
		opts = append(opts, player.WithStartRoom(game.EntityId(c.StartRoom)))
	}
	if c.BcryptCost != 0 {
		opts = append(opts, player.WithBcryptCost(c.BcryptCost))
	}
	if c.GreetingFile != "" {
		data, err := os.ReadFile(c.GreetingFile)
		if err != nil {
			return nil, fmt.Errorf("reading greeting: %w", err)
		}
		opts = append(opts, player.WithGreeting(string(data)))
	}
	return player.NewManager(chars, opts...), nil
}
