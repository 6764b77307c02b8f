package player

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixil98/mudcore/internal/game"
)

const (
	DefaultTitle = "the Newbie"

	defaultHP = 20
	defaultMV = 100
)

// Character is the saved record of a player.
type Character struct {
	// Name is the character's display name
	Name string `json:"name"`

	// Password is the bcrypt-hashed login credential
	Password string `json:"password"`

	// Title is displayed after the character's name (e.g., "Bob the Brave")
	Title string `json:"title,omitempty"`

	Level int        `json:"level"`
	Stats game.Stats `json:"stats"`

	// Last known location, restored on login
	Room game.EntityId `json:"room,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	LastLogin time.Time `json:"last_login,omitempty"`
}

// NewCharacter hashes password and fills in starting values.
func NewCharacter(name, password string, cost int, now time.Time) (*Character, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return &Character{
		Name:     name,
		Password: string(hash),
		Title:    DefaultTitle,
		Level:    1,
		Stats: game.Stats{
			HP:    defaultHP,
			MaxHP: defaultHP,
			MV:    defaultMV,
			MaxMV: defaultMV,
		},
		CreatedAt: now,
	}, nil
}

// CheckPassword reports whether password matches the stored hash.
func (c *Character) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.Password), []byte(password)) == nil
}

func (c *Character) Validate() error {
	el := errors.NewErrorList()

	if c.Name == "" {
		el.Add(fmt.Errorf("name is required"))
	}
	if c.Password == "" {
		el.Add(fmt.Errorf("password is required"))
	}
	if c.Level < 1 {
		el.Add(fmt.Errorf("level must be at least 1"))
	}

	return el.Err()
}
