package commands

import (
	"github.com/pixil98/mudcore/internal/game"
)

// Stable template-facing types
// These types decouple templates from internal game structs.

// PlayerRef is the template-facing view of a player.
type PlayerRef struct {
	Name  string
	Title string
	Level int
	HP    int
	MaxHP int
	MV    int
	MaxMV int
	Room  uint64
}

// PlayerRefFrom creates a PlayerRef from a game.Player.
func PlayerRefFrom(p *game.Player) *PlayerRef {
	if p == nil {
		return nil
	}
	st := p.Stats()
	return &PlayerRef{
		Name:  p.Name(),
		Title: p.Title,
		Level: p.Level(),
		HP:    st.HP,
		MaxHP: st.MaxHP,
		MV:    st.MV,
		MaxMV: st.MaxMV,
		Room:  uint64(p.Room()),
	}
}

// RuntimeContext is what config templates are expanded with.
type RuntimeContext struct {
	Actor  *PlayerRef
	Text   string
	Inputs map[string]any
}
