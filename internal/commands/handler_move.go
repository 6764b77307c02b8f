package commands

import (
	"context"
	"fmt"

	"github.com/pixil98/mudcore/internal/game"
)

// MoveHandlerFactory creates handlers that move players between rooms.
// Config:
//   - direction (required): the direction to move, may be a template
type MoveHandlerFactory struct{}

func (f *MoveHandlerFactory) ValidateConfig(config map[string]any) error {
	direction, ok := config["direction"].(string)
	if !ok || direction == "" {
		return fmt.Errorf("direction is required")
	}
	return nil
}

func (f *MoveHandlerFactory) Create(map[string]any) (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		dir, err := game.ParseDirection(cmdCtx.Config["direction"])
		if err != nil {
			return NewUserError("That's not a direction.")
		}

		w, p := cmdCtx.World, cmdCtx.Actor
		res := w.Move(p.Id(), dir)
		if !res.Success {
			return NewUserError(moveFailure(w.Room(res.From), dir, res.Reason))
		}

		w.SendRoom(res.From, fmt.Sprintf("%s leaves %s.\n", p.Name(), dir), p.Id())
		w.SendRoom(res.To, fmt.Sprintf("%s has arrived.\n", p.Name()), p.Id())
		showRoom(w, p, w.Room(res.To))
		return nil
	}, nil
}

func moveFailure(from *game.Room, dir game.Direction, reason game.MoveReason) string {
	switch reason {
	case game.MoveExitClosed:
		name := "door"
		if from != nil {
			if exit := from.Exit(dir); exit != nil && exit.Keyword != "" {
				name = exit.Keyword
			}
		}
		return fmt.Sprintf("The %s seems to be closed.", name)
	case game.MoveDestinationFull:
		return "There isn't enough room there for you."
	case game.MoveRestricted:
		return "You aren't allowed in there."
	case game.MoveInvalidLocation:
		return "You are in an invalid location."
	default:
		return "Alas, you cannot go that way..."
	}
}
