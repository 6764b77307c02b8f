package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixil98/mudcore/internal/display"
	"github.com/pixil98/mudcore/internal/game"
)

// LookHandlerFactory shows the room, or an exit when given a direction.
type LookHandlerFactory struct{}

func (f *LookHandlerFactory) ValidateConfig(map[string]any) error { return nil }

func (f *LookHandlerFactory) Create(map[string]any) (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		w, p := cmdCtx.World, cmdCtx.Actor
		room := w.Room(p.Room())

		arg, _ := cmdCtx.Inputs["direction"].(string)
		if arg == "" {
			showRoom(w, p, room)
			return nil
		}

		dir, err := game.ParseDirection(arg)
		if err != nil {
			return NewUserError("You do not see that here.")
		}
		exit := room.Exit(dir)
		if exit == nil || exit.IsHidden {
			return NewUserError("Nothing special there...")
		}

		var b strings.Builder
		if exit.Description != "" {
			b.WriteString(display.Wrap(exit.Description) + "\n")
		} else {
			b.WriteString("You see nothing special.\n")
		}
		if exit.HasDoor {
			name := exit.Keyword
			if name == "" {
				name = "door"
			}
			fmt.Fprintf(&b, "The %s is %s.\n", name, exit.DoorState())
		}
		cmdCtx.Send(b.String())
		return nil
	}, nil
}

// ExitsHandlerFactory lists the exits of the current room.
type ExitsHandlerFactory struct{}

func (f *ExitsHandlerFactory) ValidateConfig(map[string]any) error { return nil }

func (f *ExitsHandlerFactory) Create(map[string]any) (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		w, p := cmdCtx.World, cmdCtx.Actor
		room := w.Room(p.Room())
		if room == nil {
			return NewUserError("You are in an invalid location.")
		}

		var b strings.Builder
		b.WriteString("Obvious exits:\n")
		count := 0
		for _, dir := range game.AllDirections {
			exit := room.Exit(dir)
			if exit == nil || exit.IsHidden {
				continue
			}
			count++
			dest := "Unknown"
			if to := w.Room(exit.ToRoom); to != nil {
				dest = to.Name
			}
			switch state := exit.DoorState(); state {
			case "closed", "locked":
				fmt.Fprintf(&b, "%-9s - A %s door\n", display.Capitalize(dir.String()), state)
			default:
				fmt.Fprintf(&b, "%-9s - %s\n", display.Capitalize(dir.String()), dest)
			}
		}
		if count == 0 {
			b.WriteString(" None.\n")
		}
		cmdCtx.Send(b.String())
		return nil
	}, nil
}
