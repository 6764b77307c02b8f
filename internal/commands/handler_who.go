package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pixil98/mudcore/internal/display"
	"github.com/pixil98/mudcore/internal/game"
)

// WhoHandlerFactory lists the players online.
type WhoHandlerFactory struct{}

func (f *WhoHandlerFactory) ValidateConfig(map[string]any) error { return nil }

func (f *WhoHandlerFactory) Create(map[string]any) (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		players := cmdCtx.World.Players()

		var b strings.Builder
		b.WriteString("Players\n-------\n")
		for _, p := range players {
			fmt.Fprintf(&b, "[%3d] %s", p.Level(), p.Name())
			if p.Title != "" {
				b.WriteString(" " + p.Title)
			}
			b.WriteString("\n")
		}
		if len(players) == 1 {
			b.WriteString("\nOne lonely character displayed.\n")
		} else {
			fmt.Fprintf(&b, "\n%d characters displayed.\n", len(players))
		}
		cmdCtx.Send(b.String())
		return nil
	}, nil
}

// WhereHandlerFactory shows the current zone and who else is in it.
type WhereHandlerFactory struct{}

func (f *WhereHandlerFactory) ValidateConfig(map[string]any) error { return nil }

func (f *WhereHandlerFactory) Create(map[string]any) (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		w, p := cmdCtx.World, cmdCtx.Actor
		room := w.Room(p.Room())
		if room == nil {
			return NewUserError("You are in an invalid location.")
		}

		var b strings.Builder
		fmt.Fprintf(&b, "You are in %s [%d]", room.Name, room.Id)
		zone := w.Zone(room.Zone())
		if zone == nil {
			b.WriteString(".\n")
			cmdCtx.Send(b.String())
			return nil
		}
		fmt.Fprintf(&b, ", in %s [%d].\n", zone.Name, zone.Id)

		b.WriteString("Players near you:\n")
		for _, other := range w.Players() {
			if other.Id() == p.Id() || !zone.ContainsRoom(other.Room()) {
				continue
			}
			if r := w.Room(other.Room()); r != nil {
				fmt.Fprintf(&b, "%-20s - %s\n", other.Name(), r.Name)
			}
		}
		cmdCtx.Send(b.String())
		return nil
	}, nil
}

// PathHandlerFactory tells a player the way to a room, by id or name.
type PathHandlerFactory struct{}

func (f *PathHandlerFactory) ValidateConfig(map[string]any) error { return nil }

func (f *PathHandlerFactory) Create(map[string]any) (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		w, p := cmdCtx.World, cmdCtx.Actor
		arg, _ := cmdCtx.Inputs["room"].(string)

		target := findRoom(w, arg)
		if target == nil {
			return NewUserError("There is no such place.")
		}
		if target.Id == p.Room() {
			return NewUserError("You are already there.")
		}

		path := w.FindPathFor(p.Id(), target.Id)
		if len(path) == 0 {
			return Userf("You can't find a way to %s.", target.Name)
		}
		steps := make([]string, len(path))
		for i, dir := range path {
			steps[i] = dir.Short()
		}
		cmdCtx.Send(fmt.Sprintf("The way to %s is: %s\n", target.Name, strings.Join(steps, " ")))
		return nil
	}, nil
}

// findRoom accepts a room id or a name keyword.
func findRoom(w *game.World, arg string) *game.Room {
	if id, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return w.Room(game.EntityId(id))
	}
	if rooms := w.FindRoomsByKeyword(arg); len(rooms) > 0 {
		return rooms[0]
	}
	return nil
}

const helpColumns = 6

// HelpHandlerFactory lists the available commands.
type HelpHandlerFactory struct{}

func (f *HelpHandlerFactory) ValidateConfig(map[string]any) error { return nil }

func (f *HelpHandlerFactory) Create(map[string]any) (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		names := cmdCtx.handler.Names()
		cmdCtx.Send("The following commands are available:\n" + display.Columns(names, helpColumns, 12))
		return nil
	}, nil
}
