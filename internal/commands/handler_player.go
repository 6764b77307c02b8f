package commands

import (
	"context"
	"fmt"
	"strings"
)

const MaxTitleLength = 40

// TitleHandlerFactory sets the text shown after a player's name.
type TitleHandlerFactory struct{}

func (f *TitleHandlerFactory) ValidateConfig(map[string]any) error { return nil }

func (f *TitleHandlerFactory) Create(map[string]any) (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		title := strings.TrimSpace(cmdCtx.Runtime().Text)
		if len(title) > MaxTitleLength {
			return Userf("Titles can't be longer than %d characters.", MaxTitleLength)
		}
		cmdCtx.Actor.Title = title
		cmdCtx.Send("Okay, you're now " + cmdCtx.Actor.Name() + " " + title + ".\n")
		return nil
	}, nil
}

// SaveHandlerFactory saves the player.
type SaveHandlerFactory struct{}

func (f *SaveHandlerFactory) ValidateConfig(map[string]any) error { return nil }

func (f *SaveHandlerFactory) Create(map[string]any) (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		saver := cmdCtx.handler.saver
		if saver == nil {
			return NewUserError("Saving is not available.")
		}
		if err := saver.Save(cmdCtx.Actor); err != nil {
			return fmt.Errorf("saving %s: %w", cmdCtx.Actor.Name(), err)
		}
		cmdCtx.Send("Saving " + cmdCtx.Actor.Name() + ".\n")
		return nil
	}, nil
}

// QuitHandlerFactory takes the player out of the game.
type QuitHandlerFactory struct{}

func (f *QuitHandlerFactory) ValidateConfig(map[string]any) error { return nil }

func (f *QuitHandlerFactory) Create(map[string]any) (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		departer := cmdCtx.handler.departer
		if departer == nil {
			return NewUserError("You can't leave right now.")
		}
		if err := departer.Depart(ctx, cmdCtx.World, cmdCtx.Actor.Id()); err != nil {
			return fmt.Errorf("departing %s: %w", cmdCtx.Actor.Name(), err)
		}
		cmdCtx.quit = true
		return nil
	}, nil
}
