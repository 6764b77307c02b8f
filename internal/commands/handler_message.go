package commands

import (
	"context"
	"fmt"

	"github.com/pixil98/mudcore/internal/display"
)

// MessageHandlerFactory creates handlers that send templated text.
// Config:
//   - actor_message (optional): template sent to the actor
//   - room_message (optional): template sent to everyone else in the room
//   - world_message (optional): template sent to every other player
type MessageHandlerFactory struct{}

var messageKeys = []string{"actor_message", "room_message", "world_message"}

func (f *MessageHandlerFactory) ValidateConfig(config map[string]any) error {
	found := false
	for _, key := range messageKeys {
		s, _ := config[key].(string)
		if s == "" {
			continue
		}
		found = true
		if _, err := ParseTemplate(s); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if !found {
		return fmt.Errorf("at least one of %v is required", messageKeys)
	}
	return nil
}

func (f *MessageHandlerFactory) Create(map[string]any) (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		w, p := cmdCtx.World, cmdCtx.Actor

		if msg := cmdCtx.Config["actor_message"]; msg != "" {
			cmdCtx.Send(display.Wrap(msg) + "\n")
		}
		if msg := cmdCtx.Config["room_message"]; msg != "" {
			w.SendRoom(p.Room(), display.Wrap(msg)+"\n", p.Id())
		}
		if msg := cmdCtx.Config["world_message"]; msg != "" {
			for _, other := range w.Players() {
				if other.Id() != p.Id() {
					w.SendText(other.Id(), display.Wrap(msg)+"\n")
				}
			}
		}
		return nil
	}, nil
}
