// Package commands is the default command interpreter. Commands are data:
// each names a handler factory and its config, and may be overridden from a
// store of JSON assets.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/pixil98/mudcore/internal/display"
	"github.com/pixil98/mudcore/internal/driver"
	"github.com/pixil98/mudcore/internal/game"
	"github.com/pixil98/mudcore/internal/storage"
)

// CommandContext is what a compiled command runs against. It is only valid
// inside the serializer for the duration of one command.
type CommandContext struct {
	World  *game.World
	Actor  *game.Player
	Name   string
	Config map[string]string // Config strings after template expansion
	Inputs map[string]any

	handler *Handler
	quit    bool
}

// Runtime returns the data message templates are expanded with.
func (c *CommandContext) Runtime() *RuntimeContext {
	text, _ := c.Inputs["text"].(string)
	return &RuntimeContext{
		Actor:  PlayerRefFrom(c.Actor),
		Text:   text,
		Inputs: c.Inputs,
	}
}

// Send delivers text to the acting player.
func (c *CommandContext) Send(text string) {
	c.World.SendText(c.Actor.Id(), text)
}

// CommandFunc is the signature for compiled command functions.
type CommandFunc func(ctx context.Context, cmdCtx *CommandContext) error

// HandlerFactory creates CommandFuncs from command configurations.
type HandlerFactory interface {
	// ValidateConfig validates that the config contains required fields.
	ValidateConfig(config map[string]any) error
	// Create creates a CommandFunc from the validated config.
	Create(config map[string]any) (CommandFunc, error)
}

// Departer takes a quitting player out of the world.
type Departer interface {
	Depart(ctx context.Context, w *game.World, actorId game.EntityId) error
}

// Saver persists a player.
type Saver interface {
	Save(p *game.Player) error
}

// compiledCommand holds a command that's been validated and compiled.
type compiledCommand struct {
	name    string
	cmd     *Command
	cmdFunc CommandFunc
}

// Handler implements driver.Interpreter.
type Handler struct {
	store     storage.Storer[*Command]
	factories map[string]HandlerFactory
	compiled  map[string]*compiledCommand
	// names is sorted by priority, then name, for abbreviation matching.
	names []string

	departer Departer
	saver    Saver
}

type HandlerOpt func(*Handler)

// WithStore overlays command definitions from a store on the defaults.
func WithStore(s storage.Storer[*Command]) HandlerOpt {
	return func(h *Handler) {
		h.store = s
	}
}

func WithDeparter(d Departer) HandlerOpt {
	return func(h *Handler) {
		h.departer = d
	}
}

func WithSaver(s Saver) HandlerOpt {
	return func(h *Handler) {
		h.saver = s
	}
}

// NewHandler registers the built-in handler factories and compiles the
// default commands plus any from the store.
func NewHandler(opts ...HandlerOpt) (*Handler, error) {
	h := &Handler{
		factories: make(map[string]HandlerFactory),
		compiled:  make(map[string]*compiledCommand),
	}
	for _, opt := range opts {
		opt(h)
	}

	// Register built-in handlers
	builtins := map[string]HandlerFactory{
		"message": &MessageHandlerFactory{},
		"move":    &MoveHandlerFactory{},
		"look":    &LookHandlerFactory{},
		"exits":   &ExitsHandlerFactory{},
		"where":   &WhereHandlerFactory{},
		"who":     &WhoHandlerFactory{},
		"path":    &PathHandlerFactory{},
		"title":   &TitleHandlerFactory{},
		"save":    &SaveHandlerFactory{},
		"quit":    &QuitHandlerFactory{},
		"help":    &HelpHandlerFactory{},
	}
	for name, f := range builtins {
		if err := h.RegisterFactory(name, f); err != nil {
			return nil, err
		}
	}

	if err := h.CompileAll(); err != nil {
		return nil, err
	}
	return h, nil
}

// RegisterFactory registers a handler factory by name.
// The name must match the "handler" field in command JSON definitions.
func (h *Handler) RegisterFactory(name string, factory HandlerFactory) error {
	if name == "" {
		return fmt.Errorf("handler name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("handler factory cannot be nil")
	}
	if _, exists := h.factories[name]; exists {
		return fmt.Errorf("handler factory %q already registered", name)
	}
	h.factories[name] = factory
	return nil
}

// CompileAll compiles the default commands and then those from the store,
// which replace defaults of the same name.
func (h *Handler) CompileAll() error {
	defs, err := DefaultCommands()
	if err != nil {
		return err
	}
	if h.store != nil {
		for id, cmd := range h.store.GetAll() {
			defs[id] = cmd
		}
	}

	h.compiled = make(map[string]*compiledCommand, len(defs))
	for id, cmd := range defs {
		err := h.compile(string(id), cmd)
		if err != nil {
			return fmt.Errorf("compiling command %q: %w", id, err)
		}
	}

	h.names = h.names[:0]
	for name := range h.compiled {
		h.names = append(h.names, name)
	}
	slices.SortFunc(h.names, func(a, b string) int {
		pa, pb := h.compiled[a].cmd.Priority, h.compiled[b].cmd.Priority
		if pa != pb {
			return pb - pa
		}
		return strings.Compare(a, b)
	})
	return nil
}

func (h *Handler) compile(id string, cmd *Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	factory, ok := h.factories[cmd.Handler]
	if !ok {
		return fmt.Errorf("unknown handler %q", cmd.Handler)
	}

	if err := factory.ValidateConfig(cmd.Config); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	cmdFunc, err := factory.Create(cmd.Config)
	if err != nil {
		return fmt.Errorf("creating handler: %w", err)
	}

	c := &compiledCommand{name: id, cmd: cmd, cmdFunc: cmdFunc}
	h.compiled[id] = c
	for _, alias := range cmd.Aliases {
		if _, exists := h.compiled[alias]; !exists {
			h.compiled[alias] = c
		}
	}
	return nil
}

// Names returns the primary names of all commands, sorted.
func (h *Handler) Names() []string {
	var names []string
	for name, c := range h.compiled {
		if c.name == name {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// lookup finds a command by exact name or alias, then by abbreviation.
func (h *Handler) lookup(word string) *compiledCommand {
	word = strings.ToLower(word)
	if c, ok := h.compiled[word]; ok {
		return c
	}
	for _, name := range h.names {
		c := h.compiled[name]
		if !c.cmd.Exact && strings.HasPrefix(name, word) {
			return c
		}
	}
	return nil
}

// Execute runs one line of player input. User mistakes are reported to the
// player; anything else is returned in the Result.
func (h *Handler) Execute(ctx context.Context, w *game.World, actor game.Actor, text string) driver.Result {
	p, ok := actor.(*game.Player)
	if !ok {
		return driver.Result{}
	}

	words := splitInput(text)
	if len(words) == 0 {
		h.prompt(w, p)
		return driver.Result{}
	}

	cmdCtx := &CommandContext{World: w, Actor: p, handler: h}
	err := h.exec(ctx, cmdCtx, words[0], words[1:])

	var userErr *UserError
	switch {
	case errors.As(err, &userErr):
		w.SendText(p.Id(), display.Wrap(userErr.Message)+"\n")
	case err != nil:
		slog.ErrorContext(ctx, "command failed", "actor", p.Id(), "command", words[0], "error", err)
		w.SendText(p.Id(), "Something went wrong.\n")
		h.prompt(w, p)
		return driver.Result{Err: err}
	}

	if cmdCtx.quit {
		return driver.Result{Quit: true}
	}
	h.prompt(w, p)
	return driver.Result{}
}

// splitInput breaks a line into words. A leading punctuation shorthand such
// as 'hello is split from the text that follows it.
func splitInput(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if c := text[0]; c == '\'' || c == ':' {
		return append([]string{text[:1]}, strings.Fields(text[1:])...)
	}
	return strings.Fields(text)
}

func (h *Handler) exec(ctx context.Context, cmdCtx *CommandContext, word string, rawArgs []string) error {
	compiled := h.lookup(word)
	if compiled == nil {
		return NewUserError("Huh?!")
	}
	cmdCtx.Name = compiled.name

	// Validate and parse arguments
	inputs, err := h.parseInputs(compiled.cmd.Inputs, rawArgs)
	if err != nil {
		var userErr *UserError
		if compiled.cmd.Usage != "" && errors.As(err, &userErr) {
			return NewUserError(compiled.cmd.Usage)
		}
		return err
	}
	cmdCtx.Inputs = inputs

	// Substitute inputs and actor fields into config strings
	cmdCtx.Config = make(map[string]string, len(compiled.cmd.Config))
	rt := cmdCtx.Runtime()
	for k, v := range compiled.cmd.Config {
		s, ok := v.(string)
		if !ok {
			continue
		}
		expanded, err := expandConfigTemplate(s, rt)
		if err != nil {
			return fmt.Errorf("expanding config %q: %w", k, err)
		}
		cmdCtx.Config[k] = expanded
	}

	return compiled.cmdFunc(ctx, cmdCtx)
}

// parseInputs validates raw string arguments against input specs.
func (h *Handler) parseInputs(specs []InputSpec, rawArgs []string) (map[string]any, error) {
	// If no rest param, check we don't have too many args
	hasRest := len(specs) > 0 && specs[len(specs)-1].Rest
	if !hasRest && len(rawArgs) > len(specs) {
		return nil, Userf("Expected at most %d argument(s), got %d", len(specs), len(rawArgs))
	}

	inputs := make(map[string]any, len(specs))
	argIndex := 0

	for i := range specs {
		spec := &specs[i]

		if argIndex >= len(rawArgs) {
			// No more input - this param must be optional
			if spec.Required {
				return nil, Userf("Missing required parameter: %s", spec.Name)
			}
			continue
		}

		var raw string
		if spec.Rest {
			// Consume all remaining args joined with spaces
			raw = strings.Join(rawArgs[argIndex:], " ")
			argIndex = len(rawArgs)
		} else {
			raw = rawArgs[argIndex]
			argIndex++
		}

		value, err := parseValue(spec.Type, raw)
		if err != nil {
			return nil, err
		}
		inputs[spec.Name] = value
	}

	return inputs, nil
}

// parseValue parses a raw string into the appropriate type.
func parseValue(inputType InputType, raw string) (any, error) {
	switch inputType {
	case InputTypeString:
		return raw, nil

	case InputTypeNumber:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, Userf("%q is not a valid number", raw)
		}
		return n, nil

	default:
		return nil, fmt.Errorf("unknown input type %q", inputType)
	}
}

func (h *Handler) prompt(w *game.World, p *game.Player) {
	st := p.Stats()
	w.SendPrompt(p.Id(), fmt.Sprintf("\n[%d/%dHP %d/%dMV] > ", st.HP, st.MaxHP, st.MV, st.MaxMV))
}
