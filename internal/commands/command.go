package commands

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"
)

// InputType is the primitive a typed argument is parsed into.
type InputType string

const (
	InputTypeString InputType = "string"
	InputTypeNumber InputType = "number"
)

// InputSpec declares one positional argument of a command.
type InputSpec struct {
	Name     string    `json:"name"`
	Type     InputType `json:"type"`
	Required bool      `json:"required"`
	// Rest captures the remainder of the line, spaces included.
	Rest bool `json:"rest"`
}

func (s InputSpec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch s.Type {
	case InputTypeString, InputTypeNumber:
	case "":
		return fmt.Errorf("input %q: type is required", s.Name)
	default:
		return fmt.Errorf("input %q: unknown type %q", s.Name, s.Type)
	}
	return nil
}

// Command binds a verb to a handler. Stored commands override the built-in
// defaults by name.
type Command struct {
	Handler string         `json:"handler"`
	Aliases []string       `json:"aliases,omitempty"`
	Config  map[string]any `json:"config"`
	Inputs  []InputSpec    `json:"inputs"`
	Usage   string         `json:"usage,omitempty"`

	// Exact commands must be typed in full, e.g. quit.
	Exact bool `json:"exact,omitempty"`
	// Priority breaks ties between abbreviations; higher wins.
	Priority int `json:"priority,omitempty"`
}

func (c *Command) Validate() error {
	el := errors.NewErrorList()

	if c.Handler == "" {
		el.Add(fmt.Errorf("command handler not set"))
	}
	for i, alias := range c.Aliases {
		if alias == "" || strings.ContainsAny(alias, " \t") {
			el.Add(fmt.Errorf("alias %d: must be a single word", i))
		}
	}

	names := make(map[string]bool, len(c.Inputs))
	for i, input := range c.Inputs {
		if err := input.validate(); err != nil {
			el.Add(fmt.Errorf("input %d: %w", i, err))
			continue
		}
		if names[input.Name] {
			el.Add(fmt.Errorf("input %q: declared twice", input.Name))
		}
		names[input.Name] = true
		if input.Rest && i != len(c.Inputs)-1 {
			el.Add(fmt.Errorf("input %q: only the last input can have rest=true", input.Name))
		}
	}

	return el.Err()
}
