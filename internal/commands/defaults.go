package commands

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/pixil98/mudcore/internal/storage"
)

//go:embed defaults.json
var defaultCommands []byte

// DefaultCommands returns a fresh copy of the built-in command definitions.
func DefaultCommands() (map[storage.Identifier]*Command, error) {
	defs := map[storage.Identifier]*Command{}
	if err := json.Unmarshal(defaultCommands, &defs); err != nil {
		return nil, fmt.Errorf("parsing default commands: %w", err)
	}
	return defs, nil
}
