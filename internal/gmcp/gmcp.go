// Package gmcp encodes and decodes the Generic MUD Communication Protocol,
// JSON messages carried in telnet sub-negotiation for option 201.
package gmcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pixil98/mudcore/internal/telnet"
)

// ErrParse is returned for payloads that are not valid GMCP messages.
var ErrParse = errors.New("gmcp parse error")

// Module names used by the core.
const (
	ModuleCoreHello          = "Core.Hello"
	ModuleCoreSupportsSet    = "Core.Supports.Set"
	ModuleCoreSupportsAdd    = "Core.Supports.Add"
	ModuleCoreSupportsRemove = "Core.Supports.Remove"
	ModuleCorePing           = "Core.Ping"
	ModuleRoomInfo           = "Room.Info"
	ModuleCharVitals         = "Char.Vitals"
	ModuleCharStatus         = "Char.Status"
)

// Message is a decoded GMCP message. Data is nil when the message carried no body.
type Message struct {
	Module string
	Data   json.RawMessage
}

// Unmarshal decodes the message body into v.
func (m Message) Unmarshal(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%w: %s has no data", ErrParse, m.Module)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrParse, m.Module, err)
	}
	return nil
}

// Encode marshals v and returns the wire payload "Module.Name <json>".
// A nil v produces a bare module name.
func Encode(module string, v any) ([]byte, error) {
	if err := validateModule(module); err != nil {
		return nil, err
	}
	if v == nil {
		return []byte(module), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", module, err)
	}

	out := make([]byte, 0, len(module)+1+len(data))
	out = append(out, module...)
	out = append(out, ' ')
	out = append(out, data...)
	return out, nil
}

// Frame encodes a message and wraps it in a telnet sub-negotiation block.
func Frame(module string, v any) ([]byte, error) {
	payload, err := Encode(module, v)
	if err != nil {
		return nil, err
	}
	return telnet.Subnegotiate(telnet.OptGMCP, payload), nil
}

// Decode parses a sub-negotiation payload. Both the standard
// "Module.Name <json>" form and the object form {"Module.Name": <json>} are
// accepted.
func Decode(payload []byte) (Message, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Message{}, fmt.Errorf("%w: empty payload", ErrParse)
	}

	if trimmed[0] == '{' {
		return decodeObject(trimmed)
	}

	module, rest, _ := bytes.Cut(trimmed, []byte{' '})
	if err := validateModule(string(module)); err != nil {
		return Message{}, err
	}

	rest = bytes.TrimSpace(rest)
	if len(rest) == 0 {
		return Message{Module: string(module)}, nil
	}
	if !json.Valid(rest) {
		return Message{}, fmt.Errorf("%w: %s: invalid json", ErrParse, module)
	}

	data := make(json.RawMessage, len(rest))
	copy(data, rest)
	return Message{Module: string(module), Data: data}, nil
}

func decodeObject(payload []byte) (Message, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if len(obj) != 1 {
		return Message{}, fmt.Errorf("%w: expected exactly one module, got %d", ErrParse, len(obj))
	}

	for module, data := range obj {
		if err := validateModule(module); err != nil {
			return Message{}, err
		}
		if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			data = nil
		}
		return Message{Module: module, Data: data}, nil
	}
	return Message{}, nil
}

func validateModule(module string) error {
	if module == "" {
		return fmt.Errorf("%w: module name is required", ErrParse)
	}
	if strings.ContainsAny(module, " \t\r\n{}\"") {
		return fmt.Errorf("%w: invalid module name %q", ErrParse, module)
	}
	return nil
}
