package game

import "encoding/json"

// Output is a message bound for one player's session. Text is written as is;
// Module and Data form a GMCP message that is only delivered to clients
// supporting the module. Disconnect asks the session to close once the text
// has been written.
type Output struct {
	Text       string          `json:"text,omitempty"`
	Prompt     bool            `json:"prompt,omitempty"`
	Module     string          `json:"module,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Disconnect bool            `json:"disconnect,omitempty"`
}

// Publisher delivers output to the session attached to a player.
type Publisher interface {
	Publish(actorId EntityId, out Output) error
}
