package session

// State is a session's position in its connection lifecycle.
type State int

const (
	StateConnected State = iota
	StateLogin
	StatePlaying
	StateAFK
	StateLinkdead
	StateReconnecting
	StateDisconnecting
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateLogin:
		return "login"
	case StatePlaying:
		return "playing"
	case StateAFK:
		return "afk"
	case StateLinkdead:
		return "linkdead"
	case StateReconnecting:
		return "reconnecting"
	case StateDisconnecting:
		return "disconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// InGame reports whether an actor is attached and taking input.
func (s State) InGame() bool {
	return s == StatePlaying || s == StateAFK
}
