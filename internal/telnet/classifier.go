package telnet

// EventKind identifies what the classifier found in the byte stream.
type EventKind int

const (
	EventLine EventKind = iota
	EventNegotiation
	EventSubnegotiation
	EventCommand
)

func (k EventKind) String() string {
	switch k {
	case EventLine:
		return "line"
	case EventNegotiation:
		return "negotiation"
	case EventSubnegotiation:
		return "subnegotiation"
	case EventCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Event is a single item produced by the classifier, in stream order.
type Event struct {
	Kind EventKind

	// Line holds the text of an EventLine, without terminator.
	Line string
	// Truncated is set when the line exceeded MaxLineLength.
	Truncated bool

	// Verb is the negotiation verb for EventNegotiation or the command byte
	// for EventCommand.
	Verb byte
	// Option is the option code for negotiation and sub-negotiation events.
	Option byte
	// Payload is the unescaped sub-negotiation data.
	Payload []byte
}

type classifierState int

const (
	stateData classifierState = iota
	stateIAC
	stateVerb
	stateSBOption
	stateSB
	stateSBIAC
)

// Classifier splits a telnet byte stream into text lines and protocol events.
// It keeps state between calls to Feed so input may be split at any byte.
// A Classifier is not safe for concurrent use.
type Classifier struct {
	state classifierState

	line      []byte
	truncated bool

	verb      byte
	option    byte
	sub       []byte
	discardSB bool
}

// NewClassifier creates a classifier in the plain text state.
func NewClassifier() *Classifier {
	return &Classifier{
		line: make([]byte, 0, 128),
	}
}

// Feed classifies p and returns the events completed by it, in order.
func (c *Classifier) Feed(p []byte) []Event {
	var events []Event
	for _, b := range p {
		if ev, ok := c.step(b); ok {
			events = append(events, ev)
		}
	}
	return events
}

// Reset discards any partially collected line or sub-negotiation.
func (c *Classifier) Reset() {
	c.state = stateData
	c.line = c.line[:0]
	c.truncated = false
	c.sub = nil
	c.discardSB = false
}

func (c *Classifier) step(b byte) (Event, bool) {
	switch c.state {
	case stateData:
		return c.data(b)

	case stateIAC:
		switch b {
		case WILL, WONT, DO, DONT:
			c.verb = b
			c.state = stateVerb
		case SB:
			c.state = stateSBOption
		case IAC:
			// Escaped 255 in text is not printable and is dropped.
			c.state = stateData
		case SE:
			// Stray SE outside a block.
			c.state = stateData
		default:
			c.state = stateData
			return Event{Kind: EventCommand, Verb: b}, true
		}

	case stateVerb:
		c.state = stateData
		return Event{Kind: EventNegotiation, Verb: c.verb, Option: b}, true

	case stateSBOption:
		c.option = b
		c.sub = c.sub[:0]
		c.discardSB = false
		c.state = stateSB

	case stateSB:
		if b == IAC {
			c.state = stateSBIAC
			return Event{}, false
		}
		c.appendSub(b)

	case stateSBIAC:
		switch b {
		case IAC:
			c.appendSub(IAC)
			c.state = stateSB
		case SE:
			c.state = stateData
			if c.discardSB {
				c.discardSB = false
				c.sub = c.sub[:0]
				return Event{}, false
			}
			payload := make([]byte, len(c.sub))
			copy(payload, c.sub)
			c.sub = c.sub[:0]
			return Event{Kind: EventSubnegotiation, Option: c.option, Payload: payload}, true
		default:
			// Unexpected command inside a block; ignore the pair.
			c.state = stateSB
		}
	}

	return Event{}, false
}

func (c *Classifier) data(b byte) (Event, bool) {
	switch {
	case b == IAC:
		c.state = stateIAC
	case b == '\n':
		ev := Event{Kind: EventLine, Line: string(c.line), Truncated: c.truncated}
		c.line = c.line[:0]
		c.truncated = false
		return ev, true
	case b == '\r':
	case b >= 32 && b <= 126:
		if len(c.line) >= MaxLineLength {
			c.truncated = true
			return Event{}, false
		}
		c.line = append(c.line, b)
	}
	return Event{}, false
}

func (c *Classifier) appendSub(b byte) {
	if c.discardSB {
		return
	}
	if len(c.sub) >= MaxSubnegLength {
		c.discardSB = true
		c.sub = c.sub[:0]
		return
	}
	c.sub = append(c.sub, b)
}
