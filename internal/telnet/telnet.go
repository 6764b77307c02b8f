package telnet

// Telnet command bytes.
const (
	SE   byte = 240
	NOP  byte = 241
	AYT  byte = 246
	GA   byte = 249
	SB   byte = 250
	WILL byte = 251
	WONT byte = 252
	DO   byte = 253
	DONT byte = 254
	IAC  byte = 255
)

// Telnet option codes the server cares about.
const (
	OptEcho       byte = 1
	OptTType      byte = 24
	OptNewEnviron byte = 39
	OptMSSP       byte = 70
	OptGMCP       byte = 201
)

// MSSP sub-negotiation markers.
const (
	MSSPVar byte = 1
	MSSPVal byte = 2
)

const (
	// MaxLineLength caps a single line of input. Longer input is truncated.
	MaxLineLength = 512
	// MaxSubnegLength caps a sub-negotiation payload. Longer blocks are discarded.
	MaxSubnegLength = 8192
	// ReadBufferSize is the size of a single socket read.
	ReadBufferSize = 4096
)

// VerbName returns a printable name for a negotiation verb.
func VerbName(verb byte) string {
	switch verb {
	case WILL:
		return "WILL"
	case WONT:
		return "WONT"
	case DO:
		return "DO"
	case DONT:
		return "DONT"
	default:
		return "UNKNOWN"
	}
}

// Negotiate builds a three byte option negotiation sequence.
func Negotiate(verb, opt byte) []byte {
	return []byte{IAC, verb, opt}
}

// GoAhead builds an IAC GA sequence, sent after prompts.
func GoAhead() []byte {
	return []byte{IAC, GA}
}

// Escape doubles every IAC byte in p so it survives as data on the wire.
func Escape(p []byte) []byte {
	n := 0
	for _, b := range p {
		if b == IAC {
			n++
		}
	}
	if n == 0 {
		return p
	}

	out := make([]byte, 0, len(p)+n)
	for _, b := range p {
		out = append(out, b)
		if b == IAC {
			out = append(out, IAC)
		}
	}
	return out
}

// Subnegotiate frames payload as IAC SB opt <payload> IAC SE, escaping IAC bytes.
func Subnegotiate(opt byte, payload []byte) []byte {
	escaped := Escape(payload)
	out := make([]byte, 0, len(escaped)+5)
	out = append(out, IAC, SB, opt)
	out = append(out, escaped...)
	out = append(out, IAC, SE)
	return out
}
