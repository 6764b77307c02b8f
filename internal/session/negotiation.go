package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pixil98/mudcore/internal/driver"
	"github.com/pixil98/mudcore/internal/gmcp"
	"github.com/pixil98/mudcore/internal/telnet"
)

func (s *Session) handleNegotiation(ctx context.Context, verb, opt byte) {
	slog.DebugContext(ctx, "telnet negotiation", append(s.logAttrs(), "verb", telnet.VerbName(verb), "option", opt)...)

	switch opt {
	case telnet.OptGMCP:
		switch verb {
		case telnet.WILL, telnet.DO:
			s.enableGMCP(verb == telnet.WILL)
		case telnet.WONT, telnet.DONT:
			s.mu.Lock()
			s.gmcpOn = false
			s.mu.Unlock()
		}
		return
	case telnet.OptMSSP:
		if verb == telnet.DO {
			s.sendMSSP()
		}
		return
	case telnet.OptEcho:
		// Echo is only ever offered by us while reading a password.
		return
	}

	switch verb {
	case telnet.WILL:
		s.push(telnet.Negotiate(telnet.DONT, opt))
	case telnet.DO:
		s.push(telnet.Negotiate(telnet.WONT, opt))
	}
}

// enableGMCP turns GMCP on and greets the client once. A client WILL is
// answered with DO; a DO is the client accepting our offer.
func (s *Session) enableGMCP(answer bool) {
	s.mu.Lock()
	wasOn := s.gmcpOn
	s.gmcpOn = true
	greet := !s.greeted
	s.greeted = true
	s.mu.Unlock()

	if answer && !wasOn {
		s.push(telnet.Negotiate(telnet.DO, telnet.OptGMCP))
	}
	if greet {
		s.SendGMCP(gmcp.ModuleCoreHello, gmcp.CoreHello{Client: s.reg.name, Version: s.reg.version})
		s.SendGMCP(gmcp.ModuleCoreSupportsSet, gmcp.ServerSupports)
	}
}

func (s *Session) handleSubnegotiation(ctx context.Context, opt byte, payload []byte) {
	if opt != telnet.OptGMCP {
		return
	}
	msg, err := gmcp.Decode(payload)
	if err != nil {
		slog.WarnContext(ctx, "dropping gmcp message", append(s.logAttrs(), "error", err)...)
		return
	}

	switch msg.Module {
	case gmcp.ModuleCoreHello:
		var hello gmcp.CoreHello
		if err := msg.Unmarshal(&hello); err != nil {
			slog.WarnContext(ctx, "dropping gmcp message", append(s.logAttrs(), "error", err)...)
			return
		}
		s.mu.Lock()
		s.client = hello
		s.mu.Unlock()
		slog.InfoContext(ctx, "gmcp client", append(s.logAttrs(), "client", hello.Client, "version", hello.Version)...)

	case gmcp.ModuleCoreSupportsSet, gmcp.ModuleCoreSupportsAdd, gmcp.ModuleCoreSupportsRemove:
		var entries []string
		if err := msg.Unmarshal(&entries); err != nil {
			slog.WarnContext(ctx, "dropping gmcp message", append(s.logAttrs(), "error", err)...)
			return
		}
		s.mu.Lock()
		switch msg.Module {
		case gmcp.ModuleCoreSupportsSet:
			s.supports.Set(entries...)
		case gmcp.ModuleCoreSupportsAdd:
			s.supports.Add(entries...)
		case gmcp.ModuleCoreSupportsRemove:
			s.supports.Remove(entries...)
		}
		s.mu.Unlock()

	case gmcp.ModuleCorePing:
		s.SendGMCP(gmcp.ModuleCorePing, nil)

	default:
		slog.DebugContext(ctx, "unhandled gmcp module", append(s.logAttrs(), "module", msg.Module)...)
	}
}

func isCoreModule(module string) bool {
	return module == "Core" || strings.HasPrefix(module, "Core.")
}

// sendMSSP answers a DO MSSP with the server status table.
func (s *Session) sendMSSP() {
	var payload []byte
	for _, kv := range s.reg.msspTable() {
		payload = append(payload, telnet.MSSPVar)
		payload = append(payload, kv[0]...)
		payload = append(payload, telnet.MSSPVal)
		payload = append(payload, kv[1]...)
	}
	s.push(telnet.Subnegotiate(telnet.OptMSSP, payload))
}

func (r *Registry) msspTable() [][2]string {
	return [][2]string{
		{"NAME", r.name},
		{"PLAYERS", strconv.Itoa(r.Playing())},
		{"UPTIME", strconv.FormatInt(r.started.Unix(), 10)},
	}
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, driver.ErrRateLimited):
		return "Slow down!\n"
	case errors.Is(err, driver.ErrQueueFull):
		return "The world is busy, try again in a moment.\n"
	case errors.Is(err, driver.ErrStopped):
		return "The world is shutting down.\n"
	default:
		return "Your command could not be processed.\n"
	}
}
