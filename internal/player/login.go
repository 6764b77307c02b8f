package player

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pixil98/mudcore/internal/session"
	"github.com/pixil98/mudcore/internal/storage"
)

const (
	maxPasswordTries = 3

	promptName = "By what name do you wish to be known? "
)

type loginStep int

const (
	stepName loginStep = iota
	stepConfirmName
	stepPassword
	stepNewPassword
	stepConfirmPassword
	stepEntering
)

// loginState is the progress of one session through the login prompts.
type loginState struct {
	step     loginStep
	name     string
	tries    int
	password string
	char     *Character
}

func (m *Manager) Begin(ctx context.Context, s *session.Session) {
	m.mu.Lock()
	m.logins[s] = &loginState{step: stepName}
	m.mu.Unlock()

	s.Send(m.greeting)
	s.SendPrompt(promptName)
}

func (m *Manager) HandleLine(ctx context.Context, s *session.Session, line string) {
	m.mu.Lock()
	st, ok := m.logins[s]
	m.mu.Unlock()
	if !ok {
		return
	}

	line = strings.TrimSpace(line)
	switch st.step {
	case stepName:
		m.askedName(s, st, line)
	case stepConfirmName:
		m.confirmedName(s, st, line)
	case stepPassword:
		m.enteredPassword(ctx, s, st, line)
	case stepNewPassword:
		m.choseNewPassword(s, st, line)
	case stepConfirmPassword:
		m.confirmedNewPassword(ctx, s, st, line)
	case stepEntering:
		// Input while the login unit is queued is ignored.
	}
}

func (m *Manager) askedName(s *session.Session, st *loginState, line string) {
	name, err := NormalizeName(line)
	if err != nil {
		s.Send(fmt.Sprintf("Invalid name, %s.\n", err))
		s.SendPrompt(promptName)
		return
	}
	st.name = name

	char, ok := m.saves.latest(storage.NewIdentifier(name))
	if !ok {
		st.step = stepConfirmName
		s.SendPrompt(fmt.Sprintf("Did I get that right, %s (Y/N)? ", name))
		return
	}
	st.char = char
	st.step = stepPassword
	s.SetEcho(false)
	s.SendPrompt("Password: ")
}

func (m *Manager) confirmedName(s *session.Session, st *loginState, line string) {
	switch strings.ToLower(line) {
	case "y", "yes":
		st.step = stepNewPassword
		s.SetEcho(false)
		s.SendPrompt(fmt.Sprintf("Give me a password for %s: ", st.name))
	case "n", "no":
		st.step = stepName
		st.name = ""
		s.SendPrompt("Okay, what IS it, then? ")
	default:
		s.SendPrompt("Please type Yes or No: ")
	}
}

func (m *Manager) enteredPassword(ctx context.Context, s *session.Session, st *loginState, line string) {
	if !st.char.CheckPassword(line) {
		st.tries++
		if st.tries >= maxPasswordTries {
			slog.WarnContext(ctx, "too many password attempts", "name", st.name, "remote", s.RemoteAddr())
			s.SetEcho(true)
			m.forget(s)
			s.Disconnect("too many password attempts")
			return
		}
		s.Send("\nWrong password.\n")
		s.SendPrompt("Password: ")
		return
	}
	s.SetEcho(true)
	m.enter(ctx, s, st)
}

func (m *Manager) choseNewPassword(s *session.Session, st *loginState, line string) {
	if len(line) < MinPasswordLength || strings.EqualFold(line, st.name) {
		s.Send("\nIllegal password.\n")
		s.SendPrompt("Password: ")
		return
	}
	st.password = line
	st.step = stepConfirmPassword
	s.Send("\n")
	s.SendPrompt("Please retype password: ")
}

func (m *Manager) confirmedNewPassword(ctx context.Context, s *session.Session, st *loginState, line string) {
	if line != st.password {
		st.password = ""
		st.step = stepNewPassword
		s.Send("\nPasswords don't match... start over.\n")
		s.SendPrompt("Password: ")
		return
	}
	s.SetEcho(true)

	char, err := NewCharacter(st.name, st.password, m.bcryptCost, m.now())
	st.password = ""
	if err != nil {
		slog.ErrorContext(ctx, "creating character", "name", st.name, "error", err)
		m.forget(s)
		s.Disconnect("internal error")
		return
	}
	if err := m.chars.Save(storage.NewIdentifier(st.name), char); err != nil {
		slog.ErrorContext(ctx, "saving new character", "name", st.name, "error", err)
		m.forget(s)
		s.Disconnect("internal error")
		return
	}
	slog.InfoContext(ctx, "character created", "name", st.name, "remote", s.RemoteAddr())
	st.char = char
	m.enter(ctx, s, st)
}

// forget drops the login progress of a session.
func (m *Manager) forget(s *session.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.logins, s)
}

// prune drops progress for sessions that went away mid-login.
func (m *Manager) prune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for s := range m.logins {
		if s.State() == session.StateDisconnected || s.State() == session.StateDisconnecting {
			delete(m.logins, s)
		}
	}
}
