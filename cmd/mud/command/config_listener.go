package command

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	merrors "github.com/pixil98/go-errors"
	"github.com/pixil98/go-service"
	"golang.org/x/crypto/ssh"

	"github.com/pixil98/mudcore/internal/listener"
)

type ListenerType int

const (
	ListenerTypeTelnet ListenerType = iota
	ListenerTypeTLS
	ListenerTypeSSH
)

func (lt *ListenerType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "telnet":
		*lt = ListenerTypeTelnet
	case "tls":
		*lt = ListenerTypeTLS
	case "ssh":
		*lt = ListenerTypeSSH
	default:
		return fmt.Errorf("unknown listener type: %s", text)
	}
	return nil
}

type ListenerConfig struct {
	Protocol    ListenerType `json:"protocol"`
	Port        uint16       `json:"port"`
	HostKeyPath string       `json:"host_key_path,omitempty"`
	CertFile    string       `json:"cert_file,omitempty"`
	KeyFile     string       `json:"key_file,omitempty"`
}

func (cl *ListenerConfig) validate() error {
	el := merrors.NewErrorList()

	if cl.Port == 0 {
		el.Add(fmt.Errorf("port must be set to a positive integer"))
	}
	if cl.Protocol == ListenerTypeTLS {
		if cl.CertFile == "" {
			el.Add(fmt.Errorf("cert_file is required for tls"))
		}
		if cl.KeyFile == "" {
			el.Add(fmt.Errorf("key_file is required for tls"))
		}
	}

	return el.Err()
}

func (cl *ListenerConfig) BuildListener(cm *listener.ConnectionManager) (service.Worker, error) {
	switch cl.Protocol {
	case ListenerTypeTelnet:
		return listener.NewTelnetListener(cl.Port, cm), nil
	case ListenerTypeTLS:
		cert, err := tls.LoadX509KeyPair(cl.CertFile, cl.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading tls certificate: %w", err)
		}
		cfg := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		return listener.NewTelnetListener(cl.Port, cm, listener.WithTLS(cfg)), nil
	case ListenerTypeSSH:
		hostKey, err := cl.loadOrGenerateHostKey()
		if err != nil {
			return nil, fmt.Errorf("setting up ssh host key: %w", err)
		}
		return listener.NewSshListener(cl.Port, cm, hostKey), nil
	default:
		return nil, fmt.Errorf("unknown listener type: %v", cl.Protocol)
	}
}

// loadOrGenerateHostKey reads the ssh host key. A configured path that does
// not exist yet is filled with a fresh ed25519 key so the fingerprint stays
// stable across restarts. Without a path the key lives only in memory.
func (cl *ListenerConfig) loadOrGenerateHostKey() (ssh.Signer, error) {
	if cl.HostKeyPath != "" {
		keyBytes, err := os.ReadFile(cl.HostKeyPath)
		switch {
		case err == nil:
			signer, err := ssh.ParsePrivateKey(keyBytes)
			if err != nil {
				return nil, fmt.Errorf("parsing host key %q: %w", cl.HostKeyPath, err)
			}
			return signer, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("reading host key %q: %w", cl.HostKeyPath, err)
		}
	}

	_, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating host key: %w", err)
	}
	signer, err := ssh.NewSignerFromKey(privKey)
	if err != nil {
		return nil, fmt.Errorf("creating signer from host key: %w", err)
	}

	if cl.HostKeyPath == "" {
		slog.Warn("no host_key_path configured for ssh listener, using an ephemeral key")
		return signer, nil
	}

	block, err := ssh.MarshalPrivateKey(privKey, "mudcore host key")
	if err != nil {
		return nil, fmt.Errorf("encoding host key: %w", err)
	}
	if err := os.WriteFile(cl.HostKeyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, fmt.Errorf("writing host key %q: %w", cl.HostKeyPath, err)
	}
	slog.Info("generated ssh host key", "path", cl.HostKeyPath)
	return signer, nil
}
