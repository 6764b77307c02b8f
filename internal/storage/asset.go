package storage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pixil98/go-errors"
)

// CurrentVersion is written into every saved asset.
const CurrentVersion = 1

var identifierPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

type ValidatingSpec interface {
	Validate() error
}

// Identifier is the storage key of an asset and the base name of its file.
type Identifier string

// NewIdentifier derives a key from a display name: lowercased, with runs of
// other characters collapsed to a dash.
func NewIdentifier(name string) Identifier {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return Identifier(strings.TrimSuffix(b.String(), "-"))
}

func (id Identifier) String() string {
	return string(id)
}

func (id Identifier) Validate() error {
	if id == "" {
		return fmt.Errorf("id must be set")
	}
	if !identifierPattern.MatchString(string(id)) {
		return fmt.Errorf("id %q must be lowercase alphanumeric or dash", string(id))
	}
	return nil
}

type Asset[T ValidatingSpec] struct {
	Version    uint       `json:"version"`
	Identifier Identifier `json:"id"`
	Spec       T          `json:"spec"`
}

func (a *Asset[T]) Id() Identifier {
	return a.Identifier
}

func (a *Asset[T]) Validate() error {
	el := errors.NewErrorList()

	if a.Version == 0 {
		el.Add(fmt.Errorf("version must be set"))
	}
	if a.Version > CurrentVersion {
		el.Add(fmt.Errorf("version %d is newer than supported version %d", a.Version, CurrentVersion))
	}

	el.Add(a.Identifier.Validate())
	el.Add(a.Spec.Validate())

	return el.Err()
}
