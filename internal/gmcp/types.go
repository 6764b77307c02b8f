package gmcp

import (
	"strings"
)

// CoreHello is exchanged once GMCP is enabled.
type CoreHello struct {
	Client  string `json:"client,omitempty"`
	Version string `json:"version,omitempty"`
}

// RoomExit describes a single exit in Room.Info.
type RoomExit struct {
	ToRoom    uint64 `json:"to_room"`
	IsDoor    bool   `json:"is_door,omitempty"`
	DoorState string `json:"door_state,omitempty"`
}

// RoomInfo describes the room the character is standing in.
type RoomInfo struct {
	ID          uint64              `json:"id"`
	Name        string              `json:"name"`
	Zone        string              `json:"zone"`
	ZoneID      uint64              `json:"zone_id"`
	Type        string              `json:"type"`
	Environment string              `json:"environment"`
	Exits       map[string]RoomExit `json:"Exits"`
}

// CharVitals carries the character's current and maximum pools.
type CharVitals struct {
	HP    int `json:"hp"`
	MaxHP int `json:"maxhp"`
	MV    int `json:"mv"`
	MaxMV int `json:"maxmv"`
}

// CharStatus carries the character's identity and level.
type CharStatus struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
	Room  uint64 `json:"room"`
	State string `json:"state,omitempty"`
}

// ServerSupports lists the modules this server sends, in Core.Supports.Set form.
var ServerSupports = []string{
	"Core 1",
	"Room 1",
	"Char 1",
	"Char.Vitals 1",
	"Char.Status 1",
}

// Supports is the set of modules a client has declared support for.
// Entries are stored both with and without their version suffix.
type Supports map[string]struct{}

// NewSupports creates a support set from Core.Supports.Set entries.
func NewSupports(entries ...string) Supports {
	s := Supports{}
	s.Add(entries...)
	return s
}

// Add records entries of the form "Module.Name 1" or "Module.Name".
func (s Supports) Add(entries ...string) {
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		s[e] = struct{}{}
		s[moduleName(e)] = struct{}{}
	}
}

// Remove drops entries, matching by module name regardless of version.
func (s Supports) Remove(entries ...string) {
	for _, e := range entries {
		name := moduleName(strings.TrimSpace(e))
		for k := range s {
			if moduleName(k) == name {
				delete(s, k)
			}
		}
	}
}

// Set replaces the contents of s with entries.
func (s Supports) Set(entries ...string) {
	for k := range s {
		delete(s, k)
	}
	s.Add(entries...)
}

// Has reports whether module, or any of its parent packages, is supported.
// "Char.Vitals" is supported when either "Char.Vitals" or "Char" was declared.
func (s Supports) Has(module string) bool {
	name := moduleName(module)
	for name != "" {
		if _, ok := s[name]; ok {
			return true
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return false
}

// Modules returns the declared module names without version suffixes.
func (s Supports) Modules() []string {
	var out []string
	for k := range s {
		if !strings.Contains(k, " ") {
			out = append(out, k)
		}
	}
	return out
}

func moduleName(entry string) string {
	name, _, _ := strings.Cut(entry, " ")
	return name
}
