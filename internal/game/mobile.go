package game

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"
)

// MobileFlag marks special mobile behaviour.
type MobileFlag string

const (
	MobileFlagSentinel   MobileFlag = "sentinel"
	MobileFlagAggressive MobileFlag = "aggressive"
	MobileFlagStayZone   MobileFlag = "stay_zone"
)

// MobilePrototype defines a type of mobile loaded from a zone document.
// Prototypes are immutable after load; spawning copies them into a Mobile.
type MobilePrototype struct {
	Id          EntityId     `json:"id"`
	Name        string       `json:"name"`
	Keywords    []string     `json:"keywords,omitempty"`
	ShortDesc   string       `json:"short_desc,omitempty"`
	LongDesc    string       `json:"long_desc,omitempty"`
	Description string       `json:"description,omitempty"`
	Level       int          `json:"level,omitempty"`
	MaxHP       int          `json:"max_hp,omitempty"`
	MaxMV       int          `json:"max_mv,omitempty"`
	Flags       []MobileFlag `json:"flags,omitempty"`

	zone EntityId
}

// Zone returns the zone that defined the prototype.
func (m *MobilePrototype) Zone() EntityId {
	return m.zone
}

// Validate checks the prototype's own fields.
func (m *MobilePrototype) Validate() error {
	el := errors.NewErrorList()
	if !m.Id.Valid() {
		el.Add(fmt.Errorf("mobile id is required"))
	} else if m.Id >= InstanceIdBase {
		el.Add(fmt.Errorf("mobile %d: id out of range", m.Id))
	}
	if m.Name == "" {
		el.Add(fmt.Errorf("mobile %d: name is required", m.Id))
	}
	if m.Level < 0 {
		el.Add(fmt.Errorf("mobile %d: level cannot be negative", m.Id))
	}
	return el.Err()
}

// Mobile is a spawned instance of a MobilePrototype. It is owned by the
// world and has no session.
type Mobile struct {
	actorBase

	Prototype EntityId
	// SpawnZone is the zone whose reset created the mobile.
	SpawnZone EntityId
	Keywords  []string
	ShortDesc string
	LongDesc  string
	Flags     []MobileFlag
}

func (m *Mobile) IsMobile() bool { return true }

// HasFlag reports whether the mobile carries a flag.
func (m *Mobile) HasFlag(f MobileFlag) bool {
	for _, mf := range m.Flags {
		if strings.EqualFold(string(mf), string(f)) {
			return true
		}
	}
	return false
}

// MatchName returns true if name matches one of the keywords (case-insensitive).
func (m *Mobile) MatchName(name string) bool {
	for _, kw := range m.Keywords {
		if strings.EqualFold(kw, name) {
			return true
		}
	}
	return strings.EqualFold(m.name, name)
}

func newMobile(id EntityId, proto *MobilePrototype, zone EntityId) *Mobile {
	m := &Mobile{
		actorBase: newActorBase(id, proto.Name, proto.Level),
		Prototype: proto.Id,
		SpawnZone: zone,
		Keywords:  append([]string(nil), proto.Keywords...),
		ShortDesc: proto.ShortDesc,
		LongDesc:  proto.LongDesc,
		Flags:     append([]MobileFlag(nil), proto.Flags...),
	}
	m.stats = Stats{HP: proto.MaxHP, MaxHP: proto.MaxHP, MV: proto.MaxMV, MaxMV: proto.MaxMV}
	return m
}
