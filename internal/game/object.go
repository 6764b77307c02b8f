package game

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"
)

// ObjectPrototype defines a type of object loaded from a zone document.
type ObjectPrototype struct {
	Id        EntityId `json:"id"`
	Name      string   `json:"name"`
	Keywords  []string `json:"keywords,omitempty"`
	ShortDesc string   `json:"short_desc,omitempty"`
	LongDesc  string   `json:"long_desc,omitempty"`
	Type      string   `json:"type,omitempty"`
	WearSlots []string `json:"wear_slots,omitempty"`
	Weight    int      `json:"weight,omitempty"`
	Value     int      `json:"value,omitempty"`
	Flags     []string `json:"flags,omitempty"`

	zone EntityId
}

// Zone returns the zone that defined the prototype.
func (o *ObjectPrototype) Zone() EntityId {
	return o.zone
}

// Validate checks the prototype's own fields.
func (o *ObjectPrototype) Validate() error {
	el := errors.NewErrorList()
	if !o.Id.Valid() {
		el.Add(fmt.Errorf("object id is required"))
	} else if o.Id >= InstanceIdBase {
		el.Add(fmt.Errorf("object %d: id out of range", o.Id))
	}
	if o.Name == "" {
		el.Add(fmt.Errorf("object %d: name is required", o.Id))
	}
	for _, s := range o.WearSlots {
		if !ValidSlot(s) {
			el.Add(fmt.Errorf("object %d: unknown wear slot %q", o.Id, s))
		}
	}
	return el.Err()
}

// LocationKind says where an object instance currently is.
type LocationKind int

const (
	LocationNowhere LocationKind = iota
	LocationRoom
	LocationEquipped
	LocationInventory
)

// ObjectLocation records the single place an object instance lives.
type ObjectLocation struct {
	Kind  LocationKind
	Room  EntityId
	Actor EntityId
	Slot  string
}

// Object is a spawned instance of an ObjectPrototype.
type Object struct {
	Id        EntityId
	Prototype EntityId
	// SpawnZone is the zone whose reset created the object.
	SpawnZone EntityId
	Name      string
	Keywords  []string
	ShortDesc string
	LongDesc  string
	Type      string
	Weight    int
	Value     int

	location ObjectLocation
}

// Location returns where the object is.
func (o *Object) Location() ObjectLocation {
	return o.location
}

// MatchName returns true if name matches one of the keywords (case-insensitive).
func (o *Object) MatchName(name string) bool {
	for _, kw := range o.Keywords {
		if strings.EqualFold(kw, name) {
			return true
		}
	}
	return strings.EqualFold(o.Name, name)
}

func newObject(id EntityId, proto *ObjectPrototype, zone EntityId) *Object {
	return &Object{
		Id:        id,
		Prototype: proto.Id,
		SpawnZone: zone,
		Name:      proto.Name,
		Keywords:  append([]string(nil), proto.Keywords...),
		ShortDesc: proto.ShortDesc,
		LongDesc:  proto.LongDesc,
		Type:      proto.Type,
		Weight:    proto.Weight,
		Value:     proto.Value,
	}
}
