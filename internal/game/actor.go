package game

import (
	"fmt"
	"slices"
	"strings"
)

// ImmortalLevel is the lowest level allowed into god rooms.
const ImmortalLevel = 100

// EquipSlots lists the valid equipment slot names.
var EquipSlots = []string{
	"light", "finger_r", "finger_l", "neck_1", "neck_2", "body", "head",
	"legs", "feet", "hands", "arms", "shield", "about", "waist",
	"wrist_r", "wrist_l", "wield", "hold",
}

// ValidSlot reports whether slot names a known equipment slot.
func ValidSlot(slot string) bool {
	return slices.Contains(EquipSlots, strings.ToLower(slot))
}

// Stats holds an actor's resource pools.
type Stats struct {
	HP    int `json:"hp"`
	MaxHP int `json:"max_hp"`
	MV    int `json:"mv"`
	MaxMV int `json:"max_mv"`
}

// Actor is anything that occupies a room: a Player or a Mobile.
// The room is changed only through World movement operations.
type Actor interface {
	Id() EntityId
	Name() string
	Room() EntityId
	Level() int
	IsMobile() bool
	Stats() *Stats
	Equipment() *Equipment
	Inventory() *Inventory

	setRoom(EntityId)
}

type actorBase struct {
	id        EntityId
	name      string
	room      EntityId
	level     int
	stats     Stats
	equipment *Equipment
	inventory *Inventory
}

func newActorBase(id EntityId, name string, level int) actorBase {
	return actorBase{
		id:        id,
		name:      name,
		level:     level,
		equipment: NewEquipment(),
		inventory: NewInventory(),
	}
}

func (a *actorBase) Id() EntityId          { return a.id }
func (a *actorBase) Name() string          { return a.name }
func (a *actorBase) Room() EntityId        { return a.room }
func (a *actorBase) Level() int            { return a.level }
func (a *actorBase) Stats() *Stats         { return &a.stats }
func (a *actorBase) Equipment() *Equipment { return a.equipment }
func (a *actorBase) Inventory() *Inventory { return a.inventory }
func (a *actorBase) setRoom(room EntityId) { a.room = room }
func (a *actorBase) SetLevel(level int)    { a.level = level }
func (a *actorBase) SetStats(s Stats)      { a.stats = s }

// Player is an actor controlled through a session.
type Player struct {
	actorBase

	// Account is the storage key of the character record.
	Account string
	Title   string
}

func (p *Player) IsMobile() bool { return false }

// Inventory holds ids of object instances carried by an actor, in pickup order.
type Inventory struct {
	items []EntityId
}

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{}
}

// Items returns a copy of the carried ids.
func (inv *Inventory) Items() []EntityId {
	return slices.Clone(inv.items)
}

// Contains reports whether the instance is carried.
func (inv *Inventory) Contains(id EntityId) bool {
	return slices.Contains(inv.items, id)
}

// Len returns the number of carried items.
func (inv *Inventory) Len() int {
	return len(inv.items)
}

func (inv *Inventory) add(id EntityId) {
	inv.items = append(inv.items, id)
}

func (inv *Inventory) remove(id EntityId) bool {
	i := slices.Index(inv.items, id)
	if i < 0 {
		return false
	}
	inv.items = slices.Delete(inv.items, i, i+1)
	return true
}

// Equipment maps slot names to the ids of equipped object instances.
type Equipment struct {
	slots map[string]EntityId
}

// NewEquipment creates an empty equipment set.
func NewEquipment() *Equipment {
	return &Equipment{slots: make(map[string]EntityId)}
}

// Slot returns the id in a slot, or InvalidId when empty.
func (eq *Equipment) Slot(slot string) EntityId {
	return eq.slots[strings.ToLower(slot)]
}

// Slots returns a copy of the slot map.
func (eq *Equipment) Slots() map[string]EntityId {
	out := make(map[string]EntityId, len(eq.slots))
	for k, v := range eq.slots {
		out[k] = v
	}
	return out
}

// Items returns the equipped ids in ascending order.
func (eq *Equipment) Items() []EntityId {
	out := make([]EntityId, 0, len(eq.slots))
	for _, id := range eq.slots {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of occupied slots.
func (eq *Equipment) Len() int {
	return len(eq.slots)
}

func (eq *Equipment) equip(slot string, id EntityId) error {
	slot = strings.ToLower(slot)
	if _, occupied := eq.slots[slot]; occupied {
		return fmt.Errorf("slot %q is already occupied", slot)
	}
	eq.slots[slot] = id
	return nil
}

func (eq *Equipment) remove(id EntityId) bool {
	for slot, obj := range eq.slots {
		if obj == id {
			delete(eq.slots, slot)
			return true
		}
	}
	return false
}
