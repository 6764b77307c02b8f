package game

import (
	"fmt"
	"slices"
	"strings"
)

// SpawnTarget says where a new instance is placed.
type SpawnTarget interface {
	isSpawnTarget()
}

// RoomPlacement puts the instance on the floor of a room.
type RoomPlacement struct {
	Room EntityId
}

// EquipPlacement puts an object into an actor's equipment slot.
type EquipPlacement struct {
	Actor EntityId
	Slot  string
}

// InventoryPlacement puts an object into an actor's inventory.
type InventoryPlacement struct {
	Actor EntityId
}

func (RoomPlacement) isSpawnTarget()      {}
func (EquipPlacement) isSpawnTarget()     {}
func (InventoryPlacement) isSpawnTarget() {}

// SpawnMobile creates a mobile from a prototype in a room. Room capacity
// is not enforced for spawns. Nothing is allocated when validation fails.
func (w *World) SpawnMobile(protoId EntityId, target SpawnTarget, zoneId EntityId) (*Mobile, error) {
	proto, ok := w.mobileProtos[protoId]
	if !ok {
		return nil, fmt.Errorf("mobile prototype %d: %w", protoId, ErrNotFound)
	}
	rp, ok := target.(RoomPlacement)
	if !ok {
		return nil, fmt.Errorf("mobiles can only be placed in rooms: %w", ErrInvalidSpawn)
	}
	room, ok := w.rooms[rp.Room]
	if !ok {
		return nil, fmt.Errorf("room %d: %w", rp.Room, ErrInvalidSpawn)
	}

	m := newMobile(w.ids.Next(), proto, zoneId)
	w.actors[m.id] = m
	w.mobiles[m.id] = m
	w.liveMobiles[proto.Id]++
	room.addActor(m.id)
	m.setRoom(room.Id)
	return m, nil
}

// SpawnObject creates an object from a prototype at the target. Nothing is
// allocated when validation fails.
func (w *World) SpawnObject(protoId EntityId, target SpawnTarget, zoneId EntityId) (*Object, error) {
	proto, ok := w.objectProtos[protoId]
	if !ok {
		return nil, fmt.Errorf("object prototype %d: %w", protoId, ErrNotFound)
	}

	var loc ObjectLocation
	switch t := target.(type) {
	case RoomPlacement:
		if _, ok := w.rooms[t.Room]; !ok {
			return nil, fmt.Errorf("room %d: %w", t.Room, ErrInvalidSpawn)
		}
		loc = ObjectLocation{Kind: LocationRoom, Room: t.Room}
	case EquipPlacement:
		actor, ok := w.actors[t.Actor]
		if !ok {
			return nil, fmt.Errorf("actor %d: %w", t.Actor, ErrInvalidSpawn)
		}
		if !ValidSlot(t.Slot) {
			return nil, fmt.Errorf("slot %q: %w", t.Slot, ErrInvalidSpawn)
		}
		if actor.Equipment().Slot(t.Slot).Valid() {
			return nil, fmt.Errorf("actor %d slot %q is occupied: %w", t.Actor, t.Slot, ErrInvalidSpawn)
		}
		loc = ObjectLocation{Kind: LocationEquipped, Actor: t.Actor, Slot: strings.ToLower(t.Slot)}
	case InventoryPlacement:
		if _, ok := w.actors[t.Actor]; !ok {
			return nil, fmt.Errorf("actor %d: %w", t.Actor, ErrInvalidSpawn)
		}
		loc = ObjectLocation{Kind: LocationInventory, Actor: t.Actor}
	default:
		return nil, fmt.Errorf("unsupported placement %T: %w", target, ErrInvalidSpawn)
	}

	o := newObject(w.ids.Next(), proto, zoneId)
	if err := w.attach(o, loc); err != nil {
		return nil, err
	}
	w.objects[o.Id] = o
	w.liveObjects[proto.Id]++
	return o, nil
}

// Despawn removes a spawned mobile or object. A mobile's carried objects go
// with it. Players are removed with RemovePlayer instead.
func (w *World) Despawn(id EntityId) error {
	if m, ok := w.mobiles[id]; ok {
		w.despawnCarried(m)
		if r, ok := w.rooms[m.room]; ok {
			r.removeActor(id)
		}
		m.setRoom(InvalidId)
		delete(w.mobiles, id)
		delete(w.actors, id)
		w.decrement(w.liveMobiles, m.Prototype)
		return nil
	}
	if o, ok := w.objects[id]; ok {
		w.detach(o)
		delete(w.objects, id)
		w.decrement(w.liveObjects, o.Prototype)
		return nil
	}
	if _, ok := w.players[id]; ok {
		return fmt.Errorf("actor %d is a player: %w", id, ErrInvalidState)
	}
	return fmt.Errorf("instance %d: %w", id, ErrNotFound)
}

// SpawnedMobile returns a live mobile or nil.
func (w *World) SpawnedMobile(id EntityId) *Mobile {
	return w.mobiles[id]
}

// SpawnedObject returns a live object or nil.
func (w *World) SpawnedObject(id EntityId) *Object {
	return w.objects[id]
}

// CountLiveMobiles returns how many instances of a mobile prototype exist.
func (w *World) CountLiveMobiles(protoId EntityId) int {
	return w.liveMobiles[protoId]
}

// CountLiveObjects returns how many instances of an object prototype exist.
func (w *World) CountLiveObjects(protoId EntityId) int {
	return w.liveObjects[protoId]
}

// MobileIds returns live mobile ids in ascending order.
func (w *World) MobileIds() []EntityId {
	out := make([]EntityId, 0, len(w.mobiles))
	for id := range w.mobiles {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// ObjectIds returns live object ids in ascending order.
func (w *World) ObjectIds() []EntityId {
	out := make([]EntityId, 0, len(w.objects))
	for id := range w.objects {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// MoveObject changes where an existing object is.
func (w *World) MoveObject(objId EntityId, target SpawnTarget) error {
	o, ok := w.objects[objId]
	if !ok {
		return fmt.Errorf("object %d: %w", objId, ErrNotFound)
	}
	var loc ObjectLocation
	switch t := target.(type) {
	case RoomPlacement:
		if _, ok := w.rooms[t.Room]; !ok {
			return fmt.Errorf("room %d: %w", t.Room, ErrNotFound)
		}
		loc = ObjectLocation{Kind: LocationRoom, Room: t.Room}
	case InventoryPlacement:
		if _, ok := w.actors[t.Actor]; !ok {
			return fmt.Errorf("actor %d: %w", t.Actor, ErrNotFound)
		}
		loc = ObjectLocation{Kind: LocationInventory, Actor: t.Actor}
	case EquipPlacement:
		actor, ok := w.actors[t.Actor]
		if !ok {
			return fmt.Errorf("actor %d: %w", t.Actor, ErrNotFound)
		}
		if !ValidSlot(t.Slot) || actor.Equipment().Slot(t.Slot).Valid() {
			return fmt.Errorf("slot %q unavailable: %w", t.Slot, ErrInvalidState)
		}
		loc = ObjectLocation{Kind: LocationEquipped, Actor: t.Actor, Slot: strings.ToLower(t.Slot)}
	default:
		return fmt.Errorf("unsupported placement %T: %w", target, ErrInvalidState)
	}
	w.detach(o)
	return w.attach(o, loc)
}

func (w *World) attach(o *Object, loc ObjectLocation) error {
	switch loc.Kind {
	case LocationRoom:
		w.rooms[loc.Room].addObject(o.Id)
	case LocationEquipped:
		if err := w.actors[loc.Actor].Equipment().equip(loc.Slot, o.Id); err != nil {
			return fmt.Errorf("%w: %w", err, ErrInvalidSpawn)
		}
	case LocationInventory:
		w.actors[loc.Actor].Inventory().add(o.Id)
	}
	o.location = loc
	return nil
}

func (w *World) detach(o *Object) {
	switch o.location.Kind {
	case LocationRoom:
		if r, ok := w.rooms[o.location.Room]; ok {
			r.removeObject(o.Id)
		}
	case LocationEquipped:
		if a, ok := w.actors[o.location.Actor]; ok {
			a.Equipment().remove(o.Id)
		}
	case LocationInventory:
		if a, ok := w.actors[o.location.Actor]; ok {
			a.Inventory().remove(o.Id)
		}
	}
	o.location = ObjectLocation{}
}

// despawnCarried removes everything an actor has equipped or carries.
func (w *World) despawnCarried(a Actor) {
	carried := append(a.Equipment().Items(), a.Inventory().Items()...)
	for _, objId := range carried {
		if o, ok := w.objects[objId]; ok {
			w.detach(o)
			delete(w.objects, objId)
			w.decrement(w.liveObjects, o.Prototype)
		}
	}
}

func (w *World) decrement(counts map[EntityId]int, protoId EntityId) {
	counts[protoId]--
	if counts[protoId] <= 0 {
		delete(counts, protoId)
	}
}

// CountLive returns the live instance count for a prototype id, counting
// both mobile and object instances.
func (w *World) CountLive(protoId EntityId) int {
	return w.liveMobiles[protoId] + w.liveObjects[protoId]
}
