package game

import (
	"slices"
	"strings"
)

// RoomFlag marks special room behaviour.
type RoomFlag string

const (
	RoomFlagDark     RoomFlag = "dark"
	RoomFlagNoMob    RoomFlag = "nomob"
	RoomFlagIndoors  RoomFlag = "indoors"
	RoomFlagPeaceful RoomFlag = "peaceful"
	RoomFlagTunnel   RoomFlag = "tunnel"
	RoomFlagPrivate  RoomFlag = "private"
	RoomFlagGodroom  RoomFlag = "godroom"
	RoomFlagAtrium   RoomFlag = "atrium"
	RoomFlagNoRecall RoomFlag = "norecall"
)

// Room capacities by flag.
const (
	CapacityTunnel  = 1
	CapacityPrivate = 2
	CapacityAtrium  = 10
	CapacityDefault = 100
)

// Exit defines a destination for movement from a room.
type Exit struct {
	ToRoom      EntityId
	Keyword     string
	Description string
	HasDoor     bool
	IsClosed    bool
	IsLocked    bool
	IsHidden    bool
	Key         EntityId
}

// Passable reports whether the exit can be walked through. Closed doors block.
func (e *Exit) Passable() bool {
	return !(e.HasDoor && e.IsClosed)
}

// DoorState returns "open", "closed" or "locked", or "" when there is no door.
func (e *Exit) DoorState() string {
	switch {
	case !e.HasDoor:
		return ""
	case e.IsLocked:
		return "locked"
	case e.IsClosed:
		return "closed"
	default:
		return "open"
	}
}

// Room is a location in the world. Its actor set is the authority for
// where an actor is; actors only hold the id of their room.
type Room struct {
	Id          EntityId
	Name        string
	Description string
	Sector      Sector
	Keywords    []string
	Exits       map[Direction]*Exit

	flags map[RoomFlag]struct{}
	zone  EntityId

	actors  map[EntityId]struct{}
	objects map[EntityId]struct{}
}

// NewRoom creates an empty room with no exits.
func NewRoom(id EntityId, name string, sector Sector, flags ...RoomFlag) *Room {
	r := &Room{
		Id:      id,
		Name:    name,
		Sector:  sector,
		Exits:   make(map[Direction]*Exit),
		flags:   make(map[RoomFlag]struct{}),
		actors:  make(map[EntityId]struct{}),
		objects: make(map[EntityId]struct{}),
	}
	for _, f := range flags {
		r.SetFlag(f, true)
	}
	return r
}

// Zone returns the id of the zone that owns the room.
func (r *Room) Zone() EntityId {
	return r.zone
}

// SetExit adds or replaces the exit in a direction.
func (r *Room) SetExit(dir Direction, exit *Exit) {
	r.Exits[dir] = exit
}

// Exit returns the exit in a direction or nil.
func (r *Room) Exit(dir Direction) *Exit {
	return r.Exits[dir]
}

// HasFlag reports whether the flag is set.
func (r *Room) HasFlag(f RoomFlag) bool {
	_, ok := r.flags[f]
	return ok
}

// SetFlag sets or clears a flag.
func (r *Room) SetFlag(f RoomFlag, on bool) {
	f = RoomFlag(strings.ToLower(string(f)))
	if on {
		r.flags[f] = struct{}{}
	} else {
		delete(r.flags, f)
	}
}

// Flags returns the set flags in sorted order.
func (r *Room) Flags() []RoomFlag {
	out := make([]RoomFlag, 0, len(r.flags))
	for f := range r.flags {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Capacity returns how many actors the room holds.
func (r *Room) Capacity() int {
	switch {
	case r.HasFlag(RoomFlagTunnel):
		return CapacityTunnel
	case r.HasFlag(RoomFlagPrivate):
		return CapacityPrivate
	case r.HasFlag(RoomFlagAtrium):
		return CapacityAtrium
	default:
		return CapacityDefault
	}
}

// IsFull reports whether no more actors fit.
func (r *Room) IsFull() bool {
	return len(r.actors) >= r.Capacity()
}

// Contains reports whether the actor is in the room.
func (r *Room) Contains(actorId EntityId) bool {
	_, ok := r.actors[actorId]
	return ok
}

// ContainsObject reports whether the object instance lies in the room.
func (r *Room) ContainsObject(objId EntityId) bool {
	_, ok := r.objects[objId]
	return ok
}

// Actors returns the ids of actors in the room in ascending order.
func (r *Room) Actors() []EntityId {
	return sortedIds(r.actors)
}

// Objects returns the ids of object instances in the room in ascending order.
func (r *Room) Objects() []EntityId {
	return sortedIds(r.objects)
}

// ActorCount returns the number of actors in the room.
func (r *Room) ActorCount() int {
	return len(r.actors)
}

// MatchKeyword reports whether kw names this room, either as a keyword or
// as a case-insensitive substring of the room name.
func (r *Room) MatchKeyword(kw string) bool {
	kw = strings.ToLower(strings.TrimSpace(kw))
	if kw == "" {
		return false
	}
	for _, k := range r.Keywords {
		if strings.ToLower(k) == kw {
			return true
		}
	}
	return strings.Contains(strings.ToLower(r.Name), kw)
}

func (r *Room) addActor(id EntityId)     { r.actors[id] = struct{}{} }
func (r *Room) removeActor(id EntityId)  { delete(r.actors, id) }
func (r *Room) addObject(id EntityId)    { r.objects[id] = struct{}{} }
func (r *Room) removeObject(id EntityId) { delete(r.objects, id) }

func sortedIds(set map[EntityId]struct{}) []EntityId {
	out := make([]EntityId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
