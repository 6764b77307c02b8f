package game

import "fmt"

// MoveReason explains why a movement failed.
type MoveReason string

const (
	MoveOK              MoveReason = ""
	MoveNoExit          MoveReason = "no exit"
	MoveExitClosed      MoveReason = "exit closed"
	MoveNoDestination   MoveReason = "destination does not exist"
	MoveDestinationFull MoveReason = "destination full"
	MoveRestricted      MoveReason = "restricted"
	MoveInvalidLocation MoveReason = "invalid location"
)

// MovementResult describes the outcome of a movement attempt. On failure
// nothing in the world was changed.
type MovementResult struct {
	Success   bool
	Reason    MoveReason
	Detail    string
	From      EntityId
	To        EntityId
	Direction Direction
}

func (r MovementResult) String() string {
	if r.Success {
		return fmt.Sprintf("moved %d -> %d", r.From, r.To)
	}
	if r.Detail != "" {
		return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
	}
	return string(r.Reason)
}

func failed(reason MoveReason, detail string, from EntityId) MovementResult {
	return MovementResult{Reason: reason, Detail: detail, From: from}
}

// Move walks an actor through an exit of its current room.
func (w *World) Move(actorId EntityId, dir Direction) MovementResult {
	actor, ok := w.actors[actorId]
	if !ok {
		return failed(MoveInvalidLocation, "unknown actor", InvalidId)
	}
	from, ok := w.rooms[actor.Room()]
	if !ok || !from.Contains(actorId) {
		return failed(MoveInvalidLocation, "actor is not in a room", actor.Room())
	}

	exit := from.Exit(dir)
	if exit == nil {
		return failed(MoveNoExit, dir.String(), from.Id)
	}
	if !exit.Passable() {
		return failed(MoveExitClosed, exit.DoorState(), from.Id)
	}

	res := w.moveTo(actor, from, exit.ToRoom)
	res.Direction = dir
	return res
}

// MoveTo moves an actor directly to a room, ignoring exits. Entry rules
// still apply.
func (w *World) MoveTo(actorId EntityId, roomId EntityId) MovementResult {
	actor, ok := w.actors[actorId]
	if !ok {
		return failed(MoveInvalidLocation, "unknown actor", InvalidId)
	}
	from, ok := w.rooms[actor.Room()]
	if !ok || !from.Contains(actorId) {
		return failed(MoveInvalidLocation, "actor is not in a room", actor.Room())
	}
	return w.moveTo(actor, from, roomId)
}

// Place puts an actor into a room regardless of entry rules. It is used
// for logins, zone reloads and admin transfers.
func (w *World) Place(actorId EntityId, roomId EntityId) MovementResult {
	actor, ok := w.actors[actorId]
	if !ok {
		return failed(MoveInvalidLocation, "unknown actor", InvalidId)
	}
	to, ok := w.rooms[roomId]
	if !ok {
		return failed(MoveNoDestination, roomId.String(), actor.Room())
	}
	from := w.rooms[actor.Room()]
	w.relocate(actor, from, to)
	return MovementResult{Success: true, From: roomIdOf(from), To: to.Id}
}

func (w *World) moveTo(actor Actor, from *Room, roomId EntityId) MovementResult {
	to, ok := w.rooms[roomId]
	if !ok {
		return failed(MoveNoDestination, roomId.String(), from.Id)
	}
	if reason, detail := w.checkEntry(actor, to); reason != MoveOK {
		return failed(reason, detail, from.Id)
	}
	w.relocate(actor, from, to)
	return MovementResult{Success: true, From: from.Id, To: to.Id}
}

// checkEntry applies room entry rules for an actor.
func (w *World) checkEntry(actor Actor, to *Room) (MoveReason, string) {
	if !to.Contains(actor.Id()) && to.IsFull() {
		return MoveDestinationFull, to.Id.String()
	}
	if to.HasFlag(RoomFlagGodroom) && (actor.IsMobile() || actor.Level() < ImmortalLevel) {
		return MoveRestricted, "godroom"
	}
	if actor.IsMobile() && to.HasFlag(RoomFlagNoMob) {
		return MoveRestricted, "nomob"
	}
	if !actor.IsMobile() {
		if z, ok := w.zones[to.zone]; ok && !z.InLevelRange(actor.Level()) {
			return MoveRestricted, "level"
		}
	}
	return MoveOK, ""
}

// relocate moves the actor between rooms in one step. The actor's room and
// the two room actor sets change together.
func (w *World) relocate(actor Actor, from, to *Room) {
	if from != nil {
		from.removeActor(actor.Id())
	}
	to.addActor(actor.Id())
	actor.setRoom(to.Id)
}

func roomIdOf(r *Room) EntityId {
	if r == nil {
		return InvalidId
	}
	return r.Id
}
