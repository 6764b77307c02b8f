package game

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// ResetOp names a reset directive.
type ResetOp string

const (
	OpLoadMobile   ResetOp = "load_mobile"
	OpLoadObject   ResetOp = "load_object"
	OpGiveObject   ResetOp = "give_object"
	OpEquipObject  ResetOp = "equip_object"
	OpRemoveObject ResetOp = "remove_object"
	OpDoor         ResetOp = "door"
	OpHalt         ResetOp = "halt"
	OpComment      ResetOp = "comment"
)

// ResetDirective is one step of a zone's reset script.
//
// IfFlag gates the step on the previous one: 0 always runs, a positive value
// runs only if the previous step succeeded, a negative value only if it
// failed. Max caps the number of live instances of the prototype and
// defaults to 1.
type ResetDirective struct {
	Op        ResetOp  `json:"op"`
	Id        EntityId `json:"id,omitempty"`
	Room      EntityId `json:"room,omitempty"`
	Max       int      `json:"max,omitempty"`
	IfFlag    int      `json:"if_flag,omitempty"`
	Slot      string   `json:"slot,omitempty"`
	Direction string   `json:"direction,omitempty"`
	State     string   `json:"state,omitempty"`
	Comment   string   `json:"comment,omitempty"`
}

func (d ResetDirective) limit() int {
	if d.Max <= 0 {
		return 1
	}
	return d.Max
}

// ResetResult summarises one zone reset.
type ResetResult struct {
	Zone      EntityId
	Spawned   int
	Despawned int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// CleanupZone despawns the zone's mobiles, along with what they carry, and
// its objects lying in rooms or nowhere. Objects held by players are left
// alone. It returns the number of instances removed.
func (w *World) CleanupZone(zoneId EntityId) int {
	removed := 0
	for _, id := range w.MobileIds() {
		m := w.mobiles[id]
		if m.SpawnZone != zoneId {
			continue
		}
		removed += 1 + m.Equipment().Len() + m.Inventory().Len()
		if err := w.Despawn(id); err != nil {
			slog.Warn("despawning mobile during cleanup", "zone", zoneId, "mobile", id, "error", err)
		}
	}
	for _, id := range w.ObjectIds() {
		o, ok := w.objects[id]
		if !ok || o.SpawnZone != zoneId {
			continue
		}
		switch o.location.Kind {
		case LocationRoom, LocationNowhere:
		default:
			continue
		}
		if err := w.Despawn(id); err != nil {
			slog.Warn("despawning object during cleanup", "zone", zoneId, "object", id, "error", err)
			continue
		}
		removed++
	}
	return removed
}

// ForceReset cleans up and repopulates a zone immediately, regardless of
// its mode or schedule.
func (w *World) ForceReset(zoneId EntityId) (ResetResult, error) {
	z, ok := w.zones[zoneId]
	if !ok {
		return ResetResult{}, fmt.Errorf("zone %d: %w", zoneId, ErrNotFound)
	}

	start := w.now()
	res := ResetResult{Zone: zoneId}
	res.Despawned = w.CleanupZone(zoneId)
	w.runResets(z, &res)
	res.Duration = w.now().Sub(start)

	z.recordReset(start, res.Duration, res.Spawned, res.Despawned)
	delete(w.scheduled, zoneId)

	slog.Info("zone reset",
		"zone", zoneId,
		"name", z.Name,
		"spawned", res.Spawned,
		"despawned", res.Despawned,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res, nil
}

// ScheduleReset arranges for a zone to be reset after delay. A later call
// replaces the earlier schedule.
func (w *World) ScheduleReset(zoneId EntityId, delay time.Duration) error {
	if _, ok := w.zones[zoneId]; !ok {
		return fmt.Errorf("zone %d: %w", zoneId, ErrNotFound)
	}
	w.scheduled[zoneId] = w.now().Add(delay)
	return nil
}

// ScheduledReset returns when a zone is scheduled to reset.
func (w *World) ScheduledReset(zoneId EntityId) (time.Time, bool) {
	at, ok := w.scheduled[zoneId]
	return at, ok
}

// ProcessZoneResets resets every zone that is due at now, either through an
// explicit schedule or its reset mode, in ascending zone order.
func (w *World) ProcessZoneResets(now time.Time) []ResetResult {
	var results []ResetResult
	for _, id := range w.ZoneIds() {
		z := w.zones[id]
		due := false
		if at, ok := w.scheduled[id]; ok && !now.Before(at) {
			due = true
		} else if z.NeedsReset(now, w.zoneOccupied(z)) {
			due = true
		}
		if !due {
			continue
		}
		res, err := w.ForceReset(id)
		if err != nil {
			slog.Error("resetting zone", "zone", id, "error", err)
			continue
		}
		results = append(results, res)
	}
	return results
}

// zoneOccupied reports whether any player stands in the zone.
func (w *World) zoneOccupied(z *Zone) bool {
	for _, p := range w.players {
		if z.ContainsRoom(p.room) {
			return true
		}
	}
	return false
}

// ZoneOccupied reports whether any player stands in the zone.
func (w *World) ZoneOccupied(zoneId EntityId) bool {
	z, ok := w.zones[zoneId]
	return ok && w.zoneOccupied(z)
}

func (w *World) runResets(z *Zone, res *ResetResult) {
	var lastMobile *Mobile
	lastOK := true

	for i, d := range z.Resets {
		if d.Op == OpComment {
			continue
		}
		if d.IfFlag > 0 && !lastOK || d.IfFlag < 0 && lastOK {
			res.Skipped++
			continue
		}
		if d.Op == OpHalt {
			return
		}

		ok, err := w.runDirective(z, d, &lastMobile)
		if err != nil {
			res.Failed++
			slog.Warn("reset directive failed",
				"zone", z.Id,
				"index", i,
				"op", d.Op,
				"id", d.Id,
				"error", err,
			)
		}
		if ok {
			switch d.Op {
			case OpLoadMobile, OpLoadObject, OpGiveObject, OpEquipObject:
				res.Spawned++
			case OpRemoveObject:
				res.Despawned++
			}
		} else if err == nil {
			res.Skipped++
		}
		lastOK = ok
	}
}

// runDirective executes one directive. It returns false with a nil error
// when the step was legitimately skipped, such as a max count being reached.
func (w *World) runDirective(z *Zone, d ResetDirective, lastMobile **Mobile) (bool, error) {
	switch d.Op {
	case OpLoadMobile:
		if w.liveMobiles[d.Id] >= d.limit() {
			*lastMobile = nil
			return false, nil
		}
		m, err := w.SpawnMobile(d.Id, RoomPlacement{Room: d.Room}, z.Id)
		if err != nil {
			*lastMobile = nil
			return false, err
		}
		*lastMobile = m
		return true, nil

	case OpLoadObject:
		if w.liveObjects[d.Id] >= d.limit() {
			return false, nil
		}
		if _, err := w.SpawnObject(d.Id, RoomPlacement{Room: d.Room}, z.Id); err != nil {
			return false, err
		}
		return true, nil

	case OpGiveObject, OpEquipObject:
		m := *lastMobile
		if m == nil || w.mobiles[m.id] == nil {
			return false, nil
		}
		if w.liveObjects[d.Id] >= d.limit() {
			return false, nil
		}
		var target SpawnTarget = InventoryPlacement{Actor: m.id}
		if d.Op == OpEquipObject {
			target = EquipPlacement{Actor: m.id, Slot: d.Slot}
		}
		if _, err := w.SpawnObject(d.Id, target, z.Id); err != nil {
			return false, err
		}
		return true, nil

	case OpRemoveObject:
		room, ok := w.rooms[d.Room]
		if !ok {
			return false, fmt.Errorf("room %d: %w", d.Room, ErrNotFound)
		}
		for _, objId := range room.Objects() {
			if o := w.objects[objId]; o != nil && o.Prototype == d.Id {
				return true, w.Despawn(objId)
			}
		}
		return false, nil

	case OpDoor:
		return w.setDoor(d)
	}
	return false, fmt.Errorf("unknown reset op %q: %w", d.Op, ErrParse)
}

func (w *World) setDoor(d ResetDirective) (bool, error) {
	room, ok := w.rooms[d.Room]
	if !ok {
		return false, fmt.Errorf("room %d: %w", d.Room, ErrNotFound)
	}
	dir, err := ParseDirection(d.Direction)
	if err != nil {
		return false, err
	}
	exit := room.Exit(dir)
	if exit == nil || !exit.HasDoor {
		return false, fmt.Errorf("room %d has no door %s: %w", d.Room, dir, ErrInvalidState)
	}

	switch strings.ToLower(d.State) {
	case "open":
		exit.IsClosed, exit.IsLocked = false, false
	case "close", "closed":
		exit.IsClosed, exit.IsLocked = true, false
	case "lock", "locked":
		exit.IsClosed, exit.IsLocked = true, true
	case "unlock", "unlocked":
		exit.IsLocked = false
	default:
		return false, fmt.Errorf("unknown door state %q: %w", d.State, ErrParse)
	}
	return true, nil
}

var resetOps = []ResetOp{
	OpLoadMobile, OpLoadObject, OpGiveObject, OpEquipObject,
	OpRemoveObject, OpDoor, OpHalt, OpComment,
}

// ValidOp reports whether op is a known reset op.
func ValidOp(op ResetOp) bool {
	return slices.Contains(resetOps, op)
}
