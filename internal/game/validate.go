package game

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// ValidationReport lists problems found by ValidateWorld. Errors make the
// world unusable; warnings are logged and tolerated.
type ValidationReport struct {
	Errors   []string
	Warnings []string
}

// OK reports whether there are no errors.
func (r ValidationReport) OK() bool {
	return len(r.Errors) == 0
}

// Err joins the errors into one, or returns nil.
func (r ValidationReport) Err() error {
	el := errors.NewErrorList()
	for _, e := range r.Errors {
		el.Add(fmt.Errorf("%s", e))
	}
	return el.Err()
}

func (r *ValidationReport) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationReport) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateWorld checks cross references between rooms and zones.
func (w *World) ValidateWorld() ValidationReport {
	var report ValidationReport

	claims := make(map[EntityId][]EntityId)
	for _, zid := range w.ZoneIds() {
		z := w.zones[zid]
		for _, rid := range z.Rooms() {
			if _, ok := w.rooms[rid]; !ok {
				report.errorf("zone %d references missing room %d", zid, rid)
				continue
			}
			claims[rid] = append(claims[rid], zid)
		}
		if z.StartRoom.Valid() {
			if _, ok := w.rooms[z.StartRoom]; !ok {
				report.errorf("zone %d start room %d does not exist", zid, z.StartRoom)
			}
		}
	}

	for _, rid := range w.RoomIds() {
		room := w.rooms[rid]
		for _, dir := range AllDirections {
			exit := room.Exit(dir)
			if exit == nil {
				continue
			}
			if _, ok := w.rooms[exit.ToRoom]; !ok {
				report.errorf("room %d exit %s leads to missing room %d", rid, dir, exit.ToRoom)
			} else if exit.ToRoom == rid {
				report.warnf("room %d exit %s leads back to itself", rid, dir)
			}
		}

		switch zones := claims[rid]; {
		case len(zones) == 0:
			report.warnf("room %d belongs to no zone", rid)
		case len(zones) > 1:
			report.warnf("room %d is claimed by zones %v", rid, zones)
		}
	}

	start := w.StartRoom()
	if _, ok := w.rooms[start]; ok {
		reached := w.reachable(start)
		for _, rid := range w.RoomIds() {
			if !reached[rid] {
				report.warnf("room %d is unreachable from start room %d", rid, start)
			}
		}
	} else if len(w.rooms) > 0 {
		report.errorf("start room %d does not exist", start)
	}

	return report
}

// reachable walks every exit, doors included, from start.
func (w *World) reachable(start EntityId) map[EntityId]bool {
	seen := map[EntityId]bool{start: true}
	queue := []EntityId{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, exit := range w.rooms[cur].Exits {
			if _, ok := w.rooms[exit.ToRoom]; !ok || seen[exit.ToRoom] {
				continue
			}
			seen[exit.ToRoom] = true
			queue = append(queue, exit.ToRoom)
		}
	}
	return seen
}
