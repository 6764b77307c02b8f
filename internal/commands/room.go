package commands

import (
	"fmt"
	"strings"

	"github.com/pixil98/mudcore/internal/display"
	"github.com/pixil98/mudcore/internal/game"
	"github.com/pixil98/mudcore/internal/gmcp"
)

// DescribeRoom renders a room as seen by viewer.
func DescribeRoom(w *game.World, viewer game.EntityId, r *game.Room) string {
	var b strings.Builder
	b.WriteString(r.Name + "\n")
	if r.Description != "" {
		b.WriteString(display.Wrap(strings.TrimSpace(r.Description)) + "\n")
	}
	b.WriteString(exitLine(r) + "\n")

	for _, id := range r.Objects() {
		o := w.SpawnedObject(id)
		if o == nil {
			continue
		}
		switch {
		case o.LongDesc != "":
			b.WriteString(o.LongDesc + "\n")
		case o.ShortDesc != "":
			b.WriteString(display.Capitalize(o.ShortDesc) + " is here.\n")
		default:
			b.WriteString(display.Capitalize(o.Name) + " is here.\n")
		}
	}

	for _, id := range r.Actors() {
		if id == viewer {
			continue
		}
		switch a := w.Actor(id).(type) {
		case *game.Player:
			if a.Title != "" {
				fmt.Fprintf(&b, "%s %s is here.\n", a.Name(), a.Title)
			} else {
				fmt.Fprintf(&b, "%s is here.\n", a.Name())
			}
		case *game.Mobile:
			if a.LongDesc != "" {
				b.WriteString(a.LongDesc + "\n")
			} else {
				fmt.Fprintf(&b, "%s is here.\n", display.Capitalize(a.Name()))
			}
		}
	}
	return b.String()
}

// exitLine lists visible exits, e.g. "[ Exits: n e (d) ]". Closed doors are
// shown in parentheses.
func exitLine(r *game.Room) string {
	var exits []string
	for _, dir := range game.AllDirections {
		exit := r.Exit(dir)
		if exit == nil || exit.IsHidden {
			continue
		}
		if exit.Passable() {
			exits = append(exits, dir.Short())
		} else {
			exits = append(exits, "("+dir.Short()+")")
		}
	}
	if len(exits) == 0 {
		return "[ Exits: none ]"
	}
	return "[ Exits: " + strings.Join(exits, " ") + " ]"
}

// RoomInfo builds the Room.Info GMCP payload.
func RoomInfo(w *game.World, r *game.Room) gmcp.RoomInfo {
	info := gmcp.RoomInfo{
		ID:          uint64(r.Id),
		Name:        r.Name,
		ZoneID:      uint64(r.Zone()),
		Type:        r.Sector.String(),
		Environment: r.Sector.Environment(),
		Exits:       map[string]gmcp.RoomExit{},
	}
	if z := w.Zone(r.Zone()); z != nil {
		info.Zone = z.Name
	}
	for _, dir := range game.AllDirections {
		exit := r.Exit(dir)
		if exit == nil || exit.IsHidden {
			continue
		}
		info.Exits[dir.Short()] = gmcp.RoomExit{
			ToRoom:    uint64(exit.ToRoom),
			IsDoor:    exit.HasDoor,
			DoorState: exit.DoorState(),
		}
	}
	return info
}

// showRoom sends the room description and Room.Info to a player.
func showRoom(w *game.World, p *game.Player, r *game.Room) {
	if r == nil {
		w.SendText(p.Id(), "You are floating in a void.\n")
		return
	}
	w.SendText(p.Id(), DescribeRoom(w, p.Id(), r))
	w.SendGMCP(p.Id(), gmcp.ModuleRoomInfo, RoomInfo(w, r))
}

// Look shows a player the room it stands in.
func Look(w *game.World, p *game.Player) {
	showRoom(w, p, w.Room(p.Room()))
}
