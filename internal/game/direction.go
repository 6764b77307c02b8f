package game

import (
	"fmt"
	"strings"
)

// Direction is an exit direction out of a room.
type Direction int

const (
	DirNorth Direction = iota
	DirEast
	DirSouth
	DirWest
	DirUp
	DirDown
	DirNortheast
	DirNorthwest
	DirSoutheast
	DirSouthwest
	DirIn
	DirOut
	DirPortal
)

// AllDirections lists every direction in search order.
var AllDirections = []Direction{
	DirNorth, DirEast, DirSouth, DirWest, DirUp, DirDown,
	DirNortheast, DirNorthwest, DirSoutheast, DirSouthwest,
	DirIn, DirOut, DirPortal,
}

var directionNames = map[Direction][2]string{
	DirNorth:     {"north", "n"},
	DirEast:      {"east", "e"},
	DirSouth:     {"south", "s"},
	DirWest:      {"west", "w"},
	DirUp:        {"up", "u"},
	DirDown:      {"down", "d"},
	DirNortheast: {"northeast", "ne"},
	DirNorthwest: {"northwest", "nw"},
	DirSoutheast: {"southeast", "se"},
	DirSouthwest: {"southwest", "sw"},
	DirIn:        {"in", "in"},
	DirOut:       {"out", "out"},
	DirPortal:    {"portal", "portal"},
}

var directionLookup = func() map[string]Direction {
	m := make(map[string]Direction, len(directionNames)*2)
	for d, names := range directionNames {
		m[names[0]] = d
		m[names[1]] = d
	}
	return m
}()

// ParseDirection accepts full or short direction names, case-insensitive.
func ParseDirection(s string) (Direction, error) {
	d, ok := directionLookup[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown direction %q", s)
	}
	return d, nil
}

func (d Direction) String() string {
	if names, ok := directionNames[d]; ok {
		return names[0]
	}
	return "unknown"
}

// Short returns the abbreviated name used in GMCP exit maps.
func (d Direction) Short() string {
	if names, ok := directionNames[d]; ok {
		return names[1]
	}
	return "?"
}

// Reverse returns the opposite direction. Portal has no opposite and returns itself.
func (d Direction) Reverse() Direction {
	switch d {
	case DirNorth:
		return DirSouth
	case DirSouth:
		return DirNorth
	case DirEast:
		return DirWest
	case DirWest:
		return DirEast
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirNortheast:
		return DirSouthwest
	case DirSouthwest:
		return DirNortheast
	case DirNorthwest:
		return DirSoutheast
	case DirSoutheast:
		return DirNorthwest
	case DirIn:
		return DirOut
	case DirOut:
		return DirIn
	default:
		return d
	}
}
