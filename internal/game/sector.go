package game

import (
	"fmt"
	"strings"
)

// Sector is the terrain type of a room.
type Sector int

const (
	SectorInside Sector = iota
	SectorCity
	SectorField
	SectorForest
	SectorHills
	SectorMountains
	SectorWaterSwim
	SectorWaterNoswim
	SectorUnderwater
	SectorFlying
	SectorDesert
	SectorSwamp
	SectorBeach
	SectorRoad
	SectorUnderground
	SectorLava
	SectorIce
	SectorAstral
	SectorFire
	SectorLightning
)

var sectorNames = []string{
	"inside", "city", "field", "forest", "hills", "mountains",
	"water_swim", "water_noswim", "underwater", "flying", "desert",
	"swamp", "beach", "road", "underground", "lava", "ice", "astral",
	"fire", "lightning",
}

// ParseSector accepts a sector name, case-insensitive. Empty input is Inside.
func ParseSector(s string) (Sector, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SectorInside, nil
	}
	for i, name := range sectorNames {
		if name == s {
			return Sector(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sector %q", s)
}

func (s Sector) String() string {
	if int(s) >= 0 && int(s) < len(sectorNames) {
		return sectorNames[s]
	}
	return "unknown"
}

// Environment groups sectors for clients that draw maps.
func (s Sector) Environment() string {
	switch s {
	case SectorInside, SectorUnderground:
		return "indoors"
	case SectorCity, SectorRoad:
		return "urban"
	case SectorWaterSwim, SectorWaterNoswim, SectorUnderwater, SectorBeach:
		return "water"
	case SectorFlying, SectorAstral:
		return "air"
	case SectorLava, SectorFire:
		return "fire"
	default:
		return "wilderness"
	}
}
