package game

import (
	"fmt"
	"strings"
	"time"
)

// ResetMode controls when a zone repopulates.
type ResetMode int

const (
	ResetNever    ResetMode = iota // Zone never resets on its own
	ResetEmpty                     // Resets on schedule when no players are present
	ResetAlways                    // Resets on schedule regardless of players
	ResetOnReboot                  // Resets once after the world loads
	ResetManual                    // Resets only when forced
)

// DefaultResetInterval applies when a zone document gives no interval.
const DefaultResetInterval = 30 * time.Minute

var resetModeNames = map[ResetMode]string{
	ResetNever:    "never",
	ResetEmpty:    "empty",
	ResetAlways:   "always",
	ResetOnReboot: "on_reboot",
	ResetManual:   "manual",
}

// ParseResetMode accepts a mode name, case-insensitive. Empty input is ResetEmpty.
func ParseResetMode(s string) (ResetMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ResetEmpty, nil
	}
	if s == "onreboot" || s == "reboot" {
		return ResetOnReboot, nil
	}
	for m, name := range resetModeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown reset_mode %q", s)
}

func (m ResetMode) String() string {
	if name, ok := resetModeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ZoneStats records reset history. Runtime only.
type ZoneStats struct {
	ResetCount    int
	LastReset     time.Time
	LastDuration  time.Duration
	LastSpawned   int
	LastDespawned int
}

// Zone is a named collection of rooms sharing reset rules. Room membership is
// recorded here and nowhere else.
type Zone struct {
	Id            EntityId
	Name          string
	Description   string
	ResetInterval time.Duration
	ResetMode     ResetMode
	MinLevel      int
	MaxLevel      int
	StartRoom     EntityId
	Resets        []ResetDirective

	// Source is the file the zone was loaded from, if any.
	Source string

	rooms        map[EntityId]struct{}
	objectProtos map[EntityId]struct{}
	mobileProtos map[EntityId]struct{}
	stats        ZoneStats
}

// NewZone creates a zone with no rooms.
func NewZone(id EntityId, name string, mode ResetMode, interval time.Duration) *Zone {
	return &Zone{
		Id:            id,
		Name:          name,
		ResetMode:     mode,
		ResetInterval: interval,
		rooms:         make(map[EntityId]struct{}),
		objectProtos:  make(map[EntityId]struct{}),
		mobileProtos:  make(map[EntityId]struct{}),
	}
}

// AddRoom records a room id as a member. The world assigns ownership when
// the zone is registered.
func (z *Zone) AddRoom(id EntityId) {
	z.rooms[id] = struct{}{}
}

// ContainsRoom reports whether the room is a member.
func (z *Zone) ContainsRoom(id EntityId) bool {
	_, ok := z.rooms[id]
	return ok
}

// Rooms returns member room ids in ascending order.
func (z *Zone) Rooms() []EntityId {
	return sortedIds(z.rooms)
}

// Stats returns the zone's reset statistics.
func (z *Zone) Stats() ZoneStats {
	return z.stats
}

// InLevelRange reports whether level may enter the zone.
func (z *Zone) InLevelRange(level int) bool {
	if z.MinLevel > 0 && level < z.MinLevel {
		return false
	}
	if z.MaxLevel > 0 && level > z.MaxLevel {
		return false
	}
	return true
}

// NeedsReset reports whether the zone should reset at now. occupied is true
// when any player stands in one of the zone's rooms.
func (z *Zone) NeedsReset(now time.Time, occupied bool) bool {
	switch z.ResetMode {
	case ResetNever, ResetManual:
		return false
	case ResetOnReboot:
		return z.stats.ResetCount == 0
	}

	if z.stats.ResetCount > 0 && now.Sub(z.stats.LastReset) < z.ResetInterval {
		return false
	}

	if z.ResetMode == ResetEmpty {
		return !occupied
	}
	return true
}

func (z *Zone) recordReset(at time.Time, d time.Duration, spawned, despawned int) {
	z.stats.ResetCount++
	z.stats.LastReset = at
	z.stats.LastDuration = d
	z.stats.LastSpawned = spawned
	z.stats.LastDespawned = despawned
}
