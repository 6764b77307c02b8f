package game

import (
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

const midgaardJSON = `{
  "zone": {"id": 30, "name": "Midgaard", "reset_mode": "always", "lifespan": 15, "start_room": 3001},
  "rooms": [
    {"id": 3001, "name": "The Temple", "sector": "inside", "flags": ["peaceful"],
     "exits": {"north": {"to_room": 3002}, "down": {"destination": 3003, "has_door": true, "is_closed": true}}},
    {"id": 3002, "name": "Temple Square", "sector": "city", "exits": {"s": {"to_room": 3001}}},
    {"id": 3003, "name": "Crypt", "exits": {"up": {"to_room": 3001, "has_door": true, "is_locked": true}}}
  ],
  "objects": [{"id": 3010, "name": "torch", "wear_slots": ["light"]}],
  "mobs": [{"id": 3060, "name": "cityguard", "level": 10, "max_hp": 50}],
  "resets": [
    {"op": "load_mobile", "id": 3060, "room": 3002, "max": 2},
    {"op": "equip_object", "id": 3010, "slot": "light", "if_flag": 1}
  ]
}`

const shireYAML = `
zone:
  id: 40
  name: The Shire
  reset_interval: 5m
  reset_mode: empty
rooms:
  - id: 4001
    name: Bag End
    exits:
      east:
        to_room: 4002
  - id: 4002
    name: Hobbiton Road
    exits:
      west:
        to_room: 4001
mobs:
  - id: 4050
    name: hobbit
resets:
  - op: load_mobile
    id: 4050
    room: 4002
`

const legacyJSON = `{
  "zone": {
    "id": 50, "name": "Old Fort", "reset_minutes": 20,
    "resets": {
      "mob": [{"id": 5050, "room": 5001, "max": 1,
               "carrying": [{"id": 5010}],
               "equipped": [{"id": 5011, "location": "Wielded"}]}],
      "object": [{"id": 5012, "room": 5002}],
      "door": [{"room": 5001, "direction": "east", "state": ["locked"]}]
    }
  },
  "rooms": [
    {"id": 5001, "name": "Gatehouse", "exits": {"east": {"to_room": 5002, "has_door": true}}},
    {"id": 5002, "name": "Courtyard", "exits": {"west": {"to_room": 5001}}}
  ],
  "objects": [
    {"id": 5010, "name": "key"},
    {"id": 5011, "name": "halberd", "wear_slots": ["wield"]},
    {"id": 5012, "name": "barrel"}
  ],
  "mobs": [{"id": 5050, "name": "sentry"}]
}`

func TestLoadZoneDocumentJSON(t *testing.T) {
	w := NewWorld()
	z, err := w.LoadZoneDocument([]byte(midgaardJSON), "midgaard.json")
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	testutil.AssertEqual(t, "mode", z.ResetMode, ResetAlways)
	testutil.AssertEqual(t, "interval", z.ResetInterval, 15*time.Minute)
	testutil.AssertEqual(t, "rooms", len(z.Rooms()), 3)
	testutil.AssertEqual(t, "owner", w.Room(3002).Zone(), EntityId(30))
	testutil.AssertEqual(t, "flag", w.Room(3001).HasFlag(RoomFlagPeaceful), true)
	testutil.AssertEqual(t, "sector", w.Room(3002).Sector, SectorCity)
	testutil.AssertEqual(t, "short exit name", w.Room(3002).Exit(DirSouth).ToRoom, EntityId(3001))
	testutil.AssertEqual(t, "destination alias", w.Room(3001).Exit(DirDown).ToRoom, EntityId(3003))
	testutil.AssertEqual(t, "closed door", w.Room(3001).Exit(DirDown).DoorState(), "closed")
	testutil.AssertEqual(t, "locked door", w.Room(3003).Exit(DirUp).DoorState(), "locked")
	testutil.AssertEqual(t, "object proto zone", w.ObjectPrototype(3010).Zone(), EntityId(30))
	testutil.AssertEqual(t, "resets", len(z.Resets), 2)

	if _, err := w.ForceReset(30); err != nil {
		t.Fatalf("reset: %v", err)
	}
	testutil.AssertEqual(t, "guards", w.CountLiveMobiles(3060), 1)
	testutil.AssertEqual(t, "torches", w.CountLiveObjects(3010), 1)
	testutil.AssertEqual(t, "valid", w.ValidateWorld().OK(), true)
}

func TestLoadZoneDocumentYAML(t *testing.T) {
	w := NewWorld()
	z, err := w.LoadZoneDocument([]byte(shireYAML), "shire.yaml")
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	testutil.AssertEqual(t, "name", z.Name, "The Shire")
	testutil.AssertEqual(t, "interval", z.ResetInterval, 5*time.Minute)
	testutil.AssertEqual(t, "mode", z.ResetMode, ResetEmpty)
	testutil.AssertEqual(t, "path", len(w.FindPath(4001, 4002)), 1)
}

func TestLoadZoneDocumentLegacyResets(t *testing.T) {
	w := NewWorld()
	z, err := w.LoadZoneDocument([]byte(legacyJSON), "fort.json")
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	testutil.AssertEqual(t, "interval", z.ResetInterval, 20*time.Minute)
	testutil.AssertEqual(t, "directives", len(z.Resets), 5)
	testutil.AssertEqual(t, "equip slot", z.Resets[2].Slot, "wield")
	testutil.AssertEqual(t, "door state", z.Resets[4].State, "locked")

	if _, err := w.ForceReset(50); err != nil {
		t.Fatalf("reset: %v", err)
	}
	ids := w.MobileIds()
	if len(ids) != 1 {
		t.Fatalf("expected one mobile, got %d", len(ids))
	}
	sentry := w.SpawnedMobile(ids[0])
	testutil.AssertEqual(t, "inventory", sentry.Inventory().Len(), 1)
	testutil.AssertEqual(t, "wielded", sentry.Equipment().Slot("wield").Valid(), true)
	testutil.AssertEqual(t, "barrel", w.CountLiveObjects(5012), 1)
	testutil.AssertEqual(t, "door", w.Room(5001).Exit(DirEast).DoorState(), "locked")
}

func TestLoadZoneDocumentErrors(t *testing.T) {
	tests := map[string]struct {
		data   string
		source string
		expErr string
	}{
		"bad json": {
			data:   `{"zone": `,
			source: "bad.json",
			expErr: "parse error",
		},
		"schema missing name": {
			data:   `{"zone": {"id": 1}}`,
			source: "noname.json",
			expErr: "parse error",
		},
		"schema bad op": {
			data:   `{"zone": {"id": 1, "name": "x"}, "resets": [{"op": "explode"}]}`,
			source: "op.json",
			expErr: "parse error",
		},
		"bad yaml": {
			data:   "zone: [unterminated",
			source: "bad.yml",
			expErr: "parse error",
		},
		"bad direction": {
			data:   `{"zone": {"id": 1, "name": "x"}, "rooms": [{"id": 2, "name": "r", "exits": {"sideways": {"to_room": 2}}}]}`,
			source: "dir.json",
			expErr: "unknown direction",
		},
		"bad reset mode": {
			data:   `{"zone": {"id": 1, "name": "x", "reset_mode": "sometimes"}}`,
			source: "mode.json",
			expErr: "unknown reset_mode",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := NewWorld()
			_, err := w.LoadZoneDocument([]byte(tt.data), tt.source)
			testutil.AssertErrorContains(t, err, tt.expErr)
			testutil.AssertEqual(t, "zones", len(w.ZoneIds()), 0)
			testutil.AssertEqual(t, "rooms", w.RoomCount(), 0)
		})
	}
}

func TestLoadZoneDocumentConflict(t *testing.T) {
	w := NewWorld()
	if _, err := w.LoadZoneDocument([]byte(midgaardJSON), "midgaard.json"); err != nil {
		t.Fatalf("loading: %v", err)
	}
	clash := `{"zone": {"id": 31, "name": "Clash"}, "rooms": [{"id": 3001, "name": "Imposter"}, {"id": 3100, "name": "New"}]}`
	_, err := w.LoadZoneDocument([]byte(clash), "clash.json")
	testutil.AssertErrorContains(t, err, "already exists")
	testutil.AssertEqual(t, "zone not added", w.Zone(31) == nil, true)
	testutil.AssertEqual(t, "room not added", w.Room(3100) == nil, true)
	testutil.AssertEqual(t, "original kept", w.Room(3001).Name, "The Temple")
}

func TestReplaceZone(t *testing.T) {
	w := NewWorld()
	if _, err := w.LoadZoneDocument([]byte(midgaardJSON), "midgaard.json"); err != nil {
		t.Fatalf("loading: %v", err)
	}
	if _, err := w.ForceReset(30); err != nil {
		t.Fatalf("reset: %v", err)
	}
	stay := addPlayer(t, w, "Stayer", 1, 3001)
	moved := addPlayer(t, w, "Mover", 1, 3003)

	updated := `{
	  "zone": {"id": 30, "name": "New Midgaard", "start_room": 3001},
	  "rooms": [
	    {"id": 3001, "name": "The Grand Temple", "exits": {"north": {"to_room": 3002}}},
	    {"id": 3002, "name": "Temple Square", "exits": {"south": {"to_room": 3001}}}
	  ],
	  "mobs": [{"id": 3060, "name": "cityguard"}]
	}`
	z, err := w.ReplaceZone([]byte(updated), "midgaard.json")
	if err != nil {
		t.Fatalf("replacing: %v", err)
	}
	testutil.AssertEqual(t, "name", z.Name, "New Midgaard")
	testutil.AssertEqual(t, "room renamed", w.Room(3001).Name, "The Grand Temple")
	testutil.AssertEqual(t, "crypt gone", w.Room(3003) == nil, true)
	testutil.AssertEqual(t, "stayer room", stay.Room(), EntityId(3001))
	testutil.AssertEqual(t, "mover relocated", moved.Room(), EntityId(3001))
	testutil.AssertEqual(t, "room holds both", w.Room(3001).ActorCount(), 2)
	testutil.AssertEqual(t, "old mobiles cleaned", w.CountLiveMobiles(3060), 0)
	testutil.AssertEqual(t, "old object proto gone", w.ObjectPrototype(3010) == nil, true)

	_, err = w.ReplaceZone([]byte(`{"zone": {"id": 30}}`), "midgaard.json")
	testutil.AssertErrorContains(t, err, "parse error")
	testutil.AssertEqual(t, "kept after failure", w.Zone(30).Name, "New Midgaard")
}

func TestReplaceZoneWithForeignOccupant(t *testing.T) {
	w := NewWorld()
	if _, err := w.LoadZoneDocument([]byte(midgaardJSON), "midgaard.json"); err != nil {
		t.Fatalf("loading midgaard: %v", err)
	}
	wanderers := `{"zone": {"id": 90, "name": "Wanderers"}, "rooms": [{"id": 9001, "name": "Crossroads"}], "mobs": [{"id": 9060, "name": "pilgrim"}]}`
	if _, err := w.LoadZoneDocument([]byte(wanderers), "wanderers.json"); err != nil {
		t.Fatalf("loading wanderers: %v", err)
	}
	pilgrim, err := w.SpawnMobile(9060, RoomPlacement{Room: 3001}, 90)
	if err != nil {
		t.Fatalf("spawning: %v", err)
	}
	p := addPlayer(t, w, "Watcher", 1, 3001)

	updated := `{
	  "zone": {"id": 30, "name": "New Midgaard", "start_room": 3001},
	  "rooms": [{"id": 3001, "name": "The Grand Temple"}]
	}`
	_, err = w.ReplaceZone([]byte(updated), "midgaard.json")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	testutil.AssertErrorContains(t, err, "room 3001")

	testutil.AssertEqual(t, "zone kept", w.Zone(30).Name, "Midgaard")
	testutil.AssertEqual(t, "room kept", w.Room(3001).Name, "The Temple")
	testutil.AssertEqual(t, "crypt kept", w.Room(3003) != nil, true)
	testutil.AssertEqual(t, "room owner", w.Room(3001).Zone(), EntityId(30))
	testutil.AssertEqual(t, "player room", p.Room(), EntityId(3001))
	testutil.AssertEqual(t, "pilgrim room", pilgrim.Room(), EntityId(3001))
	testutil.AssertEqual(t, "occupants", w.Room(3001).ActorCount(), 2)
	testutil.AssertEqual(t, "prototype kept", w.MobilePrototype(3060) != nil, true)

	if err := w.Despawn(pilgrim.Id()); err != nil {
		t.Fatalf("despawning: %v", err)
	}
	if _, err := w.ReplaceZone([]byte(updated), "midgaard.json"); err != nil {
		t.Fatalf("replacing once vacated: %v", err)
	}
	testutil.AssertEqual(t, "replaced", w.Room(3001).Name, "The Grand Temple")
	testutil.AssertEqual(t, "player stays", p.Room(), EntityId(3001))
}

func TestWearSlotsAreLowercased(t *testing.T) {
	w := NewWorld()
	doc := `{"zone": {"id": 60, "name": "Forge"}, "rooms": [{"id": 6001, "name": "Anvil"}],
	  "objects": [{"id": 6010, "name": "hammer", "wear_slots": ["Wield", "HOLD"]}]}`
	if _, err := w.LoadZoneDocument([]byte(doc), "forge.json"); err != nil {
		t.Fatalf("loading: %v", err)
	}
	testutil.AssertEqual(t, "wear slots", w.ObjectPrototype(6010).WearSlots, []string{"wield", "hold"})
}
