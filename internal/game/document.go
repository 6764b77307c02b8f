package game

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed zone.schema.json
var zoneSchemaSource string

var zoneSchema = jsonschema.MustCompileString("zone.schema.json", zoneSchemaSource)

// ZoneDocument is the on-disk form of a zone, in JSON or YAML.
type ZoneDocument struct {
	Zone    ZoneHeader         `json:"zone"`
	Rooms   []RoomEntry        `json:"rooms,omitempty"`
	Objects []*ObjectPrototype `json:"objects,omitempty"`
	Mobs    []*MobilePrototype `json:"mobs,omitempty"`
	Resets  []ResetDirective   `json:"resets,omitempty"`
}

type ZoneHeader struct {
	Id            EntityId      `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	ResetInterval string        `json:"reset_interval,omitempty"`
	Lifespan      int           `json:"lifespan,omitempty"`
	ResetMinutes  int           `json:"reset_minutes,omitempty"`
	ResetMode     string        `json:"reset_mode,omitempty"`
	MinLevel      int           `json:"min_level,omitempty"`
	MaxLevel      int           `json:"max_level,omitempty"`
	FirstRoom     EntityId      `json:"first_room,omitempty"`
	LastRoom      EntityId      `json:"last_room,omitempty"`
	StartRoom     EntityId      `json:"start_room,omitempty"`
	Resets        *legacyResets `json:"resets,omitempty"`
}

// interval picks the first configured interval form.
func (h ZoneHeader) interval() (time.Duration, error) {
	switch {
	case h.ResetInterval != "":
		d, err := time.ParseDuration(h.ResetInterval)
		if err != nil {
			return 0, fmt.Errorf("parsing reset_interval: %w", err)
		}
		return d, nil
	case h.Lifespan > 0:
		return time.Duration(h.Lifespan) * time.Minute, nil
	case h.ResetMinutes > 0:
		return time.Duration(h.ResetMinutes) * time.Minute, nil
	}
	return DefaultResetInterval, nil
}

// RoomEntry is either a full room definition or the id of a room that is
// defined elsewhere and claimed by this zone.
type RoomEntry struct {
	Ref  EntityId
	Room *RoomDocument
}

func (e *RoomEntry) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) > 0 && trimmed[0] != '{' {
		return json.Unmarshal(data, &e.Ref)
	}
	e.Room = &RoomDocument{}
	return json.Unmarshal(data, e.Room)
}

func (e RoomEntry) MarshalJSON() ([]byte, error) {
	if e.Room != nil {
		return json.Marshal(e.Room)
	}
	return json.Marshal(e.Ref)
}

func (e RoomEntry) id() EntityId {
	if e.Room != nil {
		return e.Room.Id
	}
	return e.Ref
}

type RoomDocument struct {
	Id          EntityId                `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Sector      string                  `json:"sector,omitempty"`
	Flags       []string                `json:"flags,omitempty"`
	Keywords    []string                `json:"keywords,omitempty"`
	Exits       map[string]ExitDocument `json:"exits,omitempty"`
}

type ExitDocument struct {
	ToRoom      EntityId `json:"to_room,omitempty"`
	Destination EntityId `json:"destination,omitempty"`
	Keyword     string   `json:"keyword,omitempty"`
	Description string   `json:"description,omitempty"`
	HasDoor     bool     `json:"has_door,omitempty"`
	IsClosed    bool     `json:"is_closed,omitempty"`
	IsLocked    bool     `json:"is_locked,omitempty"`
	IsHidden    bool     `json:"is_hidden,omitempty"`
	Key         EntityId `json:"key,omitempty"`
}

func (r *RoomDocument) build() (*Room, error) {
	sector, err := ParseSector(r.Sector)
	if err != nil {
		return nil, fmt.Errorf("room %d: %w", r.Id, err)
	}
	room := NewRoom(r.Id, r.Name, sector)
	room.Description = r.Description
	room.Keywords = slices.Clone(r.Keywords)
	for _, f := range r.Flags {
		room.SetFlag(RoomFlag(strings.ToLower(f)), true)
	}
	for name, e := range r.Exits {
		dir, err := ParseDirection(name)
		if err != nil {
			return nil, fmt.Errorf("room %d: %w", r.Id, err)
		}
		to := e.ToRoom
		if !to.Valid() {
			to = e.Destination
		}
		room.SetExit(dir, &Exit{
			ToRoom:      to,
			Keyword:     e.Keyword,
			Description: e.Description,
			HasDoor:     e.HasDoor || e.IsClosed || e.IsLocked,
			IsClosed:    e.IsClosed || e.IsLocked,
			IsLocked:    e.IsLocked,
			IsHidden:    e.IsHidden,
			Key:         e.Key,
		})
	}
	return room, nil
}

// legacyResets is the nested reset form found in older zone files.
type legacyResets struct {
	Mob    []legacyMob    `json:"mob,omitempty"`
	Object []legacyPlaced `json:"object,omitempty"`
	Remove []legacyPlaced `json:"remove,omitempty"`
	Door   []legacyDoor   `json:"door,omitempty"`
}

type legacyPlaced struct {
	Id   EntityId `json:"id"`
	Room EntityId `json:"room,omitempty"`
	Max  int      `json:"max,omitempty"`
}

type legacyMob struct {
	legacyPlaced
	Carrying []legacyPlaced `json:"carrying,omitempty"`
	Equipped []legacyEquip  `json:"equipped,omitempty"`
}

type legacyEquip struct {
	Id       EntityId        `json:"id"`
	Location json.RawMessage `json:"location,omitempty"`
}

type legacyDoor struct {
	Room      EntityId        `json:"room"`
	Direction string          `json:"direction"`
	State     json.RawMessage `json:"state,omitempty"`
}

// slotAliases maps legacy slot names onto EquipSlots.
var slotAliases = map[string]string{
	"finger":  "finger_r",
	"neck":    "neck_1",
	"wrist":   "wrist_r",
	"wielded": "wield",
	"held":    "hold",
}

func legacySlot(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	if alias, ok := slotAliases[s]; ok {
		return alias
	}
	return s
}

func legacyDoorState(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "open"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return "close"
}

// directives flattens the legacy form: each mobile is followed by the items
// it carries and wears, then objects, removals and doors.
func (l *legacyResets) directives() []ResetDirective {
	var out []ResetDirective
	for _, m := range l.Mob {
		out = append(out, ResetDirective{Op: OpLoadMobile, Id: m.Id, Room: m.Room, Max: m.Max})
		for _, c := range m.Carrying {
			out = append(out, ResetDirective{Op: OpGiveObject, Id: c.Id, Max: c.Max})
		}
		for _, e := range m.Equipped {
			out = append(out, ResetDirective{Op: OpEquipObject, Id: e.Id, Slot: legacySlot(e.Location)})
		}
	}
	for _, o := range l.Object {
		out = append(out, ResetDirective{Op: OpLoadObject, Id: o.Id, Room: o.Room, Max: o.Max})
	}
	for _, r := range l.Remove {
		out = append(out, ResetDirective{Op: OpRemoveObject, Id: r.Id, Room: r.Room})
	}
	for _, d := range l.Door {
		out = append(out, ResetDirective{Op: OpDoor, Room: d.Room, Direction: d.Direction, State: legacyDoorState(d.State)})
	}
	return out
}

// ParseZoneDocument decodes and schema-checks a zone document. YAML is used
// when source ends in .yaml or .yml, JSON otherwise.
func ParseZoneDocument(data []byte, source string) (*ZoneDocument, error) {
	if isYAML(source) {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", source, ErrParse, err)
		}
		converted, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", source, ErrParse, err)
		}
		data = converted
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", source, ErrParse, err)
	}
	if err := zoneSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", source, ErrParse, err)
	}

	var doc ZoneDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", source, ErrParse, err)
	}
	if doc.Zone.Resets != nil {
		doc.Resets = append(doc.Resets, doc.Zone.Resets.directives()...)
	}
	return &doc, nil
}

func isYAML(source string) bool {
	ext := strings.ToLower(filepath.Ext(source))
	return ext == ".yaml" || ext == ".yml"
}

// stagedZone is a fully built zone that has not been registered yet.
type stagedZone struct {
	zone    *Zone
	rooms   []*Room
	objects []*ObjectPrototype
	mobiles []*MobilePrototype
}

// stage builds everything a document describes and checks it against the
// world without mutating it. Registrations owned by replacing are allowed
// to collide.
func (w *World) stage(doc *ZoneDocument, source string, replacing EntityId) (*stagedZone, error) {
	el := errors.NewErrorList()

	mode, err := ParseResetMode(doc.Zone.ResetMode)
	if err != nil {
		el.Add(err)
	}
	interval, err := doc.Zone.interval()
	if err != nil {
		el.Add(err)
	}

	z := NewZone(doc.Zone.Id, doc.Zone.Name, mode, interval)
	z.Description = doc.Zone.Description
	z.MinLevel = doc.Zone.MinLevel
	z.MaxLevel = doc.Zone.MaxLevel
	z.StartRoom = doc.Zone.StartRoom
	z.Resets = doc.Resets
	z.Source = source

	if existing, ok := w.zones[z.Id]; ok && existing.Id != replacing {
		el.Add(fmt.Errorf("zone %d: %w", z.Id, ErrExists))
	}
	if z.MaxLevel > 0 && z.MinLevel > z.MaxLevel {
		el.Add(fmt.Errorf("zone %d: min_level exceeds max_level", z.Id))
	}

	owned := func(zoneId EntityId) bool {
		return replacing.Valid() && zoneId == replacing
	}

	st := &stagedZone{zone: z}
	seen := make(map[EntityId]bool)
	for _, entry := range doc.Rooms {
		id := entry.id()
		if seen[id] {
			el.Add(fmt.Errorf("room %d listed twice", id))
			continue
		}
		seen[id] = true
		z.AddRoom(id)

		if entry.Room == nil {
			if r, ok := w.rooms[id]; ok && r.zone.Valid() && !owned(r.zone) && r.zone != z.Id {
				el.Add(fmt.Errorf("room %d already belongs to zone %d: %w", id, r.zone, ErrExists))
			}
			continue
		}
		if id >= InstanceIdBase {
			el.Add(fmt.Errorf("room %d: id out of range", id))
			continue
		}
		if r, ok := w.rooms[id]; ok && !owned(r.zone) {
			el.Add(fmt.Errorf("room %d: %w", id, ErrExists))
			continue
		}
		room, err := entry.Room.build()
		if err != nil {
			el.Add(err)
			continue
		}
		st.rooms = append(st.rooms, room)
	}

	if doc.Zone.FirstRoom.Valid() && doc.Zone.LastRoom >= doc.Zone.FirstRoom {
		for id, r := range w.rooms {
			if id >= doc.Zone.FirstRoom && id <= doc.Zone.LastRoom && (!r.zone.Valid() || owned(r.zone)) {
				z.AddRoom(id)
			}
		}
	}

	protoSeen := make(map[EntityId]bool)
	for _, o := range doc.Objects {
		if err := o.Validate(); err != nil {
			el.Add(err)
			continue
		}
		if p, ok := w.objectProtos[o.Id]; (ok && !owned(p.zone)) || protoSeen[o.Id] {
			el.Add(fmt.Errorf("object prototype %d: %w", o.Id, ErrExists))
			continue
		}
		for i, slot := range o.WearSlots {
			o.WearSlots[i] = strings.ToLower(slot)
		}
		protoSeen[o.Id] = true
		st.objects = append(st.objects, o)
	}
	clear(protoSeen)
	for _, m := range doc.Mobs {
		if err := m.Validate(); err != nil {
			el.Add(err)
			continue
		}
		if p, ok := w.mobileProtos[m.Id]; (ok && !owned(p.zone)) || protoSeen[m.Id] {
			el.Add(fmt.Errorf("mobile prototype %d: %w", m.Id, ErrExists))
			continue
		}
		protoSeen[m.Id] = true
		st.mobiles = append(st.mobiles, m)
	}

	for i, d := range z.Resets {
		if !ValidOp(d.Op) {
			el.Add(fmt.Errorf("zone %d reset %d: unknown op %q", z.Id, i, d.Op))
		}
	}

	if err := el.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return st, nil
}

func (w *World) commit(st *stagedZone) error {
	for _, r := range st.rooms {
		if err := w.AddRoom(r); err != nil {
			return err
		}
	}
	if err := w.AddZone(st.zone); err != nil {
		return err
	}
	for _, o := range st.objects {
		if err := w.AddObjectPrototype(st.zone.Id, o); err != nil {
			return err
		}
	}
	for _, m := range st.mobiles {
		if err := w.AddMobilePrototype(st.zone.Id, m); err != nil {
			return err
		}
	}
	return nil
}

// LoadZoneDocument parses a zone document and registers its zone, rooms,
// prototypes and reset script. Nothing is registered when it fails.
func (w *World) LoadZoneDocument(data []byte, source string) (*Zone, error) {
	doc, err := ParseZoneDocument(data, source)
	if err != nil {
		return nil, err
	}
	st, err := w.stage(doc, source, InvalidId)
	if err != nil {
		return nil, err
	}
	if err := w.commit(st); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	slog.Info("zone loaded",
		"zone", st.zone.Id,
		"name", st.zone.Name,
		"rooms", len(st.zone.rooms),
		"objects", len(st.objects),
		"mobiles", len(st.mobiles),
		"source", source,
	)
	return st.zone, nil
}

// ReplaceZone loads a document over an already registered zone with the
// same id. The world is left untouched if the new document fails or if a
// room the reload would drop holds a mobile from another zone. Players
// standing in the zone are kept in their room when it still exists, and
// moved to the zone's start room otherwise.
func (w *World) ReplaceZone(data []byte, source string) (*Zone, error) {
	doc, err := ParseZoneDocument(data, source)
	if err != nil {
		return nil, err
	}
	old, ok := w.zones[doc.Zone.Id]
	if !ok {
		return w.LoadZoneDocument(data, source)
	}
	st, err := w.stage(doc, source, old.Id)
	if err != nil {
		return nil, err
	}

	keep := make(map[EntityId]bool)
	for _, entry := range doc.Rooms {
		if entry.Room == nil {
			keep[entry.Ref] = true
		}
	}
	var dropped []EntityId
	for _, id := range old.Rooms() {
		if _, ok := w.rooms[id]; ok && !keep[id] {
			dropped = append(dropped, id)
		}
	}
	if err := w.checkVacatable(old.Id, dropped); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	displaced := make(map[EntityId]EntityId)
	for _, p := range w.players {
		if old.ContainsRoom(p.room) {
			displaced[p.id] = p.room
			if r, ok := w.rooms[p.room]; ok {
				r.removeActor(p.id)
			}
			p.setRoom(InvalidId)
		}
	}

	if err := w.RemoveZone(old.Id); err != nil {
		w.returnPlayers(displaced, w.StartRoom())
		return nil, err
	}
	for _, id := range dropped {
		if err := w.RemoveRoom(id); err != nil {
			slog.Warn("removing room during zone reload", "room", id, "error", err)
		}
	}

	if err := w.commit(st); err != nil {
		w.returnPlayers(displaced, w.StartRoom())
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	fallback := st.zone.StartRoom
	if _, ok := w.rooms[fallback]; !ok {
		fallback = w.StartRoom()
	}
	w.returnPlayers(displaced, fallback)

	slog.Info("zone reloaded", "zone", st.zone.Id, "name", st.zone.Name, "source", source, "displaced", len(displaced))
	return st.zone, nil
}

// checkVacatable fails if any of rooms holds an actor that a reload of
// zoneId would neither despawn nor move aside.
func (w *World) checkVacatable(zoneId EntityId, rooms []EntityId) error {
	el := errors.NewErrorList()
	for _, id := range rooms {
		for _, actorId := range w.rooms[id].Actors() {
			if _, ok := w.players[actorId]; ok {
				continue
			}
			if m, ok := w.mobiles[actorId]; ok && m.SpawnZone == zoneId {
				continue
			}
			el.Add(fmt.Errorf("room %d holds actor %d from outside zone %d: %w", id, actorId, zoneId, ErrInvalidState))
		}
	}
	return el.Err()
}

// returnPlayers puts displaced players back in their rooms, or in fallback
// when their room no longer exists.
func (w *World) returnPlayers(displaced map[EntityId]EntityId, fallback EntityId) {
	for id, roomId := range displaced {
		if _, ok := w.rooms[roomId]; !ok {
			roomId = fallback
		}
		if res := w.Place(id, roomId); !res.Success {
			slog.Error("placing player after zone reload", "player", id, "room", roomId, "reason", res.Reason)
		}
	}
}
