package game

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// World is the single source of truth for rooms, zones, prototypes, actors
// and spawned instances. Mutating methods must only be called from the
// serializer; other goroutines read through View.
type World struct {
	mu sync.RWMutex

	rooms        map[EntityId]*Room
	zones        map[EntityId]*Zone
	objectProtos map[EntityId]*ObjectPrototype
	mobileProtos map[EntityId]*MobilePrototype

	actors  map[EntityId]Actor
	players map[EntityId]*Player
	mobiles map[EntityId]*Mobile
	objects map[EntityId]*Object

	liveMobiles map[EntityId]int
	liveObjects map[EntityId]int

	scheduled map[EntityId]time.Time

	ids       *idAllocator
	startRoom EntityId
	publisher Publisher
	now       func() time.Time
}

type WorldOpt func(*World)

// WithPublisher sets where player output is delivered.
func WithPublisher(p Publisher) WorldOpt {
	return func(w *World) {
		w.publisher = p
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) WorldOpt {
	return func(w *World) {
		w.now = now
	}
}

// WithStartRoom sets the room new players enter and validation starts from.
func WithStartRoom(id EntityId) WorldOpt {
	return func(w *World) {
		w.startRoom = id
	}
}

// NewWorld creates an empty world.
func NewWorld(opts ...WorldOpt) *World {
	w := &World{
		rooms:        make(map[EntityId]*Room),
		zones:        make(map[EntityId]*Zone),
		objectProtos: make(map[EntityId]*ObjectPrototype),
		mobileProtos: make(map[EntityId]*MobilePrototype),
		actors:       make(map[EntityId]Actor),
		players:      make(map[EntityId]*Player),
		mobiles:      make(map[EntityId]*Mobile),
		objects:      make(map[EntityId]*Object),
		liveMobiles:  make(map[EntityId]int),
		liveObjects:  make(map[EntityId]int),
		scheduled:    make(map[EntityId]time.Time),
		ids:          newIdAllocator(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Exclusive runs fn holding the write lock. The serializer wraps each unit
// of work in it so View callers never observe a half-applied unit.
func (w *World) Exclusive(fn func(*World)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w)
}

// View runs fn holding the read lock, for out-of-band queries such as admin
// statistics. fn must not mutate the world.
func (w *World) View(fn func(*World)) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fn(w)
}

// Now returns the world clock.
func (w *World) Now() time.Time {
	return w.now()
}

// StartRoom returns the configured start room, or the lowest room id when
// none was configured.
func (w *World) StartRoom() EntityId {
	if w.startRoom.Valid() {
		return w.startRoom
	}
	var lowest EntityId
	for id := range w.rooms {
		if !lowest.Valid() || id < lowest {
			lowest = id
		}
	}
	return lowest
}

// SetStartRoom changes the start room.
func (w *World) SetStartRoom(id EntityId) {
	w.startRoom = id
}

// --- Rooms ---

// Room returns the room or nil.
func (w *World) Room(id EntityId) *Room {
	return w.rooms[id]
}

// AddRoom registers a room. The room is unowned until a zone claims it.
func (w *World) AddRoom(r *Room) error {
	if r == nil || !r.Id.Valid() {
		return fmt.Errorf("room id is required")
	}
	if _, exists := w.rooms[r.Id]; exists {
		return fmt.Errorf("room %d: %w", r.Id, ErrExists)
	}
	if r.Exits == nil {
		r.Exits = make(map[Direction]*Exit)
	}
	if r.flags == nil {
		r.flags = make(map[RoomFlag]struct{})
	}
	if r.actors == nil {
		r.actors = make(map[EntityId]struct{})
	}
	if r.objects == nil {
		r.objects = make(map[EntityId]struct{})
	}
	r.zone = InvalidId
	for _, z := range w.zones {
		if z.ContainsRoom(r.Id) {
			r.zone = z.Id
			break
		}
	}
	w.rooms[r.Id] = r
	return nil
}

// RemoveRoom unregisters an empty room. Objects lying in it are despawned.
func (w *World) RemoveRoom(id EntityId) error {
	r, ok := w.rooms[id]
	if !ok {
		return fmt.Errorf("room %d: %w", id, ErrNotFound)
	}
	if r.ActorCount() > 0 {
		return fmt.Errorf("room %d is occupied: %w", id, ErrInvalidState)
	}
	for _, objId := range r.Objects() {
		if err := w.Despawn(objId); err != nil {
			return err
		}
	}
	if z, ok := w.zones[r.zone]; ok {
		delete(z.rooms, id)
	}
	delete(w.rooms, id)
	return nil
}

// RoomCount returns the number of registered rooms.
func (w *World) RoomCount() int {
	return len(w.rooms)
}

// RoomIds returns every registered room id in ascending order.
func (w *World) RoomIds() []EntityId {
	out := make([]EntityId, 0, len(w.rooms))
	for id := range w.rooms {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// FindRoomsByKeyword returns rooms matching the keyword, ordered by id.
func (w *World) FindRoomsByKeyword(kw string) []*Room {
	var out []*Room
	for _, id := range w.RoomIds() {
		if r := w.rooms[id]; r.MatchKeyword(kw) {
			out = append(out, r)
		}
	}
	return out
}

// FindRoomsInZone returns the registered rooms of a zone, ordered by id.
func (w *World) FindRoomsInZone(zoneId EntityId) []*Room {
	z, ok := w.zones[zoneId]
	if !ok {
		return nil
	}
	var out []*Room
	for _, id := range z.Rooms() {
		if r, ok := w.rooms[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// --- Zones ---

// Zone returns the zone or nil.
func (w *World) Zone(id EntityId) *Zone {
	return w.zones[id]
}

// ZoneIds returns every zone id in ascending order.
func (w *World) ZoneIds() []EntityId {
	out := make([]EntityId, 0, len(w.zones))
	for id := range w.zones {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// AddZone registers a zone and claims its member rooms. It fails without
// changes if any member room is owned by another zone.
func (w *World) AddZone(z *Zone) error {
	if z == nil || !z.Id.Valid() {
		return fmt.Errorf("zone id is required")
	}
	if _, exists := w.zones[z.Id]; exists {
		return fmt.Errorf("zone %d: %w", z.Id, ErrExists)
	}
	if z.rooms == nil {
		z.rooms = make(map[EntityId]struct{})
	}
	if z.objectProtos == nil {
		z.objectProtos = make(map[EntityId]struct{})
	}
	if z.mobileProtos == nil {
		z.mobileProtos = make(map[EntityId]struct{})
	}
	for id := range z.rooms {
		if r, ok := w.rooms[id]; ok && r.zone.Valid() && r.zone != z.Id {
			return fmt.Errorf("zone %d: room %d already belongs to zone %d: %w", z.Id, id, r.zone, ErrExists)
		}
	}

	for id := range z.rooms {
		if r, ok := w.rooms[id]; ok {
			r.zone = z.Id
		}
	}
	w.zones[z.Id] = z
	return nil
}

// RemoveZone despawns the zone's instances, drops its prototypes and
// unregisters it. Its rooms stay registered without an owner.
func (w *World) RemoveZone(id EntityId) error {
	z, ok := w.zones[id]
	if !ok {
		return fmt.Errorf("zone %d: %w", id, ErrNotFound)
	}
	w.CleanupZone(id)
	for pid := range z.objectProtos {
		delete(w.objectProtos, pid)
	}
	for pid := range z.mobileProtos {
		delete(w.mobileProtos, pid)
	}
	for rid := range z.rooms {
		if r, ok := w.rooms[rid]; ok && r.zone == id {
			r.zone = InvalidId
		}
	}
	delete(w.scheduled, id)
	delete(w.zones, id)
	return nil
}

// --- Prototypes ---

// AddObjectPrototype registers an object prototype owned by a zone.
func (w *World) AddObjectPrototype(zoneId EntityId, p *ObjectPrototype) error {
	z, ok := w.zones[zoneId]
	if !ok {
		return fmt.Errorf("zone %d: %w", zoneId, ErrNotFound)
	}
	if _, exists := w.objectProtos[p.Id]; exists {
		return fmt.Errorf("object prototype %d: %w", p.Id, ErrExists)
	}
	p.zone = zoneId
	z.objectProtos[p.Id] = struct{}{}
	w.objectProtos[p.Id] = p
	return nil
}

// AddMobilePrototype registers a mobile prototype owned by a zone.
func (w *World) AddMobilePrototype(zoneId EntityId, p *MobilePrototype) error {
	z, ok := w.zones[zoneId]
	if !ok {
		return fmt.Errorf("zone %d: %w", zoneId, ErrNotFound)
	}
	if _, exists := w.mobileProtos[p.Id]; exists {
		return fmt.Errorf("mobile prototype %d: %w", p.Id, ErrExists)
	}
	p.zone = zoneId
	z.mobileProtos[p.Id] = struct{}{}
	w.mobileProtos[p.Id] = p
	return nil
}

// ObjectPrototype returns the prototype or nil.
func (w *World) ObjectPrototype(id EntityId) *ObjectPrototype {
	return w.objectProtos[id]
}

// MobilePrototype returns the prototype or nil.
func (w *World) MobilePrototype(id EntityId) *MobilePrototype {
	return w.mobileProtos[id]
}

// --- Actors ---

// Actor returns a live player or mobile, or nil.
func (w *World) Actor(id EntityId) Actor {
	return w.actors[id]
}

// Player returns a live player or nil.
func (w *World) Player(id EntityId) *Player {
	return w.players[id]
}

// Players returns live players ordered by id.
func (w *World) Players() []*Player {
	ids := make([]EntityId, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*Player, 0, len(ids))
	for _, id := range ids {
		out = append(out, w.players[id])
	}
	return out
}

// FindPlayer looks up a live player by name, case-insensitive.
func (w *World) FindPlayer(name string) *Player {
	for _, p := range w.players {
		if strings.EqualFold(p.name, name) {
			return p
		}
	}
	return nil
}

// NewPlayer allocates a player with a fresh id. It is not in the world
// until AddPlayer places it.
func (w *World) NewPlayer(name string, level int, account string) *Player {
	return &Player{
		actorBase: newActorBase(w.ids.Next(), name, level),
		Account:   account,
	}
}

// AddPlayer registers a player and places it in a room.
func (w *World) AddPlayer(p *Player, roomId EntityId) error {
	if _, exists := w.actors[p.id]; exists {
		return fmt.Errorf("player %d: %w", p.id, ErrExists)
	}
	room, ok := w.rooms[roomId]
	if !ok {
		return fmt.Errorf("room %d: %w", roomId, ErrNotFound)
	}
	w.actors[p.id] = p
	w.players[p.id] = p
	room.addActor(p.id)
	p.setRoom(roomId)
	return nil
}

// RemovePlayer takes a player out of its room and the registry. Anything it
// carries is despawned with it.
func (w *World) RemovePlayer(id EntityId) error {
	p, ok := w.players[id]
	if !ok {
		return fmt.Errorf("player %d: %w", id, ErrNotFound)
	}
	w.despawnCarried(p)
	if r, ok := w.rooms[p.room]; ok {
		r.removeActor(id)
	}
	p.setRoom(InvalidId)
	delete(w.players, id)
	delete(w.actors, id)
	return nil
}

// --- Output ---

// SendText delivers text to a player's session. Mobiles are ignored.
func (w *World) SendText(actorId EntityId, text string) {
	w.publish(actorId, Output{Text: text})
}

// SendPrompt delivers a prompt, which the session terminates with GA.
func (w *World) SendPrompt(actorId EntityId, text string) {
	w.publish(actorId, Output{Text: text, Prompt: true})
}

// SendDisconnect delivers a final message and asks the session to close. The
// player must still be registered when this is called.
func (w *World) SendDisconnect(actorId EntityId, text string) {
	w.publish(actorId, Output{Text: text, Disconnect: true})
}

// SendGMCP delivers a GMCP message to a player's session.
func (w *World) SendGMCP(actorId EntityId, module string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshalling gmcp output", "module", module, "error", err)
		return
	}
	w.publish(actorId, Output{Module: module, Data: data})
}

// SendRoom delivers text to every player in a room except those excluded.
func (w *World) SendRoom(roomId EntityId, text string, exclude ...EntityId) {
	r, ok := w.rooms[roomId]
	if !ok {
		return
	}
	for _, id := range r.Actors() {
		if slices.Contains(exclude, id) {
			continue
		}
		w.publish(id, Output{Text: text})
	}
}

func (w *World) publish(actorId EntityId, out Output) {
	if w.publisher == nil {
		return
	}
	if _, ok := w.players[actorId]; !ok {
		return
	}
	if err := w.publisher.Publish(actorId, out); err != nil {
		slog.Warn("publishing output", "actor", actorId, "error", err)
	}
}

// --- Statistics ---

// WorldStats is a point-in-time summary for admin queries.
type WorldStats struct {
	Zones            int
	Rooms            int
	ObjectPrototypes int
	MobilePrototypes int
	Players          int
	Mobiles          int
	Objects          int
	ScheduledResets  int
}

// Stats summarises registry sizes. Call it inside View from other goroutines.
func (w *World) Stats() WorldStats {
	return WorldStats{
		Zones:            len(w.zones),
		Rooms:            len(w.rooms),
		ObjectPrototypes: len(w.objectProtos),
		MobilePrototypes: len(w.mobileProtos),
		Players:          len(w.players),
		Mobiles:          len(w.mobiles),
		Objects:          len(w.objects),
		ScheduledResets:  len(w.scheduled),
	}
}
