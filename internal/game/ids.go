package game

import "strconv"

// EntityId identifies a room, zone, prototype, actor or spawned instance.
// Zero is never a valid id.
type EntityId uint64

// InvalidId is the zero EntityId.
const InvalidId EntityId = 0

// InstanceIdBase is the first id handed out to actors and spawned instances.
// Ids read from zone documents must stay below it.
const InstanceIdBase EntityId = 1 << 32

// Valid reports whether id is non-zero.
func (id EntityId) Valid() bool {
	return id != InvalidId
}

func (id EntityId) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// idAllocator hands out monotonically increasing ids. Ids are never reused.
type idAllocator struct {
	next EntityId
}

func newIdAllocator() *idAllocator {
	return &idAllocator{next: InstanceIdBase}
}

func (a *idAllocator) Next() EntityId {
	id := a.next
	a.next++
	return id
}
