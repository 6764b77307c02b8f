package game

import "slices"

// RoomFilter restricts the rooms a path may enter.
type RoomFilter func(*Room) bool

// FindPath returns the shortest sequence of directions from one room to
// another. Exits are expanded in AllDirections order, so equal-length paths
// are chosen deterministically. An empty result means unreachable, or that
// from and to are the same room.
func (w *World) FindPath(from, to EntityId, filters ...RoomFilter) []Direction {
	return w.bfs(from, to, func(r *Room) bool {
		if r.IsFull() {
			return false
		}
		for _, f := range filters {
			if !f(r) {
				return false
			}
		}
		return true
	})
}

// FindPathFor finds a path the actor would be allowed to walk.
func (w *World) FindPathFor(actorId EntityId, to EntityId) []Direction {
	actor, ok := w.actors[actorId]
	if !ok {
		return nil
	}
	return w.bfs(actor.Room(), to, func(r *Room) bool {
		reason, _ := w.checkEntry(actor, r)
		return reason == MoveOK
	})
}

// Distance returns the number of steps between two rooms, 0 for the same
// room and -1 when unreachable.
func (w *World) Distance(from, to EntityId, filters ...RoomFilter) int {
	if _, ok := w.rooms[from]; !ok {
		return -1
	}
	if from == to {
		return 0
	}
	path := w.FindPath(from, to, filters...)
	if len(path) == 0 {
		return -1
	}
	return len(path)
}

type pathStep struct {
	prev EntityId
	dir  Direction
}

func (w *World) bfs(from, to EntityId, allow func(*Room) bool) []Direction {
	if from == to {
		return []Direction{}
	}
	if _, ok := w.rooms[from]; !ok {
		return []Direction{}
	}
	if _, ok := w.rooms[to]; !ok {
		return []Direction{}
	}

	visited := map[EntityId]pathStep{from: {}}
	queue := []EntityId{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		room := w.rooms[cur]

		for _, dir := range AllDirections {
			exit := room.Exit(dir)
			if exit == nil || !exit.Passable() {
				continue
			}
			next := exit.ToRoom
			if _, seen := visited[next]; seen {
				continue
			}
			nr, ok := w.rooms[next]
			if !ok || !allow(nr) {
				continue
			}
			visited[next] = pathStep{prev: cur, dir: dir}
			if next == to {
				return unwind(visited, from, to)
			}
			queue = append(queue, next)
		}
	}
	return []Direction{}
}

func unwind(visited map[EntityId]pathStep, from, to EntityId) []Direction {
	var path []Direction
	for cur := to; cur != from; {
		step := visited[cur]
		path = append(path, step.dir)
		cur = step.prev
	}
	slices.Reverse(path)
	return path
}
