package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/mudcore/internal/storage"
)

// saver writes character snapshots off the world serializer. Queued saves
// for the same character coalesce, so the backlog never exceeds the number
// of characters and queueing never blocks.
type saver struct {
	chars storage.Storer[*Character]
	wake  chan struct{}

	mu       sync.Mutex
	pending  map[storage.Identifier]*Character
	inflight map[storage.Identifier]*Character

	// writeMu keeps the background loop and an explicit Flush from writing
	// the same character out of order.
	writeMu sync.Mutex
}

func newSaver(chars storage.Storer[*Character]) *saver {
	return &saver{
		chars:    chars,
		wake:     make(chan struct{}, 1),
		pending:  map[storage.Identifier]*Character{},
		inflight: map[storage.Identifier]*Character{},
	}
}

// queue records c as the newest state of id. c must not be modified after.
func (s *saver) queue(id storage.Identifier, c *Character) {
	s.mu.Lock()
	s.pending[id] = c
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// latest returns the newest known record for id, including snapshots that
// have not reached the store yet.
func (s *saver) latest(id storage.Identifier) (*Character, bool) {
	s.mu.Lock()
	if c, ok := s.pending[id]; ok {
		s.mu.Unlock()
		return c, true
	}
	if c, ok := s.inflight[id]; ok {
		s.mu.Unlock()
		return c, true
	}
	s.mu.Unlock()
	return s.chars.Get(id)
}

func (s *saver) backlog() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *saver) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if err := s.flush(); err != nil {
				slog.Error("saving characters on shutdown", "error", err)
			}
			return nil
		case <-s.wake:
			if err := s.flush(); err != nil {
				slog.ErrorContext(ctx, "saving characters", "error", err)
			}
		}
	}
}

// flush writes everything queued so far. A failed write goes back on the
// queue unless a newer snapshot replaced it meanwhile.
func (s *saver) flush() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	batch := s.pending
	s.pending = map[storage.Identifier]*Character{}
	for id, c := range batch {
		s.inflight[id] = c
	}
	s.mu.Unlock()

	el := errors.NewErrorList()
	for id, c := range batch {
		err := s.chars.Save(id, c)

		s.mu.Lock()
		if s.inflight[id] == c {
			delete(s.inflight, id)
		}
		if err != nil {
			if _, newer := s.pending[id]; !newer {
				s.pending[id] = c
			}
		}
		s.mu.Unlock()

		if err != nil {
			el.Add(fmt.Errorf("saving %s: %w", id, err))
		}
	}
	return el.Err()
}
