package messaging

import (
	"maps"
	"slices"
	"sync"
)

// LocalBus is an in-process Bus. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type LocalBus struct {
	mu     sync.RWMutex
	nextId int
	subs   map[string]map[int]func([]byte)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: map[string]map[int]func([]byte){}}
}

func (b *LocalBus) Publish(subject string, data []byte) error {
	b.mu.RLock()
	subs := b.subs[subject]
	handlers := make([]func([]byte), 0, len(subs))
	for _, id := range slices.Sorted(maps.Keys(subs)) {
		handlers = append(handlers, subs[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(data)
	}
	return nil
}

func (b *LocalBus) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextId
	b.nextId++
	if b.subs[subject] == nil {
		b.subs[subject] = map[int]func([]byte){}
	}
	b.subs[subject][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[subject], id)
			if len(b.subs[subject]) == 0 {
				delete(b.subs, subject)
			}
		})
	}, nil
}
