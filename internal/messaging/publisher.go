package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/pixil98/mudcore/internal/game"
)

// Subscriber registers a handler for raw messages on a subject.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// Bus moves raw messages between publishers and subscribers by subject.
// NatsServer and LocalBus both satisfy it.
type Bus interface {
	Subscriber
	Publish(subject string, data []byte) error
}

// ActorSubject is the subject a session listens on for its actor's output.
func ActorSubject(id game.EntityId) string {
	return fmt.Sprintf("actor-%d", id)
}

// BusPublisher delivers world output to the subject of each actor.
type BusPublisher struct {
	bus Bus
}

// NewBusPublisher wraps a Bus for per-actor message delivery.
func NewBusPublisher(bus Bus) *BusPublisher {
	return &BusPublisher{bus: bus}
}

func (p *BusPublisher) Publish(actorId game.EntityId, out game.Output) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshalling output: %w", err)
	}
	return p.bus.Publish(ActorSubject(actorId), data)
}

// SubscribeActor decodes output published for one actor and hands it to fn.
func SubscribeActor(bus Subscriber, actorId game.EntityId, fn func(game.Output)) (func(), error) {
	return bus.Subscribe(ActorSubject(actorId), func(data []byte) {
		var out game.Output
		if err := json.Unmarshal(data, &out); err != nil {
			return
		}
		fn(out)
	})
}
