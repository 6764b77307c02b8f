package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	"github.com/pixil98/mudcore/internal/game"
)

func TestLocalBus(t *testing.T) {
	bus := NewLocalBus()

	var got []string
	unsubA, err := bus.Subscribe("actor-1", func(data []byte) { got = append(got, "a:"+string(data)) })
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	_, err = bus.Subscribe("actor-1", func(data []byte) { got = append(got, "b:"+string(data)) })
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	_ = bus.Publish("actor-1", []byte("hi"))
	_ = bus.Publish("actor-2", []byte("nobody"))
	unsubA()
	unsubA()
	_ = bus.Publish("actor-1", []byte("again"))

	exp := []string{"a:hi", "b:hi", "b:again"}
	testutil.AssertEqual(t, "count", len(got), len(exp))
	for i := range exp {
		testutil.AssertEqual(t, "message", got[i], exp[i])
	}
}

func TestBusPublisher(t *testing.T) {
	bus := NewLocalBus()
	pub := NewBusPublisher(bus)

	var got []game.Output
	unsub, err := SubscribeActor(bus, 42, func(out game.Output) { got = append(got, out) })
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer unsub()

	if err := pub.Publish(42, game.Output{Text: "Hello.\n", Prompt: true}); err != nil {
		t.Fatalf("publishing: %v", err)
	}
	if err := pub.Publish(43, game.Output{Text: "elsewhere"}); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	testutil.AssertEqual(t, "delivered", len(got), 1)
	testutil.AssertEqual(t, "text", got[0].Text, "Hello.\n")
	testutil.AssertEqual(t, "prompt", got[0].Prompt, true)
	testutil.AssertEqual(t, "subject", ActorSubject(42), "actor-42")
}

func TestNatsServerInProcess(t *testing.T) {
	ns, err := NewNatsServer(WithInProcess(), WithStartTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ns.Start(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	select {
	case <-ns.Ready():
	case err := <-done:
		t.Fatalf("server exited: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server not ready")
	}

	received := make(chan game.Output, 1)
	unsub, err := SubscribeActor(ns, 7, func(out game.Output) { received <- out })
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer unsub()

	if err := NewBusPublisher(ns).Publish(7, game.Output{Text: "over the wire"}); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	select {
	case out := <-received:
		testutil.AssertEqual(t, "text", out.Text, "over the wire")
	case <-time.After(5 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestNatsServerNotReady(t *testing.T) {
	ns, err := NewNatsServer(WithInProcess())
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	_, err = ns.Subscribe("actor-1", func([]byte) {})
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("subscribe: expected ErrNotReady, got %v", err)
	}
	err = ns.Publish("actor-1", []byte("early"))
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("publish: expected ErrNotReady, got %v", err)
	}
}

// subscribeOnly hides Publish so SubscribeActor sees nothing but Subscribe.
type subscribeOnly struct {
	bus *LocalBus
}

func (s subscribeOnly) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	return s.bus.Subscribe(subject, handler)
}

func TestSubscribeActorNeedsOnlySubscribe(t *testing.T) {
	bus := NewLocalBus()

	var got []string
	unsub, err := SubscribeActor(subscribeOnly{bus: bus}, 9, func(out game.Output) { got = append(got, out.Text) })
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer unsub()

	if err := NewBusPublisher(bus).Publish(9, game.Output{Text: "listening"}); err != nil {
		t.Fatalf("publishing: %v", err)
	}
	testutil.AssertEqual(t, "delivered", len(got), 1)
	testutil.AssertEqual(t, "text", got[0], "listening")
}
