// Package driver serializes every world mutation through one goroutine.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pixil98/go-errors"
	"golang.org/x/time/rate"

	"github.com/pixil98/mudcore/internal/game"
	"github.com/pixil98/mudcore/internal/journal"
)

const (
	DefaultTickLength = time.Second * 2
	DefaultQueueSize  = 4096
	DefaultRateLimit  = 20
	DefaultRateBurst  = 40

	DefaultHeartbeatInterval = 30 * time.Second
)

// Manager is periodic maintenance. Tick runs inside the serializer with the
// world locked, so it may use the world directly.
type Manager interface {
	Tick(context.Context) error
}

// Result is what an Interpreter reports about one command.
type Result struct {
	Quit bool
	Err  error
}

// Interpreter executes a line of player input against the world.
type Interpreter interface {
	Execute(ctx context.Context, w *game.World, actor game.Actor, text string) Result
}

// Loader prepares the world off the serializer. The returned function is
// applied inside the serializer.
type Loader interface {
	Load(ctx context.Context) (func(ctx context.Context, w *game.World) error, error)
}

// Journal receives a record of every executed unit.
type Journal interface {
	Record(journal.Entry)
}

type unit struct {
	name   string
	actor  game.EntityId
	text   string
	fn     func(ctx context.Context, w *game.World)
	queued time.Time
}

func (u unit) kind() string {
	if u.fn != nil {
		return "unit"
	}
	return "command"
}

type MudDriver struct {
	world      *game.World
	interp     Interpreter
	loader     Loader
	journal    Journal
	tickLength time.Duration
	managers   []Manager
	stopHooks  []func(ctx context.Context, w *game.World)

	queue chan unit

	limiterMu sync.Mutex
	limiters  map[game.EntityId]*rate.Limiter
	rateLimit rate.Limit
	rateBurst int

	ready     chan struct{}
	readyOnce sync.Once
	stopped   atomic.Bool
	started   time.Time

	processed       atomic.Uint64
	failed          atomic.Uint64
	rejectedFull    atomic.Uint64
	rejectedLimited atomic.Uint64
	heartbeats      atomic.Uint64
}

func NewMudDriver(world *game.World, interp Interpreter, opts ...MudDriverOpt) *MudDriver {
	d := &MudDriver{
		world:      world,
		interp:     interp,
		tickLength: DefaultTickLength,
		queue:      make(chan unit, DefaultQueueSize),
		limiters:   map[game.EntityId]*rate.Limiter{},
		rateLimit:  DefaultRateLimit,
		rateBurst:  DefaultRateBurst,
		ready:      make(chan struct{}),
		started:    time.Now(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Ready is closed once the world has been loaded.
func (d *MudDriver) Ready() <-chan struct{} {
	return d.ready
}

// Submit queues a line of input for an actor. It never blocks.
func (d *MudDriver) Submit(actorId game.EntityId, text string) error {
	if d.stopped.Load() {
		return ErrStopped
	}
	if !d.limiter(actorId).Allow() {
		d.rejectedLimited.Add(1)
		return ErrRateLimited
	}
	select {
	case d.queue <- unit{actor: actorId, text: text, queued: time.Now()}:
		return nil
	default:
		d.rejectedFull.Add(1)
		return ErrQueueFull
	}
}

// Post queues an internal unit. It is never rate limited.
func (d *MudDriver) Post(name string, fn func(ctx context.Context, w *game.World)) error {
	if d.stopped.Load() {
		return ErrStopped
	}
	select {
	case d.queue <- unit{name: name, fn: fn, queued: time.Now()}:
		return nil
	default:
		d.rejectedFull.Add(1)
		slog.Warn("dropping unit, queue full", "unit", name)
		return fmt.Errorf("posting %s: %w", name, ErrQueueFull)
	}
}

func (d *MudDriver) limiter(actorId game.EntityId) *rate.Limiter {
	d.limiterMu.Lock()
	defer d.limiterMu.Unlock()
	l, ok := d.limiters[actorId]
	if !ok {
		l = rate.NewLimiter(d.rateLimit, d.rateBurst)
		d.limiters[actorId] = l
	}
	return l
}

// pruneLimiters forgets actors whose bucket has refilled.
func (d *MudDriver) pruneLimiters() {
	d.limiterMu.Lock()
	defer d.limiterMu.Unlock()
	for id, l := range d.limiters {
		if l.Tokens() >= float64(d.rateBurst) {
			delete(d.limiters, id)
		}
	}
}

// Start runs the serializer until ctx is cancelled.
func (d *MudDriver) Start(ctx context.Context) error {
	loadErr := make(chan error, 1)
	if d.loader != nil {
		go d.load(ctx, loadErr)
	} else {
		d.markReady()
	}

	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.Stop(ctx)
			return nil
		case err := <-loadErr:
			d.Stop(ctx)
			return fmt.Errorf("loading world: %w", err)
		case u := <-d.queue:
			d.run(ctx, u)
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil {
				slog.ErrorContext(ctx, "maintenance tick", "error", err)
			}
		}
	}
}

func (d *MudDriver) load(ctx context.Context, loadErr chan<- error) {
	apply, err := d.loader.Load(ctx)
	if err != nil {
		loadErr <- err
		return
	}
	u := unit{name: "load world", queued: time.Now(), fn: func(ctx context.Context, w *game.World) {
		if err := apply(ctx, w); err != nil {
			loadErr <- err
			return
		}
		stats := w.Stats()
		slog.InfoContext(ctx, "world loaded", "zones", stats.Zones, "rooms", stats.Rooms, "mobiles", stats.Mobiles, "objects", stats.Objects)
		d.markReady()
	}}
	select {
	case d.queue <- u:
	case <-ctx.Done():
	}
}

func (d *MudDriver) markReady() {
	d.readyOnce.Do(func() { close(d.ready) })
}

// Tick runs every manager once.
func (d *MudDriver) Tick(ctx context.Context) error {
	el := errors.NewErrorList()
	d.world.Exclusive(func(*game.World) {
		for _, m := range d.managers {
			el.Add(m.Tick(ctx))
		}
	})
	return el.Err()
}

// Stop refuses further input and runs the stop hooks. Units still queued are
// discarded.
func (d *MudDriver) Stop(ctx context.Context) {
	if d.stopped.Swap(true) {
		return
	}
	discarded := len(d.queue)
	d.world.Exclusive(func(w *game.World) {
		for _, hook := range d.stopHooks {
			hook(ctx, w)
		}
	})
	slog.InfoContext(ctx, "driver stopped", "discarded", discarded, "processed", d.processed.Load())
}

func (d *MudDriver) run(ctx context.Context, u unit) {
	start := time.Now()
	outcome := "ok"

	d.world.Exclusive(func(w *game.World) {
		defer func() {
			if r := recover(); r != nil {
				outcome = "panic"
				slog.ErrorContext(ctx, "unit panicked", "unit", u.name, "actor", u.actor, "panic", r)
			}
		}()

		if u.fn != nil {
			u.fn(ctx, w)
			return
		}

		actor := w.Actor(u.actor)
		if actor == nil || actor.IsMobile() {
			outcome = "no actor"
			return
		}
		res := d.interp.Execute(ctx, w, actor, u.text)
		switch {
		case res.Err != nil:
			outcome = "error"
			slog.ErrorContext(ctx, "executing command", "actor", u.actor, "text", u.text, "error", res.Err)
		case res.Quit:
			outcome = "quit"
		}
	})

	if outcome == "ok" || outcome == "quit" {
		d.processed.Add(1)
	} else {
		d.failed.Add(1)
	}

	if d.journal != nil {
		d.journal.Record(journal.Entry{
			Time:       u.queued,
			Kind:       u.kind(),
			Name:       u.name,
			Actor:      uint64(u.actor),
			Text:       u.text,
			DurationUs: time.Since(start).Microseconds(),
			Outcome:    outcome,
		})
	}
}

// Stats is a point in time view of serializer counters.
type Stats struct {
	Processed       uint64
	Failed          uint64
	RejectedFull    uint64
	RejectedLimited uint64
	Heartbeats      uint64
	Queued          int
	Uptime          time.Duration
}

// Stats is safe to call from any goroutine.
func (d *MudDriver) Stats() Stats {
	return Stats{
		Processed:       d.processed.Load(),
		Failed:          d.failed.Load(),
		RejectedFull:    d.rejectedFull.Load(),
		RejectedLimited: d.rejectedLimited.Load(),
		Heartbeats:      d.heartbeats.Load(),
		Queued:          len(d.queue),
		Uptime:          time.Since(d.started),
	}
}
