package driver

import (
	"context"
	"log/slog"
	"time"

	"github.com/pixil98/mudcore/internal/game"
)

type every struct {
	interval time.Duration
	next     time.Time
	now      func() time.Time
	m        Manager
}

// Every throttles m so it ticks at most once per interval.
func Every(interval time.Duration, m Manager) Manager {
	return &every{interval: interval, now: time.Now, m: m}
}

func (e *every) Tick(ctx context.Context) error {
	now := e.now()
	if now.Before(e.next) {
		return nil
	}
	e.next = now.Add(e.interval)
	return e.m.Tick(ctx)
}

// ManagerFunc adapts a function to Manager.
type ManagerFunc func(context.Context) error

func (f ManagerFunc) Tick(ctx context.Context) error { return f(ctx) }

// ZoneResetManager runs due zone resets.
type ZoneResetManager struct {
	world *game.World
}

func NewZoneResetManager(w *game.World) *ZoneResetManager {
	return &ZoneResetManager{world: w}
}

func (m *ZoneResetManager) Tick(ctx context.Context) error {
	for _, res := range m.world.ProcessZoneResets(m.world.Now()) {
		slog.DebugContext(ctx, "zone reset",
			"zone", res.Zone,
			"spawned", res.Spawned,
			"despawned", res.Despawned,
			"skipped", res.Skipped,
			"failed", res.Failed,
			"duration", res.Duration)
	}
	return nil
}

// Heartbeat logs serializer and world statistics.
type Heartbeat struct {
	driver *MudDriver
}

func NewHeartbeat(d *MudDriver) *Heartbeat {
	return &Heartbeat{driver: d}
}

func (h *Heartbeat) Tick(ctx context.Context) error {
	h.driver.heartbeats.Add(1)
	h.driver.pruneLimiters()

	ds := h.driver.Stats()
	ws := h.driver.world.Stats()
	slog.InfoContext(ctx, "heartbeat",
		"uptime", ds.Uptime.Round(time.Second),
		"processed", ds.Processed,
		"failed", ds.Failed,
		"rejected_full", ds.RejectedFull,
		"rejected_limited", ds.RejectedLimited,
		"queued", ds.Queued,
		"players", ws.Players,
		"mobiles", ws.Mobiles,
		"objects", ws.Objects,
		"scheduled_resets", ws.ScheduledResets)
	return nil
}
