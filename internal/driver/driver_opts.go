package driver

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/pixil98/mudcore/internal/game"
)

type MudDriverOpt func(*MudDriver)

func WithTickLength(tickLength time.Duration) MudDriverOpt {
	return func(d *MudDriver) {
		d.tickLength = tickLength
	}
}

func WithManagers(managers ...Manager) MudDriverOpt {
	return func(d *MudDriver) {
		d.managers = append(d.managers, managers...)
	}
}

func WithQueueSize(n int) MudDriverOpt {
	return func(d *MudDriver) {
		d.queue = make(chan unit, n)
	}
}

// WithRateLimit sets the per-actor command rate and burst.
func WithRateLimit(perSecond float64, burst int) MudDriverOpt {
	return func(d *MudDriver) {
		d.rateLimit = rate.Limit(perSecond)
		d.rateBurst = burst
	}
}

func WithLoader(l Loader) MudDriverOpt {
	return func(d *MudDriver) {
		d.loader = l
	}
}

func WithJournal(j Journal) MudDriverOpt {
	return func(d *MudDriver) {
		d.journal = j
	}
}

// WithStopHook runs fn inside the serializer when the driver stops.
func WithStopHook(fn func(ctx context.Context, w *game.World)) MudDriverOpt {
	return func(d *MudDriver) {
		d.stopHooks = append(d.stopHooks, fn)
	}
}

// WithHeartbeat logs serializer and world statistics every interval.
func WithHeartbeat(interval time.Duration) MudDriverOpt {
	return func(d *MudDriver) {
		d.managers = append(d.managers, Every(interval, NewHeartbeat(d)))
	}
}
