package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-service"

	"github.com/pixil98/mudcore/internal/commands"
	"github.com/pixil98/mudcore/internal/driver"
	"github.com/pixil98/mudcore/internal/game"
	"github.com/pixil98/mudcore/internal/listener"
	"github.com/pixil98/mudcore/internal/messaging"
	"github.com/pixil98/mudcore/internal/player"
	"github.com/pixil98/mudcore/internal/session"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	logger, err := cfg.Logging.buildLogger()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	slog.SetDefault(logger)

	workers := service.WorkerList{}

	// Message bus carrying world output to sessions
	bus, busWorker, busReady, err := cfg.Nats.buildBus()
	if err != nil {
		return nil, fmt.Errorf("creating message bus: %w", err)
	}
	if busWorker != nil {
		workers["nats"] = busWorker
	}

	world := game.NewWorld(game.WithPublisher(messaging.NewBusPublisher(bus)))

	// Characters and login
	chars, err := cfg.Storage.Characters.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating character store: %w", err)
	}
	pm, err := cfg.Player.buildManager(chars, player.WithEnterHook(func(_ context.Context, w *game.World, p *game.Player) {
		commands.Look(w, p)
	}))
	if err != nil {
		return nil, fmt.Errorf("creating player manager: %w", err)
	}

	// Command interpreter
	cmdOpts, err := cfg.Storage.commandOpts()
	if err != nil {
		return nil, err
	}
	cmdOpts = append(cmdOpts, commands.WithDeparter(pm), commands.WithSaver(pm))
	interp, err := commands.NewHandler(cmdOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating command handler: %w", err)
	}

	// Setup the mud driver
	driverOpts, err := cfg.Driver.options(cfg.TickInterval)
	if err != nil {
		return nil, err
	}
	// Saves made in the serializer are only queued; the stop hook is the one
	// place that waits for the disk.
	saveAll := func(ctx context.Context, w *game.World) {
		if err := pm.SaveAll(ctx, w); err != nil {
			slog.ErrorContext(ctx, "saving players", "error", err)
		}
		if err := pm.Flush(ctx); err != nil {
			slog.ErrorContext(ctx, "writing player saves", "error", err)
		}
	}
	driverOpts = append(driverOpts,
		driver.WithLoader(cfg.Zones.buildLoader()),
		driver.WithManagers(
			driver.NewZoneResetManager(world),
			driver.Every(cfg.Driver.saveInterval(), driver.ManagerFunc(func(ctx context.Context) error {
				return pm.SaveAll(ctx, world)
			})),
		),
		driver.WithStopHook(saveAll),
	)

	j, err := cfg.Journal.buildJournal()
	if err != nil {
		return nil, fmt.Errorf("creating journal: %w", err)
	}
	if j != nil {
		workers["journal"] = j
		driverOpts = append(driverOpts, driver.WithJournal(j))
	}

	d := driver.NewMudDriver(world, interp, driverOpts...)
	workers["driver"] = d
	workers["player-saves"] = pm

	// Sessions
	regOpts, err := cfg.Session.options()
	if err != nil {
		return nil, err
	}
	reg := session.NewRegistry(d, bus, pm, pm, regOpts...)
	workers["sessions"] = reg

	// Create Listeners
	cm := listener.NewConnectionManager(reg, d.Ready(), busReady)
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		listener, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = listener
	}
	workers["listeners"] = &listeners

	if cfg.Zones.Watch {
		watcher, err := cfg.Zones.buildWatcher(d, d.Ready())
		if err != nil {
			return nil, fmt.Errorf("creating zone watcher: %w", err)
		}
		workers["zone-watcher"] = watcher
	}

	return workers, nil
}
