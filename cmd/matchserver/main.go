// Command matchserver is the engine's standalone host process: it loads a
// map description and configuration, runs a single Match's tick loop, and
// exposes the operator console while it runs (SPEC_FULL.md §4.10). Graceful
// shutdown on SIGINT/SIGTERM and a persisted match snapshot on exit follow
// the teacher's own process-lifecycle idiom.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/s4lvi/historyengine-sub002/config"
	"github.com/s4lvi/historyengine-sub002/console"
	"github.com/s4lvi/historyengine-sub002/delta"
	"github.com/s4lvi/historyengine-sub002/mapdata"
	"github.com/s4lvi/historyengine-sub002/match"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to a TOML config file (defaults applied on top)")
		mapPath     = flag.String("map", "", "path to a JSON map description")
		matchID     = flag.String("match", "default", "match identifier, used as the persistence record key")
		storePath   = flag.String("store", "", "LevelDB directory for match persistence (disabled if empty)")
		interactive = flag.Bool("interactive", true, "run the operator console against os.Stdin")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *mapPath == "" {
		log.Error("matchserver: -map is required")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error("matchserver: config load failed", "err", err)
		os.Exit(1)
	}

	cells, err := mapdata.Load(*mapPath)
	if err != nil {
		log.Error("matchserver: map load failed", "err", err)
		os.Exit(1)
	}

	var store *delta.Store
	if *storePath != "" {
		store, err = delta.OpenStore(*storePath)
		if err != nil {
			log.Error("matchserver: store open failed", "err", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	m, err := restoreOrCreate(store, *matchID, cells, cfg, log)
	if err != nil {
		log.Error("matchserver: matrix init failed", "err", err)
		os.Exit(1)
	}

	mt := match.New(*matchID, cfg, m, nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("matchserver: shutting down")
		cancel()
	}()

	if *interactive {
		c := console.New(mt.Queue, log)
		go c.Run(ctx)
	}

	onTick := func(out match.Output) {
		if len(out.Deltas) == 0 {
			return
		}
		log.Debug("tick applied", "tick", out.Tick, "changedNations", len(out.Deltas))
	}

	mt.Run(ctx, onTick)

	if store != nil {
		data, err := delta.Serialize(mt.M, delta.Version1)
		if err != nil {
			log.Error("matchserver: final serialize failed", "err", err)
			return
		}
		if err := store.Save(*matchID, delta.Version1, data); err != nil {
			log.Error("matchserver: final save failed", "err", err)
		}
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Config{}.WithDefaults(), nil
	}
	return config.Load(path)
}

// restoreOrCreate loads a prior match snapshot from store when present,
// falling back to a fresh Matrix built from the map description.
func restoreOrCreate(store *delta.Store, matchID string, cells [][]matrix.Cell, cfg config.Config, log *slog.Logger) (*matrix.Matrix, error) {
	resistance := mapdata.Resistance(cfg.Matrix)
	if store != nil {
		data, err := store.Load(matchID, delta.Version1)
		if err == nil {
			log.Info("matchserver: restoring match from store", "match", matchID)
			return delta.Deserialize(data, cells, resistance)
		}
	}

	h := len(cells)
	w := len(cells[0])
	m := matrix.New(w, h, cfg.MaxNations)
	if err := m.PopulateStatic(cells, resistance); err != nil {
		return nil, err
	}
	return m, nil
}
