package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"terrafold.sim/internal/persistence/indexdb"
	persistlog "terrafold.sim/internal/persistence/log"
	"terrafold.sim/internal/persistence/snapshot"
	"terrafold.sim/internal/sim/tuning"
	"terrafold.sim/internal/sim/world"
	"terrafold.sim/internal/sim/world/grid"
)

func main() {
	var (
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")

		agents = flag.Int("agents", 0, "agents to spawn per faction on a fresh world")
		dev    = flag.Bool("dev", false, "human-readable log output")
	)
	flag.Parse()

	logger := newLogger(*dev)
	defer func() { _ = logger.Sync() }()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatal("load tuning", zap.String("path", tp), zap.Error(err))
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatal("create world dir", zap.String("dir", worldDir), zap.Error(err))
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatal("open index db", zap.Error(err))
		}
		defer idx.Close()
	}

	cfg := world.WorldConfig{
		ID:                     *worldID,
		TickRateHz:             tune.TickRateHz,
		Seed:                   *seed,
		GridSize:               tune.Terrain.GridSize,
		TilesPerChunk:          tune.Terrain.TilesPerChunk,
		StepHeight:             tune.Terrain.StepHeight,
		MaxHeight:              tune.Terrain.MaxHeight,
		WaterLevel:             tune.Terrain.WaterLevel,
		MoveSpeedMilli:         tune.Movement.MoveSpeedMilli,
		ArriveLeewayMilli:      tune.Movement.ArriveLeewayMilli,
		StrengthDecayWaypoints: tune.Movement.StrengthDecayWaypoints,
		RoamRedirectSteps:      tune.Movement.RoamRedirectSteps,
		SettleRetryTicks:       tune.Movement.SettleRetryTicks,
		SettleScanRadius:       tune.Movement.SettleScanRadius,
		InitialStrength:        tune.Movement.InitialStrength,
		PathExpansionCap:       tune.Movement.PathExpansionCap,
		SnapshotEveryTicks:     tune.SnapshotEveryTicks,
		Factions:               tune.Factions,
	}

	structures := world.NewStructureTable()
	w, resumed, err := openWorld(cfg, *snapPath, *loadLatest, idx, structures, logger)
	if err != nil {
		logger.Fatal("open world", zap.Error(err))
	}

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()
	if idx != nil {
		w.SetTickLogger(multiTickLogger{tickLog, idx})
	} else {
		w.SetTickLogger(tickLog)
	}

	editLog := persistlog.NewEditLogger(worldDir)
	defer editLog.Close()
	w.Watch(func(r grid.Rect) {
		_ = editLog.WriteEdit(persistlog.EditEntry{
			Tick: w.CurrentTick(),
			MinX: r.Min.X, MinZ: r.Min.Z,
			MaxX: r.Max.X, MaxZ: r.Max.Z,
		})
	})

	snapCh := make(chan snapshot.SnapshotV1, 1)
	w.SetSnapshotSink(snapCh)
	go writeSnapshots(worldDir, snapCh, idx, logger)

	if !resumed && *agents > 0 {
		for f := 0; f < cfg.Factions; f++ {
			for i := 0; i < *agents; i++ {
				w.Inbox() <- world.Command{
					Kind:    world.CmdSpawnAgent,
					Faction: f,
					X:       cfg.GridSize / 2,
					Z:       cfg.GridSize / 2,
				}
			}
		}
	}

	go readCommands(os.Stdin, w.Inbox(), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("simulation running",
		zap.String("world", cfg.ID),
		zap.Int64("seed", cfg.Seed),
		zap.Int("grid_size", cfg.GridSize),
		zap.Uint64("tick", w.CurrentTick()),
		zap.Bool("resumed", resumed))

	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("simulation loop", zap.Error(err))
	}

	// Final snapshot on the way out.
	snap := w.ExportSnapshot(w.CurrentTick())
	path := snapshotPath(worldDir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		logger.Error("write final snapshot", zap.Error(err))
	} else {
		if idx != nil {
			idx.RecordSnapshot(path, snap)
		}
		logger.Info("final snapshot written", zap.String("path", path), zap.Uint64("tick", snap.Header.Tick))
	}
}

func newLogger(dev bool) *zap.Logger {
	if dev {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}

// openWorld resumes from an explicit snapshot, the newest indexed snapshot, or
// starts fresh, in that order.
func openWorld(cfg world.WorldConfig, snapPath string, loadLatest bool, idx *indexdb.SQLiteIndex, structures *world.StructureTable, logger *zap.Logger) (*world.World, bool, error) {
	if snapPath == "" && loadLatest && idx != nil {
		if p, tick, ok := idx.LatestSnapshot(); ok {
			logger.Info("resuming from indexed snapshot", zap.String("path", p), zap.Uint64("tick", tick))
			snapPath = p
		}
	}
	if snapPath != "" {
		snap, err := snapshot.ReadSnapshot(snapPath)
		if err != nil {
			return nil, false, fmt.Errorf("read snapshot %s: %w", snapPath, err)
		}
		w, err := world.NewFromSnapshot(cfg, snap, structures, structures)
		if err != nil {
			return nil, false, err
		}
		return w, true, nil
	}
	w, err := world.New(cfg, structures, structures)
	if err != nil {
		return nil, false, err
	}
	return w, false, nil
}

func snapshotPath(worldDir string, tick uint64) string {
	return filepath.Join(worldDir, "snapshots", fmt.Sprintf("tick_%012d.snap.zst", tick))
}

func writeSnapshots(worldDir string, ch <-chan snapshot.SnapshotV1, idx *indexdb.SQLiteIndex, logger *zap.Logger) {
	for snap := range ch {
		path := snapshotPath(worldDir, snap.Header.Tick)
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			logger.Error("write snapshot", zap.Uint64("tick", snap.Header.Tick), zap.Error(err))
			continue
		}
		if idx != nil {
			idx.RecordSnapshot(path, snap)
		}
		logger.Info("snapshot written", zap.String("path", path), zap.Uint64("tick", snap.Header.Tick))
	}
}

// readCommands feeds JSONL commands from stdin into the world inbox, one
// command per line, e.g. {"kind":"VOLCANO","x":32,"z":32,"radius":5}.
func readCommands(r *os.File, inbox chan<- world.Command, logger *zap.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var cmd world.Command
		if err := json.Unmarshal([]byte(line), &cmd); err != nil {
			logger.Warn("bad command line", zap.String("line", line), zap.Error(err))
			continue
		}
		inbox <- cmd
	}
}

// multiTickLogger fans one tick entry out to the JSONL log and the sqlite
// index. The JSONL file is the durable record; the index may drop entries
// under load.
type multiTickLogger struct {
	jsonl *persistlog.TickLogger
	idx   *indexdb.SQLiteIndex
}

func (m multiTickLogger) WriteTick(e world.TickLogEntry) error {
	err := m.jsonl.WriteTick(e)
	_ = m.idx.WriteTick(e)
	return err
}
