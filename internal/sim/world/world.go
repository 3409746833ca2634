package world

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"terrafold.sim/internal/persistence/snapshot"
	"terrafold.sim/internal/sim/world/grid"
	"terrafold.sim/internal/sim/world/path"
	"terrafold.sim/internal/sim/world/terrain"
)

// World is the single-threaded authoritative simulation: the terrain field, the
// agent arena, the factions, and the tick loop that drives them. All state must
// be accessed only from the loop goroutine; everything else talks through the
// command inbox.
type World struct {
	cfg     WorldConfig
	terrain *terrain.Field
	finder  *path.Finder

	structures  StructureProvider
	settlements SettlementDirectory

	factions []*Faction

	slots []agentSlot
	byID  map[string]Handle
	order []Handle // spawn order; the deterministic iteration order

	tick         atomic.Uint64
	nextAgentNum uint64
	rngState     uint64

	inbox chan Command
	stop  chan struct{}

	// Optional sinks (may be nil).
	tickLogger   TickLogger
	snapshotSink chan<- snapshot.SnapshotV1
	watchers     []func(grid.Rect)
}

type agentSlot struct {
	gen uint32
	a   *Agent // nil while the slot is free
}

// TickLogger records the command stream and resulting digest per tick; the
// replay tool re-applies the stream and verifies the digests.
type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type TickLogEntry struct {
	Tick     uint64    `json:"tick"`
	Commands []Command `json:"commands,omitempty"`
	Digest   string    `json:"digest"`
}

// New builds a world with freshly generated terrain. The structure layer is
// injected: pass a StructureTable for a self-contained world, or the real
// structure manager's adapter in a full game.
func New(cfg WorldConfig, structures StructureProvider, settlements SettlementDirectory) (*World, error) {
	cfg.applyDefaults()
	field, err := terrain.New(terrain.Params{
		GridSize:      cfg.GridSize,
		TilesPerChunk: cfg.TilesPerChunk,
		StepHeight:    cfg.StepHeight,
		MaxHeight:     cfg.MaxHeight,
		WaterLevel:    cfg.WaterLevel,
		Seed:          cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}
	return newWithField(cfg, field, structures, settlements)
}

func newWithField(cfg WorldConfig, field *terrain.Field, structures StructureProvider, settlements SettlementDirectory) (*World, error) {
	if structures == nil {
		return nil, fmt.Errorf("world %s: nil structure provider", cfg.ID)
	}
	w := &World{
		cfg:         cfg,
		terrain:     field,
		structures:  structures,
		settlements: settlements,
		byID:        map[string]Handle{},
		rngState:    uint64(cfg.Seed),
		inbox:       make(chan Command, 1024),
		stop:        make(chan struct{}),
	}
	w.finder = path.NewFinder(field, w)
	w.finder.MaxExpansions = cfg.PathExpansionCap
	for i := 0; i < cfg.Factions; i++ {
		w.factions = append(w.factions, newFaction(i, cfg.GridSize))
	}
	return w, nil
}

func (w *World) Config() WorldConfig { return w.cfg }
func (w *World) Terrain() *terrain.Field { return w.terrain }
func (w *World) CurrentTick() uint64 { return w.tick.Load() }
func (w *World) Inbox() chan<- Command { return w.inbox }
func (w *World) Faction(id int) *Faction { return w.factions[id] }

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

// Watch registers a callback for terrain-change rectangles (border walls,
// minimap and other excluded consumers). Called from the loop goroutine.
func (w *World) Watch(fn func(grid.Rect)) { w.watchers = append(w.watchers, fn) }

// TileImpassable adapts the structure provider to the pathfinder's occupancy
// view: a tile blocks diagonal cuts when covered by a non-permeable structure.
func (w *World) TileImpassable(t grid.Tile) bool {
	h, ok := w.structures.StructureAt(t)
	return ok && !w.structures.Permeable(h)
}

// tileFree implements the free-tile classification: flat and unoccupied.
func (w *World) tileFree(t grid.Tile) bool {
	if !w.terrain.TileInBounds(t) || !w.terrain.TileFlat(t) {
		return false
	}
	_, occupied := w.structures.StructureAt(t)
	return !occupied
}

// settleable is tileFree plus dry: nobody founds a settlement in the sea.
func (w *World) settleable(t grid.Tile) bool {
	return w.tileFree(t) && !w.terrain.TileUnderwater(t)
}

// Run drives the fixed-timestep loop until the context ends or Stop is called.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []Command
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case cmd := <-w.inbox:
			pending = append(pending, cmd)
		case <-ticker.C:
			w.step(pending)
			pending = pending[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// step advances the world one tick: commands (terrain edits first emit their
// change rectangles), then movement, then bookkeeping. The ordering guarantee
// the movement controllers rely on, that no agent ever reads terrain mid-edit,
// is exactly this function's statement order.
func (w *World) step(commands []Command) {
	nowTick := w.tick.Load()

	applied := make([]Command, 0, len(commands))
	for _, cmd := range commands {
		if w.applyCommand(cmd, nowTick) {
			applied = append(applied, cmd)
		}
	}

	w.systemMovement(nowTick)

	digest := w.stateDigest(nowTick)
	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{Tick: nowTick, Commands: applied, Digest: digest})
	}
	if w.snapshotSink != nil && nowTick != 0 && nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		snap := w.ExportSnapshot(nowTick)
		select {
		case w.snapshotSink <- snap:
		default:
			// Drop the snapshot if the sink is backed up.
		}
	}

	w.tick.Add(1)
}

// StepOnce advances one tick with the same ordering semantics as Run, returning
// the tick just simulated and its digest. Used by replays and tests.
func (w *World) StepOnce(commands []Command) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.step(commands)
	return tick, w.stateDigest(tick)
}

func (w *World) applyCommand(cmd Command, nowTick uint64) bool {
	switch cmd.Kind {
	case CmdModifyTerrain:
		rect, ok := w.terrain.ModifyTerrain(grid.Point{X: cmd.X, Z: cmd.Z}, cmd.Lower)
		if ok {
			w.terrainChanged(rect)
		}
		return ok

	case CmdEarthquake:
		rect, ok := w.terrain.CauseEarthquake(grid.Point{X: cmd.X, Z: cmd.Z}, cmd.Radius, cmd.Seed)
		if ok {
			w.terrainChanged(rect)
		}
		return ok

	case CmdVolcano:
		rect, ok := w.terrain.CauseVolcano(grid.Point{X: cmd.X, Z: cmd.Z}, cmd.Radius)
		if ok {
			w.coverVolcanoSlopes(grid.Point{X: cmd.X, Z: cmd.Z}, cmd.Radius)
			w.terrainChanged(rect)
		}
		return ok

	case CmdRaiseWater:
		w.terrain.RaiseWaterLevel()
		w.terrainChanged(grid.Rect{
			Min: grid.Point{X: 0, Z: 0},
			Max: grid.Point{X: w.cfg.GridSize, Z: w.cfg.GridSize},
		})
		return true

	case CmdSetBehavior:
		if cmd.Faction < 0 || cmd.Faction >= len(w.factions) {
			return false
		}
		w.setFactionBehavior(cmd.Faction, cmd.Behavior)
		return true

	case CmdSetRally:
		if cmd.Faction < 0 || cmd.Faction >= len(w.factions) {
			return false
		}
		f := w.factions[cmd.Faction]
		f.RallyTile = grid.Tile{X: cmd.X, Z: cmd.Z}
		f.HasRally = true
		return true

	case CmdSpawnAgent:
		_, ok := w.spawnAgent(cmd.Faction, grid.Point{X: cmd.X, Z: cmd.Z})
		return ok

	case CmdDespawnAgent:
		return w.despawnAgent(cmd.AgentID)

	case CmdPause:
		for _, a := range w.sortedAgents() {
			if a.State != StateStopped {
				a.resumed = a.State
				a.State = StateStopped
			}
		}
		return true

	case CmdResume:
		for _, a := range w.sortedAgents() {
			if a.State == StateStopped {
				a.State = a.resumed
				if a.State == StateStopped {
					a.State = StateFreeRoam
				}
			}
		}
		return true
	}
	return false
}

// setFactionBehavior switches a faction's directive and resets every member's
// movement intent: stale paths and targets must not survive a behavior change.
func (w *World) setFactionBehavior(id int, b Behavior) {
	w.factions[id].setBehavior(b)
	for _, a := range w.sortedAgents() {
		if a.Faction != id {
			continue
		}
		if a.State == StateStopped {
			// Paused members reset too, so a later resume starts from
			// free roam under the new directive instead of the old seek.
			a.clearTargets()
			a.resumed = StateFreeRoam
			a.roamSteps = 0
			continue
		}
		a.toFreeRoam()
	}
}

// coverVolcanoSlopes asks the structure layer to drop impassable rock on the
// inner slope tiles of a fresh volcano, when the layer supports it.
func (w *World) coverVolcanoSlopes(center grid.Point, radius int) {
	rocker, ok := w.structures.(interface {
		CoverWithRock(grid.Tile) (StructureHandle, bool)
	})
	if !ok {
		return
	}
	for dz := -(radius - 1); dz <= radius-1; dz++ {
		for dx := -(radius - 1); dx <= radius-1; dx++ {
			t := grid.Tile{X: center.X + dx, Z: center.Z + dz}
			if w.terrain.TileInBounds(t) {
				rocker.CoverWithRock(t)
			}
		}
	}
}

// terrainChanged fans the modified rectangle out to every movement controller
// and registered watcher. Runs before movement within the same tick, so no
// agent walks on stale geometry.
func (w *World) terrainChanged(rect grid.Rect) {
	for _, a := range w.sortedAgents() {
		w.invalidateAgent(a, rect)
	}
	for _, fn := range w.watchers {
		fn(rect)
	}
}

// spawnAgent places a new agent at the given vertex. Spawning on water or out
// of bounds is refused.
func (w *World) spawnAgent(faction int, at grid.Point) (*Agent, bool) {
	if faction < 0 || faction >= len(w.factions) {
		return nil, false
	}
	if !w.terrain.InBounds(at) || w.terrain.PointUnderwater(at) {
		return nil, false
	}
	w.nextAgentNum++
	a := &Agent{
		ID:       fmt.Sprintf("U%d", w.nextAgentNum),
		Num:      w.nextAgentNum,
		Faction:  faction,
		Pos:      Vec3{X: float64(at.X), Y: float64(w.terrain.SurfaceHeightAt(at)), Z: float64(at.Z)},
		Strength: w.cfg.InitialStrength,
		State:    StateFreeRoam,
	}

	h := Handle{}
	for i := range w.slots {
		if w.slots[i].a == nil {
			w.slots[i].a = a
			h = Handle{Idx: int32(i), Gen: w.slots[i].gen}
			break
		}
	}
	if h.Gen == 0 {
		w.slots = append(w.slots, agentSlot{gen: 1, a: a})
		h = Handle{Idx: int32(len(w.slots) - 1), Gen: 1}
	}
	w.byID[a.ID] = h
	w.order = append(w.order, h)
	return a, true
}

func (w *World) despawnAgent(id string) bool {
	h, ok := w.byID[id]
	if !ok {
		return false
	}
	w.slots[h.Idx].a = nil
	w.slots[h.Idx].gen++
	delete(w.byID, id)
	for i, oh := range w.order {
		if oh == h {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return true
}

// resolveAgent returns the live agent behind a handle, or nil if it despawned.
func (w *World) resolveAgent(h Handle) *Agent {
	if h.Gen == 0 || int(h.Idx) >= len(w.slots) {
		return nil
	}
	s := &w.slots[h.Idx]
	if s.a == nil || s.gen != h.Gen {
		return nil
	}
	return s.a
}

// AgentByID exposes agents for tests and observability; mutation stays inside
// the loop goroutine.
func (w *World) AgentByID(id string) *Agent {
	h, ok := w.byID[id]
	if !ok {
		return nil
	}
	return w.resolveAgent(h)
}

// sortedAgents returns live agents in spawn order, the only iteration order
// the simulation ever uses.
func (w *World) sortedAgents() []*Agent {
	out := make([]*Agent, 0, len(w.order))
	for _, h := range w.order {
		if a := w.resolveAgent(h); a != nil {
			out = append(out, a)
		}
	}
	return out
}
