package world

import (
	"fmt"

	"terrafold.sim/internal/persistence/snapshot"
	"terrafold.sim/internal/sim/world/grid"
	"terrafold.sim/internal/sim/world/terrain"
)

// ExportSnapshot captures the complete deterministic state at the given tick.
// Agents are emitted in spawn order together with their arena coordinates, so
// import rebuilds an arena that resolves every stored handle identically.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: 1,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		Seed:          w.cfg.Seed,
		TickRate:      w.cfg.TickRateHz,
		GridSize:      w.cfg.GridSize,
		TilesPerChunk: w.cfg.TilesPerChunk,
		StepHeight:    w.cfg.StepHeight,
		MaxHeight:     w.cfg.MaxHeight,
		WaterLevel:    w.terrain.WaterLevel(),
		RNGState:      w.rngState,
		NextAgentNum:  w.nextAgentNum,
	}

	snap.SlotGens = make([]uint32, len(w.slots))
	for i := range w.slots {
		snap.SlotGens[i] = w.slots[i].gen
	}

	n := w.terrain.ChunksPerSide()
	for cz := 0; cz < n; cz++ {
		for cx := 0; cx < n; cx++ {
			snap.Chunks = append(snap.Chunks, snapshot.ChunkV1{
				CX:      cx,
				CZ:      cz,
				Heights: w.terrain.ChunkAt(cx, cz).Heights(),
			})
		}
	}

	for _, h := range w.order {
		a := w.resolveAgent(h)
		if a == nil {
			continue
		}
		av := snapshot.AgentV1{
			ID:      a.ID,
			Num:     a.Num,
			Faction: a.Faction,
			SlotIdx: h.Idx,
			SlotGen: h.Gen,

			Pos:      [3]float64{a.Pos.X, a.Pos.Y, a.Pos.Z},
			Strength: a.Strength,

			State:   uint8(a.State),
			Resumed: uint8(a.resumed),

			PathIdx: a.pathIdx,

			LegActive: a.legActive,
			LegTarget: [3]float64{a.legTarget.X, a.legTarget.Y, a.legTarget.Z},
			LegEnd:    snapshot.PointV1{X: a.legEnd.X, Z: a.legEnd.Z},
			ViaCenter: a.viaCenter,
			ViaTile:   snapshot.PointV1{X: a.viaTile.X, Z: a.viaTile.Z},

			TargetIdx: a.target.Idx,
			TargetGen: a.target.Gen,

			DestSetIdx: a.destSettlement.Idx,
			DestSetGen: a.destSettlement.Gen,

			DestTile:    snapshot.PointV1{X: a.destTile.X, Z: a.destTile.Z},
			HasDestTile: a.hasDestTile,

			RoamDir:    uint8(a.roamDir),
			RoamSteps:  a.roamSteps,
			DecaySteps: a.decaySteps,
			SeekRetry:  a.seekRetry,

			CannotFindRally: a.CannotFindRally,
		}
		for _, p := range a.path {
			av.Path = append(av.Path, snapshot.PointV1{X: p.X, Z: p.Z})
		}
		snap.Agents = append(snap.Agents, av)
	}

	if st, ok := w.structures.(*StructureTable); ok {
		for _, r := range st.Export() {
			snap.Structures = append(snap.Structures, snapshot.StructureV1{
				Gen:     r.Gen,
				Live:    r.Live,
				Kind:    r.Kind,
				TileX:   r.TileX,
				TileZ:   r.TileZ,
				Faction: r.Faction,
			})
		}
	}

	for _, f := range w.factions {
		visited := make([]uint16, len(f.visited))
		copy(visited, f.visited)
		snap.Factions = append(snap.Factions, snapshot.FactionV1{
			ID:       f.ID,
			Behavior: uint8(f.Behavior),
			Rally:    snapshot.PointV1{X: f.RallyTile.X, Z: f.RallyTile.Z},
			HasRally: f.HasRally,
			Visited:  visited,
		})
	}

	return snap
}

// NewFromSnapshot rebuilds a world from a snapshot. The returned world's
// digest at the stored tick equals the digest the exporting world logged.
// When the injected structure layer is a StructureTable it is restored from
// the snapshot too, so settlement handles held by agents stay valid; an
// external structure layer is expected to restore itself.
func NewFromSnapshot(cfg WorldConfig, snap snapshot.SnapshotV1, structures StructureProvider, settlements SettlementDirectory) (*World, error) {
	cfg.applyDefaults()
	cfg.Seed = snap.Seed
	cfg.GridSize = snap.GridSize
	cfg.TilesPerChunk = snap.TilesPerChunk
	cfg.StepHeight = snap.StepHeight
	cfg.MaxHeight = snap.MaxHeight

	field, err := terrain.NewUngenerated(terrain.Params{
		GridSize:      snap.GridSize,
		TilesPerChunk: snap.TilesPerChunk,
		StepHeight:    snap.StepHeight,
		MaxHeight:     snap.MaxHeight,
		WaterLevel:    snap.WaterLevel,
		Seed:          snap.Seed,
	})
	if err != nil {
		return nil, err
	}
	for _, cv := range snap.Chunks {
		c := field.ChunkAt(cv.CX, cv.CZ)
		if c == nil {
			return nil, fmt.Errorf("snapshot: chunk (%d,%d) out of range", cv.CX, cv.CZ)
		}
		c.SetHeights(cv.Heights)
	}
	field.RecomputeCenters()
	field.SetWaterLevel(snap.WaterLevel)

	if st, ok := structures.(*StructureTable); ok && len(snap.Structures) > 0 {
		rows := make([]StructureRow, 0, len(snap.Structures))
		for _, sv := range snap.Structures {
			rows = append(rows, StructureRow{
				Gen:     sv.Gen,
				Live:    sv.Live,
				Kind:    sv.Kind,
				TileX:   sv.TileX,
				TileZ:   sv.TileZ,
				Faction: sv.Faction,
			})
		}
		st.Restore(rows)
	}

	w, err := newWithField(cfg, field, structures, settlements)
	if err != nil {
		return nil, err
	}
	w.tick.Store(snap.Header.Tick)
	w.rngState = snap.RNGState
	w.nextAgentNum = snap.NextAgentNum

	w.slots = make([]agentSlot, len(snap.SlotGens))
	for i, g := range snap.SlotGens {
		w.slots[i].gen = g
	}

	for _, av := range snap.Agents {
		if int(av.SlotIdx) >= len(w.slots) {
			return nil, fmt.Errorf("snapshot: agent %s slot %d out of range", av.ID, av.SlotIdx)
		}
		a := &Agent{
			ID:      av.ID,
			Num:     av.Num,
			Faction: av.Faction,

			Pos:      Vec3{X: av.Pos[0], Y: av.Pos[1], Z: av.Pos[2]},
			Strength: av.Strength,

			State:   MoveState(av.State),
			resumed: MoveState(av.Resumed),

			pathIdx: av.PathIdx,

			legActive: av.LegActive,
			legTarget: Vec3{X: av.LegTarget[0], Y: av.LegTarget[1], Z: av.LegTarget[2]},
			legEnd:    grid.Point{X: av.LegEnd.X, Z: av.LegEnd.Z},
			viaCenter: av.ViaCenter,
			viaTile:   grid.Tile{X: av.ViaTile.X, Z: av.ViaTile.Z},

			target:         Handle{Idx: av.TargetIdx, Gen: av.TargetGen},
			destSettlement: StructureHandle{Idx: av.DestSetIdx, Gen: av.DestSetGen},

			destTile:    grid.Tile{X: av.DestTile.X, Z: av.DestTile.Z},
			hasDestTile: av.HasDestTile,

			roamDir:    grid.Dir(av.RoamDir),
			roamSteps:  av.RoamSteps,
			decaySteps: av.DecaySteps,
			seekRetry:  av.SeekRetry,

			CannotFindRally: av.CannotFindRally,
		}
		for _, p := range av.Path {
			a.path = append(a.path, grid.Point{X: p.X, Z: p.Z})
		}
		h := Handle{Idx: av.SlotIdx, Gen: av.SlotGen}
		w.slots[h.Idx].a = a
		w.byID[a.ID] = h
		w.order = append(w.order, h)
	}

	for i, fv := range snap.Factions {
		if i >= len(w.factions) {
			w.factions = append(w.factions, newFaction(fv.ID, cfg.GridSize))
		}
		f := w.factions[i]
		f.Behavior = Behavior(fv.Behavior)
		f.RallyTile = grid.Tile{X: fv.Rally.X, Z: fv.Rally.Z}
		f.HasRally = fv.HasRally
		if len(fv.Visited) == len(f.visited) {
			copy(f.visited, fv.Visited)
		}
	}

	return w, nil
}
