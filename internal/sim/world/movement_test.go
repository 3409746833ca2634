package world

import (
	"math"
	"testing"

	"terrafold.sim/internal/sim/world/grid"
)

func TestAdvance_StraightLegOneWaypointPerTick(t *testing.T) {
	w := newFlatWorld(t, testConfig())
	a := spawnAt(t, w, 0, 4, 4)

	a.State = StateSeekRally
	a.path = []grid.Point{{X: 5, Z: 4}, {X: 6, Z: 4}, {X: 7, Z: 4}}

	w.StepOnce(nil)
	if got := a.Point(); got != (grid.Point{X: 5, Z: 4}) {
		t.Fatalf("after tick 1 at %v", got)
	}
	w.StepOnce(nil)
	w.StepOnce(nil)
	if got := a.Point(); got != (grid.Point{X: 7, Z: 4}) {
		t.Fatalf("after tick 3 at %v", got)
	}
	if a.State != StateFreeRoam {
		t.Fatalf("path consumed but state is %v", a.State)
	}
}

func TestAdvance_DiagonalLegCrossesTileCenter(t *testing.T) {
	w := newFlatWorld(t, testConfig())
	a := spawnAt(t, w, 0, 4, 4)

	a.State = StateSeekRally
	a.path = []grid.Point{{X: 5, Z: 5}}

	w.StepOnce(nil)
	if math.Abs(a.Pos.X-4.5) > 1e-9 || math.Abs(a.Pos.Z-4.5) > 1e-9 {
		t.Fatalf("expected tile center (4.5,4.5), at (%v,%v)", a.Pos.X, a.Pos.Z)
	}
	if want := float64(w.terrain.TileCenterHeight(grid.Tile{X: 4, Z: 4})); a.Pos.Y != want {
		t.Fatalf("center height %v, want %v", a.Pos.Y, want)
	}

	w.StepOnce(nil)
	if got := a.Point(); got != (grid.Point{X: 5, Z: 5}) {
		t.Fatalf("after tick 2 at %v", got)
	}
}

func TestAdvance_StrengthDecaysPerWaypoint(t *testing.T) {
	cfg := testConfig()
	cfg.StrengthDecayWaypoints = 1
	w := newFlatWorld(t, cfg)
	a := spawnAt(t, w, 0, 2, 2)

	a.State = StateSeekRally
	a.path = []grid.Point{{X: 3, Z: 2}, {X: 4, Z: 2}, {X: 5, Z: 2}}

	for i := 0; i < 3; i++ {
		w.StepOnce(nil)
	}
	if a.Strength != w.cfg.InitialStrength-3 {
		t.Fatalf("strength %d, want %d", a.Strength, w.cfg.InitialStrength-3)
	}
}

func TestFreeRoam_MovesAndMarksVisited(t *testing.T) {
	w := newFlatWorld(t, testConfig())
	a := spawnAt(t, w, 0, 8, 8)
	start := a.Point()

	for i := 0; i < 10; i++ {
		w.StepOnce(nil)
	}
	if a.Point() == start && a.Pos.X == 8 && a.Pos.Z == 8 {
		t.Fatal("agent never moved")
	}

	total := 0
	fac := w.factions[0]
	for z := 0; z < w.cfg.GridSize; z++ {
		for x := 0; x < w.cfg.GridSize; x++ {
			total += int(fac.visitedAt(grid.Tile{X: x, Z: z}))
		}
	}
	if total == 0 {
		t.Fatal("no visited counters incremented")
	}
}

func TestPauseAndResume(t *testing.T) {
	w := newFlatWorld(t, testConfig())
	a := spawnAt(t, w, 0, 8, 8)

	w.StepOnce([]Command{{Kind: CmdPause}})
	if a.State != StateStopped {
		t.Fatalf("state after pause: %v", a.State)
	}
	pos := a.Pos
	for i := 0; i < 5; i++ {
		w.StepOnce(nil)
	}
	if a.Pos != pos {
		t.Fatal("paused agent moved")
	}

	w.StepOnce([]Command{{Kind: CmdResume}})
	if a.State != StateFreeRoam {
		t.Fatalf("state after resume: %v", a.State)
	}
}

func TestBehaviorChangeWhilePausedResetsResumeState(t *testing.T) {
	w := newFlatWorld(t, testConfig())
	a := spawnAt(t, w, 0, 4, 4)
	spawnAt(t, w, 1, 10, 4)

	w.StepOnce([]Command{{Kind: CmdSetBehavior, Faction: 0, Behavior: BehaviorGather}})
	if a.State != StateFollowing {
		t.Fatalf("state %v, want following", a.State)
	}
	if a.target == (Handle{}) {
		t.Fatal("no chase target acquired")
	}

	w.StepOnce([]Command{{Kind: CmdPause}})
	w.StepOnce([]Command{{Kind: CmdSetBehavior, Faction: 0, Behavior: BehaviorRoam}})
	w.StepOnce([]Command{{Kind: CmdResume}})

	if a.State != StateFreeRoam {
		t.Fatalf("resumed into %v, want free roam under the new directive", a.State)
	}
	if a.target != (Handle{}) {
		t.Fatal("stale chase target survived the behavior change")
	}
}

func TestTerrainChange_ReliftsLegEndHeight(t *testing.T) {
	cfg := testConfig()
	cfg.MoveSpeedMilli = 150 // stay mid-leg after one tick
	w := newFlatWorld(t, cfg)
	a := spawnAt(t, w, 0, 4, 4)

	a.State = StateSeekRally
	a.path = []grid.Point{{X: 5, Z: 4}, {X: 6, Z: 4}}
	w.systemMovement(0) // begins the first leg

	if !a.legActive {
		t.Fatal("no active leg")
	}
	w.terrainChanged(func() grid.Rect {
		rect, ok := w.terrain.ModifyTerrain(grid.Point{X: 5, Z: 4}, false)
		if !ok {
			t.Fatal("modify rejected")
		}
		return rect
	}())
	want := float64(w.terrain.SurfaceHeightAt(grid.Point{X: 5, Z: 4}))
	if a.legTarget.Y != want {
		t.Fatalf("leg target Y %v, want %v", a.legTarget.Y, want)
	}
}

func TestTerrainChange_DropsDrownedLegEnd(t *testing.T) {
	cfg := testConfig()
	cfg.MoveSpeedMilli = 150
	w := newFlatWorld(t, cfg)
	a := spawnAt(t, w, 0, 4, 4)

	a.State = StateSeekRally
	a.path = []grid.Point{{X: 5, Z: 4}}
	w.systemMovement(0)
	if !a.legActive {
		t.Fatal("no active leg")
	}

	// Sink the leg end below the water line without cascading.
	w.terrain.SetVertexHeight(grid.Point{X: 5, Z: 4}, 0)
	w.terrainChanged(grid.RectAt(grid.Point{X: 5, Z: 4}))

	if a.legActive || len(a.path) != 0 {
		t.Fatal("drowned leg end should drop the path")
	}
}

func TestTerrainChange_InvalidatesSettleTarget(t *testing.T) {
	w := newFlatWorld(t, testConfig())
	a := spawnAt(t, w, 0, 2, 2)

	dest := grid.Tile{X: 10, Z: 10}
	a.State = StateSeekFreeTile
	a.destTile = dest
	a.hasDestTile = true
	a.path = []grid.Point{{X: 3, Z: 2}}

	// Raise one corner of the target tile so it is no longer flat.
	rect, ok := w.terrain.ModifyTerrain(grid.Point{X: 10, Z: 10}, false)
	if !ok {
		t.Fatal("modify rejected")
	}
	w.terrainChanged(rect)

	if a.State != StateFreeRoam || a.hasDestTile {
		t.Fatalf("expected fallback to free roam, state=%v hasDest=%v", a.State, a.hasDestTile)
	}
}

func TestSpawnRefusedOnWater(t *testing.T) {
	w := newFlatWorld(t, testConfig())
	w.terrain.SetVertexHeight(grid.Point{X: 3, Z: 3}, 0)

	if _, ok := w.spawnAgent(0, grid.Point{X: 3, Z: 3}); ok {
		t.Fatal("spawn on water accepted")
	}
	if _, ok := w.spawnAgent(0, grid.Point{X: -1, Z: 0}); ok {
		t.Fatal("spawn out of bounds accepted")
	}
}

func TestDespawnMakesHandlesStale(t *testing.T) {
	w := newFlatWorld(t, testConfig())
	a := spawnAt(t, w, 0, 8, 8)
	h := w.byID[a.ID]

	if !w.despawnAgent(a.ID) {
		t.Fatal("despawn failed")
	}
	if w.resolveAgent(h) != nil {
		t.Fatal("stale handle resolved")
	}

	b := spawnAt(t, w, 0, 8, 8)
	if w.byID[b.ID] == h {
		t.Fatal("slot reuse kept the old generation")
	}
}
