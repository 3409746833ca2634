package world

import (
	"testing"

	"terrafold.sim/internal/sim/world/grid"
	"terrafold.sim/internal/sim/world/terrain"
)

func testConfig() WorldConfig {
	return WorldConfig{
		ID:                "test",
		TickRateHz:        10,
		Seed:              42,
		GridSize:          16,
		TilesPerChunk:     8,
		StepHeight:        2,
		MaxHeight:         16,
		WaterLevel:        0,
		MoveSpeedMilli:    1000,
		ArriveLeewayMilli: 50,
		SettleScanRadius:  6,
	}
}

// newFlatWorld builds a world whose terrain is a uniform plateau one step
// above water, so movement tests control the geometry precisely.
func newFlatWorld(t *testing.T, cfg WorldConfig) *World {
	t.Helper()
	cfg.applyDefaults()
	field, err := terrain.NewUngenerated(terrain.Params{
		GridSize:      cfg.GridSize,
		TilesPerChunk: cfg.TilesPerChunk,
		StepHeight:    cfg.StepHeight,
		MaxHeight:     cfg.MaxHeight,
		WaterLevel:    cfg.WaterLevel,
		Seed:          cfg.Seed,
	})
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	for z := 0; z <= cfg.GridSize; z++ {
		for x := 0; x <= cfg.GridSize; x++ {
			field.SetVertexHeight(grid.Point{X: x, Z: z}, cfg.StepHeight)
		}
	}
	st := NewStructureTable()
	w, err := newWithField(cfg, field, st, st)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func spawnAt(t *testing.T, w *World, faction, x, z int) *Agent {
	t.Helper()
	a, ok := w.spawnAgent(faction, grid.Point{X: x, Z: z})
	if !ok {
		t.Fatalf("spawn at (%d,%d) refused", x, z)
	}
	return a
}
