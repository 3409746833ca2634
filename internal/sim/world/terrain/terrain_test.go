package terrain

import (
	"testing"

	"terrafold.sim/internal/sim/world/grid"
)

func testParams() Params {
	return Params{
		GridSize:      32,
		TilesPerChunk: 8,
		StepHeight:    2,
		MaxHeight:     16,
		WaterLevel:    0,
		Seed:          1337,
	}
}

// flatField builds an ungenerated field with every vertex at the given height.
func flatField(t *testing.T, p Params, h int) *Field {
	t.Helper()
	f, err := NewUngenerated(p)
	if err != nil {
		t.Fatalf("new field: %v", err)
	}
	for z := 0; z <= p.GridSize; z++ {
		for x := 0; x <= p.GridSize; x++ {
			f.SetVertexHeight(grid.Point{X: x, Z: z}, h)
		}
	}
	return f
}

// checkStepInvariant fails the test if any pair of grid-adjacent vertices
// differs by more than one step.
func checkStepInvariant(t *testing.T, f *Field) {
	t.Helper()
	step := f.StepHeight()
	for z := 0; z <= f.GridSize(); z++ {
		for x := 0; x <= f.GridSize(); x++ {
			p := grid.Point{X: x, Z: z}
			h := f.HeightAt(p)
			if h%step != 0 {
				t.Fatalf("height at %v is %d, not a step multiple", p, h)
			}
			if h < 0 || h > f.MaxHeight() {
				t.Fatalf("height at %v is %d, outside [0, %d]", p, h, f.MaxHeight())
			}
			for _, d := range [2]grid.Dir{grid.DirE, grid.DirN} {
				q := p.Step(d)
				if !f.InBounds(q) {
					continue
				}
				if diff := f.HeightAt(q) - h; diff > step || diff < -step {
					t.Fatalf("step invariant violated between %v (%d) and %v (%d)", p, h, q, f.HeightAt(q))
				}
			}
		}
	}
}

func TestGenerationPreservesStepInvariant(t *testing.T) {
	for _, seed := range []int64{1, 42, 1337, 99991} {
		p := testParams()
		p.Seed = seed
		f, err := New(p)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		checkStepInvariant(t, f)
	}
}

func TestGenerationDeterministic(t *testing.T) {
	p := testParams()
	f1, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	for cz := 0; cz < f1.ChunksPerSide(); cz++ {
		for cx := 0; cx < f1.ChunksPerSide(); cx++ {
			if f1.ChunkAt(cx, cz).Digest() != f2.ChunkAt(cx, cz).Digest() {
				t.Fatalf("chunk (%d,%d) differs between identically seeded fields", cx, cz)
			}
		}
	}
}

func TestRaiseSingleStepNoCascade(t *testing.T) {
	p := testParams()
	f := flatField(t, p, 0)

	center := grid.Point{X: 5, Z: 5}
	rect, ok := f.ModifyTerrain(center, false)
	if !ok {
		t.Fatal("raise rejected")
	}
	if got := f.HeightAt(center); got != p.StepHeight {
		t.Fatalf("center height = %d, want %d", got, p.StepHeight)
	}
	// Difference to neighbors is exactly one step: nothing cascades.
	for _, d := range [4]grid.Dir{grid.DirE, grid.DirW, grid.DirN, grid.DirS} {
		if got := f.HeightAt(center.Step(d)); got != 0 {
			t.Fatalf("neighbor %v height = %d, want 0", d, got)
		}
	}
	if rect.Min != center || rect.Max != center {
		t.Fatalf("changed rect = %+v, want just the center", rect)
	}
}

func TestSecondRaiseCascadesToNeighbors(t *testing.T) {
	p := testParams()
	f := flatField(t, p, 0)

	center := grid.Point{X: 5, Z: 5}
	if _, ok := f.ModifyTerrain(center, false); !ok {
		t.Fatal("first raise rejected")
	}
	rect, ok := f.ModifyTerrain(center, false)
	if !ok {
		t.Fatal("second raise rejected")
	}
	if got := f.HeightAt(center); got != 2*p.StepHeight {
		t.Fatalf("center height = %d, want %d", got, 2*p.StepHeight)
	}
	// All four grid-adjacent neighbors must have cascade-raised one step.
	for _, d := range [4]grid.Dir{grid.DirE, grid.DirW, grid.DirN, grid.DirS} {
		if got := f.HeightAt(center.Step(d)); got != p.StepHeight {
			t.Fatalf("neighbor %v height = %d, want %d", d, got, p.StepHeight)
		}
	}
	// Diagonal neighbors were one step from the cascaded ring already.
	if got := f.HeightAt(center.Add(1, 1)); got != 0 {
		t.Fatalf("diagonal neighbor height = %d, want 0", got)
	}
	want := grid.Rect{Min: grid.Point{X: 4, Z: 4}, Max: grid.Point{X: 6, Z: 6}}
	if rect != want {
		t.Fatalf("changed rect = %+v, want %+v", rect, want)
	}
	checkStepInvariant(t, f)
}

func TestEditClampedAtBounds(t *testing.T) {
	p := testParams()
	f := flatField(t, p, 0)

	// Lowering from the floor is a silent no-op with no propagation.
	if _, ok := f.ModifyTerrain(grid.Point{X: 3, Z: 3}, true); ok {
		t.Fatal("lowering at height 0 should be rejected")
	}

	// Raising past MaxHeight saturates.
	top := grid.Point{X: 10, Z: 10}
	for i := 0; i < p.MaxHeight/p.StepHeight; i++ {
		if _, ok := f.ModifyTerrain(top, false); !ok {
			t.Fatalf("raise %d rejected early", i)
		}
	}
	if got := f.HeightAt(top); got != p.MaxHeight {
		t.Fatalf("height = %d, want max %d", got, p.MaxHeight)
	}
	if _, ok := f.ModifyTerrain(top, false); ok {
		t.Fatal("raising at MaxHeight should be rejected")
	}
	checkStepInvariant(t, f)
}

func TestCascadeCrossesChunkBoundary(t *testing.T) {
	p := testParams()
	f := flatField(t, p, 0)

	// Vertex on the seam between chunk (0,*) and (1,*).
	seam := grid.Point{X: p.TilesPerChunk, Z: 5}
	f.ModifyTerrain(seam, false)
	f.ModifyTerrain(seam, false)

	left := seam.Add(-1, 0)  // chunk 0 side
	right := seam.Add(1, 0) // chunk 1 side
	if f.HeightAt(left) != p.StepHeight || f.HeightAt(right) != p.StepHeight {
		t.Fatalf("cascade did not cross seam: left=%d right=%d", f.HeightAt(left), f.HeightAt(right))
	}
	checkStepInvariant(t, f)
}

func TestEarthquakeDeterministicAndLegal(t *testing.T) {
	p := testParams()
	f1, _ := New(p)
	f2, _ := New(p)

	c := grid.Point{X: 16, Z: 16}
	f1.CauseEarthquake(c, 6, 777)
	f2.CauseEarthquake(c, 6, 777)

	for cz := 0; cz < f1.ChunksPerSide(); cz++ {
		for cx := 0; cx < f1.ChunksPerSide(); cx++ {
			if f1.ChunkAt(cx, cz).Digest() != f2.ChunkAt(cx, cz).Digest() {
				t.Fatalf("earthquake with same seed diverged at chunk (%d,%d)", cx, cz)
			}
		}
	}
	checkStepInvariant(t, f1)
}

func TestVolcanoRaisesCenterToMax(t *testing.T) {
	p := testParams()
	f := flatField(t, p, 0)

	c := grid.Point{X: 16, Z: 16}
	if _, ok := f.CauseVolcano(c, 4); !ok {
		t.Fatal("volcano changed nothing")
	}
	if got := f.HeightAt(c); got != p.MaxHeight {
		t.Fatalf("center height = %d, want %d", got, p.MaxHeight)
	}
	// Heights fall off with distance from the cone.
	if f.HeightAt(c.Add(4, 0)) >= f.HeightAt(c.Add(1, 0)) {
		t.Fatal("no falloff away from the center")
	}
	checkStepInvariant(t, f)
}

func TestTileCenterRule(t *testing.T) {
	p := testParams()
	f := flatField(t, p, 0)
	tile := grid.Tile{X: 5, Z: 5}
	c := tile.Corners()

	set := func(h00, h10, h01, h11 int) {
		f.SetVertexHeight(c[0], h00)
		f.SetVertexHeight(c[1], h10)
		f.SetVertexHeight(c[2], h01)
		f.SetVertexHeight(c[3], h11)
	}

	// Opposite corner pairs equal: sharp ridge, center is the corner max.
	set(4, 2, 2, 4)
	if got := f.TileCenterHeight(tile); got != 4 {
		t.Fatalf("ridge center = %d, want 4", got)
	}
	// Flat tile is a degenerate ridge.
	set(6, 6, 6, 6)
	if got := f.TileCenterHeight(tile); got != 6 {
		t.Fatalf("flat center = %d, want 6", got)
	}
	// General case: saddle approximated as min + step/2.
	set(2, 2, 2, 4)
	if got := f.TileCenterHeight(tile); got != 2+p.StepHeight/2 {
		t.Fatalf("slope center = %d, want %d", got, 2+p.StepHeight/2)
	}
	set(0, 2, 2, 4)
	if got := f.TileCenterHeight(tile); got != 0+p.StepHeight/2 {
		t.Fatalf("saddle center = %d, want %d", got, p.StepHeight/2)
	}
}

func TestWaterLevelClassification(t *testing.T) {
	p := testParams()
	f := flatField(t, p, 0)
	hill := grid.Tile{X: 8, Z: 8}
	for _, c := range hill.Corners() {
		f.SetVertexHeight(c, p.StepHeight)
	}

	if !f.TileUnderwater(grid.Tile{X: 2, Z: 2}) {
		t.Fatal("height-0 tile should start underwater at water level 0")
	}
	if f.TileUnderwater(hill) {
		t.Fatal("raised tile should be dry")
	}

	// Raising the water line swallows the hill without touching heights.
	f.RaiseWaterLevel()
	if !f.TileUnderwater(hill) {
		t.Fatal("raised tile should be submerged after the flood")
	}
	if got := f.HeightAt(hill.Corners()[0]); got != p.StepHeight {
		t.Fatalf("flood altered editable height: %d", got)
	}
	// Rendering height is clamped up to the water line.
	if got := f.SurfaceHeightAt(grid.Point{X: 2, Z: 2}); got != f.WaterLevel() {
		t.Fatalf("surface height = %d, want water level %d", got, f.WaterLevel())
	}
}

func TestEditStormKeepsInvariant(t *testing.T) {
	p := testParams()
	f, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	// A long deterministic mix of point edits, quakes and floods.
	f.CauseEarthquake(grid.Point{X: 8, Z: 8}, 5, 1)
	for i := 0; i < 200; i++ {
		x := (i * 7) % (p.GridSize + 1)
		z := (i * 13) % (p.GridSize + 1)
		f.ModifyTerrain(grid.Point{X: x, Z: z}, i%3 == 0)
	}
	f.CauseVolcano(grid.Point{X: 24, Z: 10}, 3)
	f.RaiseWaterLevel()
	f.CauseEarthquake(grid.Point{X: 20, Z: 24}, 4, 9)
	checkStepInvariant(t, f)
}
