// Package terrain implements the chunked, quantized heightfield the whole
// simulation stands on. All heights are multiples of the step height and adjacent
// lattice vertices never differ by more than one step; every edit path in this
// package preserves that invariant by cascading.
package terrain

import (
	"fmt"

	"terrafold.sim/internal/sim/world/grid"
)

// Params are the immutable geometry parameters of a field.
type Params struct {
	GridSize      int   // tiles per world side; lattice is (GridSize+1)^2 vertices
	TilesPerChunk int   // tiles per chunk side; must divide GridSize
	StepHeight    int   // height quantum
	MaxHeight     int   // inclusive upper bound for vertex heights
	WaterLevel    int   // heights at or below this count as underwater
	Seed          int64 // worldgen noise seed
}

func (p Params) validate() error {
	if p.GridSize <= 0 || p.TilesPerChunk <= 0 {
		return fmt.Errorf("terrain: non-positive grid size %d or chunk size %d", p.GridSize, p.TilesPerChunk)
	}
	if p.GridSize%p.TilesPerChunk != 0 {
		return fmt.Errorf("terrain: chunk side %d does not divide grid size %d", p.TilesPerChunk, p.GridSize)
	}
	if p.StepHeight <= 0 {
		return fmt.Errorf("terrain: non-positive step height %d", p.StepHeight)
	}
	if p.MaxHeight < p.StepHeight {
		return fmt.Errorf("terrain: max height %d below step height %d", p.MaxHeight, p.StepHeight)
	}
	return nil
}

// Field is the single source of truth for terrain geometry. It owns the grid of
// chunks and routes every point query or edit to the owning chunk(s), so callers
// never address chunks directly.
type Field struct {
	params        Params
	chunksPerSide int
	chunks        []*Chunk // row-major, index cz*chunksPerSide+cx

	waterLevel int
}

// New creates a field and generates its initial terrain from the seed in params.
func New(params Params) (*Field, error) {
	f, err := NewUngenerated(params)
	if err != nil {
		return nil, err
	}
	f.generate()
	return f, nil
}

// RecomputeCenters rebuilds every tile center from the vertex heights.
// Snapshot import calls this once after restoring the chunks.
func (f *Field) RecomputeCenters() {
	f.refreshTileCenters(grid.Rect{
		Max: grid.Point{X: f.params.GridSize, Z: f.params.GridSize},
	})
}

// NewUngenerated creates a field with every vertex unassigned. Used by snapshot
// import and by tests that build synthetic terrain point by point.
func NewUngenerated(params Params) (*Field, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	n := params.GridSize / params.TilesPerChunk
	f := &Field{
		params:        params,
		chunksPerSide: n,
		chunks:        make([]*Chunk, n*n),
		waterLevel:    params.WaterLevel,
	}
	for cz := 0; cz < n; cz++ {
		for cx := 0; cx < n; cx++ {
			f.chunks[cz*n+cx] = newChunk(cx, cz, params.TilesPerChunk)
		}
	}
	return f, nil
}

func (f *Field) GridSize() int   { return f.params.GridSize }
func (f *Field) StepHeight() int { return f.params.StepHeight }
func (f *Field) MaxHeight() int  { return f.params.MaxHeight }
func (f *Field) WaterLevel() int { return f.waterLevel }
func (f *Field) Seed() int64     { return f.params.Seed }

func (f *Field) ChunksPerSide() int { return f.chunksPerSide }

// ChunkAt returns the chunk with the given chunk coordinates, or nil.
func (f *Field) ChunkAt(cx, cz int) *Chunk {
	if cx < 0 || cx >= f.chunksPerSide || cz < 0 || cz >= f.chunksPerSide {
		return nil
	}
	return f.chunks[cz*f.chunksPerSide+cx]
}

// chunkForPoint picks the canonical owning chunk of a lattice vertex. Vertices
// on a shared border resolve to the chunk on their left/bottom side's right/top
// edge, clamped for the outermost row and column.
func (f *Field) chunkForPoint(p grid.Point) *Chunk {
	cx := p.X / f.params.TilesPerChunk
	cz := p.Z / f.params.TilesPerChunk
	if cx > f.chunksPerSide-1 {
		cx = f.chunksPerSide - 1
	}
	if cz > f.chunksPerSide-1 {
		cz = f.chunksPerSide - 1
	}
	return f.chunks[cz*f.chunksPerSide+cx]
}

// ownersOf yields every chunk whose lattice block contains p. Border vertices
// belong to two chunks, corner vertices to four.
func (f *Field) ownersOf(p grid.Point, fn func(*Chunk)) {
	s := f.params.TilesPerChunk
	xs := [2]int{p.X / s, -1}
	if p.X%s == 0 && p.X > 0 {
		xs[1] = p.X/s - 1
	}
	if xs[0] > f.chunksPerSide-1 {
		xs[0] = f.chunksPerSide - 1
	}
	zs := [2]int{p.Z / s, -1}
	if p.Z%s == 0 && p.Z > 0 {
		zs[1] = p.Z/s - 1
	}
	if zs[0] > f.chunksPerSide-1 {
		zs[0] = f.chunksPerSide - 1
	}
	for _, cx := range xs {
		if cx < 0 || cx >= f.chunksPerSide {
			continue
		}
		for _, cz := range zs {
			if cz < 0 || cz >= f.chunksPerSide {
				continue
			}
			fn(f.chunks[cz*f.chunksPerSide+cx])
		}
	}
}

// InBounds reports whether p is a valid lattice vertex.
func (f *Field) InBounds(p grid.Point) bool { return p.InBounds(f.params.GridSize) }

// TileInBounds reports whether t is a valid tile.
func (f *Field) TileInBounds(t grid.Tile) bool { return t.InBounds(f.params.GridSize) }

// HeightAt returns the editable vertex height, ignoring water.
func (f *Field) HeightAt(p grid.Point) int {
	return f.chunkForPoint(p).height(p)
}

// SurfaceHeightAt returns the vertex height clamped up to the water level; this
// is the height rendering and movement interpolation see.
func (f *Field) SurfaceHeightAt(p grid.Point) int {
	h := f.HeightAt(p)
	if h < f.waterLevel {
		return f.waterLevel
	}
	return h
}

// TileCenterHeight returns the derived center height of a tile, water-clamped.
func (f *Field) TileCenterHeight(t grid.Tile) int {
	h := f.chunkForTile(t).centerHeight(t)
	if h < f.waterLevel {
		return f.waterLevel
	}
	return h
}

func (f *Field) chunkForTile(t grid.Tile) *Chunk {
	cx, cz := t.Chunk(f.params.TilesPerChunk)
	return f.chunks[cz*f.chunksPerSide+cx]
}

// PointUnderwater reports whether the vertex sits at or below the water level.
func (f *Field) PointUnderwater(p grid.Point) bool {
	return f.HeightAt(p) <= f.waterLevel
}

// TileUnderwater reports whether all four corners sit at or below the water level.
func (f *Field) TileUnderwater(t grid.Tile) bool {
	for _, c := range t.Corners() {
		if f.HeightAt(c) > f.waterLevel {
			return false
		}
	}
	return true
}

// TileFlat reports whether all four corners share one height.
func (f *Field) TileFlat(t grid.Tile) bool {
	corners := t.Corners()
	h := f.HeightAt(corners[0])
	for _, c := range corners[1:] {
		if f.HeightAt(c) != h {
			return false
		}
	}
	return true
}

// setHeight writes a vertex height through to every chunk sharing the vertex.
func (f *Field) setHeight(p grid.Point, h int) {
	f.ownersOf(p, func(c *Chunk) { c.setHeight(p, h) })
}

// refreshTileCenters recomputes the derived center height of every tile with at
// least one corner inside the rectangle.
func (f *Field) refreshTileCenters(r grid.Rect) {
	for z := r.Min.Z - 1; z <= r.Max.Z; z++ {
		for x := r.Min.X - 1; x <= r.Max.X; x++ {
			t := grid.Tile{X: x, Z: z}
			if !f.TileInBounds(t) {
				continue
			}
			f.chunkForTile(t).setCenterHeight(t, f.computeTileCenter(t))
		}
	}
}

// computeTileCenter applies the center rule: when the two diagonal corner pairs
// are each equal the tile is a ridge or peak and the center is the corner max;
// any other tile is a saddle approximated as a half-step plateau above its
// lowest corner.
func (f *Field) computeTileCenter(t grid.Tile) int {
	c := t.Corners()
	h00 := f.HeightAt(c[0])
	h10 := f.HeightAt(c[1])
	h01 := f.HeightAt(c[2])
	h11 := f.HeightAt(c[3])
	if h00 == h11 && h10 == h01 {
		m := h00
		if h10 > m {
			m = h10
		}
		return m
	}
	m := h00
	for _, h := range [3]int{h10, h01, h11} {
		if h < m {
			m = h
		}
	}
	return m + f.params.StepHeight/2
}
