package terrain

import (
	"math/rand"

	"terrafold.sim/internal/sim/world/grid"
)

// ModifyTerrain raises (lower=false) or lowers (lower=true) one vertex by a
// single step and cascades the change to any neighbor the move would otherwise
// push more than one step away, across chunk borders if needed. It returns the
// inclusive rectangle bounding every vertex that changed and whether any did.
// A move that would leave [0, MaxHeight] is silently rejected.
func (f *Field) ModifyTerrain(p grid.Point, lower bool) (grid.Rect, bool) {
	if !f.InBounds(p) {
		return grid.Rect{}, false
	}
	changed := grid.RectAt(p)
	any := false
	f.chunkForPoint(p).changeHeight(f, p, lower, &changed, &any)
	if any {
		f.refreshTileCenters(changed)
	}
	return changed, any
}

// changeHeight applies the one-step move to a vertex this chunk owns, then walks
// the four grid-adjacent neighbors and recurses through the field for any whose
// height now violates the step invariant. The recursion terminates because each
// visited vertex moves monotonically toward the saturation bound.
func (c *Chunk) changeHeight(f *Field, p grid.Point, lower bool, changed *grid.Rect, any *bool) {
	step := f.params.StepHeight
	h := c.height(p)
	nh := h + step
	if lower {
		nh = h - step
	}
	if nh < 0 || nh > f.params.MaxHeight {
		return
	}
	f.setHeight(p, nh)
	*changed = changed.Expand(p)
	*any = true

	for _, d := range [4]grid.Dir{grid.DirE, grid.DirW, grid.DirN, grid.DirS} {
		q := p.Step(d)
		if !f.InBounds(q) {
			continue
		}
		diff := f.HeightAt(q) - nh
		if diff > step || diff < -step {
			f.chunkForPoint(q).changeHeight(f, q, lower, changed, any)
		}
	}
}

// SetVertexHeight force-assigns one vertex height without cascading and refreshes
// the touched tile centers. It exists for snapshot import and synthetic terrain
// in tests; gameplay edits go through ModifyTerrain.
func (f *Field) SetVertexHeight(p grid.Point, h int) {
	if !f.InBounds(p) {
		return
	}
	f.setHeight(p, clampInt(h, 0, f.params.MaxHeight))
	f.refreshTileCenters(grid.RectAt(p))
}

// CauseEarthquake applies a seeded pseudo-random sequence of one-step raises and
// lowers to every vertex of the (2*radius)^2 square around the center. The same
// seed replays the same edit sequence on every participant.
func (f *Field) CauseEarthquake(center grid.Point, radius int, seed int64) (grid.Rect, bool) {
	rng := rand.New(rand.NewSource(seed))
	changed := grid.RectAt(center)
	any := false
	for z := center.Z - radius; z < center.Z+radius; z++ {
		for x := center.X - radius; x < center.X+radius; x++ {
			lower := rng.Intn(2) == 1
			p := grid.Point{X: x, Z: z}
			if !f.InBounds(p) {
				continue
			}
			if r, ok := f.ModifyTerrain(p, lower); ok {
				changed = changed.Expand(r.Min).Expand(r.Max)
				any = true
			}
		}
	}
	return changed, any
}

// CauseVolcano drives the center vertex to MaxHeight and the surrounding square
// to heights falling off with distance from the center. Each target is reached
// by repeated one-step raises so the cascade machinery keeps the terrain legal
// throughout. Covering the slopes with rock is the structure layer's business.
func (f *Field) CauseVolcano(center grid.Point, radius int) (grid.Rect, bool) {
	if radius < 1 {
		radius = 1
	}
	falloff := f.params.MaxHeight / (radius + 1) / f.params.StepHeight * f.params.StepHeight
	if falloff < f.params.StepHeight {
		falloff = f.params.StepHeight
	}
	changed := grid.RectAt(center)
	any := false
	for ring := 0; ring <= radius; ring++ {
		target := f.params.MaxHeight - ring*falloff
		if target <= 0 {
			break
		}
		for z := center.Z - ring; z <= center.Z+ring; z++ {
			for x := center.X - ring; x <= center.X+ring; x++ {
				if chebyshev(x-center.X, z-center.Z) != ring {
					continue
				}
				p := grid.Point{X: x, Z: z}
				if !f.InBounds(p) {
					continue
				}
				for f.HeightAt(p) < target {
					r, ok := f.ModifyTerrain(p, false)
					if !ok {
						break
					}
					changed = changed.Expand(r.Min).Expand(r.Max)
					any = true
				}
			}
		}
	}
	return changed, any
}

// RaiseWaterLevel raises the water line by one step. Vertex heights are not
// touched; only the underwater classification of all subsequent queries changes.
// Returns the new level.
func (f *Field) RaiseWaterLevel() int {
	if f.waterLevel+f.params.StepHeight <= f.params.MaxHeight {
		f.waterLevel += f.params.StepHeight
	}
	return f.waterLevel
}

// SetWaterLevel restores the water line from a snapshot.
func (f *Field) SetWaterLevel(level int) {
	f.waterLevel = clampInt(level, 0, f.params.MaxHeight)
}

func chebyshev(dx, dz int) int {
	if dx < 0 {
		dx = -dx
	}
	if dz < 0 {
		dz = -dz
	}
	if dx > dz {
		return dx
	}
	return dz
}
