package terrain

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"terrafold.sim/internal/sim/world/grid"
)

const (
	noiseOctaves     = 4
	noiseFrequency   = 1.0 / 24.0
	noisePersistence = 0.5
)

// generation neighbor priority. The scan runs north to south (z descending)
// inside each chunk and chunk rows north to south, so of these only some are
// assigned for any given vertex: up/left from the scan itself, down-left and
// down-right across chunk seams.
var genNeighbors = [5][2]int{
	{-1, 1},  // up-left
	{-1, 0},  // left
	{0, 1},   // up
	{-1, -1}, // down-left
	{1, -1},  // down-right
}

// generate fills every chunk with initial terrain. Each vertex gets a quantized
// noise height clamped against its already-assigned neighbors, which manufactures
// the step-pyramid look and guarantees adjacent vertices never differ by more
// than one step. Only the very first vertex of the scan is free of clamping.
func (f *Field) generate() {
	noise := opensimplex.NewNormalized(f.params.Seed)
	for cz := f.chunksPerSide - 1; cz >= 0; cz-- {
		for cx := 0; cx < f.chunksPerSide; cx++ {
			f.generateChunk(f.chunks[cz*f.chunksPerSide+cx], noise)
		}
	}
	f.refreshTileCenters(grid.Rect{Min: grid.Point{X: 0, Z: 0}, Max: grid.Point{X: f.params.GridSize, Z: f.params.GridSize}})
}

// generateChunk assigns every vertex of the chunk's lattice block not already
// fixed by a previously generated neighbor chunk.
func (f *Field) generateChunk(c *Chunk, noise opensimplex.Noise) {
	s := f.params.TilesPerChunk
	x0, z0 := c.CX*s, c.CZ*s
	for z := z0 + s; z >= z0; z-- {
		for x := x0; x <= x0+s; x++ {
			p := grid.Point{X: x, Z: z}
			if c.height(p) != unassigned {
				continue
			}
			h := f.quantize(f.sampleNoise(noise, x, z))
			f.setHeight(p, f.clampGenerated(p, h))
		}
	}
}

// sampleNoise returns octave-summed normalized noise scaled to [0, MaxHeight].
func (f *Field) sampleNoise(noise opensimplex.Noise, x, z int) int {
	var total, amp, norm float64
	freq := noiseFrequency
	amp = 1
	for i := 0; i < noiseOctaves; i++ {
		total += noise.Eval2(float64(x)*freq, float64(z)*freq) * amp
		norm += amp
		amp *= noisePersistence
		freq *= 2
	}
	return int(total / norm * float64(f.params.MaxHeight))
}

// quantize rounds a raw height down to the nearest step multiple within bounds.
func (f *Field) quantize(h int) int {
	if h < 0 {
		return 0
	}
	if h > f.params.MaxHeight {
		h = f.params.MaxHeight
	}
	return h / f.params.StepHeight * f.params.StepHeight
}

// clampGenerated constrains a fresh vertex height against its already-assigned
// neighbors, checked in fixed priority order: if all agree the new vertex may
// differ by at most one step; if they span more than one step the vertex is
// forced to min+step; otherwise it is clamped into [min, max].
func (f *Field) clampGenerated(p grid.Point, h int) int {
	step := f.params.StepHeight
	lo, hi := 0, 0
	seen := false
	for _, off := range genNeighbors {
		q := p.Add(off[0], off[1])
		if !f.InBounds(q) {
			continue
		}
		nh := f.chunkForPoint(q).height(q)
		if nh == unassigned {
			continue
		}
		if !seen {
			lo, hi = nh, nh
			seen = true
			continue
		}
		if nh < lo {
			lo = nh
		}
		if nh > hi {
			hi = nh
		}
	}
	if !seen {
		return h
	}
	if lo == hi {
		return clampInt(h, maxInt(lo-step, 0), minInt(lo+step, f.params.MaxHeight))
	}
	if hi-lo > step {
		return lo + step
	}
	return clampInt(h, lo, hi)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
