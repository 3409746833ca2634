package terrain

import (
	"crypto/sha256"
	"encoding/binary"

	"terrafold.sim/internal/sim/world/grid"
)

// Chunk owns one square block of the height lattice: (side+1) x (side+1) vertex
// heights, including the row/column shared with the right and top neighbor
// chunks, plus the derived tile-center heights its renderer consumes. Heights
// are only ever mutated through the owning Field so boundary copies stay in
// sync and the step invariant survives edits that cross chunk borders.
type Chunk struct {
	CX, CZ int

	side    int   // tiles per chunk side
	heights []int // (side+1)^2 vertex heights, -1 while ungenerated
	centers []int // side^2 derived tile-center heights

	dirty bool
	hash  [32]byte
}

func newChunk(cx, cz, side int) *Chunk {
	c := &Chunk{
		CX:      cx,
		CZ:      cz,
		side:    side,
		heights: make([]int, (side+1)*(side+1)),
		centers: make([]int, side*side),
	}
	for i := range c.heights {
		c.heights[i] = unassigned
	}
	return c
}

const unassigned = -1

func (c *Chunk) vertexIndex(p grid.Point) int {
	lx := p.X - c.CX*c.side
	lz := p.Z - c.CZ*c.side
	return lx + lz*(c.side+1)
}

func (c *Chunk) tileIndex(t grid.Tile) int {
	lx := t.X - c.CX*c.side
	lz := t.Z - c.CZ*c.side
	return lx + lz*c.side
}

func (c *Chunk) height(p grid.Point) int { return c.heights[c.vertexIndex(p)] }

func (c *Chunk) setHeight(p grid.Point, h int) {
	i := c.vertexIndex(p)
	if c.heights[i] == h {
		return
	}
	c.heights[i] = h
	c.dirty = true
}

func (c *Chunk) centerHeight(t grid.Tile) int { return c.centers[c.tileIndex(t)] }

func (c *Chunk) setCenterHeight(t grid.Tile, h int) {
	i := c.tileIndex(t)
	if c.centers[i] == h {
		return
	}
	c.centers[i] = h
	c.dirty = true
}

// Digest returns a stable hash of the chunk's vertex and center heights,
// recomputed lazily when the chunk has been edited.
func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [8]byte
		for _, v := range c.heights {
			binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
			h.Write(tmp[:])
		}
		for _, v := range c.centers {
			binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// Heights returns a copy of the chunk's vertex heights for snapshot export.
func (c *Chunk) Heights() []int {
	out := make([]int, len(c.heights))
	copy(out, c.heights)
	return out
}

// SetHeights restores vertex heights from a snapshot. The caller is expected to
// recompute tile centers afterwards.
func (c *Chunk) SetHeights(hs []int) {
	if len(hs) != len(c.heights) {
		return
	}
	copy(c.heights, hs)
	c.dirty = true
}
