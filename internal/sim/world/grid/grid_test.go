package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointTileClampsAtOuterEdge(t *testing.T) {
	const size = 8
	assert.Equal(t, Tile{X: 3, Z: 4}, Point{X: 3, Z: 4}.Tile(size))
	// The last row/column of points still resolves to a valid tile.
	assert.Equal(t, Tile{X: 7, Z: 7}, Point{X: 8, Z: 8}.Tile(size))
	assert.Equal(t, Tile{X: 7, Z: 2}, Point{X: 8, Z: 2}.Tile(size))
}

func TestTileCornersOrder(t *testing.T) {
	c := Tile{X: 2, Z: 5}.Corners()
	assert.Equal(t, Point{2, 5}, c[0])
	assert.Equal(t, Point{3, 5}, c[1])
	assert.Equal(t, Point{2, 6}, c[2])
	assert.Equal(t, Point{3, 6}, c[3])
}

func TestClosestCornerTieKeepsFirst(t *testing.T) {
	tile := Tile{X: 0, Z: 0}
	// Equidistant from all four corners: first in iteration order wins.
	assert.Equal(t, Point{0, 0}, tile.ClosestCorner(Point{0, 0}))
	assert.Equal(t, Point{1, 1}, tile.ClosestCorner(Point{2, 2}))
	assert.Equal(t, Point{1, 0}, tile.ClosestCorner(Point{3, 0}))
}

func TestDistCost(t *testing.T) {
	assert.Equal(t, 0, DistCost(Point{3, 3}, Point{3, 3}))
	assert.Equal(t, 10, DistCost(Point{0, 0}, Point{1, 0}))
	assert.Equal(t, 14, DistCost(Point{0, 0}, Point{1, 1}))
	// 9 diagonal steps corner to corner on a 10x10 grid.
	assert.Equal(t, 126, DistCost(Point{0, 0}, Point{9, 9}))
	// Mixed: 3 diagonal + 2 orthogonal.
	assert.Equal(t, 14*3+10*2, DistCost(Point{0, 0}, Point{5, 3}))
}

func TestDirStepAndCost(t *testing.T) {
	p := Point{4, 4}
	seen := map[Point]bool{}
	for d := Dir(0); d < DirCount; d++ {
		n := p.Step(d)
		require.False(t, seen[n], "duplicate neighbor for %v", d)
		seen[n] = true
		if d.IsDiagonal() {
			assert.Equal(t, 14, d.Cost())
			assert.Equal(t, 2, DistSq(p, n))
		} else {
			assert.Equal(t, 10, d.Cost())
			assert.Equal(t, 1, DistSq(p, n))
		}
	}
}

func TestCutTile(t *testing.T) {
	p := Point{3, 3}
	assert.Equal(t, Tile{3, 3}, p.CutTile(DirNE))
	assert.Equal(t, Tile{2, 3}, p.CutTile(DirNW))
	assert.Equal(t, Tile{3, 2}, p.CutTile(DirSE))
	assert.Equal(t, Tile{2, 2}, p.CutTile(DirSW))
}

func TestRectContainsAndExpand(t *testing.T) {
	r := RectAt(Point{5, 5})
	assert.True(t, r.Contains(Point{5, 5}))
	assert.False(t, r.Contains(Point{5, 6}))

	r = r.Expand(Point{3, 8})
	assert.Equal(t, Point{3, 5}, r.Min)
	assert.Equal(t, Point{5, 8}, r.Max)
	assert.True(t, r.ContainsTile(Tile{2, 7})) // corner (3,8) is inside
	assert.False(t, r.ContainsTile(Tile{6, 6}))
}
