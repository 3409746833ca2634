package path

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terrafold.sim/internal/sim/world/grid"
)

// stubTerrain is a synthetic terrain: dry land everywhere except the listed
// underwater vertices.
type stubTerrain struct {
	size  int
	water map[grid.Point]bool
}

func (s *stubTerrain) GridSize() int                     { return s.size }
func (s *stubTerrain) PointUnderwater(p grid.Point) bool { return s.water[p] }
func (s *stubTerrain) TileUnderwater(t grid.Tile) bool {
	for _, c := range t.Corners() {
		if !s.water[c] {
			return false
		}
	}
	return true
}

type stubOccupancy struct {
	blocked map[grid.Tile]bool
}

func (s *stubOccupancy) TileImpassable(t grid.Tile) bool { return s.blocked[t] }

func openGrid(size int) *Finder {
	return NewFinder(&stubTerrain{size: size, water: map[grid.Point]bool{}}, &stubOccupancy{blocked: map[grid.Tile]bool{}})
}

func pathCost(start grid.Point, path []grid.Point) int {
	cost := 0
	prev := start
	for _, p := range path {
		if grid.DistSq(prev, p) == 2 {
			cost += 14
		} else {
			cost += 10
		}
		prev = p
	}
	return cost
}

func TestFindPathDiagonalAcrossOpenGrid(t *testing.T) {
	f := openGrid(10)
	path, outcome := f.FindPath(grid.Point{X: 0, Z: 0}, grid.Point{X: 9, Z: 9})
	require.Equal(t, Found, outcome)
	// 9 diagonal steps, total cost 126.
	require.Len(t, path, 9)
	assert.Equal(t, grid.Point{X: 9, Z: 9}, path[len(path)-1])
	assert.Equal(t, 126, pathCost(grid.Point{X: 0, Z: 0}, path))
}

func TestFindPathMatchesClosedFormCost(t *testing.T) {
	f := openGrid(16)
	start := grid.Point{X: 2, Z: 3}
	for _, end := range []grid.Point{{X: 14, Z: 3}, {X: 2, Z: 15}, {X: 10, Z: 11}, {X: 15, Z: 0}, {X: 3, Z: 2}} {
		path, outcome := f.FindPath(start, end)
		require.Equal(t, Found, outcome, "end %v", end)
		assert.Equal(t, grid.DistCost(start, end), pathCost(start, path), "end %v", end)
	}
}

func TestFindPathStartEqualsGoal(t *testing.T) {
	f := openGrid(10)
	path, outcome := f.FindPath(grid.Point{X: 4, Z: 4}, grid.Point{X: 4, Z: 4})
	require.Equal(t, Found, outcome)
	assert.Equal(t, []grid.Point{{X: 4, Z: 4}}, path)
}

func TestFindPathDropsStart(t *testing.T) {
	f := openGrid(10)
	path, outcome := f.FindPath(grid.Point{X: 3, Z: 3}, grid.Point{X: 5, Z: 3})
	require.Equal(t, Found, outcome)
	require.NotEmpty(t, path)
	assert.NotEqual(t, grid.Point{X: 3, Z: 3}, path[0], "path must hold future steps only")
}

func TestFindPathAroundWater(t *testing.T) {
	terr := &stubTerrain{size: 10, water: map[grid.Point]bool{}}
	// A lake column at x=5 with a gap at z=8.
	for z := 0; z <= 7; z++ {
		terr.water[grid.Point{X: 5, Z: z}] = true
	}
	f := NewFinder(terr, &stubOccupancy{blocked: map[grid.Tile]bool{}})

	start, end := grid.Point{X: 2, Z: 2}, grid.Point{X: 8, Z: 2}
	path, outcome := f.FindPath(start, end)
	require.Equal(t, Found, outcome)

	// Every consecutive pair must be a crossable edge, and no waypoint wet.
	prev := start
	for _, p := range path {
		assert.False(t, terr.water[p], "waypoint %v is underwater", p)
		assert.LessOrEqual(t, grid.DistSq(prev, p), 2, "non-adjacent waypoints %v -> %v", prev, p)
		prev = p
	}
	assert.Equal(t, end, path[len(path)-1])
}

func TestFindPathIgnoreWaterMode(t *testing.T) {
	terr := &stubTerrain{size: 10, water: map[grid.Point]bool{}}
	for z := 0; z <= 10; z++ {
		terr.water[grid.Point{X: 5, Z: z}] = true
	}
	f := NewFinder(terr, &stubOccupancy{blocked: map[grid.Tile]bool{}})

	_, outcome := f.FindPath(grid.Point{X: 2, Z: 5}, grid.Point{X: 8, Z: 5})
	assert.Equal(t, Unreachable, outcome)

	f.IgnoreWater = true
	path, outcome := f.FindPath(grid.Point{X: 2, Z: 5}, grid.Point{X: 8, Z: 5})
	require.Equal(t, Found, outcome)
	assert.Equal(t, grid.Point{X: 8, Z: 5}, path[len(path)-1])
}

func TestFindPathEnclosedGoalUnreachable(t *testing.T) {
	terr := &stubTerrain{size: 12, water: map[grid.Point]bool{}}
	// A moat of underwater vertices two rings around the goal so neither
	// orthogonal nor diagonal steps can slip through.
	goal := grid.Point{X: 6, Z: 6}
	for dz := -2; dz <= 2; dz++ {
		for dx := -2; dx <= 2; dx++ {
			if dx == 0 && dz == 0 {
				continue
			}
			terr.water[goal.Add(dx, dz)] = true
		}
	}
	f := NewFinder(terr, &stubOccupancy{blocked: map[grid.Tile]bool{}})

	path, outcome := f.FindPath(grid.Point{X: 0, Z: 0}, goal)
	assert.Nil(t, path)
	assert.Equal(t, Unreachable, outcome)
}

func TestFindPathExpansionCap(t *testing.T) {
	terr := &stubTerrain{size: 24, water: map[grid.Point]bool{}}
	goal := grid.Point{X: 12, Z: 12}
	for dz := -2; dz <= 2; dz++ {
		for dx := -2; dx <= 2; dx++ {
			if dx == 0 && dz == 0 {
				continue
			}
			terr.water[goal.Add(dx, dz)] = true
		}
	}
	f := NewFinder(terr, &stubOccupancy{blocked: map[grid.Tile]bool{}})
	f.MaxExpansions = 16

	path, outcome := f.FindPath(grid.Point{X: 0, Z: 0}, goal)
	assert.Nil(t, path)
	assert.Equal(t, GaveUp, outcome, "capped search must be distinguishable from proven unreachable")
}

func TestDiagonalCutThroughBlockedTile(t *testing.T) {
	occ := &stubOccupancy{blocked: map[grid.Tile]bool{{X: 4, Z: 4}: true}}
	terr := &stubTerrain{size: 10, water: map[grid.Point]bool{}}
	f := NewFinder(terr, occ)

	// The NE diagonal from (4,4) cuts tile (4,4) and is blocked...
	assert.False(t, f.Crossable(grid.Point{X: 4, Z: 4}, grid.DirNE))
	// ...but the orthogonal steps around it are not tile-checked.
	assert.True(t, f.Crossable(grid.Point{X: 4, Z: 4}, grid.DirE))
	assert.True(t, f.Crossable(grid.Point{X: 4, Z: 4}, grid.DirN))

	// A* routes around the cut, arriving all the same.
	path, outcome := f.FindPath(grid.Point{X: 4, Z: 4}, grid.Point{X: 5, Z: 5})
	require.Equal(t, Found, outcome)
	assert.Len(t, path, 2)
}

func TestFindNextStepGreedy(t *testing.T) {
	f := openGrid(10)

	next, ok := f.FindNextStep(grid.Point{X: 0, Z: 0}, grid.Point{X: 5, Z: 0})
	require.True(t, ok)
	assert.Equal(t, grid.Point{X: 1, Z: 0}, next)

	// Diagonal target prefers the diagonal step.
	next, ok = f.FindNextStep(grid.Point{X: 2, Z: 2}, grid.Point{X: 6, Z: 6})
	require.True(t, ok)
	assert.Equal(t, grid.Point{X: 3, Z: 3}, next)

	// Already there: nothing improves on staying put.
	_, ok = f.FindNextStep(grid.Point{X: 5, Z: 5}, grid.Point{X: 5, Z: 5})
	assert.False(t, ok)
}

func TestFindNextStepBlockedNeighbors(t *testing.T) {
	terr := &stubTerrain{size: 10, water: map[grid.Point]bool{}}
	start := grid.Point{X: 5, Z: 5}
	// Flood every neighbor that would bring us closer to the target.
	for _, q := range []grid.Point{{X: 6, Z: 5}, {X: 6, Z: 6}, {X: 6, Z: 4}} {
		terr.water[q] = true
	}
	f := NewFinder(terr, &stubOccupancy{blocked: map[grid.Tile]bool{}})

	next, ok := f.FindNextStep(start, grid.Point{X: 9, Z: 5})
	// No flooded step may be returned even if a dry one exists further out.
	if ok {
		assert.False(t, terr.water[next])
		assert.Less(t, grid.DistCost(next, grid.Point{X: 9, Z: 5}), grid.DistCost(start, grid.Point{X: 9, Z: 5}))
	}
}
