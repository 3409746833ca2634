// Package path implements grid search over the terrain lattice: a full A* for
// committed journeys and a greedy single-step variant for live pursuit. A Finder
// holds no search state; every call is a pure function of the terrain and
// structure occupancy it was built over.
package path

import (
	"terrafold.sim/internal/sim/world/grid"
)

// Terrain is the height/water view the finder needs. Satisfied by
// *terrain.Field.
type Terrain interface {
	GridSize() int
	PointUnderwater(grid.Point) bool
	TileUnderwater(grid.Tile) bool
}

// Occupancy is the structure view the finder needs: whether a tile is covered
// by a structure an agent cannot walk through. Fields and swamps are permeable;
// everything else blocks diagonal tile cuts.
type Occupancy interface {
	TileImpassable(grid.Tile) bool
}

// Outcome distinguishes why a search returned no path.
type Outcome int

const (
	// Found: the returned path reaches the goal.
	Found Outcome = iota
	// Unreachable: the open set emptied; no path exists under the current
	// crossability rules.
	Unreachable
	// GaveUp: the expansion cap was hit before the goal was proven
	// unreachable. Callers should treat the target as currently unreachable
	// but may retry later.
	GaveUp
)

// Finder computes routes over one terrain/occupancy pair.
type Finder struct {
	terrain   Terrain
	occupancy Occupancy

	// IgnoreWater disables the underwater restriction for every crossability
	// check (the global no-water-restriction mode).
	IgnoreWater bool

	// MaxExpansions bounds the number of node expansions per search; zero
	// means unbounded.
	MaxExpansions int
}

func NewFinder(t Terrain, occ Occupancy) *Finder {
	return &Finder{terrain: t, occupancy: occ}
}

// Crossable reports whether an agent may step from one lattice vertex to a
// grid-adjacent one. The destination must not be underwater (unless the
// no-water mode is active), and a diagonal step must not cut through a tile
// that is out of bounds, underwater or covered by an impassable structure.
// Orthogonal steps have no tile-cut check.
func (f *Finder) Crossable(from grid.Point, d grid.Dir) bool {
	to := from.Step(d)
	if !to.InBounds(f.terrain.GridSize()) {
		return false
	}
	if !f.IgnoreWater && f.terrain.PointUnderwater(to) {
		return false
	}
	if d.IsDiagonal() {
		t := from.CutTile(d)
		if !t.InBounds(f.terrain.GridSize()) {
			return false
		}
		if !f.IgnoreWater && f.terrain.TileUnderwater(t) {
			return false
		}
		if f.occupancy != nil && f.occupancy.TileImpassable(t) {
			return false
		}
	}
	return true
}

type node struct {
	point  grid.Point
	parent int // index into the search arena, -1 for the start
	g      int
	h      int
	open   bool
}

// FindPath runs A* from start to end and returns the future steps of the route:
// the start vertex is dropped, so the first element is the next vertex to walk
// to and the last is the goal. A start equal to the goal yields a single-element
// path holding just the goal. A nil path means no route; the outcome says
// whether that is proven or the expansion cap fired.
//
// The open set is scanned linearly and ties on f-cost keep the earliest
// inserted node. That ordering is load-bearing: the movement systems of every
// participant must pick identical routes for the simulation to stay in
// lockstep, so do not swap the scan for a heap without fixing tie-breaks.
func (f *Finder) FindPath(start, end grid.Point) ([]grid.Point, Outcome) {
	size := f.terrain.GridSize()
	if !start.InBounds(size) || !end.InBounds(size) {
		return nil, Unreachable
	}
	if start == end {
		return []grid.Point{end}, Found
	}

	arena := make([]node, 0, 256)
	index := make(map[grid.Point]int, 256)

	arena = append(arena, node{point: start, parent: -1, h: grid.DistCost(start, end), open: true})
	index[start] = 0
	openCount := 1

	expansions := 0
	for openCount > 0 {
		// Linear scan for the lowest f = g+h; first found wins on ties.
		best := -1
		bestF := 0
		for i := range arena {
			if !arena[i].open {
				continue
			}
			fc := arena[i].g + arena[i].h
			if best == -1 || fc < bestF {
				best, bestF = i, fc
			}
		}
		cur := &arena[best]
		cur.open = false
		openCount--

		if cur.point == end {
			return reconstruct(arena, best), Found
		}

		expansions++
		if f.MaxExpansions > 0 && expansions > f.MaxExpansions {
			return nil, GaveUp
		}

		curPoint := cur.point
		curG := cur.g
		for d := grid.Dir(0); d < grid.DirCount; d++ {
			if !f.Crossable(curPoint, d) {
				continue
			}
			next := curPoint.Step(d)
			g := curG + d.Cost()
			if i, seen := index[next]; seen {
				// Strict improvement only, so equal-cost rediscoveries keep
				// their original insertion order.
				if g < arena[i].g {
					arena[i].g = g
					arena[i].parent = best
					if !arena[i].open {
						arena[i].open = true
						openCount++
					}
				}
				continue
			}
			arena = append(arena, node{
				point:  next,
				parent: best,
				g:      g,
				h:      grid.DistCost(next, end),
				open:   true,
			})
			index[next] = len(arena) - 1
			openCount++
		}
	}
	return nil, Unreachable
}

// reconstruct walks parent links goal to start, reverses, and drops the start
// vertex so the path holds future steps only.
func reconstruct(arena []node, goal int) []grid.Point {
	var rev []grid.Point
	for i := goal; i >= 0; i = arena[i].parent {
		rev = append(rev, arena[i].point)
	}
	// rev ends with the start vertex; drop it while reversing.
	out := make([]grid.Point, 0, len(rev)-1)
	for i := len(rev) - 2; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}

// FindNextStep is the cheap pursuit variant: it examines only the eight
// neighbors of start and returns the crossable one closest to end by the
// diagonal-distance metric, provided it improves on staying put. Ties keep the
// first direction in scan order. ok is false when every improving neighbor is
// blocked.
func (f *Finder) FindNextStep(start, end grid.Point) (grid.Point, bool) {
	best := start
	bestD := grid.DistCost(start, end)
	found := false
	for d := grid.Dir(0); d < grid.DirCount; d++ {
		if !f.Crossable(start, d) {
			continue
		}
		next := start.Step(d)
		if dist := grid.DistCost(next, end); dist < bestD {
			best, bestD = next, dist
			found = true
		}
	}
	return best, found
}
