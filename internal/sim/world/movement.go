package world

import (
	"math"

	"terrafold.sim/internal/sim/world/grid"
)

// systemMovement runs every live agent's controller for one tick, in spawn
// order. Terrain edits for this tick have already landed, so each controller
// sees settled geometry.
func (w *World) systemMovement(nowTick uint64) {
	for _, a := range w.sortedAgents() {
		switch a.State {
		case StateStopped:
			// paused; position and intent frozen
		case StateFreeRoam:
			w.tickFreeRoam(a)
		case StateFollowing:
			w.tickFollowing(a)
		case StateSeekFreeTile:
			w.tickSeekFreeTile(a)
		case StateSeekSettlement:
			w.tickSeekSettlement(a)
		case StateSeekRally:
			w.tickSeekRally(a)
		}
	}
}

// scenePoint lifts a lattice vertex to its scene position on the surface.
func (w *World) scenePoint(p grid.Point) Vec3 {
	return Vec3{X: float64(p.X), Y: float64(w.terrain.SurfaceHeightAt(p)), Z: float64(p.Z)}
}

// beginLeg starts interpolation toward the next committed waypoint. A diagonal
// waypoint becomes a two-stage leg through the cut tile's center so the agent
// crosses the tile interior rather than skimming the shared corner. The tile
// the agent departs from counts toward its faction's roam memory here, once
// per leg.
func (w *World) beginLeg(a *Agent, wp grid.Point) {
	from := a.Point()
	w.factions[a.Faction].markVisited(from.Tile(w.cfg.GridSize))

	a.legActive = true
	a.legEnd = wp
	dx, dz := wp.X-from.X, wp.Z-from.Z
	if dx != 0 && dz != 0 {
		t := grid.Tile{X: minInt(from.X, wp.X), Z: minInt(from.Z, wp.Z)}
		a.viaCenter = true
		a.viaTile = t
		a.legTarget = Vec3{
			X: float64(t.X) + 0.5,
			Y: float64(w.terrain.TileCenterHeight(t)),
			Z: float64(t.Z) + 0.5,
		}
		return
	}
	a.viaCenter = false
	a.legTarget = w.scenePoint(wp)
}

// advance moves the agent along its committed path for one tick and reports
// whether the whole path has been consumed. Horizontal speed is constant; Y
// tracks the same interpolation fraction so the agent rides the slope.
func (w *World) advance(a *Agent) bool {
	if !a.legActive {
		// A waypoint the agent already stands on is zero travel: it is consumed
		// here without the visit or decay accounting a real leg gets.
		for a.pathIdx < len(a.path) && a.path[a.pathIdx] == a.Point() {
			a.pathIdx++
		}
		if a.pathIdx >= len(a.path) {
			return true
		}
		w.beginLeg(a, a.path[a.pathIdx])
	}

	speed := float64(w.cfg.MoveSpeedMilli) / 1000
	leeway := float64(w.cfg.ArriveLeewayMilli) / 1000

	dx := a.legTarget.X - a.Pos.X
	dz := a.legTarget.Z - a.Pos.Z
	dist := math.Sqrt(dx*dx + dz*dz)
	if dist > leeway+speed {
		t := speed / dist
		a.Pos.X += dx * t
		a.Pos.Z += dz * t
		a.Pos.Y += (a.legTarget.Y - a.Pos.Y) * t
		return false
	}

	// Waypoint reached; snap to kill drift.
	a.Pos = a.legTarget
	if a.viaCenter {
		a.viaCenter = false
		a.legTarget = w.scenePoint(a.legEnd)
		return false
	}

	a.legActive = false
	a.pathIdx++
	a.decaySteps++
	if a.decaySteps >= w.cfg.StrengthDecayWaypoints {
		a.decaySteps = 0
		if a.Strength > 0 {
			a.Strength--
		}
	}
	return a.pathIdx >= len(a.path)
}

// invalidateAgent reconciles one agent's plan with a terrain change rectangle.
// A leg ending inside the rectangle keeps its X/Z but re-reads the surface
// height, unless the endpoint drowned, in which case the whole plan is
// dropped. A settle target inside the rectangle that is no longer usable
// sends the agent back to roaming.
func (w *World) invalidateAgent(a *Agent, rect grid.Rect) {
	if a.legActive && rect.Contains(a.legEnd) {
		if w.terrain.PointUnderwater(a.legEnd) {
			a.clearPath()
		} else if a.viaCenter {
			a.legTarget.Y = float64(w.terrain.TileCenterHeight(a.viaTile))
		} else {
			a.legTarget.Y = float64(w.terrain.SurfaceHeightAt(a.legEnd))
		}
	}
	if a.hasDestTile && rect.ContainsTile(a.destTile) && !w.settleable(a.destTile) {
		a.toFreeRoam()
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
