package world

import (
	"terrafold.sim/internal/sim/world/grid"
	"terrafold.sim/internal/sim/world/path"
)

// startSeekFreeTile scans for a settleable tile near the agent and commits a
// path to it. On failure the retry counter arms and the agent keeps roaming.
func (w *World) startSeekFreeTile(a *Agent) bool {
	if w.settlements == nil {
		return false
	}
	cur := a.Point()
	t, pth, ok := w.scanFreeTile(a, cur)
	if !ok {
		a.seekRetry = w.cfg.SettleRetryTicks
		return false
	}
	a.destTile = t
	a.hasDestTile = true
	a.path = pth
	a.pathIdx = 0
	a.State = StateSeekFreeTile
	w.tickSeekFreeTile(a)
	return true
}

// scanFreeTile looks for a flat, dry, unoccupied, reachable tile. The four
// tiles touching the agent's vertex go first; after that the scan pushes out
// in the agent's roam direction, as a widening strip for an axis direction or
// a growing diagonal front for a diagonal one. First hit wins.
func (w *World) scanFreeTile(a *Agent, cur grid.Point) (grid.Tile, []grid.Point, bool) {
	try := func(t grid.Tile) ([]grid.Point, bool) {
		if !w.settleable(t) {
			return nil, false
		}
		p, outcome := w.finder.FindPath(cur, t.ClosestCorner(cur))
		if outcome != path.Found {
			return nil, false
		}
		return p, true
	}

	touching := [4]grid.Tile{
		{X: cur.X - 1, Z: cur.Z - 1},
		{X: cur.X, Z: cur.Z - 1},
		{X: cur.X - 1, Z: cur.Z},
		{X: cur.X, Z: cur.Z},
	}
	for _, t := range touching {
		if p, ok := try(t); ok {
			return t, p, true
		}
	}

	base := cur.Tile(w.cfg.GridSize)
	dx, dz := a.roamDir.Offset()
	for r := 1; r <= w.cfg.SettleScanRadius; r++ {
		if a.roamDir.IsDiagonal() {
			// Diagonal front: tiles at taxicab distance r inside the quadrant.
			for i := 0; i <= r; i++ {
				t := grid.Tile{X: base.X + dx*i, Z: base.Z + dz*(r-i)}
				if p, ok := try(t); ok {
					return t, p, true
				}
			}
			continue
		}
		// Axis strip: distance r ahead, sweeping outward from the center line.
		for off := 0; off <= r; off++ {
			for _, s := range [2]int{off, -off} {
				t := grid.Tile{X: base.X + dx*r + dz*s, Z: base.Z + dz*r + dx*s}
				if p, ok := try(t); ok {
					return t, p, true
				}
				if off == 0 {
					break
				}
			}
		}
	}
	return grid.Tile{}, nil, false
}

// tickSeekFreeTile walks the committed path and, on arrival, founds the
// settlement if the tile survived the journey unclaimed, dry and flat.
// Either way the agent lands back in free roam.
func (w *World) tickSeekFreeTile(a *Agent) {
	if !a.hasDestTile {
		a.toFreeRoam()
		return
	}
	if !w.advance(a) {
		return
	}
	if w.settleable(a.destTile) {
		w.settlements.CreateSettlementAt(a.destTile, a.Faction)
	}
	a.toFreeRoam()
}

// startFollowing acquires the nearest agent of any other faction as a chase
// target. No candidates means no transition.
func (w *World) startFollowing(a *Agent) bool {
	cur := a.Point()
	var best *Agent
	bestD := 0
	for _, other := range w.sortedAgents() {
		if other.Faction == a.Faction {
			continue
		}
		d := grid.DistSq(cur, other.Point())
		if best == nil || d < bestD {
			best = other
			bestD = d
		}
	}
	if best == nil {
		return false
	}
	a.target = w.byID[best.ID]
	a.State = StateFollowing
	w.tickFollowing(a)
	return true
}

// tickFollowing greedily closes on a moving target, one step at a time. The
// target despawning or becoming unreachable drops the chase.
func (w *World) tickFollowing(a *Agent) {
	t := w.resolveAgent(a.target)
	if t == nil {
		a.toFreeRoam()
		return
	}
	if a.legActive {
		if w.advance(a) {
			a.clearPath()
		}
		return
	}
	cur := a.Point()
	goal := t.Point()
	if cur == goal {
		return // on top of the target; contact resolution is not ours
	}
	next, ok := w.finder.FindNextStep(cur, goal)
	if !ok {
		a.toFreeRoam()
		return
	}
	a.path = []grid.Point{next}
	a.pathIdx = 0
	if w.advance(a) {
		a.clearPath()
	}
}

// startSeekSettlement targets the nearest settlement of a rival faction, used
// by the gather directive when no enemy agents are in the world.
func (w *World) startSeekSettlement(a *Agent) bool {
	if w.settlements == nil {
		return false
	}
	cur := a.Point()
	var bestH StructureHandle
	var bestTile grid.Tile
	bestD := 0
	found := false
	for fid := range w.factions {
		if fid == a.Faction {
			continue
		}
		h, t, ok := w.settlements.NearestSettlement(fid, cur)
		if !ok {
			continue
		}
		d := grid.DistSq(cur, t.ClosestCorner(cur))
		if !found || d < bestD {
			found = true
			bestH = h
			bestTile = t
			bestD = d
		}
	}
	if !found {
		return false
	}
	p, outcome := w.finder.FindPath(cur, bestTile.ClosestCorner(cur))
	if outcome != path.Found {
		a.seekRetry = w.cfg.SettleRetryTicks
		return false
	}
	a.destSettlement = bestH
	a.path = p
	a.pathIdx = 0
	a.State = StateSeekSettlement
	w.tickSeekSettlement(a)
	return true
}

// tickSeekSettlement walks to the target settlement and hands the agent to its
// entry logic on arrival. A settlement demolished mid-transit is detected by
// its handle going stale.
func (w *World) tickSeekSettlement(a *Agent) {
	if !a.destSettlement.valid() {
		a.toFreeRoam()
		return
	}
	if _, ok := w.settlements.SettlementTile(a.destSettlement); !ok {
		a.toFreeRoam()
		return
	}
	if !w.advance(a) {
		return
	}
	w.settlements.EnterSettlement(a.destSettlement, a.ID)
	a.toFreeRoam()
}

// startSeekRally paths toward the faction's rally tile. The sticky
// CannotFindRally flag flips on when no route exists and off again the first
// time one is found.
func (w *World) startSeekRally(a *Agent) bool {
	fac := w.factions[a.Faction]
	if !fac.HasRally {
		return false
	}
	cur := a.Point()
	p, outcome := w.finder.FindPath(cur, fac.RallyTile.ClosestCorner(cur))
	if outcome != path.Found {
		a.CannotFindRally = true
		a.seekRetry = w.cfg.SettleRetryTicks
		return false
	}
	a.CannotFindRally = false
	a.path = p
	a.pathIdx = 0
	a.State = StateSeekRally
	w.tickSeekRally(a)
	return true
}

// tickSeekRally walks the committed rally path and idles at the rally point
// when it ends.
func (w *World) tickSeekRally(a *Agent) {
	if w.advance(a) {
		a.toFreeRoam()
	}
}