package world

import (
	"terrafold.sim/internal/sim/world/grid"
)

// tickFreeRoam is the default wander: one-tile hops toward the least-visited
// neighboring tile, re-aimed every few steps. It is also the launch pad for
// the faction behaviors: each tick a roaming agent first checks whether its
// faction's directive can pull it into a seek state.
func (w *World) tickFreeRoam(a *Agent) {
	if a.seekRetry > 0 {
		a.seekRetry--
	}
	if w.adoptBehavior(a) {
		return
	}

	if a.legActive {
		if w.advance(a) {
			a.clearPath()
			a.roamSteps++
		}
		return
	}

	cur := a.Point()
	if a.roamSteps == 0 || a.roamSteps >= w.cfg.RoamRedirectSteps || !w.finder.Crossable(cur, a.roamDir) {
		if !w.chooseRoamDir(a, cur) {
			return // boxed in; stand until the world changes
		}
		a.roamSteps = 1
	}

	a.path = []grid.Point{cur.Step(a.roamDir)}
	a.pathIdx = 0
	if w.advance(a) {
		a.clearPath()
		a.roamSteps++
	}
}

// chooseRoamDir picks the crossable direction whose destination tile the
// faction has visited least. Ties break uniformly at random on the world rng,
// which keeps the wander pattern lively but replayable.
func (w *World) chooseRoamDir(a *Agent, cur grid.Point) bool {
	fac := w.factions[a.Faction]
	found := false
	var bestCount uint16
	var chosen grid.Dir
	ties := 0
	for d := grid.Dir(0); d < grid.DirCount; d++ {
		if !w.finder.Crossable(cur, d) {
			continue
		}
		count := fac.visitedAt(cur.Step(d).Tile(w.cfg.GridSize))
		switch {
		case !found || count < bestCount:
			found = true
			bestCount = count
			chosen = d
			ties = 1
		case count == bestCount:
			ties++
			if w.rngIntn(ties) == 0 {
				chosen = d
			}
		}
	}
	if !found {
		return false
	}
	a.roamDir = chosen
	return true
}

// adoptBehavior maps the faction directive to a seek state for one roaming
// agent. Expensive searches (settle scan, rally path, settlement path) are
// throttled by the retry counter after a failure so a blocked agent does not
// re-plan every tick.
func (w *World) adoptBehavior(a *Agent) bool {
	switch w.factions[a.Faction].Behavior {
	case BehaviorSettle:
		if a.seekRetry > 0 {
			return false
		}
		return w.startSeekFreeTile(a)
	case BehaviorGather:
		if w.startFollowing(a) {
			return true
		}
		if a.seekRetry > 0 {
			return false
		}
		return w.startSeekSettlement(a)
	case BehaviorRally:
		if a.seekRetry > 0 {
			return false
		}
		return w.startSeekRally(a)
	}
	return false
}
