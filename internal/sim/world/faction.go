package world

import (
	"terrafold.sim/internal/sim/world/grid"
)

// Behavior is a faction-wide movement directive. Each agent's controller maps
// it to a concrete seek state when leaving free roam.
type Behavior uint8

const (
	BehaviorRoam Behavior = iota
	BehaviorSettle
	BehaviorGather
	BehaviorRally
)

var behaviorNames = [...]string{"ROAM", "SETTLE", "GATHER", "RALLY"}

func (b Behavior) String() string {
	if int(b) < len(behaviorNames) {
		return behaviorNames[b]
	}
	return "?"
}

// Faction owns the per-side movement state: the active behavior, the optional
// rally tile, and the dense visited-tile counter grid roam selection reads.
type Faction struct {
	ID       int
	Behavior Behavior

	RallyTile grid.Tile
	HasRally  bool

	gridSize int
	visited  []uint16 // gridSize^2 tile counters
}

func newFaction(id, gridSize int) *Faction {
	return &Faction{
		ID:       id,
		gridSize: gridSize,
		visited:  make([]uint16, gridSize*gridSize),
	}
}

func (f *Faction) visitedAt(t grid.Tile) uint16 {
	if !t.InBounds(f.gridSize) {
		return 0
	}
	return f.visited[t.Z*f.gridSize+t.X]
}

func (f *Faction) markVisited(t grid.Tile) {
	if !t.InBounds(f.gridSize) {
		return
	}
	i := t.Z*f.gridSize + t.X
	if f.visited[i] < ^uint16(0) {
		f.visited[i]++
	}
}

// resetVisited wipes the counters. Called on every behavior change so the
// roam heuristic starts fresh under the new directive.
func (f *Faction) resetVisited() {
	for i := range f.visited {
		f.visited[i] = 0
	}
}

// setBehavior switches the directive and resets roam memory. Rally data
// survives so switching away and back keeps the magnet.
func (f *Faction) setBehavior(b Behavior) {
	if f.Behavior == b {
		return
	}
	f.Behavior = b
	f.resetVisited()
}
