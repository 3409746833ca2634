package world

import (
	"terrafold.sim/internal/sim/world/grid"
)

// Vec3 is a continuous scene position. X/Z are in tile units on the lattice
// plane, Y in height units.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// MoveState is the movement controller's current mode.
type MoveState uint8

const (
	StateStopped MoveState = iota
	StateFreeRoam
	StateFollowing
	StateSeekFreeTile
	StateSeekSettlement
	StateSeekRally
)

var stateNames = [...]string{"STOPPED", "FREE_ROAM", "FOLLOWING", "SEEK_FREE_TILE", "SEEK_SETTLEMENT", "SEEK_RALLY"}

func (s MoveState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "?"
}

// Handle is a generation-checked reference into the agent arena. A despawned
// agent bumps its slot generation, so stale handles resolve to nothing instead
// of to whoever reused the slot. The zero Handle resolves to nothing.
type Handle struct {
	Idx int32
	Gen uint32
}

// Agent is one autonomous unit. The movement fields below the ID block are the
// controller's private working state: the current path, the leg being
// interpolated, targets, and the roam/decay counters.
type Agent struct {
	ID      string
	Num     uint64
	Faction int

	Pos      Vec3
	Strength int

	State MoveState
	// state to resume into when a pause lifts
	resumed MoveState

	// Committed path and cursor. The path holds future lattice waypoints only.
	path    []grid.Point
	pathIdx int

	// Current interpolation leg. A diagonal leg is split in two: first to the
	// cut tile's center, then to the far corner, so the agent visibly crosses
	// the tile interior.
	legActive bool
	legTarget Vec3
	legEnd    grid.Point // lattice point the whole leg ends at
	viaCenter bool
	viaTile   grid.Tile

	// Chase/seek targets. target is a live agent; destSettlement a structure.
	target         Handle
	destSettlement StructureHandle
	destTile       grid.Tile
	hasDestTile    bool

	roamDir     grid.Dir
	roamSteps   int
	decaySteps  int
	seekRetry   int

	// Sticky flag for the UI layer: set when no route to the rally point
	// exists, cleared the first time one is found again.
	CannotFindRally bool
}

// Point returns the lattice vertex the agent currently stands on (nearest).
func (a *Agent) Point() grid.Point {
	return grid.Point{X: int(a.Pos.X + 0.5), Z: int(a.Pos.Z + 0.5)}
}

// clearPath drops the committed path and the active leg. This is the only
// cancellation primitive the controller has.
func (a *Agent) clearPath() {
	a.path = nil
	a.pathIdx = 0
	a.legActive = false
	a.viaCenter = false
}

// clearTargets drops chase and settle intent alongside the path.
func (a *Agent) clearTargets() {
	a.clearPath()
	a.target = Handle{}
	a.destSettlement = StructureHandle{}
	a.hasDestTile = false
}

// toFreeRoam is the universal fallback: any lost target, completed journey or
// invalidated plan lands here.
func (a *Agent) toFreeRoam() {
	a.clearTargets()
	a.State = StateFreeRoam
	a.roamSteps = 0
}
