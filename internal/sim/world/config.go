package world

// WorldConfig carries everything needed to build a deterministic world. Two
// worlds built from equal configs and fed equal command streams stay
// digest-identical forever; anything that could break that must live here.
type WorldConfig struct {
	ID         string
	TickRateHz int
	Seed       int64

	// Terrain geometry.
	GridSize      int
	TilesPerChunk int
	StepHeight    int
	MaxHeight     int
	WaterLevel    int

	// Movement tuning.
	MoveSpeedMilli    int // scene units per tick, thousandths of a tile
	ArriveLeewayMilli int // waypoint arrival slack, thousandths of a tile

	StrengthDecayWaypoints int // strength drops one unit per this many waypoints
	RoamRedirectSteps      int // roam direction re-evaluated per this many steps
	SettleRetryTicks       int // cooldown after a failed settle scan
	SettleScanRadius       int // outward scan bound for free-tile search
	InitialStrength        int

	// Pathfinding. Zero disables the cap.
	PathExpansionCap int

	// Operational.
	SnapshotEveryTicks int

	Factions int
}

func (c *WorldConfig) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.GridSize <= 0 {
		c.GridSize = 64
	}
	if c.TilesPerChunk <= 0 {
		c.TilesPerChunk = 16
	}
	if c.StepHeight <= 0 {
		c.StepHeight = 2
	}
	if c.MaxHeight <= 0 {
		c.MaxHeight = 16
	}
	if c.WaterLevel < 0 {
		c.WaterLevel = 0
	}
	if c.MoveSpeedMilli <= 0 {
		c.MoveSpeedMilli = 150
	}
	if c.ArriveLeewayMilli <= 0 {
		c.ArriveLeewayMilli = 50
	}
	if c.StrengthDecayWaypoints <= 0 {
		c.StrengthDecayWaypoints = 12
	}
	if c.RoamRedirectSteps <= 0 {
		c.RoamRedirectSteps = 8
	}
	if c.SettleRetryTicks <= 0 {
		c.SettleRetryTicks = 20
	}
	if c.SettleScanRadius <= 0 {
		c.SettleScanRadius = 9
	}
	if c.InitialStrength <= 0 {
		c.InitialStrength = 100
	}
	if c.PathExpansionCap < 0 {
		c.PathExpansionCap = 0
	}
	if c.SnapshotEveryTicks <= 0 {
		c.SnapshotEveryTicks = 3000
	}
	if c.Factions <= 0 {
		c.Factions = 2
	}
}
