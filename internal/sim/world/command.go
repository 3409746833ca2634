package world

// CommandKind names a divine or administrative command. Commands are the only
// way anything outside the tick loop mutates the world; they queue on the inbox
// and apply in arrival order at the next tick boundary, before any movement.
type CommandKind string

const (
	CmdModifyTerrain CommandKind = "MODIFY_TERRAIN"
	CmdEarthquake    CommandKind = "EARTHQUAKE"
	CmdVolcano       CommandKind = "VOLCANO"
	CmdRaiseWater    CommandKind = "RAISE_WATER"
	CmdSetBehavior   CommandKind = "SET_BEHAVIOR"
	CmdSetRally      CommandKind = "SET_RALLY"
	CmdSpawnAgent    CommandKind = "SPAWN_AGENT"
	CmdDespawnAgent  CommandKind = "DESPAWN_AGENT"
	CmdPause         CommandKind = "PAUSE"
	CmdResume        CommandKind = "RESUME"
)

// Command is one queued mutation. Only the fields its kind needs are set; the
// whole struct marshals into the tick log so a session can be replayed.
type Command struct {
	Kind CommandKind `json:"kind"`

	X     int  `json:"x,omitempty"`
	Z     int  `json:"z,omitempty"`
	Lower bool `json:"lower,omitempty"`

	Radius int   `json:"radius,omitempty"`
	Seed   int64 `json:"seed,omitempty"`

	Faction  int      `json:"faction,omitempty"`
	Behavior Behavior `json:"behavior,omitempty"`

	AgentID string `json:"agent_id,omitempty"`
}
