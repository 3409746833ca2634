package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 is the full deterministic state of one world: terrain heights,
// water level, live agents with their movement state, factions, and the
// counters and rng state a resumed world needs to keep replaying bit-exactly.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed          int64 `json:"seed"`
	TickRate      int   `json:"tick_rate_hz"`
	GridSize      int   `json:"grid_size"`
	TilesPerChunk int   `json:"tiles_per_chunk"`
	StepHeight    int   `json:"step_height"`
	MaxHeight     int   `json:"max_height"`
	WaterLevel    int   `json:"water_level"`

	RNGState     uint64 `json:"rng_state"`
	NextAgentNum uint64 `json:"next_agent_num"`

	// Generation counter of every arena slot, dead ones included, so stale
	// handles stay stale after a restore.
	SlotGens []uint32 `json:"slot_gens,omitempty"`

	Chunks     []ChunkV1     `json:"chunks"`
	Agents     []AgentV1     `json:"agents"`
	Factions   []FactionV1   `json:"factions"`
	Structures []StructureV1 `json:"structures,omitempty"`
}

// StructureV1 mirrors one structure arena slot, dead slots included.
type StructureV1 struct {
	Gen     uint32 `json:"gen"`
	Live    bool   `json:"live,omitempty"`
	Kind    uint8  `json:"kind,omitempty"`
	TileX   int    `json:"tile_x,omitempty"`
	TileZ   int    `json:"tile_z,omitempty"`
	Faction int    `json:"faction,omitempty"`
}

type ChunkV1 struct {
	CX      int   `json:"cx"`
	CZ      int   `json:"cz"`
	Heights []int `json:"heights"`
}

type PointV1 struct {
	X int `json:"x"`
	Z int `json:"z"`
}

type AgentV1 struct {
	ID      string `json:"id"`
	Num     uint64 `json:"num"`
	Faction int    `json:"faction"`

	// Arena slot, so handles held by other agents survive a restore.
	SlotIdx int32  `json:"slot_idx"`
	SlotGen uint32 `json:"slot_gen"`

	Pos      [3]float64 `json:"pos"`
	Strength int        `json:"strength"`

	State   uint8 `json:"state"`
	Resumed uint8 `json:"resumed,omitempty"`

	Path    []PointV1 `json:"path,omitempty"`
	PathIdx int       `json:"path_idx,omitempty"`

	LegActive bool       `json:"leg_active,omitempty"`
	LegTarget [3]float64 `json:"leg_target,omitempty"`
	LegEnd    PointV1    `json:"leg_end,omitempty"`
	ViaCenter bool       `json:"via_center,omitempty"`
	ViaTile   PointV1    `json:"via_tile,omitempty"`

	TargetIdx int32  `json:"target_idx,omitempty"`
	TargetGen uint32 `json:"target_gen,omitempty"`

	DestSetIdx int32  `json:"dest_set_idx,omitempty"`
	DestSetGen uint32 `json:"dest_set_gen,omitempty"`

	DestTile    PointV1 `json:"dest_tile,omitempty"`
	HasDestTile bool    `json:"has_dest_tile,omitempty"`

	RoamDir    uint8 `json:"roam_dir,omitempty"`
	RoamSteps  int   `json:"roam_steps,omitempty"`
	DecaySteps int   `json:"decay_steps,omitempty"`
	SeekRetry  int   `json:"seek_retry,omitempty"`

	CannotFindRally bool `json:"cannot_find_rally,omitempty"`
}

type FactionV1 struct {
	ID       int      `json:"id"`
	Behavior uint8    `json:"behavior"`
	Rally    PointV1  `json:"rally,omitempty"`
	HasRally bool     `json:"has_rally,omitempty"`
	Visited  []uint16 `json:"visited,omitempty"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is advisory; the gob body carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
