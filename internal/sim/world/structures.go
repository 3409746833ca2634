package world

import (
	"terrafold.sim/internal/sim/world/grid"
)

// StructureKind classifies what covers a tile. Fields and swamps are permeable:
// agents may cut diagonally through them; settlements and rock block.
type StructureKind uint8

const (
	KindSettlement StructureKind = iota
	KindField
	KindSwamp
	KindRock
)

// StructureHandle is a generation-checked reference to a structure. Structures
// are owned by the structure layer, not by this core; handles let movement
// controllers detect a demolished target without back-pointers.
type StructureHandle struct {
	Idx int32
	Gen uint32
}

func (h StructureHandle) valid() bool { return h.Gen != 0 }

// StructureProvider is the occupancy view the core consumes for tile
// classification and pathfinding crossability.
type StructureProvider interface {
	StructureAt(t grid.Tile) (StructureHandle, bool)
	Permeable(h StructureHandle) bool
}

// SettlementDirectory is the settlement view the seek states consume.
type SettlementDirectory interface {
	CreateSettlementAt(t grid.Tile, faction int) (StructureHandle, bool)
	NearestSettlement(faction int, from grid.Point) (StructureHandle, grid.Tile, bool)
	SettlementTile(h StructureHandle) (grid.Tile, bool)
	// EnterSettlement hands an arriving agent to the settlement's own entry
	// logic. What happens to it there is not this core's business.
	EnterSettlement(h StructureHandle, agentID string)
}

// StructureTable is the in-memory reference implementation of the structure
// layer, used by the headless binary and the tests. Real game rules live in an
// excluded layer; this table only tracks which tile holds what.
type StructureTable struct {
	slots  []structSlot
	byTile map[grid.Tile]int32
}

type structSlot struct {
	gen     uint32
	live    bool
	kind    StructureKind
	tile    grid.Tile
	faction int
}

func NewStructureTable() *StructureTable {
	return &StructureTable{byTile: map[grid.Tile]int32{}}
}

func (s *StructureTable) place(t grid.Tile, kind StructureKind, faction int) (StructureHandle, bool) {
	if _, taken := s.byTile[t]; taken {
		return StructureHandle{}, false
	}
	// Reuse the first dead slot, keeping its bumped generation.
	for i := range s.slots {
		if !s.slots[i].live {
			s.slots[i].live = true
			s.slots[i].kind = kind
			s.slots[i].tile = t
			s.slots[i].faction = faction
			s.byTile[t] = int32(i)
			return StructureHandle{Idx: int32(i), Gen: s.slots[i].gen}, true
		}
	}
	s.slots = append(s.slots, structSlot{gen: 1, live: true, kind: kind, tile: t, faction: faction})
	idx := int32(len(s.slots) - 1)
	s.byTile[t] = idx
	return StructureHandle{Idx: idx, Gen: 1}, true
}

// Remove demolishes a structure; its handles go stale immediately.
func (s *StructureTable) Remove(h StructureHandle) {
	if !s.resolvable(h) {
		return
	}
	sl := &s.slots[h.Idx]
	sl.live = false
	sl.gen++
	delete(s.byTile, sl.tile)
}

func (s *StructureTable) resolvable(h StructureHandle) bool {
	return h.valid() && int(h.Idx) < len(s.slots) && s.slots[h.Idx].live && s.slots[h.Idx].gen == h.Gen
}

func (s *StructureTable) StructureAt(t grid.Tile) (StructureHandle, bool) {
	i, ok := s.byTile[t]
	if !ok {
		return StructureHandle{}, false
	}
	return StructureHandle{Idx: i, Gen: s.slots[i].gen}, true
}

func (s *StructureTable) Permeable(h StructureHandle) bool {
	if !s.resolvable(h) {
		return false
	}
	k := s.slots[h.Idx].kind
	return k == KindField || k == KindSwamp
}

func (s *StructureTable) CreateSettlementAt(t grid.Tile, faction int) (StructureHandle, bool) {
	return s.place(t, KindSettlement, faction)
}

// PlaceField and PlaceSwamp exist for scenario setup; both are permeable cover.
func (s *StructureTable) PlaceField(t grid.Tile, faction int) (StructureHandle, bool) {
	return s.place(t, KindField, faction)
}

func (s *StructureTable) PlaceSwamp(t grid.Tile) (StructureHandle, bool) {
	return s.place(t, KindSwamp, -1)
}

// CoverWithRock drops impassable rock, e.g. on volcano slopes. Existing cover
// on the tile is left alone.
func (s *StructureTable) CoverWithRock(t grid.Tile) (StructureHandle, bool) {
	return s.place(t, KindRock, -1)
}

// NearestSettlement returns the closest live settlement of the faction by scene
// distance to its bottom-left corner; ties keep the lowest slot index.
func (s *StructureTable) NearestSettlement(faction int, from grid.Point) (StructureHandle, grid.Tile, bool) {
	best := -1
	bestD := 0
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.live || sl.kind != KindSettlement || sl.faction != faction {
			continue
		}
		d := grid.DistSq(grid.Point{X: sl.tile.X, Z: sl.tile.Z}, from)
		if best == -1 || d < bestD {
			best, bestD = i, d
		}
	}
	if best == -1 {
		return StructureHandle{}, grid.Tile{}, false
	}
	return StructureHandle{Idx: int32(best), Gen: s.slots[best].gen}, s.slots[best].tile, true
}

func (s *StructureTable) SettlementTile(h StructureHandle) (grid.Tile, bool) {
	if !s.resolvable(h) || s.slots[h.Idx].kind != KindSettlement {
		return grid.Tile{}, false
	}
	return s.slots[h.Idx].tile, true
}

func (s *StructureTable) EnterSettlement(h StructureHandle, agentID string) {
	// Population and growth rules belong to the settlement layer.
}

// StructureRow is one arena slot in export form, dead slots included so that
// handles held by agents stay valid across a snapshot round trip.
type StructureRow struct {
	Gen     uint32 `json:"gen"`
	Live    bool   `json:"live,omitempty"`
	Kind    uint8  `json:"kind,omitempty"`
	TileX   int    `json:"tile_x,omitempty"`
	TileZ   int    `json:"tile_z,omitempty"`
	Faction int    `json:"faction,omitempty"`
}

func (s *StructureTable) Export() []StructureRow {
	rows := make([]StructureRow, len(s.slots))
	for i := range s.slots {
		sl := &s.slots[i]
		rows[i] = StructureRow{
			Gen:     sl.gen,
			Live:    sl.live,
			Kind:    uint8(sl.kind),
			TileX:   sl.tile.X,
			TileZ:   sl.tile.Z,
			Faction: sl.faction,
		}
	}
	return rows
}

func (s *StructureTable) Restore(rows []StructureRow) {
	s.slots = make([]structSlot, len(rows))
	s.byTile = map[grid.Tile]int32{}
	for i, r := range rows {
		t := grid.Tile{X: r.TileX, Z: r.TileZ}
		s.slots[i] = structSlot{
			gen:     r.Gen,
			live:    r.Live,
			kind:    StructureKind(r.Kind),
			tile:    t,
			faction: r.Faction,
		}
		if r.Live {
			s.byTile[t] = int32(i)
		}
	}
}
