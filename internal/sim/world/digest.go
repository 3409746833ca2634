package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// stateDigest hashes everything that participates in simulation outcomes:
// tick, seed, water level, every chunk's height digest, every agent in spawn
// order, and every faction. Two worlds fed the same commands must produce the
// same digest each tick; a divergence pinpoints the first bad tick.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	hashU64(h, nowTick)
	hashU64(h, uint64(w.cfg.Seed))
	hashU64(h, w.rngState)
	hashU64(h, uint64(w.terrain.WaterLevel()))

	for cz := 0; cz < w.terrain.ChunksPerSide(); cz++ {
		for cx := 0; cx < w.terrain.ChunksPerSide(); cx++ {
			d := w.terrain.ChunkAt(cx, cz).Digest()
			h.Write(d[:])
		}
	}

	for _, a := range w.sortedAgents() {
		hashU64(h, a.Num)
		hashU64(h, uint64(a.Faction))
		hashU64(h, math.Float64bits(a.Pos.X))
		hashU64(h, math.Float64bits(a.Pos.Y))
		hashU64(h, math.Float64bits(a.Pos.Z))
		hashU64(h, uint64(a.Strength))
		hashU64(h, uint64(a.State))
		hashU64(h, uint64(a.roamDir))
		hashU64(h, uint64(a.roamSteps))
		hashU64(h, uint64(a.decaySteps))
		hashU64(h, uint64(a.seekRetry))
		hashBool(h, a.legActive)
		hashBool(h, a.hasDestTile)
		hashBool(h, a.CannotFindRally)
	}

	for _, f := range w.factions {
		hashU64(h, uint64(f.Behavior))
		hashBool(h, f.HasRally)
		hashU64(h, uint64(int64(f.RallyTile.X)))
		hashU64(h, uint64(int64(f.RallyTile.Z)))
		var buf [2]byte
		for _, v := range f.visited {
			binary.LittleEndian.PutUint16(buf[:], v)
			h.Write(buf[:])
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

func hashU64(h hash.Hash, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}

func hashBool(h hash.Hash, v bool) {
	if v {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
}
