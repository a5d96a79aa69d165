package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

// stateDigest hashes the replay-relevant state: movers and every mutated
// chunk. Two worlds with the same seed and the same action history produce
// the same digest, which is what the tick log records for divergence checks.
func (w *World) stateDigest() string {
	h := sha256.New()
	var buf [8]byte

	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	writeF64 := func(v float64) { writeU64(math.Float64bits(v)) }

	writeU64(w.tick.Load())

	ids := make([]string, 0, len(w.movers))
	for id := range w.movers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m := w.movers[id]
		h.Write([]byte(m.ID))
		writeF64(m.Pos[0])
		writeF64(m.Pos[1])
		writeF64(m.Vel[0])
		writeF64(m.Vel[1])
		writeU64(uint64(uint(m.HP)))
	}

	for _, k := range w.chunks.LoadedChunkKeys() {
		ch, ok := w.chunks.Peek(k.CX, k.CY)
		if !ok || !ch.Modified() {
			continue
		}
		writeU64(uint64(int64(k.CX)))
		writeU64(uint64(int64(k.CY)))
		ch.ForEach(func(c Cell) {
			h.Write([]byte{uint8(c.X), uint8(c.Y), uint8(c.Mat), c.Color.R, c.Color.G, c.Color.B, c.Color.A})
		})
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}
