package world

import (
	"fmt"
	"sort"

	"spellcoder.dev/internal/persistence/snapshot"
)

// ExportSnapshot captures the state that cannot be regenerated from the
// seed: mutated chunks, movers, and counters. Pristine chunks are omitted
// because the lazy generation path rebuilds them bit-identically.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: 1,
			WorldID: w.cfg.ID,
			Tick:    w.tick.Load(),
		},
		Seed:              w.cfg.Seed,
		TickRateHz:        w.cfg.TickRateHz,
		TerrainWavelength: w.cfg.Gen.TerrainWavelength,
		DetailWavelength:  w.cfg.Gen.DetailWavelength,
		UpperThreshold:    w.cfg.Gen.Upper,
		LowerThreshold:    w.cfg.Gen.Lower,
		NextCaster:        w.nextCasterNum.Load(),
	}

	for _, k := range w.chunks.LoadedChunkKeys() {
		ch, ok := w.chunks.Peek(k.CX, k.CY)
		if !ok || !ch.Modified() {
			continue
		}
		cv := snapshot.ChunkV1{CX: k.CX, CY: k.CY}
		ch.ForEach(func(c Cell) {
			cv.Cells = append(cv.Cells, snapshot.CellV1{
				X:        c.X,
				Y:        c.Y,
				Material: uint8(c.Mat),
				Color:    [4]uint8{c.Color.R, c.Color.G, c.Color.B, c.Color.A},
			})
		})
		snap.Chunks = append(snap.Chunks, cv)
	}

	ids := make([]string, 0, len(w.movers))
	for id := range w.movers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m := w.movers[id]
		snap.Movers = append(snap.Movers, snapshot.MoverV1{
			ID:   m.ID,
			Name: m.Name,
			Pos:  m.Pos,
			Vel:  m.Vel,
			HP:   m.HP,
		})
	}
	return snap
}

// ImportSnapshot restores a snapshot into a freshly constructed world. Must
// run before the loop starts. Mutated chunks are regenerated from seed and
// then overwritten cell by cell.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Seed != w.cfg.Seed {
		return fmt.Errorf("snapshot seed %d does not match world seed %d", snap.Seed, w.cfg.Seed)
	}
	w.tick.Store(snap.Header.Tick)
	w.nextCasterNum.Store(snap.NextCaster)

	for _, cv := range snap.Chunks {
		ch := w.chunks.GetOrGenChunk(cv.CX, cv.CY)
		for _, c := range cv.Cells {
			if !inBounds(c.X, c.Y) {
				return fmt.Errorf("snapshot chunk (%d,%d): cell (%d,%d) out of bounds", cv.CX, cv.CY, c.X, c.Y)
			}
			ch.SetCell(Cell{
				X:     c.X,
				Y:     c.Y,
				Mat:   Material(c.Material),
				Color: RGBA{R: c.Color[0], G: c.Color[1], B: c.Color[2], A: c.Color[3]},
			})
		}
	}

	for _, mv := range snap.Movers {
		m := NewMover(mv.ID, mv.Name, mv.Pos[0], mv.Pos[1])
		m.Vel = mv.Vel
		m.HP = mv.HP
		w.movers[mv.ID] = m
	}
	return nil
}

func (w *World) maybeSnapshot(tick uint64) {
	if w.snapshotSink == nil || w.cfg.SnapshotEveryTicks <= 0 {
		return
	}
	if tick == 0 || tick%uint64(w.cfg.SnapshotEveryTicks) != 0 {
		return
	}
	select {
	case w.snapshotSink <- w.ExportSnapshot():
	default:
		// A slow writer must not stall the loop; skip this one.
	}
}
