package world

import (
	"encoding/json"
	"sort"

	"spellcoder.dev/internal/protocol"
)

// buildObs assembles the per-tick observation frame for one client: mover
// states plus any chunk in the visible window the client hasn't seen at its
// current revision. Walking the window through GetOrGenChunk is what pulls
// new terrain into existence ahead of the camera.
func (w *World) buildObs(tick uint64, casterID string, cs *clientState) []byte {
	m := w.movers[casterID]
	if m == nil {
		return nil
	}

	x0, x1, y0, y1 := VisibleChunkRange(
		cellOf(m.Pos[0]), cellOf(m.Pos[1]),
		w.cfg.ViewExtent[0], w.cfg.ViewExtent[1],
		w.cfg.ViewMargin,
	)

	var payloads []protocol.ChunkPayload
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			ch := w.chunks.GetOrGenChunk(cx, cy)
			k := ChunkKey{CX: cx, CY: cy}
			if cs.SentRevs[k] >= ch.Rev() {
				continue
			}
			payloads = append(payloads, chunkPayload(ch))
			cs.SentRevs[k] = ch.Rev()
		}
	}

	ids := make([]string, 0, len(w.movers))
	for id := range w.movers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	movers := make([]protocol.MoverState, 0, len(ids))
	for _, id := range ids {
		movers = append(movers, moverState(w.movers[id]))
	}

	obs := protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		You:             moverState(m),
		Movers:          movers,
		Window:          protocol.ChunkWindow{X0: x0, X1: x1, Y0: y0, Y1: y1},
		Chunks:          payloads,
	}
	b, err := json.Marshal(obs)
	if err != nil {
		return nil
	}
	return b
}

func moverState(m *Mover) protocol.MoverState {
	return protocol.MoverState{
		ID:       m.ID,
		Name:     m.Name,
		Pos:      m.Pos,
		Vel:      m.Vel,
		HP:       m.HP,
		OnGround: m.OnGround,
	}
}

func chunkPayload(ch *Chunk) protocol.ChunkPayload {
	p := protocol.ChunkPayload{
		CX:        ch.CX,
		CY:        ch.CY,
		Rev:       ch.Rev(),
		Materials: make([]uint8, ChunkSize*ChunkSize),
		Colors:    make([]uint32, ChunkSize*ChunkSize),
	}
	ch.ForEach(func(c Cell) {
		i := c.X*ChunkSize + c.Y
		p.Materials[i] = uint8(c.Mat)
		p.Colors[i] = packColor(c.Color)
	})
	return p
}

func packColor(c RGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// sendLatest delivers without blocking the world loop: if the client's
// buffer is full the oldest frame is dropped to make room.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
