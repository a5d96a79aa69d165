package world

import (
	"encoding/json"
	"math"

	"spellcoder.dev/internal/protocol"
	"spellcoder.dev/internal/sim/spellbook"
)

func okResult(actID string) protocol.ResultMsg {
	return protocol.ResultMsg{Type: protocol.TypeResult, ActID: actID, OK: true}
}

func errResult(actID, code string) protocol.ResultMsg {
	return protocol.ResultMsg{Type: protocol.TypeResult, ActID: actID, OK: false, Code: code}
}

func marshalResult(res protocol.ResultMsg) []byte {
	b, err := json.Marshal(res)
	if err != nil {
		return nil
	}
	return b
}

// applyAct executes one client action on the world loop and returns the
// result to ship back.
func (w *World) applyAct(tick uint64, env ActionEnvelope) protocol.ResultMsg {
	m := w.movers[env.CasterID]
	if m == nil {
		return errResult(env.Act.ActID, protocol.ErrBadRequest)
	}

	switch env.Act.Kind {
	case protocol.ActMove:
		if env.Act.Move == nil {
			return errResult(env.Act.ActID, protocol.ErrBadRequest)
		}
		m.inputX = clampF(env.Act.Move.DX, -1, 1)
		if env.Act.Move.Jump {
			m.jumpQueued = true
		}
		return okResult(env.Act.ActID)

	case protocol.ActCast:
		if env.Act.Cast == nil {
			return errResult(env.Act.ActID, protocol.ErrBadRequest)
		}
		return w.applyCast(tick, m, env.Act.ActID, *env.Act.Cast)

	case protocol.ActSetCell:
		if env.Act.SetCell == nil {
			return errResult(env.Act.ActID, protocol.ErrBadRequest)
		}
		sc := env.Act.SetCell
		mat, ok := MaterialFromString(sc.Material)
		if !ok {
			return errResult(env.Act.ActID, protocol.ErrBadMaterial)
		}
		w.chunks.SetCellAt(sc.Pos[0], sc.Pos[1], Cell{
			Mat:   mat,
			Color: RGBA{R: sc.Color[0], G: sc.Color[1], B: sc.Color[2], A: sc.Color[3]},
		})
		return okResult(env.Act.ActID)

	default:
		return errResult(env.Act.ActID, protocol.ErrBadRequest)
	}
}

func (w *World) applyCast(tick uint64, caster *Mover, actID string, cast protocol.CastAct) protocol.ResultMsg {
	spell, ok := w.book.Get(cast.SpellID)
	if !ok {
		return errResult(actID, protocol.ErrUnknownSpell)
	}
	if ready, has := caster.cooldowns[spell.ID]; has && tick < ready {
		return errResult(actID, protocol.ErrCooldown)
	}

	tx, ty := cast.Target[0], cast.Target[1]
	dx := float64(tx) + 0.5 - caster.Pos[0]
	dy := float64(ty) + 0.5 - caster.Pos[1]
	if math.Hypot(dx, dy) > float64(spell.Range) {
		return errResult(actID, protocol.ErrOutOfRange)
	}

	// Reject before any effect applies: a loaded spell carrying a component
	// kind the engine cannot execute is a server-side defect, and partial
	// application would leave the world half-mutated.
	for _, comp := range spell.Components {
		switch comp.Kind {
		case spellbook.KindCarve, spellbook.KindPlace, spellbook.KindBolt:
		default:
			return errResult(actID, protocol.ErrInternal)
		}
	}

	for _, comp := range spell.Components {
		switch comp.Kind {
		case spellbook.KindCarve:
			w.carve(tx, ty, comp.Radius)
		case spellbook.KindPlace:
			w.place(tx, ty, comp)
		case spellbook.KindBolt:
			w.bolt(caster, tx, ty, comp.Damage)
		}
	}
	caster.cooldowns[spell.ID] = tick + uint64(spell.CooldownTicks)
	return okResult(actID)
}

// carve clears a disc of cells to open air. Carved air keeps a faint haze
// alpha so it shades like generated air rather than a hard void.
func (w *World) carve(tx, ty, radius int) {
	forDisc(tx, ty, radius, func(x, y int) {
		w.chunks.SetCellAt(x, y, Cell{Mat: Air, Color: RGBA{R: 180, G: 200, B: 220, A: 24}})
	})
}

func (w *World) place(tx, ty int, comp spellbook.Component) {
	mat, ok := MaterialFromString(comp.Material)
	if !ok {
		mat = Block
	}
	col := RGBA{R: comp.Color[0], G: comp.Color[1], B: comp.Color[2], A: comp.Color[3]}
	if col == (RGBA{}) {
		col = RGBA{R: 110, G: 110, B: 120, A: 255}
	}
	forDisc(tx, ty, comp.Radius, func(x, y int) {
		w.chunks.SetCellAt(x, y, Cell{Mat: mat, Color: col})
	})
}

// bolt walks the caster→target segment in half-cell steps, stopping at the
// first solid cell, and damages every other mover whose body the ray passes
// through.
func (w *World) bolt(caster *Mover, tx, ty int, damage int) {
	if damage <= 0 {
		return
	}
	x0, y0 := caster.Pos[0], caster.Pos[1]
	dx := float64(tx) + 0.5 - x0
	dy := float64(ty) + 0.5 - y0
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return
	}
	steps := int(dist*2) + 1
	sx, sy := dx/float64(steps), dy/float64(steps)

	hit := map[string]bool{}
	sxp, syp := w.findSpawn()
	x, y := x0, y0
	for i := 0; i < steps; i++ {
		x += sx
		y += sy
		if w.solidAt(cellOf(x), cellOf(y)) {
			return
		}
		for id, m := range w.movers {
			if id == caster.ID || hit[id] {
				continue
			}
			if math.Abs(m.Pos[0]-x) <= 0.6 && math.Abs(m.Pos[1]-y) <= 0.6 {
				hit[id] = true
				m.damage(uint(damage), float64(sxp)+0.5, float64(syp)+0.5)
			}
		}
	}
}

func forDisc(cx, cy, radius int, fn func(x, y int)) {
	if radius < 0 {
		return
	}
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= r2 {
				fn(cx+dx, cy+dy)
			}
		}
	}
}
