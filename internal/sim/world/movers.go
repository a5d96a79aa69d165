package world

import "math"

const moverMaxHP = 100

// Mover is an entity under simple physics: gravity, horizontal input, and
// cell-resolution collision. The player and anything a bolt can hit.
type Mover struct {
	ID   string
	Name string

	Pos [2]float64 // center, in cells; +Y is down
	Vel [2]float64 // cells/s
	HP  int

	OnGround bool

	inputX     float64
	jumpQueued bool

	// spell id -> tick at which it may be cast again
	cooldowns map[string]uint64
}

func NewMover(id, name string, x, y float64) *Mover {
	return &Mover{
		ID:        id,
		Name:      name,
		Pos:       [2]float64{x, y},
		HP:        moverMaxHP,
		cooldowns: map[string]uint64{},
	}
}

// solidAt reports whether the cell at a world coordinate blocks movement.
// A cell-lookup invariant failure is counted and treated as solid: collision
// must fail closed, never fall through to Air.
func (w *World) solidAt(wx, wy int) bool {
	cell, err := w.chunks.CellAt(wx, wy)
	if err != nil {
		w.metrics.cellMisses.Add(1)
		return true
	}
	return cell.Mat.Solid()
}

// stepMover advances one mover by dt seconds, resolving each axis
// independently against the cell grid. Vertical contact resolves by probing
// away from the obstruction one cell at a time until a non-solid cell
// admits the mover, which also drives lazy chunk generation at the frontier
// of wherever movers travel.
func (w *World) stepMover(m *Mover, dt float64) {
	p := w.cfg.Physics

	vx := clampF(m.inputX, -1, 1) * p.MoveSpeed
	vy := m.Vel[1] + p.Gravity*dt
	if m.jumpQueued && m.OnGround {
		vy = -p.JumpSpeed
	}
	m.jumpQueued = false

	// Horizontal: blocked moves are cancelled outright, no sliding.
	nx := m.Pos[0] + vx*dt
	if w.solidAt(cellOf(nx), cellOf(m.Pos[1])) {
		nx = m.Pos[0]
		vx = 0
	}

	ny := m.Pos[1] + vy*dt
	cx := cellOf(nx)
	switch {
	case vy > 0: // falling
		m.OnGround = false
		if w.solidAt(cx, cellOf(ny)) {
			y := cellOf(ny)
			for w.solidAt(cx, y) {
				y--
			}
			ny = float64(y) + 0.5
			vy = 0
			m.OnGround = true
		}
	case vy < 0: // rising
		if w.solidAt(cx, cellOf(ny)) {
			y := cellOf(ny)
			for w.solidAt(cx, y) {
				y++
			}
			ny = float64(y) + 0.5
			vy = 0
		}
	}

	m.Pos = [2]float64{nx, ny}
	m.Vel = [2]float64{vx, vy}
}

func (m *Mover) damage(amount uint, respawnX, respawnY float64) {
	m.HP -= int(amount)
	if m.HP <= 0 {
		m.HP = moverMaxHP
		m.Pos = [2]float64{respawnX, respawnY}
		m.Vel = [2]float64{}
	}
}

func cellOf(v float64) int { return int(math.Floor(v)) }

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
