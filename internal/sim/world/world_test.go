package world

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"spellcoder.dev/internal/protocol"
	"spellcoder.dev/internal/sim/spellbook"
)

func testSpellbook(t *testing.T) *spellbook.Book {
	t.Helper()
	dir := t.TempDir()
	spells := map[string]string{
		"blast.json": `{
			"id": "blast",
			"name": "Blast",
			"range": 8,
			"cooldown_ticks": 10,
			"components": [
				{"kind": "CARVE", "radius": 2},
				{"kind": "BOLT", "damage": 25}
			]
		}`,
		"wall.json": `{
			"id": "wall",
			"name": "Wall",
			"range": 6,
			"cooldown_ticks": 5,
			"components": [
				{"kind": "PLACE", "radius": 1, "material": "BLOCK", "color": [120, 120, 130, 255]}
			]
		}`,
	}
	for name, body := range spells {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	book, err := spellbook.Load(dir)
	if err != nil {
		t.Fatalf("load spellbook: %v", err)
	}
	return book
}

func testConfig() Config {
	return Config{
		ID:         "test",
		TickRateHz: 30,
		Seed:       42,
		ViewExtent: [2]int{48, 32},
		ViewMargin: 1,
		Physics:    PhysicsParams{Gravity: 30, MoveSpeed: 8, JumpSpeed: 12},
	}
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := New(testConfig(), testSpellbook(t))
	if err != nil {
		t.Fatal(err)
	}
	return w
}

// flatten carves a rectangular room with a solid floor at floorY so physics
// tests are independent of the generated terrain.
func flatten(w *World, x0, x1, floorY int) {
	for x := x0; x <= x1; x++ {
		for y := floorY - 8; y < floorY; y++ {
			w.chunks.SetCellAt(x, y, Cell{Mat: Air})
		}
		w.chunks.SetCellAt(x, floorY, Cell{Mat: Block, Color: RGBA{A: 255}})
	}
}

func join(t *testing.T, w *World, name, token string) protocol.WelcomeMsg {
	t.Helper()
	req := JoinRequest{
		Name:        name,
		ResumeToken: token,
		Out:         make(chan []byte, 8),
		Resp:        make(chan JoinResponse, 1),
	}
	w.StepOnce([]JoinRequest{req}, nil, nil)
	select {
	case resp := <-req.Resp:
		return resp.Welcome
	default:
		t.Fatal("join produced no welcome")
		return protocol.WelcomeMsg{}
	}
}

func TestJoinWelcome(t *testing.T) {
	w := newTestWorld(t)
	welcome := join(t, w, "ada", "")

	if welcome.Type != protocol.TypeWelcome || welcome.ProtocolVersion != protocol.Version {
		t.Fatalf("welcome envelope: %+v", welcome)
	}
	if welcome.CasterID != "C000001" {
		t.Fatalf("caster id = %q", welcome.CasterID)
	}
	if welcome.ResumeToken == "" {
		t.Fatal("empty resume token")
	}
	if welcome.WorldParams.ChunkSize != ChunkSize || welcome.WorldParams.Seed != 42 {
		t.Fatalf("world params: %+v", welcome.WorldParams)
	}
	if welcome.Spellbook.Count != 2 || welcome.Spellbook.Digest == "" {
		t.Fatalf("spellbook info: %+v", welcome.Spellbook)
	}

	m := w.movers[welcome.CasterID]
	if m == nil {
		t.Fatal("join did not create a mover")
	}
	if m.HP != moverMaxHP {
		t.Fatalf("spawn HP = %d", m.HP)
	}
}

func TestResumeTokenKeepsIdentity(t *testing.T) {
	w := newTestWorld(t)
	first := join(t, w, "ada", "")

	w.StepOnce(nil, []string{first.CasterID}, nil)
	if _, connected := w.clients[first.CasterID]; connected {
		t.Fatal("leave did not drop the client")
	}
	if w.movers[first.CasterID] == nil {
		t.Fatal("leave must not delete the mover")
	}

	again := join(t, w, "ada", first.ResumeToken)
	if again.CasterID != first.CasterID {
		t.Fatalf("resume gave a new identity: %q vs %q", again.CasterID, first.CasterID)
	}

	fresh := join(t, w, "bob", "bogus-token")
	if fresh.CasterID == first.CasterID {
		t.Fatal("unknown token must mint a fresh identity")
	}
}

func TestGravityLandsOnFloor(t *testing.T) {
	w := newTestWorld(t)
	flatten(w, -4, 4, 5)

	m := NewMover("m1", "m1", 0.5, 0.5)
	w.movers["m1"] = m

	dt := 1.0 / 30
	for i := 0; i < 120 && !m.OnGround; i++ {
		w.stepMover(m, dt)
	}
	if !m.OnGround {
		t.Fatal("mover never landed")
	}
	if m.Pos[1] != 4.5 {
		t.Fatalf("landed at y=%f, want 4.5 (cell above the floor)", m.Pos[1])
	}
	if m.Vel[1] != 0 {
		t.Fatalf("vertical velocity after landing = %f", m.Vel[1])
	}
}

func TestHorizontalBlockedByWall(t *testing.T) {
	w := newTestWorld(t)
	flatten(w, -4, 4, 5)
	for y := 0; y <= 5; y++ {
		w.chunks.SetCellAt(3, y, Cell{Mat: Block, Color: RGBA{A: 255}})
	}

	m := NewMover("m1", "m1", 0.5, 4.5)
	m.OnGround = true
	m.inputX = 1
	w.movers["m1"] = m

	dt := 1.0 / 30
	for i := 0; i < 120; i++ {
		w.stepMover(m, dt)
		m.inputX = 1
	}
	if m.Pos[0] >= 3 {
		t.Fatalf("mover passed through the wall: x=%f", m.Pos[0])
	}
	if m.Pos[0] < 2 {
		t.Fatalf("mover never reached the wall: x=%f", m.Pos[0])
	}
}

func TestJumpLeavesGround(t *testing.T) {
	w := newTestWorld(t)
	flatten(w, -4, 4, 5)

	m := NewMover("m1", "m1", 0.5, 4.5)
	m.OnGround = true
	m.jumpQueued = true
	w.movers["m1"] = m

	w.stepMover(m, 1.0/30)
	if m.Vel[1] >= 0 {
		t.Fatalf("jump did not set upward velocity: %f", m.Vel[1])
	}
	if m.Pos[1] >= 4.5 {
		t.Fatalf("mover did not rise: y=%f", m.Pos[1])
	}
}

func actEnvelope(casterID, actID, kind string) ActionEnvelope {
	return ActionEnvelope{
		CasterID: casterID,
		Act: protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			ActID:           actID,
			Kind:            kind,
		},
	}
}

func TestCastCarveClearsCells(t *testing.T) {
	w := newTestWorld(t)
	flatten(w, -4, 4, 5)
	m := NewMover("m1", "m1", 0.5, 4.5)
	w.movers["m1"] = m

	env := actEnvelope("m1", "a1", protocol.ActCast)
	env.Act.Cast = &protocol.CastAct{SpellID: "blast", Target: [2]int{2, 5}}
	res := w.applyAct(0, env)
	if !res.OK {
		t.Fatalf("cast failed: %+v", res)
	}
	cell, err := w.chunks.CellAt(2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if cell.Mat != Air {
		t.Fatalf("target cell still %v after carve", cell.Mat)
	}

	// Same tick recast is on cooldown.
	res = w.applyAct(0, env)
	if res.OK || res.Code != protocol.ErrCooldown {
		t.Fatalf("recast result: %+v, want %s", res, protocol.ErrCooldown)
	}
	// After the cooldown expires it works again.
	res = w.applyAct(11, env)
	if !res.OK {
		t.Fatalf("post-cooldown cast failed: %+v", res)
	}
}

func TestCastRejectsUnknownAndOutOfRange(t *testing.T) {
	w := newTestWorld(t)
	m := NewMover("m1", "m1", 0.5, 0.5)
	w.movers["m1"] = m

	env := actEnvelope("m1", "a1", protocol.ActCast)
	env.Act.Cast = &protocol.CastAct{SpellID: "fireball", Target: [2]int{1, 1}}
	if res := w.applyAct(0, env); res.OK || res.Code != protocol.ErrUnknownSpell {
		t.Fatalf("unknown spell result: %+v", res)
	}

	env.Act.Cast = &protocol.CastAct{SpellID: "blast", Target: [2]int{100, 100}}
	if res := w.applyAct(0, env); res.OK || res.Code != protocol.ErrOutOfRange {
		t.Fatalf("out of range result: %+v", res)
	}
}

func TestCastUnimplementedComponentFails(t *testing.T) {
	// Built by hand: Load would reject the kind at the schema gate, but the
	// engine still has to answer sanely if a definition gets ahead of it.
	book := &spellbook.Book{
		ByID: map[string]spellbook.Spell{
			"summon": {
				ID:            "summon",
				Name:          "Summon",
				Range:         8,
				CooldownTicks: 5,
				Components: []spellbook.Component{
					{Kind: "CARVE", Radius: 1},
					{Kind: "SUMMON"},
				},
			},
		},
		IDs:    []string{"summon"},
		Digest: "test",
	}
	w, err := New(testConfig(), book)
	if err != nil {
		t.Fatal(err)
	}
	flatten(w, -4, 4, 5)
	w.movers["m1"] = NewMover("m1", "m1", 0.5, 4.5)

	env := actEnvelope("m1", "a1", protocol.ActCast)
	env.Act.Cast = &protocol.CastAct{SpellID: "summon", Target: [2]int{2, 5}}
	res := w.applyAct(0, env)
	if res.OK || res.Code != protocol.ErrInternal {
		t.Fatalf("result: %+v, want %s", res, protocol.ErrInternal)
	}

	// The CARVE listed ahead of the bad component must not have run.
	cell, err := w.chunks.CellAt(2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if cell.Mat != Block {
		t.Fatalf("effects applied before the reject: %v", cell.Mat)
	}
}

func TestBoltDamagesAndRespawns(t *testing.T) {
	w := newTestWorld(t)
	flatten(w, -4, 8, 5)
	caster := NewMover("m1", "m1", 0.5, 4.5)
	target := NewMover("m2", "m2", 4.5, 4.5)
	w.movers["m1"] = caster
	w.movers["m2"] = target

	env := actEnvelope("m1", "a1", protocol.ActCast)
	env.Act.Cast = &protocol.CastAct{SpellID: "blast", Target: [2]int{4, 4}}
	if res := w.applyAct(0, env); !res.OK {
		t.Fatalf("cast failed: %+v", res)
	}
	if target.HP >= moverMaxHP {
		t.Fatalf("bolt did no damage: HP=%d", target.HP)
	}
	if caster.HP != moverMaxHP {
		t.Fatalf("bolt hit its own caster: HP=%d", caster.HP)
	}

	// Enough hits to kill trigger a respawn at full HP. Aiming past the
	// target keeps the ray passing through its body.
	env.Act.Cast.Target = [2]int{5, 4}
	for tick := uint64(11); target.HP < moverMaxHP && tick < 200; tick += 11 {
		if res := w.applyAct(tick, env); !res.OK {
			t.Fatalf("follow-up cast at tick %d failed: %+v", tick, res)
		}
	}
	if target.HP != moverMaxHP {
		t.Fatalf("respawn HP = %d", target.HP)
	}
}

func TestSetCellActRejectsBadMaterial(t *testing.T) {
	w := newTestWorld(t)
	m := NewMover("m1", "m1", 0.5, 0.5)
	w.movers["m1"] = m

	env := actEnvelope("m1", "a1", protocol.ActSetCell)
	env.Act.SetCell = &protocol.SetCellAct{Pos: [2]int{1, 1}, Material: "LAVA"}
	if res := w.applyAct(0, env); res.OK || res.Code != protocol.ErrBadMaterial {
		t.Fatalf("bad material result: %+v", res)
	}

	env.Act.SetCell = &protocol.SetCellAct{Pos: [2]int{1, 1}, Material: "BLOCK", Color: [4]uint8{9, 9, 9, 255}}
	if res := w.applyAct(0, env); !res.OK {
		t.Fatalf("set cell failed: %+v", res)
	}
	cell, err := w.chunks.CellAt(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if cell.Mat != Block || cell.Color.R != 9 {
		t.Fatalf("cell after SET_CELL: %+v", cell)
	}
}

func TestObservationStreamsChunksOnce(t *testing.T) {
	w := newTestWorld(t)
	out := make(chan []byte, 8)
	req := JoinRequest{Name: "ada", Out: out, Resp: make(chan JoinResponse, 1)}
	w.StepOnce([]JoinRequest{req}, nil, nil)
	welcome := (<-req.Resp).Welcome

	var first protocol.ObsMsg
	if err := json.Unmarshal(lastFrame(t, out), &first); err != nil {
		t.Fatal(err)
	}
	if first.Type != protocol.TypeObs || len(first.Chunks) == 0 {
		t.Fatalf("first frame carried no chunks: %+v", first.Window)
	}
	for _, p := range first.Chunks {
		if len(p.Materials) != ChunkSize*ChunkSize || len(p.Colors) != ChunkSize*ChunkSize {
			t.Fatalf("chunk (%d,%d) payload sized %d/%d", p.CX, p.CY, len(p.Materials), len(p.Colors))
		}
	}

	// A quiet tick resends mover state but no chunk payloads.
	w.StepOnce(nil, nil, nil)
	var second protocol.ObsMsg
	if err := json.Unmarshal(lastFrame(t, out), &second); err != nil {
		t.Fatal(err)
	}
	if len(second.Chunks) != 0 {
		t.Fatalf("unchanged chunks were resent: %d", len(second.Chunks))
	}
	if second.You.ID != welcome.CasterID {
		t.Fatalf("frame identity %q, want %q", second.You.ID, welcome.CasterID)
	}

	// A mutation inside the window bumps the revision and resends that chunk.
	env := actEnvelope(welcome.CasterID, "a1", protocol.ActSetCell)
	cx := cellOf(second.You.Pos[0])
	cy := cellOf(second.You.Pos[1])
	env.Act.SetCell = &protocol.SetCellAct{Pos: [2]int{cx, cy}, Material: "AIR"}
	w.StepOnce(nil, nil, []ActionEnvelope{env})

	var third protocol.ObsMsg
	if err := json.Unmarshal(lastFrame(t, out), &third); err != nil {
		t.Fatal(err)
	}
	if len(third.Chunks) != 1 {
		t.Fatalf("mutation resent %d chunks, want 1", len(third.Chunks))
	}
}

// lastFrame drains the client channel and returns the newest OBS frame,
// skipping RESULT acknowledgements.
func lastFrame(t *testing.T, out chan []byte) []byte {
	t.Helper()
	var frame []byte
	for {
		select {
		case b := <-out:
			base, err := protocol.DecodeBase(b)
			if err != nil {
				t.Fatal(err)
			}
			if base.Type == protocol.TypeObs {
				frame = b
			}
		default:
			if frame == nil {
				t.Fatal("no observation frame")
			}
			return frame
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	a := newTestWorld(t)
	join(t, a, "ada", "")
	flatten(a, -2, 2, 5)
	a.StepOnce(nil, nil, nil)
	a.StepOnce(nil, nil, nil)

	snap := a.ExportSnapshot()
	if snap.Seed != 42 || snap.Header.WorldID != "test" {
		t.Fatalf("snapshot header: %+v", snap.Header)
	}
	if len(snap.Chunks) == 0 {
		t.Fatal("mutated chunks missing from snapshot")
	}
	for _, ch := range snap.Chunks {
		if len(ch.Cells) != ChunkSize*ChunkSize {
			t.Fatalf("chunk (%d,%d) exported %d cells", ch.CX, ch.CY, len(ch.Cells))
		}
	}
	if len(snap.Movers) != 1 {
		t.Fatalf("exported %d movers", len(snap.Movers))
	}

	b, err := New(testConfig(), testSpellbook(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.ImportSnapshot(snap); err != nil {
		t.Fatal(err)
	}

	if got, want := b.stateDigest(), a.stateDigest(); got != want {
		t.Fatalf("digest after import = %s, want %s", got, want)
	}
	if b.CurrentTick() != a.CurrentTick() {
		t.Fatalf("tick after import = %d, want %d", b.CurrentTick(), a.CurrentTick())
	}

	// Pristine terrain regenerates identically around the restored state.
	ca, _ := a.chunks.CellAt(200, 200)
	cb, _ := b.chunks.CellAt(200, 200)
	if ca != cb {
		t.Fatalf("regenerated cell differs: %+v vs %+v", ca, cb)
	}
}

func TestImportRejectsSeedMismatch(t *testing.T) {
	a := newTestWorld(t)
	snap := a.ExportSnapshot()
	snap.Seed = 7

	b := newTestWorld(t)
	if err := b.ImportSnapshot(snap); err == nil {
		t.Fatal("seed mismatch accepted")
	}
}

func TestStepDigestDeterministic(t *testing.T) {
	run := func() string {
		w, err := New(testConfig(), testSpellbook(t))
		if err != nil {
			t.Fatal(err)
		}
		req := JoinRequest{Name: "ada", Out: make(chan []byte, 8), Resp: make(chan JoinResponse, 1)}
		w.StepOnce([]JoinRequest{req}, nil, nil)
		<-req.Resp

		move := actEnvelope("C000001", "a1", protocol.ActMove)
		move.Act.Move = &protocol.MoveAct{DX: 1}
		w.StepOnce(nil, nil, []ActionEnvelope{move})

		var digest string
		for i := 0; i < 10; i++ {
			_, digest = w.StepOnce(nil, nil, nil)
		}
		return digest
	}
	if a, b := run(), run(); a != b {
		t.Fatalf("same inputs diverged: %s vs %s", a, b)
	}
}
