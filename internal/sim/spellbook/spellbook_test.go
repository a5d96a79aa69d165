package spellbook

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSpell(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const blastJSON = `{
  "id": "blast",
  "name": "Blast",
  "range": 24,
  "cooldown_ticks": 10,
  "components": [
    {"kind": "CARVE", "radius": 3},
    {"kind": "BOLT", "damage": 12}
  ]
}`

const wallJSON = `{
  "id": "wall",
  "name": "Stone Wall",
  "range": 16,
  "cooldown_ticks": 40,
  "components": [
    {"kind": "PLACE", "radius": 2, "material": "BLOCK", "color": [90, 90, 100, 255]}
  ]
}`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeSpell(t, dir, "blast.json", blastJSON)
	writeSpell(t, dir, "wall.json", wallJSON)

	book, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if book.Count() != 2 {
		t.Fatalf("count = %d, want 2", book.Count())
	}
	sp, ok := book.Get("blast")
	if !ok {
		t.Fatalf("missing spell blast")
	}
	if len(sp.Components) != 2 || sp.Components[0].Kind != KindCarve {
		t.Fatalf("unexpected components: %+v", sp.Components)
	}
	if book.Digest == "" {
		t.Fatalf("empty digest")
	}
}

func TestLoadDigestIgnoresFileNames(t *testing.T) {
	a := t.TempDir()
	writeSpell(t, a, "01_blast.json", blastJSON)
	writeSpell(t, a, "02_wall.json", wallJSON)

	b := t.TempDir()
	writeSpell(t, b, "zz.json", blastJSON)
	writeSpell(t, b, "aa.json", wallJSON)

	ba, err := Load(a)
	if err != nil {
		t.Fatalf("load a: %v", err)
	}
	bb, err := Load(b)
	if err != nil {
		t.Fatalf("load b: %v", err)
	}
	if ba.Digest != bb.Digest {
		t.Fatalf("digest depends on file names: %s vs %s", ba.Digest, bb.Digest)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing_range.json": `{"id":"x","name":"X","cooldown_ticks":0,"components":[{"kind":"CARVE"}]}`,
		"bad_kind.json":      `{"id":"x","name":"X","range":4,"cooldown_ticks":0,"components":[{"kind":"EXPLODE"}]}`,
		"bad_id.json":        `{"id":"Bad Id","name":"X","range":4,"cooldown_ticks":0,"components":[{"kind":"CARVE"}]}`,
	}
	for name, body := range cases {
		dir := t.TempDir()
		writeSpell(t, dir, name, body)
		if _, err := Load(dir); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadRejectsDuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeSpell(t, dir, "a.json", blastJSON)
	writeSpell(t, dir, "b.json", blastJSON)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
