// Package spellbook loads the data-driven spell definitions. Spells are the
// gameplay surface that mutates world cells: every definition is a JSON file
// validated against a schema before it can reach the world loop.
package spellbook

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed spell.schema.json
var schemaJSON string

// Component kinds.
const (
	KindCarve = "CARVE"
	KindPlace = "PLACE"
	KindBolt  = "BOLT"
)

// Component is one effect of a spell. CARVE clears cells to Air in a radius
// around the target, PLACE writes a material, BOLT damages movers on the
// caster→target segment.
type Component struct {
	Kind     string   `json:"kind"`
	Radius   int      `json:"radius,omitempty"`
	Material string   `json:"material,omitempty"`
	Color    [4]uint8 `json:"color,omitempty"`
	Damage   int      `json:"damage,omitempty"`
}

type Spell struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Range         int         `json:"range"`
	CooldownTicks int         `json:"cooldown_ticks"`
	Components    []Component `json:"components"`
}

// Book is the loaded, digested spell catalog.
type Book struct {
	ByID   map[string]Spell
	IDs    []string // sorted
	Digest string
}

func (b *Book) Count() int { return len(b.IDs) }

func (b *Book) Get(id string) (Spell, bool) {
	s, ok := b.ByID[id]
	return s, ok
}

// Load reads every *.json under dir, validates each against the spell
// schema, and digests the result. File order never matters: the digest
// covers the definitions sorted by id.
func Load(dir string) (*Book, error) {
	schema, err := jsonschema.CompileString("spell.schema.json", schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile spell schema: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read spell dir: %w", err)
	}

	book := &Book{ByID: map[string]Spell{}}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if err := schema.Validate(doc); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}

		var sp Spell
		if err := json.Unmarshal(raw, &sp); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if _, dup := book.ByID[sp.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate spell id %q", e.Name(), sp.ID)
		}
		book.ByID[sp.ID] = sp
		book.IDs = append(book.IDs, sp.ID)
	}
	sort.Strings(book.IDs)

	var buf bytes.Buffer
	for _, id := range book.IDs {
		b, _ := json.Marshal(book.ByID[id])
		buf.Write(b)
		buf.WriteByte('\n')
	}
	sum := sha256.Sum256(buf.Bytes())
	book.Digest = hex.EncodeToString(sum[:8])
	return book, nil
}
