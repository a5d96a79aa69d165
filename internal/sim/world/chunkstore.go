package world

import (
	"sort"

	"spellcoder.dev/internal/sim/noise"
	"spellcoder.dev/internal/sim/world/logic/mathx"
)

type ChunkKey struct {
	CX int
	CY int
}

// EvictionPolicy is the extension point for bounding resident chunks. The
// engine itself never evicts: resident chunks grow without bound for the
// process lifetime unless a policy is installed, and KeepAll is the default.
//
// The store ignores victims carrying SetCell mutations: a mutated chunk
// exists only in memory until a snapshot captures it, so unloading one would
// revert its edits to regenerated terrain. Only pristine chunks unload.
type EvictionPolicy interface {
	// Touched is called whenever a chunk is accessed or created.
	Touched(k ChunkKey)
	// Victims returns chunk keys to unload given the current resident count.
	// Returning nil keeps everything.
	Victims(loaded int) []ChunkKey
}

// KeepAll is the default policy: unbounded growth, nothing evicted.
type KeepAll struct{}

func (KeepAll) Touched(ChunkKey)       {}
func (KeepAll) Victims(int) []ChunkKey { return nil }

// ChunkStore presents the sparse chunk grid as a seamless point-addressable
// surface over absolute world coordinates. Chunks materialize on first
// touch; re-querying a coordinate never regenerates.
//
// Not safe for concurrent use. All access happens on the world loop.
type ChunkStore struct {
	gen     GenParams
	terrain *noise.Field
	detail  *noise.Field

	chunks map[ChunkKey]*Chunk
	evict  EvictionPolicy

	generated uint64
}

func NewChunkStore(gen GenParams) *ChunkStore {
	terrain := noise.New(gen.Seed)
	return &ChunkStore{
		gen:     gen,
		terrain: terrain,
		detail:  terrain.Derived(),
		chunks:  map[ChunkKey]*Chunk{},
		evict:   KeepAll{},
	}
}

func (s *ChunkStore) SetEvictionPolicy(p EvictionPolicy) {
	if p == nil {
		p = KeepAll{}
	}
	s.evict = p
}

func (s *ChunkStore) Params() GenParams { return s.gen }
func (s *ChunkStore) Loaded() int       { return len(s.chunks) }

// Generated counts chunks built since startup, including regenerated
// evicted ones. Exposed for metrics.
func (s *ChunkStore) Generated() uint64 { return s.generated }

// GetOrGenChunk returns the chunk at (cx, cy), generating it synchronously
// on first access. Generation sits on the hot query path on purpose: a fast
// camera or mover pays for the chunks it touches, there is no background
// job.
func (s *ChunkStore) GetOrGenChunk(cx, cy int) *Chunk {
	k := ChunkKey{CX: cx, CY: cy}
	if ch, ok := s.chunks[k]; ok {
		s.evict.Touched(k)
		return ch
	}
	ch := GenerateChunk(cx, cy, s.terrain, s.detail, s.gen)
	s.chunks[k] = ch
	s.generated++
	s.evict.Touched(k)
	for _, victim := range s.evict.Victims(len(s.chunks)) {
		if victim == k {
			continue
		}
		// Mutated chunks stay resident whatever the policy says; dropping
		// one would lose its SetCell edits. It rejoins the policy's working
		// set on its next access.
		if vch, ok := s.chunks[victim]; !ok || vch.Modified() {
			continue
		}
		delete(s.chunks, victim)
	}
	return ch
}

// Peek returns the chunk at (cx, cy) without generating it.
func (s *ChunkStore) Peek(cx, cy int) (*Chunk, bool) {
	ch, ok := s.chunks[ChunkKey{CX: cx, CY: cy}]
	return ch, ok
}

// LoadedChunkKeys returns resident chunk keys in deterministic order, for
// snapshot export and digests.
func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CX < keys[j].CX
	})
	return keys
}

// CellAt answers the material/color at an absolute world coordinate,
// generating the owning chunk if needed. A generated chunk holds a cell for
// every in-bounds coordinate, so a miss here is an invariant violation and
// comes back as ErrCellMissing rather than a silent Air.
func (s *ChunkStore) CellAt(wx, wy int) (Cell, error) {
	cx := mathx.FloorDiv(wx, ChunkSize)
	cy := mathx.FloorDiv(wy, ChunkSize)
	lx := mathx.Mod(wx, ChunkSize)
	ly := mathx.Mod(wy, ChunkSize)
	ch := s.GetOrGenChunk(cx, cy)
	cell, _, found := ch.GetCell(lx, ly)
	if !found {
		return Cell{}, ErrCellMissing
	}
	return cell, nil
}

// SetCellAt overwrites the cell at an absolute world coordinate. The local
// coordinate inside cell is derived from (wx, wy); any values the caller set
// there are ignored.
func (s *ChunkStore) SetCellAt(wx, wy int, cell Cell) {
	cx := mathx.FloorDiv(wx, ChunkSize)
	cy := mathx.FloorDiv(wy, ChunkSize)
	cell.X = mathx.Mod(wx, ChunkSize)
	cell.Y = mathx.Mod(wy, ChunkSize)
	s.GetOrGenChunk(cx, cy).SetCell(cell)
}

// VisibleChunkRange computes the inclusive chunk-coordinate ranges
// intersecting a view rectangle centered at (centerX, centerY) world cells
// with the given extent in cells, expanded by margin chunks so edges don't
// pop in. Pure function of the camera state.
func VisibleChunkRange(centerX, centerY, extentX, extentY, margin int) (x0, x1, y0, y1 int) {
	hx := extentX / 2
	hy := extentY / 2
	x0 = mathx.FloorDiv(centerX-hx, ChunkSize) - margin
	x1 = mathx.FloorDiv(centerX+hx, ChunkSize) + margin
	y0 = mathx.FloorDiv(centerY-hy, ChunkSize) - margin
	y1 = mathx.FloorDiv(centerY+hy, ChunkSize) + margin
	return x0, x1, y0, y1
}
