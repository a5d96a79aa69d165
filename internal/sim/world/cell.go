package world

// ChunkSize is the edge length of a chunk in cells. The whole coordinate
// scheme (floor division, local modulo, visible ranges) assumes this value;
// changing it invalidates snapshots.
const ChunkSize = 16

// Material classifies a cell for collision and rendering.
type Material uint8

const (
	Air Material = iota
	Block
)

func (m Material) Solid() bool { return m != Air }

func (m Material) String() string {
	switch m {
	case Air:
		return "AIR"
	case Block:
		return "BLOCK"
	default:
		return "UNKNOWN"
	}
}

// MaterialFromString resolves wire/config names. Unknown names map to Air
// with ok=false so callers can reject rather than place garbage.
func MaterialFromString(s string) (Material, bool) {
	switch s {
	case "AIR":
		return Air, true
	case "BLOCK":
		return Block, true
	default:
		return Air, false
	}
}

type RGBA struct {
	R, G, B, A uint8
}

// Cell is the smallest addressable unit of world data: a local coordinate
// inside its chunk, a material, and a display color.
//
// X and Y are always within [0, ChunkSize). Cells are created during chunk
// generation and overwritten in place by mutations; they are never freed
// individually.
type Cell struct {
	X, Y  int
	Mat   Material
	Color RGBA
}
