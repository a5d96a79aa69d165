package protocol

// HelloMsg opens a connection: the first message a client sends.
type HelloMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Name            string       `json:"name,omitempty"`
	Capabilities    Capabilities `json:"capabilities,omitempty"`
	Auth            *Auth        `json:"auth,omitempty"`
}

type Capabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

type Auth struct {
	ResumeToken string `json:"resume_token,omitempty"`
}

// WelcomeMsg answers a HELLO with identity and world parameters.
type WelcomeMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	CasterID        string        `json:"caster_id"`
	ResumeToken     string        `json:"resume_token"`
	WorldParams     WorldParams   `json:"world_params"`
	Spellbook       SpellbookInfo `json:"spellbook"`
}

type WorldParams struct {
	TickRateHz int    `json:"tick_rate_hz"`
	ChunkSize  int    `json:"chunk_size"`
	Seed       int64  `json:"seed"`
	ViewExtent [2]int `json:"view_extent"`
	ViewMargin int    `json:"view_margin"`
}

type SpellbookInfo struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// ActMsg is a client request. Exactly one of Move/Cast/SetCell is set,
// selected by Kind.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ActID           string `json:"act_id"`
	Kind            string `json:"kind"`

	Move    *MoveAct    `json:"move,omitempty"`
	Cast    *CastAct    `json:"cast,omitempty"`
	SetCell *SetCellAct `json:"set_cell,omitempty"`
}

// Act kinds.
const (
	ActMove    = "MOVE"
	ActCast    = "CAST"
	ActSetCell = "SET_CELL"
)

// MoveAct sets the caster's horizontal input for the coming ticks.
// DX is clamped to [-1, 1] server-side.
type MoveAct struct {
	DX   float64 `json:"dx"`
	Jump bool    `json:"jump,omitempty"`
}

type CastAct struct {
	SpellID string `json:"spell_id"`
	Target  [2]int `json:"target"`
}

// SetCellAct writes one cell directly; a debug/admin surface, not gameplay.
type SetCellAct struct {
	Pos      [2]int   `json:"pos"`
	Material string   `json:"material"`
	Color    [4]uint8 `json:"color"`
}

// ResultMsg acknowledges an ACT.
type ResultMsg struct {
	Type  string `json:"type"`
	ActID string `json:"act_id"`
	OK    bool   `json:"ok"`
	Code  string `json:"code,omitempty"`
}

// ObsMsg is the per-tick observation frame.
type ObsMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick"`
	You             MoverState     `json:"you"`
	Movers          []MoverState   `json:"movers,omitempty"`
	Window          ChunkWindow    `json:"window"`
	Chunks          []ChunkPayload `json:"chunks,omitempty"`
}

type MoverState struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Pos      [2]float64 `json:"pos"`
	Vel      [2]float64 `json:"vel"`
	HP       int        `json:"hp"`
	OnGround bool       `json:"on_ground"`
}

// ChunkWindow is the inclusive chunk-coordinate range the frame covers.
type ChunkWindow struct {
	X0 int `json:"x0"`
	X1 int `json:"x1"`
	Y0 int `json:"y0"`
	Y1 int `json:"y1"`
}

// ChunkPayload carries a full chunk. Cells are column-major
// (i = x*size + y); Materials holds the material enum, Colors packed
// 0xRRGGBBAA. A payload is resent only when Rev advances.
type ChunkPayload struct {
	CX        int      `json:"cx"`
	CY        int      `json:"cy"`
	Rev       uint64   `json:"rev"`
	Materials []uint8  `json:"materials"`
	Colors    []uint32 `json:"colors"`
}
