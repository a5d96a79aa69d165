package world

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"spellcoder.dev/internal/persistence/snapshot"
	"spellcoder.dev/internal/protocol"
	"spellcoder.dev/internal/sim/spellbook"
)

type PhysicsParams struct {
	Gravity   float64 // cells/s^2, +Y is down
	MoveSpeed float64 // cells/s
	JumpSpeed float64 // cells/s
}

type Config struct {
	ID         string
	TickRateHz int
	Seed       int64
	Gen        GenParams

	// Observation window per client, in cells, plus the pop-in margin in
	// chunks.
	ViewExtent [2]int
	ViewMargin int

	SnapshotEveryTicks int

	Physics PhysicsParams
}

type JoinRequest struct {
	Name        string
	ResumeToken string
	Out         chan []byte
	Resp        chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

type ActionEnvelope struct {
	CasterID string
	Act      protocol.ActMsg
}

// World is a single-threaded authoritative simulation. All state is owned by
// the loop goroutine; the only cross-goroutine surface is the channels, the
// atomic tick counter, and the metrics atomics.
type World struct {
	cfg  Config
	book *spellbook.Book

	tick atomic.Uint64

	chunks  *ChunkStore
	movers  map[string]*Mover
	clients map[string]*clientState
	resume  map[string]string // resume token -> caster id

	nextCasterNum atomic.Uint64

	inbox chan ActionEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	// Optional tick logger (may be nil).
	tickLogger TickLogger

	// Optional snapshot sink (may be nil); writing happens off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	metrics metricAtomics
}

type clientState struct {
	Out chan []byte

	// Last chunk revision streamed to this client; payloads resend only
	// when the chunk mutates.
	SentRevs map[ChunkKey]uint64
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type TickLogEntry struct {
	Tick   uint64   `json:"tick"`
	Joins  []string `json:"joins,omitempty"`
	Leaves []string `json:"leaves,omitempty"`
	Acts   int      `json:"acts,omitempty"`
	Digest string   `json:"digest"`
}

func New(cfg Config, book *spellbook.Book) (*World, error) {
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %d", cfg.TickRateHz)
	}
	if cfg.ViewExtent[0] <= 0 || cfg.ViewExtent[1] <= 0 {
		return nil, fmt.Errorf("view extent must be positive, got %v", cfg.ViewExtent)
	}
	if book == nil {
		return nil, fmt.Errorf("nil spellbook")
	}
	cfg.Gen.Seed = cfg.Seed
	if cfg.Gen.TerrainWavelength == 0 {
		cfg.Gen = DefaultGenParams(cfg.Seed)
	}

	w := &World{
		cfg:     cfg,
		book:    book,
		chunks:  NewChunkStore(cfg.Gen),
		movers:  map[string]*Mover{},
		clients: map[string]*clientState{},
		resume:  map[string]string{},
		inbox:   make(chan ActionEnvelope, 1024),
		join:    make(chan JoinRequest, 64),
		leave:   make(chan string, 64),
		stop:    make(chan struct{}),
	}
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- ActionEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Leave() chan<- string         { return w.leave }

func (w *World) ID() string          { return w.cfg.ID }
func (w *World) CurrentTick() uint64 { return w.tick.Load() }
func (w *World) Seed() int64         { return w.cfg.Seed }

// Chunks exposes the store for tests and local (same-goroutine) callers.
func (w *World) Chunks() *ChunkStore { return w.chunks }

func (w *World) handleJoin(req JoinRequest) string {
	var (
		id    string
		token string
	)
	if req.ResumeToken != "" {
		if prev, ok := w.resume[req.ResumeToken]; ok {
			id = prev
			token = req.ResumeToken
		}
	}
	if id == "" {
		id = fmt.Sprintf("C%06d", w.nextCasterNum.Add(1))
		token = uuid.NewString()
		w.resume[token] = id
	}

	m := w.movers[id]
	if m == nil {
		name := req.Name
		if name == "" {
			name = "caster"
		}
		sx, sy := w.findSpawn()
		m = NewMover(id, name, float64(sx)+0.5, float64(sy)+0.5)
		w.movers[id] = m
	}

	w.clients[id] = &clientState{
		Out:      req.Out,
		SentRevs: map[ChunkKey]uint64{},
	}

	req.Resp <- JoinResponse{Welcome: protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		CasterID:        id,
		ResumeToken:     token,
		WorldParams: protocol.WorldParams{
			TickRateHz: w.cfg.TickRateHz,
			ChunkSize:  ChunkSize,
			Seed:       w.cfg.Seed,
			ViewExtent: w.cfg.ViewExtent,
			ViewMargin: w.cfg.ViewMargin,
		},
		Spellbook: protocol.SpellbookInfo{
			Digest: w.book.Digest,
			Count:  w.book.Count(),
		},
	}}
	return id
}

func (w *World) handleLeave(casterID string) {
	// The mover persists; only the connection state goes away.
	delete(w.clients, casterID)
}

// findSpawn walks down column 0 looking for an open cell with solid ground
// beneath it, so new movers don't spawn inside rock or in free fall.
func (w *World) findSpawn() (int, int) {
	const lo, hi = -4 * ChunkSize, 4 * ChunkSize
	for y := lo; y < hi-1; y++ {
		here, err := w.chunks.CellAt(0, y)
		if err != nil {
			continue
		}
		below, err := w.chunks.CellAt(0, y+1)
		if err != nil {
			continue
		}
		if !here.Mat.Solid() && below.Mat.Solid() {
			return 0, y
		}
	}
	return 0, 0
}
