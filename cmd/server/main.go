package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"spellcoder.dev/internal/persistence/indexdb"
	persistlog "spellcoder.dev/internal/persistence/log"
	"spellcoder.dev/internal/persistence/snapshot"
	"spellcoder.dev/internal/sim/spellbook"
	"spellcoder.dev/internal/sim/tuning"
	"spellcoder.dev/internal/sim/world"
	"spellcoder.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite tick/snapshot index")
		maxChunks  = flag.Int("max_loaded_chunks", 0, "evict least recently touched chunks past this count (0 = keep all)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	book, err := spellbook.Load(filepath.Join(*configDir, "spells"))
	if err != nil {
		logger.Fatalf("load spellbook: %v", err)
	}
	logger.Printf("spellbook: %d spells, digest %s", book.Count(), book.Digest)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.sqlite"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}

	cfg := world.Config{
		ID:         *worldID,
		TickRateHz: tune.TickRateHz,
		Seed:       *seed,
		Gen: world.GenParams{
			Seed:              *seed,
			TerrainWavelength: tune.Terrain.Wavelength,
			DetailWavelength:  tune.Terrain.DetailWavelength,
			Upper:             tune.Terrain.UpperThreshold,
			Lower:             tune.Terrain.LowerThreshold,
		},
		ViewExtent:         tune.ViewExtent,
		ViewMargin:         tune.ViewMargin,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
		Physics: world.PhysicsParams{
			Gravity:   tune.Physics.Gravity,
			MoveSpeed: tune.Physics.MoveSpeed,
			JumpSpeed: tune.Physics.JumpSpeed,
		},
	}

	var resumed *snapshot.SnapshotV1
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		// The snapshot fixes the worldgen parameters; tuning cannot override
		// them without invalidating the persisted chunks.
		cfg.Seed = snap.Seed
		cfg.TickRateHz = snap.TickRateHz
		cfg.Gen = world.GenParams{
			Seed:              snap.Seed,
			TerrainWavelength: snap.TerrainWavelength,
			DetailWavelength:  snap.DetailWavelength,
			Upper:             snap.UpperThreshold,
			Lower:             snap.LowerThreshold,
		}
		resumed = &snap
	}

	w, err := world.New(cfg, book)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	if *maxChunks > 0 {
		w.Chunks().SetEvictionPolicy(world.NewLeastRecentlyTouched(*maxChunks))
	}
	if resumed != nil {
		if err := w.ImportSnapshot(*resumed); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()
	w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				logger.Printf("snapshot tick=%d chunks=%d movers=%d", snap.Header.Tick, len(snap.Chunks), len(snap.Movers))
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := w.Metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP spellcoder_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE spellcoder_world_tick gauge\n")
		fmt.Fprintf(rw, "spellcoder_world_tick{world=%q} %d\n", *worldID, m.Tick)

		fmt.Fprintf(rw, "# HELP spellcoder_world_movers Current number of movers in the world.\n")
		fmt.Fprintf(rw, "# TYPE spellcoder_world_movers gauge\n")
		fmt.Fprintf(rw, "spellcoder_world_movers{world=%q} %d\n", *worldID, m.Movers)

		fmt.Fprintf(rw, "# HELP spellcoder_world_clients Current number of connected clients.\n")
		fmt.Fprintf(rw, "# TYPE spellcoder_world_clients gauge\n")
		fmt.Fprintf(rw, "spellcoder_world_clients{world=%q} %d\n", *worldID, m.Clients)

		fmt.Fprintf(rw, "# HELP spellcoder_world_loaded_chunks Loaded chunk count.\n")
		fmt.Fprintf(rw, "# TYPE spellcoder_world_loaded_chunks gauge\n")
		fmt.Fprintf(rw, "spellcoder_world_loaded_chunks{world=%q} %d\n", *worldID, m.LoadedChunks)

		fmt.Fprintf(rw, "# HELP spellcoder_world_generated_chunks_total Chunks generated since start.\n")
		fmt.Fprintf(rw, "# TYPE spellcoder_world_generated_chunks_total counter\n")
		fmt.Fprintf(rw, "spellcoder_world_generated_chunks_total{world=%q} %d\n", *worldID, m.GeneratedChunks)

		fmt.Fprintf(rw, "# HELP spellcoder_world_cell_misses_total Cell lookups that hit a storage invariant violation.\n")
		fmt.Fprintf(rw, "# TYPE spellcoder_world_cell_misses_total counter\n")
		fmt.Fprintf(rw, "spellcoder_world_cell_misses_total{world=%q} %d\n", *worldID, m.CellMisses)

		fmt.Fprintf(rw, "# HELP spellcoder_world_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE spellcoder_world_step_ms gauge\n")
		fmt.Fprintf(rw, "spellcoder_world_step_ms{world=%q} %.3f\n", *worldID, m.StepMS)
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

type multiTickLogger struct {
	a world.TickLogger
	b *indexdb.SQLiteIndex
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}
