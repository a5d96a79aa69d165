package world

import "sync/atomic"

// metricAtomics mirrors loop-owned state so HTTP handlers can read it
// without touching the simulation.
type metricAtomics struct {
	movers     atomic.Uint64
	clients    atomic.Uint64
	loaded     atomic.Uint64
	generated  atomic.Uint64
	cellMisses atomic.Uint64
	stepMicros atomic.Uint64
}

type WorldMetrics struct {
	Tick            uint64  `json:"tick"`
	Movers          int     `json:"movers"`
	Clients         int     `json:"clients"`
	LoadedChunks    int     `json:"loaded_chunks"`
	GeneratedChunks uint64  `json:"generated_chunks"`
	CellMisses      uint64  `json:"cell_misses"`
	StepMS          float64 `json:"step_ms"`
}

func (w *World) publishMetrics() {
	w.metrics.movers.Store(uint64(len(w.movers)))
	w.metrics.clients.Store(uint64(len(w.clients)))
	w.metrics.loaded.Store(uint64(w.chunks.Loaded()))
	w.metrics.generated.Store(w.chunks.Generated())
}

func (w *World) Metrics() WorldMetrics {
	return WorldMetrics{
		Tick:            w.tick.Load(),
		Movers:          int(w.metrics.movers.Load()),
		Clients:         int(w.metrics.clients.Load()),
		LoadedChunks:    int(w.metrics.loaded.Load()),
		GeneratedChunks: w.metrics.generated.Load(),
		CellMisses:      w.metrics.cellMisses.Load(),
		StepMS:          float64(w.metrics.stepMicros.Load()) / 1000,
	}
}
