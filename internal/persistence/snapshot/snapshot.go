// Package snapshot persists world state as a zstd-compressed stream: one
// JSON header line (so tooling can identify a file without decoding the
// body) followed by a gob body.
//
// Snapshots are an operator convenience, not the source of truth: any chunk
// that was never explicitly mutated regenerates bit-identically from the
// seed and is therefore not written.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed       int64 `json:"seed"`
	TickRateHz int   `json:"tick_rate_hz"`

	// Worldgen parameters; regeneration of pristine chunks depends on these
	// matching the run that wrote the snapshot.
	TerrainWavelength float64 `json:"terrain_wavelength"`
	DetailWavelength  float64 `json:"detail_wavelength"`
	UpperThreshold    float64 `json:"upper_threshold"`
	LowerThreshold    float64 `json:"lower_threshold"`

	// Only chunks containing explicitly-set cells.
	Chunks []ChunkV1 `json:"chunks"`

	Movers []MoverV1 `json:"movers"`

	NextCaster uint64 `json:"next_caster"`
}

type ChunkV1 struct {
	CX    int      `json:"cx"`
	CY    int      `json:"cy"`
	Cells []CellV1 `json:"cells"`
}

type CellV1 struct {
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Material uint8    `json:"material"`
	Color    [4]uint8 `json:"color"`
}

type MoverV1 struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Pos  [2]float64 `json:"pos"`
	Vel  [2]float64 `json:"vel"`
	HP   int        `json:"hp"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Skip the header line; the gob body repeats it.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
