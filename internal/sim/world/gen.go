package world

import (
	"spellcoder.dev/internal/sim/noise"
	"spellcoder.dev/internal/sim/world/logic/mathx"
)

// GenParams fixes the terrain classification for one world. All fields are
// captured in snapshots: the same params and seed regenerate identical
// chunks on any host.
type GenParams struct {
	Seed int64

	// Wavelengths divide world coordinates before sampling; a smaller
	// divisor means higher-frequency, more local variation. 48 gives broad
	// terrain shape, with a faster field layered on for detail.
	TerrainWavelength float64
	DetailWavelength  float64

	// Threshold bands over the primary sample v in [-1,1]:
	//   v >  Upper          -> Block, stone shading
	//   Lower < v <= Upper  -> Block, soil shading
	//   v <= Lower          -> Air, haze alpha from the detail sample
	Upper float64
	Lower float64
}

func DefaultGenParams(seed int64) GenParams {
	return GenParams{
		Seed:              seed,
		TerrainWavelength: 48,
		DetailWavelength:  12,
		Upper:             0.25,
		Lower:             0,
	}
}

// Classify maps a primary terrain sample and a detail sample to material and
// color. Deterministic and monotonic: shading within each band moves one way
// as v grows, and band edges never depend on the detail sample.
func (g GenParams) Classify(v, detail float64) (Material, RGBA) {
	switch {
	case v > g.Upper:
		// Stone: darkens as density rises.
		d := clamp01((v - g.Upper) / (1 - g.Upper))
		shade := uint8(120 - d*70)
		return Block, RGBA{R: shade, G: shade, B: shade + 12, A: 255}
	case v > g.Lower:
		// Soil: brightens toward the stone band.
		d := clamp01((v - g.Lower) / (g.Upper - g.Lower))
		return Block, RGBA{R: uint8(96 + d*48), G: uint8(64 + d*32), B: 40, A: 255}
	default:
		// Open air with a soft density haze.
		a := uint8(clamp01((detail + 1) / 2) * 96)
		return Air, RGBA{R: 180, G: 200, B: 220, A: a}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// GenerateChunk builds the full ChunkSize x ChunkSize cell grid for chunk
// (cx, cy) from the two noise fields. Every in-chunk coordinate gets exactly
// one cell; the per-column order invariant holds when this returns.
func GenerateChunk(cx, cy int, terrain, detail *noise.Field, g GenParams) *Chunk {
	c := NewChunk(cx, cy)
	for x := 0; x < ChunkSize; x++ {
		wx := cx*ChunkSize + x
		for y := 0; y < ChunkSize; y++ {
			wy := cy*ChunkSize + y
			v := terrain.At(wx, wy, g.TerrainWavelength)
			d := detail.At(wx, wy, g.DetailWavelength)
			mat, col := g.Classify(v, d)
			if mat == Block {
				// Faint per-cell tint jitter so large soil fields don't band.
				col.G = jitter(col.G, mathx.Hash2(g.Seed, wx, wy))
			}
			c.AddCell(Cell{X: x, Y: y, Mat: mat, Color: col})
		}
	}
	return c
}

func jitter(v uint8, h uint64) uint8 {
	j := uint8(h % 8)
	if int(v)+int(j) > 255 {
		return 255
	}
	return v + j
}
