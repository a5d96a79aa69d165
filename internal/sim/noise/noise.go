// Package noise provides the seeded coherent-noise field that drives terrain
// shape and shading. Samples are pure functions of (coordinate, seed): the
// same seed always reproduces the same world.
package noise

import "github.com/aquilax/go-perlin"

// Perlin parameters. Three octaves is enough structure for 16x16 chunks
// without making single-cell queries expensive.
const (
	alpha   = 2.0
	beta    = 2.0
	octaves = 3
)

// Field is a deterministic 2D scalar field in [-1, 1].
type Field struct {
	seed int64
	p    *perlin.Perlin
}

func New(seed int64) *Field {
	return &Field{seed: seed, p: perlin.NewPerlin(alpha, beta, octaves, seed)}
}

// Derived returns a field decorrelated from f but still reproducible from
// the same root seed. Used for secondary features (haze alpha, color
// variation) so they do not mirror the terrain shape.
func (f *Field) Derived() *Field {
	return New(f.seed / 2)
}

func (f *Field) Seed() int64 { return f.seed }

// Generate samples the field at a real-valued coordinate. Total over its
// domain: no error conditions. The result is clamped to [-1, 1]; go-perlin
// can overshoot slightly at octave boundaries.
func (f *Field) Generate(x, y float64) float64 {
	v := f.p.Noise2D(x, y)
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// At samples the field at an integer world coordinate scaled by wavelength.
// Larger wavelengths give broader features.
func (f *Field) At(wx, wy int, wavelength float64) float64 {
	return f.Generate(float64(wx)/wavelength, float64(wy)/wavelength)
}
