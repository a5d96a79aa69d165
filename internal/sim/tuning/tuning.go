// Package tuning loads the operator-facing knobs from tuning.yaml. Missing
// fields fall back to defaults, so a partial file only overrides what it
// names.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int    `yaml:"tick_rate_hz"`
	ViewExtent         [2]int `yaml:"view_extent"`
	ViewMargin         int    `yaml:"view_margin"`
	SnapshotEveryTicks int    `yaml:"snapshot_every_ticks"`

	Terrain Terrain `yaml:"terrain"`
	Physics Physics `yaml:"physics"`
}

type Terrain struct {
	Wavelength       float64 `yaml:"wavelength"`
	DetailWavelength float64 `yaml:"detail_wavelength"`
	UpperThreshold   float64 `yaml:"upper_threshold"`
	LowerThreshold   float64 `yaml:"lower_threshold"`
}

type Physics struct {
	Gravity   float64 `yaml:"gravity"`
	MoveSpeed float64 `yaml:"move_speed"`
	JumpSpeed float64 `yaml:"jump_speed"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         20,
		ViewExtent:         [2]int{96, 64},
		ViewMargin:         1,
		SnapshotEveryTicks: 1200,
		Terrain: Terrain{
			Wavelength:       48,
			DetailWavelength: 12,
			UpperThreshold:   0.25,
			LowerThreshold:   0,
		},
		Physics: Physics{
			Gravity:   30,
			MoveSpeed: 8,
			JumpSpeed: 12,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) validate() error {
	if t.TickRateHz <= 0 || t.TickRateHz > 240 {
		return fmt.Errorf("tick_rate_hz %d out of range", t.TickRateHz)
	}
	if t.ViewExtent[0] <= 0 || t.ViewExtent[1] <= 0 {
		return fmt.Errorf("view_extent %v must be positive", t.ViewExtent)
	}
	if t.ViewMargin < 0 {
		return fmt.Errorf("view_margin %d must not be negative", t.ViewMargin)
	}
	if t.Terrain.Wavelength <= 0 || t.Terrain.DetailWavelength <= 0 {
		return fmt.Errorf("terrain wavelengths must be positive")
	}
	if t.Terrain.UpperThreshold <= t.Terrain.LowerThreshold {
		return fmt.Errorf("upper_threshold %f must exceed lower_threshold %f",
			t.Terrain.UpperThreshold, t.Terrain.LowerThreshold)
	}
	return nil
}
