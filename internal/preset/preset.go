// Package preset provides named exclusion lists for screenshot jobs.
// Each preset names modes a job should skip, typically combinations that
// real devices never ship with.
package preset

import (
	"github.com/eliteGoblin/screenshooter/internal/domain"
)

// ExclusionPreset is a named set of modes to exclude.
type ExclusionPreset interface {
	// ID returns unique identifier (e.g., "wvga").
	ID() string

	// Description returns a one-line human-readable summary.
	Description() string

	// Modes returns the modes to exclude.
	Modes() []domain.Mode
}

// staticPreset is an ExclusionPreset over a fixed list.
type staticPreset struct {
	id          string
	description string
	modes       []domain.Mode
}

func (p staticPreset) ID() string          { return p.id }
func (p staticPreset) Description() string { return p.description }

func (p staticPreset) Modes() []domain.Mode {
	out := make([]domain.Mode, len(p.modes))
	copy(out, p.modes)
	return out
}

// New builds a preset from a fixed mode list.
func New(id, description string, modes ...domain.Mode) ExclusionPreset {
	return staticPreset{id: id, description: description, modes: modes}
}

// WVGA skips hdpi and mdpi at 800x480.
func WVGA() ExclusionPreset {
	return New("wvga", "800x480 at 240 and 160 dpi",
		domain.NewMode(domain.ResolutionNormalPlus1, domain.DensityHDPI),
		domain.NewMode(domain.ResolutionNormalPlus1, domain.DensityMDPI),
	)
}

// LargeLowDensity skips 2560x1440 at low densities.
func LargeLowDensity() ExclusionPreset {
	return New("large-low-density", "2560x1440 at 240 and 160 dpi",
		domain.NewMode(domain.ResolutionXXLarge1, domain.DensityHDPI),
		domain.NewMode(domain.ResolutionXXLarge1, domain.DensityMDPI),
	)
}

// Legacy combines WVGA and LargeLowDensity, the list the tool has always skipped.
func Legacy() ExclusionPreset {
	modes := append(WVGA().Modes(), LargeLowDensity().Modes()...)
	return New("legacy", "wvga plus large-low-density", modes...)
}
