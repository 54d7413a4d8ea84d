package usecase

import "github.com/eliteGoblin/screenshooter/internal/domain"

// EnumerateModes returns every mode a job visits for a device with the given
// physical display, in visiting order.
//
// Each resolution tier, starting at the physical one, is walked from the
// physical density clamped to the tier's cap down to the lowest density.
func EnumerateModes(physicalResolution domain.ResolutionTier, physicalDensity domain.DensityTier) []domain.Mode {
	var modes []domain.Mode

	resolution, hasResolution := physicalResolution, !physicalResolution.IsZero()
	if !hasResolution || physicalDensity.IsZero() {
		return modes
	}
	density, hasDensity := resolution.StartDensity(physicalDensity), true

	for hasResolution {
		modes = append(modes, domain.NewMode(resolution, density))

		density, hasDensity = density.Next()
		if !hasDensity {
			resolution, hasResolution = resolution.Next()
			if hasResolution {
				density = resolution.StartDensity(physicalDensity)
			}
		}
	}

	return modes
}

// ExcludeModes returns modes without any entry equal to one in excluded.
// Order is preserved and the input slice is left untouched.
func ExcludeModes(modes, excluded []domain.Mode) []domain.Mode {
	if len(excluded) == 0 {
		out := make([]domain.Mode, len(modes))
		copy(out, modes)
		return out
	}

	out := make([]domain.Mode, 0, len(modes))
	for _, m := range modes {
		if !containsMode(excluded, m) {
			out = append(out, m)
		}
	}
	return out
}

func containsMode(modes []domain.Mode, target domain.Mode) bool {
	for _, m := range modes {
		if m.Equal(target) {
			return true
		}
	}
	return false
}
