package domain

import "fmt"

// ResolutionTier is a standard screen-size bucket with the highest density
// it may be paired with. Tiers are ordered by descending screen size.
type ResolutionTier struct {
	Name       string
	Width      int
	Height     int
	MaxDensity DensityTier

	index int
}

var (
	ResolutionXXLarge2    = ResolutionTier{Name: "XXLARGE_2", Width: 2560, Height: 1600, MaxDensity: DensityXHDPI, index: 0}
	ResolutionXXLarge1    = ResolutionTier{Name: "XXLARGE_1", Width: 2560, Height: 1440, MaxDensity: Density560, index: 1}
	ResolutionXLarge2     = ResolutionTier{Name: "XLARGE_2", Width: 1920, Height: 1200, MaxDensity: Density560, index: 2}
	ResolutionXLarge1     = ResolutionTier{Name: "XLARGE_1", Width: 1920, Height: 1080, MaxDensity: Density560, index: 3}
	ResolutionLarge2      = ResolutionTier{Name: "LARGE_2", Width: 1280, Height: 768, MaxDensity: Density420, index: 4}
	ResolutionLarge1      = ResolutionTier{Name: "LARGE_1", Width: 1280, Height: 720, MaxDensity: Density420, index: 5}
	ResolutionNormalPlus2 = ResolutionTier{Name: "NORMAL_PLUS_2", Width: 854, Height: 480, MaxDensity: DensityHDPI, index: 6}
	ResolutionNormalPlus1 = ResolutionTier{Name: "NORMAL_PLUS_1", Width: 800, Height: 480, MaxDensity: DensityHDPI, index: 7}
	ResolutionNormal      = ResolutionTier{Name: "NORMAL", Width: 480, Height: 320, MaxDensity: DensityMDPI, index: 8}
	ResolutionSmall       = ResolutionTier{Name: "SMALL", Width: 320, Height: 240, MaxDensity: DensityMDPI, index: 9}
)

var resolutionCatalog = []ResolutionTier{
	ResolutionXXLarge2,
	ResolutionXXLarge1,
	ResolutionXLarge2,
	ResolutionXLarge1,
	ResolutionLarge2,
	ResolutionLarge1,
	ResolutionNormalPlus2,
	ResolutionNormalPlus1,
	ResolutionNormal,
	ResolutionSmall,
}

// Resolutions returns the resolution catalog, largest first.
func Resolutions() []ResolutionTier {
	out := make([]ResolutionTier, len(resolutionCatalog))
	copy(out, resolutionCatalog)
	return out
}

// TierForSize maps a physical screen size onto the catalog.
//
// An exact match selects that tier. Otherwise the largest tier that fits
// inside the size in both dimensions wins. Sizes smaller than every tier
// fall back to the smallest tier.
func TierForSize(width, height int) ResolutionTier {
	for _, r := range resolutionCatalog {
		if r.Width <= width && r.Height <= height {
			return r
		}
	}
	return resolutionCatalog[len(resolutionCatalog)-1]
}

// TierForExactSize returns the catalog tier with exactly the given size.
func TierForExactSize(width, height int) (ResolutionTier, error) {
	for _, r := range resolutionCatalog {
		if r.Width == width && r.Height == height {
			return r, nil
		}
	}
	return ResolutionTier{}, fmt.Errorf("%w: %dx%d", ErrUnknownResolution, width, height)
}

// Next returns the next smaller resolution tier, or false if this is the smallest.
func (r ResolutionTier) Next() (ResolutionTier, bool) {
	if r.IsZero() {
		return ResolutionTier{}, false
	}
	i := r.index + 1
	if i >= len(resolutionCatalog) {
		return ResolutionTier{}, false
	}
	return resolutionCatalog[i], true
}

// IsZero reports whether r is the zero value rather than a catalog tier.
func (r ResolutionTier) IsZero() bool {
	return r.Width == 0 && r.Height == 0
}

// StartDensity returns the density a walk over this tier begins at:
// the physical density, clamped to the tier's cap.
func (r ResolutionTier) StartDensity(physical DensityTier) DensityTier {
	return minDensity(physical, r.MaxDensity)
}

func (r ResolutionTier) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}
