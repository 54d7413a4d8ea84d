package domain

import "fmt"

// DensityTier is a standard pixel-density bucket.
// Tiers form a strictly descending chain; Next walks toward lower densities.
type DensityTier struct {
	DPI  int
	Name string

	index int
}

var (
	DensityXXXHDPI = DensityTier{DPI: 640, Name: "XXXHDPI", index: 0}
	Density560     = DensityTier{DPI: 560, Name: "DPI_560", index: 1}
	DensityXXHDPI  = DensityTier{DPI: 480, Name: "XXHDPI", index: 2}
	Density420     = DensityTier{DPI: 420, Name: "DPI_420", index: 3}
	DensityXHDPI   = DensityTier{DPI: 320, Name: "XHDPI", index: 4}
	DensityHDPI    = DensityTier{DPI: 240, Name: "HDPI", index: 5}
	DensityMDPI    = DensityTier{DPI: 160, Name: "MDPI", index: 6}
)

// densityCatalog is ordered by descending DPI. A tier's index is its position here.
var densityCatalog = []DensityTier{
	DensityXXXHDPI,
	Density560,
	DensityXXHDPI,
	Density420,
	DensityXHDPI,
	DensityHDPI,
	DensityMDPI,
}

// Densities returns the density catalog, highest first.
func Densities() []DensityTier {
	out := make([]DensityTier, len(densityCatalog))
	copy(out, densityCatalog)
	return out
}

// TierForDensity returns the catalog tier with exactly the given DPI.
func TierForDensity(dpi int) (DensityTier, error) {
	for _, d := range densityCatalog {
		if d.DPI == dpi {
			return d, nil
		}
	}
	return DensityTier{}, fmt.Errorf("%w: %d", ErrUnknownDensity, dpi)
}

// Next returns the next lower density tier, or false if this is the lowest.
func (d DensityTier) Next() (DensityTier, bool) {
	if d.IsZero() {
		return DensityTier{}, false
	}
	i := d.index + 1
	if i >= len(densityCatalog) {
		return DensityTier{}, false
	}
	return densityCatalog[i], true
}

// IsZero reports whether d is the zero value rather than a catalog tier.
func (d DensityTier) IsZero() bool {
	return d.DPI == 0
}

func (d DensityTier) String() string {
	return fmt.Sprintf("%ddpi", d.DPI)
}

// minDensity picks whichever tier has the numerically smaller DPI.
func minDensity(a, b DensityTier) DensityTier {
	if a.DPI < b.DPI {
		return a
	}
	return b
}
