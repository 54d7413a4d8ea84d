package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode pairs one resolution tier with one density tier.
// Active is bookkeeping only; skipping a mode is done by removing it from the sequence.
type Mode struct {
	Resolution ResolutionTier
	Density    DensityTier
	Active     bool
}

// NewMode creates an active mode.
func NewMode(resolution ResolutionTier, density DensityTier) Mode {
	return Mode{Resolution: resolution, Density: density, Active: true}
}

// Equal compares modes by width, height and DPI, not identity.
func (m Mode) Equal(other Mode) bool {
	return m.Resolution.Width == other.Resolution.Width &&
		m.Resolution.Height == other.Resolution.Height &&
		m.Density.DPI == other.Density.DPI
}

// FileName returns the screenshot file name for this mode.
func (m Mode) FileName(prefix string) string {
	return CaptureFileName(prefix, m.Resolution, m.Density)
}

func (m Mode) String() string {
	return fmt.Sprintf("%s@%s", m.Resolution, m.Density)
}

// CaptureFileName builds "<prefix><width>x<height>_<dpi>dpi.png".
func CaptureFileName(prefix string, r ResolutionTier, d DensityTier) string {
	return fmt.Sprintf("%s%s_%s.png", prefix, r, d)
}

// ParseMode parses "WIDTHxHEIGHT@DPI" (an optional "dpi" suffix is accepted).
// Both parts must name catalog tiers exactly.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	sizePart, dpiPart, ok := strings.Cut(s, "@")
	if !ok {
		return Mode{}, fmt.Errorf("invalid mode %q: expected WIDTHxHEIGHT@DPI", s)
	}

	width, height, err := ParseSize(sizePart)
	if err != nil {
		return Mode{}, fmt.Errorf("invalid mode %q: %w", s, err)
	}

	dpi, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(dpiPart)), "dpi"))
	if err != nil {
		return Mode{}, fmt.Errorf("invalid mode %q: bad density: %w", s, err)
	}

	resolution, err := TierForExactSize(width, height)
	if err != nil {
		return Mode{}, err
	}
	density, err := TierForDensity(dpi)
	if err != nil {
		return Mode{}, err
	}
	return NewMode(resolution, density), nil
}

// ParseSize parses "WIDTHxHEIGHT".
func ParseSize(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.TrimSpace(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q: expected WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: dimensions must be positive", s)
	}
	return width, height, nil
}
