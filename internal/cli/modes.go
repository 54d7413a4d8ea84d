// Package cli holds flag types shared by the screenshooter commands.
package cli

import (
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

// ModeListValue is a repeatable, comma-separated flag of modes:
//
//	--exclude 800x480@240,800x480@160 --exclude 2560x1440@160dpi
type ModeListValue struct {
	modes *[]domain.Mode
}

// NewModeListValue binds the flag to target.
func NewModeListValue(target *[]domain.Mode) *ModeListValue {
	return &ModeListValue{modes: target}
}

// Set parses and appends every comma-separated mode in s.
func (v *ModeListValue) Set(s string) error {
	var parsed []domain.Mode
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m, err := domain.ParseMode(part)
		if err != nil {
			return err
		}
		parsed = append(parsed, m)
	}
	*v.modes = append(*v.modes, parsed...)
	return nil
}

func (v *ModeListValue) String() string {
	if v.modes == nil {
		return ""
	}
	parts := make([]string, len(*v.modes))
	for i, m := range *v.modes {
		parts[i] = m.String()
	}
	return strings.Join(parts, ",")
}

// Type is shown in help output.
func (v *ModeListValue) Type() string {
	return "modes"
}

// Modes returns the parsed modes.
func (v *ModeListValue) Modes() []domain.Mode {
	return *v.modes
}

// Ensure ModeListValue implements pflag.Value.
var _ flag.Value = (*ModeListValue)(nil)
