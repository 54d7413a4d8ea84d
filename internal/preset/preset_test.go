package preset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

func modeStrings(modes []domain.Mode) []string {
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = m.String()
	}
	return out
}

func TestBuiltinPresets(t *testing.T) {
	assert.Equal(t, []string{"800x480@240dpi", "800x480@160dpi"}, modeStrings(WVGA().Modes()))
	assert.Equal(t, []string{"2560x1440@240dpi", "2560x1440@160dpi"}, modeStrings(LargeLowDensity().Modes()))
	assert.Len(t, Legacy().Modes(), 4)
}

func TestPreset_ModesIsCopy(t *testing.T) {
	p := WVGA()
	modes := p.Modes()
	modes[0] = domain.NewMode(domain.ResolutionSmall, domain.DensityMDPI)

	assert.Equal(t, "800x480@240dpi", p.Modes()[0].String())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"large-low-density", "legacy", "wvga"}, r.List())

	p, ok := r.Get("wvga")
	require.True(t, ok)
	assert.Equal(t, "wvga", p.ID())
	assert.NotEmpty(t, p.Description())

	_, ok = r.Get("steam")
	assert.False(t, ok)

	all := r.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "large-low-density", all[0].ID())
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()

	modes, err := r.Resolve("wvga", "legacy")
	require.NoError(t, err)
	assert.Len(t, modes, 4, "duplicates dropped")
	assert.Equal(t, "800x480@240dpi", modes[0].String())

	modes, err = r.Resolve()
	require.NoError(t, err)
	assert.Empty(t, modes)

	_, err = r.Resolve("nope")
	assert.Error(t, err)
}

func TestRegistry_Custom(t *testing.T) {
	custom := New("tiny", "smallest only", domain.NewMode(domain.ResolutionSmall, domain.DensityMDPI))
	r := NewRegistryWithPresets(custom)

	assert.Equal(t, []string{"tiny"}, r.List())
	r.Register(New("tiny", "replaced"))
	p, _ := r.Get("tiny")
	assert.Equal(t, "replaced", p.Description())
}
