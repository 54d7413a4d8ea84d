package cli

import (
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

func TestModeListValue_Flag(t *testing.T) {
	var excluded []domain.Mode
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.Var(NewModeListValue(&excluded), "exclude", "modes to skip")

	err := fs.Parse([]string{"--exclude", "800x480@240, 800x480@160dpi", "--exclude=2560x1440@160"})

	require.NoError(t, err)
	require.Len(t, excluded, 3)
	assert.True(t, excluded[0].Equal(domain.NewMode(domain.ResolutionNormalPlus1, domain.DensityHDPI)))
	assert.True(t, excluded[2].Equal(domain.NewMode(domain.ResolutionXXLarge1, domain.DensityMDPI)))
	assert.Equal(t, "800x480@240dpi,800x480@160dpi,2560x1440@160dpi", fs.Lookup("exclude").Value.String())
	assert.Equal(t, "modes", fs.Lookup("exclude").Value.Type())
}

func TestModeListValue_Invalid(t *testing.T) {
	var excluded []domain.Mode
	v := NewModeListValue(&excluded)

	assert.Error(t, v.Set("1366x768@240"))
	assert.Error(t, v.Set("800x480@240,bogus"))
	assert.Empty(t, excluded, "a bad list appends nothing")

	require.NoError(t, v.Set(""))
	assert.Empty(t, v.Modes())
}
