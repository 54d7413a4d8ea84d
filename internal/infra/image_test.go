package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

func TestPNGWriter_WriteImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "output_1920x1080_560dpi.png")
	data := testPNG(t, 3, 2)
	w := NewPNGWriter()

	require.NoError(t, w.WriteImage(&domain.RawImage{Width: 3, Height: 2, Data: data}, path))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Replaces an existing file.
	data2 := testPNG(t, 5, 5)
	require.NoError(t, w.WriteImage(&domain.RawImage{Width: 5, Height: 5, Data: data2}, path))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data2, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestPNGWriter_Rejects(t *testing.T) {
	dir := t.TempDir()
	w := NewPNGWriter()

	assert.Error(t, w.WriteImage(nil, filepath.Join(dir, "a.png")))
	assert.Error(t, w.WriteImage(&domain.RawImage{Data: []byte("not png")}, filepath.Join(dir, "b.png")))
	assert.Error(t, w.WriteImage(&domain.RawImage{Data: testPNG(t, 1, 1)}, filepath.Join(dir, "missing", "c.png")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
