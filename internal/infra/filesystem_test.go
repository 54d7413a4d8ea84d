package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemManager_ExpandHome(t *testing.T) {
	fs := NewFileSystemManagerWithHome("/home/tester")

	assert.Equal(t, "/home/tester/shots", fs.ExpandHome("~/shots"))
	assert.Equal(t, "/home/tester", fs.ExpandHome("~"))
	assert.Equal(t, "screenshots", fs.ExpandHome("screenshots"))
	assert.Equal(t, "/abs/~/x", fs.ExpandHome("/abs/~/x"))
}

func TestFileSystemManager_EnsureDir(t *testing.T) {
	root := t.TempDir()
	fs := NewFileSystemManagerWithHome(root)

	require.NoError(t, fs.EnsureDir("~/a/b/c"))
	assert.True(t, fs.Exists(filepath.Join(root, "a", "b", "c")))

	// Idempotent.
	require.NoError(t, fs.EnsureDir("~/a/b/c"))

	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.Error(t, fs.EnsureDir(file))
}
