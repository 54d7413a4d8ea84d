package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

// FileSystemManagerImpl implements domain.FileSystemManager.
type FileSystemManagerImpl struct {
	homeDir string
}

// NewFileSystemManager creates a new filesystem manager.
func NewFileSystemManager() domain.FileSystemManager {
	home, _ := os.UserHomeDir()
	return &FileSystemManagerImpl{homeDir: home}
}

// NewFileSystemManagerWithHome creates a filesystem manager with custom home (for testing).
func NewFileSystemManagerWithHome(home string) domain.FileSystemManager {
	return &FileSystemManagerImpl{homeDir: home}
}

// Exists checks if a path exists.
func (fm *FileSystemManagerImpl) Exists(path string) bool {
	_, err := os.Stat(fm.ExpandHome(path))
	return err == nil
}

// EnsureDir creates path and its parents. An existing non-directory is an error.
func (fm *FileSystemManagerImpl) EnsureDir(path string) error {
	expanded := fm.ExpandHome(path)
	info, err := os.Stat(expanded)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", expanded)
		}
		return nil
	}
	return os.MkdirAll(expanded, 0755)
}

// ExpandHome expands ~ to the user's home directory.
func (fm *FileSystemManagerImpl) ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(fm.homeDir, path[2:])
	}
	if path == "~" {
		return fm.homeDir
	}
	return path
}

// Ensure FileSystemManagerImpl implements domain.FileSystemManager.
var _ domain.FileSystemManager = (*FileSystemManagerImpl)(nil)
