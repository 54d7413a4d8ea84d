package infra

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

// PNGWriter implements domain.ImageWriter. Images arrive PNG-encoded from the
// device and are validated, then written atomically.
type PNGWriter struct{}

// NewPNGWriter creates a PNG writer.
func NewPNGWriter() *PNGWriter {
	return &PNGWriter{}
}

// WriteImage writes img to path, replacing any existing file.
func (w *PNGWriter) WriteImage(img *domain.RawImage, path string) error {
	if img == nil || len(img.Data) == 0 {
		return fmt.Errorf("empty image")
	}
	if _, err := png.DecodeConfig(bytes.NewReader(img.Data)); err != nil {
		return fmt.Errorf("not a PNG image: %w", err)
	}
	return writeFileAtomic(path, img.Data, 0644)
}

// writeFileAtomic writes to a temp file in the target directory, syncs, then renames.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on any error
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return err
	}
	if err = tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return err
	}

	success = true
	return nil
}

// Ensure PNGWriter implements domain.ImageWriter.
var _ domain.ImageWriter = (*PNGWriter)(nil)
