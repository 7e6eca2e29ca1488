package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	errs "bmexport/pkg/errors"
)

// ImagesDir is the subdirectory of the output directory holding local images
const ImagesDir = "images"

// Manager owns the output directory: markdown documents at the top level and
// downloaded images under ImagesDir.
type Manager struct {
	outputDir string
	imagesDir string
}

// NewManager creates outputDir, and its images subdirectory when withImages is set
func NewManager(outputDir string, withImages bool) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeStorage, "failed to create output directory")
	}

	m := &Manager{
		outputDir: outputDir,
		imagesDir: filepath.Join(outputDir, ImagesDir),
	}

	if withImages {
		if err := os.MkdirAll(m.imagesDir, 0755); err != nil {
			return nil, errs.Wrap(err, errs.ErrorTypeStorage, "failed to create images directory")
		}
	}

	return m, nil
}

// WriteDocument replaces name in the output directory with data
func (m *Manager) WriteDocument(name string, data []byte) error {
	return writeAtomic(filepath.Join(m.outputDir, name), bytes.NewReader(data))
}

// SaveImage stores an image under the images directory
func (m *Manager) SaveImage(name string, r io.Reader) error {
	if err := os.MkdirAll(m.imagesDir, 0755); err != nil {
		return errs.Wrap(err, errs.ErrorTypeStorage, "failed to create images directory")
	}
	return writeAtomic(filepath.Join(m.imagesDir, name), r)
}

// HasImage reports whether a previous run already stored name
func (m *Manager) HasImage(name string) bool {
	info, err := os.Stat(filepath.Join(m.imagesDir, name))
	return err == nil && !info.IsDir()
}

// ImageRelPath is the path documents use to reference a stored image
func (m *Manager) ImageRelPath(name string) string {
	return "./" + ImagesDir + "/" + name
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// writeAtomic writes through a temporary file and renames it into place
func writeAtomic(filename string, r io.Reader) error {
	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeStorage, "failed to create temporary file")
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return errs.Wrap(err, errs.ErrorTypeStorage, fmt.Sprintf("failed to write %s", filepath.Base(filename)))
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return errs.Wrap(closeErr, errs.ErrorTypeStorage, "failed to close file")
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return errs.Wrap(err, errs.ErrorTypeStorage, "failed to rename temporary file")
	}

	return nil
}
