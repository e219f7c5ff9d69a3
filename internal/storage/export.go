package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/san-kum/mesviz/internal/metrics"
)

// ExportData is one capture flattened into a single JSON document.
type ExportData struct {
	CaptureMetadata
	Frames []metrics.Frame `json:"frames"`
}

// Export writes capture id as indented JSON.
func (s *Store) Export(id string, w io.Writer) error {
	meta, err := s.Load(id)
	if err != nil {
		return err
	}
	frames, err := s.LoadFrames(id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{CaptureMetadata: *meta, Frames: frames})
}

// Attach stores an extra file, such as a vector rendering, next to the
// capture's metadata.
func (s *Store) Attach(id, name string, data []byte) error {
	if err := checkName("capture id", id); err != nil {
		return err
	}
	if err := checkName("attachment name", name); err != nil {
		return err
	}
	dir := filepath.Join(s.baseDir, id)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err != nil {
		return fmt.Errorf("capture %s: %w", id, err)
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0644)
}
