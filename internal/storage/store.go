package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gogpu/gg"

	"github.com/san-kum/mesviz/internal/metrics"
	"github.com/san-kum/mesviz/internal/quality"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
	imageFile    = "frame.png"
)

var framesHeader = []string{"index", "dt", "particles", "recycled", "mean_age", "biofilm_opacity"}

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type CaptureMetadata struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Variant   string             `json:"variant"`
	Host      string             `json:"host"`
	Tier      quality.Tier       `json:"tier"`
	Quality   quality.Settings   `json:"quality"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Frames    int                `json:"frames"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes one capture directory and returns its id. img may be nil when
// no frame could be captured.
func (s *Store) Save(meta CaptureMetadata, frames []metrics.Frame, img *image.RGBA) (string, error) {
	now := s.now()
	id := fmt.Sprintf("%s_%d", idPrefix(meta.Variant), now.UnixNano())
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	meta.ID = id
	meta.Timestamp = now
	meta.Frames = len(frames)
	if img != nil {
		meta.Width, meta.Height = img.Bounds().Dx(), img.Bounds().Dy()
	}

	metaFile, err := os.Create(filepath.Join(dir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := writeFrames(filepath.Join(dir, framesFile), frames); err != nil {
		return "", err
	}

	if img != nil {
		dc := gg.NewContextForImage(img)
		defer dc.Close()
		if err := dc.SavePNG(filepath.Join(dir, imageFile)); err != nil {
			return "", fmt.Errorf("save frame: %w", err)
		}
	}
	return id, nil
}

func writeFrames(path string, frames []metrics.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(framesHeader); err != nil {
		return err
	}
	for _, fr := range frames {
		row := []string{
			strconv.Itoa(fr.Index),
			strconv.FormatFloat(fr.Delta, 'f', 6, 64),
			strconv.Itoa(fr.Particles),
			strconv.FormatUint(fr.Recycled, 10),
			strconv.FormatFloat(fr.MeanAge, 'f', 6, 64),
			strconv.FormatFloat(fr.BiofilmOpacity, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable capture, newest first.
func (s *Store) List() ([]CaptureMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []CaptureMetadata{}, nil
		}
		return nil, err
	}

	captures := make([]CaptureMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		captures = append(captures, *meta)
	}
	sort.Slice(captures, func(i, j int) bool {
		return captures[i].Timestamp.After(captures[j].Timestamp)
	})
	return captures, nil
}

func (s *Store) Load(id string) (*CaptureMetadata, error) {
	if err := checkName("capture id", id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta CaptureMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ImagePath is where the captured frame of id lives, whether or not it
// was written.
func (s *Store) ImagePath(id string) string {
	return filepath.Join(s.baseDir, id, imageFile)
}

func (s *Store) LoadFrames(id string) ([]metrics.Frame, error) {
	if err := checkName("capture id", id); err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.baseDir, id, framesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []metrics.Frame{}, nil
	}

	frames := make([]metrics.Frame, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < len(framesHeader) {
			continue
		}
		var f metrics.Frame
		var err error
		if f.Index, err = strconv.Atoi(rec[0]); err != nil {
			continue
		}
		f.Delta, _ = strconv.ParseFloat(rec[1], 64)
		f.Particles, _ = strconv.Atoi(rec[2])
		f.Recycled, _ = strconv.ParseUint(rec[3], 10, 64)
		f.MeanAge, _ = strconv.ParseFloat(rec[4], 64)
		f.BiofilmOpacity, _ = strconv.ParseFloat(rec[5], 64)
		frames = append(frames, f)
	}
	return frames, nil
}

// idPrefix turns a variant name into a safe directory name. Unsupported
// variants carry whatever the definition asked for.
func idPrefix(variant string) string {
	b := []byte(strings.ToLower(variant))
	for i, c := range b {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' && c != '-' {
			b[i] = '_'
		}
	}
	if len(b) == 0 {
		return "capture"
	}
	return string(b)
}

// checkName rejects names that would leave the capture directory.
func checkName(what, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid %s %q", what, name)
	}
	return nil
}
