package storage

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/mesviz/internal/metrics"
	"github.com/san-kum/mesviz/internal/quality"
)

func TestSaveLoad(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	frames := []metrics.Frame{
		{Index: 0, Delta: 0, Particles: 10},
		{Index: 1, Delta: 0.016, Particles: 10, Recycled: 2, MeanAge: 1.5, BiofilmOpacity: 0.8},
	}
	meta := CaptureMetadata{Model: "Lab MFC", Variant: "mfc", Tier: quality.Standard, Quality: quality.Adapt(quality.Standard), Seed: 3}

	id, err := s.Save(meta, frames, img)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != id || got.Frames != 2 || got.Width != 8 || got.Tier != quality.Standard {
		t.Errorf("unexpected metadata %+v", got)
	}
	if !got.Quality.Antialias {
		t.Error("quality settings not persisted")
	}

	loaded, err := s.LoadFrames(id)
	if err != nil {
		t.Fatalf("LoadFrames: %v", err)
	}
	if len(loaded) != 2 || loaded[1].Recycled != 2 || loaded[1].Delta != 0.016 {
		t.Errorf("unexpected frames %+v", loaded)
	}

	if _, err := os.Stat(s.ImagePath(id)); err != nil {
		t.Errorf("frame image missing: %v", err)
	}
}

func TestSaveWithoutImage(t *testing.T) {
	s := New(t.TempDir())
	id, err := s.Save(CaptureMetadata{Variant: "mdc"}, nil, nil)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(s.ImagePath(id)); !os.IsNotExist(err) {
		t.Error("no image should be written")
	}
	frames, err := s.LoadFrames(id)
	if err != nil || len(frames) != 0 {
		t.Errorf("expected no frames, got %v %v", frames, err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := New(t.TempDir())
	base := time.Unix(1700000000, 0)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, _ := s.Save(CaptureMetadata{Variant: "mfc"}, nil, nil)
	second, _ := s.Save(CaptureMetadata{Variant: "mec"}, nil, nil)

	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Errorf("unexpected order %+v", list)
	}
}

func TestListMissingDir(t *testing.T) {
	s := New("/nonexistent/mesviz/captures")
	list, err := s.List()
	if err != nil || len(list) != 0 {
		t.Errorf("expected empty list, got %v %v", list, err)
	}
}

func TestExportAndAttach(t *testing.T) {
	s := New(t.TempDir())
	id, err := s.Save(CaptureMetadata{Model: "mfc", Variant: "mfc"}, []metrics.Frame{
		{Index: 0, Particles: 10},
		{Index: 1, Delta: 0.016, Particles: 10, Recycled: 2},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.Export(id, &buf); err != nil {
		t.Fatal(err)
	}
	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != id || got.Model != "mfc" || len(got.Frames) != 2 || got.Frames[1].Recycled != 2 {
		t.Errorf("export = %+v", got)
	}
	if !strings.Contains(buf.String(), `"mean_age"`) {
		t.Error("frames should use snake_case keys")
	}

	if err := s.Attach(id, "frame.svg", []byte("<svg/>")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "frame.svg"))
	if err != nil || string(data) != "<svg/>" {
		t.Errorf("attachment = %q, %v", data, err)
	}
	for _, bad := range []string{"", "..", "../x", `a\b`} {
		if err := s.Attach(id, bad, nil); err == nil {
			t.Errorf("Attach(%q) accepted", bad)
		}
	}
	if err := s.Attach("missing", "x.svg", nil); err == nil {
		t.Error("Attach to a missing capture accepted")
	}
}

func TestSaveKeepsUnsupportedVariantInsideStore(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "captures")
	s := New(base)

	tests := []struct {
		variant string
		prefix  string
	}{
		{"../escaped/x", "___escaped_x_"},
		{`..\win`, "___win_"},
		{"Fuel Stack", "fuel_stack_"},
		{"", "capture_"},
	}
	for _, tt := range tests {
		id, err := s.Save(CaptureMetadata{Variant: tt.variant}, nil, nil)
		if err != nil {
			t.Fatalf("Save(%q): %v", tt.variant, err)
		}
		if !strings.HasPrefix(id, tt.prefix) {
			t.Errorf("Save(%q) id = %q, want prefix %q", tt.variant, id, tt.prefix)
		}
		if _, err := os.Stat(filepath.Join(base, id, metadataFile)); err != nil {
			t.Errorf("Save(%q) did not write inside the store: %v", tt.variant, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "escaped")); !os.IsNotExist(err) {
		t.Errorf("capture escaped the store: %v", err)
	}

	for _, bad := range []string{"../captures", "..", ""} {
		if _, err := s.Load(bad); err == nil {
			t.Errorf("Load(%q) accepted", bad)
		}
		if _, err := s.LoadFrames(bad); err == nil {
			t.Errorf("LoadFrames(%q) accepted", bad)
		}
	}
}
