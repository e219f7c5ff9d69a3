package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/mesviz/internal/automation"
	"github.com/san-kum/mesviz/internal/config"
	"github.com/san-kum/mesviz/internal/flow"
	"github.com/san-kum/mesviz/internal/quality"
	"github.com/san-kum/mesviz/internal/scene"
	"github.com/san-kum/mesviz/internal/storage"
)

func TestResolveDefinition(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cell.yaml")
	if err := os.WriteFile(yamlPath, []byte("type: mec\nflow:\n  kind: turbulent\n  particle_count: 10\n  velocity: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "cell.json")
	if err := os.WriteFile(jsonPath, []byte(`{"type":"mdc"}`), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		args        []string
		wantVariant string
		wantErr     bool
	}{
		{"default", nil, "mfc", false},
		{"model name", []string{"bioreactor"}, "bioreactor", false},
		{"unknown model", []string{"fuel_stack"}, "fuel_stack", false},
		{"yaml file", []string{yamlPath}, "mec", false},
		{"json file", []string{jsonPath}, "mdc", false},
		{"missing file", []string{filepath.Join(dir, "nope.yaml")}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			def, _, err := resolveDefinition(cfg, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && def.Variant().Name() != tt.wantVariant {
				t.Errorf("variant = %q, want %q", def.Variant().Name(), tt.wantVariant)
			}
		})
	}
}

func TestSaveResults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Frames = 12
	cfg.Host = "svg"
	cfg.Surface.Width, cfg.Surface.Height = 160, 120
	def := scene.ModelDefinition{
		Type: scene.ModelType{Variant: scene.MFC{}},
		Flow: &flow.Pattern{Kind: flow.Diffusive, ParticleCount: 25, Velocity: 1},
	}
	job, err := automation.JobFromConfig(cfg, "mfc", def)
	if err != nil {
		t.Fatal(err)
	}
	res, err := automation.Render(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	if res.Meta.Tier != quality.Basic {
		t.Errorf("svg tier = %v, want basic", res.Meta.Tier)
	}

	dir := t.TempDir()
	st := storage.New(dir)
	if err := saveResults(st, []*automation.Result{res}); err != nil {
		t.Fatal(err)
	}
	caps, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(caps) != 1 {
		t.Fatalf("captures = %d, want 1", len(caps))
	}
	if caps[0].Model != "mfc" || caps[0].Frames != 12 {
		t.Errorf("metadata = %+v", caps[0])
	}
	if _, err := os.Stat(filepath.Join(dir, caps[0].ID, "frame.svg")); err != nil {
		t.Errorf("svg not attached: %v", err)
	}
}

func TestJobFromConfigFallback(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Frames = 3
	cfg.Quality = "none"
	def := scene.ModelDefinition{Type: scene.ModelType{Variant: scene.MFC{}}}

	job, err := automation.JobFromConfig(cfg, "mfc", def)
	if err != nil {
		t.Fatal(err)
	}
	res, err := automation.Render(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	if res.Image != nil || res.Meta.Frames != 0 {
		t.Errorf("fallback rendered %d frames", res.Meta.Frames)
	}
	if res.Message == "" {
		t.Error("fallback should explain itself")
	}

	cfg.Quality = "ultra"
	if _, err := automation.JobFromConfig(cfg, "mfc", def); err == nil {
		t.Error("unknown quality accepted")
	}
}

func TestSetupLogging(t *testing.T) {
	for _, lv := range []string{"off", "debug", "info", "warn", "error"} {
		if err := setupLogging(lv); err != nil {
			t.Errorf("setupLogging(%q) = %v", lv, err)
		}
	}
	if err := setupLogging("loud"); err == nil {
		t.Error("unknown level accepted")
	}
	_ = setupLogging("off")
}
