package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/mesviz/internal/quality"
	"github.com/san-kum/mesviz/internal/scene"
)

const (
	DefaultCapacity      = 8
	DefaultWidth         = 960
	DefaultHeight        = 540
	DefaultFPS           = 60
	DefaultFrames        = 120
	DefaultMaxFrameDelta = 100 * time.Millisecond
	DefaultDataDir       = "./captures"
)

type Config struct {
	Model         string        `yaml:"model"`
	Preset        string        `yaml:"preset"`
	Host          string        `yaml:"host"`
	Quality       string        `yaml:"quality"`
	Capacity      int           `yaml:"capacity"`
	Seed          int64         `yaml:"seed"`
	Surface       SurfaceConfig `yaml:"surface"`
	FPS           int           `yaml:"fps"`
	Frames        int           `yaml:"frames"`
	MaxFrameDelta time.Duration `yaml:"max_frame_delta"`
	DataDir       string        `yaml:"data_dir"`
}

type SurfaceConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	PixelRatio float64 `yaml:"pixel_ratio"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:    "mfc",
		Preset:   "standard",
		Host:     "auto",
		Capacity: DefaultCapacity,
		Seed:     1,
		Surface: SurfaceConfig{
			Width:      DefaultWidth,
			Height:     DefaultHeight,
			PixelRatio: 1,
		},
		FPS:           DefaultFPS,
		Frames:        DefaultFrames,
		MaxFrameDelta: DefaultMaxFrameDelta,
		DataDir:       DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// QualityCap parses the quality override. Empty and "auto" mean no cap.
func (c *Config) QualityCap() (*quality.Tier, error) {
	if c.Quality == "" || c.Quality == "auto" {
		return nil, nil
	}
	t, err := quality.ParseTier(c.Quality)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FrameInterval is the wall-clock time between host frames.
func (c *Config) FrameInterval() time.Duration {
	fps := c.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// Definition resolves the configured model and preset.
func (c *Config) Definition() (scene.ModelDefinition, error) {
	def := GetPreset(c.Model, c.Preset)
	if def == nil {
		names := ListPresets(c.Model)
		if len(names) == 0 {
			return scene.ModelDefinition{Type: scene.ModelType{Variant: scene.ParseVariant(c.Model)}}, nil
		}
		return scene.ModelDefinition{}, fmt.Errorf("unknown preset %q for %s (available: %v)", c.Preset, c.Model, names)
	}
	return *def, nil
}

// IsDefinitionFile reports whether path names a model definition file
// rather than a model name.
func IsDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadDefinition reads a model definition from a YAML or JSON file.
func LoadDefinition(path string) (scene.ModelDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scene.ModelDefinition{}, err
	}
	var def scene.ModelDefinition
	if strings.EqualFold(filepath.Ext(path), ".json") {
		def, err = scene.ParseJSON(data)
	} else {
		def, err = scene.ParseYAML(data)
	}
	if err != nil {
		return scene.ModelDefinition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}
