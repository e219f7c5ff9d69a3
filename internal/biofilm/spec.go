// Package biofilm procedurally grows bacterial colonies on an electrode.
//
// Geometry is generated once per scene and memoized; animation only
// changes material opacity and emissive intensity over wall-clock time.
package biofilm

import "github.com/san-kum/mesviz/internal/engine"

type Spec struct {
	Thickness float64 `yaml:"thickness" json:"thickness"`
	Coverage  float64 `yaml:"coverage" json:"coverage"`
	Color     string  `yaml:"color" json:"color"`
	Animated  bool    `yaml:"animated" json:"animated"`
}

func (s Spec) Validate() error {
	if s.Thickness < 0 {
		return &engine.ConfigError{Field: "biofilm.thickness", Message: "must not be negative"}
	}
	if s.Coverage < 0 || s.Coverage > 1 {
		return &engine.ConfigError{Field: "biofilm.coverage", Message: "must be within [0,1]"}
	}
	return nil
}
