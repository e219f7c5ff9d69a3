// Package flow animates particles through a fluid domain.
//
// A Simulator owns a fixed arena of particles that is mutated in place on
// every tick. Expired or escaped particles are recycled, never reallocated.
package flow

import (
	"fmt"
	"strings"

	"github.com/san-kum/mesviz/internal/engine"
)

type Kind int

const (
	Laminar Kind = iota
	Turbulent
	Diffusive
	ElectronPath
)

var kindNames = [...]string{"laminar", "turbulent", "diffusive", "electron_path"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if s == n {
			return Kind(i), nil
		}
	}
	if s == "electron" {
		return ElectronPath, nil
	}
	return 0, &engine.ConfigError{Field: "flow.kind", Message: fmt.Sprintf("unknown flow kind %q", s)}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

type Pattern struct {
	Kind          Kind    `yaml:"kind" json:"kind"`
	ParticleCount int     `yaml:"particle_count" json:"particle_count"`
	Velocity      float64 `yaml:"velocity" json:"velocity"`
	Color         string  `yaml:"color" json:"color"`
}

func (p Pattern) Validate() error {
	if p.ParticleCount < 0 {
		return &engine.ConfigError{Field: "flow.particle_count", Message: "must not be negative"}
	}
	if p.Velocity < 0 {
		return &engine.ConfigError{Field: "flow.velocity", Message: "must not be negative"}
	}
	if p.Kind < Laminar || p.Kind > ElectronPath {
		return &engine.ConfigError{Field: "flow.kind", Message: p.Kind.String()}
	}
	return nil
}

// DefaultColor returns the conventional particle color for a kind.
func DefaultColor(k Kind) string {
	switch k {
	case ElectronPath:
		return "#ffd23f"
	case Turbulent:
		return "#4fc3f7"
	case Diffusive:
		return "#81c784"
	default:
		return "#29b6f6"
	}
}
