package scene

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/mesviz/internal/biofilm"
	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/flow"
)

type ChamberSpec struct {
	Width   float64 `yaml:"width" json:"width"`
	Height  float64 `yaml:"height" json:"height"`
	Depth   float64 `yaml:"depth" json:"depth"`
	Color   string  `yaml:"color,omitempty" json:"color,omitempty"`
	Opacity float64 `yaml:"opacity,omitempty" json:"opacity,omitempty"`
}

type ElectrodeSpec struct {
	Material  string  `yaml:"material,omitempty" json:"material,omitempty"`
	Width     float64 `yaml:"width,omitempty" json:"width,omitempty"`
	Height    float64 `yaml:"height,omitempty" json:"height,omitempty"`
	Thickness float64 `yaml:"thickness,omitempty" json:"thickness,omitempty"`
	Color     string  `yaml:"color,omitempty" json:"color,omitempty"`
}

type ElectrodePair struct {
	Anode   ElectrodeSpec `yaml:"anode" json:"anode"`
	Cathode ElectrodeSpec `yaml:"cathode" json:"cathode"`
}

type MembraneSpec struct {
	Kind      string  `yaml:"kind,omitempty" json:"kind,omitempty"` // PEM, CEM, AEM
	Thickness float64 `yaml:"thickness,omitempty" json:"thickness,omitempty"`
	Color     string  `yaml:"color,omitempty" json:"color,omitempty"`
}

// ModelDefinition describes one reactor to visualize. It is treated as
// immutable once a scene is composed from it.
type ModelDefinition struct {
	Name       string        `yaml:"name,omitempty" json:"name,omitempty"`
	Type       ModelType     `yaml:"type" json:"type"`
	Cells      int           `yaml:"cells,omitempty" json:"cells,omitempty"`
	Chamber    ChamberSpec   `yaml:"chamber" json:"chamber"`
	Electrodes ElectrodePair `yaml:"electrodes" json:"electrodes"`
	Membrane   *MembraneSpec `yaml:"membrane,omitempty" json:"membrane,omitempty"`
	Flow       *flow.Pattern `yaml:"flow,omitempty" json:"flow,omitempty"`
	Biofilm    *biofilm.Spec `yaml:"biofilm,omitempty" json:"biofilm,omitempty"`
}

// Variant returns the model variant, treating a missing type as MFC.
func (d ModelDefinition) Variant() Variant {
	if d.Type.Variant == nil {
		return MFC{}
	}
	return d.Type.Variant
}

func (d ModelDefinition) Title() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Variant().Name()
}

// Validate reports the first invalid field. An unsupported type is not an
// error here; it composes to a placeholder.
func (d ModelDefinition) Validate() error {
	c := d.Chamber
	if c.Width < 0 || c.Height < 0 || c.Depth < 0 {
		return &engine.ConfigError{Field: "chamber", Message: "dimensions must not be negative"}
	}
	if c.Opacity < 0 || c.Opacity > 1 {
		return &engine.ConfigError{Field: "chamber.opacity", Message: "must be within [0,1]"}
	}
	for _, e := range []struct {
		name string
		spec ElectrodeSpec
	}{{"anode", d.Electrodes.Anode}, {"cathode", d.Electrodes.Cathode}} {
		if e.spec.Width < 0 || e.spec.Height < 0 || e.spec.Thickness < 0 {
			return &engine.ConfigError{Field: "electrodes." + e.name, Message: "dimensions must not be negative"}
		}
	}
	if d.Cells < 0 {
		return &engine.ConfigError{Field: "cells", Message: "must not be negative"}
	}
	if d.Membrane != nil && d.Membrane.Thickness < 0 {
		return &engine.ConfigError{Field: "membrane.thickness", Message: "must not be negative"}
	}
	if d.Flow != nil {
		if err := d.Flow.Validate(); err != nil {
			return err
		}
	}
	if d.Biofilm != nil {
		if err := d.Biofilm.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParseYAML decodes and validates a model definition.
func ParseYAML(data []byte) (ModelDefinition, error) {
	var d ModelDefinition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("%w: %v", engine.ErrConfiguration, err)
	}
	return d, d.Validate()
}

func ParseJSON(data []byte) (ModelDefinition, error) {
	var d ModelDefinition
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("%w: %v", engine.ErrConfiguration, err)
	}
	return d, d.Validate()
}

// withDefaults fills zero-valued dimensions from the variant's reference
// geometry. Explicit values always win.
func (d ModelDefinition) withDefaults() ModelDefinition {
	v := d.Variant()
	ref := reference(v)

	c := &d.Chamber
	c.Width = or(c.Width, ref.Chamber.Width)
	c.Height = or(c.Height, ref.Chamber.Height)
	c.Depth = or(c.Depth, ref.Chamber.Depth)
	c.Opacity = or(c.Opacity, ref.Chamber.Opacity)
	if c.Color == "" {
		c.Color = ref.Chamber.Color
	}
	d.Electrodes.Anode = mergeElectrode(d.Electrodes.Anode, ref.Electrodes.Anode)
	d.Electrodes.Cathode = mergeElectrode(d.Electrodes.Cathode, ref.Electrodes.Cathode)

	if d.Membrane == nil && ref.Membrane != nil {
		m := *ref.Membrane
		d.Membrane = &m
	} else if d.Membrane != nil && ref.Membrane != nil {
		m := *d.Membrane
		m.Thickness = or(m.Thickness, ref.Membrane.Thickness)
		if m.Kind == "" {
			m.Kind = ref.Membrane.Kind
		}
		if m.Color == "" {
			m.Color = ref.Membrane.Color
		}
		d.Membrane = &m
	}
	if _, ok := v.(Stacked); ok && d.Cells <= 0 {
		d.Cells = 3
	}
	return d
}

func mergeElectrode(e, ref ElectrodeSpec) ElectrodeSpec {
	e.Width = or(e.Width, ref.Width)
	e.Height = or(e.Height, ref.Height)
	e.Thickness = or(e.Thickness, ref.Thickness)
	if e.Material == "" {
		e.Material = ref.Material
	}
	if e.Color == "" {
		e.Color = ref.Color
	}
	return e
}

func or(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

var (
	carbonCloth = ElectrodeSpec{Material: "carbon cloth", Width: 0.7, Height: 0.7, Thickness: 0.4, Color: "#3a3a3a"}
	platinum    = ElectrodeSpec{Material: "Pt/C", Width: 0.7, Height: 0.7, Thickness: 0.3, Color: "#b0b0b8"}
	graphiteRod = ElectrodeSpec{Material: "graphite rod", Width: 0.12, Height: 0.8, Thickness: 0.12, Color: "#2b2b2b"}
	pem         = MembraneSpec{Kind: "PEM", Thickness: 0.2, Color: "#f4d35e"}
)

// reference returns the default geometry for a variant. Electrode width and
// height are fractions of the chamber; thickness is absolute.
func reference(v Variant) ModelDefinition {
	chamber := ChamberSpec{Width: 20, Height: 10, Depth: 8, Color: "#6fa8dc", Opacity: 0.25}
	def := ModelDefinition{Chamber: chamber, Electrodes: ElectrodePair{Anode: carbonCloth, Cathode: platinum}}
	switch v.(type) {
	case MFC, MEC:
		m := pem
		def.Membrane = &m
	case Stacked:
		def.Chamber.Width = 30
		m := pem
		def.Membrane = &m
	case SingleChamber:
		def.Chamber.Width = 14
		def.Electrodes.Cathode.Width, def.Electrodes.Cathode.Height = 0.8, 0.8
	case Bioreactor:
		def.Chamber = ChamberSpec{Width: 12, Height: 18, Depth: 12, Color: "#8ecae6", Opacity: 0.2}
		def.Electrodes = ElectrodePair{Anode: graphiteRod, Cathode: graphiteRod}
		def.Electrodes.Cathode.Color = "#9a9aa2"
	case MDC:
		def.Chamber.Width = 27
		aem := MembraneSpec{Kind: "AEM", Thickness: 0.2, Color: "#f28482"}
		def.Membrane = &aem
	}
	return def
}
