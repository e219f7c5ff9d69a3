package config

import (
	"sort"

	"github.com/san-kum/mesviz/internal/biofilm"
	"github.com/san-kum/mesviz/internal/flow"
	"github.com/san-kum/mesviz/internal/scene"
)

func def(v scene.Variant, name string, f *flow.Pattern, b *biofilm.Spec) *scene.ModelDefinition {
	return &scene.ModelDefinition{Name: name, Type: scene.ModelType{Variant: v}, Flow: f, Biofilm: b}
}

var Presets = map[string]map[string]*scene.ModelDefinition{
	"mfc": {
		"standard": def(scene.MFC{}, "Dual-chamber MFC",
			&flow.Pattern{Kind: flow.ElectronPath, ParticleCount: 150, Velocity: 4},
			&biofilm.Spec{Thickness: 0.4, Coverage: 0.7, Animated: true}),
		"fresh": def(scene.MFC{}, "Freshly inoculated MFC",
			&flow.Pattern{Kind: flow.ElectronPath, ParticleCount: 40, Velocity: 2},
			&biofilm.Spec{Thickness: 0.1, Coverage: 0.15, Animated: true}),
		"mature": def(scene.MFC{}, "Mature biofilm MFC",
			&flow.Pattern{Kind: flow.ElectronPath, ParticleCount: 300, Velocity: 6},
			&biofilm.Spec{Thickness: 0.8, Coverage: 0.95, Animated: true}),
	},
	"single_chamber": {
		"standard": def(scene.SingleChamber{}, "Air-cathode MFC",
			&flow.Pattern{Kind: flow.Diffusive, ParticleCount: 120, Velocity: 2},
			&biofilm.Spec{Thickness: 0.3, Coverage: 0.6, Animated: true}),
		"electron": def(scene.SingleChamber{}, "Air-cathode MFC (electron path)",
			&flow.Pattern{Kind: flow.ElectronPath, ParticleCount: 100, Velocity: 3},
			&biofilm.Spec{Thickness: 0.3, Coverage: 0.6}),
	},
	"bioreactor": {
		"standard": def(scene.Bioreactor{}, "Continuous-flow bioreactor",
			&flow.Pattern{Kind: flow.Turbulent, ParticleCount: 250, Velocity: 3},
			&biofilm.Spec{Thickness: 0.2, Coverage: 0.5, Animated: true}),
		"plug_flow": def(scene.Bioreactor{}, "Plug-flow bioreactor",
			&flow.Pattern{Kind: flow.Laminar, ParticleCount: 200, Velocity: 2},
			nil),
	},
	"stacked": {
		"standard": {
			Name: "Three-cell stack", Type: scene.ModelType{Variant: scene.Stacked{}}, Cells: 3,
			Flow:    &flow.Pattern{Kind: flow.Laminar, ParticleCount: 200, Velocity: 4},
			Biofilm: &biofilm.Spec{Thickness: 0.3, Coverage: 0.6, Animated: true},
		},
		"tall": {
			Name: "Six-cell stack", Type: scene.ModelType{Variant: scene.Stacked{}}, Cells: 6,
			Flow: &flow.Pattern{Kind: flow.ElectronPath, ParticleCount: 240, Velocity: 6},
		},
	},
	"mec": {
		"standard": def(scene.MEC{}, "Hydrogen-producing MEC",
			&flow.Pattern{Kind: flow.ElectronPath, ParticleCount: 150, Velocity: 5},
			&biofilm.Spec{Thickness: 0.4, Coverage: 0.8, Animated: true}),
	},
	"mdc": {
		"standard": def(scene.MDC{}, "Microbial desalination cell",
			&flow.Pattern{Kind: flow.Laminar, ParticleCount: 180, Velocity: 2.5, Color: "#90e0ef"},
			&biofilm.Spec{Thickness: 0.3, Coverage: 0.6, Animated: true}),
		"brackish": def(scene.MDC{}, "Brackish water MDC",
			&flow.Pattern{Kind: flow.Turbulent, ParticleCount: 220, Velocity: 2, Color: "#caf0f8"},
			&biofilm.Spec{Thickness: 0.2, Coverage: 0.4}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *scene.ModelDefinition {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	d, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	out := *d
	if d.Flow != nil {
		f := *d.Flow
		out.Flow = &f
	}
	if d.Biofilm != nil {
		b := *d.Biofilm
		out.Biofilm = &b
	}
	return &out
}

// ListPresets returns preset names for a model in sorted order.
func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Models lists every model with presets in sorted order.
func Models() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
