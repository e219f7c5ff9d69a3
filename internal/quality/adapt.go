package quality

// Settings is the renderer configuration derived from a tier.
type Settings struct {
	Shadows        bool    `yaml:"shadows" json:"shadows"`
	Antialias      bool    `yaml:"antialias" json:"antialias"`
	PostProcessing bool    `yaml:"post_processing" json:"post_processing"`
	PixelRatioCap  float32 `yaml:"pixel_ratio_cap" json:"pixel_ratio_cap"`
}

// Every column is non-decreasing down the table.
var table = [...]Settings{
	None:     {PixelRatioCap: 1},
	Basic:    {PixelRatioCap: 1},
	Standard: {Antialias: true, PixelRatioCap: 1.5},
	Full:     {Shadows: true, Antialias: true, PostProcessing: true, PixelRatioCap: 2},
}

// Adapt maps a tier to its settings. Out-of-range tiers clamp to the
// nearest defined tier. Callers must route None to a fallback path rather
// than create a renderer with its settings.
func Adapt(t Tier) Settings {
	switch {
	case t < None:
		t = None
	case t > Full:
		t = Full
	}
	return table[t]
}

// PixelRatio caps a device pixel ratio by the settings.
func (s Settings) PixelRatio(device float64) float64 {
	if device <= 0 {
		device = 1
	}
	if limit := float64(s.PixelRatioCap); device > limit {
		return limit
	}
	return device
}
