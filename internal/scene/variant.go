package scene

import (
	"fmt"
	"strings"
)

// Variant is the closed set of MES configurations the composer knows how to
// build. The unexported build method seals the set: a new variant does not
// compile until it has a composition.
type Variant interface {
	Name() string
	build(b *builder)
}

type (
	// MFC is a dual-chamber microbial fuel cell separated by a membrane.
	MFC struct{}
	// SingleChamber is an air-cathode cell with no separator.
	SingleChamber struct{}
	// Bioreactor is a cylindrical vessel with rod electrodes.
	Bioreactor struct{}
	// Stacked connects ModelDefinition.Cells dual-chamber cells in series.
	Stacked struct{}
	// MEC is a microbial electrolysis cell driven by an external supply.
	MEC struct{}
	// MDC is a three-chamber desalination cell.
	MDC struct{}
	// Unsupported carries a type name the composer does not recognize and
	// renders as a labelled wireframe placeholder.
	Unsupported struct{ Requested string }
)

func (MFC) Name() string           { return "mfc" }
func (SingleChamber) Name() string { return "single_chamber" }
func (Bioreactor) Name() string    { return "bioreactor" }
func (Stacked) Name() string       { return "stacked" }
func (MEC) Name() string           { return "mec" }
func (MDC) Name() string           { return "mdc" }
func (u Unsupported) Name() string { return u.Requested }

var variants = []Variant{MFC{}, SingleChamber{}, Bioreactor{}, Stacked{}, MEC{}, MDC{}}

var aliases = map[string]string{
	"dual_chamber":    "mfc",
	"single-chamber":  "single_chamber",
	"singlechamber":   "single_chamber",
	"microbial_fuel":  "mfc",
	"electrolysis":    "mec",
	"desalination":    "mdc",
	"stack":           "stacked",
	"continuous_flow": "bioreactor",
}

// ParseVariant never fails: unknown names produce Unsupported.
func ParseVariant(s string) Variant {
	n := strings.ToLower(strings.TrimSpace(s))
	if a, ok := aliases[n]; ok {
		n = a
	}
	for _, v := range variants {
		if v.Name() == n {
			return v
		}
	}
	return Unsupported{Requested: s}
}

// Variants lists the supported variant names.
func Variants() []string {
	names := make([]string, len(variants))
	for i, v := range variants {
		names[i] = v.Name()
	}
	return names
}

func IsSupported(v Variant) bool {
	_, bad := v.(Unsupported)
	return v != nil && !bad
}

// ModelType adapts a Variant to text encodings.
type ModelType struct {
	Variant
}

func (t ModelType) MarshalText() ([]byte, error) {
	if t.Variant == nil {
		return nil, fmt.Errorf("scene: empty model type")
	}
	return []byte(t.Name()), nil
}

func (t *ModelType) UnmarshalText(b []byte) error {
	t.Variant = ParseVariant(string(b))
	return nil
}
