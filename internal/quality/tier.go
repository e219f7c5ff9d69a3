package quality

import (
	"fmt"
	"strings"
)

// Tier is a coarse classification of host rendering capability. Tiers are
// ordered: None < Basic < Standard < Full.
type Tier int

const (
	None Tier = iota
	Basic
	Standard
	Full
)

var tierNames = [...]string{"none", "basic", "standard", "full"}

// Tiers lists every tier in ascending order.
func Tiers() []Tier { return []Tier{None, Basic, Standard, Full} }

func (t Tier) String() string {
	if t < None || t > Full {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier accepts the names printed by String, case-insensitively.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if strings.EqualFold(s, name) {
			return Tier(i), nil
		}
	}
	return None, fmt.Errorf("unknown tier: %q", s)
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Cap returns the lower of t and limit. An override may lower the probed
// tier but never raise it.
func (t Tier) Cap(limit Tier) Tier {
	if limit < t {
		return limit
	}
	return t
}
