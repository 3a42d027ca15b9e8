package models

import "fmt"

// Tier is a subscription level. Tiers are strictly ordered: every model
// reachable at a tier is also reachable at every higher tier.
type Tier int

const (
	TierFree Tier = iota
	TierBasic
	TierPro
	TierPower
)

var tierNames = map[Tier]string{
	TierFree:  "free",
	TierBasic: "basic",
	TierPro:   "pro",
	TierPower: "power",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Includes reports whether a caller at tier t may use a model gated at min.
func (t Tier) Includes(min Tier) bool {
	return t >= min
}

// ParseTier maps a wire-level tier name to its Tier value.
func ParseTier(s string) (Tier, error) {
	for tier, name := range tierNames {
		if name == s {
			return tier, nil
		}
	}
	return TierFree, fmt.Errorf("unknown tier %q", s)
}
