package state

import "fmt"

// Policy scores parent candidates. All polymorphism is closed under the
// three variants, so a tagged value is enough.
type Policy int

const (
	PickHop Policy = iota + 1
	PickRssi
	PickPrr
)

func (p Policy) String() string {
	switch p {
	case PickHop:
		return "hop"
	case PickRssi:
		return "rssi"
	case PickPrr:
		return "prr"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "hop":
		return PickHop, nil
	case "rssi":
		return PickRssi, nil
	case "prr":
		return PickPrr, nil
	}
	return 0, fmt.Errorf("unknown policy %q (want hop, rssi or prr)", s)
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Score returns the policy score of n and whether n is eligible at all.
// Hop distance scores 1/(1+hops); a neighbor that never advertised one
// is ineligible. RSSI scores the raw signed dB value. PRR scores the
// measured ratio once PrrMinSamples attempts have been charged.
func (p Policy) Score(n *Neighbor) (float64, bool) {
	switch p {
	case PickRssi:
		return float64(n.Rssi), true
	case PickPrr:
		if n.Tx < PrrMinSamples {
			return 0, false
		}
		return n.Prr, true
	default:
		if n.HopsVia == HopsUnknown {
			return 0, false
		}
		return 1 / (1 + float64(n.HopsVia)), true
	}
}
