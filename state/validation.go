package state

import "fmt"

func CentralConfigValidator(cfg *CentralCfg) error {
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("central config lists no nodes")
	}
	seen := make(map[NodeId]bool)
	haveAddrs := false
	for _, n := range cfg.Nodes {
		if n.Id == 0 {
			return fmt.Errorf("node id 0 is reserved (it means \"no parent\")")
		}
		if seen[n.Id] {
			return fmt.Errorf("duplicate node id %d", n.Id)
		}
		seen[n.Id] = true
		if n.Address.IsValid() {
			haveAddrs = true
		}
	}
	if !seen[SinkId] {
		return fmt.Errorf("no sink: node id %d must be present", SinkId)
	}
	if haveAddrs {
		for _, n := range cfg.Nodes {
			if !n.Address.IsValid() {
				return fmt.Errorf("node %d has no address while others do", n.Id)
			}
		}
		if !cfg.Group.IsValid() || !cfg.Group.Is4() || !cfg.Group.IsMulticast() {
			return fmt.Errorf("group must be an IPv4 multicast address")
		}
	}
	if cfg.PortBase == 0 {
		cfg.PortBase = DefaultPortBase
	}
	if cfg.Rssi == 0 {
		cfg.Rssi = DefaultRssi
	}
	return nil
}

func NodeConfigValidator(cfg *LocalCfg) error {
	if cfg.Id == 0 {
		return fmt.Errorf("node id must be set and non-zero")
	}
	if cfg.Policy == 0 {
		cfg.Policy = PickPrr
	}
	switch cfg.Policy {
	case PickHop, PickRssi, PickPrr:
	default:
		return fmt.Errorf("unknown policy %d", cfg.Policy)
	}
	return nil
}
