package state

import (
	"net/netip"
	"slices"
)

// NodeCfg is the central description of one node.
type NodeCfg struct {
	Id NodeId
	// Address is where the UDP radio driver reaches the node. Unused
	// by in-process radios.
	Address netip.Addr `yaml:",omitempty"`
}

// CentralCfg is shared by the whole network.
type CentralCfg struct {
	Nodes []NodeCfg
	// Group is the multicast group carrying the beacon channel for the
	// UDP radio driver.
	Group netip.Addr `yaml:",omitempty"`
	// PortBase maps radio channels to UDP ports (port = base + channel).
	PortBase uint16 `yaml:"port_base,omitempty"`
	// Rssi is the signal strength the UDP radio reports for received
	// frames, since UDP cannot measure one.
	Rssi int8 `yaml:"rssi,omitempty"`
}

// LocalCfg is node-level configuration.
type LocalCfg struct {
	Id NodeId
	// Policy is the parent scoring policy, defaulting to prr.
	Policy Policy `yaml:",omitempty"`
	// LogPath, when set, mirrors the ambient log into a file.
	LogPath string `yaml:"log_path,omitempty"`
}

func (c *CentralCfg) TryGetNode(id NodeId) *NodeCfg {
	idx := slices.IndexFunc(c.Nodes, func(cfg NodeCfg) bool {
		return cfg.Id == id
	})
	if idx == -1 {
		return nil
	}
	return &c.Nodes[idx]
}

func (c *CentralCfg) IsNode(id NodeId) bool {
	return c.TryGetNode(id) != nil
}
