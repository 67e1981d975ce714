//go:build e2e

package e2e

import (
	"net/netip"
	"testing"

	"github.com/encodeous/canopy/state"
)

// Three containers share a bridge network, so every node hears every
// other over the UDP radio; the interesting part is that beacons flow,
// parents get picked and readings land on the sink.
func TestCollectionOverUDP(t *testing.T) {
	h := NewHarness(t)
	dir := h.SetupTestDir()

	central := state.CentralCfg{
		Nodes: []state.NodeCfg{
			{Id: 1, Address: netip.MustParseAddr("10.93.0.1")},
			{Id: 2, Address: netip.MustParseAddr("10.93.0.2")},
			{Id: 3, Address: netip.MustParseAddr("10.93.0.3")},
		},
		Group:    netip.MustParseAddr("239.93.0.1"),
		PortBase: state.DefaultPortBase,
		Rssi:     state.DefaultRssi,
	}
	centralPath := h.WriteConfig(dir, "central.yaml", central)

	h.StartNode("sink", "10.93.0.1", centralPath,
		h.WriteConfig(dir, "node1.yaml", SimpleLocal(1, state.PickPrr)))
	h.StartNode("node2", "10.93.0.2", centralPath,
		h.WriteConfig(dir, "node2.yaml", SimpleLocal(2, state.PickPrr)))
	h.StartNode("node3", "10.93.0.3", centralPath,
		h.WriteConfig(dir, "node3.yaml", SimpleLocal(3, state.PickPrr)))

	// beacons picked up and parents chosen
	h.WaitForLog("node2", "[route] parent=1")
	h.WaitForLog("node3", "[route] parent=")

	// both sources deliver to the sink
	h.WaitForLog("sink", "[sink] recv src=2")
	h.WaitForLog("sink", "[sink] recv src=3")

	// the sink prints its periodic histogram line
	h.WaitForLog("sink", "[hops]")
}
