package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/encodeous/canopy/radio/memradio"
	"github.com/encodeous/canopy/state"
)

// Two-node line: sink=1, node=2. One beacon round gives node 2 a
// parent; one data period puts a reading on the sink's console.
func TestTwoNodeLine(t *testing.T) {
	CompressTimers(t)
	net := memradio.NewNetwork()
	net.SetBidi(1, 2, memradio.Link{Rssi: -50})

	central := centralFor(1, 2)
	sink := StartNode(t, net, central, 1, state.PickPrr)
	node := StartNode(t, net, central, 2, state.PickPrr)

	require.Eventually(t, func() bool {
		return node.NextHop(t) == 1
	}, 10*time.Second, 20*time.Millisecond, "node 2 never adopted the sink")
	assert.Equal(t, uint16(1), node.HopsVia(t, 1))

	require.Eventually(t, func() bool {
		return sink.Console.Contains("[sink] recv src=2 hops=1")
	}, 10*time.Second, 20*time.Millisecond)
	assert.Contains(t, sink.Console.String(), "temp=20.4")
	assert.GreaterOrEqual(t, sink.HistBucket(t, 1), uint32(1))
}

// Three-node line 1-2-3: node 3 only hears node 2 and reaches the sink
// in two hops.
func TestThreeNodeLine(t *testing.T) {
	CompressTimers(t)
	net := memradio.NewNetwork()
	net.SetBidi(1, 2, memradio.Link{Rssi: -50})
	net.SetBidi(2, 3, memradio.Link{Rssi: -60})

	central := centralFor(1, 2, 3)
	sink := StartNode(t, net, central, 1, state.PickPrr)
	mid := StartNode(t, net, central, 2, state.PickPrr)
	leaf := StartNode(t, net, central, 3, state.PickPrr)

	require.Eventually(t, func() bool {
		return mid.NextHop(t) == 1 && leaf.NextHop(t) == 2
	}, 10*time.Second, 20*time.Millisecond)
	assert.Equal(t, uint16(2), leaf.HopsVia(t, 2), "node 2 advertises distance 2")

	require.Eventually(t, func() bool {
		return sink.Console.Contains("[sink] recv src=3 hops=2")
	}, 10*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, sink.HistBucket(t, 2), uint32(1))
}

// Diamond: 2 and 3 both hear the sink, 4 hears both. Hop counts are
// equal, so the tie breaks on signal strength.
func TestDiamondHopPolicy(t *testing.T) {
	CompressTimers(t)
	net := memradio.NewNetwork()
	net.SetBidi(1, 2, memradio.Link{Rssi: -50})
	net.SetBidi(1, 3, memradio.Link{Rssi: -50})
	net.SetBidi(2, 4, memradio.Link{Rssi: -40})
	net.SetBidi(3, 4, memradio.Link{Rssi: -70})

	central := centralFor(1, 2, 3, 4)
	StartNode(t, net, central, 1, state.PickHop)
	StartNode(t, net, central, 2, state.PickHop)
	StartNode(t, net, central, 3, state.PickHop)
	corner := StartNode(t, net, central, 4, state.PickHop)

	require.Eventually(t, func() bool {
		return corner.NextHop(t) == 2
	}, 10*time.Second, 20*time.Millisecond,
		"equal hops tie-break to the stronger link")
}

func TestDiamondRssiPolicy(t *testing.T) {
	CompressTimers(t)
	net := memradio.NewNetwork()
	// uplinks are the strongest link of every node, so the tree stays
	// loop-free even though rssi ignores hop counts
	net.SetBidi(1, 2, memradio.Link{Rssi: -50})
	net.SetBidi(1, 3, memradio.Link{Rssi: -40})
	net.SetBidi(2, 4, memradio.Link{Rssi: -75})
	net.SetBidi(3, 4, memradio.Link{Rssi: -45})

	central := centralFor(1, 2, 3, 4)
	StartNode(t, net, central, 1, state.PickRssi)
	StartNode(t, net, central, 2, state.PickRssi)
	StartNode(t, net, central, 3, state.PickRssi)
	corner := StartNode(t, net, central, 4, state.PickRssi)

	require.Eventually(t, func() bool {
		return corner.NextHop(t) == 3
	}, 10*time.Second, 20*time.Millisecond)
}

// Silencing the parent ages it out: the slot is freed, the pointer
// reset, and the diagnostic line emitted.
func TestParentAging(t *testing.T) {
	CompressTimers(t)
	state.NbrTTL = 600 * time.Millisecond

	net := memradio.NewNetwork()
	net.SetBidi(1, 2, memradio.Link{Rssi: -50})

	central := centralFor(1, 2)
	StartNode(t, net, central, 1, state.PickPrr)
	node := StartNode(t, net, central, 2, state.PickPrr)

	require.Eventually(t, func() bool {
		return node.NextHop(t) == 1
	}, 10*time.Second, 20*time.Millisecond)

	net.DropLink(1, 2)

	require.Eventually(t, func() bool {
		return node.NextHop(t) == 0
	}, 10*time.Second, 20*time.Millisecond, "parent should expire after NbrTTL")
	assert.Contains(t, node.Console.String(), "[aging] parent 1 expired; reset")
	assert.Equal(t, state.HopsUnknown, node.HopsVia(t, 1), "slot freed")
}

// The periodic diagnostics appear on both roles.
func TestStatsOutput(t *testing.T) {
	CompressTimers(t)
	net := memradio.NewNetwork()
	net.SetBidi(1, 2, memradio.Link{Rssi: -50})

	central := centralFor(1, 2)
	sink := StartNode(t, net, central, 1, state.PickPrr)
	node := StartNode(t, net, central, 2, state.PickPrr)

	require.Eventually(t, func() bool {
		return sink.Console.Contains("[hops]") && node.Console.Contains("[tbl] node=2")
	}, 10*time.Second, 20*time.Millisecond)
	assert.Contains(t, node.Console.String(), "[route] parent=1")
}

// Data frames still flow end to end over a moderately lossy hop, and
// the per-hop ACK accounting stays consistent (rx_ack never exceeds tx).
func TestLossyLinkStillDelivers(t *testing.T) {
	CompressTimers(t)
	state.DataInterval = 100 * time.Millisecond

	net := memradio.NewNetwork()
	net.SetBidi(1, 2, memradio.Link{Rssi: -50, Loss: 0.3})

	central := centralFor(1, 2)
	sink := StartNode(t, net, central, 1, state.PickPrr)
	node := StartNode(t, net, central, 2, state.PickPrr)

	require.Eventually(t, func() bool {
		return sink.Console.Contains("[sink] recv src=2 hops=1")
	}, 20*time.Second, 50*time.Millisecond)

	// accounting stays consistent under loss
	ok := Read(t, node, func(cs *state.CollectState) bool {
		n := cs.Nbrs.Get(1)
		return n != nil && n.RxAck <= n.Tx
	})
	assert.True(t, ok)
}
