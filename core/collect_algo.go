package core

import (
	"fmt"
	"time"

	"github.com/encodeous/canopy/state"
	"github.com/encodeous/canopy/wire"
)

type CollectEvent int

// trace events

const (
	BeaconForwarded CollectEvent = iota
	BeaconStale
	ParentBootstrap
	DataSkipped
	DataRelayed
	DataDropped
	AckReceived
)

// anomaly events, numbered apart from the trace events; logged at
// debug level like them

const (
	SelfLoop CollectEvent = iota + 1000
)

func (e CollectEvent) String() string {
	switch e {
	case BeaconForwarded:
		return "BEACON_FORWARDED"
	case BeaconStale:
		return "BEACON_STALE"
	case ParentBootstrap:
		return "PARENT_BOOTSTRAP"
	case DataSkipped:
		return "DATA_SKIPPED"
	case DataRelayed:
		return "DATA_RELAYED"
	case DataDropped:
		return "DATA_DROPPED"
	case AckReceived:
		return "ACK_RECEIVED"
	case SelfLoop:
		return "SELF_LOOP"
	}
	return fmt.Sprintf("EVENT(%d)", int(e))
}

// Collector is the set of effects the protocol logic can have on the
// outside world, kept small so the logic is testable without a radio.
type Collector interface {
	SendBeacon(b wire.Beacon)
	SendData(d wire.Data, nh state.NodeId)
	SendAck(a wire.Ack, to state.NodeId)
	// Deliver reports a data frame arriving at the sink.
	Deliver(d wire.Data)
	ParentChanged(id state.NodeId, slot *state.Neighbor)
	ParentLost(id state.NodeId)
	Log(event CollectEvent, desc string, args ...any)
}

// parentSet points the parent at id, reporting the change. No-op when
// id is already the parent.
func parentSet(cs *state.CollectState, c Collector, id state.NodeId) {
	if cs.NextHop == id {
		return
	}
	cs.NextHop = id
	c.ParentChanged(id, cs.Nbrs.Get(id))
}

// HandleBeacon runs the beacon receive path: admit the advertiser as a
// parent candidate, then apply the controlled-flood filter. The very
// first beacon a node ever accepts also bootstraps the parent pointer;
// afterwards only a strictly newer adv_seq is accepted. Accepted
// beacons are rebroadcast once with the hop distance incremented.
//
// The filter is per-node, not per-origin: it relies on the sink being
// the only beacon originator.
func HandleBeacon(cs *state.CollectState, c Collector, from state.NodeId, rssi int8, b wire.Beacon, now time.Time) {
	if cs.IsSink() {
		return
	}
	cs.Nbrs.Upsert(state.NodeId(b.AdvParent), rssi, b.AdvHops, now)

	fwd := false
	if cs.LastBeaconSeq == 0 {
		c.Log(ParentBootstrap, "first beacon, adopting advertiser", "parent", b.AdvParent)
		parentSet(cs, c, state.NodeId(b.AdvParent))
		fwd = true
	} else if b.AdvSeq > cs.LastBeaconSeq {
		fwd = true
	}
	if !fwd {
		c.Log(BeaconStale, "dropped by flood filter", "from", from, "seq", b.AdvSeq, "prev", cs.LastBeaconSeq)
		return
	}
	cs.LastBeaconSeq = b.AdvSeq

	out := wire.Beacon{
		AdvParent: uint16(cs.Id),
		AdvHops:   b.AdvHops + 1,
		AdvSeq:    b.AdvSeq,
	}
	c.SendBeacon(out)
	c.Log(BeaconForwarded, "rebroadcast", "seq", out.AdvSeq, "newhop", out.AdvHops)
}

// NextSinkBeacon builds the sink's next advertisement.
func NextSinkBeacon(cs *state.CollectState) wire.Beacon {
	cs.BeaconSeqTx++
	return wire.Beacon{
		AdvParent: uint16(state.SinkId),
		AdvHops:   1,
		AdvSeq:    cs.BeaconSeqTx,
	}
}

// sendData unicasts d to the current parent and charges the attempt to
// its PRR accounting. The ACK, if it ever arrives, credits it back.
func sendData(cs *state.CollectState, c Collector, d wire.Data) {
	if cs.NextHop == 0 {
		c.Log(DataSkipped, "no parent", "src", d.Src, "id", d.DataId)
		return
	}
	c.SendData(d, cs.NextHop)
	cs.Nbrs.PrrBump(cs.NextHop, false)
}

// SendSample sources a fresh reading toward the parent. The sample is
// dropped silently when no parent is known; the sequence number only
// advances for frames that are actually sent.
func SendSample(cs *state.CollectState, c Collector, raw uint16) {
	if cs.NextHop == 0 {
		c.Log(DataSkipped, "no parent, sample dropped")
		return
	}
	cs.DataSeq++
	sendData(cs, c, wire.Data{
		Src:     uint16(cs.Id),
		Hops:    1,
		TempRaw: raw,
		DataId:  cs.DataSeq,
	})
}

// HandleData runs the data receive path: ACK the sender immediately and
// keep it alive as a child, then deliver (sink) or relay upward with
// the hop count incremented.
func HandleData(cs *state.CollectState, c Collector, from state.NodeId, d wire.Data, now time.Time) {
	c.SendAck(wire.Ack{AckFrom: uint16(cs.Id), DataId: d.DataId, Ok: 1}, from)
	cs.Nbrs.Touch(from, now)

	if cs.IsSink() {
		if int(d.Hops) < state.HopsMax {
			cs.HopHist[d.Hops]++
		}
		c.Deliver(d)
		return
	}
	if state.NodeId(d.Src) == cs.Id {
		// our own frame came back; the tree has a cycle somewhere
		c.Log(SelfLoop, "own frame received, dropped", "from", from, "id", d.DataId)
		return
	}
	if cs.NextHop == 0 {
		c.Log(DataDropped, "no parent, frame dropped", "src", d.Src, "id", d.DataId)
		return
	}
	if cs.NextHop == from {
		// forwarding would bounce the frame straight back; policies
		// other than hop scoring can momentarily bend the tree
		c.Log(DataDropped, "next hop is the sender, frame dropped", "src", d.Src, "from", from)
		return
	}
	d.Hops++
	sendData(cs, c, d)
	c.Log(DataRelayed, "forwarded", "src", d.Src, "parent", cs.NextHop)
}

// HandleAck credits the sender's PRR accounting and refreshes it. The
// payload is not otherwise interpreted.
func HandleAck(cs *state.CollectState, c Collector, from state.NodeId, a wire.Ack, now time.Time) {
	cs.Nbrs.PrrBump(from, true)
	cs.Nbrs.Touch(from, now)
	c.Log(AckReceived, "ack", "from", from, "data", a.DataId)
}

// ExpireNeighbors ages out silent neighbors. Losing the current parent
// clears the pointer; the first reselection after a beacon re-admits a
// candidate reacquires one. The beacon path's bootstrap branch does not
// fire again, since it runs only while no beacon has been accepted.
func ExpireNeighbors(cs *state.CollectState, c Collector, now time.Time) {
	for _, id := range cs.Nbrs.Expire(now, state.NbrTTL) {
		if id == cs.NextHop {
			cs.NextHop = 0
			c.ParentLost(id)
		}
	}
}

// tieBreak reports whether a beats b at equal score: lower advertised
// hop distance, then higher rssi, then (when useId) lower id.
func tieBreak(a, b *state.Neighbor, useId bool) bool {
	if a.HopsVia != b.HopsVia {
		return a.HopsVia < b.HopsVia
	}
	if a.Rssi != b.Rssi {
		return a.Rssi > b.Rssi
	}
	return useId && a.Id < b.Id
}

func bestCandidate(cs *state.CollectState, policy state.Policy, useIdTieBreak bool) *state.Neighbor {
	var best *state.Neighbor
	var sBest float64
	for i := range cs.Nbrs.Slots {
		n := &cs.Nbrs.Slots[i]
		if !n.Used {
			continue
		}
		s, ok := policy.Score(n)
		if !ok {
			continue
		}
		if best == nil || s > sBest {
			best, sBest = n, s
		} else if s == sBest && tieBreak(n, best, useIdTieBreak) {
			best = n
		}
	}
	return best
}

// ParentReselect re-evaluates the parent under the active policy. The
// PRR policy falls back to hop scoring (with the reduced tie-break)
// while no neighbor has accumulated enough samples. When no candidate
// is eligible at all, the previous parent stays until aging clears it.
func ParentReselect(cs *state.CollectState, c Collector) {
	best := bestCandidate(cs, cs.Policy, true)
	if best == nil && cs.Policy == state.PickPrr {
		best = bestCandidate(cs, state.PickHop, false)
	}
	if best != nil {
		parentSet(cs, c, best.Id)
	}
}
