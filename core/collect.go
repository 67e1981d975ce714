package core

import (
	"fmt"

	"github.com/jellydator/ttlcache/v3"

	"github.com/encodeous/canopy/perf"
	"github.com/encodeous/canopy/radio"
	"github.com/encodeous/canopy/sensor"
	"github.com/encodeous/canopy/state"
	"github.com/encodeous/canopy/wire"
)

// nodeIO is the Collector implementation backed by the node's radio
// connections and console. The Tree module creates it; Datapath fills
// in the unicast connections as it opens them.
type nodeIO struct {
	s      *state.State
	bc     radio.BroadcastConn
	ucData radio.UnicastConn
	ucAck  radio.UnicastConn

	// active tracks sources the sink has heard from recently. Entries
	// age out after ActiveSourceTTL; the stats tick sweeps them.
	active *ttlcache.Cache[state.NodeId, uint16]
}

func (io *nodeIO) SendBeacon(b wire.Beacon) {
	if err := io.bc.Send(b.Encode()); err != nil {
		io.s.Log.Warn("beacon send failed", "err", err)
	}
	perf.BeaconsSent.Add(1)
}

func (io *nodeIO) SendData(d wire.Data, nh state.NodeId) {
	if err := io.ucData.SendTo(d.Encode(), uint16(nh)); err != nil {
		// accounted as an attempt regardless; a failed send and a lost
		// ACK look the same to the PRR estimator
		io.s.Log.Warn("data send failed", "to", nh, "err", err)
	}
	perf.DataSent.Add(1)
}

func (io *nodeIO) SendAck(a wire.Ack, to state.NodeId) {
	if err := io.ucAck.SendTo(a.Encode(), uint16(to)); err != nil {
		io.s.Log.Warn("ack send failed", "to", to, "err", err)
	}
	perf.AcksSent.Add(1)
}

func (io *nodeIO) Deliver(d wire.Data) {
	fmt.Fprintf(io.s.Console, "[sink] recv src=%d hops=%d temp=%s\n",
		d.Src, d.Hops, sensor.Format(d.TempRaw))
	if io.active != nil {
		io.active.Set(state.NodeId(d.Src), d.DataId, ttlcache.DefaultTTL)
	}
	perf.DataDelivered.Add(1)
}

func (io *nodeIO) ParentChanged(id state.NodeId, slot *state.Neighbor) {
	var hop uint16
	var rssi int8
	prr := -1
	if slot != nil {
		hop = slot.HopsVia
		rssi = slot.Rssi
		prr = int(slot.Prr * 100)
	}
	fmt.Fprintf(io.s.Console, "[route] parent=%d (hop=%d rssi=%d prr=%d%%)\n", id, hop, rssi, prr)
}

func (io *nodeIO) ParentLost(id state.NodeId) {
	fmt.Fprintf(io.s.Console, "[aging] parent %d expired; reset\n", id)
}

func (io *nodeIO) Log(event CollectEvent, desc string, args ...any) {
	io.s.Log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
}
