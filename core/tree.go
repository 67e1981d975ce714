package core

import (
	"time"

	"github.com/encodeous/canopy/perf"
	"github.com/encodeous/canopy/radio"
	"github.com/encodeous/canopy/state"
	"github.com/encodeous/canopy/wire"
)

// Tree maintains the convergecast tree: the sink's beacon loop, the
// beacon receive path on forwarders, and the periodic aging + parent
// reselection pass.
type Tree struct {
	io *nodeIO
}

func (t *Tree) Init(s *state.State) error {
	s.Log.Debug("init tree")
	t.io = &nodeIO{s: s}

	s.Collect = &state.CollectState{
		Id:     s.LocalCfg.Id,
		Policy: s.LocalCfg.Policy,
	}
	for i := range s.Collect.Nbrs.Slots {
		s.Collect.Nbrs.Slots[i].HopsVia = state.HopsUnknown
	}

	bc, err := s.Radio.OpenBroadcast(radio.ChBeacon, t.onBeacon)
	if err != nil {
		return err
	}
	t.io.bc = bc

	if s.Collect.IsSink() {
		s.Env.RepeatTaskAfter(t.sinkBeacon, state.StartupWait, state.BeaconInterval)
	}
	s.Env.RepeatTaskAfter(t.reselect, state.ReselectInterval, state.ReselectInterval)
	return nil
}

func (t *Tree) Cleanup(s *state.State) error {
	if t.io != nil && t.io.bc != nil {
		return t.io.bc.Close()
	}
	return nil
}

func (t *Tree) sinkBeacon(s *state.State) error {
	b := NextSinkBeacon(s.Collect)
	t.io.SendBeacon(b)
	s.Indicate()
	if state.DBG_log_beacon {
		s.Log.Debug("beacon out", "seq", b.AdvSeq)
	}
	return nil
}

func (t *Tree) reselect(s *state.State) error {
	ExpireNeighbors(s.Collect, t.io, time.Now())
	if !s.Collect.IsSink() {
		ParentReselect(s.Collect, t.io)
	}
	return nil
}

// onBeacon runs on the radio's goroutine; all state mutation is
// dispatched onto the executor.
func (t *Tree) onBeacon(from uint16, rssi int8, payload []byte) {
	b, err := wire.DecodeBeacon(payload)
	if err != nil {
		t.io.s.Log.Warn("bad beacon frame", "from", from, "err", err)
		return
	}
	perf.BeaconsReceived.Add(1)
	t.io.s.Dispatch(func(s *state.State) error {
		if state.DBG_log_beacon {
			s.Log.Debug("beacon in", "from", from, "seq", b.AdvSeq, "hop", b.AdvHops, "rssi", rssi)
		}
		HandleBeacon(s.Collect, t.io, state.NodeId(from), rssi, b, time.Now())
		return nil
	})
}
