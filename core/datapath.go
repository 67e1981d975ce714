package core

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/encodeous/canopy/perf"
	"github.com/encodeous/canopy/radio"
	"github.com/encodeous/canopy/state"
	"github.com/encodeous/canopy/wire"
)

// Datapath moves sensor readings: the sampling task on sources, the
// relay and delivery paths, and the single-hop ACK accounting.
type Datapath struct {
	io *nodeIO
}

func (d *Datapath) Init(s *state.State) error {
	s.Log.Debug("init datapath")
	d.io = Get[*Tree](s).io

	ucData, err := s.Radio.OpenUnicast(radio.ChData, d.onData)
	if err != nil {
		return err
	}
	d.io.ucData = ucData

	ucAck, err := s.Radio.OpenUnicast(radio.ChAck, d.onAck)
	if err != nil {
		return err
	}
	d.io.ucAck = ucAck

	s.Sensor.Activate()

	if s.Collect.IsSink() {
		d.io.active = ttlcache.New[state.NodeId, uint16](
			ttlcache.WithTTL[state.NodeId, uint16](state.ActiveSourceTTL),
		)
	}

	// desynchronize transmissions across nodes before settling into
	// the common period
	period := uint64(state.DataInterval / time.Second)
	offset := time.Duration(uint64(s.Collect.Id)%max(period, 1)) * time.Second
	s.Env.RepeatTaskAfter(d.sample, offset+state.DataInterval, state.DataInterval)
	return nil
}

func (d *Datapath) Cleanup(s *state.State) error {
	if d.io == nil {
		return nil
	}
	if d.io.ucData != nil {
		d.io.ucData.Close()
	}
	if d.io.ucAck != nil {
		d.io.ucAck.Close()
	}
	return nil
}

func (d *Datapath) sample(s *state.State) error {
	cs := s.Collect
	if cs.IsSink() {
		// the sink's own sample never travels; it lands in bucket zero
		cs.HopHist[0]++
		return nil
	}
	raw := s.Sensor.Read()
	SendSample(cs, d.io, raw)
	if state.DBG_log_data && cs.NextHop != 0 {
		s.Log.Debug("data out", "parent", cs.NextHop, "id", cs.DataSeq)
	}
	return nil
}

func (d *Datapath) onData(from uint16, rssi int8, payload []byte) {
	dm, err := wire.DecodeData(payload)
	if err != nil {
		d.io.s.Log.Warn("bad data frame", "from", from, "err", err)
		return
	}
	d.io.s.Dispatch(func(s *state.State) error {
		if state.DBG_log_data {
			s.Log.Debug("data in", "from", from, "src", dm.Src, "hops", dm.Hops, "rssi", rssi)
		}
		HandleData(s.Collect, d.io, state.NodeId(from), dm, time.Now())
		return nil
	})
}

func (d *Datapath) onAck(from uint16, rssi int8, payload []byte) {
	a, err := wire.DecodeAck(payload)
	if err != nil {
		d.io.s.Log.Warn("bad ack frame", "from", from, "err", err)
		return
	}
	perf.AcksReceived.Add(1)
	d.io.s.Dispatch(func(s *state.State) error {
		if state.DBG_log_ack {
			s.Log.Debug("ack in", "from", from, "data", a.DataId, "rssi", rssi)
		}
		HandleAck(s.Collect, d.io, state.NodeId(from), a, time.Now())
		return nil
	})
}
