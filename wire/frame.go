// Package wire implements the frame codecs of the collection protocol.
// All integers are little-endian, packed, without padding.
package wire

import (
	"encoding/binary"
	"fmt"
)

const (
	BeaconSize = 6
	DataSize   = 8
	AckSize    = 5
)

var ErrFrameSize = fmt.Errorf("wire: unexpected frame length")

// Beacon is the tree-construction advertisement. AdvParent is the id of
// the rebroadcasting node, AdvHops its advertised distance to the sink
// and AdvSeq the sink's sequence number, preserved across rebroadcasts.
type Beacon struct {
	AdvParent uint16
	AdvHops   uint16
	AdvSeq    uint16
}

func (b Beacon) Encode() []byte {
	p := make([]byte, BeaconSize)
	binary.LittleEndian.PutUint16(p[0:2], b.AdvParent)
	binary.LittleEndian.PutUint16(p[2:4], b.AdvHops)
	binary.LittleEndian.PutUint16(p[4:6], b.AdvSeq)
	return p
}

func DecodeBeacon(p []byte) (Beacon, error) {
	if len(p) != BeaconSize {
		return Beacon{}, fmt.Errorf("%w: beacon is %d bytes, want %d", ErrFrameSize, len(p), BeaconSize)
	}
	return Beacon{
		AdvParent: binary.LittleEndian.Uint16(p[0:2]),
		AdvHops:   binary.LittleEndian.Uint16(p[2:4]),
		AdvSeq:    binary.LittleEndian.Uint16(p[4:6]),
	}, nil
}

// Data carries one sensor reading toward the sink. Hops starts at 1 at
// the source and is incremented once per relay.
type Data struct {
	Src     uint16
	Hops    uint16
	TempRaw uint16
	DataId  uint16
}

func (d Data) Encode() []byte {
	p := make([]byte, DataSize)
	binary.LittleEndian.PutUint16(p[0:2], d.Src)
	binary.LittleEndian.PutUint16(p[2:4], d.Hops)
	binary.LittleEndian.PutUint16(p[4:6], d.TempRaw)
	binary.LittleEndian.PutUint16(p[6:8], d.DataId)
	return p
}

func DecodeData(p []byte) (Data, error) {
	if len(p) != DataSize {
		return Data{}, fmt.Errorf("%w: data is %d bytes, want %d", ErrFrameSize, len(p), DataSize)
	}
	return Data{
		Src:     binary.LittleEndian.Uint16(p[0:2]),
		Hops:    binary.LittleEndian.Uint16(p[2:4]),
		TempRaw: binary.LittleEndian.Uint16(p[4:6]),
		DataId:  binary.LittleEndian.Uint16(p[6:8]),
	}, nil
}

// Ack confirms single-hop receipt of a data frame. DataId is
// informational; receivers do not correlate it.
type Ack struct {
	AckFrom uint16
	DataId  uint16
	Ok      uint8
}

func (a Ack) Encode() []byte {
	p := make([]byte, AckSize)
	binary.LittleEndian.PutUint16(p[0:2], a.AckFrom)
	binary.LittleEndian.PutUint16(p[2:4], a.DataId)
	p[4] = a.Ok
	return p
}

func DecodeAck(p []byte) (Ack, error) {
	if len(p) != AckSize {
		return Ack{}, fmt.Errorf("%w: ack is %d bytes, want %d", ErrFrameSize, len(p), AckSize)
	}
	return Ack{
		AckFrom: binary.LittleEndian.Uint16(p[0:2]),
		DataId:  binary.LittleEndian.Uint16(p[2:4]),
		Ok:      p[4],
	}, nil
}
