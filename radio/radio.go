// Package radio abstracts the link layer: broadcast and unicast
// channels addressed by 16-bit link addresses, with a per-frame RSSI
// attribute. Drivers deliver well-formed frames of the channel's type;
// demultiplexing happens by channel number.
package radio

// Channel numbers demultiplex traffic, one endpoint per channel.
type Channel uint16

const (
	ChBeacon Channel = 128
	ChData   Channel = 140
	ChAck    Channel = 142
)

// RecvFunc is invoked for every frame received on a channel. from is
// the sender's link address and rssi the signal strength the driver
// measured for this frame, in signed dB.
type RecvFunc func(from uint16, rssi int8, payload []byte)

type BroadcastConn interface {
	Send(payload []byte) error
	Close() error
}

type UnicastConn interface {
	SendTo(payload []byte, dst uint16) error
	Close() error
}

// Radio is one node's attachment to the medium.
type Radio interface {
	OpenBroadcast(ch Channel, cb RecvFunc) (BroadcastConn, error)
	OpenUnicast(ch Channel, cb RecvFunc) (UnicastConn, error)
	Close() error
}
