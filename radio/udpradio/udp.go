// Package udpradio runs the radio abstraction over UDP: beacons over an
// IPv4 multicast group, data and ACK channels over per-channel unicast
// ports (port = base + channel). Senders are resolved from the source
// address using the network's node list. UDP carries no signal
// strength, so received frames report the configured default RSSI.
package udpradio

import (
	"fmt"
	"net"
	"net/netip"
	"slices"
	"sync"

	"golang.org/x/net/ipv4"

	"github.com/encodeous/canopy/radio"
)

type Config struct {
	Id       uint16
	Group    netip.Addr
	PortBase uint16
	Rssi     int8
	Nodes    map[uint16]netip.Addr
}

type Driver struct {
	cfg    Config
	byAddr map[netip.Addr]uint16

	mu     sync.Mutex
	conns  []net.PacketConn
	closed bool
}

func New(cfg Config) *Driver {
	byAddr := make(map[netip.Addr]uint16, len(cfg.Nodes))
	for id, addr := range cfg.Nodes {
		byAddr[addr.Unmap()] = id
	}
	return &Driver{cfg: cfg, byAddr: byAddr}
}

func (d *Driver) listen(ch radio.Channel) (net.PacketConn, int, error) {
	port := int(d.cfg.PortBase) + int(ch)
	c, err := net.ListenPacket("udp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		c.Close()
		return nil, 0, fmt.Errorf("udpradio: driver is closed")
	}
	d.conns = append(d.conns, c)
	return c, port, nil
}

func (d *Driver) OpenBroadcast(ch radio.Channel, cb radio.RecvFunc) (radio.BroadcastConn, error) {
	if !d.cfg.Group.Is4() || !d.cfg.Group.IsMulticast() {
		return nil, fmt.Errorf("udpradio: group %s is not an IPv4 multicast address", d.cfg.Group)
	}
	c, port, err := d.listen(ch)
	if err != nil {
		return nil, err
	}
	p := ipv4.NewPacketConn(c)
	group := &net.UDPAddr{IP: d.cfg.Group.AsSlice()}
	if err := p.JoinGroup(nil, group); err != nil {
		c.Close()
		return nil, fmt.Errorf("udpradio: join %s: %w", d.cfg.Group, err)
	}
	// frames from self are filtered by source address in the read loop
	// as well, but not looping them back at all is cheaper
	_ = p.SetMulticastLoopback(false)
	_ = p.SetMulticastTTL(1)
	go d.readLoop(c, cb)
	return &bcastConn{
		c:   c,
		dst: &net.UDPAddr{IP: d.cfg.Group.AsSlice(), Port: port},
	}, nil
}

func (d *Driver) OpenUnicast(ch radio.Channel, cb radio.RecvFunc) (radio.UnicastConn, error) {
	c, port, err := d.listen(ch)
	if err != nil {
		return nil, err
	}
	go d.readLoop(c, cb)
	return &uniConn{d: d, c: c, port: port}, nil
}

func (d *Driver) readLoop(c net.PacketConn, cb radio.RecvFunc) {
	buf := make([]byte, 512)
	for {
		n, addr, err := c.ReadFrom(buf)
		if err != nil {
			return // conn closed
		}
		ua, ok := addr.(*net.UDPAddr)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ua.IP)
		if !ok {
			continue
		}
		from, known := d.byAddr[ip.Unmap()]
		if !known || from == d.cfg.Id {
			continue
		}
		cb(from, d.cfg.Rssi, slices.Clone(buf[:n]))
	}
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for _, c := range d.conns {
		c.Close()
	}
	d.conns = nil
	return nil
}

type bcastConn struct {
	c   net.PacketConn
	dst *net.UDPAddr
}

func (b *bcastConn) Send(payload []byte) error {
	_, err := b.c.WriteTo(payload, b.dst)
	return err
}

func (b *bcastConn) Close() error {
	return b.c.Close()
}

type uniConn struct {
	d    *Driver
	c    net.PacketConn
	port int
}

func (u *uniConn) SendTo(payload []byte, dst uint16) error {
	addr, ok := u.d.cfg.Nodes[dst]
	if !ok {
		return fmt.Errorf("udpradio: no address for node %d", dst)
	}
	_, err := u.c.WriteTo(payload, &net.UDPAddr{IP: addr.AsSlice(), Port: u.port})
	return err
}

func (u *uniConn) Close() error {
	return u.c.Close()
}
