// Package memradio is an in-process radio medium for tests and the sim
// command. Links are directed: each direction carries its own RSSI,
// loss probability and delay, so asymmetric links can be modeled.
package memradio

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/encodeous/canopy/radio"
)

// Link is one direction of a radio link.
type Link struct {
	Rssi  int8
	Loss  float64
	Delay time.Duration
}

type linkKey struct {
	from, to uint16
}

// Network is the shared medium.
type Network struct {
	mu    sync.Mutex
	nodes map[uint16]*Node
	links map[linkKey]Link
}

func NewNetwork() *Network {
	return &Network{
		nodes: make(map[uint16]*Node),
		links: make(map[linkKey]Link),
	}
}

// Attach joins a node to the medium and returns its radio.
func (w *Network) Attach(id uint16) *Node {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := &Node{
		net:      w,
		id:       id,
		handlers: make(map[radio.Channel]radio.RecvFunc),
	}
	w.nodes[id] = n
	return n
}

// SetLink installs one direction of a link.
func (w *Network) SetLink(from, to uint16, l Link) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.links[linkKey{from, to}] = l
}

// SetBidi installs both directions of a link with the same parameters.
func (w *Network) SetBidi(a, b uint16, l Link) {
	w.SetLink(a, b, l)
	w.SetLink(b, a, l)
}

// DropLink removes both directions, silencing the pair entirely.
func (w *Network) DropLink(a, b uint16) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.links, linkKey{a, b})
	delete(w.links, linkKey{b, a})
}

// reachable returns the targets of all outgoing links of from, sorted
// for deterministic delivery order.
func (w *Network) reachable(from uint16) []uint16 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []uint16
	for k := range w.links {
		if k.from == from {
			if _, ok := w.nodes[k.to]; ok {
				out = append(out, k.to)
			}
		}
	}
	slices.Sort(out)
	return out
}

func (w *Network) transmit(ch radio.Channel, from, to uint16, payload []byte) {
	w.mu.Lock()
	link, ok := w.links[linkKey{from, to}]
	dst := w.nodes[to]
	w.mu.Unlock()
	if !ok || dst == nil {
		return // out of range
	}
	if link.Loss > 0 && rand.Float64() < link.Loss {
		return // dropped in the air
	}
	frame := slices.Clone(payload)
	if link.Delay > 0 {
		time.AfterFunc(link.Delay, func() {
			dst.deliver(ch, from, link.Rssi, frame)
		})
		return
	}
	dst.deliver(ch, from, link.Rssi, frame)
}

// Node implements radio.Radio over the in-process medium.
type Node struct {
	net      *Network
	id       uint16
	mu       sync.Mutex
	handlers map[radio.Channel]radio.RecvFunc
	closed   bool
}

func (n *Node) deliver(ch radio.Channel, from uint16, rssi int8, payload []byte) {
	n.mu.Lock()
	cb := n.handlers[ch]
	closed := n.closed
	n.mu.Unlock()
	if closed || cb == nil {
		return
	}
	cb(from, rssi, payload)
}

func (n *Node) open(ch radio.Channel, cb radio.RecvFunc) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return fmt.Errorf("memradio: node %d is closed", n.id)
	}
	if _, ok := n.handlers[ch]; ok {
		return fmt.Errorf("memradio: channel %d already open on node %d", ch, n.id)
	}
	n.handlers[ch] = cb
	return nil
}

func (n *Node) OpenBroadcast(ch radio.Channel, cb radio.RecvFunc) (radio.BroadcastConn, error) {
	if err := n.open(ch, cb); err != nil {
		return nil, err
	}
	return &conn{node: n, ch: ch}, nil
}

func (n *Node) OpenUnicast(ch radio.Channel, cb radio.RecvFunc) (radio.UnicastConn, error) {
	if err := n.open(ch, cb); err != nil {
		return nil, err
	}
	return &conn{node: n, ch: ch}, nil
}

func (n *Node) Close() error {
	n.mu.Lock()
	n.closed = true
	n.handlers = make(map[radio.Channel]radio.RecvFunc)
	n.mu.Unlock()
	return nil
}

type conn struct {
	node *Node
	ch   radio.Channel
}

func (c *conn) Send(payload []byte) error {
	for _, to := range c.node.net.reachable(c.node.id) {
		c.node.net.transmit(c.ch, c.node.id, to, payload)
	}
	return nil
}

func (c *conn) SendTo(payload []byte, dst uint16) error {
	c.node.net.transmit(c.ch, c.node.id, dst, payload)
	return nil
}

func (c *conn) Close() error {
	c.node.mu.Lock()
	delete(c.node.handlers, c.ch)
	c.node.mu.Unlock()
	return nil
}
