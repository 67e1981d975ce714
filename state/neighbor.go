package state

import "time"

// Neighbor is one arena slot: a one-hop candidate next hop with its
// latest link observations and the ACK accounting for the PRR estimate.
type Neighbor struct {
	Id      NodeId
	Rssi    int8
	HopsVia uint16
	Tx      uint16
	RxAck   uint16
	Prr     float64
	SeenAt  time.Time
	Used    bool
}

// NeighborTable is a fixed arena. Freeing a slot clears Used; no
// compaction happens and no allocation occurs after construction.
type NeighborTable struct {
	Slots [NbrCap]Neighbor
}

// Find returns the index of the occupied slot holding id, or -1.
func (t *NeighborTable) Find(id NodeId) int {
	for i := range t.Slots {
		if t.Slots[i].Used && t.Slots[i].Id == id {
			return i
		}
	}
	return -1
}

// Get returns the occupied slot holding id, or nil.
func (t *NeighborTable) Get(id NodeId) *Neighbor {
	if i := t.Find(id); i >= 0 {
		return &t.Slots[i]
	}
	return nil
}

// Upsert records a sighting of id. An existing slot keeps its PRR
// counters and only refreshes rssi, the advertised hop distance and
// seen_at. A new neighbor takes a free slot, or evicts the slot with
// the oldest seen_at (lowest index on ties) when the arena is full.
func (t *NeighborTable) Upsert(id NodeId, rssi int8, hopsVia uint16, now time.Time) *Neighbor {
	if i := t.Find(id); i >= 0 {
		n := &t.Slots[i]
		n.Rssi = rssi
		n.HopsVia = hopsVia
		n.SeenAt = now
		return n
	}
	slot := -1
	for i := range t.Slots {
		if !t.Slots[i].Used {
			slot = i
			break
		}
	}
	if slot < 0 {
		slot = 0
		for i := 1; i < len(t.Slots); i++ {
			if t.Slots[i].SeenAt.Before(t.Slots[slot].SeenAt) {
				slot = i
			}
		}
	}
	t.Slots[slot] = Neighbor{
		Id:      id,
		Rssi:    rssi,
		HopsVia: hopsVia,
		SeenAt:  now,
		Used:    true,
	}
	return &t.Slots[slot]
}

// Touch refreshes seen_at for id. No-op if id is not in the table.
func (t *NeighborTable) Touch(id NodeId, now time.Time) {
	if i := t.Find(id); i >= 0 {
		t.Slots[i].SeenAt = now
		t.Slots[i].Used = true
	}
}

// Expire frees every slot silent for longer than ttl and returns the
// freed ids. The caller decides what the loss of each neighbor means.
func (t *NeighborTable) Expire(now time.Time, ttl time.Duration) []NodeId {
	var freed []NodeId
	for i := range t.Slots {
		n := &t.Slots[i]
		if n.Used && now.Sub(n.SeenAt) > ttl {
			freed = append(freed, n.Id)
			n.Used = false
		}
	}
	return freed
}

// PrrBump updates the ACK accounting for id. The attempt is charged at
// send time (gotAck false) and the success credited when the ACK
// arrives (gotAck true), so a lost ACK simply leaves RxAck behind Tx.
// No-op for an unknown id.
func (t *NeighborTable) PrrBump(id NodeId, gotAck bool) {
	i := t.Find(id)
	if i < 0 {
		return
	}
	n := &t.Slots[i]
	if gotAck {
		n.RxAck++
	} else {
		n.Tx++
	}
	if n.Tx > 0 {
		n.Prr = float64(n.RxAck) / float64(n.Tx)
	}
}
