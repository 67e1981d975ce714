package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tick(base time.Time, s int) time.Time {
	return base.Add(time.Duration(s) * time.Second)
}

func TestUpsertPreservesCounters(t *testing.T) {
	now := time.Now()
	var tab NeighborTable

	n := tab.Upsert(4, -70, 2, now)
	assert.Equal(t, NodeId(4), n.Id)
	assert.Zero(t, n.Tx)

	tab.PrrBump(4, false)
	tab.PrrBump(4, true)

	n = tab.Upsert(4, -55, 3, tick(now, 10))
	assert.Equal(t, int8(-55), n.Rssi)
	assert.Equal(t, uint16(3), n.HopsVia)
	assert.Equal(t, uint16(1), n.Tx, "counters survive re-sighting")
	assert.Equal(t, uint16(1), n.RxAck)
	assert.Equal(t, tick(now, 10), n.SeenAt)
}

func TestUpsertSingleSlotPerId(t *testing.T) {
	now := time.Now()
	var tab NeighborTable
	for i := range 5 {
		tab.Upsert(9, -60, uint16(i), tick(now, i))
	}
	count := 0
	for i := range tab.Slots {
		if tab.Slots[i].Used && tab.Slots[i].Id == 9 {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestUpsertEvictsOldestWhenFull(t *testing.T) {
	now := time.Now()
	var tab NeighborTable
	for i := range NbrCap {
		tab.Upsert(NodeId(i+1), -60, 1, tick(now, i))
	}
	// id 1 holds the oldest seen_at; a newcomer takes its slot
	tab.Upsert(99, -40, 1, tick(now, NbrCap))
	assert.Equal(t, -1, tab.Find(1))
	assert.GreaterOrEqual(t, tab.Find(99), 0)

	// refresh makes id 2 recent, so the next eviction hits id 3
	tab.Touch(2, tick(now, NbrCap+1))
	tab.Upsert(100, -40, 1, tick(now, NbrCap+2))
	assert.GreaterOrEqual(t, tab.Find(2), 0)
	assert.Equal(t, -1, tab.Find(3))
}

func TestEvictionTieBreaksToLowestIndex(t *testing.T) {
	now := time.Now()
	var tab NeighborTable
	for i := range NbrCap {
		tab.Upsert(NodeId(i+1), -60, 1, now)
	}
	tab.Upsert(50, -40, 1, tick(now, 1))
	// all seen_at equal: slot 0 (id 1) goes first
	assert.Equal(t, -1, tab.Find(1))
	assert.Equal(t, 0, tab.Find(50))
}

func TestExpire(t *testing.T) {
	now := time.Now()
	var tab NeighborTable
	tab.Upsert(2, -60, 1, now)
	tab.Upsert(3, -60, 2, tick(now, 100))

	freed := tab.Expire(tick(now, 181), NbrTTL)
	require.Equal(t, []NodeId{2}, freed)
	assert.Equal(t, -1, tab.Find(2))

	// every remaining slot is fresh
	for i := range tab.Slots {
		n := &tab.Slots[i]
		if n.Used {
			assert.LessOrEqual(t, tick(now, 181).Sub(n.SeenAt), NbrTTL)
		}
	}
}

func TestPrrAccounting(t *testing.T) {
	now := time.Now()
	var tab NeighborTable
	tab.Upsert(7, -60, 1, now)

	// 4 transmissions, 3 acks
	for range 4 {
		tab.PrrBump(7, false)
	}
	for range 3 {
		tab.PrrBump(7, true)
	}
	n := tab.Get(7)
	require.NotNil(t, n)
	assert.Equal(t, uint16(4), n.Tx)
	assert.Equal(t, uint16(3), n.RxAck)
	assert.InDelta(t, 0.75, n.Prr, 1e-9)

	// one more transmission with no ack
	tab.PrrBump(7, false)
	assert.Equal(t, uint16(5), n.Tx)
	assert.Equal(t, uint16(3), n.RxAck)
	assert.InDelta(t, 0.60, n.Prr, 1e-9)

	assert.LessOrEqual(t, n.RxAck, n.Tx)
}

func TestPrrBumpUnknownIdIsNoop(t *testing.T) {
	var tab NeighborTable
	tab.PrrBump(42, true)
	for i := range tab.Slots {
		assert.False(t, tab.Slots[i].Used)
	}
}
