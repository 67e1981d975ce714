package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/encodeous/canopy/state"
	"github.com/encodeous/canopy/wire"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// CollectHarness records the effects of the pure protocol functions so
// tests can assert on them without a radio.
type CollectHarness struct {
	actions []HarnessEvent
}

func (h *CollectHarness) SendBeacon(b wire.Beacon) {
	h.actions = append(h.actions, MakeEvent("SEND_BEACON", b))
}

func (h *CollectHarness) SendData(d wire.Data, nh state.NodeId) {
	h.actions = append(h.actions, MakeEvent("SEND_DATA", d, nh))
}

func (h *CollectHarness) SendAck(a wire.Ack, to state.NodeId) {
	h.actions = append(h.actions, MakeEvent("SEND_ACK", a, to))
}

func (h *CollectHarness) Deliver(d wire.Data) {
	h.actions = append(h.actions, MakeEvent("DELIVER", d))
}

func (h *CollectHarness) ParentChanged(id state.NodeId, slot *state.Neighbor) {
	h.actions = append(h.actions, MakeEvent("PARENT_CHANGED", id))
}

func (h *CollectHarness) ParentLost(id state.NodeId) {
	h.actions = append(h.actions, MakeEvent("PARENT_LOST", id))
}

func (h *CollectHarness) Log(event CollectEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetActions drains the recorded actions, dropping LOG noise.
func (h *CollectHarness) GetActions() HarnessEvents {
	x := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message != "LOG" {
			x = append(x, action)
		}
	}
	h.actions = make([]HarnessEvent, 0)
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg {
			if len(event.Args) >= len(args) {
				match := true
				for i, arg := range args {
					if !cmp.Equal(event.Args[i], arg) {
						match = false
						break
					}
				}
				if match {
					return true
				}
			}
		}
	}
	return false
}

func (e HarnessEvents) Count(msg string) int {
	n := 0
	for _, event := range e {
		if event.Message == msg {
			n++
		}
	}
	return n
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

func MakeCollectState(id state.NodeId, policy state.Policy) *state.CollectState {
	return &state.CollectState{
		Id:     id,
		Policy: policy,
	}
}

// seedNeighbor plants a fully specified slot for selection tests.
func seedNeighbor(cs *state.CollectState, n state.Neighbor, now time.Time) {
	slot := cs.Nbrs.Upsert(n.Id, n.Rssi, n.HopsVia, now)
	slot.Tx = n.Tx
	slot.RxAck = n.RxAck
	if n.Tx > 0 {
		slot.Prr = float64(n.RxAck) / float64(n.Tx)
	}
}
