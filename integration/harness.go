package integration

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/encodeous/canopy/core"
	"github.com/encodeous/canopy/radio/memradio"
	"github.com/encodeous/canopy/sensor"
	"github.com/encodeous/canopy/state"
)

// SyncBuffer is a console capture safe to read while the node writes.
type SyncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *SyncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *SyncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func (s *SyncBuffer) Contains(substr string) bool {
	return strings.Contains(s.String(), substr)
}

// CompressTimers shrinks the protocol periods so scenarios converge in
// test time. Restored on cleanup.
func CompressTimers(t *testing.T) {
	t.Helper()
	saved := []*time.Duration{
		&state.StartupWait, &state.BeaconInterval, &state.DataInterval,
		&state.ReselectInterval, &state.PrintInterval, &state.NbrTTL,
	}
	old := make([]time.Duration, len(saved))
	for i, p := range saved {
		old[i] = *p
	}
	t.Cleanup(func() {
		for i, p := range saved {
			*p = old[i]
		}
	})

	state.StartupWait = 50 * time.Millisecond
	state.BeaconInterval = 100 * time.Millisecond
	state.DataInterval = 250 * time.Millisecond
	state.ReselectInterval = 60 * time.Millisecond
	state.PrintInterval = 300 * time.Millisecond
	state.NbrTTL = 10 * time.Second
}

type TestNode struct {
	Id      state.NodeId
	Console *SyncBuffer
	State   *state.State

	done chan error
}

// StartNode brings up one node over the in-memory radio and waits for
// its main loop to run.
func StartNode(t *testing.T, net *memradio.Network, central state.CentralCfg, id state.NodeId, policy state.Policy) *TestNode {
	t.Helper()
	local := state.LocalCfg{Id: id, Policy: policy}
	require.NoError(t, state.NodeConfigValidator(&local))

	n := &TestNode{
		Id:      id,
		Console: &SyncBuffer{},
		done:    make(chan error, 1),
	}
	aux := map[string]any{
		"radio":   net.Attach(uint16(id)),
		"console": n.Console,
		"sensor":  &sensor.Static{Value: 6000},
	}
	go func() {
		n.done <- core.Start(central, local, slog.LevelError, aux, &n.State)
	}()

	require.Eventually(t, func() bool {
		return n.State != nil && n.State.Started.Load()
	}, 5*time.Second, time.Millisecond, "node %d did not start", id)

	t.Cleanup(func() {
		n.State.Cancel(errors.New("test over"))
		select {
		case <-n.done:
		case <-time.After(5 * time.Second):
			t.Errorf("node %d did not stop", id)
		}
	})
	return n
}

// Read runs fun on the node's executor and returns its result, so tests
// observe shared state without racing the protocol.
func Read[T any](t *testing.T, n *TestNode, fun func(cs *state.CollectState) T) T {
	t.Helper()
	res, err := n.State.DispatchWait(func(s *state.State) (any, error) {
		return fun(s.Collect), nil
	})
	require.NoError(t, err)
	return res.(T)
}

func (n *TestNode) NextHop(t *testing.T) state.NodeId {
	return Read(t, n, func(cs *state.CollectState) state.NodeId {
		return cs.NextHop
	})
}

func (n *TestNode) HopsVia(t *testing.T, id state.NodeId) uint16 {
	return Read(t, n, func(cs *state.CollectState) uint16 {
		if nb := cs.Nbrs.Get(id); nb != nil {
			return nb.HopsVia
		}
		return state.HopsUnknown
	})
}

func (n *TestNode) HistBucket(t *testing.T, hops int) uint32 {
	return Read(t, n, func(cs *state.CollectState) uint32 {
		return cs.HopHist[hops]
	})
}

func centralFor(ids ...state.NodeId) state.CentralCfg {
	cfg := state.CentralCfg{}
	for _, id := range ids {
		cfg.Nodes = append(cfg.Nodes, state.NodeCfg{Id: id})
	}
	return cfg
}
