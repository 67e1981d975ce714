package core

import (
	"fmt"
	"strings"

	"github.com/encodeous/canopy/state"
)

// Stats periodically prints the node's view to the console: the hop
// histogram on the sink, the neighbor table elsewhere.
type Stats struct {
	io *nodeIO
}

func (st *Stats) Init(s *state.State) error {
	st.io = Get[*Tree](s).io
	s.Env.RepeatTaskAfter(st.print, state.PrintInterval, state.PrintInterval)
	return nil
}

func (st *Stats) Cleanup(s *state.State) error {
	return nil
}

func (st *Stats) print(s *state.State) error {
	cs := s.Collect
	if cs.IsSink() {
		var b strings.Builder
		b.WriteString("[hops] ")
		for _, c := range cs.HopHist {
			fmt.Fprintf(&b, "%d ", c)
		}
		fmt.Fprintln(s.Console, strings.TrimRight(b.String(), " "))
		if st.io.active != nil {
			st.io.active.DeleteExpired()
			fmt.Fprintf(s.Console, "[sink] active sources=%d\n", st.io.active.Len())
		}
		return nil
	}

	fmt.Fprintf(s.Console, "[tbl] node=%d parent=%d policy=%s\n", cs.Id, cs.NextHop, cs.Policy)
	fmt.Fprintln(s.Console, " id  hop rssi tx ack prr%")
	for i := range cs.Nbrs.Slots {
		n := &cs.Nbrs.Slots[i]
		if !n.Used || n.HopsVia == state.HopsUnknown {
			continue
		}
		fmt.Fprintf(s.Console, " %-3d %-3d %-4d %-3d %-3d %3d\n",
			n.Id, n.HopsVia, n.Rssi, n.Tx, n.RxAck, int(n.Prr*100))
	}
	return nil
}
