package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/encodeous/canopy/core"
	"github.com/encodeous/canopy/radio/memradio"
	"github.com/encodeous/canopy/state"
)

type simNode struct {
	Id     state.NodeId
	Policy state.Policy `yaml:",omitempty"`
}

type simLink struct {
	A, B    state.NodeId
	Rssi    int8    `yaml:",omitempty"`
	Loss    float64 `yaml:",omitempty"`
	DelayMs int     `yaml:"delay_ms,omitempty"`
}

type simCfg struct {
	Nodes []simNode
	Links []simLink
}

// simCmd runs a whole network in one process over the in-memory radio.
var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Simulate a canopy network in-process",
	Long: `Runs every node of a topology file in a single process, connected by an
in-memory radio with per-link RSSI, loss and delay. Console output is
prefixed with the node id.`,
	Run: func(cmd *cobra.Command, args []string) {
		topoPath, _ := cmd.Flags().GetString("topology")
		file, err := os.ReadFile(topoPath)
		if err != nil {
			panic(err)
		}
		var cfg simCfg
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			panic(err)
		}

		central := state.CentralCfg{}
		for _, n := range cfg.Nodes {
			central.Nodes = append(central.Nodes, state.NodeCfg{Id: n.Id})
		}
		if err := state.CentralConfigValidator(&central); err != nil {
			panic(err)
		}

		net := memradio.NewNetwork()
		for _, l := range cfg.Links {
			rssi := l.Rssi
			if rssi == 0 {
				rssi = state.DefaultRssi
			}
			net.SetBidi(uint16(l.A), uint16(l.B), memradio.Link{
				Rssi:  rssi,
				Loss:  l.Loss,
				Delay: time.Duration(l.DelayMs) * time.Millisecond,
			})
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		console := &lockedWriter{w: os.Stdout}
		var g errgroup.Group
		for _, n := range cfg.Nodes {
			local := state.LocalCfg{Id: n.Id, Policy: n.Policy}
			if err := state.NodeConfigValidator(&local); err != nil {
				panic(err)
			}
			aux := map[string]any{
				"radio":   net.Attach(uint16(n.Id)),
				"console": &prefixWriter{prefix: fmt.Sprintf("%-3d| ", n.Id), w: console},
			}
			g.Go(func() error {
				return core.Start(central, local, level, aux, nil)
			})
		}
		if err := g.Wait(); err != nil {
			panic(err)
		}
	},
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// prefixWriter tags console lines with the node they came from. The
// diagnostic paths write whole lines per call, so prefixing per write
// is enough.
type prefixWriter struct {
	prefix string
	w      io.Writer
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	line := make([]byte, 0, len(p.prefix)+len(b))
	line = append(line, p.prefix...)
	line = append(line, b...)
	if _, err := p.w.Write(line); err != nil {
		return 0, err
	}
	return len(b), nil
}

func init() {
	rootCmd.AddCommand(simCmd)

	simCmd.Flags().StringP("topology", "t", "sim.yaml", "Topology file")
	simCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}
