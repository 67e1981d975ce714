package cmd

import (
	"fmt"
	"net/netip"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/encodeous/canopy/state"
)

// initCmd writes starter configuration files for a three-node line.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write starter configuration files",
	Long: `Writes a starter central.yaml and node.yaml for a small network, plus a
sim.yaml topology for the sim command. Edit the addresses and ids to
match your deployment.`,
	Run: func(cmd *cobra.Command, args []string) {
		central := state.CentralCfg{
			Nodes: []state.NodeCfg{
				{Id: state.SinkId, Address: netip.MustParseAddr("10.10.0.1")},
				{Id: 2, Address: netip.MustParseAddr("10.10.0.2")},
				{Id: 3, Address: netip.MustParseAddr("10.10.0.3")},
			},
			Group:    netip.MustParseAddr("239.93.0.1"),
			PortBase: state.DefaultPortBase,
			Rssi:     state.DefaultRssi,
		}
		local := state.LocalCfg{
			Id:     2,
			Policy: state.PickPrr,
		}
		sim := simCfg{
			Nodes: []simNode{{Id: state.SinkId}, {Id: 2}, {Id: 3}},
			Links: []simLink{
				{A: state.SinkId, B: 2, Rssi: -55},
				{A: 2, B: 3, Rssi: -70, Loss: 0.1},
			},
		}

		writeConfig(state.CentralConfigPath, central)
		writeConfig(state.NodeConfigPath, local)
		writeConfig("sim.yaml", sim)
	},
}

func writeConfig(path string, cfg any) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("%s already exists, not overwriting\n", path)
		return
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		panic(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		panic(err)
	}
	fmt.Printf("wrote %s\n", path)
}

func init() {
	rootCmd.AddCommand(initCmd)
}
