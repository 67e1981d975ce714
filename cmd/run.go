package cmd

import (
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/encodeous/canopy/core"
	"github.com/encodeous/canopy/state"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a canopy node",
	Long:  `This will run one canopy node on the current host, over the UDP radio driver.`,
	Run: func(cmd *cobra.Command, args []string) {
		var centralCfg state.CentralCfg
		file, err := os.ReadFile(state.CentralConfigPath)
		if err != nil {
			panic(err)
		}
		err = yaml.Unmarshal(file, &centralCfg)
		if err != nil {
			panic(err)
		}

		var nodeCfg state.LocalCfg
		file, err = os.ReadFile(state.NodeConfigPath)
		if err != nil {
			panic(err)
		}
		err = yaml.Unmarshal(file, &nodeCfg)
		if err != nil {
			panic(err)
		}

		err = state.CentralConfigValidator(&centralCfg)
		if err != nil {
			panic(err)
		}
		err = state.NodeConfigValidator(&nodeCfg)
		if err != nil {
			panic(err)
		}
		if !centralCfg.IsNode(nodeCfg.Id) {
			panic("local node id is not in the central node list")
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		err = core.Start(centralCfg, nodeCfg, level, nil, nil)
		if err != nil {
			panic(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().BoolVarP(&state.DBG_log_beacon, "lbeacon", "b", false, "Log beacon traffic at debug level (shown with -v)")
	runCmd.Flags().BoolVarP(&state.DBG_log_data, "ldata", "d", false, "Log data traffic at debug level (shown with -v)")
	runCmd.Flags().BoolVarP(&state.DBG_log_ack, "lack", "a", false, "Log ack traffic at debug level (shown with -v)")
	runCmd.Flags().BoolVarP(&state.DBG_debug, "debug", "D", false, "Serve expvar metrics on :6060")
}
