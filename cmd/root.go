package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/encodeous/canopy/state"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Canopy Sensor Collection CLI",
	Long: `Canopy is a convergecast data-collection protocol for wireless sensor networks.
Nodes periodically sample a local sensor and deliver the reading hop by hop
toward a single sink along a beacon-maintained tree.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&state.NodeConfigPath, "node-config", "n", state.NodeConfigPath, "node-specific config")
	rootCmd.PersistentFlags().StringVarP(&state.CentralConfigPath, "central-config", "c", state.CentralConfigPath, "network-global config")
}
