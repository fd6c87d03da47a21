// Package main implements tpscore, the command-line entry point for the
// urban transport-performance pipeline: urban-centre extraction,
// population conditioning, OD batching against a routing engine, and
// accessibility aggregation.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/datasciencecampus/transport-network-performance/internal/config"
)

var (
	configFile string

	// cfg holds the configuration for the current run, populated by
	// rootCmd's PersistentPreRunE.
	cfg *config.Data

	log = logrus.StandardLogger()
)

var rootCmd = &cobra.Command{
	Use:   "tpscore",
	Short: "Compute urban transport-performance scores from population rasters and travel times.",
	Long: `tpscore extracts an urban centre from a population raster, conditions a
finer-resolution raster into per-cell and centroid tables, batches
origin/destination pairs for an external routing engine, and aggregates
the resulting travel-time matrix into a transport-performance score.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Read(configFile)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./tpscore.toml", "configuration file location")
	rootCmd.AddCommand(extractCmd, conditionCmd, batchCmd, scoreCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
