package cmd

import (
	"github.com/spf13/cobra"

	"vpc-visualizer/internal/docker"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop and remove the Neo4j Docker container",
	Long: `Stop and remove the Neo4j Docker container started with 'vpc-visualizer start'.

Data is preserved in the neo4j-data directory.

Example:
  vpc-visualizer stop`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	return docker.StopContainer(cmd.Context())
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
