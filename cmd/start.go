package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vpc-visualizer/internal/config"
	"vpc-visualizer/internal/docker"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start Neo4j database in Docker",
	Long: `Start a Neo4j database container using Docker with the configuration
from the .vpc-visualizer.yaml file. The container will use the neo4j-data
directory as a volume for data persistence.

This command will:
  - Pull the Neo4j image if not already downloaded
  - Start a Neo4j container in the background
  - Use the credentials from the configuration file
  - Mount the neo4j-data directory as a volume

Example:
  vpc-visualizer start`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	return docker.StartContainer(cmd.Context(), docker.StartContainerOptions{
		Config: cfg,
	})
}

func init() {
	rootCmd.AddCommand(startCmd)
}
