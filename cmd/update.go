package cmd

import (
	"github.com/spf13/cobra"

	"vpc-visualizer/internal/config"
	"vpc-visualizer/internal/runner"
)

var updateCmd = &cobra.Command{
	Use:   "update [input_file]",
	Short: "Update a Neo4j database with the security group graph",
	Long: `update builds the graph of the traffic allowed by security groups and
pushes it to a Neo4j database.

Security groups, CIDR blocks and prefix lists are stored as :Endpoint nodes
and the allowed traffic as [:ALLOWS] relationships, so the graph can be
queried and explored in the Neo4j browser. Endpoints that disappeared since
the previous update are removed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndMerge(cmd, args)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	return runner.Update(cmd.Context(), cfg, runner.Options{})
}

func init() {
	rootCmd.AddCommand(updateCmd)
	registerGraphFlags(updateCmd)
}
