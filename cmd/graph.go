package cmd

import (
	"github.com/spf13/cobra"

	"vpc-visualizer/internal/config"
	"vpc-visualizer/internal/runner"
)

var graphCmd = &cobra.Command{
	Use:   "graph [input_file]",
	Short: "Build the graph of the traffic allowed by security groups",
	Long: `graph reads security groups from a JSON or YAML export, or from EC2 when
no input is given, and builds the graph of the traffic their rules allow.
The graph is written as JSON, Cypher or DOT, and can optionally be pushed to
a Neo4j database.

Examples:
  # Build the graph of an export
  vpc-visualizer graph security_groups.json > graph.json

  # Fetch live security groups and render them with Graphviz
  vpc-visualizer graph --region=eu-west-1 --format=dot | dot -Tsvg > graph.svg

  # Output the graph as Cypher statements
  vpc-visualizer graph security_groups.yaml --format=cypher > graph.cypher

  # Also update a Neo4j database
  vpc-visualizer graph --update --neo4j-uri=bolt://localhost:7687 --neo4j-user=neo4j --neo4j-pass=secret`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndMerge(cmd, args)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	return runner.Run(cmd.Context(), cfg, runner.Options{Out: cmd.OutOrStdout()})
}

func init() {
	rootCmd.AddCommand(graphCmd)
	registerGraphFlags(graphCmd)
	graphCmd.Flags().String("format", "json", "Output format for the graph (json, cypher, dot)")
	graphCmd.Flags().StringP("output", "o", "", "Write the graph to a file instead of stdout")
	graphCmd.Flags().Bool("update", false, "Update a Neo4j database with the graph")
}

// registerGraphFlags adds the flags shared by the commands that build a graph.
func registerGraphFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "Path to a JSON or YAML security group export (default: fetch from EC2)")
	cmd.Flags().String("region", "", "AWS region to fetch security groups from")

	// Neo4j integration flags
	cmd.Flags().String("neo4j-uri", "bolt://localhost:7687", "URI for the Neo4j database")
	cmd.Flags().String("neo4j-user", "neo4j", "Username for the Neo4j database")
	cmd.Flags().String("neo4j-pass", "", "Password for the Neo4j database")
}
