package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vpc-visualizer/internal/config"
	"vpc-visualizer/internal/fetcher"
	"vpc-visualizer/internal/logging"
	"vpc-visualizer/internal/neo4j"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate vpc-visualizer configuration and connections",
	Long:  `Validate vpc-visualizer configuration and verify connections.`,
}

var checkDatabaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Check Neo4j database connectivity",
	Long: `Verify that vpc-visualizer can connect to the Neo4j database using
the credentials from the configuration file (.vpc-visualizer.yaml).

This command will:
  1. Load the configuration from .vpc-visualizer.yaml
  2. Attempt to connect to the Neo4j database
  3. Report how many endpoints and relationships are stored

Example:
  vpc-visualizer check database`,
	Args: cobra.NoArgs,
	RunE: runCheckDatabase,
}

var checkAWSCmd = &cobra.Command{
	Use:   "aws",
	Short: "Check AWS credentials and security group access",
	Long: `Verify that vpc-visualizer can read security groups with the AWS
credentials of the environment and the accounts listed in .vpc-visualizer.yaml.

Example:
  vpc-visualizer check aws --region=eu-west-1`,
	Args: cobra.NoArgs,
	RunE: runCheckAWS,
}

func loadCheckedConfig(cmd *cobra.Command) (*config.Config, error) {
	logger := logging.FromContext(cmd.Context())
	logger.Info("Loading configuration...")

	cfg, err := config.LoadAndMerge(cmd, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !config.Exists() {
		logger.Warn("No configuration file found, using default values. Run 'vpc-visualizer init' to create one.")
	}
	return cfg, nil
}

func runCheckDatabase(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)
	out := cmd.OutOrStdout()

	cfg, err := loadCheckedConfig(cmd)
	if err != nil {
		return err
	}

	// Display connection info (without password)
	fmt.Fprintln(out, "Neo4j Connection Settings:")
	fmt.Fprintf(out, "  URI:  %s\n", cfg.Neo4j.URI)
	fmt.Fprintf(out, "  User: %s\n\n", cfg.Neo4j.User)

	if cfg.Neo4j.Password == "" {
		return fmt.Errorf("neo4j password is not set in configuration file")
	}

	logger.Infof("Connecting to Neo4j at %s...", cfg.Neo4j.URI)
	client, err := neo4j.NewClient(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password)
	if err != nil {
		return fmt.Errorf("failed to create neo4j client: %w", err)
	}
	defer client.Close(ctx)

	if err := client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	nodes, edges, err := client.Counts(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "✓ Successfully connected to Neo4j database!")
	fmt.Fprintf(out, "  Endpoints: %d\n", nodes)
	fmt.Fprintf(out, "  Allowed flows: %d\n", edges)
	return nil
}

func runCheckAWS(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)
	out := cmd.OutOrStdout()

	cfg, err := loadCheckedConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	client, err := fetcher.New(ctx, cfg.AWS)
	if err != nil {
		return err
	}

	logger.Info("Verifying AWS credentials...")
	arn, err := client.CallerIdentity(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Authenticated as %s\n", arn)

	logger.Info("Describing security groups...", "region", client.Region(), "accounts", len(client.AccountIDs()))
	groups, err := client.SecurityGroups(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Read %d security groups in %s\n", len(groups), client.Region())
	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.AddCommand(checkDatabaseCmd)
	checkCmd.AddCommand(checkAWSCmd)
	checkAWSCmd.Flags().String("region", "", "AWS region to check")
}
