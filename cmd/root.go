package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"vpc-visualizer/internal/config"
	"vpc-visualizer/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "vpc-visualizer [command]",
	Short: "Visualize the traffic allowed by AWS security groups",
	Long: `vpc-visualizer reads AWS security groups, from EC2 or from a JSON/YAML
export, and builds the graph of the traffic their rules allow between groups,
CIDR blocks and prefix lists. The graph can be emitted as JSON, Cypher or DOT,
pushed to a Neo4j database, or served over HTTP.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogger,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

// setupLogger installs the logger on the command context. --log-level wins
// over --verbose, which wins over log_level from the configuration.
func setupLogger(cmd *cobra.Command, args []string) error {
	level, err := resolveLogLevel(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, level)
	log.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.WithLogger(ctx, logger))
	return nil
}

func resolveLogLevel(cmd *cobra.Command) (log.Level, error) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		name, _ := flags.GetString("log-level")
		return logging.ParseLevel(name)
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		return log.DebugLevel, nil
	}

	// A broken configuration file is reported by the command itself.
	cfg, err := config.Load()
	if err != nil {
		return log.InfoLevel, nil
	}
	return logging.ParseLevel(cfg.LogLevel)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
