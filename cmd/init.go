package cmd

import (
	"crypto/rand"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vpc-visualizer/internal/config"
	"vpc-visualizer/internal/docker"
	"vpc-visualizer/internal/git"
	"vpc-visualizer/internal/logging"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize vpc-visualizer configuration",
	Long: `Initialize vpc-visualizer configuration and settings.

Creates a .vpc-visualizer.yaml configuration file in the current directory
with default values and a randomly generated Neo4j password. Also creates the
neo4j-data directory used by 'vpc-visualizer start'.

The configuration file will be created with the following default values:
  - neo4j.uri: bolt://localhost:7687
  - neo4j.user: neo4j
  - neo4j.password: (randomly generated)
  - neo4j.docker_image: neo4j:community
  - server.addr: :8080

Example:
  vpc-visualizer init`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	logger := logging.FromContext(cmd.Context())
	out := cmd.OutOrStdout()
	configPath := config.ConfigFileName + "." + config.ConfigFileType

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	cfg := config.DefaultConfig()

	password, err := generateRandomPassword(16)
	if err != nil {
		return fmt.Errorf("failed to generate random password: %w", err)
	}
	cfg.Neo4j.Password = password

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	if err := os.MkdirAll(docker.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", docker.DataDir, err)
	}

	fmt.Fprintf(out, "✓ Created configuration file: %s\n\n", configPath)
	fmt.Fprintln(out, "Default configuration:")
	fmt.Fprintf(out, "  neo4j.uri: %s\n", cfg.Neo4j.URI)
	fmt.Fprintf(out, "  neo4j.user: %s\n", cfg.Neo4j.User)
	fmt.Fprintf(out, "  neo4j.password: %s\n", cfg.Neo4j.Password)
	fmt.Fprintf(out, "  neo4j.docker_image: %s\n", cfg.Neo4j.DockerImage)
	fmt.Fprintf(out, "  server.addr: %s\n\n", cfg.Server.Addr)
	fmt.Fprintf(out, "✓ Created data directory: %s\n", docker.DataDir)

	entries := []string{configPath, docker.DataDir + "/"}
	if !git.IsRepository("") {
		fmt.Fprintln(out, "\nNote: Not inside a Git repository. If you initialize one later,")
		fmt.Fprintf(out, "remember to add the following to your .gitignore: %s\n", strings.Join(entries, ", "))
		return nil
	}

	added, err := git.EnsureEntries(".gitignore", entries)
	if err != nil {
		// The configuration is usable without the ignore entries.
		logger.Warn("failed to update .gitignore", "error", err)
		fmt.Fprintf(out, "Please manually add %s to your .gitignore file.\n", strings.Join(entries, " and "))
		return nil
	}
	if len(added) > 0 {
		fmt.Fprintf(out, "\n✓ Added the following entries to .gitignore: %s\n", strings.Join(added, ", "))
	} else {
		fmt.Fprintln(out, "\n✓ .gitignore already contains the necessary entries.")
	}
	fmt.Fprintln(out, "This prevents committing sensitive credentials and local database files.")
	return nil
}

// generateRandomPassword generates a random alphanumeric password of the specified length.
func generateRandomPassword(length int) (string, error) {
	// Alphanumeric only, NEO4J_AUTH is split on '/'.
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	for i := range bytes {
		bytes[i] = charset[int(bytes[i])%len(charset)]
	}
	return string(bytes), nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
