package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"vpc-visualizer/internal/builder"
	"vpc-visualizer/internal/config"
	"vpc-visualizer/internal/fetcher"
	"vpc-visualizer/internal/formatter"
	"vpc-visualizer/internal/graph"
	"vpc-visualizer/internal/logging"
	"vpc-visualizer/internal/metrics"
	"vpc-visualizer/internal/neo4j"
	"vpc-visualizer/internal/parser"
)

// Source yields a batch of security groups.
type Source interface {
	SecurityGroups(ctx context.Context) ([]parser.SecurityGroup, error)
}

// Options carries the dependencies of a run. Zero values select the
// defaults: groups come from cfg.Input or a live fetch, output goes to
// stdout and metrics go to the default registry.
type Options struct {
	Source  Source
	Out     io.Writer
	Metrics *metrics.Registry
}

func (o Options) withDefaults() Options {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Metrics == nil {
		o.Metrics = metrics.DefaultRegistry()
	}
	return o
}

// Run executes the main logic of the graph command: load the batch, build
// the graph, render it and optionally push it to Neo4j.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	opts = opts.withDefaults()
	logger := logging.FromContext(ctx)

	// Validate Neo4j configuration early
	if cfg.Update {
		if err := validateNeo4jConfig(&cfg.Neo4j); err != nil {
			return err
		}
	}

	g, err := loadAndBuild(ctx, cfg, opts)
	if err != nil {
		return err
	}

	output, err := formatter.Render(g, cfg.Format)
	if err != nil {
		return fmt.Errorf("failed to format graph: %w", err)
	}

	if cfg.Output != "" {
		if err := os.WriteFile(cfg.Output, []byte(output+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		logger.Info("Wrote graph", "path", cfg.Output, "format", cfg.Format)
	} else if _, err := fmt.Fprintln(opts.Out, output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if cfg.Update {
		return updateNeo4jDatabase(ctx, g, &cfg.Neo4j)
	}
	return nil
}

// Update builds the graph and pushes it to Neo4j without rendering it.
func Update(ctx context.Context, cfg *config.Config, opts Options) error {
	opts = opts.withDefaults()

	if err := validateNeo4jConfig(&cfg.Neo4j); err != nil {
		return err
	}

	g, err := loadAndBuild(ctx, cfg, opts)
	if err != nil {
		return err
	}

	return updateNeo4jDatabase(ctx, g, &cfg.Neo4j)
}

func loadAndBuild(ctx context.Context, cfg *config.Config, opts Options) (*graph.Graph, error) {
	logger := logging.FromContext(ctx)

	groups, err := LoadGroups(ctx, cfg, opts.Source)
	if err != nil {
		return nil, err
	}

	logger.Info("Building graph...", "security_groups", len(groups))
	return Build(groups, opts.Metrics)
}

// LoadGroups reads the batch from src when given, otherwise from cfg.Input,
// otherwise from EC2 using cfg.AWS.
func LoadGroups(ctx context.Context, cfg *config.Config, src Source) ([]parser.SecurityGroup, error) {
	logger := logging.FromContext(ctx)

	if src == nil && cfg.Input != "" {
		logger.Info("Reading security groups...", "input", cfg.Input)
		groups, err := parser.ParseFile(cfg.Input)
		if err != nil {
			return nil, fmt.Errorf("failed to parse input: %w", err)
		}
		return groups, nil
	}

	if src == nil {
		client, err := fetcher.New(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		logger.Info("Fetching security groups...", "region", client.Region(), "accounts", len(client.AccountIDs()))
		src = client
	}

	groups, err := src.SecurityGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch security groups: %w", err)
	}
	return groups, nil
}

// Build runs the graph builder and records the outcome in reg.
func Build(groups []parser.SecurityGroup, reg *metrics.Registry) (*graph.Graph, error) {
	start := time.Now()
	g, err := builder.Build(groups)
	if err != nil {
		reg.RecordGraphBuild(err, 0, 0, time.Since(start))
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	reg.RecordGraphBuild(nil, len(g.Nodes), len(g.Edges), time.Since(start))
	return g, nil
}

func updateNeo4jDatabase(ctx context.Context, g *graph.Graph, neo4jCfg *config.Neo4jConfig) error {
	logger := logging.FromContext(ctx)
	logger.Infof("Connecting to Neo4j at %s...", neo4jCfg.URI)

	client, err := neo4j.NewClient(neo4jCfg.URI, neo4jCfg.User, neo4jCfg.Password)
	if err != nil {
		return fmt.Errorf("failed to create neo4j client: %w", err)
	}
	defer client.Close(ctx)

	if err := client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	if err := client.EnsureSchema(ctx); err != nil {
		return err
	}

	progress := logging.NewProgress(logger)
	logger.Info("Updating Neo4j database...", "nodes", len(g.Nodes), "edges", len(g.Edges))
	if err := client.UpdateGraph(ctx, g); err != nil {
		return fmt.Errorf("failed to update neo4j graph: %w", err)
	}

	progress.Done("Successfully updated Neo4j database")
	return nil
}

func validateNeo4jConfig(cfg *config.Neo4jConfig) error {
	if cfg.URI == "" || cfg.User == "" || cfg.Password == "" {
		return fmt.Errorf("neo4j-uri, neo4j-user, and neo4j-pass are required when updating the database. Please configure them in .vpc-visualizer.yaml or pass them as flags")
	}
	return nil
}
