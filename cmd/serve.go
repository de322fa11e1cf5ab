package cmd

import (
	"github.com/spf13/cobra"

	"vpc-visualizer/internal/cache"
	"vpc-visualizer/internal/config"
	"vpc-visualizer/internal/fetcher"
	"vpc-visualizer/internal/logging"
	"vpc-visualizer/internal/metrics"
	"vpc-visualizer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve security group graphs over HTTP",
	Long: `serve runs the HTTP API:

  GET  /api/v1/security-groups  graph of the live security groups
  POST /api/v1/graph            graph of the security groups in the body
  GET  /healthz                 liveness
  GET  /metrics                 Prometheus metrics

Live graphs are cached in Redis when redis.url is configured. Requests to
/api/v1 require "Authorization: Bearer <token>" when server.api_token is set.

Example:
  vpc-visualizer serve --addr=:8080 --region=eu-west-1 --redis-url=redis://localhost:6379/0`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	cfg, err := config.LoadAndMerge(cmd, args)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	source, err := fetcher.New(ctx, cfg.AWS)
	if err != nil {
		return err
	}
	logger.Info("Fetching live security groups", "region", source.Region(), "accounts", len(source.AccountIDs()))

	var c cache.Cache = cache.NewNullCache()
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{URL: cfg.Redis.URL})
		if err != nil {
			return err
		}
		logger.Info("Caching graphs in Redis", "ttl", cfg.Server.CacheTTL)
		c = rc
	}
	defer c.Close()

	srv := server.New(server.Options{
		Source:   source,
		Cache:    c,
		Metrics:  metrics.DefaultRegistry(),
		Logger:   logger,
		APIToken: cfg.Server.APIToken,
		CacheTTL: cfg.Server.CacheTTL,
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().String("region", "", "AWS region to fetch security groups from")
	serveCmd.Flags().String("redis-url", "", "Redis URL for the graph cache (default: no cache)")
}
