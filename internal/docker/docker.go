// Package docker runs the local Neo4j container used by the update command.
package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"

	"vpc-visualizer/internal/config"
	"vpc-visualizer/internal/logging"
)

const (
	// ContainerName is the name of the managed Neo4j container.
	ContainerName = "vpc-visualizer-neo4j"
	// DataDir is the host directory mounted at /data.
	DataDir = "neo4j-data"

	defaultImage = "neo4j:community"
	stopTimeout  = 10
)

var publishedPorts = []string{"7474", "7687"}

// StartContainerOptions configures StartContainer.
type StartContainerOptions struct {
	Config *config.Config
	// DataDir overrides the host data directory. Relative paths are
	// resolved against the working directory.
	DataDir string
}

func newClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return cli, nil
}

// StartContainer starts the Neo4j container, creating it first when it does
// not exist. The image is pulled when it is not present locally.
func StartContainer(ctx context.Context, opts StartContainerOptions) error {
	logger := logging.FromContext(ctx)
	if opts.Config == nil {
		return fmt.Errorf("docker: configuration is required")
	}
	if opts.Config.Neo4j.Password == "" {
		return fmt.Errorf("neo4j password is not set. Run 'vpc-visualizer init' first")
	}

	cli, err := newClient()
	if err != nil {
		return err
	}
	defer cli.Close()

	existing, err := findContainer(ctx, cli)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.State == "running" {
			logger.Info("Neo4j container is already running", "name", ContainerName)
			return nil
		}
		logger.Info("Starting existing Neo4j container...", "name", ContainerName)
		if err := cli.ContainerStart(ctx, existing.ID, container.StartOptions{}); err != nil {
			return fmt.Errorf("failed to start container: %w", err)
		}
		logger.Info("Neo4j container started", "bolt", "bolt://localhost:7687", "browser", "http://localhost:7474")
		return nil
	}

	dataDir, err := prepareDataDir(opts.DataDir)
	if err != nil {
		return err
	}

	imageRef := imageName(opts.Config)
	if err := ensureImage(ctx, cli, imageRef); err != nil {
		return err
	}

	cfg, hostCfg, err := containerConfig(opts.Config, dataDir)
	if err != nil {
		return err
	}

	logger.Info("Creating Neo4j container...", "name", ContainerName, "image", imageRef)
	resp, err := cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, ContainerName)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	for _, w := range resp.Warnings {
		logger.Warn(w)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}

	logger.Info("Neo4j container started", "bolt", "bolt://localhost:7687", "browser", "http://localhost:7474", "data", dataDir)
	return nil
}

// StopContainer stops and removes the Neo4j container. A missing container
// is not an error.
func StopContainer(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	cli, err := newClient()
	if err != nil {
		return err
	}
	defer cli.Close()

	existing, err := findContainer(ctx, cli)
	if err != nil {
		return err
	}
	if existing == nil {
		logger.Info("No Neo4j container found", "name", ContainerName)
		return nil
	}

	if existing.State == "running" {
		logger.Info("Stopping Neo4j container...", "name", ContainerName)
		timeout := stopTimeout
		if err := cli.ContainerStop(ctx, existing.ID, container.StopOptions{Timeout: &timeout}); err != nil {
			return fmt.Errorf("failed to stop container: %w", err)
		}
	}

	if err := cli.ContainerRemove(ctx, existing.ID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	logger.Info("Neo4j container removed", "name", ContainerName)
	return nil
}

func findContainer(ctx context.Context, cli *client.Client) (*container.Summary, error) {
	list, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", ContainerName)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return matchContainer(list), nil
}

// matchContainer picks the container named exactly ContainerName. The name
// filter of the daemon also matches substrings.
func matchContainer(list []container.Summary) *container.Summary {
	for i := range list {
		if slices.Contains(list[i].Names, "/"+ContainerName) {
			return &list[i]
		}
	}
	return nil
}

func ensureImage(ctx context.Context, cli *client.Client, ref string) error {
	logger := logging.FromContext(ctx)

	if _, err := cli.ImageInspect(ctx, ref); err == nil {
		return nil
	} else if !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to inspect image %s: %w", ref, err)
	}

	progress := logging.NewProgress(logger)
	logger.Info("Pulling image...", "image", ref)
	rc, err := cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer rc.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	progress.Done("Pulled " + ref)
	return nil
}

func imageName(cfg *config.Config) string {
	if cfg.Neo4j.DockerImage == "" {
		return defaultImage
	}
	return cfg.Neo4j.DockerImage
}

func prepareDataDir(dir string) (string, error) {
	if dir == "" {
		dir = DataDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return abs, nil
}

// containerConfig builds the create request for the Neo4j container.
func containerConfig(cfg *config.Config, dataDir string) (*container.Config, *container.HostConfig, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range publishedPorts {
		port, err := nat.NewPort("tcp", p)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid port %s: %w", p, err)
		}
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: p}}
	}

	containerCfg := &container.Config{
		Image:        imageName(cfg),
		Env:          []string{fmt.Sprintf("NEO4J_AUTH=%s/%s", cfg.Neo4j.User, cfg.Neo4j.Password)},
		ExposedPorts: exposed,
		Labels:       map[string]string{"app": "vpc-visualizer"},
	}
	hostCfg := &container.HostConfig{
		PortBindings: bindings,
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: dataDir,
			Target: "/data",
		}},
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}
	return containerCfg, hostCfg, nil
}
