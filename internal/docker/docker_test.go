package docker

import (
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"

	"vpc-visualizer/internal/config"
)

func TestContainerConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Neo4j.Password = "secret"

	containerCfg, hostCfg, err := containerConfig(cfg, "/srv/neo4j-data")
	if err != nil {
		t.Fatalf("containerConfig() returned an error: %v", err)
	}

	if containerCfg.Image != "neo4j:community" {
		t.Errorf("expected image neo4j:community, got %s", containerCfg.Image)
	}
	if len(containerCfg.Env) != 1 || containerCfg.Env[0] != "NEO4J_AUTH=neo4j/secret" {
		t.Errorf("unexpected env: %v", containerCfg.Env)
	}

	for _, p := range []nat.Port{"7474/tcp", "7687/tcp"} {
		if _, ok := containerCfg.ExposedPorts[p]; !ok {
			t.Errorf("port %s is not exposed", p)
		}
		bindings := hostCfg.PortBindings[p]
		if len(bindings) != 1 || bindings[0].HostPort != p.Port() {
			t.Errorf("unexpected bindings for %s: %v", p, bindings)
		}
	}

	if len(hostCfg.Mounts) != 1 {
		t.Fatalf("expected 1 mount, got %d", len(hostCfg.Mounts))
	}
	m := hostCfg.Mounts[0]
	if m.Type != mount.TypeBind || m.Source != "/srv/neo4j-data" || m.Target != "/data" {
		t.Errorf("unexpected mount: %+v", m)
	}
}

func TestContainerConfigCustomImage(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Neo4j.DockerImage = "neo4j:5.26"

	containerCfg, _, err := containerConfig(cfg, "/data")
	if err != nil {
		t.Fatalf("containerConfig() returned an error: %v", err)
	}
	if containerCfg.Image != "neo4j:5.26" {
		t.Errorf("expected image neo4j:5.26, got %s", containerCfg.Image)
	}

	cfg.Neo4j.DockerImage = ""
	if got := imageName(cfg); got != defaultImage {
		t.Errorf("expected default image, got %s", got)
	}
}

func TestMatchContainer(t *testing.T) {
	list := []container.Summary{
		{ID: "a", Names: []string{"/vpc-visualizer-neo4j-old"}},
		{ID: "b", Names: []string{"/vpc-visualizer-neo4j"}, State: "exited"},
	}

	got := matchContainer(list)
	if got == nil || got.ID != "b" {
		t.Fatalf("expected container b, got %+v", got)
	}

	if got := matchContainer(list[:1]); got != nil {
		t.Errorf("expected no match for a prefix name, got %+v", got)
	}
	if got := matchContainer(nil); got != nil {
		t.Errorf("expected no match for an empty list, got %+v", got)
	}
}

func TestPrepareDataDir(t *testing.T) {
	t.Chdir(t.TempDir())

	dir, err := prepareDataDir("")
	if err != nil {
		t.Fatalf("prepareDataDir() returned an error: %v", err)
	}
	if dir == DataDir {
		t.Errorf("expected an absolute path, got %s", dir)
	}
}
