package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpc-visualizer/internal/codec"
	"vpc-visualizer/internal/config"
	"vpc-visualizer/internal/metrics"
	"vpc-visualizer/internal/parser"
)

const fixture = "../parser/testdata/security_groups.json"

type staticSource struct {
	groups []parser.SecurityGroup
	err    error
}

func (s staticSource) SecurityGroups(ctx context.Context) ([]parser.SecurityGroup, error) {
	return s.groups, s.err
}

func TestRunFromFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input = fixture

	var out bytes.Buffer
	reg := metrics.NewRegistry()
	require.NoError(t, Run(context.Background(), cfg, Options{Out: &out, Metrics: reg}))

	g, err := codec.Decode(out.Bytes())
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 6)
	assert.Len(t, g.Edges, 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.GraphBuildsTotal.WithLabelValues("success")))
	assert.Equal(t, 6.0, testutil.ToFloat64(reg.GraphNodes))
}

func TestRunWritesOutputFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input = fixture
	cfg.Format = "dot"
	cfg.Output = filepath.Join(t.TempDir(), "graph.dot")

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), cfg, Options{Out: &out, Metrics: metrics.NewRegistry()}))
	assert.Zero(t, out.Len(), "nothing goes to stdout when an output file is set")

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "digraph security_groups"))
}

func TestRunFromSource(t *testing.T) {
	groups, err := parser.ParseFile(fixture)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Format = "cypher"

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), cfg, Options{Source: staticSource{groups: groups}, Out: &out, Metrics: metrics.NewRegistry()}))
	assert.Contains(t, out.String(), "MERGE (n:Endpoint {id: 'sg-0a1b2c3d4e5f60001'})")
}

func TestRunSourceError(t *testing.T) {
	cfg := config.DefaultConfig()
	err := Run(context.Background(), cfg, Options{Source: staticSource{err: errors.New("throttled")}, Out: &bytes.Buffer{}, Metrics: metrics.NewRegistry()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestRunRecordsFailedBuild(t *testing.T) {
	bad := []parser.SecurityGroup{{
		GroupID:             "sg-1",
		IPPermissions:       []parser.IPPermission{{IPProtocol: "tcp", IPRanges: []parser.IPRange{}, IPv6Ranges: []parser.IPv6Range{}, UserIDGroupPairs: []parser.UserIDGroupPair{}, PrefixListIDs: []parser.PrefixListID{}}},
		IPPermissionsEgress: []parser.IPPermission{},
	}}

	reg := metrics.NewRegistry()
	err := Run(context.Background(), config.DefaultConfig(), Options{Source: staticSource{groups: bad}, Out: &bytes.Buffer{}, Metrics: reg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no traffic-target specified")
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.GraphBuildsTotal.WithLabelValues("error")))
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input = fixture
	cfg.Format = "svg"

	err := Run(context.Background(), cfg, Options{Out: &bytes.Buffer{}, Metrics: metrics.NewRegistry()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestUpdateRequiresNeo4jCredentials(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input = fixture

	err := Update(context.Background(), cfg, Options{Metrics: metrics.NewRegistry()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neo4j-pass")
}

func TestValidateNeo4jConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Neo4jConfig
		wantErr bool
	}{
		{"complete", config.Neo4jConfig{URI: "bolt://localhost:7687", User: "neo4j", Password: "secret"}, false},
		{"no password", config.Neo4jConfig{URI: "bolt://localhost:7687", User: "neo4j"}, true},
		{"no uri", config.Neo4jConfig{User: "neo4j", Password: "secret"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateNeo4jConfig(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateNeo4jConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
