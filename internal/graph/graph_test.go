package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeTypeOrdinals(t *testing.T) {
	assert.Equal(t, 0, int(SecurityGroup))
	assert.Equal(t, 1, int(CidrIP))
	assert.Equal(t, 2, int(CidrIPv6))
	assert.Equal(t, 3, int(PrefixList))

	assert.Equal(t, "CidrIPv6", CidrIPv6.String())
	assert.Equal(t, "NodeType(9)", NodeType(9).String())
	assert.False(t, NodeType(-1).Valid())
	assert.False(t, NodeType(4).Valid())
}

func TestNewNodeCopiesMetadata(t *testing.T) {
	meta := map[string]string{MetadataVPCID: "vpc-1"}
	n := NewNode("sg-1", SecurityGroup, "web", meta)

	meta[MetadataVPCID] = "vpc-2"
	v, _ := n.MetadataValue(MetadataVPCID)
	assert.Equal(t, "vpc-1", v)

	out := n.Metadata()
	out[MetadataVPCID] = "vpc-3"
	v, _ = n.MetadataValue(MetadataVPCID)
	assert.Equal(t, "vpc-1", v)
}

func TestNodeMetadataNeverNil(t *testing.T) {
	n := NewNode("10.0.0.0/8", CidrIP, "10.0.0.0/8", nil)
	require.NotNil(t, n.Metadata())
	assert.Empty(t, n.Metadata())
	assert.True(t, n.Equal(NewNode("10.0.0.0/8", CidrIP, "10.0.0.0/8", map[string]string{})))
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, NewNode("sg-2", SecurityGroup, UnknownName, nil).IsPlaceholder())
	assert.False(t, NewNode("sg-2", SecurityGroup, "db", nil).IsPlaceholder())
}

func TestGraphEqualIgnoresEdgeOrder(t *testing.T) {
	a := New()
	a.Nodes["sg-1"] = NewNode("sg-1", SecurityGroup, "web", map[string]string{MetadataVPCID: "vpc-1"})
	a.Nodes["0.0.0.0/0"] = NewNode("0.0.0.0/0", CidrIP, "0.0.0.0/0", nil)
	a.Edges = []Edge{
		{Source: "sg-1", Target: "0.0.0.0/0", Protocol: "tcp", PortRange: PortRange{443, 443}},
		{Source: "0.0.0.0/0", Target: "sg-1", Protocol: "-1", PortRange: PortRange{AllPorts, AllPorts}},
	}

	b := New()
	for id, n := range a.Nodes {
		b.Nodes[id] = n
	}
	b.Edges = []Edge{a.Edges[1], a.Edges[0]}

	assert.True(t, a.Equal(b))

	b.Edges = b.Edges[:1]
	assert.False(t, a.Equal(b))
}

func TestGraphEqualNodeMismatch(t *testing.T) {
	a := New()
	a.Nodes["sg-1"] = NewNode("sg-1", SecurityGroup, "web", nil)
	b := New()
	b.Nodes["sg-1"] = NewNode("sg-1", SecurityGroup, UnknownName, nil)

	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Graph)(nil).Equal(nil))
}

func TestSortedEdges(t *testing.T) {
	g := New()
	g.Edges = []Edge{
		{Source: "b", Target: "a", Protocol: "tcp", PortRange: PortRange{80, 80}},
		{Source: "a", Target: "b", Protocol: "udp", PortRange: PortRange{53, 53}},
		{Source: "a", Target: "b", Protocol: "tcp", PortRange: PortRange{22, 22}},
	}

	sorted := g.SortedEdges()
	require.Len(t, sorted, 3)
	assert.Equal(t, "tcp", sorted[0].Protocol)
	assert.Equal(t, "udp", sorted[1].Protocol)
	assert.Equal(t, "b", sorted[2].Source)
	assert.Equal(t, "b", g.Edges[0].Source, "SortedEdges must not reorder the graph")
}

func TestValidate(t *testing.T) {
	g := New()
	g.Nodes["sg-1"] = NewNode("sg-1", SecurityGroup, "web", nil)
	g.Edges = []Edge{{Source: "sg-1", Target: "pl-1", Protocol: "tcp", PortRange: PortRange{443, 443}}}

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown target node "pl-1"`)

	g.Nodes["pl-1"] = NewNode("pl-1", PrefixList, "pl-1", nil)
	assert.NoError(t, g.Validate())
}
