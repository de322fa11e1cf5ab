package graph

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// UnknownName marks a security group that was referenced by a rule but whose
// own record was not part of the batch.
const UnknownName = "UNKNOWN"

// MetadataVPCID is the metadata key carrying a security group's VPC.
const MetadataVPCID = "vpc_id"

// AllPorts fills a port bound that the rule does not specify.
const AllPorts = -1

// NodeType identifies what a node stands for. The ordinals are part of the
// wire format and must not be renumbered.
type NodeType int

const (
	SecurityGroup NodeType = iota
	CidrIP
	CidrIPv6
	PrefixList
)

var nodeTypeNames = [...]string{
	SecurityGroup: "SecurityGroup",
	CidrIP:        "CidrIP",
	CidrIPv6:      "CidrIPv6",
	PrefixList:    "PrefixList",
}

// Valid reports whether t is one of the declared node types.
func (t NodeType) Valid() bool {
	return t >= SecurityGroup && t <= PrefixList
}

func (t NodeType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
	return nodeTypeNames[t]
}

// Node is a security group, CIDR block or prefix list in the traffic graph.
type Node struct {
	ID   string
	Type NodeType
	Name string

	metadata map[string]string
}

// NewNode returns a node holding its own copy of metadata.
func NewNode(id string, typ NodeType, name string, metadata map[string]string) Node {
	return Node{
		ID:       id,
		Type:     typ,
		Name:     name,
		metadata: maps.Clone(metadata),
	}
}

// Metadata returns a copy of the node's metadata. The result is never nil.
func (n Node) Metadata() map[string]string {
	if n.metadata == nil {
		return map[string]string{}
	}
	return maps.Clone(n.metadata)
}

// MetadataValue looks up a single metadata entry.
func (n Node) MetadataValue(key string) (string, bool) {
	v, ok := n.metadata[key]
	return v, ok
}

// IsPlaceholder reports whether the node was only referenced, never resolved.
func (n Node) IsPlaceholder() bool {
	return n.Name == UnknownName
}

// Equal compares every field. Nil and empty metadata are equal.
func (n Node) Equal(o Node) bool {
	return n.ID == o.ID &&
		n.Type == o.Type &&
		n.Name == o.Name &&
		maps.Equal(n.metadata, o.metadata)
}

func (n Node) String() string {
	return fmt.Sprintf("%s(%s %q)", n.Type, n.ID, n.Name)
}

// PortRange is an inclusive port interval. AllPorts in a slot means the bound
// does not apply.
type PortRange struct {
	From int
	To   int
}

// Edge is a permitted traffic flow. Edges are plain values: two edges with the
// same fields are the same edge.
type Edge struct {
	Source    string
	Target    string
	Protocol  string
	PortRange PortRange
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -> %s [%s %d-%d]", e.Source, e.Target, e.Protocol, e.PortRange.From, e.PortRange.To)
}

// Compare orders edges by source, target, protocol and port range.
func (e Edge) Compare(o Edge) int {
	return cmp.Or(
		cmp.Compare(e.Source, o.Source),
		cmp.Compare(e.Target, o.Target),
		cmp.Compare(e.Protocol, o.Protocol),
		cmp.Compare(e.PortRange.From, o.PortRange.From),
		cmp.Compare(e.PortRange.To, o.PortRange.To),
	)
}

// Graph represents the traffic permitted between security groups and the
// address ranges they reference.
type Graph struct {
	Nodes map[string]Node
	Edges []Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		Nodes: make(map[string]Node),
		Edges: make([]Edge, 0),
	}
}

// NodeIDs returns the node ids in sorted order.
func (g *Graph) NodeIDs() []string {
	return slices.Sorted(maps.Keys(g.Nodes))
}

// SortedEdges returns a sorted copy of the edges.
func (g *Graph) SortedEdges() []Edge {
	edges := slices.Clone(g.Edges)
	slices.SortFunc(edges, Edge.Compare)
	return edges
}

// Equal compares node maps by id and edges as sets.
func (g *Graph) Equal(o *Graph) bool {
	if g == nil || o == nil {
		return g == o
	}
	if !maps.EqualFunc(g.Nodes, o.Nodes, Node.Equal) {
		return false
	}
	return maps.Equal(edgeSet(g.Edges), edgeSet(o.Edges))
}

// Validate checks that every edge endpoint is a node of the graph.
func (g *Graph) Validate() error {
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.Source]; !ok {
			return fmt.Errorf("edge %s: unknown source node %q", e, e.Source)
		}
		if _, ok := g.Nodes[e.Target]; !ok {
			return fmt.Errorf("edge %s: unknown target node %q", e, e.Target)
		}
	}
	return nil
}

func edgeSet(edges []Edge) map[Edge]struct{} {
	set := make(map[Edge]struct{}, len(edges))
	for _, e := range edges {
		set[e] = struct{}{}
	}
	return set
}
