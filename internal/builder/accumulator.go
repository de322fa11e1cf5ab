package builder

import (
	"slices"

	"vpc-visualizer/internal/graph"
	"vpc-visualizer/internal/parser"
)

// accumulator collects nodes and edges while a batch is processed. It is the
// only mutable state of a build and never escapes Build.
type accumulator struct {
	nodes map[string]graph.Node
	edges map[graph.Edge]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{
		nodes: make(map[string]graph.Node),
		edges: make(map[graph.Edge]struct{}),
	}
}

// addNode stores n unless that would replace a resolved node with an
// UNKNOWN placeholder.
func (a *accumulator) addNode(n graph.Node) {
	if existing, ok := a.nodes[n.ID]; ok && n.IsPlaceholder() && !existing.IsPlaceholder() {
		return
	}
	a.nodes[n.ID] = n
}

func (a *accumulator) addEdge(groupID, peerID string, dir direction, rule parser.IPPermission) error {
	from, to := rule.Ports()
	e, err := orient(groupID, peerID, dir, rule.IPProtocol, graph.PortRange{From: from, To: to})
	if err != nil {
		return err
	}
	a.edges[e] = struct{}{}
	return nil
}

// addRule emits one node and one edge per target of a validated rule.
func (a *accumulator) addRule(groupID string, rule parser.IPPermission, dir direction) error {
	switch {
	case len(rule.IPRanges) > 0 || len(rule.IPv6Ranges) > 0:
		for _, r := range rule.IPRanges {
			a.addNode(graph.NewNode(r.CidrIP, graph.CidrIP, r.CidrIP, nil))
			if err := a.addEdge(groupID, r.CidrIP, dir, rule); err != nil {
				return err
			}
		}
		for _, r := range rule.IPv6Ranges {
			a.addNode(graph.NewNode(r.CidrIPv6, graph.CidrIPv6, r.CidrIPv6, nil))
			if err := a.addEdge(groupID, r.CidrIPv6, dir, rule); err != nil {
				return err
			}
		}
	case len(rule.UserIDGroupPairs) > 0:
		for _, pair := range rule.UserIDGroupPairs {
			// Resolved later if the peer's own record is in the batch.
			a.addNode(graph.NewNode(pair.GroupID, graph.SecurityGroup, graph.UnknownName, nil))
			if err := a.addEdge(groupID, pair.GroupID, dir, rule); err != nil {
				return err
			}
		}
	case len(rule.PrefixListIDs) > 0:
		for _, pl := range rule.PrefixListIDs {
			a.addNode(graph.NewNode(pl.PrefixListID, graph.PrefixList, pl.PrefixListID, nil))
			if err := a.addEdge(groupID, pl.PrefixListID, dir, rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// freeze returns the accumulated state. Edges come out sorted so repeated
// builds of the same batch render identically.
func (a *accumulator) freeze() *graph.Graph {
	g := graph.New()
	for id, n := range a.nodes {
		g.Nodes[id] = n
	}
	g.Edges = make([]graph.Edge, 0, len(a.edges))
	for e := range a.edges {
		g.Edges = append(g.Edges, e)
	}
	slices.SortFunc(g.Edges, graph.Edge.Compare)
	return g
}
