package formatter

import (
	"fmt"

	"github.com/awalterschulze/gographviz"

	"vpc-visualizer/internal/graph"
)

const dotGraphName = "security_groups"

// Node colours follow the web front-end: groups red, CIDR blocks blue,
// prefix lists green.
var dotNodeStyles = map[graph.NodeType]map[string]string{
	graph.SecurityGroup: {"shape": "box", "color": "#FF0000"},
	graph.CidrIP:        {"shape": "ellipse", "color": "#0000FF"},
	graph.CidrIPv6:      {"shape": "ellipse", "color": "#0000FF"},
	graph.PrefixList:    {"shape": "hexagon", "color": "#00FF00"},
}

// ToDOT renders the graph as a Graphviz digraph. Placeholder groups are drawn
// dashed.
func ToDOT(g *graph.Graph) (string, error) {
	out := gographviz.NewEscape()
	if err := out.SetName(dotGraphName); err != nil {
		return "", fmt.Errorf("failed to name DOT graph: %w", err)
	}
	if err := out.SetDir(true); err != nil {
		return "", fmt.Errorf("failed to make DOT graph directed: %w", err)
	}
	if err := out.AddAttr(dotGraphName, "rankdir", "LR"); err != nil {
		return "", fmt.Errorf("failed to set DOT layout: %w", err)
	}

	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		attrs := map[string]string{"label": node.Name}
		for k, v := range dotNodeStyles[node.Type] {
			attrs[k] = v
		}
		if node.IsPlaceholder() {
			attrs["label"] = node.ID
			attrs["style"] = "dashed"
		}
		if err := out.AddNode(dotGraphName, id, attrs); err != nil {
			return "", fmt.Errorf("failed to add DOT node %s: %w", id, err)
		}
	}

	for _, edge := range g.SortedEdges() {
		attrs := map[string]string{"label": edgeLabel(edge)}
		if err := out.AddEdge(edge.Source, edge.Target, true, attrs); err != nil {
			return "", fmt.Errorf("failed to add DOT edge %s: %w", edge, err)
		}
	}

	return out.String(), nil
}

// edgeLabel renders protocol and ports compactly, e.g. "tcp 443",
// "tcp 1024-2048" or "all".
func edgeLabel(e graph.Edge) string {
	protocol := e.Protocol
	if protocol == "-1" {
		protocol = "all"
	}

	from, to := e.PortRange.From, e.PortRange.To
	switch {
	case from == graph.AllPorts && to == graph.AllPorts:
		return protocol
	case from == to:
		return fmt.Sprintf("%s %d", protocol, from)
	default:
		return fmt.Sprintf("%s %d-%d", protocol, from, to)
	}
}
