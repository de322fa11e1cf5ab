package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"vpc-visualizer/internal/graph"
)

const (
	EndpointLabel    = "Endpoint"
	AllowsRelation   = "ALLOWS"
	cypherStringQuot = "'"
)

var cypherEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteCypher(s string) string {
	return cypherStringQuot + cypherEscaper.Replace(s) + cypherStringQuot
}

// ToCypher converts a graph object to a series of idempotent Cypher MERGE statements.
func ToCypher(g *graph.Graph) (string, error) {
	var sb strings.Builder

	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		// MERGE matches on id only, so re-running updates properties in place.
		sb.WriteString(fmt.Sprintf("MERGE (n:%s {id: %s})\n", EndpointLabel, quoteCypher(node.ID)))
		sb.WriteString(fmt.Sprintf("SET n.type = %s, n.name = %s", quoteCypher(node.Type.String()), quoteCypher(node.Name)))
		if vpc, ok := node.MetadataValue(graph.MetadataVPCID); ok {
			sb.WriteString(fmt.Sprintf(", n.vpc_id = %s", quoteCypher(vpc)))
		}
		sb.WriteString(";\n")
	}

	sb.WriteString("\n")

	for _, edge := range g.SortedEdges() {
		cypher := fmt.Sprintf(
			"MATCH (from:%[1]s {id: %[2]s}), (to:%[1]s {id: %[3]s})\nMERGE (from)-[:%[4]s {protocol: %[5]s, from_port: %[6]d, to_port: %[7]d}]->(to);\n",
			EndpointLabel,
			quoteCypher(edge.Source),
			quoteCypher(edge.Target),
			AllowsRelation,
			quoteCypher(edge.Protocol),
			edge.PortRange.From,
			edge.PortRange.To,
		)
		sb.WriteString(cypher)
	}

	return sb.String(), nil
}

// ToCypherTransaction converts a graph to a parameterized Cypher query.
// This is the form the Neo4j client executes: parameters avoid quoting
// problems and let the server cache the query plan.
func ToCypherTransaction(g *graph.Graph) (string, map[string]any) {
	var query bytes.Buffer
	params := make(map[string]any)

	nodesData := make([]map[string]any, 0, len(g.Nodes))
	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		data := map[string]any{
			"id":     node.ID,
			"type":   node.Type.String(),
			"name":   node.Name,
			"vpc_id": nil,
		}
		if vpc, ok := node.MetadataValue(graph.MetadataVPCID); ok {
			data["vpc_id"] = vpc
		}
		nodesData = append(nodesData, data)
	}
	params["nodes"] = nodesData

	query.WriteString("UNWIND $nodes AS node_data\n")
	query.WriteString(fmt.Sprintf("MERGE (n:%s {id: node_data.id})\n", EndpointLabel))
	query.WriteString("SET n.type = node_data.type, n.name = node_data.name, n.vpc_id = node_data.vpc_id\n")

	if len(g.Edges) > 0 {
		edges := g.SortedEdges()
		edgesData := make([]map[string]any, len(edges))
		for i, edge := range edges {
			edgesData[i] = map[string]any{
				"source":    edge.Source,
				"target":    edge.Target,
				"protocol":  edge.Protocol,
				"from_port": edge.PortRange.From,
				"to_port":   edge.PortRange.To,
			}
		}
		params["edges"] = edgesData

		// Collapse the node rows so the edge UNWIND runs once.
		query.WriteString("WITH count(*) AS upserted\n")
		query.WriteString("UNWIND $edges AS edge_data\n")
		query.WriteString(fmt.Sprintf("MATCH (from:%s {id: edge_data.source})\n", EndpointLabel))
		query.WriteString(fmt.Sprintf("MATCH (to:%s {id: edge_data.target})\n", EndpointLabel))
		query.WriteString(fmt.Sprintf("MERGE (from)-[:%s {protocol: edge_data.protocol, from_port: edge_data.from_port, to_port: edge_data.to_port}]->(to)\n", AllowsRelation))
	}

	return query.String(), params
}
