// Package codec maps graphs to and from their canonical JSON documents.
//
// A node is encoded as
//
//	{"id": "sg-1", "type": 0, "name": "web", "metadata": {"vpc_id": "vpc-1"}}
//
// an edge as
//
//	{"source": "sg-1", "target": "0.0.0.0/0", "protocol": "-1", "port_range": [-1, -1]}
//
// and a graph as {"nodes": {id: node, ...}, "edges": [edge, ...]}. The node
// type is written as its ordinal, so NodeType values must never be
// renumbered.
//
// Decoding walks the document bottom-up: every object that carries all of a
// node's (or an edge's) keys is turned into a graph.Node (graph.Edge) before
// its parent is looked at, and the graph is assembled from the results.
package codec

import (
	"encoding/json"

	"vpc-visualizer/internal/graph"
)

const (
	keyID        = "id"
	keyType      = "type"
	keyName      = "name"
	keyMetadata  = "metadata"
	keySource    = "source"
	keyTarget    = "target"
	keyProtocol  = "protocol"
	keyPortRange = "port_range"
	keyNodes     = "nodes"
	keyEdges     = "edges"
)

var (
	nodeKeys = []string{keyID, keyType, keyName, keyMetadata}
	edgeKeys = []string{keySource, keyTarget, keyProtocol, keyPortRange}
)

type nodeDocument struct {
	ID       string            `json:"id"`
	Type     int               `json:"type"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

type edgeDocument struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Protocol  *string `json:"protocol"`
	PortRange [2]int  `json:"port_range"`
}

type graphDocument struct {
	Nodes map[string]nodeDocument `json:"nodes"`
	Edges []edgeDocument          `json:"edges"`
}

func nodeToDocument(n graph.Node) nodeDocument {
	return nodeDocument{
		ID:       n.ID,
		Type:     int(n.Type),
		Name:     n.Name,
		Metadata: n.Metadata(),
	}
}

func edgeToDocument(e graph.Edge) edgeDocument {
	doc := edgeDocument{
		Source:    e.Source,
		Target:    e.Target,
		PortRange: [2]int{e.PortRange.From, e.PortRange.To},
	}
	if e.Protocol != "" {
		p := e.Protocol
		doc.Protocol = &p
	}
	return doc
}

func graphToDocument(g *graph.Graph) graphDocument {
	doc := graphDocument{
		Nodes: make(map[string]nodeDocument, len(g.Nodes)),
		Edges: make([]edgeDocument, 0, len(g.Edges)),
	}
	for id, n := range g.Nodes {
		doc.Nodes[id] = nodeToDocument(n)
	}
	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, edgeToDocument(e))
	}
	return doc
}

// Encode returns the compact JSON document for g.
func Encode(g *graph.Graph) ([]byte, error) {
	return json.Marshal(graphToDocument(g))
}

// EncodeIndent is Encode with two-space indentation.
func EncodeIndent(g *graph.Graph) ([]byte, error) {
	return json.MarshalIndent(graphToDocument(g), "", "  ")
}

// EncodeNode returns the JSON document for a single node.
func EncodeNode(n graph.Node) ([]byte, error) {
	return json.Marshal(nodeToDocument(n))
}

// EncodeEdge returns the JSON document for a single edge.
func EncodeEdge(e graph.Edge) ([]byte, error) {
	return json.Marshal(edgeToDocument(e))
}
