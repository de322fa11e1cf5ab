package codec

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	vverrors "vpc-visualizer/internal/errors"
	"vpc-visualizer/internal/graph"
)

var jsonNull = []byte("null")

// Decode reconstructs a graph from its JSON document.
func Decode(data []byte) (*graph.Graph, error) {
	v, err := decodeValue(data)
	if err != nil {
		return nil, err
	}
	return assembleGraph(v)
}

// DecodeNode reconstructs a single node document.
func DecodeNode(data []byte) (graph.Node, error) {
	v, err := decodeValue(data)
	if err != nil {
		return graph.Node{}, err
	}
	n, ok := v.(graph.Node)
	if !ok {
		return graph.Node{}, shapeError("node", v, nodeKeys)
	}
	return n, nil
}

// DecodeEdge reconstructs a single edge document.
func DecodeEdge(data []byte) (graph.Edge, error) {
	v, err := decodeValue(data)
	if err != nil {
		return graph.Edge{}, err
	}
	e, ok := v.(graph.Edge)
	if !ok {
		return graph.Edge{}, shapeError("edge", v, edgeKeys)
	}
	return e, nil
}

// decodeValue turns raw JSON into plain values, decoding children before
// their parent. Objects carrying the node or edge key set come back as
// graph.Node or graph.Edge; other objects come back as map[string]any and
// arrays as []any.
func decodeValue(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, vverrors.New(vverrors.KindDecode, "empty JSON document")
	}

	switch raw[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, vverrors.Wrap(vverrors.KindDecode, err, "invalid JSON object")
		}
		children := make(map[string]any, len(obj))
		for k, v := range obj {
			child, err := decodeValue(v)
			if err != nil {
				return nil, err
			}
			children[k] = child
		}
		switch {
		case hasKeys(obj, nodeKeys):
			return decodeNode(obj)
		case hasKeys(obj, edgeKeys):
			return decodeEdge(obj)
		}
		return children, nil

	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, vverrors.Wrap(vverrors.KindDecode, err, "invalid JSON array")
		}
		items := make([]any, 0, len(arr))
		for _, v := range arr {
			item, err := decodeValue(v)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil

	default:
		var scalar any
		if err := json.Unmarshal(raw, &scalar); err != nil {
			return nil, vverrors.Wrap(vverrors.KindDecode, err, "invalid JSON value")
		}
		return scalar, nil
	}
}

func hasKeys(obj map[string]json.RawMessage, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

// field decodes obj[key] into dst, rejecting null.
func field(kind string, obj map[string]json.RawMessage, key string, dst any) error {
	raw := bytes.TrimSpace(obj[key])
	if bytes.Equal(raw, jsonNull) {
		return vverrors.New(vverrors.KindDecode, "%s field %q must not be null", kind, key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return vverrors.Wrap(vverrors.KindDecode, err, "%s field %q has the wrong type", kind, key)
	}
	return nil
}

func decodeNode(obj map[string]json.RawMessage) (graph.Node, error) {
	var doc nodeDocument
	if err := field("node", obj, keyID, &doc.ID); err != nil {
		return graph.Node{}, err
	}
	if err := field("node", obj, keyType, &doc.Type); err != nil {
		return graph.Node{}, err
	}
	if err := field("node", obj, keyName, &doc.Name); err != nil {
		return graph.Node{}, err
	}
	if err := field("node", obj, keyMetadata, &doc.Metadata); err != nil {
		return graph.Node{}, err
	}

	typ := graph.NodeType(doc.Type)
	if !typ.Valid() {
		return graph.Node{}, vverrors.New(vverrors.KindDecode, "node %q has unknown type %d", doc.ID, doc.Type)
	}
	return graph.NewNode(doc.ID, typ, doc.Name, doc.Metadata), nil
}

func decodeEdge(obj map[string]json.RawMessage) (graph.Edge, error) {
	var e graph.Edge
	if err := field("edge", obj, keySource, &e.Source); err != nil {
		return graph.Edge{}, err
	}
	if err := field("edge", obj, keyTarget, &e.Target); err != nil {
		return graph.Edge{}, err
	}

	// A null protocol is the empty protocol.
	var protocol *string
	if err := json.Unmarshal(obj[keyProtocol], &protocol); err != nil {
		return graph.Edge{}, vverrors.Wrap(vverrors.KindDecode, err, "edge field %q has the wrong type", keyProtocol)
	}
	if protocol != nil {
		e.Protocol = *protocol
	}

	var bounds []*int
	if err := field("edge", obj, keyPortRange, &bounds); err != nil {
		return graph.Edge{}, err
	}
	if len(bounds) != 2 || bounds[0] == nil || bounds[1] == nil {
		return graph.Edge{}, vverrors.New(vverrors.KindDecode, "edge %s -> %s: port_range must hold exactly two integers", e.Source, e.Target)
	}
	e.PortRange = graph.PortRange{From: *bounds[0], To: *bounds[1]}
	return e, nil
}

// assembleGraph builds the graph from a decoded {nodes, edges} wrapper.
func assembleGraph(v any) (*graph.Graph, error) {
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, vverrors.New(vverrors.KindDecode, "graph document must be a JSON object")
	}
	if missing := missingKeys(doc, []string{keyNodes, keyEdges}); len(missing) > 0 {
		return nil, vverrors.New(vverrors.KindDecode, "graph document is missing required keys: %s", strings.Join(missing, ", "))
	}

	nodes, ok := doc[keyNodes].(map[string]any)
	if !ok {
		return nil, vverrors.New(vverrors.KindDecode, "graph field %q must be an object of nodes", keyNodes)
	}
	edges, ok := doc[keyEdges].([]any)
	if !ok {
		return nil, vverrors.New(vverrors.KindDecode, "graph field %q must be an array of edges", keyEdges)
	}

	g := graph.New()
	for id, item := range nodes {
		n, ok := item.(graph.Node)
		if !ok {
			return nil, shapeError("node "+id, item, nodeKeys)
		}
		if n.ID != id {
			return nil, vverrors.New(vverrors.KindDecode, "node stored under %q has id %q", id, n.ID)
		}
		g.Nodes[id] = n
	}
	for i, item := range edges {
		e, ok := item.(graph.Edge)
		if !ok {
			return nil, shapeError("edge "+strconv.Itoa(i), item, edgeKeys)
		}
		g.Edges = append(g.Edges, e)
	}
	return g, nil
}

// shapeError explains why v was not recognised as the expected entity.
func shapeError(what string, v any, required []string) error {
	switch x := v.(type) {
	case map[string]any:
		return vverrors.New(vverrors.KindDecode, "%s is missing required keys: %s", what, strings.Join(missingKeys(x, required), ", "))
	case graph.Node:
		return vverrors.New(vverrors.KindDecode, "%s holds a node document", what)
	case graph.Edge:
		return vverrors.New(vverrors.KindDecode, "%s holds an edge document", what)
	default:
		return vverrors.New(vverrors.KindDecode, "%s must be a JSON object", what)
	}
}

func missingKeys(obj map[string]any, required []string) []string {
	var missing []string
	for _, k := range required {
		if _, ok := obj[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}
