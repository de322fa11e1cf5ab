package formatter

import (
	"vpc-visualizer/internal/codec"
	"vpc-visualizer/internal/graph"
)

// ToJSON converts a graph object to its canonical JSON document.
func ToJSON(g *graph.Graph) (string, error) {
	jsonData, err := codec.EncodeIndent(g)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}
