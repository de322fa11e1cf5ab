package formatter

import (
	"fmt"

	"vpc-visualizer/internal/graph"
)

// Output formats understood by Render.
const (
	FormatJSON   = "json"
	FormatCypher = "cypher"
	FormatDOT    = "dot"
)

// Formats lists every supported output format.
var Formats = []string{FormatJSON, FormatCypher, FormatDOT}

// Render converts g into the requested output format.
func Render(g *graph.Graph, format string) (string, error) {
	switch format {
	case FormatJSON:
		return ToJSON(g)
	case FormatCypher:
		return ToCypher(g)
	case FormatDOT:
		return ToDOT(g)
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: json, cypher, dot)", format)
	}
}
