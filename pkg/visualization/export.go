// Package visualization projects a scored behavioral graph into a
// presentation-ready node/edge list, optionally with 2-D positions.
package visualization

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-insider/pkg/graph"
	"github.com/dd0wney/cluso-insider/pkg/groundtruth"
)

// ErrMissingGraph is returned when there is no graph to export.
var ErrMissingGraph = errors.New("graph not available")

// NodeView is one exported node. Score is omitted when no scores were given.
type NodeView struct {
	ID          string         `json:"id"`
	Index       int            `json:"index"`
	Type        graph.NodeType `json:"type"`
	IsMalicious bool           `json:"isMalicious"`
	Degree      float64        `json:"degree"`
	Score       *float64       `json:"score,omitempty"`
	Position    *Position      `json:"position,omitempty"`
}

// EdgeView is one exported edge. Source and Target are node ids; a user and
// a device may share a key, so SourceIndex and TargetIndex identify the
// exact nodes.
type EdgeView struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	SourceIndex int    `json:"sourceIndex"`
	TargetIndex int    `json:"targetIndex"`
	Kind        string `json:"kind"`
	Weight      int    `json:"weight"`
}

// Stats are aggregate counts over the exported graph.
type Stats struct {
	TotalNodes         int `json:"totalNodes"`
	TotalEdges         int `json:"totalEdges"`
	MaliciousUserCount int `json:"maliciousUserCount"`
}

// GraphExport is the full projection.
type GraphExport struct {
	Nodes []NodeView `json:"nodes"`
	Edges []EdgeView `json:"edges"`
	Stats Stats      `json:"stats"`
}

// ExportJSON exports the visualization to JSON
func (e *GraphExport) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// Exporter builds a GraphExport, attaching positions when Layout is set.
type Exporter struct {
	Layout Layout
}

// Export projects g without positions.
func Export(g *graph.Graph, scores []float64, gt *groundtruth.GroundTruth) (*GraphExport, error) {
	return (&Exporter{}).Export(g, scores, gt)
}

// Export projects g and its per-node scores. It does not modify g.
// isMalicious reflects ground truth for user nodes, never the score.
func (x *Exporter) Export(g *graph.Graph, scores []float64, gt *groundtruth.GroundTruth) (*GraphExport, error) {
	if g == nil {
		return nil, ErrMissingGraph
	}
	if scores != nil && len(scores) != g.NumNodes() {
		return nil, fmt.Errorf("export: %d scores for %d nodes", len(scores), g.NumNodes())
	}

	var positions []Position
	if x.Layout != nil {
		var err error
		if positions, err = x.Layout.ComputeLayout(g); err != nil {
			return nil, fmt.Errorf("export: layout: %w", err)
		}
	}

	out := &GraphExport{
		Nodes: make([]NodeView, 0, g.NumNodes()),
		Edges: make([]EdgeView, 0, g.NumEdges()),
	}
	for i, n := range g.Nodes {
		view := NodeView{
			ID:          n.Key,
			Index:       n.Index,
			Type:        n.Type,
			IsMalicious: n.Type == graph.NodeUser && gt.IsMaliciousUser(n.Key),
			Degree:      n.Degree,
		}
		if scores != nil {
			s := scores[i]
			view.Score = &s
		}
		if i < len(positions) {
			p := positions[i]
			view.Position = &p
		}
		if view.IsMalicious {
			out.Stats.MaliciousUserCount++
		}
		out.Nodes = append(out.Nodes, view)
	}
	for _, e := range g.Edges {
		out.Edges = append(out.Edges, EdgeView{
			Source:      g.Key(e.Source),
			Target:      g.Key(e.Target),
			SourceIndex: e.Source,
			TargetIndex: e.Target,
			Kind:        e.Kind.String(),
			Weight:      1,
		})
	}
	out.Stats.TotalNodes = len(out.Nodes)
	out.Stats.TotalEdges = len(out.Edges)
	return out, nil
}
