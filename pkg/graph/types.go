// Package graph builds the per-day behavioral graph of users, devices and
// domains connected by activity edges.
package graph

import (
	"errors"

	"github.com/dd0wney/cluso-insider/pkg/activity"
	"github.com/dd0wney/cluso-insider/pkg/model"
)

// ErrEmptyGraph is returned when no edge survives filtering for the day.
var ErrEmptyGraph = errors.New("no edges for the selected day")

// NodeType is the entity class of a node.
type NodeType int

const (
	NodeUser NodeType = iota
	NodeDevice
	NodeDomain
)

func (t NodeType) String() string {
	switch t {
	case NodeUser:
		return "user"
	case NodeDevice:
		return "device"
	case NodeDomain:
		return "domain"
	default:
		return "unknown"
	}
}

// MarshalText lets node types appear as names in JSON exports.
func (t NodeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Node is a graph vertex. Index is dense in 0..N-1.
type Node struct {
	Index  int
	Key    string
	Type   NodeType
	Degree float64
}

// Edge is one activity record between a user and a device or domain.
// Parallel edges are kept: every record yields its own edge.
type Edge struct {
	Source   int
	Target   int
	Kind     activity.Kind
	Features activity.Features
}

type nodeKey struct {
	typ NodeType
	key string
}

// Graph is the value object handed from the builder to training, prediction
// and export. Labels may be rewritten by the positive-sample fallback; every
// other field is fixed once built.
type Graph struct {
	Day       activity.Day
	Nodes     []Node
	Edges     []Edge
	Labels    []int
	TrainMask []bool

	index map[nodeKey]int
}

func (g *Graph) NumNodes() int { return len(g.Nodes) }
func (g *Graph) NumEdges() int { return len(g.Edges) }

// Lookup returns the index of the node of the given type and key.
func (g *Graph) Lookup(typ NodeType, key string) (int, bool) {
	i, ok := g.index[nodeKey{typ: typ, key: key}]
	return i, ok
}

// Key returns the external key of node i.
func (g *Graph) Key(i int) string {
	return g.Nodes[i].Key
}

// NodeFeatures returns the per-node input features: a single degree column.
func (g *Graph) NodeFeatures() [][]float64 {
	out := make([][]float64, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = []float64{n.Degree}
	}
	return out
}

// EdgeIndex returns parallel source and target index slices.
func (g *Graph) EdgeIndex() (sources, targets []int) {
	sources = make([]int, len(g.Edges))
	targets = make([]int, len(g.Edges))
	for i, e := range g.Edges {
		sources[i] = e.Source
		targets[i] = e.Target
	}
	return sources, targets
}

// UserIndices returns the indices of all user nodes in ascending order.
func (g *Graph) UserIndices() []int {
	var out []int
	for i, masked := range g.TrainMask {
		if masked {
			out = append(out, i)
		}
	}
	return out
}

// PositiveCount counts positive labels among train-mask nodes.
func (g *Graph) PositiveCount() int {
	n := 0
	for i, masked := range g.TrainMask {
		if masked && g.Labels[i] == 1 {
			n++
		}
	}
	return n
}

// CountByType returns node counts keyed by type name.
func (g *Graph) CountByType() map[string]int {
	out := map[string]int{}
	for _, n := range g.Nodes {
		out[n.Type.String()]++
	}
	return out
}

// EdgeCountByKind returns edge counts keyed by log source name.
func (g *Graph) EdgeCountByKind() map[string]int {
	out := map[string]int{}
	for _, e := range g.Edges {
		out[e.Kind.String()]++
	}
	return out
}

// ModelInput returns the scorer view of the graph.
func (g *Graph) ModelInput() model.Input {
	sources, targets := g.EdgeIndex()
	return model.Input{Features: g.NodeFeatures(), Sources: sources, Targets: targets}
}
