package graph

import (
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-insider/pkg/activity"
	"github.com/dd0wney/cluso-insider/pkg/groundtruth"
	"github.com/dd0wney/cluso-insider/pkg/logging"
)

// Builder turns one day of activity into a Graph. It holds no per-run
// state; each Build returns a fresh graph.
type Builder struct {
	logger logging.Logger
}

// NewBuilder creates a builder. A nil logger discards output.
func NewBuilder(logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Builder{logger: logger.With(logging.Component("graph"))}
}

// Build filters logs to day and builds the typed graph. Node indices are
// users, then devices, then domains, each group sorted by key. Edges follow
// record order: logon, device, HTTP. Returns ErrEmptyGraph when no edge
// results.
func (b *Builder) Build(logs activity.Logs, day activity.Day, gt *groundtruth.GroundTruth) (*Graph, error) {
	filtered := logs.OnDay(day)
	b.logger.Info("filtered activity for day",
		logging.Day(day),
		logging.Int("logon", len(filtered.Logon)),
		logging.Int("device", len(filtered.Device)),
		logging.Int("http", len(filtered.HTTP)),
	)

	records := filtered.Records()
	g := &Graph{Day: day, index: make(map[nodeKey]int)}
	b.assignNodes(g, records)

	g.Edges = make([]Edge, 0, len(records))
	for _, r := range records {
		src, ok := g.Lookup(NodeUser, r.Actor())
		if !ok {
			continue
		}
		dst, ok := g.Lookup(targetType(r.Kind()), r.Target())
		if !ok {
			continue
		}
		g.Edges = append(g.Edges, Edge{
			Source:   src,
			Target:   dst,
			Kind:     r.Kind(),
			Features: r.Features(),
		})
		g.Nodes[src].Degree++
		g.Nodes[dst].Degree++
	}

	if len(g.Edges) == 0 {
		b.logger.Warn("no edges found for the selected day", logging.Day(day))
		return nil, fmt.Errorf("build graph for %s: %w", day, ErrEmptyGraph)
	}

	g.Labels = make([]int, len(g.Nodes))
	g.TrainMask = make([]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.Type != NodeUser {
			continue
		}
		g.TrainMask[i] = true
		if gt.IsMaliciousUser(n.Key) {
			g.Labels[i] = 1
		}
	}

	b.logger.Info("graph built",
		logging.Day(day),
		logging.Int("nodes", g.NumNodes()),
		logging.Int("edges", g.NumEdges()),
		logging.Int("positives", g.PositiveCount()),
	)
	return g, nil
}

func (b *Builder) assignNodes(g *Graph, records []activity.Record) {
	groups := map[NodeType]map[string]struct{}{
		NodeUser:   {},
		NodeDevice: {},
		NodeDomain: {},
	}
	for _, r := range records {
		if u := r.Actor(); u != "" {
			groups[NodeUser][u] = struct{}{}
		}
		if t := r.Target(); t != "" {
			groups[targetType(r.Kind())][t] = struct{}{}
		}
	}

	for _, typ := range []NodeType{NodeUser, NodeDevice, NodeDomain} {
		keys := make([]string, 0, len(groups[typ]))
		for k := range groups[typ] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			idx := len(g.Nodes)
			g.Nodes = append(g.Nodes, Node{Index: idx, Key: k, Type: typ})
			g.index[nodeKey{typ: typ, key: k}] = idx
		}
	}
}

func targetType(k activity.Kind) NodeType {
	if k == activity.KindHTTP {
		return NodeDomain
	}
	return NodeDevice
}
