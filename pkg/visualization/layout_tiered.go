package visualization

import (
	"github.com/dd0wney/cluso-insider/pkg/graph"
)

// TieredLayout puts users, devices and domains on three horizontal rows,
// each row spread evenly in index order.
type TieredLayout struct {
	config *LayoutConfig
}

// NewTieredLayout creates a new tiered layout
func NewTieredLayout(config *LayoutConfig) *TieredLayout {
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &TieredLayout{config: config}
}

// ComputeLayout arranges nodes by type
func (tl *TieredLayout) ComputeLayout(g *graph.Graph) ([]Position, error) {
	if g == nil {
		return nil, ErrMissingGraph
	}
	positions := make([]Position, g.NumNodes())
	if len(positions) == 0 {
		return positions, nil
	}

	tiers := []graph.NodeType{graph.NodeUser, graph.NodeDevice, graph.NodeDomain}
	levels := make([][]int, len(tiers))
	for i, node := range g.Nodes {
		levels[node.Type] = append(levels[node.Type], i)
	}

	levelHeight := (tl.config.Height - 2*tl.config.Padding) / float64(len(tiers))
	levelWidth := tl.config.Width - 2*tl.config.Padding

	for levelIdx, level := range levels {
		y := tl.config.Padding + float64(levelIdx)*levelHeight + levelHeight/2
		spacing := levelWidth / float64(len(level)+1)

		for pos, nodeIdx := range level {
			x := tl.config.Padding + spacing*float64(pos+1)
			positions[nodeIdx] = Position{X: x, Y: y}
		}
	}

	return positions, nil
}
