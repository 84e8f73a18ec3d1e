package visualization

import (
	"math"

	"github.com/dd0wney/cluso-insider/pkg/graph"
)

// CircularLayout arranges nodes in a circle in index order, so users,
// devices and domains occupy contiguous arcs.
type CircularLayout struct {
	config *LayoutConfig
}

// NewCircularLayout creates a new circular layout
func NewCircularLayout(config *LayoutConfig) *CircularLayout {
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &CircularLayout{config: config}
}

// ComputeLayout arranges nodes in a circle
func (cl *CircularLayout) ComputeLayout(g *graph.Graph) ([]Position, error) {
	if g == nil {
		return nil, ErrMissingGraph
	}
	n := g.NumNodes()
	positions := make([]Position, n)
	if n == 0 {
		return positions, nil
	}

	centerX := cl.config.Width / 2
	centerY := cl.config.Height / 2
	radius := math.Min(centerX, centerY) - cl.config.Padding

	angleStep := 2 * math.Pi / float64(n)

	for i := range positions {
		angle := float64(i) * angleStep
		positions[i] = Position{
			X: centerX + radius*math.Cos(angle),
			Y: centerY + radius*math.Sin(angle),
		}
	}

	return positions, nil
}
