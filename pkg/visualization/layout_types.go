package visualization

import (
	"fmt"

	"github.com/dd0wney/cluso-insider/pkg/graph"
)

// Position represents a 2D coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LayoutConfig configures layout parameters
type LayoutConfig struct {
	Width      float64 // Canvas width
	Height     float64 // Canvas height
	Iterations int     // Number of iterations for iterative algorithms
	Padding    float64 // Padding from edges
	Seed       int64   // Seed for layouts with random initial placement
}

// DefaultLayoutConfig is an 800x600 canvas.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{Width: 800, Height: 600, Iterations: 50, Padding: 50, Seed: 1}
}

// Layout assigns a position to every node, indexed like g.Nodes.
type Layout interface {
	ComputeLayout(g *graph.Graph) ([]Position, error)
}

// Layout names accepted by NewLayout.
const (
	LayoutNone     = "none"
	LayoutCircular = "circular"
	LayoutForce    = "force"
	LayoutTiered   = "tiered"
)

// NewLayout returns the named layout, or nil for LayoutNone and "".
func NewLayout(name string, config LayoutConfig) (Layout, error) {
	switch name {
	case "", LayoutNone:
		return nil, nil
	case LayoutCircular:
		return NewCircularLayout(&config), nil
	case LayoutForce:
		return NewForceDirectedLayout(&config), nil
	case LayoutTiered:
		return NewTieredLayout(&config), nil
	default:
		return nil, fmt.Errorf("unknown layout %q", name)
	}
}
