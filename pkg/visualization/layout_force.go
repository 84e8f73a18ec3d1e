package visualization

import (
	"math"
	"math/rand"

	"github.com/dd0wney/cluso-insider/pkg/graph"
)

// ForceDirectedLayout implements force-directed graph layout
type ForceDirectedLayout struct {
	config *LayoutConfig
}

// NewForceDirectedLayout creates a new force-directed layout
func NewForceDirectedLayout(config *LayoutConfig) *ForceDirectedLayout {
	if config.Iterations == 0 {
		config.Iterations = 50
	}
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &ForceDirectedLayout{config: config}
}

// ComputeLayout computes positions using force-directed algorithm. Initial
// placement is drawn from config.Seed, so equal graphs get equal layouts.
func (fdl *ForceDirectedLayout) ComputeLayout(g *graph.Graph) ([]Position, error) {
	if g == nil {
		return nil, ErrMissingGraph
	}
	n := g.NumNodes()
	if n == 0 {
		return []Position{}, nil
	}

	// Single node - center it
	if n == 1 {
		return []Position{{X: fdl.config.Width / 2, Y: fdl.config.Height / 2}}, nil
	}

	rng := rand.New(rand.NewSource(fdl.config.Seed))
	positions := make([]Position, n)
	for i := range positions {
		positions[i] = Position{
			X: rng.Float64()*(fdl.config.Width-2*fdl.config.Padding) + fdl.config.Padding,
			Y: rng.Float64()*(fdl.config.Height-2*fdl.config.Padding) + fdl.config.Padding,
		}
	}

	neighbors := neighborSets(g)

	k := math.Sqrt((fdl.config.Width * fdl.config.Height) / float64(n)) // Optimal distance
	temperature := fdl.config.Width / 10.0

	forces := make([]Position, n)
	for iter := 0; iter < fdl.config.Iterations; iter++ {
		for i := range forces {
			forces[i] = Position{}
		}

		// Repulsion between all nodes
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := positions[i].X - positions[j].X
				dy := positions[i].Y - positions[j].Y
				dist := math.Sqrt(dx*dx + dy*dy)

				if dist < 0.01 {
					dist = 0.01
				}

				force := (k * k) / dist
				fx := (dx / dist) * force
				fy := (dy / dist) * force

				forces[i].X += fx
				forces[i].Y += fy
				forces[j].X -= fx
				forces[j].Y -= fy
			}
		}

		// Attraction between connected nodes
		for i := 0; i < n; i++ {
			for _, j := range neighbors[i] {
				dx := positions[i].X - positions[j].X
				dy := positions[i].Y - positions[j].Y
				dist := math.Sqrt(dx*dx + dy*dy)

				if dist < 0.01 {
					continue
				}

				force := (dist * dist) / k
				forces[i].X -= (dx / dist) * force
				forces[i].Y -= (dy / dist) * force
			}
		}

		// Apply forces with cooling
		cool := 1.0 - float64(iter)/float64(fdl.config.Iterations)
		for i := range positions {
			fx, fy := forces[i].X, forces[i].Y
			force := math.Sqrt(fx*fx + fy*fy)

			if force > 0 {
				step := math.Min(force, temperature) * cool
				positions[i].X += (fx / force) * step
				positions[i].Y += (fy / force) * step
			}
		}

		temperature *= 0.95
	}

	return normalizePositions(positions, fdl.config.Width, fdl.config.Height, fdl.config.Padding), nil
}
