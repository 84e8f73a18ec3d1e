package visualization

import (
	"math"
	"sort"

	"github.com/dd0wney/cluso-insider/pkg/graph"
)

// normalizePositions scales positions to fit within bounds
func normalizePositions(positions []Position, width, height, padding float64) []Position {
	if len(positions) == 0 {
		return positions
	}

	// Find bounds
	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64

	for _, pos := range positions {
		minX = math.Min(minX, pos.X)
		maxX = math.Max(maxX, pos.X)
		minY = math.Min(minY, pos.Y)
		maxY = math.Max(maxY, pos.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY

	if rangeX < 0.01 {
		rangeX = 1
	}
	if rangeY < 0.01 {
		rangeY = 1
	}

	// Scale to fit bounds with padding
	targetWidth := width - 2*padding
	targetHeight := height - 2*padding

	normalized := make([]Position, len(positions))
	for i, pos := range positions {
		normalized[i] = Position{
			X: padding + ((pos.X-minX)/rangeX)*targetWidth,
			Y: padding + ((pos.Y-minY)/rangeY)*targetHeight,
		}
	}

	return normalized
}

// neighborSets returns the distinct neighbors of each node over both edge
// directions, ascending. Parallel edges and self loops are ignored.
func neighborSets(g *graph.Graph) [][]int {
	seen := make([]map[int]bool, g.NumNodes())
	for i := range seen {
		seen[i] = make(map[int]bool)
	}
	for _, e := range g.Edges {
		if e.Source == e.Target {
			continue
		}
		seen[e.Source][e.Target] = true
		seen[e.Target][e.Source] = true
	}
	out := make([][]int, len(seen))
	for i, set := range seen {
		for j := range set {
			out[i] = append(out[i], j)
		}
		sort.Ints(out[i])
	}
	return out
}
