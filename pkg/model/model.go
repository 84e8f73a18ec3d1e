// Package model holds the pluggable neighborhood-aggregation scorer used to
// rank graph nodes, together with its loss and optimizer.
package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrModelInput is returned when a scorer is handed an unusable input, such
// as a graph with no nodes or edges pointing outside the node range.
var ErrModelInput = errors.New("invalid model input")

// Input is the graph view a scorer consumes: one feature row per node and a
// parallel source/target edge list.
type Input struct {
	Features [][]float64
	Sources  []int
	Targets  []int
}

// NumNodes returns the number of feature rows.
func (in Input) NumNodes() int { return len(in.Features) }

// Validate checks the input against the expected feature width.
func (in Input) Validate(width int) error {
	if len(in.Features) == 0 {
		return fmt.Errorf("%w: graph has no nodes", ErrModelInput)
	}
	if len(in.Sources) != len(in.Targets) {
		return fmt.Errorf("%w: %d sources but %d targets", ErrModelInput, len(in.Sources), len(in.Targets))
	}
	for i, row := range in.Features {
		if len(row) != width {
			return fmt.Errorf("%w: node %d has %d features, want %d", ErrModelInput, i, len(row), width)
		}
	}
	n := len(in.Features)
	for i := range in.Sources {
		if s, t := in.Sources[i], in.Targets[i]; s < 0 || s >= n || t < 0 || t >= n {
			return fmt.Errorf("%w: edge %d (%d -> %d) out of range", ErrModelInput, i, s, t)
		}
	}
	return nil
}

// Scorer maps a graph to one logit per node.
type Scorer interface {
	Forward(in Input) ([]float64, error)
}

// Trainable is a Scorer that can propagate a loss gradient back into its
// parameters. Backward uses the activations of the most recent Forward.
type Trainable interface {
	Scorer
	Backward(gradLogits []float64) error
	Params() []*Param
}

// Param is a named weight matrix and the gradient from the last Backward.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(name string, rows, cols int) *Param {
	return &Param{
		Name:  name,
		Value: mat.NewDense(rows, cols, nil),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

// ParamCount returns the number of scalar weights across params.
func ParamCount(params []*Param) int {
	n := 0
	for _, p := range params {
		r, c := p.Value.Dims()
		n += r * c
	}
	return n
}
