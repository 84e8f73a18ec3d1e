package model

import (
	"fmt"
	"math"
)

// Sigmoid is the logistic function, stable for large |z|.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// BCEWithLogits returns the mean binary cross-entropy over masked nodes and
// the gradient of that mean with respect to every logit. Unmasked nodes get a
// zero gradient.
func BCEWithLogits(logits []float64, labels []int, mask []bool) (float64, []float64, error) {
	if len(labels) != len(logits) || len(mask) != len(logits) {
		return 0, nil, fmt.Errorf("%w: %d logits, %d labels, %d mask entries",
			ErrModelInput, len(logits), len(labels), len(mask))
	}
	m := 0
	for _, on := range mask {
		if on {
			m++
		}
	}
	if m == 0 {
		return 0, nil, fmt.Errorf("%w: empty training mask", ErrModelInput)
	}

	grad := make([]float64, len(logits))
	var loss float64
	for i, z := range logits {
		if !mask[i] {
			continue
		}
		y := float64(labels[i])
		loss += math.Max(z, 0) - z*y + math.Log1p(math.Exp(-math.Abs(z)))
		grad[i] = (Sigmoid(z) - y) / float64(m)
	}
	return loss / float64(m), grad, nil
}
