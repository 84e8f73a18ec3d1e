package model

import "math"

// Adam is the adaptive first/second-moment optimizer with bias correction.
type Adam struct {
	LR      float64
	Beta1   float64
	Beta2   float64
	Epsilon float64

	t     int
	state map[*Param]*moments
}

type moments struct {
	m, v []float64
}

// NewAdam returns an optimizer with the usual moment decay rates.
func NewAdam(lr float64) *Adam {
	return &Adam{LR: lr, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}
}

// Steps returns how many updates have been applied.
func (a *Adam) Steps() int { return a.t }

// Step applies one update to every param from its current Grad.
func (a *Adam) Step(params []*Param) {
	if a.state == nil {
		a.state = make(map[*Param]*moments)
	}
	a.t++
	c1 := 1 - math.Pow(a.Beta1, float64(a.t))
	c2 := 1 - math.Pow(a.Beta2, float64(a.t))

	for _, p := range params {
		value := p.Value.RawMatrix().Data
		grad := p.Grad.RawMatrix().Data
		st, ok := a.state[p]
		if !ok {
			st = &moments{m: make([]float64, len(value)), v: make([]float64, len(value))}
			a.state[p] = st
		}
		for i, g := range grad {
			st.m[i] = a.Beta1*st.m[i] + (1-a.Beta1)*g
			st.v[i] = a.Beta2*st.v[i] + (1-a.Beta2)*g*g
			mHat := st.m[i] / c1
			vHat := st.v[i] / c2
			value[i] -= a.LR * mHat / (math.Sqrt(vHat) + a.Epsilon)
		}
	}
}
