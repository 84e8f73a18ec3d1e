package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var errNoForward = errors.New("backward called before forward")

// SAGEConfig sizes the mean-aggregation network.
type SAGEConfig struct {
	InputDim  int
	Hidden    int
	Embedding int
	Seed      int64
}

// DefaultSAGEConfig is a one-feature input, 32 hidden units, a 16-wide
// embedding and a fixed seed.
func DefaultSAGEConfig() SAGEConfig {
	return SAGEConfig{InputDim: 1, Hidden: 32, Embedding: 16, Seed: 42}
}

// SAGE is a two-layer mean-aggregation graph network with a linear head:
//
//	h1 = relu(conv1(x)), h2 = conv2(h1), logit = h2·W + b
//
// where conv(h)_i = mean_{j in N(i)} h_j · W_l + b_l + h_i · W_r and N(i)
// spans both edge directions. Parallel edges count once per edge.
type SAGE struct {
	cfg   SAGEConfig
	conv1 *sageLayer
	conv2 *sageLayer
	head  *linear

	pre1 *mat.Dense
	ran  bool
}

// NewSAGE creates a network with weights drawn from U(-1/sqrt(fan_in),
// 1/sqrt(fan_in)) using cfg.Seed.
func NewSAGE(cfg SAGEConfig) (*SAGE, error) {
	if cfg.InputDim <= 0 || cfg.Hidden <= 0 || cfg.Embedding <= 0 {
		return nil, fmt.Errorf("%w: layer sizes must be positive, got %d/%d/%d",
			ErrModelInput, cfg.InputDim, cfg.Hidden, cfg.Embedding)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &SAGE{
		cfg:   cfg,
		conv1: newSAGELayer("conv1", cfg.InputDim, cfg.Hidden, rng),
		conv2: newSAGELayer("conv2", cfg.Hidden, cfg.Embedding, rng),
		head:  newLinear("head", cfg.Embedding, 1, rng),
	}, nil
}

// Params returns every weight in a stable order.
func (s *SAGE) Params() []*Param {
	out := append([]*Param{}, s.conv1.params()...)
	out = append(out, s.conv2.params()...)
	return append(out, s.head.params()...)
}

// Forward computes one logit per node and caches activations for Backward.
func (s *SAGE) Forward(in Input) ([]float64, error) {
	if err := in.Validate(s.cfg.InputDim); err != nil {
		return nil, err
	}
	n := in.NumNodes()
	x := mat.NewDense(n, s.cfg.InputDim, nil)
	for i, row := range in.Features {
		x.SetRow(i, row)
	}
	nb := neighborhoods(n, in.Sources, in.Targets)

	z1 := s.conv1.forward(x, nb)
	s.pre1 = mat.DenseCopyOf(z1)
	h1 := z1
	h1.Apply(func(_, _ int, v float64) float64 { return math.Max(v, 0) }, h1)

	h2 := s.conv2.forward(h1, nb)
	out := s.head.forward(h2)
	s.ran = true
	return mat.Col(nil, 0, out), nil
}

// Backward fills each Param.Grad with d(loss)/d(param) given the loss
// gradient with respect to the logits of the last Forward.
func (s *SAGE) Backward(gradLogits []float64) error {
	if !s.ran {
		return errNoForward
	}
	n, _ := s.pre1.Dims()
	if len(gradLogits) != n {
		return fmt.Errorf("%w: %d gradients for %d nodes", ErrModelInput, len(gradLogits), n)
	}
	dOut := mat.NewDense(n, 1, append([]float64(nil), gradLogits...))

	dh2 := s.head.backward(dOut)
	dh1 := s.conv2.backward(dh2)
	dh1.Apply(func(i, j int, v float64) float64 {
		if s.pre1.At(i, j) > 0 {
			return v
		}
		return 0
	}, dh1)
	s.conv1.backward(dh1)
	return nil
}

// neighborhoods returns, per node, the endpoints of every incident edge.
func neighborhoods(n int, sources, targets []int) [][]int {
	nb := make([][]int, n)
	for i := range sources {
		s, t := sources[i], targets[i]
		nb[t] = append(nb[t], s)
		nb[s] = append(nb[s], t)
	}
	return nb
}

type sageLayer struct {
	wl, bl, wr *Param

	in  *mat.Dense
	agg *mat.Dense
	nb  [][]int
}

func newSAGELayer(name string, in, out int, rng *rand.Rand) *sageLayer {
	l := &sageLayer{
		wl: newParam(name+".lin_l.weight", in, out),
		bl: newParam(name+".lin_l.bias", 1, out),
		wr: newParam(name+".lin_r.weight", in, out),
	}
	bound := 1 / math.Sqrt(float64(in))
	for _, p := range l.params() {
		uniform(p.Value, bound, rng)
	}
	return l
}

func (l *sageLayer) params() []*Param { return []*Param{l.wl, l.bl, l.wr} }

func (l *sageLayer) forward(h *mat.Dense, nb [][]int) *mat.Dense {
	l.in, l.nb = h, nb
	l.agg = meanAggregate(h, nb)

	var z, self mat.Dense
	z.Mul(l.agg, l.wl.Value)
	self.Mul(h, l.wr.Value)
	z.Add(&z, &self)
	addBias(&z, l.bl.Value)
	return &z
}

func (l *sageLayer) backward(dz *mat.Dense) *mat.Dense {
	l.wl.Grad.Mul(l.agg.T(), dz)
	l.wr.Grad.Mul(l.in.T(), dz)
	sumRows(l.bl.Grad, dz)

	var dAgg, dIn mat.Dense
	dAgg.Mul(dz, l.wl.Value.T())
	dIn.Mul(dz, l.wr.Value.T())
	for i, nbrs := range l.nb {
		if len(nbrs) == 0 {
			continue
		}
		src := dAgg.RawRowView(i)
		inv := 1 / float64(len(nbrs))
		for _, j := range nbrs {
			dst := dIn.RawRowView(j)
			for k, v := range src {
				dst[k] += v * inv
			}
		}
	}
	return &dIn
}

func meanAggregate(h *mat.Dense, nb [][]int) *mat.Dense {
	n, f := h.Dims()
	agg := mat.NewDense(n, f, nil)
	for i, nbrs := range nb {
		if len(nbrs) == 0 {
			continue
		}
		dst := agg.RawRowView(i)
		for _, j := range nbrs {
			for k, v := range h.RawRowView(j) {
				dst[k] += v
			}
		}
		inv := 1 / float64(len(nbrs))
		for k := range dst {
			dst[k] *= inv
		}
	}
	return agg
}

type linear struct {
	w, b *Param
	in   *mat.Dense
}

func newLinear(name string, in, out int, rng *rand.Rand) *linear {
	l := &linear{
		w: newParam(name+".weight", in, out),
		b: newParam(name+".bias", 1, out),
	}
	bound := 1 / math.Sqrt(float64(in))
	uniform(l.w.Value, bound, rng)
	uniform(l.b.Value, bound, rng)
	return l
}

func (l *linear) params() []*Param { return []*Param{l.w, l.b} }

func (l *linear) forward(h *mat.Dense) *mat.Dense {
	l.in = h
	var z mat.Dense
	z.Mul(h, l.w.Value)
	addBias(&z, l.b.Value)
	return &z
}

func (l *linear) backward(dz *mat.Dense) *mat.Dense {
	l.w.Grad.Mul(l.in.T(), dz)
	sumRows(l.b.Grad, dz)
	var dIn mat.Dense
	dIn.Mul(dz, l.w.Value.T())
	return &dIn
}

func addBias(z *mat.Dense, bias *mat.Dense) {
	b := bias.RawRowView(0)
	r, _ := z.Dims()
	for i := 0; i < r; i++ {
		row := z.RawRowView(i)
		for j := range row {
			row[j] += b[j]
		}
	}
}

func sumRows(dst *mat.Dense, m *mat.Dense) {
	out := dst.RawRowView(0)
	for j := range out {
		out[j] = 0
	}
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for j, v := range m.RawRowView(i) {
			out[j] += v
		}
	}
}

func uniform(m *mat.Dense, bound float64, rng *rand.Rand) {
	raw := m.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j := range row {
			row[j] = (rng.Float64()*2 - 1) * bound
		}
	}
}
