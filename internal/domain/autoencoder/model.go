// Package autoencoder implements the small dense reconstruction network used
// to flag unusual orbits: 6→12→6→3→6→12→6 with a 3-unit bottleneck.
package autoencoder

import (
	"math"
	"math/rand"
	"strconv"
)

// Activation is a layer non-linearity.
type Activation int

const (
	Linear Activation = iota
	Tanh
	ReLU
)

func (a Activation) String() string {
	switch a {
	case Tanh:
		return "tanh"
	case ReLU:
		return "relu"
	default:
		return "linear"
	}
}

// LayerSpec describes one dense layer.
type LayerSpec struct {
	Units      int
	Activation Activation
}

func (l LayerSpec) String() string {
	return strconv.Itoa(l.Units) + "/" + l.Activation.String()
}

// InputSize is the width of the model input and output.
const InputSize = 6

// Topology is the fixed layer stack after the input. Widening the
// bottleneck defeats novelty detection; narrowing it below 3 under-fits
// mixed LEO/GEO populations.
var Topology = []LayerSpec{
	{Units: 12, Activation: Tanh},
	{Units: 6, Activation: ReLU},
	{Units: 3, Activation: ReLU},
	{Units: 6, Activation: ReLU},
	{Units: 12, Activation: Tanh},
	{Units: InputSize, Activation: Linear},
}

// layer is a dense layer; w is row-major [out][in].
type layer struct {
	in, out int
	act     Activation
	w       []float64
	b       []float64
}

func (l *layer) forward(x, z, a []float64) {
	for o := 0; o < l.out; o++ {
		sum := l.b[o]
		row := l.w[o*l.in : (o+1)*l.in]
		for i, xi := range x {
			sum += row[i] * xi
		}
		z[o] = sum
		a[o] = activate(l.act, sum)
	}
}

func activate(act Activation, z float64) float64 {
	switch act {
	case Tanh:
		return math.Tanh(z)
	case ReLU:
		if z > 0 {
			return z
		}
		return 0
	default:
		return z
	}
}

// derivative returns d(act)/dz given the pre-activation z and output a.
func derivative(act Activation, z, a float64) float64 {
	switch act {
	case Tanh:
		return 1 - a*a
	case ReLU:
		if z > 0 {
			return 1
		}
		return 0
	default:
		return 1
	}
}

// Model is the autoencoder. A trained Model is never mutated again, so
// Predict is safe for concurrent use.
type Model struct {
	layers []*layer
}

// New builds a freshly initialised model: Glorot-uniform weights and zero
// biases drawn from rng.
func New(rng *rand.Rand) *Model {
	m := &Model{layers: make([]*layer, len(Topology))}
	in := InputSize
	for i, spec := range Topology {
		l := &layer{
			in:  in,
			out: spec.Units,
			act: spec.Activation,
			w:   make([]float64, spec.Units*in),
			b:   make([]float64, spec.Units),
		}
		limit := math.Sqrt(6.0 / float64(in+spec.Units))
		for j := range l.w {
			l.w[j] = (rng.Float64()*2 - 1) * limit
		}
		m.layers[i] = l
		in = spec.Units
	}
	return m
}

// Predict reconstructs x. x must have InputSize components.
func (m *Model) Predict(x []float64) []float64 {
	cur := x
	for _, l := range m.layers {
		z := make([]float64, l.out)
		a := make([]float64, l.out)
		l.forward(cur, z, a)
		cur = a
	}
	return cur
}

// ParamCount returns the number of trainable parameters.
func (m *Model) ParamCount() int {
	n := 0
	for _, l := range m.layers {
		n += len(l.w) + len(l.b)
	}
	return n
}

// Layers describes the model shape.
func (m *Model) Layers() []LayerSpec {
	out := make([]LayerSpec, len(m.layers))
	for i, l := range m.layers {
		out[i] = LayerSpec{Units: l.out, Activation: l.act}
	}
	return out
}

// MSE is the mean squared difference between a and b.
func MSE(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum / float64(len(a))
}
