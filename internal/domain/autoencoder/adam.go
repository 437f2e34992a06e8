package autoencoder

import "math"

// Adam hyper-parameters.
const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
)

// adam keeps first and second moment estimates for every parameter of a
// model, laid out in layer order: weights then biases.
type adam struct {
	lr   float64
	step int
	m    [][]float64
	v    [][]float64
}

func newAdam(model *Model, lr float64) *adam {
	o := &adam{lr: lr}
	for _, l := range model.layers {
		o.m = append(o.m, make([]float64, len(l.w)), make([]float64, len(l.b)))
		o.v = append(o.v, make([]float64, len(l.w)), make([]float64, len(l.b)))
	}
	return o
}

// apply updates the model in place from gradients g laid out like o.m.
func (o *adam) apply(model *Model, g [][]float64) {
	o.step++
	t := float64(o.step)
	lrT := o.lr * math.Sqrt(1-math.Pow(adamBeta2, t)) / (1 - math.Pow(adamBeta1, t))

	for li, l := range model.layers {
		o.update(l.w, g[2*li], o.m[2*li], o.v[2*li], lrT)
		o.update(l.b, g[2*li+1], o.m[2*li+1], o.v[2*li+1], lrT)
	}
}

func (o *adam) update(params, grad, m, v []float64, lrT float64) {
	for i, gi := range grad {
		m[i] = adamBeta1*m[i] + (1-adamBeta1)*gi
		v[i] = adamBeta2*v[i] + (1-adamBeta2)*gi*gi
		params[i] -= lrT * m[i] / (math.Sqrt(v[i]) + adamEpsilon)
	}
}
