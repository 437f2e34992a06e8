package autoencoder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Training defaults.
const (
	Epochs           = 30
	LearningRate     = 0.01
	DefaultBatchSize = 32
	progressEvery    = 5
)

var (
	// ErrDiverged is returned when an epoch loss is NaN or infinite.
	ErrDiverged = errors.New("autoencoder: training diverged")
	// ErrNoData is returned when Fit is given no samples.
	ErrNoData = errors.New("autoencoder: no training data")
	// ErrShape is returned when a sample is not InputSize wide.
	ErrShape = errors.New("autoencoder: sample has wrong width")
)

// Config controls a training run. Zero fields take the defaults above.
type Config struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	// Rand shuffles the data each epoch. Required for reproducible runs;
	// a nil Rand is seeded with 1.
	Rand *rand.Rand
}

func (c Config) withDefaults() Config {
	if c.Epochs <= 0 {
		c.Epochs = Epochs
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.LearningRate <= 0 {
		c.LearningRate = LearningRate
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(1))
	}
	return c
}

// ProgressFunc receives the epoch just finished (1-based), the total epoch
// count and that epoch's mean loss.
type ProgressFunc func(epoch, epochs int, loss float64)

// Report summarises a finished run.
type Report struct {
	Epochs      int
	FinalLoss   float64
	LossHistory []float64
}

// Fit trains model in place on data with Adam and MSE loss. The model is
// left in an unspecified state on error.
func Fit(ctx context.Context, model *Model, data [][]float64, cfg Config, progress ProgressFunc) (Report, error) {
	if len(data) == 0 {
		return Report{}, ErrNoData
	}
	for i, x := range data {
		if len(x) != InputSize {
			return Report{}, fmt.Errorf("sample %d: %w", i, ErrShape)
		}
	}
	cfg = cfg.withDefaults()

	opt := newAdam(model, cfg.LearningRate)
	ws := newWorkspace(model)
	order := make([]int, len(data))
	for i := range order {
		order[i] = i
	}

	rep := Report{LossHistory: make([]float64, 0, cfg.Epochs)}
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		cfg.Rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var total float64
		for start := 0; start < len(order); start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(order))
			total += ws.batch(model, data, order[start:end])
			opt.apply(model, ws.grad)
		}

		loss := total / float64(len(data))
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return rep, fmt.Errorf("epoch %d: %w", epoch, ErrDiverged)
		}
		rep.Epochs = epoch
		rep.FinalLoss = loss
		rep.LossHistory = append(rep.LossHistory, loss)

		if progress != nil && (epoch%progressEvery == 0 || epoch == cfg.Epochs) {
			progress(epoch, cfg.Epochs, loss)
		}
	}
	return rep, nil
}

// workspace holds per-layer activations and gradient accumulators reused
// across batches.
type workspace struct {
	z, a  [][]float64
	delta [][]float64
	grad  [][]float64
}

func newWorkspace(m *Model) *workspace {
	ws := &workspace{}
	for _, l := range m.layers {
		ws.z = append(ws.z, make([]float64, l.out))
		ws.a = append(ws.a, make([]float64, l.out))
		ws.delta = append(ws.delta, make([]float64, l.out))
		ws.grad = append(ws.grad, make([]float64, len(l.w)), make([]float64, len(l.b)))
	}
	return ws
}

// batch runs forward and backward passes over the samples at idx,
// leaving averaged gradients in ws.grad. It returns the summed
// per-sample MSE.
func (ws *workspace) batch(m *Model, data [][]float64, idx []int) float64 {
	for _, g := range ws.grad {
		clear(g)
	}

	last := len(m.layers) - 1
	scale := 2.0 / float64(len(idx)*InputSize)
	var total float64

	for _, k := range idx {
		x := data[k]

		in := x
		for li, l := range m.layers {
			l.forward(in, ws.z[li], ws.a[li])
			in = ws.a[li]
		}
		y := ws.a[last]
		total += MSE(y, x)

		for o := range y {
			ws.delta[last][o] = scale * (y[o] - x[o]) * derivative(m.layers[last].act, ws.z[last][o], y[o])
		}
		for li := last; li >= 0; li-- {
			l := m.layers[li]
			prev := x
			if li > 0 {
				prev = ws.a[li-1]
			}
			gw, gb := ws.grad[2*li], ws.grad[2*li+1]
			d := ws.delta[li]
			for o := 0; o < l.out; o++ {
				gb[o] += d[o]
				row := gw[o*l.in : (o+1)*l.in]
				for i, p := range prev {
					row[i] += d[o] * p
				}
			}
			if li == 0 {
				break
			}
			below := m.layers[li-1]
			pd := ws.delta[li-1]
			for i := 0; i < l.in; i++ {
				var sum float64
				for o := 0; o < l.out; o++ {
					sum += l.w[o*l.in+i] * d[o]
				}
				pd[i] = sum * derivative(below.act, ws.z[li-1][i], ws.a[li-1][i])
			}
		}
	}
	return total
}
