// Package anomaly trains the orbit autoencoder over a catalog and scores
// individual records against the most recently trained model.
package anomaly

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/orbitwatch/internal/domain/autoencoder"
	"github.com/okian/orbitwatch/internal/domain/normalize"
	"github.com/okian/orbitwatch/internal/domain/orbit"
	"github.com/okian/orbitwatch/pkg/logger"
)

const defaultRandomSeed = 42

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSeed seeds weight initialisation and epoch shuffling.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible training
	}
}

// WithBatchSize sets the mini-batch size used by Train.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithExtractor replaces the feature extractor, e.g. for strict checksums.
func WithExtractor(x *orbit.Extractor) Option {
	return func(e *Engine) {
		if x != nil {
			e.extractor = x
		}
	}
}

// WithConcurrency bounds the goroutines used by ScoreAll.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// Score is the result of scoring one record.
type Score struct {
	NoradID             int          `json:"norad_id"`
	RiskScore           float64      `json:"risk_score"`
	Level               Level        `json:"risk_level"`
	ReconstructionError float64      `json:"reconstruction_error"`
	Technique           string       `json:"technique"`
	Classification      string       `json:"classification"`
	Regime              orbit.Regime `json:"regime"`
	ModelVersion        string       `json:"model_version"`
	ScoredAt            time.Time    `json:"scored_at"`
}

// Progress is reported while a training run is in flight.
type Progress struct {
	RunID  string  `json:"run_id"`
	Epoch  int     `json:"epoch"`
	Epochs int     `json:"epochs"`
	Loss   float64 `json:"loss"`
}

func (p Progress) String() string {
	return fmt.Sprintf("Epoch %d/%d - loss: %.4f", p.Epoch, p.Epochs, p.Loss)
}

// ProgressFunc receives training progress. It is advisory; it must not block.
type ProgressFunc func(Progress)

// TrainReport summarises a successful training run.
type TrainReport struct {
	ModelVersion string        `json:"model_version"`
	Records      int           `json:"records"`
	Dropped      int           `json:"dropped"`
	FinalLoss    float64       `json:"final_loss"`
	Duration     time.Duration `json:"duration"`
	TrainedAt    time.Time     `json:"trained_at"`
}

// snapshot is the immutable (stats, model) pair installed by Train.
type snapshot struct {
	stats     normalize.Stats
	model     *autoencoder.Model
	version   string
	trainedAt time.Time
	records   int
	loss      float64
}

// Engine owns the trained state. Train calls are serialised; Score reads a
// single snapshot and never observes a half-installed model.
type Engine struct {
	state atomic.Pointer[snapshot]

	mu  sync.Mutex // serialises Train; guards rng
	rng *rand.Rand

	extractor   *orbit.Extractor
	logger      logger.Logger
	batchSize   int
	concurrency int
	now         func() time.Time
}

// NewEngine creates an untrained engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rng:         rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // reproducible training
		extractor:   orbit.NewExtractor(),
		logger:      logger.Nop(),
		batchSize:   autoencoder.DefaultBatchSize,
		concurrency: runtime.GOMAXPROCS(0),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ready reports whether a model is installed.
func (e *Engine) Ready() bool {
	return e.state.Load() != nil
}

// Version returns the installed model version, or "" when untrained.
func (e *Engine) Version() string {
	if s := e.state.Load(); s != nil {
		return s.version
	}
	return ""
}

// TrainedAt returns when the installed model was trained.
func (e *Engine) TrainedAt() time.Time {
	if s := e.state.Load(); s != nil {
		return s.trainedAt
	}
	return time.Time{}
}

// Stats returns the installed normalization statistics.
func (e *Engine) Stats() (normalize.Stats, bool) {
	if s := e.state.Load(); s != nil {
		return s.stats, true
	}
	return normalize.Stats{}, false
}

// Layers returns the installed model's layer stack and its trainable
// parameter count.
func (e *Engine) Layers() ([]autoencoder.LayerSpec, int, bool) {
	s := e.state.Load()
	if s == nil {
		return nil, 0, false
	}
	return s.model.Layers(), s.model.ParamCount(), true
}

// Train fits normalization statistics and a fresh model to catalog and
// installs them together. Records that fail extraction are dropped. On any
// error the previously installed model stays in place.
func (e *Engine) Train(ctx context.Context, catalog []orbit.Record, progress ProgressFunc) (TrainReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	runID := uuid.NewString()
	log := e.logger.With(logger.String("run_id", runID))

	vectors := make([]orbit.Features, 0, len(catalog))
	dropped := 0
	for _, rec := range catalog {
		f, err := e.extractor.Extract(rec)
		if err != nil {
			dropped++
			log.Debug(ctx, "dropping record", logger.Int("norad_id", rec.NoradID), logger.Error(err))
			continue
		}
		vectors = append(vectors, f)
	}
	if dropped > 0 {
		log.Warn(ctx, "records failed extraction", logger.Int("dropped", dropped), logger.Int("total", len(catalog)))
	}
	if len(vectors) == 0 {
		return TrainReport{Dropped: dropped}, ErrEmptyDataset
	}

	stats, err := normalize.Fit(vectors)
	if err != nil {
		return TrainReport{Dropped: dropped}, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}
	data := make([][]float64, len(vectors))
	for i, v := range stats.TransformAll(vectors) {
		data[i] = v.Slice()
	}

	model := autoencoder.New(e.rng)
	log.Info(ctx, "training started",
		logger.Int("records", len(vectors)),
		logger.Int("batch_size", e.batchSize),
		logger.Int("epochs", autoencoder.Epochs))

	rep, err := autoencoder.Fit(ctx, model, data, autoencoder.Config{
		BatchSize: e.batchSize,
		Rand:      e.rng,
	}, func(epoch, epochs int, loss float64) {
		p := Progress{RunID: runID, Epoch: epoch, Epochs: epochs, Loss: loss}
		log.Debug(ctx, p.String())
		if progress != nil {
			progress(p)
		}
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return TrainReport{Dropped: dropped}, err
		}
		return TrainReport{Dropped: dropped}, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}

	trainedAt := e.now()
	e.state.Store(&snapshot{
		stats:     stats,
		model:     model,
		version:   runID,
		trainedAt: trainedAt,
		records:   len(vectors),
		loss:      rep.FinalLoss,
	})

	report := TrainReport{
		ModelVersion: runID,
		Records:      len(vectors),
		Dropped:      dropped,
		FinalLoss:    rep.FinalLoss,
		Duration:     trainedAt.Sub(start),
		TrainedAt:    trainedAt,
	}
	log.Info(ctx, "model installed",
		logger.Float64("final_loss", rep.FinalLoss),
		logger.Duration("duration", report.Duration))
	return report, nil
}

// Score runs rec through the installed model. It fails with ErrNotTrained
// before the first successful Train and with orbit.ErrExtraction for an
// undecodable record.
func (e *Engine) Score(ctx context.Context, rec orbit.Record) (Score, error) {
	s := e.state.Load()
	if s == nil {
		return Score{}, ErrNotTrained
	}
	return e.score(ctx, s, rec)
}

func (e *Engine) score(ctx context.Context, s *snapshot, rec orbit.Record) (Score, error) {
	if err := ctx.Err(); err != nil {
		return Score{}, err
	}
	f, err := e.extractor.Extract(rec)
	if err != nil {
		return Score{}, err
	}

	x := s.stats.Transform(f).Slice()
	mse := autoencoder.MSE(s.model.Predict(x), x)
	risk := RiskScore(mse)
	regime := orbit.RegimeOf(f)
	technique, classification := Tags(rec.NoradID, regime)

	return Score{
		NoradID:             rec.NoradID,
		RiskScore:           risk,
		Level:               LevelFor(risk),
		ReconstructionError: mse,
		Technique:           technique,
		Classification:      classification,
		Regime:              regime,
		ModelVersion:        s.version,
		ScoredAt:            e.now(),
	}, nil
}

// ScoreAll scores records concurrently against one snapshot. Results and
// errors are index-aligned with records; a failed record has a zero Score
// and a non-nil error.
func (e *Engine) ScoreAll(ctx context.Context, records []orbit.Record) ([]Score, []error) {
	scores := make([]Score, len(records))
	errs := make([]error, len(records))

	s := e.state.Load()
	if s == nil {
		for i := range errs {
			errs[i] = ErrNotTrained
		}
		return scores, errs
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, rec := range records {
		g.Go(func() error {
			scores[i], errs[i] = e.score(ctx, s, rec)
			return nil
		})
	}
	_ = g.Wait()
	return scores, errs
}
