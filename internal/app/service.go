// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/okian/orbitwatch/internal/adapters/catalog"
	scanqueue "github.com/okian/orbitwatch/internal/adapters/mq/queue"
	workerpool "github.com/okian/orbitwatch/internal/adapters/mq/worker"
	"github.com/okian/orbitwatch/internal/adapters/repository"
	"github.com/okian/orbitwatch/internal/domain/anomaly"
	"github.com/okian/orbitwatch/internal/domain/dedupe"
	"github.com/okian/orbitwatch/internal/domain/model"
	"github.com/okian/orbitwatch/internal/domain/orbit"
	"github.com/okian/orbitwatch/pkg/logger"
	"github.com/okian/orbitwatch/pkg/metrics"
)

// Sentinel error kinds for the service.
var (
	ErrTrainingInProgress = errors.New("training already in progress")
	ErrBackpressure       = errors.New("scan queue is full")
	ErrNotStarted         = errors.New("service not started")
)

const stopTimeout = 10 * time.Second

// TrainingState is the lifecycle of the most recent training run.
type TrainingState string

const (
	TrainingIdle      TrainingState = "idle"
	TrainingRunning   TrainingState = "running"
	TrainingSucceeded TrainingState = "succeeded"
	TrainingFailed    TrainingState = "failed"
)

// TrainingStatus describes the most recent training run.
type TrainingStatus struct {
	State      TrainingState        `json:"state"`
	RunID      string               `json:"run_id,omitempty"`
	Progress   string               `json:"progress,omitempty"`
	Report     *anomaly.TrainReport `json:"report,omitempty"`
	Error      string               `json:"error,omitempty"`
	StartedAt  time.Time            `json:"started_at,omitzero"`
	FinishedAt time.Time            `json:"finished_at,omitzero"`
}

// ScanResult summarises a Scan call.
type ScanResult struct {
	ModelVersion string `json:"model_version"`
	Queued       int    `json:"queued"`
	Skipped      int    `json:"skipped"`
}

// Service implements the API dependencies for the anomaly system.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine  *anomaly.Engine
	catalog *catalog.Store
	board   repository.Store
	deduper dedupe.Deduper
	queue   *scanqueue.InMemoryQueue
	pool    *workerpool.Pool
	scores  *cache.Cache

	// Configuration
	workerCount   int
	queueSize     int
	dedupeTTL     time.Duration
	scoreCacheTTL time.Duration
	seed          int64
	batchSize     int
	catalogPath   string
	records       []orbit.Record
	trainOnStart  bool
	checksum      bool

	// State
	started     bool
	stopping    bool
	trainMu     sync.Mutex
	training    TrainingStatus
	trainCtx    context.Context //nolint:containedctx // cancels background training on Stop
	trainCancel context.CancelFunc
	trainWG     sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of scan workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the scan queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeTTL sets how long a queued (model version, satellite) pair is
// remembered.
func WithDedupeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.dedupeTTL = ttl
		}
	}
}

// WithScoreCacheTTL sets how long scores are memoised.
func WithScoreCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.scoreCacheTTL = ttl
		}
	}
}

// WithSeed seeds model training.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithBatchSize sets the training mini-batch size.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithCatalogPath loads the catalog from a file on Start.
func WithCatalogPath(path string) Option {
	return func(s *Service) {
		s.catalogPath = path
	}
}

// WithCatalog supplies catalog records directly; ignored when a catalog
// path is set.
func WithCatalog(records []orbit.Record) Option {
	return func(s *Service) {
		s.records = records
	}
}

// WithTrainOnStart starts a training run as soon as the service starts.
func WithTrainOnStart(enabled bool) Option {
	return func(s *Service) {
		s.trainOnStart = enabled
	}
}

// WithChecksum enables strict TLE checksum validation.
func WithChecksum(enabled bool) Option {
	return func(s *Service) {
		s.checksum = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     10000,
		dedupeTTL:     time.Hour,
		scoreCacheTTL: 10 * time.Minute,
		seed:          42,
		batchSize:     32,
		training:      TrainingStatus{State: TrainingIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the catalog and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	records := s.records
	if s.catalogPath != "" {
		loaded, err := catalog.LoadFile(ctx, s.catalogPath)
		if err != nil {
			return fmt.Errorf("load catalog %s: %w", s.catalogPath, err)
		}
		records = loaded
	}

	s.logger.Info(ctx, "starting orbitwatch service...", logger.Int("catalog_records", len(records)))

	s.catalog = catalog.NewStore(records)
	s.engine = anomaly.NewEngine(
		anomaly.WithSeed(s.seed),
		anomaly.WithBatchSize(s.batchSize),
		anomaly.WithLogger(s.logger.Named("engine")),
		anomaly.WithExtractor(orbit.NewExtractor(orbit.WithChecksum(s.checksum))),
	)
	s.board = repository.NewTreapStore()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithTTL(s.dedupeTTL))
	s.scores = cache.New(s.scoreCacheTTL, 2*s.scoreCacheTTL)
	s.queue = scanqueue.NewInMemoryQueue(scanqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, s.board)
	s.trainCtx, s.trainCancel = context.WithCancel(context.WithoutCancel(ctx))
	s.pool.Start(context.WithoutCancel(ctx))

	metrics.SetModelReady(false)
	s.started = true
	s.logger.Info(ctx, "orbitwatch service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Duration("dedupe_ttl", s.dedupeTTL),
		logger.Duration("score_cache_ttl", s.scoreCacheTTL),
	)

	if s.trainOnStart && len(records) > 0 {
		if _, err := s.startTrainingLocked(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop cancels any training run, drains the scan queue and stops workers.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	pool, cancelTraining := s.pool, s.trainCancel
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping orbitwatch service...")

	cancelTraining()
	s.trainWG.Wait()

	// workers still score through the service while draining
	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}

	s.mu.Lock()
	s.started = false
	s.stopping = false
	s.mu.Unlock()
	s.logger.Info(ctx, "orbitwatch service stopped")
}

// StartTraining trains a new model over the current catalog in the
// background and returns the run id. Scoring keeps using the previous
// model until the run succeeds.
func (s *Service) StartTraining(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.stopping {
		return "", ErrNotStarted
	}
	return s.startTrainingLocked(ctx)
}

func (s *Service) startTrainingLocked(ctx context.Context) (string, error) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()
	if s.training.State == TrainingRunning {
		return "", ErrTrainingInProgress
	}

	runID := uuid.NewString()
	s.training = TrainingStatus{State: TrainingRunning, RunID: runID, StartedAt: time.Now()}
	records := s.catalog.All(ctx)

	s.trainWG.Add(1)
	go s.train(s.trainCtx, runID, records)
	return runID, nil
}

func (s *Service) train(ctx context.Context, runID string, records []orbit.Record) {
	defer s.trainWG.Done()
	log := s.logger.With(logger.String("train_run", runID))

	report, err := s.engine.Train(ctx, records, func(p anomaly.Progress) {
		s.trainMu.Lock()
		if s.training.RunID == runID {
			s.training.Progress = p.String()
		}
		s.trainMu.Unlock()
		metrics.UpdateTrainingLoss(p.Loss)
	})

	metrics.AddDroppedRecords(report.Dropped)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, anomaly.ErrEmptyDataset) {
			outcome = "empty"
		}
		metrics.RecordTrainingRun(outcome)
		log.Error(ctx, "training failed", logger.Error(err))

		s.trainMu.Lock()
		s.training.State = TrainingFailed
		s.training.Error = err.Error()
		s.training.FinishedAt = time.Now()
		s.trainMu.Unlock()
		return
	}

	// Scores from the previous model are no longer comparable.
	s.board.Reset(ctx, report.ModelVersion)
	s.scores.Flush()

	metrics.RecordTrainingRun("succeeded")
	metrics.RecordTrainingDuration(report.Duration)
	metrics.UpdateTrainingLoss(report.FinalLoss)
	metrics.UpdateTrainingRecords(report.Records)
	metrics.SetModelReady(true)
	log.Info(ctx, "training succeeded",
		logger.String("model_version", report.ModelVersion),
		logger.Int("records", report.Records),
		logger.Int("dropped", report.Dropped))

	s.trainMu.Lock()
	s.training.State = TrainingSucceeded
	s.training.Report = &report
	s.training.FinishedAt = time.Now()
	s.trainMu.Unlock()
}

// TrainingStatus returns the state of the most recent training run.
func (s *Service) TrainingStatus() TrainingStatus {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()
	st := s.training
	if st.Report != nil {
		r := *st.Report
		st.Report = &r
	}
	return st
}

// WaitForTraining blocks until no training run is active or ctx ends.
func (s *Service) WaitForTraining(ctx context.Context) (TrainingStatus, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		st := s.TrainingStatus()
		if st.State != TrainingRunning {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Ready reports whether a trained model is installed.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && s.engine.Ready()
}

// ScoreByID scores the newest catalog record of a satellite, memoised per
// model version. It does not touch the board.
func (s *Service) ScoreByID(ctx context.Context, noradID int) (anomaly.Score, error) {
	if !s.isStarted() {
		return anomaly.Score{}, ErrNotStarted
	}
	version := s.engine.Version()
	if version == "" {
		metrics.RecordScoringError("not_trained")
		return anomaly.Score{}, anomaly.ErrNotTrained
	}

	key := version + "/" + strconv.Itoa(noradID)
	if v, ok := s.scores.Get(key); ok {
		metrics.RecordScoreCacheHit()
		return v.(anomaly.Score), nil
	}

	rec, err := s.catalog.Get(ctx, noradID)
	if err != nil {
		metrics.RecordScoringError("not_found")
		return anomaly.Score{}, err
	}

	start := time.Now()
	score, err := s.engine.Score(ctx, rec)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		kind := "internal"
		switch {
		case errors.Is(err, orbit.ErrExtraction):
			kind = "extraction"
		case errors.Is(err, anomaly.ErrNotTrained):
			kind = "not_trained"
		}
		metrics.RecordScoringError(kind)
		return anomaly.Score{}, err
	}

	metrics.RecordScore(score.Level.String())
	s.scores.Set(score.ModelVersion+"/"+strconv.Itoa(noradID), score, cache.DefaultExpiration)
	return score, nil
}

// Score scores a satellite and records the result on the board. A score
// that raced a retrain is recomputed once against the new model; if the
// board has not switched to that model yet the score is returned unboarded.
func (s *Service) Score(ctx context.Context, noradID int) (anomaly.Score, error) {
	for attempt := 0; ; attempt++ {
		score, err := s.ScoreByID(ctx, noradID)
		if err != nil {
			return anomaly.Score{}, err
		}
		err = s.board.Upsert(ctx, score)
		switch {
		case err == nil:
			return score, nil
		case !errors.Is(err, repository.ErrStaleScore):
			return anomaly.Score{}, err
		case attempt > 0 || score.ModelVersion == s.engine.Version():
			s.logger.Debug(ctx, "score not boarded, model switching",
				logger.Int("norad_id", noradID),
				logger.String("model_version", score.ModelVersion))
			return score, nil
		}
	}
}

// Scan queues every satellite in the catalog for scoring against the
// current model. Pairs already queued for this model are skipped.
func (s *Service) Scan(ctx context.Context) (ScanResult, error) {
	if !s.isStarted() {
		return ScanResult{}, ErrNotStarted
	}
	version := s.engine.Version()
	if version == "" {
		return ScanResult{}, anomaly.ErrNotTrained
	}

	res := ScanResult{ModelVersion: version}
	for _, rec := range s.catalog.All(ctx) {
		job := model.ScanJob{
			JobID:        uuid.NewString(),
			NoradID:      rec.NoradID,
			ModelVersion: version,
			QueuedAt:     time.Now(),
		}
		key := job.DedupeKey()
		if s.deduper.SeenAndRecord(ctx, key) {
			res.Skipped++
			metrics.RecordScanJobSkipped()
			continue
		}
		if !s.queue.Enqueue(ctx, job) {
			s.deduper.Unrecord(ctx, key)
			return res, ErrBackpressure
		}
		res.Queued++
	}

	s.logger.Info(ctx, "scan queued",
		logger.String("model_version", version),
		logger.Int("queued", res.Queued),
		logger.Int("skipped", res.Skipped))
	return res, nil
}

// TopN returns the N most anomalous satellites on the board.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return s.board.TopN(ctx, n)
}

// Rank returns a satellite's board position.
func (s *Service) Rank(ctx context.Context, noradID int) (repository.Entry, error) {
	if !s.isStarted() {
		return repository.Entry{}, ErrNotStarted
	}
	return s.board.Rank(ctx, noradID)
}

// Records lists catalog entries.
func (s *Service) Records(ctx context.Context, q catalog.Query) ([]catalog.Entry, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return s.catalog.List(ctx, q), nil
}

// AddRecords stores submitted element sets in the catalog and returns how
// many were valid. They are scored against the current model from now on
// and join the training set on the next run.
func (s *Service) AddRecords(ctx context.Context, records []orbit.Record) (int, error) {
	if !s.isStarted() {
		return 0, ErrNotStarted
	}
	n := s.catalog.Add(records)
	if n == 0 {
		return 0, catalog.ErrNoRecords
	}
	if version := s.engine.Version(); version != "" {
		for _, rec := range records {
			s.scores.Delete(version + "/" + strconv.Itoa(rec.NoradID))
		}
	}
	s.logger.Info(ctx, "catalog records added",
		logger.Int("stored", n),
		logger.Int("submitted", len(records)))
	return n, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["catalogRecords"] = s.catalog.Count(ctx)
		stats["boardSize"] = s.board.Count(ctx)
		stats["dedupeSize"] = s.deduper.Size()
		stats["modelReady"] = s.engine.Ready()
		stats["modelVersion"] = s.engine.Version()
		if t := s.engine.TrainedAt(); !t.IsZero() {
			stats["trainedAt"] = t
		}
		if layers, params, ok := s.engine.Layers(); ok {
			names := make([]string, len(layers))
			for i, l := range layers {
				names[i] = l.String()
			}
			stats["modelLayers"] = names
			stats["modelParams"] = params
		}
		if norm, ok := s.engine.Stats(); ok {
			stats["featureMean"] = featureMap(norm.Mean)
			stats["featureStd"] = featureMap(norm.Std)
		}
		stats["training"] = string(s.TrainingStatus().State)
	}
	return stats
}

// featureMap labels a feature vector with orbit.FeatureNames.
func featureMap(f orbit.Features) map[string]float64 {
	out := make(map[string]float64, len(f))
	for i, name := range orbit.FeatureNames() {
		out[name] = f[i]
	}
	return out
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
