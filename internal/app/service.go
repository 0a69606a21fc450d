// Package service wires the scoring engine, store, queue and workers
// into the running application and implements the dependencies required
// by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/shxuryaaz/BlackSwan-Credit-system/internal/adapters/mq/queue"
	workerpool "github.com/shxuryaaz/BlackSwan-Credit-system/internal/adapters/mq/worker"
	repository "github.com/shxuryaaz/BlackSwan-Credit-system/internal/adapters/repository"
	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/dedupe"
	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/events"
	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/model"
	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/scoring"
	"github.com/shxuryaaz/BlackSwan-Credit-system/pkg/logger"
	"github.com/shxuryaaz/BlackSwan-Credit-system/pkg/metrics"
)

// Recompute job reasons.
const (
	ReasonEventIngested = "event_ingested"
	ReasonScheduled     = "scheduled"
	ReasonManual        = "manual"
)

// IngestRequest is one raw news item submitted for ingestion. Type is
// optional; when empty it is classified from the headline.
type IngestRequest struct {
	IssuerID   string    `json:"issuer_id"`
	Headline   string    `json:"headline"`
	URL        string    `json:"url"`
	Sentiment  float64   `json:"sentiment"`
	Type       string    `json:"type,omitempty"`
	OccurredAt time.Time `json:"ts"`
	Source     string    `json:"source,omitempty"`
}

// Service implements the scoring pipeline end to end: ingest, dedupe,
// persist, enqueue and recompute.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	deduper  dedupe.Deduper
	jobQueue jobqueue.Queue
	engine   *scoring.Engine
	pool     *workerpool.Pool

	// Configuration
	dbPath      string
	workerCount int
	queueSize   int
	dedupeSize  int
	engineOpts  []scoring.Option

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a store, bypassing the SQLite default.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDBPath sets the SQLite database path.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithEngineOptions forwards model parameter overrides to the engine.
func WithEngineOptions(opts ...scoring.Option) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
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
		dbPath:      "blackswan.db",
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100000,
		dedupeSize:  50000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting scoring service...")

	if s.store == nil {
		store, err := repository.NewSQLiteStore(s.dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)
	s.engine = scoring.NewEngine(s.engineOpts...)

	s.pool = workerpool.NewPool(s.workerCount, s.jobQueue, s, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("modelVersion", s.engine.Config().ModelVersion),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoring service...")

	// Pool shutdown closes the queue first so pending jobs drain.
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

// Engine returns the configured scoring engine.
func (s *Service) Engine() *scoring.Engine {
	return s.engine
}

// Compute runs one scoring pass for an issuer from its latest stored
// inputs. It does not persist the result; workers pair it with the
// store's AppendScore.
func (s *Service) Compute(ctx context.Context, issuerID string) (model.ScoreResult, error) {
	if _, err := s.store.GetIssuer(ctx, issuerID); err != nil {
		return model.ScoreResult{}, fmt.Errorf("compute %s: %w", issuerID, err)
	}

	cfg := s.engine.Config()
	asOf := time.Now().UTC()

	features, err := s.store.LatestFeatures(ctx, issuerID, s.engine.FeatureNames())
	if err != nil {
		return model.ScoreResult{}, fmt.Errorf("load features for %s: %w", issuerID, err)
	}

	activeEvents, err := s.store.ActiveEvents(ctx, issuerID, asOf.Add(-cfg.EventWindow), cfg.DecayFloor)
	if err != nil {
		return model.ScoreResult{}, fmt.Errorf("load events for %s: %w", issuerID, err)
	}

	macros, err := s.store.LatestMacros(ctx)
	if err != nil {
		return model.ScoreResult{}, fmt.Errorf("load macros: %w", err)
	}

	return s.engine.Score(ctx, issuerID, scoring.Inputs{
		Features: features,
		Events:   activeEvents,
		Macros:   macros,
		AsOf:     asOf,
	})
}

// EnqueueRecompute submits an asynchronous recompute job for an issuer.
func (s *Service) EnqueueRecompute(ctx context.Context, issuerID, reason string) bool {
	job := jobqueue.Job{
		JobID:      uuid.NewString(),
		IssuerID:   issuerID,
		Reason:     reason,
		EnqueuedAt: time.Now().UTC(),
	}

	ok := s.jobQueue.Enqueue(ctx, job)
	if !ok {
		s.logger.Warn(ctx, "recompute enqueue rejected",
			logger.String("issuer_id", issuerID),
			logger.String("reason", reason),
		)
	}
	return ok
}

// RecomputeAll enqueues a recompute for every tracked issuer and returns
// how many jobs were accepted.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	issuers, err := s.store.ListIssuers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list issuers: %w", err)
	}

	accepted := 0
	for _, issuer := range issuers {
		if s.EnqueueRecompute(ctx, issuer.ID, ReasonScheduled) {
			accepted++
		}
	}

	metrics.RecordBatchRecompute()
	metrics.UpdateIssuersTracked(len(issuers))
	s.logger.Info(ctx, "batch recompute enqueued",
		logger.Int("issuers", len(issuers)),
		logger.Int("accepted", accepted),
	)

	return accepted, nil
}

// IngestEvent classifies, weights, dedupes and persists a news item,
// then triggers a recompute for the issuer. A duplicate returns
// repository.ErrDuplicateEvent; the caller treats it as already
// processed.
func (s *Service) IngestEvent(ctx context.Context, req IngestRequest) (model.EventRecord, error) {
	if _, err := s.store.GetIssuer(ctx, req.IssuerID); err != nil {
		return model.EventRecord{}, fmt.Errorf("ingest for %s: %w", req.IssuerID, err)
	}

	eventType := req.Type
	if eventType == "" {
		eventType = events.Classify(req.Headline)
	}

	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	record := model.EventRecord{
		ID:          events.ContentHash(req.Headline, req.URL),
		IssuerID:    req.IssuerID,
		Type:        eventType,
		Sentiment:   req.Sentiment,
		Weight:      events.Weight(eventType, req.Sentiment),
		DecayFactor: 1.0,
		Headline:    req.Headline,
		URL:         req.URL,
		OccurredAt:  occurredAt,
		Source:      req.Source,
	}

	if s.deduper.SeenAndRecord(ctx, record.ID) {
		metrics.RecordEventDuplicate()
		return model.EventRecord{}, repository.ErrDuplicateEvent
	}

	if err := s.store.RecordEvent(ctx, record); err != nil {
		if err == repository.ErrDuplicateEvent {
			// Already stored from a previous run; keep the dedupe entry.
			metrics.RecordEventDuplicate()
			return model.EventRecord{}, err
		}
		// Failed write: allow a retry of the same content hash.
		s.deduper.Unrecord(ctx, record.ID)
		return model.EventRecord{}, fmt.Errorf("record event: %w", err)
	}

	metrics.RecordEventIngested()
	s.logger.Info(ctx, "event ingested",
		logger.String("issuer_id", record.IssuerID),
		logger.String("type", record.Type),
		logger.Float64("weight", record.Weight),
	)

	s.EnqueueRecompute(ctx, record.IssuerID, ReasonEventIngested)

	return record, nil
}

// RefreshDecay recomputes decay factors for all stored events using the
// engine's window and reports how many records were lowered.
func (s *Service) RefreshDecay(ctx context.Context) (int64, error) {
	start := time.Now()
	updated, err := s.store.RefreshDecay(ctx, time.Now().UTC(), s.engine.Config().EventWindow)
	metrics.RecordDecayRefreshDuration(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return 0, fmt.Errorf("refresh decay: %w", err)
	}

	s.logger.Info(ctx, "decay refreshed", logger.Int64("updated", updated))
	return updated, nil
}

// CreateIssuer registers a new issuer.
func (s *Service) CreateIssuer(ctx context.Context, issuer repository.Issuer) error {
	return s.store.CreateIssuer(ctx, issuer)
}

// GetIssuer looks up one issuer.
func (s *Service) GetIssuer(ctx context.Context, id string) (repository.Issuer, error) {
	return s.store.GetIssuer(ctx, id)
}

// ListIssuers returns all tracked issuers.
func (s *Service) ListIssuers(ctx context.Context) ([]repository.Issuer, error) {
	issuers, err := s.store.ListIssuers(ctx)
	if err == nil {
		metrics.UpdateIssuersTracked(len(issuers))
	}
	return issuers, err
}

// RecordFeature stores one feature snapshot.
func (s *Service) RecordFeature(ctx context.Context, fv model.FeatureValue) error {
	if _, err := s.store.GetIssuer(ctx, fv.IssuerID); err != nil {
		return fmt.Errorf("record feature for %s: %w", fv.IssuerID, err)
	}
	if fv.ObservedAt.IsZero() {
		fv.ObservedAt = time.Now().UTC()
	}
	return s.store.RecordFeature(ctx, fv)
}

// RecordMacro stores one macro observation.
func (s *Service) RecordMacro(ctx context.Context, mi model.MacroIndicator) error {
	if mi.ObservedAt.IsZero() {
		mi.ObservedAt = time.Now().UTC()
	}
	return s.store.RecordMacro(ctx, mi)
}

// LatestScore returns the most recent score record for an issuer.
func (s *Service) LatestScore(ctx context.Context, issuerID string) (model.ScoreResult, error) {
	return s.store.LatestScore(ctx, issuerID)
}

// ScoreHistory returns an issuer's score records, newest first.
func (s *Service) ScoreHistory(ctx context.Context, issuerID string, limit int) ([]model.ScoreResult, error) {
	return s.store.ScoreHistory(ctx, issuerID, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		stats["queueLength"] = s.jobQueue.Len(context.Background())
		stats["dedupeEntries"] = s.deduper.Size()
		stats["modelVersion"] = s.engine.Config().ModelVersion
	}

	return stats
}
