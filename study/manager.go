package study

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Blanqui04/capstat/aggregate"
	"github.com/Blanqui04/capstat/capability"
	"github.com/Blanqui04/capstat/config"
	"github.com/Blanqui04/capstat/errors"
	"github.com/Blanqui04/capstat/extrapolate"
	"github.com/Blanqui04/capstat/logger"
	"github.com/Blanqui04/capstat/measure"
	"github.com/Blanqui04/capstat/sample"
)

// Request describes one study run.
type Request struct {
	Filter aggregate.Filter

	// Keys restricts the study to specific element keys. Empty studies
	// every key the aggregation returns. A requested key with no data
	// still gets an entry, so absence is visible in the summary.
	Keys []measure.ElementKey

	// Tolerances overrides the source-reported tolerance per element
	// key. An element with neither a source tolerance nor an override
	// fails with a missing-tolerance entry.
	Tolerances map[measure.ElementKey]measure.ToleranceSpec

	// Extrapolate extends samples below the target size with synthetic
	// draws before analysis.
	Extrapolate bool

	// Extrapolation overrides the manager's extrapolation bounds for
	// this run only.
	Extrapolation *extrapolate.Config
}

// Manager runs capability studies.
type Manager struct {
	agg *aggregate.Aggregator
	ext *extrapolate.Manager
	cfg config.StudyConfig
	log *zap.SugaredLogger
}

// NewManager wires the study pipeline together.
func NewManager(agg *aggregate.Aggregator, ext *extrapolate.Manager, cfg config.StudyConfig, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = logger.Logger
	}
	return &Manager{agg: agg, ext: ext, cfg: cfg, log: log}
}

// workers returns the element worker count: the configured value, or one
// per source so a study never outruns the machines feeding it.
func (m *Manager) workers() int {
	if m.cfg.Workers > 0 {
		return m.cfg.Workers
	}
	if n := m.agg.Sources(); n > 0 {
		return n
	}
	return 1
}

// Run executes one study. Aggregation failure fails the run; per-element
// failures are recorded in their entries and the study continues.
func (m *Manager) Run(ctx context.Context, req Request) (*Summary, error) {
	started := time.Now()
	studyID := uuid.NewString()
	ctx = logger.WithStudyID(ctx, studyID)
	log := m.log.With(logger.FieldStudyID, studyID,
		logger.FieldClient, req.Filter.Client,
		logger.FieldReference, req.Filter.Reference,
	)

	rs, err := m.agg.Fetch(ctx, req.Filter)
	if err != nil {
		return nil, err
	}

	keys := rs.Keys()
	if len(req.Keys) > 0 {
		keys = req.Keys
	}
	ext := m.ext
	if req.Extrapolation != nil {
		ext = m.ext.WithConfig(*req.Extrapolation)
	}
	log.Infow("study started",
		logger.FieldCount, len(keys),
		logger.FieldLot, req.Filter.Lot,
	)

	summary := &Summary{
		StudyID:      studyID,
		Client:       req.Filter.Client,
		Reference:    req.Filter.Reference,
		Lot:          req.Filter.Lot,
		StartedAt:    started,
		Partial:      rs.Partial,
		SourceErrors: rs.SourceErrors,
	}

	jobs := make(chan measure.ElementKey)
	entries := make(chan Entry, len(keys))

	var wg sync.WaitGroup
	for i := 0; i < m.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				entries <- m.runElement(ctx, req, rs, ext, key)
			}
		}()
	}

feed:
	for _, key := range keys {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- key:
		}
	}
	close(jobs)
	wg.Wait()
	close(entries)

	for entry := range entries {
		summary.Entries = append(summary.Entries, entry)
	}
	summary.sortEntries()
	summary.FinishedAt = time.Now()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "study canceled")
	}

	log.Infow("study finished",
		logger.FieldCount, len(summary.Entries),
		logger.FieldDurationMS, summary.FinishedAt.Sub(started).Milliseconds(),
		logger.FieldStatus, summary.Counts(),
	)
	return summary, nil
}

// runElement analyzes one element. Every failure is folded into the
// returned entry.
func (m *Manager) runElement(ctx context.Context, req Request, rs *aggregate.ResultSet, ext *extrapolate.Manager, key measure.ElementKey) Entry {
	log := m.log.With(logger.FieldsFromContext(ctx)...)
	records := rs.RecordsFor(key)

	tol, ok := req.Tolerances[key.Normalized()]
	if !ok {
		if tol, ok = rs.ToleranceFor(key); !ok {
			tol = measure.MissingTolerance()
		}
	}

	s, err := sample.FromRecords(key, tol, records)
	if err != nil {
		log.Warnw("element skipped",
			logger.FieldElement, key.ID(),
			logger.FieldErrorKind, errors.Kind(err),
			logger.FieldError, err,
		)
		return newEntryError(key, err)
	}

	entry := Entry{
		Key:           key,
		Tolerance:     s.Tolerance(),
		ParseFailures: s.ParseFailures(),
		Conflicts:     countConflicts(records),
	}

	if req.Extrapolate && s.NObserved() >= 2 {
		extRes, err := ext.Extend(ctx, s)
		switch {
		case err == nil:
			entry.Extrapolation = extRes
			s.AppendSynthetic(extRes.Synthetic...)
			if eerr := extRes.Err(); eerr != nil {
				// advisory, analysis still runs on the best attempt
				entry.Err = eerr
				entry.ErrKind = errors.Kind(eerr)
			}
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			entry.Err = err
			entry.ErrKind = errors.Kind(err)
			return entry
		default:
			// analysis proceeds on the observed values alone
			log.Warnw("extrapolation skipped",
				logger.FieldElement, key.ID(),
				logger.FieldErrorKind, errors.Kind(err),
				logger.FieldError, err,
			)
		}
	}

	res, err := capability.AnalyzeWith(s, m.cfg.MinSampleSize)
	entry.Result = res
	if err != nil {
		entry.Err = err
		entry.ErrKind = errors.Kind(err)
	}

	log.Debugw("element analyzed",
		logger.FieldElement, key.ID(),
		logger.FieldSampleSize, res.N,
		logger.FieldSynthetic, res.NSynthetic,
		logger.FieldStatus, res.Status,
	)
	return entry
}

func countConflicts(records []measure.MeasurementRecord) int {
	n := 0
	for _, rec := range records {
		if rec.Conflict {
			n++
		}
	}
	return n
}
