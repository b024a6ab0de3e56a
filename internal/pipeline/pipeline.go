package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkessler/pulsetrack/internal/analyze"
	"github.com/mkessler/pulsetrack/internal/config"
	"github.com/mkessler/pulsetrack/internal/database"
	"github.com/mkessler/pulsetrack/internal/fetch"
	"github.com/mkessler/pulsetrack/internal/metrics"
	"github.com/mkessler/pulsetrack/internal/store"
)

// EntityResult holds the outcome of processing a single entity.
type EntityResult struct {
	Entity       string
	Stage        string
	ItemCount    int
	RawPath      string
	AnalyzedPath string
	InsightsPath string
	Duration     time.Duration
	Err          error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Entities map[string]EntityResult
}

// OKCount returns the number of entities that completed without error.
func (r *Result) OKCount() int {
	n := 0
	for _, er := range r.Entities {
		if er.Err == nil {
			n++
		}
	}
	return n
}

// ErrorCount returns the number of entities that failed.
func (r *Result) ErrorCount() int {
	return len(r.Entities) - r.OKCount()
}

// Orchestrator runs the fetch, analyze, and store stages for a set of
// entities using a bounded worker pool.
type Orchestrator struct {
	cfg      *config.Config
	store    *store.Store
	fetcher  fetch.Fetcher
	analyzer *analyze.Analyzer
	db       *database.DB
	metrics  *metrics.Metrics
}

// New creates a new orchestrator. db and m may be nil, in which case
// ledger recording and metrics are skipped.
func New(cfg *config.Config, st *store.Store, fetcher fetch.Fetcher, analyzer *analyze.Analyzer, db *database.DB, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    st,
		fetcher:  fetcher,
		analyzer: analyzer,
		db:       db,
		metrics:  m,
	}
}

// ProcessEntities processes the given entities concurrently. The returned
// result contains exactly one entry per requested entity. A failed or
// panicking entity never affects the others.
func (o *Orchestrator) ProcessEntities(ctx context.Context, entities []string) *Result {
	workers := o.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(entities) {
		workers = len(entities)
	}

	result := &Result{
		RunID:    uuid.NewString(),
		Started:  time.Now(),
		Entities: make(map[string]EntityResult, len(entities)),
	}
	if o.db != nil {
		if err := o.db.InsertRun(result.RunID, len(entities)); err != nil {
			log.Printf("ledger: recording run start: %v", err)
		}
	}
	log.Printf("Run %s: processing %d entities with %d workers", result.RunID, len(entities), workers)

	jobs := make(chan string)
	results := make(chan EntityResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entity := range jobs {
				results <- o.processOne(ctx, entity)
			}
		}()
	}
	go func() {
		for _, entity := range entities {
			jobs <- entity
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for er := range results {
		result.Entities[er.Entity] = er
		o.record(result.RunID, er)
	}

	result.Finished = time.Now()
	if o.db != nil {
		if err := o.db.FinishRun(result.RunID, result.OKCount(), result.ErrorCount()); err != nil {
			log.Printf("ledger: recording run finish: %v", err)
		}
	}
	log.Printf("Run %s: %d ok, %d failed", result.RunID, result.OKCount(), result.ErrorCount())
	return result
}

// processOne runs all stages for one entity. Panics are captured and
// converted into an error result.
func (o *Orchestrator) processOne(ctx context.Context, entity string) (er EntityResult) {
	started := time.Now()
	er = EntityResult{Entity: entity}
	defer func() {
		if r := recover(); r != nil {
			er.Err = fmt.Errorf("panic in stage %s: %v", er.Stage, r)
		}
		er.Duration = time.Since(started)
		if o.metrics != nil {
			status := "ok"
			if er.Err != nil {
				status = "error"
			}
			o.metrics.EntityProcessed(status, er.Duration.Seconds())
		}
	}()

	er.Stage = "fetch"
	if err := ctx.Err(); err != nil {
		er.Err = err
		return er
	}
	items, err := o.fetcher.Fetch(ctx, entity, o.cfg.Fetch.MaxItemsPerEntity)
	if err != nil {
		er.Err = fmt.Errorf("fetching %s: %w", entity, err)
		return er
	}
	er.ItemCount = len(items)
	if o.metrics != nil {
		o.metrics.ItemsFetched(len(items))
	}

	er.Stage = "store_raw"
	if err := ctx.Err(); err != nil {
		er.Err = err
		return er
	}
	raw, err := o.store.Store(store.KindRaw, entity, items)
	if err != nil {
		er.Err = fmt.Errorf("storing raw items for %s: %w", entity, err)
		return er
	}
	er.RawPath = raw.Path
	if o.metrics != nil {
		o.metrics.ArtifactWritten(string(store.KindRaw))
	}

	er.Stage = "analyze"
	if err := ctx.Err(); err != nil {
		er.Err = err
		return er
	}
	bundle := o.analyzer.Analyze(ctx, entity, items)

	er.Stage = "store_analyzed"
	if err := ctx.Err(); err != nil {
		er.Err = err
		return er
	}
	analyzed, err := o.store.Store(store.KindAnalyzed, entity, bundle)
	if err != nil {
		er.Err = fmt.Errorf("storing analysis for %s: %w", entity, err)
		return er
	}
	er.AnalyzedPath = analyzed.Path
	if o.metrics != nil {
		o.metrics.ArtifactWritten(string(store.KindAnalyzed))
	}

	er.Stage = "insights"
	if err := ctx.Err(); err != nil {
		er.Err = err
		return er
	}
	report := analyze.BuildInsights(bundle)
	insights, err := o.store.Store(store.KindInsights, entity, report)
	if err != nil {
		er.Err = fmt.Errorf("storing insights for %s: %w", entity, err)
		return er
	}
	er.InsightsPath = insights.Path
	if o.metrics != nil {
		o.metrics.ArtifactWritten(string(store.KindInsights))
	}

	er.Stage = "done"
	log.Printf("Processed %s: %d items in %s", entity, er.ItemCount, time.Since(started).Round(time.Millisecond))
	return er
}

// record writes one entity outcome to the run ledger.
func (o *Orchestrator) record(runID string, er EntityResult) {
	if o.db == nil {
		return
	}
	status := "ok"
	var stage, message *string
	if er.Err != nil {
		status = "error"
		s := er.Stage
		m := er.Err.Error()
		stage = &s
		message = &m
	}
	if _, err := o.db.InsertEntityRun(runID, er.Entity, status, stage, message, er.ItemCount); err != nil {
		log.Printf("ledger: recording entity %s: %v", er.Entity, err)
	}
}
