// Package schedule runs the pipeline and retention maintenance on cron
// schedules. Both jobs share one mutex so retention never rewrites the
// corpus while a pipeline run is writing artifacts into it.
package schedule

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mkessler/pulsetrack/internal/config"
	"github.com/mkessler/pulsetrack/internal/metrics"
	"github.com/mkessler/pulsetrack/internal/pipeline"
	"github.com/mkessler/pulsetrack/internal/retention"
)

// Scheduler drives periodic pipeline runs and retention sweeps.
type Scheduler struct {
	cfg       *config.Config
	orch      *pipeline.Orchestrator
	retention *retention.Manager
	metrics   *metrics.Metrics

	cron    *cron.Cron
	mu      sync.Mutex // serializes pipeline and retention jobs
	running bool
	stateMu sync.Mutex
}

// New creates a scheduler. The retention manager and metrics may be nil
// to disable retention sweeps and instrumentation.
func New(cfg *config.Config, orch *pipeline.Orchestrator, rm *retention.Manager, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		orch:      orch,
		retention: rm,
		metrics:   m,
		cron:      cron.New(),
	}
}

// Start registers the configured jobs and begins the schedule. It returns
// immediately; jobs run in cron's goroutine until ctx is cancelled or
// Stop is called. An empty schedule disables the corresponding job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if expr := s.cfg.Pipeline.Schedule; expr != "" {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("invalid pipeline schedule %q: %w", expr, err)
		}
		if _, err := s.cron.AddFunc(expr, func() { s.runPipeline(ctx) }); err != nil {
			return fmt.Errorf("scheduling pipeline: %w", err)
		}
		log.Printf("Pipeline scheduled: %s", expr)
	}

	if expr := s.cfg.Retention.Schedule; expr != "" && s.retention != nil {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("invalid retention schedule %q: %w", expr, err)
		}
		if _, err := s.cron.AddFunc(expr, func() { s.runRetention(ctx) }); err != nil {
			return fmt.Errorf("scheduling retention: %w", err)
		}
		log.Printf("Retention scheduled: %s (keep %d days)", expr, s.cfg.Retention.DaysToKeep)
	}

	s.cron.Start()
	s.running = true

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	log.Println("Scheduler stopped")
}

// Reload swaps in a new configuration. It takes the job mutex so a
// running pipeline or retention sweep never observes a partial update.
func (s *Scheduler) Reload(updated *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.cfg = *updated
}

// RunPipelineNow triggers a pipeline run outside the schedule, honoring
// the same serialization as scheduled jobs.
func (s *Scheduler) RunPipelineNow(ctx context.Context) *pipeline.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch.ProcessEntities(ctx, s.cfg.Entities)
}

func (s *Scheduler) runPipeline(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return
	}
	log.Println("Scheduled pipeline run starting")
	result := s.orch.ProcessEntities(ctx, s.cfg.Entities)
	log.Printf("Scheduled pipeline run %s finished: %d ok, %d failed",
		result.RunID, result.OKCount(), result.ErrorCount())
}

func (s *Scheduler) runRetention(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return
	}
	log.Println("Scheduled retention sweep starting")

	if _, err := s.retention.OrganizeByDate(""); err != nil {
		log.Printf("Organizing artifacts: %v", err)
	}
	removed := s.retention.Expire(s.cfg.Retention.DaysToKeep)
	if s.metrics != nil {
		s.metrics.RetentionRemoved(len(removed))
	}
	log.Printf("Retention sweep removed %d entries", len(removed))
}
