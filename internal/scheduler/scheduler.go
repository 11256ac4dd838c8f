package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler re-runs the planning pipeline on a cron schedule, e.g.
// every Monday morning to pick up syllabus changes.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	runFunc func(ctx context.Context) error
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetRunFunction sets the pipeline entry point to trigger.
func (s *Scheduler) SetRunFunction(f func(ctx context.Context) error) {
	s.runFunc = f
}

// Start registers the cron spec and begins triggering runs.
func (s *Scheduler) Start(spec string) error {
	if s.runFunc == nil {
		log.Println("⚠️ Run function not set, scheduler will not trigger pipeline runs")
		return nil
	}

	_, err := s.cron.AddFunc(spec, func() {
		log.Printf("🕘 Triggered scheduled pipeline run (%s)", spec)
		if err := s.runFunc(s.ctx); err != nil {
			log.Printf("❌ Scheduled pipeline run failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("📅 Scheduler started - pipeline will re-run on cron spec %q (UTC)", spec)
	return nil
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("📅 Scheduler stopped")
}

// IsRunning reports whether any cron entry is registered.
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
