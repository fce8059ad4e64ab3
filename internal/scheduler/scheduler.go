package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"larkdigest/internal/pipeline"

	"github.com/robfig/cron/v3"
)

const DefaultRunTimeout = 15 * time.Minute

// Runner executes one digest run.
type Runner interface {
	Run(ctx context.Context) pipeline.Report
}

type Config struct {
	// Spec is a standard five-field cron expression.
	Spec       string
	Location   *time.Location
	RunTimeout time.Duration
	// OnReport, when set, is called after every run.
	OnReport func(ctx context.Context, report pipeline.Report)
}

// Scheduler triggers runs on a cron schedule. A run that is still going when
// the next one is due causes that next one to be skipped.
type Scheduler struct {
	ctx    context.Context
	cron   *cron.Cron
	runner Runner
	cfg    Config
	log    *slog.Logger
}

func New(ctx context.Context, runner Runner, cfg Config, log *slog.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}

	c := cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{
		ctx:    ctx,
		cron:   c,
		runner: runner,
		cfg:    cfg,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Spec, s.runDigest); err != nil {
		return fmt.Errorf("add cron func (spec = %s): %w", s.cfg.Spec, err)
	}

	s.cron.Start()

	return nil
}

// Stop waits for a running digest to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDigest() {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.RunTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	s.log.InfoContext(ctx, "Scheduled run is started",
		"spec", s.cfg.Spec,
		"timeout", s.cfg.RunTimeout.String())

	report := s.runner.Run(ctx)

	s.log.InfoContext(ctx, "Scheduled run is finished",
		"runID", report.RunID,
		"kept", report.Kept,
		"deliveryFailures", report.DeliveryFailures)

	if s.cfg.OnReport != nil {
		s.cfg.OnReport(ctx, report)
	}
}
