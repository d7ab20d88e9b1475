package syncer

import (
	"context"
	"fmt"

	"github.com/STTM-NSU/mt5-sync/internal/config"
	"github.com/STTM-NSU/mt5-sync/internal/logger"
	"github.com/STTM-NSU/mt5-sync/internal/metrics"
	"github.com/robfig/cron/v3"
)

type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// cronLogger routes cron's own messages into our logger.
type cronLogger struct {
	logger logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}

type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger logger.Logger
}

func NewScheduler(ctx context.Context, logger logger.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{logger: logger}),
			cron.WithChain(cron.Recover(cronLogger{logger: logger})),
		),
		ctx:    ctx,
		logger: logger.With("component", "scheduler"),
	}
}

// skipIfRunning drops a tick while the previous run of the same job is still in progress.
func skipIfRunning(name string, l logger.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		running := make(chan struct{}, 1)
		return cron.FuncJob(func() {
			select {
			case running <- struct{}{}:
				defer func() { <-running }()
				j.Run()
			default:
				metrics.SkippedRuns.WithLabelValues(name).Inc()
				l.Debugf("job %s still running, tick skipped", name)
			}
		})
	}
}

func (s *Scheduler) AddJob(schedule string, job Job) error {
	run := cron.FuncJob(func() {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Debugf("running job %s", job.Name)
		if err := job.Run(s.ctx); err != nil {
			s.logger.Errorf("%s: job %s failed", err, job.Name)
		}
	})

	if _, err := s.cron.AddJob(schedule, skipIfRunning(job.Name, s.logger)(run)); err != nil {
		return fmt.Errorf("%w: can't schedule job %s", err, job.Name)
	}

	s.logger.Infof("job %s registered with schedule %q", job.Name, schedule)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Infof("scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Infof("scheduler stopped")
}

// Register adds the three periodic sweeps of svc.
func Register(s *Scheduler, svc *Service, cfg config.SyncConfig) error {
	jobs := []struct {
		schedule string
		job      Job
	}{
		{cfg.OpenSchedule, Job{Name: JobOpen, Run: func(ctx context.Context) error {
			_, err := svc.SyncAllOpenPositions(ctx)
			return err
		}}},
		{cfg.ClosedSchedule, Job{Name: JobClosed, Run: func(ctx context.Context) error {
			_, err := svc.SyncAllClosedPositions(ctx, cfg.ClosedWindow)
			return err
		}}},
		{cfg.DirectorySchedule, Job{Name: JobDirectory, Run: svc.SyncDirectory}},
	}

	for _, j := range jobs {
		if err := s.AddJob(j.schedule, j.job); err != nil {
			return err
		}
	}
	return nil
}
