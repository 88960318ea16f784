package app

import (
	"context"
	"fmt"
	"time"

	"github.com/daybook-app/core/internal/modules/summary"
	pkgcron "github.com/daybook-app/core/internal/pkg/cron"
	"github.com/daybook-app/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

const sweepBatchSize = 25

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, summaries *summary.Service, tasks *taskqueue.Service, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "sweep_stale_summaries",
		Description: "regenerate day summaries left stale by failed or skipped rebuilds",
		Interval:    15 * time.Minute,
		Fn: func(ctx context.Context) error {
			processed, err := summaries.Sweep(ctx, sweepBatchSize)
			if err != nil {
				cronLogger.Warn("summary sweep failed", zap.Int("processed", processed), zap.Error(err))
				return err
			}
			if processed > 0 {
				cronLogger.Info(fmt.Sprintf("summary sweep regenerated %d day(s)", processed))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_finished_tasks",
		Description: "delete finished task records older than 24 hours",
		Interval:    6 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().Add(-24 * time.Hour).UnixMilli()
			if err := tasks.DeleteCompleted(ctx, cutoff); err != nil {
				cronLogger.Warn("task cleanup failed", zap.Error(err))
				return err
			}
			return nil
		},
	})
}
