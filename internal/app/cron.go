package app

import (
	"context"
	"time"

	"github.com/pixelspace/views-core/internal/modules/tracking/rollup"
	"github.com/pixelspace/views-core/internal/modules/tracking/stats"
	pkgcron "github.com/pixelspace/views-core/internal/pkg/cron"
	"go.uber.org/zap"
)

// registerCronJobs registers the scheduled tracking jobs. The jobs are plain
// service methods; the scheduler is only a caller.
func registerCronJobs(sched *pkgcron.Scheduler, rollupSvc *rollup.Service, statsSvc *stats.Service, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "rollup_views",
		Description: "fold raw view events past retention into daily aggregates",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			report, err := rollupSvc.Run(ctx)
			if err != nil {
				cronLogger.Warn("view rollup failed", zap.Error(err))
				return err
			}
			if report.Skipped {
				return nil
			}
			cronLogger.Info("view rollup finished",
				zap.Int64("events", report.EventsProcessed),
				zap.Int64("rows", report.RowsMerged),
			)
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_stats_cache",
		Description: "prune expired durable stats cache rows",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			deleted, err := statsSvc.CleanupExpiredCache(ctx)
			if err != nil {
				cronLogger.Warn("stats cache cleanup failed", zap.Error(err))
				return err
			}
			cronLogger.Info("stats cache cleanup finished", zap.Int64("deleted", deleted))
			return nil
		},
	})
}
