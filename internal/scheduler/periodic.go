package scheduler

import (
	"context"
	"time"

	"callcenter_backend/platform/config"
	"callcenter_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// cronUniqueTTL keeps replicas of the scheduler from queuing the same run twice.
const cronUniqueTTL = 10 * time.Minute

// Periodic enqueues the counter reconciliation on a cron schedule.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// NewPeriodic returns nil when no reconcile schedule is configured.
func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	cronSpec := cfg.GetReconcileCron()
	if cronSpec == "" {
		return nil, nil
	}

	opt, err := clientOpt(cfg)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, nil)
	entryID, err := scheduler.Register(cronSpec, NewReconcileLeadCountsTask(), asynq.Queue(queueName(cfg)), asynq.Unique(cronUniqueTTL))
	if err != nil {
		return nil, err
	}
	log.Info("lead count reconciliation scheduled", "cron", cronSpec, "entryId", entryID)

	return &Periodic{scheduler: scheduler, log: log}, nil
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
}
