package estimate_queue

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Refresher периодически пересчитывает очереди всех услуг по cron-расписанию
type Refresher struct {
	usecase *UseCase
	spec    string
	metrics Metrics
	logger  Logger

	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

// NewRefresher создает планировщик пересчёта. spec в формате robfig/cron, например "@every 30s"
func NewRefresher(usecase *UseCase, spec string, metrics Metrics, logger Logger) *Refresher {
	return &Refresher{
		usecase: usecase,
		spec:    spec,
		metrics: metrics,
		logger:  logger,
	}
}

// Start запускает планировщик. Прогоны выполняются с контекстом, который отменяется в Stop
func (r *Refresher) Start(ctx context.Context) error {
	r.runCtx, r.cancel = context.WithCancel(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(r.spec, func() { r.RunOnce(r.runCtx) }); err != nil {
		r.cancel()
		return fmt.Errorf("queue refresher: invalid schedule %q: %w", r.spec, err)
	}

	c.Start()
	r.cron = c

	r.logger.Info("Queue refresher started with schedule %s", r.spec)
	return nil
}

// RunOnce выполняет один проход пересчёта
func (r *Refresher) RunOnce(ctx context.Context) {
	failed, err := r.usecase.RefreshAll(ctx)
	switch {
	case err != nil:
		r.logger.Error("Queue refresher: run failed: %v", err)
		r.metrics.ObserveQueueRefresh("error")
	case failed > 0:
		r.logger.Warn("Queue refresher: %d services failed to refresh", failed)
		r.metrics.ObserveQueueRefresh("partial")
	default:
		r.metrics.ObserveQueueRefresh("success")
	}
}

// Stop останавливает планировщик и ждёт завершения текущего прохода
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	r.logger.Info("Queue refresher stopped")
}
