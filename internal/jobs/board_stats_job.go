package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"orderboard/internal/domain"
)

type StatsSource interface {
	BoardStats(ctx context.Context) (domain.BoardStats, error)
}

type StatsSink interface {
	SetBoardStats(stats domain.BoardStats)
}

// BoardStatsJob periodically copies the active order counts and the current
// sequence value into the metrics gauges.
type BoardStatsJob struct {
	source   StatsSource
	sink     StatsSink
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewBoardStatsJob(source StatsSource, sink StatsSink, schedule string, timeout time.Duration, logger *zap.Logger) *BoardStatsJob {
	return &BoardStatsJob{
		source:   source,
		sink:     sink,
		schedule: schedule,
		timeout:  timeout,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.With(zap.String("component", "board_stats_job")),
	}
}

// Start refreshes once and then on every tick of the schedule.
func (j *BoardStatsJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() {
		if err := j.RefreshNow(context.Background()); err != nil {
			j.logger.Warn("board stats refresh failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("scheduling board stats job %q: %w", j.schedule, err)
	}

	if err := j.RefreshNow(context.Background()); err != nil {
		j.logger.Warn("initial board stats refresh failed", zap.Error(err))
	}

	j.cron.Start()
	j.logger.Info("board stats job started", zap.String("schedule", j.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (j *BoardStatsJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("board stats job stopped")
}

func (j *BoardStatsJob) RefreshNow(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	stats, err := j.source.BoardStats(ctx)
	if err != nil {
		return err
	}

	j.sink.SetBoardStats(stats)
	j.logger.Debug("board stats refreshed",
		zap.Int("pending", stats.Active[domain.OrderStatusPending]),
		zap.Int("ready", stats.Active[domain.OrderStatusReady]),
		zap.Int64("currentNumber", stats.CurrentNumber),
	)
	return nil
}
